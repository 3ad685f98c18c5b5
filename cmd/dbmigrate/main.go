package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/willemschots/accounts/internal"
	"github.com/willemschots/accounts/internal/db"
	"github.com/willemschots/accounts/internal/db/migrate"
	"github.com/willemschots/accounts/migrations"
)

const helpText = `Usage: dbmigrate <sqlite3|pgx> <sqlite_file|postgres_dsn>`

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*60)
	defer cancel()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) != 2 {
		fmt.Fprintln(stderr, helpText)
		return 1
	}

	dialect, err := db.ParseDialect(args[0])
	if err != nil {
		fmt.Fprintf(stderr, "%v\n%s\n", err, helpText)
		return 1
	}

	var sqlDB *sql.DB
	if dialect == db.Postgres {
		sqlDB, err = db.OpenPostgres(args[1])
	} else {
		sqlDB, err = db.OpenSQLite(args[1], true)
	}
	if err != nil {
		fmt.Fprintf(stderr, "failed to open database: %v\n", err)
		return 1
	}
	defer sqlDB.Close()

	fileSys, err := migrations.ForDialect(dialect)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load migrations: %v\n", err)
		return 1
	}

	meta := migrate.Metadata{
		AppVersion: internal.Build.Revision,
		Timestamp:  internal.Build.Time,
	}

	ran, err := migrate.RunFS(ctx, sqlDB, dialect, fileSys, meta)
	if err != nil {
		fmt.Fprintf(stderr, "failed to run migrations: %v\n", err)
		return 1
	}

	for _, migration := range ran {
		fmt.Fprintf(stdout, "%d: %s\n", migration.Sequence, migration.Filename)
	}

	return 0
}
