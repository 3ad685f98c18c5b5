package testdb

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/willemschots/accounts/internal/db"
	"github.com/willemschots/accounts/internal/db/migrate"
	"github.com/willemschots/accounts/migrations"
)

// RunWhile runs a database while the provided test is executing.
// It returns an empty database with all migrations applied.
func RunWhile(t *testing.T, write bool) *sql.DB {
	t.Helper()

	sqlDB := RunUnmigratedWhile(t, write)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fileSys, err := migrations.ForDialect(db.SQLite)
	if err != nil {
		t.Fatalf("failed to load migrations: %v", err)
	}

	_, err = migrate.RunFS(ctx, sqlDB, db.SQLite, fileSys, migrate.Metadata{})
	if err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return sqlDB
}

// RunUnmigratedWhile runs a database while the provided test is executing.
// It returns an empty in-memory SQLite database without any migrations applied.
// Only write databases share their state between queries, since every
// connection to ":memory:" opens a new database.
func RunUnmigratedWhile(t *testing.T, write bool) *sql.DB {
	t.Helper()

	db, err := db.OpenSQLite(":memory:", write)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	t.Cleanup(func() {
		err := db.Close()
		if err != nil {
			t.Errorf("failed to close database: %v", err)
		}
	})

	return db
}
