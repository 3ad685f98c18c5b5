package db

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

const (
	// To run SQLite so that it works well with our app, we need to configure a few options:
	// - WAL Mode so that reads and writes don't block eachother.
	// - A busy timeout, specifying the duration a connection will wait for a lock.
	// - Foreign keys are enforced.
	// The write options also use immediate transactions to prevent locking issues,
	// the read options prevent accidental writes on the read pool.
	writeOptions = "?_foreign_keys=on&_journal_mode=wal&_busy_timeout=5000&_txlock=immediate"
	readOptions  = "?_foreign_keys=on&_journal_mode=wal&_busy_timeout=5000&_query_only=true"

	postgresMaxOpenConns = 10
)

// OpenSQLite opens a pool of SQLite3 connections. Different settings
// are appropriate for reading and writing, so this function needs to know
// what the sql.DB will be used for.
//
// See this comment for more information:
// https://github.com/mattn/go-sqlite3/issues/1179#issuecomment-1638083995
func OpenSQLite(dbFile string, write bool) (*sql.DB, error) {
	optsPostfix := readOptions
	if write {
		optsPostfix = writeOptions
	}

	// Open the database file with the correct options.
	db, err := sql.Open(SQLite.DriverName(), dbFile+optsPostfix)
	if err != nil {
		return nil, err
	}

	if write {
		// use only a single connection for writing.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		// don't close this connection.
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}

	return db, nil
}

// OpenPostgres opens a pool of PostgreSQL connections using the pgx driver.
// Unlike SQLite, PostgreSQL handles concurrent writers itself, so a single
// pool is used for both reading and writing.
func OpenPostgres(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty postgres dsn")
	}

	db, err := sql.Open(Postgres.DriverName(), dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(postgresMaxOpenConns)
	db.SetMaxIdleConns(postgresMaxOpenConns)

	return db, nil
}
