package db

import (
	"fmt"
	"strconv"
)

// Dialect identifies the flavour of SQL spoken by a database.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

// ParseDialect returns the dialect for a database/sql driver name.
func ParseDialect(driver string) (Dialect, error) {
	switch driver {
	case "sqlite3":
		return SQLite, nil
	case "pgx":
		return Postgres, nil
	default:
		return 0, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// DriverName returns the name the database/sql driver is registered under.
func (d Dialect) DriverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite3"
}

// Placeholder returns the bind parameter for the n-th (1-based) parameter in a query.
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func (d Dialect) String() string {
	return d.DriverName()
}
