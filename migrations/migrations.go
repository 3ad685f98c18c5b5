// Package migrations embeds the SQL migrations of the account store.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/willemschots/accounts/internal/db"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

// ForDialect returns the migrations written for the given dialect. The
// returned fs.FS contains the .sql files at its root.
func ForDialect(d db.Dialect) (fs.FS, error) {
	var dir string
	switch d {
	case db.SQLite:
		dir = "sqlite"
	case db.Postgres:
		dir = "postgres"
	default:
		return nil, fmt.Errorf("no migrations for dialect %v", d)
	}

	return fs.Sub(files, dir)
}
