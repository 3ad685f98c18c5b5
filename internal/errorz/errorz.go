package errorz

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConstraintViolated = errors.New("constraint violated")
	ErrTxBadState         = errors.New("transaction is in a known bad state")
)

// pgIntegrityClass is the PostgreSQL SQLSTATE class for integrity constraint violations.
const pgIntegrityClass = "23"

// MapDBErr maps database errors to appropriate errorz errors.
// If err is nil, MapDBErr returns nil.
func MapDBErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	sErr := sqlite3.Error{}
	if errors.As(err, &sErr) {
		if sErr.Code == sqlite3.ErrConstraint {
			return errors.Join(ErrConstraintViolated, err)
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if len(pgErr.Code) == 5 && pgErr.Code[:2] == pgIntegrityClass {
			return errors.Join(ErrConstraintViolated, err)
		}
	}

	return err
}
