package db

import (
	"context"
	"database/sql"

	"github.com/willemschots/accounts/internal/account"
	"github.com/willemschots/accounts/internal/db"
	"github.com/willemschots/accounts/internal/krypto"
)

// Store is responsible for interacting with a database.
//
// Email addresses and display names are encrypted at rest. Lookups by
// email address use a blind index that is derived from blindIndexKey.
type Store struct {
	writeDB       *sql.DB
	readDB        *sql.DB
	dialect       db.Dialect
	encryptor     *krypto.Encryptor
	blindIndexKey krypto.Key
}

// New creates a new Store. For databases that handle concurrent writers
// themselves writeDB and readDB can be the same pool.
func New(writeDB, readDB *sql.DB, dialect db.Dialect, encryptor *krypto.Encryptor, blindIndexKey krypto.Key) *Store {
	return &Store{
		writeDB:       writeDB,
		readDB:        readDB,
		dialect:       dialect,
		encryptor:     encryptor,
		blindIndexKey: blindIndexKey,
	}
}

// BeginTx starts a new transaction.
func (s *Store) BeginTx(ctx context.Context) (account.Tx, error) {
	tx, err := s.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{
		tx:    tx,
		store: s,
	}, nil
}

// FindAccounts queries for accounts based on the provided filter outside of a transaction.
// It returns an empty slice if no accounts are found.
func (s *Store) FindAccounts(ctx context.Context, filter *account.AccountFilter) ([]account.Account, error) {
	return selectAccounts(s.newQuery(), func(query string, params ...any) (*sql.Rows, error) {
		return s.readDB.QueryContext(ctx, query, params...)
	}, filter)
}

func (s *Store) newQuery() *db.Query {
	return &db.Query{
		Dialect:       s.dialect,
		Encryptor:     s.encryptor,
		BlindIndexKey: s.blindIndexKey,
	}
}
