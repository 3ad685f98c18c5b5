package db

import (
	"database/sql"
	"errors"

	"github.com/willemschots/accounts/internal/account"
	"github.com/willemschots/accounts/internal/errorz"
)

type Tx struct {
	tx    *sql.Tx
	store *Store
}

// Commit commits the transaction. Committing a transaction that was
// already committed or rolled back returns errorz.ErrTxBadState.
func (t *Tx) Commit() error {
	return txStateErr(t.tx.Commit())
}

// Rollback aborts the transaction. Rolling back a transaction that was
// already committed or rolled back returns errorz.ErrTxBadState.
func (t *Tx) Rollback() error {
	return txStateErr(t.tx.Rollback())
}

func txStateErr(err error) error {
	if errors.Is(err, sql.ErrTxDone) {
		return errors.Join(errorz.ErrTxBadState, err)
	}
	return err
}

// CreateAccount creates an account in the database.
// It returns errorz.ErrConstraintViolated if the ID or email address are already in use.
func (t *Tx) CreateAccount(a *account.Account) error {
	return insertAccount(t.store.newQuery(), t.tx.Exec, a)
}

// UpdateAccount updates an account in the database.
// It returns errorz.ErrNotFound if no account is found.
func (t *Tx) UpdateAccount(a *account.Account) error {
	return updateAccount(t.store.newQuery(), t.tx.Exec, a)
}

// FindAccounts queries for accounts based on the provided filter.
// It returns an empty slice if no accounts are found.
func (t *Tx) FindAccounts(filter *account.AccountFilter) ([]account.Account, error) {
	return selectAccounts(t.store.newQuery(), t.tx.Query, filter)
}

// CreateEmailToken creates an email token in the database.
func (t *Tx) CreateEmailToken(tok *account.EmailToken) error {
	return insertEmailToken(t.store.newQuery(), t.tx.Exec, tok)
}

// UpdateEmailToken updates an email token in the database.
// It returns errorz.ErrNotFound if no email token is found.
// Only the ConsumedAt field is persisted, all other fields of a
// token are immutable.
func (t *Tx) UpdateEmailToken(tok *account.EmailToken) error {
	return updateEmailToken(t.store.newQuery(), t.tx.Exec, tok)
}

// FindEmailTokens queries for email tokens based on the provided filter.
func (t *Tx) FindEmailTokens(filter *account.EmailTokenFilter) ([]account.EmailToken, error) {
	return selectEmailTokens(t.store.newQuery(), t.tx.Query, filter)
}
