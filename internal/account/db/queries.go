package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/willemschots/accounts/internal/account"
	"github.com/willemschots/accounts/internal/db"
	"github.com/willemschots/accounts/internal/email"
	"github.com/willemschots/accounts/internal/errorz"
)

type execFunc func(query string, params ...any) (sql.Result, error)
type queryFunc func(query string, params ...any) (*sql.Rows, error)

func insertAccount(q *db.Query, ef execFunc, a *account.Account) error {
	if a.ID == uuid.Nil {
		return fmt.Errorf("zero uuid provided: %w", errorz.ErrConstraintViolated)
	}

	q.Unsafe(`INSERT INTO accounts (id, email_encrypted, email_blind_index, display_name_encrypted, password_hash, is_confirmed, is_reset_pending, created_at, updated_at) VALUES (`)
	q.Param(a.ID)
	q.Unsafe(`, `)
	q.ParamEncrypted([]byte(a.Email))
	q.Unsafe(`, `)
	q.ParamBlindIndex([]byte(a.Email))
	q.Unsafe(`, `)
	q.ParamEncrypted([]byte(a.DisplayName))
	q.Unsafe(`, `)
	q.Params(a.PasswordHash.String(), a.IsConfirmed, a.IsResetPending, a.CreatedAt.UTC(), a.UpdatedAt.UTC())
	q.Unsafe(`)`)

	s, params, err := q.Get()
	if err != nil {
		return err
	}

	_, err = ef(s, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	return nil
}

func updateAccount(q *db.Query, ef execFunc, a *account.Account) error {
	q.Unsafe(`UPDATE accounts SET `)

	q.Unsafe(`email_encrypted = `)
	q.ParamEncrypted([]byte(a.Email))

	q.Unsafe(`, email_blind_index = `)
	q.ParamBlindIndex([]byte(a.Email))

	q.Unsafe(`, display_name_encrypted = `)
	q.ParamEncrypted([]byte(a.DisplayName))

	q.Unsafe(`, password_hash = `)
	q.Param(a.PasswordHash.String())

	q.Unsafe(`, is_confirmed = `)
	q.Param(a.IsConfirmed)

	q.Unsafe(`, is_reset_pending = `)
	q.Param(a.IsResetPending)

	q.Unsafe(`, updated_at = `)
	q.Param(a.UpdatedAt.UTC())

	q.Unsafe(` WHERE id = `)
	q.Param(a.ID)

	s, params, err := q.Get()
	if err != nil {
		return err
	}

	result, err := ef(s, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errorz.MapDBErr(err)
	}

	if rows == 0 {
		return fmt.Errorf("account not found: %w", errorz.ErrNotFound)
	}

	return nil
}

func selectAccounts(q *db.Query, qf queryFunc, f *account.AccountFilter) ([]account.Account, error) {
	q.Unsafe(`SELECT id, email_encrypted, display_name_encrypted, password_hash, is_confirmed, is_reset_pending, created_at, updated_at FROM accounts WHERE 1=1 `)

	if len(f.IDs) > 0 {
		q.Unsafe(`AND id IN (`)
		q.Params(anySlice(f.IDs)...)
		q.Unsafe(`) `)
	}

	if len(f.Emails) > 0 {
		q.Unsafe(`AND email_blind_index IN (`)
		for i, addr := range f.Emails {
			if i > 0 {
				q.Unsafe(`, `)
			}
			q.ParamBlindIndex([]byte(addr))
		}
		q.Unsafe(`) `)
	}

	if f.IsConfirmed != nil {
		q.Unsafe(`AND is_confirmed = `)
		q.Param(*f.IsConfirmed)
		q.Unsafe(` `)
	}

	q.Unsafe(`ORDER BY created_at ASC, id ASC`)

	s, params, err := q.Get()
	if err != nil {
		return nil, err
	}

	rows, err := qf(s, params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]account.Account, 0)
	for rows.Next() {
		var a account.Account
		emailBytes := q.DecryptionTarget()
		nameBytes := q.DecryptionTarget()
		err := rows.Scan(&a.ID, emailBytes, nameBytes, &a.PasswordHash, &a.IsConfirmed, &a.IsResetPending, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, errorz.MapDBErr(err)
		}

		a.Email, err = email.ParseAddress(string(emailBytes.Data))
		if err != nil {
			return nil, err
		}

		a.DisplayName = account.DisplayName(nameBytes.Data)
		a.CreatedAt = a.CreatedAt.UTC()
		a.UpdatedAt = a.UpdatedAt.UTC()

		out = append(out, a)
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}

func insertEmailToken(q *db.Query, ef execFunc, tok *account.EmailToken) error {
	if tok.ID == uuid.Nil {
		return fmt.Errorf("zero uuid provided: %w", errorz.ErrConstraintViolated)
	}

	q.Unsafe(`INSERT INTO email_tokens (id, token_hash, account_id, email_encrypted, purpose, created_at, consumed_at) VALUES (`)
	q.Params(tok.ID, tok.TokenHash.String(), tok.AccountID)
	q.Unsafe(`, `)
	q.ParamEncrypted([]byte(tok.Email))
	q.Unsafe(`, `)
	q.Params(string(tok.Purpose), tok.CreatedAt.UTC(), utcPtr(tok.ConsumedAt))
	q.Unsafe(`)`)

	s, params, err := q.Get()
	if err != nil {
		return err
	}

	_, err = ef(s, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	return nil
}

func updateEmailToken(q *db.Query, ef execFunc, tok *account.EmailToken) error {
	q.Unsafe(`UPDATE email_tokens SET consumed_at = `)
	q.Param(utcPtr(tok.ConsumedAt))

	q.Unsafe(` WHERE id = `)
	q.Param(tok.ID)

	s, params, err := q.Get()
	if err != nil {
		return err
	}

	result, err := ef(s, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errorz.MapDBErr(err)
	}

	if rows == 0 {
		return fmt.Errorf("email token not found: %w", errorz.ErrNotFound)
	}

	return nil
}

func selectEmailTokens(q *db.Query, qf queryFunc, f *account.EmailTokenFilter) ([]account.EmailToken, error) {
	q.Unsafe(`SELECT id, token_hash, account_id, email_encrypted, purpose, created_at, consumed_at FROM email_tokens WHERE 1=1 `)

	if len(f.IDs) > 0 {
		q.Unsafe(`AND id IN (`)
		q.Params(anySlice(f.IDs)...)
		q.Unsafe(`) `)
	}

	if len(f.AccountIDs) > 0 {
		q.Unsafe(`AND account_id IN (`)
		q.Params(anySlice(f.AccountIDs)...)
		q.Unsafe(`) `)
	}

	if len(f.Purposes) > 0 {
		q.Unsafe(`AND purpose IN (`)
		for i, p := range f.Purposes {
			if i > 0 {
				q.Unsafe(`, `)
			}
			q.Param(string(p))
		}
		q.Unsafe(`) `)
	}

	if f.IsConsumed != nil {
		q.Unsafe(`AND consumed_at IS `)
		if *f.IsConsumed {
			q.Unsafe(`NOT `)
		}
		q.Unsafe(`NULL `)
	}

	q.Unsafe(`ORDER BY created_at ASC, id ASC`)

	s, params, err := q.Get()
	if err != nil {
		return nil, err
	}

	rows, err := qf(s, params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]account.EmailToken, 0)
	for rows.Next() {
		var (
			token   account.EmailToken
			purpose string
		)
		emailBytes := q.DecryptionTarget()
		err := rows.Scan(&token.ID, &token.TokenHash, &token.AccountID, emailBytes, &purpose, &token.CreatedAt, &token.ConsumedAt)
		if err != nil {
			return nil, errorz.MapDBErr(err)
		}

		token.Email, err = email.ParseAddress(string(emailBytes.Data))
		if err != nil {
			return nil, err
		}

		token.Purpose = account.EmailTokenPurpose(purpose)
		token.CreatedAt = token.CreatedAt.UTC()
		token.ConsumedAt = utcPtr(token.ConsumedAt)

		out = append(out, token)
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	utc := t.UTC()
	return &utc
}

func anySlice[T any](s []T) []any {
	out := make([]any, 0, len(s))
	for _, v := range s {
		out = append(out, v)
	}
	return out
}
