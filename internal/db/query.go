package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/willemschots/accounts/internal/krypto"
)

var errNoEncryptor = errors.New("no encryptor set")

// Query builds a SQL statement and its bind parameters side by side, so
// values never end up in the SQL text. Write static SQL with Unsafe and
// values with the Param methods, then call Get.
//
// Errors are collected while building and reported by Get. The zero value
// builds SQLite statements without encryption support.
type Query struct {
	Dialect       Dialect
	Encryptor     *krypto.Encryptor
	BlindIndexKey krypto.Key

	sql    strings.Builder
	params []any
	err    error
}

func (q *Query) fail(err error) {
	q.err = errors.Join(q.err, err)
}

// Unsafe appends s verbatim. Never pass it user input.
func (q *Query) Unsafe(s string) {
	q.sql.WriteString(s)
}

// Param appends a placeholder bound to v.
func (q *Query) Param(v any) {
	q.params = append(q.params, v)
	q.sql.WriteString(q.Dialect.Placeholder(len(q.params)))
}

// Params appends a comma separated placeholder for each of vs.
func (q *Query) Params(vs ...any) {
	for i, v := range vs {
		if i > 0 {
			q.sql.WriteString(", ")
		}
		q.Param(v)
	}
}

// ParamEncrypted appends a placeholder bound to the encryption of d.
func (q *Query) ParamEncrypted(d []byte) {
	if q.Encryptor == nil {
		q.fail(errNoEncryptor)
		return
	}

	enc, err := q.Encryptor.Encrypt(d)
	if err != nil {
		q.fail(fmt.Errorf("encrypt param %d: %w", len(q.params)+1, err))
		return
	}

	q.Param(enc)
}

// ParamBlindIndex appends a placeholder bound to a keyed argon2 hash of d,
// for equality lookups on encrypted columns. Stored indexes go stale when
// BlindIndexKey or the argon2 parameters change.
func (q *Query) ParamBlindIndex(d []byte) {
	if len(d) == 0 {
		q.fail(errors.New("empty blind index value"))
		return
	}

	hash, err := krypto.HashArgon2WithKey(d, q.BlindIndexKey)
	if err != nil {
		q.fail(fmt.Errorf("blind index param %d: %w", len(q.params)+1, err))
		return
	}

	// The key acts as the salt, it is never stored.
	hash.Salt = nil
	q.Param(hash.String())
}

// Get returns the statement, its parameters and any error collected
// while building it.
func (q *Query) Get() (string, []any, error) {
	return q.sql.String(), q.params, q.err
}

// DecryptionTarget returns a scan destination for a column written
// with ParamEncrypted.
func (q *Query) DecryptionTarget() *Decryptable {
	return &Decryptable{encryptor: q.Encryptor}
}

// Decryptable is a sql.Scanner that decrypts what it scans into Data.
type Decryptable struct {
	encryptor *krypto.Encryptor
	Data      []byte
}

func (d *Decryptable) Scan(src any) error {
	if d.encryptor == nil {
		return errNoEncryptor
	}

	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("can not decrypt %T", src)
	}

	data, err := d.encryptor.Decrypt(b)
	if err != nil {
		return err
	}

	d.Data = data
	return nil
}
