package account

import (
	"crypto/subtle"
	"fmt"
	"log/slog"

	"github.com/willemschots/accounts/internal/krypto"
)

// We put a generous upper cap on password length, so people can use
// passphrases but we don't allow MBs of data as a password.
const maxPasswordBytes = 512

var ErrInvalidPassword = fmt.Errorf("invalid password")

// Password is a plaintext password.
//
// It should never be persisted, logged or exposed in any other way. To
// protect ourselves from accidentally doing so, the type implements
// several common interfaces that would allow it to be used inappropriately.
//
// The operations allowed on a Password are:
// - Converting it to a hash.
// - Comparing it with an existing hash to see if they match.
// - Comparing it with another plaintext password.
type Password struct {
	plain []byte
}

// ParsePassword creates a new Password from a plaintext string.
// It errors if the password is empty or too long. Minimum length
// requirements are a policy of the Service, see ServiceConfig.
func ParsePassword(pwd string) (Password, error) {
	if len(pwd) == 0 || len(pwd) > maxPasswordBytes {
		return Password{}, ErrInvalidPassword
	}

	return Password{
		plain: []byte(pwd),
	}, nil
}

// Len returns the length of the password in bytes.
func (p Password) Len() int {
	return len(p.plain)
}

// Equal reports whether both plaintext passwords are byte for byte the same.
// No normalization is applied.
func (p Password) Equal(other Password) bool {
	return subtle.ConstantTimeCompare(p.plain, other.plain) == 1
}

// Match checks if the plaintext password matches the given hash.
func (p Password) Match(h krypto.Argon2Hash) bool {
	return h.MatchBytes(p.plain)
}

// Hash hashes the plaintext password using the argon2id algorithm.
func (p Password) Hash() (krypto.Argon2Hash, error) {
	return krypto.HashArgon2(p.plain)
}

func (p Password) Format(f fmt.State, verb rune) {
	f.Write([]byte(krypto.SecretMarker))
}

func (p Password) MarshalText() ([]byte, error) {
	return []byte(krypto.SecretMarker), nil
}

// LogValue implements the slog.LogValuer interface.
func (p Password) LogValue() slog.Value {
	return slog.StringValue(krypto.SecretMarker)
}

func (p *Password) UnmarshalText(text []byte) error {
	pwd, err := ParsePassword(string(text))
	if err != nil {
		return err
	}

	*p = pwd
	return nil
}
