package krypto

import (
	"fmt"
	"log/slog"
)

// Secret is sensitive configuration like an API token or a DSN
// with a password in it. It redacts itself when printed or logged.
type Secret struct {
	value []byte
}

func NewSecret(raw string) Secret {
	return Secret{value: []byte(raw)}
}

// IsZero reports whether the secret is empty.
func (s Secret) IsZero() bool {
	return len(s.value) == 0
}

func (s Secret) Format(f fmt.State, _ rune) {
	_, _ = f.Write([]byte(SecretMarker))
}

func (s Secret) MarshalText() ([]byte, error) {
	return []byte(SecretMarker), nil
}

func (s Secret) LogValue() slog.Value {
	return slog.StringValue(SecretMarker)
}

// SecretValue returns the raw secret. Only use it to hand the
// secret to the package that needs it.
func (s Secret) SecretValue() []byte {
	return s.value
}
