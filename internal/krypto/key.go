package krypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

const (
	keyLen = 32

	// SecretMarker replaces key and secret material wherever it is printed,
	// marshalled or logged. Finding it in output is harmless, finding
	// anything else is a leak.
	SecretMarker = "<!SECRET_REDACTED!>"
)

var (
	ErrInvalidKey = errors.New("invalid key")
	ErrNoKeys     = errors.New("no keys")
)

// Key is a 32 byte key used for encryption and blind indexes.
type Key struct {
	value []byte
}

// ParseKey expects a hex encoded key of 32 bytes (64 characters as hex).
func ParseKey(raw string) (Key, error) {
	if len(raw) != hex.EncodedLen(keyLen) {
		return Key{}, ErrInvalidKey
	}

	value, err := hex.DecodeString(raw)
	if err != nil {
		return Key{}, ErrInvalidKey
	}

	return Key{value: value}, nil
}

// ParseKeys parses a comma separated list of hex encoded keys.
// Surrounding whitespace is ignored, the order of the keys is kept.
func ParseKeys(raw string) ([]Key, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrNoKeys
	}

	parts := strings.Split(raw, ",")
	keys := make([]Key, 0, len(parts))
	for i, part := range parts {
		k, err := ParseKey(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}
		keys = append(keys, k)
	}

	return keys, nil
}

func (k Key) Format(f fmt.State, _ rune) {
	_, _ = f.Write([]byte(SecretMarker))
}

func (k Key) MarshalText() ([]byte, error) {
	return []byte(SecretMarker), nil
}

func (k Key) LogValue() slog.Value {
	return slog.StringValue(SecretMarker)
}

// SecretValue returns the raw key bytes, for handing to
// third party packages.
func (k Key) SecretValue() []byte {
	return k.value
}
