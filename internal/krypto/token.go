package krypto

import (
	"encoding/hex"
	"errors"
	"log/slog"
)

const tokenLen = 32

var ErrInvalidToken = errors.New("invalid token")

// Token is a random value that proves control of an email address.
//
// Its plaintext only ever appears in the email that delivers it. Storage
// keeps a hash, and logs see SecretMarker.
type Token [tokenLen]byte

func GenerateToken() (Token, error) {
	var t Token
	b, err := genRandomBytes(tokenLen)
	if err != nil {
		return t, err
	}
	copy(t[:], b)
	return t, nil
}

// ParseToken decodes the hex form produced by String.
func ParseToken(raw string) (Token, error) {
	var t Token
	if len(raw) != hex.EncodedLen(tokenLen) {
		return t, ErrInvalidToken
	}

	if _, err := hex.Decode(t[:], []byte(raw)); err != nil {
		return Token{}, ErrInvalidToken
	}

	return t, nil
}

// String returns the hex form, for embedding in links.
func (t Token) String() string {
	return hex.EncodeToString(t[:])
}

func (t *Token) UnmarshalText(text []byte) error {
	parsed, err := ParseToken(string(text))
	if err != nil {
		return err
	}

	*t = parsed
	return nil
}

func (t Token) LogValue() slog.Value {
	return slog.StringValue(SecretMarker)
}
