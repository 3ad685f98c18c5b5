package email

import (
	"errors"
	"net/mail"
	"strings"
)

// maxAddressLen is the longest address that fits in an SMTP path (RFC 5321).
const maxAddressLen = 254

var ErrInvalidEmail = errors.New("invalid email address")

// Address is a bare email address, without a display name.
type Address string

// ParseAddress trims raw and checks that what is left is a single bare
// address. It says nothing about whether the mailbox exists.
func ParseAddress(raw string) (Address, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxAddressLen {
		return "", ErrInvalidEmail
	}

	parsed, err := mail.ParseAddress(raw)
	if err != nil {
		return "", ErrInvalidEmail
	}

	// net/mail also accepts forms like "Alice <alice@example.com>".
	if parsed.Address != raw {
		return "", ErrInvalidEmail
	}

	return Address(parsed.Address), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	addr, err := ParseAddress(string(text))
	if err != nil {
		return err
	}

	*a = addr
	return nil
}
