package account

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/willemschots/accounts/internal/email"
	"github.com/willemschots/accounts/internal/krypto"
)

const maxDisplayNameBytes = 100

var ErrInvalidDisplayName = errors.New("invalid display name")

// Account contains the data for an account.
type Account struct {
	ID           uuid.UUID
	Email        email.Address
	DisplayName  DisplayName
	PasswordHash krypto.Argon2Hash
	// IsConfirmed is set once the owner proved access to Email.
	// It never reverts to false.
	IsConfirmed bool
	// IsResetPending is set between a password reset request and
	// the password update that completes it.
	IsResetPending bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DisplayName is the informational name of an account holder, used
// to address them in emails.
type DisplayName string

// ParseDisplayName trims the input and checks it is neither empty nor too long.
func ParseDisplayName(raw string) (DisplayName, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || len(trimmed) > maxDisplayNameBytes || !utf8.ValidString(trimmed) {
		return "", ErrInvalidDisplayName
	}

	return DisplayName(trimmed), nil
}

func (n *DisplayName) UnmarshalText(text []byte) error {
	name, err := ParseDisplayName(string(text))
	if err != nil {
		return err
	}

	*n = name
	return nil
}
