package account

import (
	"time"

	"github.com/google/uuid"
	"github.com/willemschots/accounts/internal/email"
	"github.com/willemschots/accounts/internal/krypto"
)

// EmailToken contains the state of a random token that is sent via email.
type EmailToken struct {
	ID uuid.UUID
	// TokenHash is the hash of the token. We hash the token to prevent someone with
	// access to the database from mis-using the tokens.
	TokenHash  krypto.Argon2Hash
	AccountID  uuid.UUID
	Email      email.Address
	Purpose    EmailTokenPurpose
	CreatedAt  time.Time
	ConsumedAt *time.Time
}

// EmailTokenPurpose represents the purpose of an email token. A token
// can only be used for the purpose it was created for.
type EmailTokenPurpose string

const (
	// EmailTokenPurposeConfirm indicates an email token is for confirming an email address.
	EmailTokenPurposeConfirm EmailTokenPurpose = "confirm-email"
	// EmailTokenPurposeReset indicates an email token is for resetting a password.
	EmailTokenPurposeReset EmailTokenPurpose = "reset-password"
)

// EmailTokenRaw is the plaintext form of an email token, as it is embedded
// in the link that is sent to the account holder.
type EmailTokenRaw struct {
	ID    uuid.UUID
	Token krypto.Token
}

// TokenMessage is the data that is provided to the templates of emails
// containing a token link.
type TokenMessage struct {
	DisplayName DisplayName
	Token       EmailTokenRaw
}

// newEmailToken generates a token for the given purpose. The AccountID and
// Email fields are left for the caller to set.
func newEmailToken(purpose EmailTokenPurpose, now time.Time) (EmailToken, EmailTokenRaw, error) {
	token, err := krypto.GenerateToken()
	if err != nil {
		return EmailToken{}, EmailTokenRaw{}, err
	}

	tokenHash, err := krypto.HashArgon2(token[:])
	if err != nil {
		return EmailToken{}, EmailTokenRaw{}, err
	}

	emailToken := EmailToken{
		ID:         uuid.New(),
		TokenHash:  tokenHash,
		Purpose:    purpose,
		CreatedAt:  now,
		ConsumedAt: nil,
	}

	return emailToken, EmailTokenRaw{ID: emailToken.ID, Token: token}, nil
}
