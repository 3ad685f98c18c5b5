package account

import "github.com/willemschots/accounts/internal/email"

// AuthStatus is the outcome of an authentication attempt.
type AuthStatus int

const (
	// AuthNotFound indicates no account matched the credentials.
	AuthNotFound AuthStatus = iota
	// AuthUnconfirmed indicates the credentials matched an account that was not confirmed yet.
	AuthUnconfirmed
	// AuthResetPending indicates the credentials matched an account that is awaiting a password reset.
	AuthResetPending
	// AuthSuccess indicates the credentials matched a confirmed account without a pending reset.
	AuthSuccess
)

func (s AuthStatus) String() string {
	switch s {
	case AuthNotFound:
		return "not-found"
	case AuthUnconfirmed:
		return "unconfirmed"
	case AuthResetPending:
		return "reset-pending"
	case AuthSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// AuthResult is the result of Service.Authenticate.
type AuthResult struct {
	Status AuthStatus
	// Email is set for every status except AuthNotFound.
	Email email.Address
	// Account is only set if Status is AuthSuccess.
	Account Account
}
