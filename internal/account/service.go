package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/willemschots/accounts/internal/email"
	"github.com/willemschots/accounts/internal/errorz"
	"github.com/willemschots/accounts/internal/krypto"
)

var (
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrEmailTaken       = errors.New("email address is already registered")
	// ErrUnavailable wraps failures of the store.
	ErrUnavailable = errors.New("account store unavailable")
)

// Names of the email templates sent by the Service.
const (
	TemplateConfirmEmail  = "confirm-email"
	TemplateResetPassword = "reset-password"
)

// Emailer is used to send templated emails.
type Emailer interface {
	SendMessage(ctx context.Context, template string, to email.Address, data any) error
}

// ErrFunc is a function that handles errors.
type ErrFunc func(error)

// ServiceConfig is the configuration for the Service.
type ServiceConfig struct {
	// TokenExpiry is the duration an email token is valid.
	// Zero means tokens never expire.
	TokenExpiry time.Duration
	// MinPasswordLength is the minimum number of bytes in a new password.
	// Passwords are never allowed to be empty.
	MinPasswordLength int
	// ConcealAccountState prevents callers from learning whether an email
	// address is registered, or whether the account is confirmed or awaiting
	// a password reset.
	ConcealAccountState bool
}

// Credentials are used to authenticate an account.
type Credentials struct {
	Email    email.Address
	Password Password
}

// Registration is a request to create a new account.
type Registration struct {
	Email           email.Address
	DisplayName     DisplayName
	Password        Password
	ConfirmPassword Password
}

// NewPassword is a request to replace the password of an account, authorized
// by a password reset token.
type NewPassword struct {
	ID              uuid.UUID
	Token           krypto.Token
	Password        Password
	ConfirmPassword Password
}

// Service is the type that provides the rules for the account lifecycle:
// registration, confirmation, authentication and password resets.
type Service struct {
	store      Store
	emailer    Emailer
	errHandler ErrFunc
	cfg        ServiceConfig

	// comparisonHash is used to compare passwords when no account was found.
	comparisonHash krypto.Argon2Hash

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

func NewService(s Store, emailer Emailer, errHandler ErrFunc, cfg ServiceConfig) (*Service, error) {
	if cfg.TokenExpiry < 0 {
		return nil, fmt.Errorf("negative token expiry: %s", cfg.TokenExpiry)
	}

	if cfg.MinPasswordLength < 0 || cfg.MinPasswordLength > maxPasswordBytes {
		return nil, fmt.Errorf("min password length must be between 0 and %d, got %d", maxPasswordBytes, cfg.MinPasswordLength)
	}

	if errHandler == nil {
		errHandler = func(error) {}
	}

	tok, err := krypto.GenerateToken()
	if err != nil {
		return nil, err
	}

	hash, err := krypto.HashArgon2(tok[:])
	if err != nil {
		return nil, err
	}

	svc := &Service{
		store:          s,
		emailer:        emailer,
		errHandler:     errHandler,
		cfg:            cfg,
		comparisonHash: hash,
		NowFunc:        time.Now,
	}

	return svc, nil
}

// Authenticate checks the credentials and reports the state of the matching account.
// A wrong password is reported the same as an unknown email address.
// The returned error is only non-nil if the store failed.
func (s *Service) Authenticate(ctx context.Context, c Credentials) (AuthResult, error) {
	var accounts []Account
	if c.Email != "" {
		var err error
		accounts, err = s.store.FindAccounts(ctx, &AccountFilter{
			Emails: []email.Address{c.Email},
		})
		if err != nil {
			return AuthResult{}, unavailable(err)
		}
	}

	if len(accounts) != 1 {
		// Even if no account is found we compare to a hash to prevent timing differences
		// that could result in user enumeration attacks.
		_ = c.Password.Match(s.comparisonHash)
		return AuthResult{Status: AuthNotFound}, nil
	}

	acc := accounts[0]
	if !c.Password.Match(acc.PasswordHash) {
		return AuthResult{Status: AuthNotFound}, nil
	}

	var status AuthStatus
	switch {
	case !acc.IsConfirmed:
		status = AuthUnconfirmed
	case acc.IsResetPending:
		status = AuthResetPending
	default:
		return AuthResult{Status: AuthSuccess, Email: acc.Email, Account: acc}, nil
	}

	if s.cfg.ConcealAccountState {
		return AuthResult{Status: AuthNotFound}, nil
	}

	return AuthResult{Status: status, Email: acc.Email}, nil
}

// Register creates a new unconfirmed account and emails a confirmation link to it.
// A failure to send the email is passed to the error handler and does not fail
// the registration.
func (s *Service) Register(ctx context.Context, r Registration) error {
	if !r.Password.Equal(r.ConfirmPassword) {
		return ErrPasswordMismatch
	}

	err := s.validatePassword(r.Password)
	if err != nil {
		return err
	}

	var invalid errorz.InvalidInput
	if r.Email == "" {
		invalid = append(invalid, errorz.Keyed{Key: "Email", Err: email.ErrInvalidEmail})
	}
	if r.DisplayName == "" {
		invalid = append(invalid, errorz.Keyed{Key: "DisplayName", Err: ErrInvalidDisplayName})
	}
	if len(invalid) > 0 {
		return invalid
	}

	pwdHash, err := r.Password.Hash()
	if err != nil {
		return err
	}

	now := s.NowFunc()

	acc := Account{
		ID:             uuid.New(),
		Email:          r.Email,
		DisplayName:    r.DisplayName,
		PasswordHash:   pwdHash,
		IsConfirmed:    false,
		IsResetPending: false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	emailToken, raw, err := newEmailToken(EmailTokenPurposeConfirm, now)
	if err != nil {
		return err
	}

	emailToken.AccountID = acc.ID
	emailToken.Email = acc.Email

	err = s.inTx(ctx, func(tx Tx) error {
		accounts, txErr := tx.FindAccounts(&AccountFilter{
			Emails: []email.Address{acc.Email},
		})
		if txErr != nil {
			return txErr
		}

		if len(accounts) > 0 {
			return ErrEmailTaken
		}

		// A concurrent registration could have claimed the email address
		// since the lookup above, the store has the final say.
		txErr = tx.CreateAccount(&acc)
		if errors.Is(txErr, errorz.ErrConstraintViolated) {
			return errors.Join(ErrEmailTaken, txErr)
		}
		if txErr != nil {
			return txErr
		}

		return tx.CreateEmailToken(&emailToken)
	})

	if errors.Is(err, ErrEmailTaken) {
		if s.cfg.ConcealAccountState {
			s.errHandler(fmt.Errorf("registration for taken email address: %w", err))
			return nil
		}
		return ErrEmailTaken
	}

	if err != nil {
		return unavailable(err)
	}

	// Sending could fail independently of the transaction. This is an acceptable
	// risk for now, the error handler gets to know about it.
	//
	// If at some point this becomes unacceptable, we need to consider some kind of outbox pattern.
	s.notify(ctx, TemplateConfirmEmail, acc.Email, TokenMessage{
		DisplayName: acc.DisplayName,
		Token:       raw,
	})

	return nil
}

// Confirm marks the account the confirmation token belongs to as confirmed.
// Confirmation tokens are not consumed, confirming again with the same token
// reports true until the token expires.
func (s *Service) Confirm(ctx context.Context, raw EmailTokenRaw) (bool, error) {
	now := s.NowFunc()

	err := s.inTx(ctx, func(tx Tx) error {
		token, txErr := s.findToken(tx, raw, EmailTokenPurposeConfirm, now)
		if txErr != nil {
			return txErr
		}

		accounts, txErr := tx.FindAccounts(&AccountFilter{
			IDs: []uuid.UUID{token.AccountID},
		})
		if txErr != nil {
			return txErr
		}

		if len(accounts) != 1 {
			return errorz.ErrNotFound
		}

		acc := accounts[0]
		if acc.IsConfirmed {
			return nil
		}

		acc.IsConfirmed = true
		acc.UpdatedAt = now

		return tx.UpdateAccount(&acc)
	})

	if errors.Is(err, errorz.ErrNotFound) {
		return false, nil
	}

	if err != nil {
		return false, unavailable(err)
	}

	return true, nil
}

// RequestReset puts the account with the given email address in the reset pending
// state and emails it a password reset link. The password hash is left untouched,
// but the account can't be authenticated until UpdatePassword completes.
func (s *Service) RequestReset(ctx context.Context, addr email.Address) error {
	now := s.NowFunc()

	emailToken, raw, err := newEmailToken(EmailTokenPurposeReset, now)
	if err != nil {
		return err
	}

	var acc Account
	err = s.inTx(ctx, func(tx Tx) error {
		if addr == "" {
			return errorz.ErrNotFound
		}

		accounts, txErr := tx.FindAccounts(&AccountFilter{
			Emails: []email.Address{addr},
		})
		if txErr != nil {
			return txErr
		}

		if len(accounts) != 1 {
			return errorz.ErrNotFound
		}

		acc = accounts[0]
		acc.IsResetPending = true
		acc.UpdatedAt = now

		txErr = tx.UpdateAccount(&acc)
		if txErr != nil {
			return txErr
		}

		emailToken.AccountID = acc.ID
		emailToken.Email = acc.Email

		return tx.CreateEmailToken(&emailToken)
	})

	if errors.Is(err, errorz.ErrNotFound) {
		if s.cfg.ConcealAccountState {
			return nil
		}
		return errorz.ErrNotFound
	}

	if err != nil {
		return unavailable(err)
	}

	s.notify(ctx, TemplateResetPassword, acc.Email, TokenMessage{
		DisplayName: acc.DisplayName,
		Token:       raw,
	})

	return nil
}

// UpdatePassword replaces the password of the account the reset token belongs to,
// ends the reset pending state and consumes all outstanding reset tokens of the account.
func (s *Service) UpdatePassword(ctx context.Context, np NewPassword) error {
	if !np.Password.Equal(np.ConfirmPassword) {
		return ErrPasswordMismatch
	}

	err := s.validatePassword(np.Password)
	if err != nil {
		return err
	}

	pwdHash, err := np.Password.Hash()
	if err != nil {
		return err
	}

	now := s.NowFunc()

	err = s.inTx(ctx, func(tx Tx) error {
		token, txErr := s.findToken(tx, EmailTokenRaw{ID: np.ID, Token: np.Token}, EmailTokenPurposeReset, now)
		if txErr != nil {
			return txErr
		}

		accounts, txErr := tx.FindAccounts(&AccountFilter{
			IDs: []uuid.UUID{token.AccountID},
		})
		if txErr != nil {
			return txErr
		}

		if len(accounts) != 1 {
			return errorz.ErrNotFound
		}

		acc := accounts[0]
		acc.PasswordHash = pwdHash
		acc.IsResetPending = false
		acc.UpdatedAt = now

		txErr = tx.UpdateAccount(&acc)
		if txErr != nil {
			return txErr
		}

		// Consume all unconsumed reset tokens for the account.
		tokens, txErr := tx.FindEmailTokens(&EmailTokenFilter{
			AccountIDs: []uuid.UUID{acc.ID},
			Purposes:   []EmailTokenPurpose{EmailTokenPurposeReset},
			IsConsumed: ptr(false),
		})
		if txErr != nil {
			return txErr
		}

		for _, t := range tokens {
			t.ConsumedAt = ptr(now)
			txErr = tx.UpdateEmailToken(&t)
			if txErr != nil {
				return txErr
			}
		}

		return nil
	})

	if errors.Is(err, errorz.ErrNotFound) {
		return errorz.ErrNotFound
	}

	if err != nil {
		return unavailable(err)
	}

	return nil
}

// CheckResetToken reports whether raw is an unconsumed, unexpired reset token.
// It changes nothing, UpdatePassword does the actual reset.
func (s *Service) CheckResetToken(ctx context.Context, raw EmailTokenRaw) (bool, error) {
	now := s.NowFunc()

	err := s.inTx(ctx, func(tx Tx) error {
		_, txErr := s.findToken(tx, raw, EmailTokenPurposeReset, now)
		return txErr
	})

	if errors.Is(err, errorz.ErrNotFound) {
		return false, nil
	}

	if err != nil {
		return false, unavailable(err)
	}

	return true, nil
}

// findToken finds the unconsumed token of the given purpose that matches raw.
// It returns errorz.ErrNotFound if there is no such token or if it expired.
func (s *Service) findToken(tx Tx, raw EmailTokenRaw, purpose EmailTokenPurpose, now time.Time) (EmailToken, error) {
	tokens, err := tx.FindEmailTokens(&EmailTokenFilter{
		IDs:        []uuid.UUID{raw.ID},
		Purposes:   []EmailTokenPurpose{purpose},
		IsConsumed: ptr(false),
	})
	if err != nil {
		return EmailToken{}, err
	}

	if len(tokens) != 1 {
		return EmailToken{}, errorz.ErrNotFound
	}

	token := tokens[0]

	if s.cfg.TokenExpiry > 0 && now.Sub(token.CreatedAt) > s.cfg.TokenExpiry {
		return EmailToken{}, errorz.ErrNotFound
	}

	// Check if the provided token matches the stored hash.
	if !token.TokenHash.MatchBytes(raw.Token[:]) {
		return EmailToken{}, errorz.ErrNotFound
	}

	return token, nil
}

func (s *Service) validatePassword(p Password) error {
	if p.Len() < max(s.cfg.MinPasswordLength, 1) {
		return ErrInvalidPassword
	}
	return nil
}

func (s *Service) notify(ctx context.Context, template string, to email.Address, data any) {
	err := s.emailer.SendMessage(ctx, template, to, data)
	if err != nil {
		s.errHandler(fmt.Errorf("failed to send %s email: %w", template, err))
	}
}

func (s *Service) inTx(ctx context.Context, f func(tx Tx) error) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return err
	}

	err = f(tx)
	if err != nil {
		rBackErr := tx.Rollback()
		if rBackErr != nil {
			err = errors.Join(err, rBackErr)
		}
		return err
	}

	return tx.Commit()
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

func ptr[T any](v T) *T {
	return &v
}
