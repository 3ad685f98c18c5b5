package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/schema"
	"github.com/willemschots/accounts/internal"
	"github.com/willemschots/accounts/internal/account"
	"github.com/willemschots/accounts/internal/email"
	"github.com/willemschots/accounts/internal/errorz"
)

// maxBodyBytes limits the size of request bodies.
const maxBodyBytes = 64 << 10

// ServerDeps are the dependencies for the server.
type ServerDeps struct {
	Logger         *slog.Logger
	AccountService *account.Service
}

type Server struct {
	deps    *ServerDeps
	mux     *http.ServeMux
	decoder *schema.Decoder
	handler http.Handler
}

// response is the JSON body of every response written by the server.
type response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	// Fields names the invalid inputs, if known.
	Fields []string `json:"fields,omitempty"`
}

func NewServer(deps *ServerDeps) *Server {
	s := &Server{
		deps:    deps,
		mux:     http.NewServeMux(),
		decoder: schema.NewDecoder(),
	}

	s.decoder.IgnoreUnknownKeys(true)

	// Most endpoints below are created using the newHandler functions.
	// These functions return handlers that automatically map between HTTP requests, target functions and HTTP responses.
	// The request mapping and response writing is customizable.

	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		err := s.writeJSON(w, http.StatusOK, response{Status: "ok", Message: internal.Build.Revision})
		if err != nil {
			s.handleError(w, r, err)
		}
	})

	// Login endpoint.
	{
		h := newHandler(s, deps.AccountService.Authenticate)
		h.onRequest(func(r *http.Request) (account.Credentials, error) {
			return lookupRequest[account.Credentials](s, r)
		})
		h.onSuccess(func(r result[account.Credentials, account.AuthResult]) error {
			switch r.out.Status {
			case account.AuthSuccess:
				msg := fmt.Sprintf("Welcome back, %s.", r.out.Account.DisplayName)
				return r.s.writeJSON(r.w, http.StatusOK, response{Status: r.out.Status.String(), Message: msg})
			case account.AuthUnconfirmed:
				msg := fmt.Sprintf("Your account is not confirmed yet. An email was sent to %s.", r.out.Email)
				return r.s.writeJSON(r.w, http.StatusForbidden, response{Status: r.out.Status.String(), Message: msg})
			case account.AuthResetPending:
				msg := fmt.Sprintf("A password reset was requested for %s. Check your inbox to set a new password.", r.out.Email)
				return r.s.writeJSON(r.w, http.StatusForbidden, response{Status: r.out.Status.String(), Message: msg})
			default:
				return r.s.writeJSON(r.w, http.StatusUnauthorized, response{
					Status:  account.AuthNotFound.String(),
					Message: "Invalid email or password.",
				})
			}
		})

		s.mux.Handle("POST /login", h)
	}

	// Register endpoint.
	{
		type registerForm struct {
			Email           email.Address
			Name            account.DisplayName
			Password        account.Password
			ConfirmPassword account.Password
		}

		h := newInputHandler(s, func(ctx context.Context, f registerForm) error {
			return deps.AccountService.Register(ctx, account.Registration{
				Email:           f.Email,
				DisplayName:     f.Name,
				Password:        f.Password,
				ConfirmPassword: f.ConfirmPassword,
			})
		})
		h.onSuccess(func(r result[registerForm, struct{}]) error {
			return r.s.writeJSON(r.w, http.StatusCreated, response{
				Status:  "registered",
				Message: "Thank you for your registration. Please follow the instructions that have arrived in your inbox.",
			})
		})

		s.mux.Handle("POST /register", h)
	}

	// Confirm endpoint, this is the link in the confirmation email.
	{
		h := newHandler(s, deps.AccountService.Confirm)
		h.onSuccess(func(r result[account.EmailTokenRaw, bool]) error {
			if !r.out {
				return r.s.writeJSON(r.w, http.StatusNotFound, response{
					Status:  "not-confirmed",
					Message: "Your account could not be confirmed.",
				})
			}

			return r.s.writeJSON(r.w, http.StatusOK, response{
				Status:  "confirmed",
				Message: "Your account has been confirmed, you can log in now.",
			})
		})

		s.mux.Handle("GET /confirm", h)
	}

	// Request password reset endpoint.
	{
		type resetRequest struct {
			Email email.Address
		}

		h := newInputHandler(s, func(ctx context.Context, req resetRequest) error {
			return deps.AccountService.RequestReset(ctx, req.Email)
		})
		h.onRequest(func(r *http.Request) (resetRequest, error) {
			return lookupRequest[resetRequest](s, r)
		})
		h.onSuccess(func(r result[resetRequest, struct{}]) error {
			return r.s.writeJSON(r.w, http.StatusAccepted, response{
				Status:  "sent",
				Message: "Check your inbox for instructions to reset your password.",
			})
		})

		s.mux.Handle("POST /password-resets/requests", h)
	}

	// Check reset token endpoint, this is the link in the reset email.
	{
		h := newHandler(s, deps.AccountService.CheckResetToken)
		h.onSuccess(func(r result[account.EmailTokenRaw, bool]) error {
			if !r.out {
				return r.s.writeJSON(r.w, http.StatusNotFound, response{
					Status:  "not-found",
					Message: "This password reset link is invalid or has expired.",
				})
			}

			return r.s.writeJSON(r.w, http.StatusOK, response{
				Status:  "reset-pending",
				Message: "Choose a new password.",
			})
		})

		s.mux.Handle("GET /password-resets", h)
	}

	// Update password endpoint.
	{
		h := newInputHandler(s, deps.AccountService.UpdatePassword)
		h.onSuccess(func(r result[account.NewPassword, struct{}]) error {
			return r.s.writeJSON(r.w, http.StatusOK, response{
				Status:  "updated",
				Message: "Your password was reset, log in with your new password.",
			})
		})

		s.mux.Handle("POST /password-resets", h)
	}

	// Wrap the mux with global middlewares.
	middlewares := []func(http.Handler) http.Handler{
		s.logRequests,
		limitBody,
	}
	s.handler = s.mux
	for i := len(middlewares) - 1; i >= 0; i-- {
		s.handler = middlewares[i](s.handler)
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, res response) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(res)
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status int
		res    response
	)

	var invalidInput errorz.InvalidInput
	switch {
	case errors.Is(err, account.ErrUnavailable):
		s.deps.Logger.Error("account store unavailable", "url", r.URL.Path, "error", err)
		status = http.StatusServiceUnavailable
		res = response{Status: "unavailable", Message: "The service is temporarily unavailable, try again later."}
	case errors.Is(err, account.ErrPasswordMismatch):
		status = http.StatusBadRequest
		res = response{Status: "password-mismatch", Message: "The passwords do not match."}
	case errors.Is(err, account.ErrInvalidPassword):
		status = http.StatusBadRequest
		res = response{Status: "invalid-password", Message: "The password does not meet the requirements."}
	case errors.As(err, &invalidInput):
		status = http.StatusBadRequest
		res = response{Status: "invalid-input", Message: invalidInput.Error(), Fields: invalidInput.Keys()}
	case errors.Is(err, account.ErrEmailTaken):
		status = http.StatusConflict
		res = response{Status: "email-taken", Message: "This email address is already registered."}
	case errors.Is(err, errorz.ErrNotFound):
		status = http.StatusNotFound
		res = response{Status: "not-found", Message: "Nothing was found for the provided details."}
	default:
		s.deps.Logger.Error("internal server error", "url", r.URL.Path, "error", err)
		status = http.StatusInternalServerError
		res = response{Status: "error", Message: "Something went wrong."}
	}

	writeErr := s.writeJSON(w, status, res)
	if writeErr != nil {
		s.deps.Logger.Error("failed to write error response", "url", r.URL.Path, "error", writeErr)
	}
}

// statusRecorder records the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.deps.Logger.Debug("handled request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		next.ServeHTTP(w, r)
	})
}
