package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/schema"
	"github.com/willemschots/accounts/internal/errorz"
)

// mapper is a generic HTTP handler that maps requests to target
// function calls and writes the output to the response.
type mapper[IN, OUT any] struct {
	s      *Server
	req    func(*http.Request) (IN, error)
	target func(context.Context, IN) (OUT, error)
	res    func(result[IN, OUT]) error
}

// result is the result of a succesful request.
// it contains all relevant data because we can't know
// in advance what we will need to construct a response.
type result[IN, OUT any] struct {
	s   *Server
	r   *http.Request
	w   http.ResponseWriter
	in  IN
	out OUT
}

// newHandler creates a HTTP Handler that:
// 1. Maps the request to a value of input type IN.
// 2. Calls the target func with that value.
// 3. Writes the output of type OUT to the response with status 200.
//
// Errors are written using the server error handler.
func newHandler[IN, OUT any](s *Server, targetFunc func(context.Context, IN) (OUT, error)) *mapper[IN, OUT] {
	return &mapper[IN, OUT]{
		s: s,
		req: func(r *http.Request) (IN, error) {
			return defaultRequest[IN](s, r)
		},
		target: targetFunc,
		res: func(r result[IN, OUT]) error {
			return r.s.writeJSON(r.w, http.StatusOK, response{Status: "ok"})
		},
	}
}

// newInputHandler creates a HTTP Handler that:
// 1. Maps the request to a value of type IN.
// 2. Calls the target func with that value.
// 3. Writes a status 200 response to the client if target func was successful.
//
// Errors are written using the server error handler.
func newInputHandler[IN any](s *Server, targetFunc func(context.Context, IN) error) *mapper[IN, struct{}] {
	return newHandler(s, func(ctx context.Context, in IN) (struct{}, error) {
		return struct{}{}, targetFunc(ctx, in)
	})
}

// onSuccess overwrites the function that writes the output to the response.
func (m *mapper[IN, OUT]) onSuccess(fn func(result[IN, OUT]) error) *mapper[IN, OUT] {
	m.res = fn
	return m
}

// onRequest overwrites the function that maps the request to the input.
func (m *mapper[IN, OUT]) onRequest(fn func(*http.Request) (IN, error)) *mapper[IN, OUT] {
	m.req = fn
	return m
}

func (m *mapper[IN, OUT]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	in, err := m.req(r)
	if err != nil {
		m.s.handleError(w, r, err)
		return
	}

	out, err := m.target(r.Context(), in)
	if err != nil {
		m.s.handleError(w, r, err)
		return
	}

	err = m.res(result[IN, OUT]{
		s:   m.s,
		r:   r,
		w:   w,
		in:  in,
		out: out,
	})
	if err != nil {
		m.s.handleError(w, r, err)
		return
	}
}

// defaultRequest is the default way to map a request to a struct.
// Query parameters and form values are both decoded.
func defaultRequest[IN any](s *Server, r *http.Request) (IN, error) {
	var in IN
	err := r.ParseForm()
	if err != nil {
		return in, errorz.InvalidInput{err}
	}

	err = s.decoder.Decode(&in, r.Form)
	return in, decodeError(err)
}

// lookupRequest maps a request like defaultRequest, except that invalid
// input becomes the zero IN. Lookups by email address use it, so that a
// malformed address is reported like any unknown one.
func lookupRequest[IN any](s *Server, r *http.Request) (IN, error) {
	in, err := defaultRequest[IN](s, r)

	var invalidInput errorz.InvalidInput
	if errors.As(err, &invalidInput) {
		var zero IN
		return zero, nil
	}

	return in, err
}

func decodeError(err error) error {
	if err == nil {
		return nil
	}

	var multiErr schema.MultiError
	if errors.As(err, &multiErr) {
		var invalidInput errorz.InvalidInput
		for key, e := range multiErr {
			invalidInput = append(invalidInput, errorz.Keyed{
				Key: key,
				Err: e,
			})
		}

		return invalidInput
	}

	return err
}
