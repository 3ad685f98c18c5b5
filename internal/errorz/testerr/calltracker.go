package testerr

import (
	"errors"
	"fmt"
)

// Err is the error returned by failing dependencies in tests.
var Err = errors.New("test error")

// Calltracker counts calls to a dependency and decides which of them fail.
// The zero value never fails.
type Calltracker struct {
	err    error
	calls  int
	failAt int
	sticky bool
}

// NewFailingDeps returns two trackers per call position in [0, expectCalls):
// one that fails only that call, and one that fails that call and every
// call after it. Together they cover every way a sequence of expectCalls
// calls can break.
func NewFailingDeps(err error, expectCalls int) []Calltracker {
	trackers := make([]Calltracker, 0, expectCalls*2)
	for i := 0; i < expectCalls; i++ {
		trackers = append(trackers,
			Calltracker{err: err, failAt: i, sticky: true},
			Calltracker{err: err, failAt: i},
		)
	}
	return trackers
}

// String describes the failure pattern, useful in test output.
func (ct *Calltracker) String() string {
	switch {
	case ct.err == nil:
		return "never fails"
	case ct.sticky:
		return fmt.Sprintf("fails from call %d on", ct.failAt)
	default:
		return fmt.Sprintf("fails call %d only", ct.failAt)
	}
}

// next registers a call and returns the error it should fail with, if any.
func (ct *Calltracker) next() error {
	if ct.err == nil {
		return nil
	}

	i := ct.calls
	ct.calls++

	if i == ct.failAt || (ct.sticky && i > ct.failAt) {
		return ct.err
	}
	return nil
}

// MaybeFailErrFunc either fails the call or runs f.
func MaybeFailErrFunc(ct *Calltracker, f func() error) error {
	if err := ct.next(); err != nil {
		return err
	}
	return f()
}

// MaybeFail either fails the call or runs f.
func MaybeFail[T any](ct *Calltracker, f func() (T, error)) (T, error) {
	if err := ct.next(); err != nil {
		var zero T
		return zero, err
	}
	return f()
}
