package errorz

import (
	"errors"
	"slices"
	"strings"
)

// InvalidInput signals that a provided input is invalid due to the wrapped errors.
type InvalidInput []error

// Error lists the wrapped errors on a single line, so the message can be
// shown to clients as is.
func (e InvalidInput) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}

func (e InvalidInput) Unwrap() []error {
	return e
}

// Keys returns the sorted and deduplicated keys of the Keyed errors in e.
func (e InvalidInput) Keys() []string {
	var keys []string
	for _, err := range e {
		var k Keyed
		if errors.As(err, &k) {
			keys = append(keys, k.Key)
		}
	}

	slices.Sort(keys)
	return slices.Compact(keys)
}

// Keyed is an error that belongs to a named input, usually a form field.
type Keyed struct {
	Key string
	Err error
}

func (k Keyed) Error() string {
	return k.Key + ": " + k.Err.Error()
}

func (k Keyed) Unwrap() error {
	return k.Err
}
