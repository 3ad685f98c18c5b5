package account_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/willemschots/accounts/internal/account"
)

func Test_ParseDisplayName(t *testing.T) {
	okTests := map[string]struct {
		raw  string
		want account.DisplayName
	}{
		"ok, simple":   {"Alice", "Alice"},
		"ok, trimmed":  {"  Alice Smith\n", "Alice Smith"},
		"ok, max size": {strings.Repeat("a", 100), account.DisplayName(strings.Repeat("a", 100))},
	}

	for name, tc := range okTests {
		t.Run(name, func(t *testing.T) {
			got, err := account.ParseDisplayName(tc.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}

	failTests := map[string]string{
		"fail, empty":        "",
		"fail, only spaces":  "   ",
		"fail, too long":     strings.Repeat("a", 101),
		"fail, invalid utf8": "\xff\xfe",
	}

	for name, raw := range failTests {
		t.Run(name, func(t *testing.T) {
			var name account.DisplayName
			err := name.UnmarshalText([]byte(raw))
			if !errors.Is(err, account.ErrInvalidDisplayName) {
				t.Fatalf("got %v, want %v (via errors.Is)", err, account.ErrInvalidDisplayName)
			}
		})
	}
}
