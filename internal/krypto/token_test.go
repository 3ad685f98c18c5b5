package krypto_test

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/willemschots/accounts/internal/krypto"
)

func Test_GenerateToken(t *testing.T) {
	t.Run("ok, tokens differ", func(t *testing.T) {
		seen := make(map[krypto.Token]struct{})
		for i := 0; i < 100; i++ {
			tok, err := krypto.GenerateToken()
			if err != nil {
				t.Fatalf("failed to generate token: %v", err)
			}

			if _, ok := seen[tok]; ok {
				t.Fatalf("generated duplicate token %s", tok)
			}
			seen[tok] = struct{}{}
		}
	})

	t.Run("ok, string roundtrips through ParseToken", func(t *testing.T) {
		tok := must(krypto.GenerateToken())

		got, err := krypto.ParseToken(tok.String())
		if err != nil {
			t.Fatalf("failed to parse token: %v", err)
		}

		if got != tok {
			t.Errorf("got %s, want %s", got, tok)
		}
	})
}

func Test_ParseToken(t *testing.T) {
	failCases := map[string]string{
		"empty":      "",
		"too short":  "0102030405060708091011121314151617181920212223242526272829303",
		"too long":   "010203040506070809101112131415161718192021222324252627282930313233",
		"non-hex":    "zz02030405060708091011121314151617181920212223242526272829303132",
		"whitespace": " 102030405060708091011121314151617181920212223242526272829303132",
	}

	for name, raw := range failCases {
		t.Run(name, func(t *testing.T) {
			_, err := krypto.ParseToken(raw)
			if !errors.Is(err, krypto.ErrInvalidToken) {
				t.Fatalf("expected %v, got %v (via errors.Is)", krypto.ErrInvalidToken, err)
			}
		})
	}

	t.Run("ok, unmarshal text", func(t *testing.T) {
		raw := "0102030405060708091011121314151617181920212223242526272829303132"

		var tok krypto.Token
		err := tok.UnmarshalText([]byte(raw))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if tok.String() != raw {
			t.Errorf("got %s, want %s", tok.String(), raw)
		}
	})
}

func Test_Token_LogValue(t *testing.T) {
	tok := must(krypto.GenerateToken())

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	logger.Info("attempting to log a token", "token", tok)

	s := buf.String()
	if !strings.Contains(s, krypto.SecretMarker) {
		t.Errorf("log output\n%s\ndoes not contain secret marker: %s", s, krypto.SecretMarker)
	}

	if strings.Contains(s, tok.String()) {
		t.Errorf("log output\n%s\ncontains raw token", s)
	}
}
