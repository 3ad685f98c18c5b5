package assets_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/willemschots/accounts/assets"
	"github.com/willemschots/accounts/internal/account"
	"github.com/willemschots/accounts/internal/email"
	"github.com/willemschots/accounts/internal/email/view"
	"github.com/willemschots/accounts/internal/krypto"
)

func Test_EmailTemplates(t *testing.T) {
	tok, err := krypto.ParseToken("0102030405060708091011121314151617181920212223242526272829303132")
	if err != nil {
		t.Fatalf("failed to parse token: %v", err)
	}

	data := email.TemplateData{
		BaseURL: "https://example.com",
		Data: account.TokenMessage{
			DisplayName: "Alice",
			Token: account.EmailTokenRaw{
				ID:    uuid.MustParse("c6f2a9de-2f0e-4b43-9a3e-0d4b1f9c7e21"),
				Token: tok,
			},
		},
	}

	tests := map[string]string{
		account.TemplateConfirmEmail:  "https://example.com/confirm?ID=c6f2a9de-2f0e-4b43-9a3e-0d4b1f9c7e21&Token=0102030405060708091011121314151617181920212223242526272829303132",
		account.TemplateResetPassword: "https://example.com/password-resets?ID=c6f2a9de-2f0e-4b43-9a3e-0d4b1f9c7e21&Token=0102030405060708091011121314151617181920212223242526272829303132",
	}

	for name, wantURL := range tests {
		t.Run(name, func(t *testing.T) {
			v, err := view.Parse(assets.EmailFS, name)
			if err != nil {
				t.Fatalf("failed to parse template: %v", err)
			}

			var buf bytes.Buffer
			err = v.Render(&buf, email.ElementSubject, data)
			if err != nil {
				t.Fatalf("failed to render subject: %v", err)
			}

			if strings.TrimSpace(buf.String()) == "" {
				t.Errorf("empty subject")
			}

			buf.Reset()
			err = v.Render(&buf, email.ElementBody, data)
			if err != nil {
				t.Fatalf("failed to render body: %v", err)
			}

			body := buf.String()
			if !strings.Contains(body, "Hello Alice,") {
				t.Errorf("body does not address the account holder:\n%s", body)
			}

			if !strings.Contains(body, wantURL) {
				t.Errorf("body does not contain %s:\n%s", wantURL, body)
			}
		})
	}
}
