// Package mailgun delivers email through the Mailgun messages API.
package mailgun

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/willemschots/accounts/internal/email"
	"github.com/willemschots/accounts/internal/krypto"
)

// maxErrorBody caps how much of a failed response ends up in an error.
const maxErrorBody = 1 << 12

type Settings struct {
	APIHost  string
	Domain   string
	Username string
	Password krypto.Secret
	// Scheme defaults to https.
	Scheme string
}

// Error is returned when Mailgun does not accept a message.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("mailgun: status %d: %s", e.StatusCode, e.Body)
}

// Sender posts messages to Mailgun directly, the official client pulls
// in far more than one endpoint needs.
type Sender struct {
	client   *http.Client
	settings Settings
}

func NewSender(client *http.Client, s Settings) *Sender {
	return &Sender{
		client:   client,
		settings: s,
	}
}

func (s *Sender) endpoint() string {
	u := url.URL{
		Scheme: s.settings.Scheme,
		Host:   s.settings.APIHost,
		Path:   "/v3/" + s.settings.Domain + "/messages",
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	return u.String()
}

// Send posts a single plain text email as a multipart form.
func (s *Sender) Send(ctx context.Context, from, recipient email.Address, subject, body string) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"from", string(from)},
		{"to", string(recipient)},
		{"subject", subject},
		{"text", body},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(), &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", w.FormDataContentType())
	req.SetBasicAuth(s.settings.Username, string(s.settings.Password.SecretValue()))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	errBody, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	return &Error{StatusCode: resp.StatusCode, Body: string(errBody)}
}
