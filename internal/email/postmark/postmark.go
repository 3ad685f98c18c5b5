// Package postmark delivers email through the Postmark HTTP API.
package postmark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/willemschots/accounts/internal/email"
	"github.com/willemschots/accounts/internal/krypto"
)

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 1 << 16

type Settings struct {
	APIURL        *url.URL
	ServerToken   krypto.Secret
	MessageStream string
}

// Error is an error reported by the Postmark API.
type Error struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("postmark: status %d, error code %d: %s", e.StatusCode, e.Code, e.Message)
}

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

type message struct {
	From          string `json:"From"`
	To            string `json:"To"`
	Subject       string `json:"Subject"`
	TextBody      string `json:"TextBody"`
	MessageStream string `json:"MessageStream"`
}

type result struct {
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
	MessageID string `json:"MessageID"`
}

// Send posts a single plain text email.
func (s *Sender) Send(ctx context.Context, from, recipient email.Address, subject, body string) error {
	payload, err := json.Marshal(message{
		From:          string(from),
		To:            string(recipient),
		Subject:       subject,
		TextBody:      body,
		MessageStream: s.settings.MessageStream,
	})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.settings.APIURL.String(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", string(s.settings.ServerToken.SecretValue()))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	// Failures usually come with a JSON body carrying an error code,
	// whatever the status code.
	var res result
	err = json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&res)
	if err != nil {
		return &Error{StatusCode: resp.StatusCode, Message: fmt.Sprintf("undecodable response: %v", err)}
	}

	if res.ErrorCode != 0 || resp.StatusCode != http.StatusOK {
		return &Error{StatusCode: resp.StatusCode, Code: res.ErrorCode, Message: res.Message}
	}

	return nil
}
