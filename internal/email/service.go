package email

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
)

// TemplateElement is used by a renderer to identify the different parts of an email template.
type TemplateElement string

const (
	ElementSubject TemplateElement = "subject"
	ElementBody    TemplateElement = "body"
)

// Renderer is responsible for rendering email templates.
type Renderer interface {
	Render(w io.Writer, name string, element TemplateElement, data any) error
}

// Sender is responsible for actually sending an email.
type Sender interface {
	Send(ctx context.Context, sender, recipient Address, subject, body string) error
}

// ServiceConfig is the configuration for the Service.
type ServiceConfig struct {
	// From is the address emails are sent from.
	From Address
	// BaseURL is the URL templates use to construct links, without a trailing slash.
	BaseURL string
}

// Service provides the main functionality for sending emails.
type Service struct {
	renderer Renderer
	sender   Sender
	cfg      ServiceConfig
}

func NewService(renderer Renderer, sender Sender, cfg ServiceConfig) *Service {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Service{
		renderer: renderer,
		sender:   sender,
		cfg:      cfg,
	}
}

// TemplateData is the data that is provided to every email template.
type TemplateData struct {
	BaseURL string
	Data    any
}

// SendMessage renders the template with the given name and sends the
// result to the recipient. Templates have access to the data via .Data and to the
// base URL of the app via .BaseURL.
func (s *Service) SendMessage(ctx context.Context, name string, recipient Address, data any) error {
	tmplData := TemplateData{
		BaseURL: s.cfg.BaseURL,
		Data:    data,
	}

	var subject bytes.Buffer
	err := s.renderer.Render(&subject, name, ElementSubject, tmplData)
	if err != nil {
		return fmt.Errorf("failed to render subject of %s email: %w", name, err)
	}

	var body bytes.Buffer
	err = s.renderer.Render(&body, name, ElementBody, tmplData)
	if err != nil {
		return fmt.Errorf("failed to render body of %s email: %w", name, err)
	}

	// Subjects are a single line, templates tend to have some whitespace around them.
	subjectLine := strings.Join(strings.Fields(subject.String()), " ")

	err = s.sender.Send(ctx, s.cfg.From, recipient, subjectLine, strings.TrimSpace(body.String()))
	if err != nil {
		return fmt.Errorf("failed to send %s email: %w", name, err)
	}

	return nil
}
