package email

import (
	"context"
	"sync"
)

// Message is an email that was sent by the MemorySender.
type Message struct {
	From      Address
	Recipient Address
	Subject   string
	Body      string
}

// MemorySender is a Sender that keeps sent emails in memory, used in tests.
type MemorySender struct {
	mu     sync.Mutex
	Emails []Message
}

func NewMemorySender() *MemorySender {
	return &MemorySender{}
}

func (s *MemorySender) Send(_ context.Context, from, recipient Address, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Emails = append(s.Emails, Message{
		From:      from,
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
	})
	return nil
}

// Last returns the most recently sent email.
func (s *MemorySender) Last() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.Emails) == 0 {
		return Message{}, false
	}

	return s.Emails[len(s.Emails)-1], true
}
