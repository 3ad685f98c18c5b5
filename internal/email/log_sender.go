package email

import (
	"context"
	"log/slog"
)

// LogSender writes emails to a logger instead of delivering them.
// Addresses and bodies end up in the logs, so it is meant for
// local development and tests only.
type LogSender struct {
	logger *slog.Logger
	level  slog.Level
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{
		logger: logger,
		level:  slog.LevelInfo,
	}
}

// Send logs the email. It fails only when ctx is already done.
func (s *LogSender) Send(ctx context.Context, from, recipient Address, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.logger.LogAttrs(ctx, s.level, "send email",
		slog.String("from", string(from)),
		slog.String("recipient", string(recipient)),
		slog.String("subject", subject),
		slog.String("body", body),
	)
	return nil
}
