package email

import (
	"context"
	"log/slog"
)

// devSender logs emails instead of sending them. Used in development
// environments where no Postmark tokens are configured.
type devSender struct {
	log *slog.Logger
}

// NewDevSender returns a Sender that writes messages to the log.
func NewDevSender(log *slog.Logger) Sender {
	return &devSender{log: log}
}

func (s *devSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "dev email",
		slog.String("to", params.SendTo),
		slog.String("reply_to", params.ReplyTo),
		slog.String("subject", params.Subject),
		slog.String("tag", params.Tag),
	)
	return nil
}
