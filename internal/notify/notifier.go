// Package notify delivers outgoing email. The SMTP notifier is used when a
// relay is configured; otherwise messages are only logged.
package notify

import (
	"context"
	"errors"

	"github.com/straye-as/offers-api/internal/config"
	"go.uber.org/zap"
)

// ErrNoRecipient is returned for messages without a To address
var ErrNoRecipient = errors.New("message has no recipient")

// Attachment is a file sent along with a message
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is one outgoing email. Text is required; HTML is optional and
// sent as an alternative part.
type Message struct {
	To         string
	Subject    string
	Text       string
	HTML       string
	Attachment *Attachment
}

// Notifier sends messages
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP notifier when cfg has a host, and a LogNotifier otherwise
func New(cfg *config.SMTPConfig, logger *zap.Logger) Notifier {
	if cfg.Enabled() {
		logger.Info("Using SMTP notifier",
			zap.String("host", cfg.Host),
			zap.Int("port", cfg.Port),
		)
		return NewSMTPNotifier(cfg, logger)
	}
	logger.Info("SMTP not configured, outgoing email will only be logged")
	return NewLogNotifier(logger)
}
