package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier writes messages to the log instead of sending them
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send implements Notifier
func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	fields := []zap.Field{
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("text_length", len(msg.Text)),
		zap.Bool("html", msg.HTML != ""),
	}
	if msg.Attachment != nil {
		fields = append(fields,
			zap.String("attachment", msg.Attachment.Filename),
			zap.Int("attachment_size", len(msg.Attachment.Data)),
		)
	}
	n.logger.Info("email not sent (no SMTP relay configured)", fields...)
	return nil
}
