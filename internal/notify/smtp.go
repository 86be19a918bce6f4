package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/straye-as/offers-api/internal/config"
	"go.uber.org/zap"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier sends mail through an SMTP relay using STARTTLS when the
// server offers it
type SMTPNotifier struct {
	addr     string
	host     string
	username string
	password string
	from     mail.Address
	logger   *zap.Logger
	send     sendFunc
	now      func() time.Time
}

// NewSMTPNotifier creates an SMTPNotifier
func NewSMTPNotifier(cfg *config.SMTPConfig, logger *zap.Logger) *SMTPNotifier {
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	return &SMTPNotifier{
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		host:     cfg.Host,
		username: cfg.Username,
		password: cfg.Password,
		from:     mail.Address{Name: cfg.FromName, Address: cfg.From},
		logger:   logger,
		send:     smtp.SendMail,
		now:      time.Now,
	}
}

// Send implements Notifier. net/smtp has no context support, so ctx is
// only checked before dialing.
func (n *SMTPNotifier) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}

	body, err := buildMessage(n.from, *to, msg, n.now())
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}

	var auth smtp.Auth
	if n.username != "" {
		auth = smtp.PlainAuth("", n.username, n.password, n.host)
	}
	if err := n.send(n.addr, auth, n.from.Address, []string{to.Address}, body); err != nil {
		n.logger.Warn("smtp send failed",
			zap.String("to", to.Address),
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.Info("email sent",
		zap.String("to", to.Address),
		zap.String("subject", msg.Subject),
	)
	return nil
}

// buildMessage renders msg as multipart/mixed with a multipart/alternative
// body and an optional base64 attachment
func buildMessage(from, to mail.Address, msg Message, date time.Time) ([]byte, error) {
	var buf bytes.Buffer

	mixed := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("From", from.String())
	header.Set("To", to.String())
	header.Set("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header.Set("Date", date.Format(time.RFC1123Z))
	header.Set("MIME-Version", "1.0")
	header.Set("Content-Type", "multipart/mixed; boundary="+mixed.Boundary())
	writeHeader(&buf, header)

	var alt bytes.Buffer
	altWriter := multipart.NewWriter(&alt)
	if err := writeTextPart(altWriter, "text/plain; charset=utf-8", msg.Text); err != nil {
		return nil, err
	}
	if msg.HTML != "" {
		if err := writeTextPart(altWriter, "text/html; charset=utf-8", msg.HTML); err != nil {
			return nil, err
		}
	}
	if err := altWriter.Close(); err != nil {
		return nil, err
	}

	altPart, err := mixed.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"multipart/alternative; boundary=" + altWriter.Boundary()},
	})
	if err != nil {
		return nil, err
	}
	if _, err := altPart.Write(alt.Bytes()); err != nil {
		return nil, err
	}

	if a := msg.Attachment; a != nil {
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		part, err := mixed.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {contentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename})},
		})
		if err != nil {
			return nil, err
		}
		if err := writeBase64(part, a.Data); err != nil {
			return nil, err
		}
	}

	if err := mixed.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeHeader(buf *bytes.Buffer, header textproto.MIMEHeader) {
	for _, key := range []string{"From", "To", "Subject", "Date", "MIME-Version", "Content-Type"} {
		fmt.Fprintf(buf, "%s: %s\r\n", key, header.Get(key))
	}
	buf.WriteString("\r\n")
}

func writeTextPart(w *multipart.Writer, contentType, body string) error {
	part, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {contentType},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return err
	}
	return writeBase64(part, []byte(body))
}

// writeBase64 wraps encoded data at 76 characters per line
func writeBase64(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	var b strings.Builder
	for len(encoded) > 76 {
		b.WriteString(encoded[:76])
		b.WriteString("\r\n")
		encoded = encoded[76:]
	}
	b.WriteString(encoded)
	b.WriteString("\r\n")
	_, err := w.Write([]byte(b.String()))
	return err
}
