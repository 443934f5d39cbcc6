package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wolfman30/session-booking/pkg/logging"
)

const defaultFromName = "Запись на сеанс"

// EmailSender delivers e-mail. SendGrid, SES and the stub implement it.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is one outbound e-mail. Tag labels the message kind in the
// provider's analytics (SendGrid category, SES message tag).
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string
	HTML    string
	Tag     string
}

// MaskAddress keeps the first letter of the local part and the domain so
// logs can be correlated without storing client addresses.
func MaskAddress(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at <= 0 {
		return "***"
	}
	return addr[:1] + "***" + addr[at:]
}

// SendGridSender sends e-mail through the SendGrid v3 API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	replyTo   string
	logger    *logging.Logger
}

type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	ReplyTo   string
}

// NewSendGridSender returns nil when no API key is configured.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		replyTo:   cfg.ReplyTo,
		logger:    logger,
	}
}

// buildMessage assembles the v3 payload; split out so tests need no network.
func (s *SendGridSender) buildMessage(msg EmailMessage) *mail.SGMailV3 {
	html := msg.HTML
	if html == "" {
		html = msg.Body
	}
	message := mail.NewSingleEmail(
		mail.NewEmail(s.fromName, s.fromEmail),
		msg.Subject,
		mail.NewEmail(msg.ToName, msg.To),
		msg.Body,
		html,
	)
	if s.replyTo != "" {
		message.SetReplyTo(mail.NewEmail(s.fromName, s.replyTo))
	}
	if msg.Tag != "" {
		message.AddCategories(msg.Tag)
	}
	return message
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}

	response, err := s.client.SendWithContext(ctx, s.buildMessage(msg))
	if err != nil {
		s.logger.Error("sendgrid send failed", "error", err, "to", MaskAddress(msg.To), "tag", msg.Tag)
		return fmt.Errorf("notify: sendgrid send: %w", err)
	}
	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid rejected message", "status", response.StatusCode, "body", response.Body, "to", MaskAddress(msg.To))
		return fmt.Errorf("notify: sendgrid returned status %d", response.StatusCode)
	}

	s.logger.Info("email sent", "provider", "sendgrid", "to", MaskAddress(msg.To), "tag", msg.Tag, "status", response.StatusCode)
	return nil
}

// StubEmailSender logs instead of sending. Used when EMAIL_PROVIDER=none.
type StubEmailSender struct {
	logger *logging.Logger
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	s.logger.Info("email sending disabled, message dropped", "to", MaskAddress(msg.To), "subject", msg.Subject, "tag", msg.Tag)
	return nil
}

var (
	_ EmailSender = (*SendGridSender)(nil)
	_ EmailSender = (*StubEmailSender)(nil)
)
