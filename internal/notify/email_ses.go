package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/wolfman30/session-booking/pkg/logging"
)

// sesAPI is the subset of the SES v2 client used here.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender sends e-mail through Amazon SES v2.
type SESSender struct {
	client           sesAPI
	fromEmail        string
	fromName         string
	replyTo          string
	configurationSet string
	logger           *logging.Logger
}

// SESConfig holds the sender identity. ConfigurationSet is optional and
// routes delivery events to whatever the SES configuration set publishes to.
type SESConfig struct {
	FromEmail        string
	FromName         string
	ReplyTo          string
	ConfigurationSet string
}

// NewSESSender returns nil when client is nil.
func NewSESSender(client *sesv2.Client, cfg SESConfig, logger *logging.Logger) *SESSender {
	if client == nil {
		return nil
	}
	return newSESSender(client, cfg, logger)
}

func newSESSender(client sesAPI, cfg SESConfig, logger *logging.Logger) *SESSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}
	return &SESSender{
		client:           client,
		fromEmail:        cfg.FromEmail,
		fromName:         cfg.FromName,
		replyTo:          cfg.ReplyTo,
		configurationSet: cfg.ConfigurationSet,
		logger:           logger,
	}
}

func (s *SESSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return fmt.Errorf("notify: SES client not configured")
	}

	output, err := s.client.SendEmail(ctx, s.buildInput(msg))
	if err != nil {
		s.logger.Error("SES send failed", "error", err, "to", MaskAddress(msg.To), "tag", msg.Tag)
		return fmt.Errorf("notify: SES send: %w", err)
	}

	s.logger.Info("email sent", "provider", "ses", "to", MaskAddress(msg.To), "tag", msg.Tag,
		"message_id", aws.ToString(output.MessageId))
	return nil
}

func utf8Content(v string) *types.Content {
	return &types.Content{Data: aws.String(v), Charset: aws.String("UTF-8")}
}

func (s *SESSender) buildInput(msg EmailMessage) *sesv2.SendEmailInput {
	body := &types.Body{}
	if msg.Body != "" {
		body.Text = utf8Content(msg.Body)
	}
	if msg.HTML != "" {
		body.Html = utf8Content(msg.HTML)
	}
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{Subject: utf8Content(msg.Subject), Body: body},
		},
	}
	if s.replyTo != "" {
		input.ReplyToAddresses = []string{s.replyTo}
	}
	if s.configurationSet != "" {
		input.ConfigurationSetName = aws.String(s.configurationSet)
	}
	if msg.Tag != "" {
		input.EmailTags = []types.MessageTag{{Name: aws.String("kind"), Value: aws.String(msg.Tag)}}
	}
	return input
}

var _ EmailSender = (*SESSender)(nil)
