package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"

	appconfig "github.com/wolfman30/session-booking/internal/config"
	"github.com/wolfman30/session-booking/internal/events"
	"github.com/wolfman30/session-booking/internal/inbound"
	"github.com/wolfman30/session-booking/internal/messaging"
	"github.com/wolfman30/session-booking/internal/notify"
	"github.com/wolfman30/session-booking/pkg/logging"
)

// memoryDedupeTTL bounds how long the in-process deduper remembers ids.
const memoryDedupeTTL = 24 * time.Hour

// BuildSender returns the outbound WhatsApp sender and the provider name used
// in logs. Only WHATSAPP_DRY_RUN yields the logging sender; missing
// credentials yield a Green API sender whose sends fail with a GatewayError,
// so nothing is recorded as delivered.
func BuildSender(cfg *appconfig.Config, logger *logging.Logger) (messaging.Sender, string) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		cfg = &appconfig.Config{}
	}
	if cfg.WhatsAppDryRun {
		return messaging.NewLogSender(cfg.PhoneCountryCode, logger), "log"
	}
	if !cfg.GreenAPIConfigured() {
		logger.Warn("green api credentials missing, outbound messages will fail until configured")
	}
	return messaging.NewGreenAPISender(messaging.GreenAPIConfig{
		BaseURL:     cfg.GreenAPIURL,
		InstanceID:  cfg.GreenAPIInstanceID,
		Token:       cfg.GreenAPIToken,
		CountryCode: cfg.PhoneCountryCode,
		MaxAttempts: cfg.GreenAPIMaxAttempts,
	}, logger), "green-api"
}

// BuildEmailSender selects the confirmation e-mail transport. awsCfg is only
// consulted for the ses provider.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return notify.NewStubEmailSender(logger)
	}
	switch cfg.EmailProvider {
	case "sendgrid":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
			ReplyTo:   cfg.EmailReplyTo,
		}, logger); sender != nil {
			return sender
		}
		logger.Warn("SENDGRID_API_KEY missing, e-mail confirmations disabled")
	case "ses":
		if awsCfg != nil {
			return notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
				FromEmail:        cfg.EmailFromAddress,
				FromName:         cfg.EmailFromName,
				ReplyTo:          cfg.EmailReplyTo,
				ConfigurationSet: cfg.SESConfigSet,
			}, logger)
		}
		logger.Warn("aws config unavailable, e-mail confirmations disabled")
	}
	return notify.NewStubEmailSender(logger)
}

// BuildDeduper picks the processed-event store named by EVENTS_BACKEND.
func BuildDeduper(cfg *appconfig.Config, pool *pgxpool.Pool, awsCfg *aws.Config, logger *logging.Logger) (events.Deduper, error) {
	if logger == nil {
		logger = logging.Default()
	}
	backend := "memory"
	if cfg != nil {
		backend = cfg.EventsBackend
	}
	switch backend {
	case "postgres":
		if pool != nil {
			return events.NewProcessedStore(pool), nil
		}
		logger.Warn("postgres unavailable, processed events kept in memory")
	case "dynamodb":
		if awsCfg == nil {
			return nil, errors.New("bootstrap: dynamodb events backend requires aws config")
		}
		return events.NewDynamoStore(dynamodb.NewFromConfig(*awsCfg), cfg.EventsTable), nil
	case "memory", "":
	default:
		return nil, fmt.Errorf("bootstrap: unknown events backend %q", backend)
	}
	return events.NewMemoryStore(memoryDedupeTTL), nil
}

// BuildInboundQueue returns the queue that decouples webhook acknowledgement
// from command handling, or nil when messages are handled inline.
func BuildInboundQueue(cfg *appconfig.Config, awsCfg *aws.Config) (inbound.Queue, error) {
	if cfg == nil {
		return nil, nil
	}
	if cfg.UseMemoryQueue {
		return inbound.NewMemoryQueue(256), nil
	}
	if cfg.InboundQueueURL == "" {
		return nil, nil
	}
	if awsCfg == nil {
		return nil, errors.New("bootstrap: sqs queue requires aws config")
	}
	return inbound.NewSQSQueue(sqs.NewFromConfig(*awsCfg), cfg.InboundQueueURL), nil
}

// NeedsAWS reports whether any configured component talks to AWS.
func NeedsAWS(cfg *appconfig.Config) bool {
	if cfg == nil {
		return false
	}
	return cfg.EventsBackend == "dynamodb" ||
		cfg.EmailProvider == "ses" ||
		(!cfg.UseMemoryQueue && cfg.InboundQueueURL != "")
}
