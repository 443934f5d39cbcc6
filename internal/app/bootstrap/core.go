package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/session-booking/internal/audit"
	"github.com/wolfman30/session-booking/internal/booking"
	"github.com/wolfman30/session-booking/internal/commands"
	appconfig "github.com/wolfman30/session-booking/internal/config"
	"github.com/wolfman30/session-booking/internal/events"
	"github.com/wolfman30/session-booking/internal/inbound"
	"github.com/wolfman30/session-booking/internal/messaging"
	"github.com/wolfman30/session-booking/internal/messaging/templates"
	"github.com/wolfman30/session-booking/internal/notify"
	"github.com/wolfman30/session-booking/internal/observability/metrics"
	"github.com/wolfman30/session-booking/internal/reminders"
	"github.com/wolfman30/session-booking/internal/schedule"
	"github.com/wolfman30/session-booking/pkg/logging"
)

// Core is the dependency graph shared by the API server and the reminder
// lambda. Optional infrastructure fields are nil when not configured.
type Core struct {
	Config   *appconfig.Config
	Logger   *logging.Logger
	Location *time.Location

	Redis   *redis.Client
	Pool    *pgxpool.Pool
	AuditDB *sql.DB

	Settings  schedule.Store
	Checker   *schedule.Checker
	Sender    messaging.Sender
	Provider  string
	Metrics   *metrics.BookingMetrics
	Bookings  *booking.Service
	Repo      booking.Repository
	Scheduler *reminders.Scheduler
	Processor *commands.Processor
	Deduper   events.Deduper
	Queue     inbound.Queue
}

// CoreOptions carries inputs the caller owns.
type CoreOptions struct {
	// Registerer receives the booking metrics. nil uses the default registry.
	Registerer prometheus.Registerer
	// AWS is required only for SES, SQS or DynamoDB backends.
	AWS *aws.Config
	// VerifyRedis pings Redis and falls back to memory settings on failure.
	VerifyRedis bool
}

// NewCore connects infrastructure and assembles the booking services.
func NewCore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, opts CoreOptions) (*Core, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	c := &Core{
		Config:   cfg,
		Logger:   logger,
		Location: LoadLocation(cfg.Timezone, logger),
	}

	c.Redis = BuildRedisClient(ctx, cfg, logger, opts.VerifyRedis)
	c.Settings = BuildSettingsStore(c.Redis, logger)

	pool, err := ConnectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Pool = pool

	auditDB, err := OpenAuditDB(cfg.DatabaseURL)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.AuditDB = auditDB

	var blocked booking.BlockedDateStore
	if c.Pool != nil {
		c.Repo = booking.NewPostgresRepository(c.Pool)
		blocked = booking.NewPostgresBlockedDates(c.Pool)
	} else {
		logger.Warn("DATABASE_URL not set, bookings kept in memory")
		c.Repo = booking.NewMemoryRepository()
		blocked = booking.NewMemoryBlockedDates()
	}

	c.Metrics = metrics.NewBookingMetrics(opts.Registerer)
	c.Sender, c.Provider = BuildSender(cfg, logger)
	engine := templates.NewEngine()

	c.Checker = schedule.NewChecker(c.Location)
	notifier := notify.NewNotifier(c.Sender, BuildEmailSender(cfg, opts.AWS, logger), engine, logger).
		WithMetrics(c.Metrics)
	c.Bookings = booking.NewService(c.Repo, blocked, c.Settings, c.Checker, logger).
		WithNotifier(notifier).
		WithMetrics(c.Metrics).
		WithCountryCode(cfg.PhoneCountryCode)

	c.Scheduler = reminders.NewScheduler(c.Repo, c.Settings, c.Sender, c.Location, logger).
		WithConcurrency(cfg.ReminderConcurrency).
		WithSendTimeout(cfg.ReminderSendTimeout).
		WithEngine(engine).
		WithMetrics(c.Metrics)

	if c.AuditDB != nil {
		auditLog := audit.NewLog(c.AuditDB)
		c.Bookings.WithAuditor(auditLog)
		c.Scheduler.WithAuditor(auditLog)
	}

	c.Processor = commands.NewProcessor(c.Bookings, c.Settings, c.Sender,
		commands.NewClassifier(commands.ParseMatchMode(cfg.CancelMatchMode)), c.Location, logger).
		WithCountryCode(cfg.PhoneCountryCode).
		WithMetrics(c.Metrics)

	c.Deduper, err = BuildDeduper(cfg, c.Pool, opts.AWS, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Queue, err = BuildInboundQueue(cfg, opts.AWS)
	if err != nil {
		c.Close()
		return nil, err
	}

	logger.Info("core initialized",
		"timezone", c.Location.String(),
		"whatsapp_provider", c.Provider,
		"postgres", c.Pool != nil,
		"redis", c.Redis != nil,
		"inbound_queue", c.Queue != nil,
		"cancel_match_mode", string(commands.ParseMatchMode(cfg.CancelMatchMode)),
	)
	return c, nil
}

// Close releases connections. Safe on a partially built Core.
func (c *Core) Close() {
	if c == nil {
		return
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
	if c.AuditDB != nil {
		_ = c.AuditDB.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
