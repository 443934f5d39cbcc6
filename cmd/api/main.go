package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/session-booking/cmd/mainconfig"
	"github.com/wolfman30/session-booking/internal/api/router"
	"github.com/wolfman30/session-booking/internal/app/bootstrap"
	"github.com/wolfman30/session-booking/internal/booking"
	appconfig "github.com/wolfman30/session-booking/internal/config"
	"github.com/wolfman30/session-booking/internal/http/handlers"
	"github.com/wolfman30/session-booking/internal/inbound"
	"github.com/wolfman30/session-booking/internal/reminders"
	"github.com/wolfman30/session-booking/internal/schedule"
	"github.com/wolfman30/session-booking/pkg/logging"
)

func main() {
	cfg := appconfig.Load()

	logger := logging.NewWithFile(cfg.LogLevel, logging.FileOptions{
		Path:       cfg.LogFile,
		MaxSizeMB:  cfg.LogFileMaxMB,
		MaxBackups: cfg.LogFileMaxBackups,
		MaxAgeDays: cfg.LogFileMaxAgeDays,
		Compress:   true,
	})
	logger.Info("starting session-booking API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var awsCfg *aws.Config
	if bootstrap.NeedsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		awsCfg = &loaded
	}

	registry, metricsHandler := setupMetrics()
	core, err := bootstrap.NewCore(ctx, cfg, logger, bootstrap.CoreOptions{
		Registerer:  registry,
		AWS:         awsCfg,
		VerifyRedis: true,
	})
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer core.Close()

	workers := startWorkers(ctx, cfg, core, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      buildRouter(cfg, core, metricsHandler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	workers.Wait()

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics creates a private registry with the Go runtime collectors
// and the handler that serves it.
func setupMetrics() (*prometheus.Registry, http.Handler) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func buildRouter(cfg *appconfig.Config, core *bootstrap.Core, metricsHandler http.Handler) http.Handler {
	logger := core.Logger

	webhookCfg := handlers.WhatsAppWebhookConfig{
		Processed: core.Deduper,
		Handler:   core.Processor,
		Metrics:   core.Metrics,
		Logger:    logger,
	}
	if core.Queue != nil {
		webhookCfg.Publisher = inbound.NewPublisher(core.Queue)
	}

	return router.New(&router.Config{
		Logger:             logger,
		SettingsHandler:    schedule.NewHandler(core.Settings, logger),
		BookingHandler:     booking.NewHandler(core.Bookings, logger),
		ReminderHandler:    reminders.NewHandler(core.Scheduler, logger),
		WhatsAppWebhook:    handlers.NewWhatsAppWebhookHandler(webhookCfg),
		WhatsAppTest:       handlers.NewWhatsAppTestHandler(core.Sender, core.Settings, logger),
		MetricsHandler:     metricsHandler,
		CronSecret:         cfg.CronSecret,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ReadinessChecks:    readinessChecks(core),
	})
}

func readinessChecks(core *bootstrap.Core) map[string]router.ReadinessCheck {
	checks := map[string]router.ReadinessCheck{}
	if core.Pool != nil {
		checks["postgres"] = func(ctx context.Context) error { return core.Pool.Ping(ctx) }
	}
	if core.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return core.Redis.Ping(ctx).Err() }
	}
	if core.AuditDB != nil {
		checks["audit"] = func(ctx context.Context) error { return core.AuditDB.PingContext(ctx) }
	}
	return checks
}

// startWorkers launches the reminder ticker and the inbound queue consumers.
// The returned group finishes once ctx is cancelled and both have drained.
func startWorkers(ctx context.Context, cfg *appconfig.Config, core *bootstrap.Core, logger *logging.Logger) *sync.WaitGroup {
	var wg sync.WaitGroup

	if cfg.ReminderWorkerEnabled {
		worker := reminders.NewWorker(core.Scheduler, logger).WithInterval(cfg.ReminderSweepInterval)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(ctx)
		}()
	}

	if core.Queue != nil {
		consumer := inbound.NewWorker(core.Queue, core.Processor, logger,
			inbound.WithWorkerCount(cfg.InboundWorkers),
		)
		consumer.Start(ctx)
		wg.Add(1)
		go func() {
			defer wg.Done()
			consumer.Wait()
		}()
		logger.Info("inbound workers started", "count", cfg.InboundWorkers)
	}

	return &wg
}
