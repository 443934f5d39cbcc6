// Command reminder-lambda runs one reminder sweep per scheduled EventBridge
// invocation, for deployments without the in-process reminder worker.
package main

import (
	"context"
	"errors"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/wolfman30/session-booking/cmd/mainconfig"
	"github.com/wolfman30/session-booking/internal/app/bootstrap"
	appconfig "github.com/wolfman30/session-booking/internal/config"
	"github.com/wolfman30/session-booking/internal/reminders"
	"github.com/wolfman30/session-booking/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	ctx := context.Background()

	var awsCfg *aws.Config
	if bootstrap.NeedsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		awsCfg = &loaded
	}

	core, err := bootstrap.NewCore(ctx, cfg, logger, bootstrap.CoreOptions{AWS: awsCfg, VerifyRedis: true})
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	h := &handler{sweeper: core.Scheduler, now: time.Now, logger: logger}
	lambda.Start(h.handle)
}

type handler struct {
	sweeper reminders.Sweeper
	now     func() time.Time
	logger  *logging.Logger
}

// handle sweeps at the event's scheduled time when present. Disabled
// messaging is not an error: retrying would not help.
func (h *handler) handle(ctx context.Context, evt events.CloudWatchEvent) (reminders.Result, error) {
	at := evt.Time
	if at.IsZero() {
		at = h.now()
	}
	result, err := h.sweeper.Sweep(ctx, at)
	if errors.Is(err, reminders.ErrMessagingDisabled) {
		h.logger.Info("reminder sweep skipped, whatsapp disabled")
		return result, nil
	}
	if err != nil {
		h.logger.Error("reminder sweep failed", "error", err, "event_id", evt.ID)
		return result, err
	}
	h.logger.Info("reminder sweep complete",
		"event_id", evt.ID,
		"scanned", result.Scanned,
		"sent", result.Sent(),
		"errors", result.Errors,
	)
	return result, nil
}
