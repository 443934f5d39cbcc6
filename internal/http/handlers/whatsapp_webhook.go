package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/wolfman30/session-booking/internal/commands"
	"github.com/wolfman30/session-booking/internal/events"
	"github.com/wolfman30/session-booking/internal/messaging"
	observemetrics "github.com/wolfman30/session-booking/internal/observability/metrics"
	"github.com/wolfman30/session-booking/pkg/logging"
)

const (
	maxWebhookBody      = 1 << 20
	directHandleTimeout = 30 * time.Second
)

// MessageHandler applies an inbound message synchronously.
type MessageHandler interface {
	Handle(ctx context.Context, msg messaging.InboundMessage) (commands.Result, error)
}

// InboundPublisher hands an inbound message to the background worker.
type InboundPublisher interface {
	Enqueue(ctx context.Context, msg messaging.InboundMessage) error
}

type processedTracker interface {
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}

// WhatsAppWebhookHandler receives Green API notifications. It always answers
// 200 so the gateway never redelivers; failures are only logged.
type WhatsAppWebhookHandler struct {
	processed processedTracker
	publisher InboundPublisher
	handler   MessageHandler
	metrics   *observemetrics.BookingMetrics
	logger    *logging.Logger
}

type WhatsAppWebhookConfig struct {
	Processed processedTracker
	// Publisher, when set, queues messages instead of handling them inline.
	Publisher InboundPublisher
	Handler   MessageHandler
	Metrics   *observemetrics.BookingMetrics
	Logger    *logging.Logger
}

func NewWhatsAppWebhookHandler(cfg WhatsAppWebhookConfig) *WhatsAppWebhookHandler {
	if cfg.Handler == nil && cfg.Publisher == nil {
		panic("handlers: webhook needs a handler or a publisher")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &WhatsAppWebhookHandler{
		processed: cfg.Processed,
		publisher: cfg.Publisher,
		handler:   cfg.Handler,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
}

// Status GET /api/whatsapp/webhook
func (h *WhatsAppWebhookHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Webhook is active"})
}

// Receive POST /api/whatsapp/webhook
func (h *WhatsAppWebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	eventType := "unknown"
	defer func() {
		h.metrics.ObserveWebhookLatency(eventType, time.Since(start).Seconds())
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	}()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Warn("failed to read webhook body", "error", err)
		h.metrics.ObserveInbound(eventType, "read_error")
		return
	}

	msg, err := messaging.ParseWebhook(body)
	if msg.Type != "" {
		eventType = msg.Type
	}
	switch {
	case errors.Is(err, messaging.ErrIgnoredWebhook):
		h.metrics.ObserveInbound(eventType, "ignored")
		return
	case errors.Is(err, messaging.ErrNoText), errors.Is(err, messaging.ErrNoSender):
		h.logger.Debug("webhook without actionable text", "message_id", msg.ID, "reason", err.Error())
		h.metrics.ObserveInbound(eventType, "no_text")
		return
	case err != nil:
		h.logger.Warn("invalid webhook payload", "error", err)
		h.metrics.ObserveInbound(eventType, "invalid")
		return
	}

	logger := h.logger.With("message_id", msg.ID, "shape", msg.Shape)
	if h.processed != nil && msg.ID != "" {
		first, err := h.processed.MarkProcessed(r.Context(), events.ProviderGreenAPI, msg.ID)
		if err != nil {
			logger.Error("failed to record webhook id, handling anyway", "error", err)
		} else if !first {
			logger.Info("duplicate webhook ignored")
			h.metrics.ObserveInbound(eventType, "duplicate")
			return
		}
	}

	if h.publisher != nil {
		err := h.publisher.Enqueue(r.Context(), msg)
		if err == nil {
			h.metrics.ObserveInbound(eventType, "queued")
			return
		}
		if h.handler == nil {
			logger.Error("failed to enqueue inbound message", "error", err)
			h.metrics.ObserveInbound(eventType, "enqueue_error")
			return
		}
		logger.Warn("enqueue failed, handling inline", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), directHandleTimeout)
	defer cancel()
	res, err := h.handler.Handle(ctx, msg)
	if err != nil {
		logger.Error("inbound message handling failed", "error", err)
		h.metrics.ObserveInbound(eventType, "error")
		return
	}
	logger.Info("inbound message handled", "outcome", string(res.Outcome))
	h.metrics.ObserveInbound(eventType, "handled")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
