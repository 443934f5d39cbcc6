package router

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/session-booking/internal/booking"
	"github.com/wolfman30/session-booking/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/session-booking/internal/http/middleware"
	"github.com/wolfman30/session-booking/internal/reminders"
	"github.com/wolfman30/session-booking/internal/schedule"
	"github.com/wolfman30/session-booking/pkg/logging"
)

// ReadinessCheck reports whether one dependency is reachable.
type ReadinessCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger          *logging.Logger
	SettingsHandler *schedule.Handler
	BookingHandler  *booking.Handler
	ReminderHandler *reminders.Handler
	WhatsAppWebhook *handlers.WhatsAppWebhookHandler
	WhatsAppTest    *handlers.WhatsAppTestHandler
	MetricsHandler  http.Handler

	CronSecret         string
	RateLimitRPS       float64
	RateLimitBurst     int
	CORSAllowedOrigins []string

	// ReadinessChecks back GET /ready, keyed by dependency name.
	ReadinessChecks map[string]ReadinessCheck
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ready", readyHandler(cfg.ReadinessChecks))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	limited := func(next http.Handler) http.Handler { return next }
	if cfg.RateLimitRPS > 0 {
		limited = httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.SettingsHandler != nil {
			api.Mount("/settings", cfg.SettingsHandler.Routes())
		}
		if cfg.BookingHandler != nil {
			api.With(limited).Mount("/bookings", cfg.BookingHandler.BookingRoutes())
			api.With(limited).Get("/availability", cfg.BookingHandler.Availability)
			api.Mount("/blocked-dates", cfg.BookingHandler.BlockedDateRoutes())
		}
		if cfg.ReminderHandler != nil {
			api.With(httpmiddleware.CronSecret(cfg.CronSecret)).Post("/reminders/send", cfg.ReminderHandler.Send)
		}
		api.Route("/whatsapp", func(wa chi.Router) {
			if cfg.WhatsAppWebhook != nil {
				wa.Get("/webhook", cfg.WhatsAppWebhook.Status)
				wa.With(limited).Post("/webhook", cfg.WhatsAppWebhook.Receive)
			}
			if cfg.WhatsAppTest != nil {
				wa.Post("/test", cfg.WhatsAppTest.Send)
			}
		})
	})

	return r
}

func readyHandler(checks map[string]ReadinessCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(names))
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		body := map[string]any{"status": "ok", "checks": results}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		writeJSON(w, status, body)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
