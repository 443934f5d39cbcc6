package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/session-booking/internal/booking"
	"github.com/wolfman30/session-booking/internal/commands"
	"github.com/wolfman30/session-booking/internal/events"
	"github.com/wolfman30/session-booking/internal/http/handlers"
	"github.com/wolfman30/session-booking/internal/reminders"
	"github.com/wolfman30/session-booking/internal/schedule"
	"github.com/wolfman30/session-booking/pkg/logging"
)

// Monday 2025-03-10 08:00 UTC.
var fixedNow = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

type captureSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *captureSender) Send(ctx context.Context, to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, body)
	return nil
}

func (s *captureSender) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return ""
	}
	return s.sent[len(s.sent)-1]
}

type testEnv struct {
	router http.Handler
	repo   *booking.MemoryRepository
	sender *captureSender
}

func newTestEnv(t *testing.T, checks map[string]ReadinessCheck) *testEnv {
	t.Helper()
	logger := logging.Default()

	cfg := schedule.DefaultConfig()
	cfg.WhatsAppEnabled = true
	settings := schedule.NewMemoryStore(cfg)
	repo := booking.NewMemoryRepository()
	sender := &captureSender{}
	clock := func() time.Time { return fixedNow }

	checker := schedule.NewChecker(time.UTC).WithClock(clock)
	svc := booking.NewService(repo, booking.NewMemoryBlockedDates(), settings, checker, logger)
	scheduler := reminders.NewScheduler(repo, settings, sender, time.UTC, logger)
	processor := commands.NewProcessor(svc, settings, sender, commands.NewClassifier(commands.MatchExact), time.UTC, logger).
		WithClock(clock)

	r := New(&Config{
		Logger:          logger,
		SettingsHandler: schedule.NewHandler(settings, logger),
		BookingHandler:  booking.NewHandler(svc, logger),
		ReminderHandler: reminders.NewHandler(scheduler, logger),
		WhatsAppWebhook: handlers.NewWhatsAppWebhookHandler(handlers.WhatsAppWebhookConfig{
			Processed: events.NewMemoryStore(time.Hour),
			Handler:   processor,
			Logger:    logger,
		}),
		WhatsAppTest:    handlers.NewWhatsAppTestHandler(sender, settings, logger),
		MetricsHandler:  http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("# metrics\n")) }),
		CronSecret:      "cron-secret",
		ReadinessChecks: checks,
	})
	return &testEnv{router: r, repo: repo, sender: sender}
}

func (e *testEnv) do(t *testing.T, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestRouterHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])

	rec = env.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# metrics")
}

func TestRouterReadiness(t *testing.T) {
	env := newTestEnv(t, map[string]ReadinessCheck{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("dial tcp: connection refused") },
	})
	rec := env.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "ok", resp.Checks["postgres"])
	assert.Contains(t, resp.Checks["redis"], "connection refused")
}

func TestRouterBookingLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/availability?date=2025-03-12", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var avail struct {
		Date  string   `json:"date"`
		Slots []string `json:"slots"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&avail))
	assert.Len(t, avail.Slots, 20)

	create := `{"client_name":"Анна Иванова","phone":"+7 (701) 777-77-77","date":"2025-03-12","time":"10:30"}`
	rec = env.do(t, http.MethodPost, "/api/bookings", create)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created booking.Booking
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, booking.StatusPending, created.Status)

	rec = env.do(t, http.MethodPost, "/api/bookings", create)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/availability?date=2025-03-12", "")
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&avail))
	assert.Len(t, avail.Slots, 19)
	assert.NotContains(t, avail.Slots, "10:30")

	rec = env.do(t, http.MethodGet, "/api/bookings?phone=87017777777", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), created.ID.String())

	// Cancel by chat reply.
	webhook := `{"typeWebhook":"incomingMessageReceived","idMessage":"BAE5","senderData":{"sender":"77017777777@c.us"},"messageData":{"typeMessage":"textMessage","textMessageData":{"textMessage":"2"}}}`
	rec = env.do(t, http.MethodPost, "/api/whatsapp/webhook", webhook)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())

	got, err := env.repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, got.Status)
	assert.Contains(t, env.sender.last(), "Запись отменена")

	rec = env.do(t, http.MethodPatch, "/api/bookings/"+created.ID.String(), `{"status":"confirmed"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/bookings/"+created.ID.String(), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/bookings/"+created.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterReminderSendRequiresSecret(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/reminders/send", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/reminders/send", "", "Authorization", "Bearer cron-secret")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, true, resp["success"])
	assert.Contains(t, resp, "sent24h")
}

func TestRouterSettingsAndWebhookStatus(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"work_start":"09:00"`))

	rec = env.do(t, http.MethodGet, "/api/whatsapp/webhook", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","message":"Webhook is active"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/blocked-dates", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
