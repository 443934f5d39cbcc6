// Package reminders sends the 24-hour and 3-hour booking reminders.
//
// A sweep may run at any cadence shorter than the four-hour window width.
// Each window flag is set only after the gateway accepted the message, and
// only if it was still false, so a booking receives each reminder once.
package reminders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/session-booking/internal/audit"
	"github.com/wolfman30/session-booking/internal/booking"
	"github.com/wolfman30/session-booking/internal/messaging"
	"github.com/wolfman30/session-booking/internal/messaging/templates"
	"github.com/wolfman30/session-booking/internal/observability/metrics"
	"github.com/wolfman30/session-booking/internal/schedule"
	"github.com/wolfman30/session-booking/pkg/logging"
)

var remindersTracer = otel.Tracer("booking.internal.reminders")

// ErrMessagingDisabled is returned when the schedule has WhatsApp turned off.
var ErrMessagingDisabled = errors.New("reminders: whatsapp messaging is disabled")

// Result summarises one sweep.
type Result struct {
	Scanned int `json:"scanned"`
	Sent24h int `json:"sent24h"`
	Sent3h  int `json:"sent3h"`
	Errors  int `json:"errors"`
}

// Sent is the total number of reminders delivered.
func (r Result) Sent() int { return r.Sent24h + r.Sent3h }

type window struct {
	id       booking.ReminderWindow
	label    string
	min, max float64
}

// windows are [min, max] hours before the booking, inclusive.
var windows = []window{
	{id: booking.Window24h, label: templates.HoursBefore24, min: 22, max: 26},
	{id: booking.Window3h, label: templates.HoursBefore3, min: 2, max: 4},
}

// Scheduler scans upcoming bookings and dispatches due reminders.
type Scheduler struct {
	repo        booking.Repository
	settings    schedule.Store
	sender      messaging.Sender
	engine      *templates.Engine
	loc         *time.Location
	concurrency int
	sendTimeout time.Duration
	auditor     booking.Auditor
	metrics     *metrics.BookingMetrics
	logger      *logging.Logger
}

// NewScheduler creates a scheduler resolving booking times in loc.
func NewScheduler(repo booking.Repository, settings schedule.Store, sender messaging.Sender, loc *time.Location, logger *logging.Logger) *Scheduler {
	if repo == nil || settings == nil || sender == nil {
		panic("reminders: repository, settings and sender required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{
		repo:        repo,
		settings:    settings,
		sender:      sender,
		engine:      templates.NewEngine(),
		loc:         loc,
		concurrency: 4,
		sendTimeout: 20 * time.Second,
		logger:      logger,
	}
}

func (s *Scheduler) WithConcurrency(n int) *Scheduler {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

func (s *Scheduler) WithSendTimeout(d time.Duration) *Scheduler {
	if d > 0 {
		s.sendTimeout = d
	}
	return s
}

func (s *Scheduler) WithEngine(e *templates.Engine) *Scheduler {
	if e != nil {
		s.engine = e
	}
	return s
}

func (s *Scheduler) WithAuditor(a booking.Auditor) *Scheduler {
	s.auditor = a
	return s
}

func (s *Scheduler) WithMetrics(m *metrics.BookingMetrics) *Scheduler {
	s.metrics = m
	return s
}

// Sweep checks every active booking at or after now and sends the reminders
// whose window contains the booking. A failed send leaves its flag unset for
// the next sweep and is counted in Result.Errors; only loading the schedule
// or the bookings fails the sweep itself.
func (s *Scheduler) Sweep(ctx context.Context, now time.Time) (Result, error) {
	started := time.Now()
	ctx, span := remindersTracer.Start(ctx, "reminders.sweep")
	defer span.End()
	defer func() { s.metrics.ObserveSweep(time.Since(started).Seconds()) }()

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		span.RecordError(err)
		return Result{}, fmt.Errorf("reminders: load schedule: %w", err)
	}
	if !cfg.WhatsAppEnabled {
		return Result{}, ErrMessagingDisabled
	}

	list, err := s.repo.List(ctx, booking.Filter{
		Statuses: booking.ActiveStatuses(),
		From:     schedule.Today(now, s.loc),
	})
	if err != nil {
		span.RecordError(err)
		return Result{}, fmt.Errorf("reminders: list bookings: %w", err)
	}
	upcoming := booking.Upcoming(list, now, s.loc)

	var (
		mu  sync.Mutex
		res = Result{Scanned: len(upcoming)}
		g   errgroup.Group
	)
	g.SetLimit(s.concurrency)
	for _, b := range upcoming {
		g.Go(func() error {
			out := s.process(ctx, cfg, b, now)
			mu.Lock()
			res.Sent24h += out.Sent24h
			res.Sent3h += out.Sent3h
			res.Errors += out.Errors
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	span.SetAttributes(
		attribute.Int("reminders.scanned", res.Scanned),
		attribute.Int("reminders.sent", res.Sent()),
		attribute.Int("reminders.errors", res.Errors),
	)
	s.logger.Info("reminder sweep finished",
		"scanned", res.Scanned,
		"sent_24h", res.Sent24h,
		"sent_3h", res.Sent3h,
		"errors", res.Errors,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return res, nil
}

func (s *Scheduler) process(ctx context.Context, cfg *schedule.Config, b booking.Scheduled, now time.Time) Result {
	var out Result
	hoursUntil := b.At.Sub(now).Hours()
	for _, w := range windows {
		if b.ReminderSent(w.id) || hoursUntil < w.min || hoursUntil > w.max {
			continue
		}
		sent, err := s.dispatch(ctx, cfg, &b.Booking, w, hoursUntil)
		switch {
		case err != nil:
			out.Errors++
		case sent && w.id == booking.Window24h:
			out.Sent24h++
		case sent:
			out.Sent3h++
		}
	}
	return out
}

// dispatch sends one reminder and then sets its flag. sent is false when a
// concurrent sweep set the flag first or the booking was cancelled meanwhile.
func (s *Scheduler) dispatch(ctx context.Context, cfg *schedule.Config, b *booking.Booking, w window, hoursUntil float64) (bool, error) {
	logger := s.logger.With("booking_id", b.ID, "window", string(w.id), "hours_until", hoursUntil)

	body, err := s.engine.Render(templates.KindReminder, cfg.ReminderTemplate, b.MessageContext(cfg, w.label))
	if err != nil {
		logger.Error("failed to render reminder", "error", err)
		return false, err
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	err = s.sender.Send(sendCtx, b.Phone, body)
	cancel()
	if err != nil {
		s.metrics.ObserveReminder(string(w.id), "failed")
		logger.Warn("reminder send failed, will retry on next sweep", "error", err)
		return false, err
	}

	set, err := s.repo.MarkReminderSent(ctx, b.ID, w.id)
	if err != nil {
		s.metrics.ObserveReminder(string(w.id), "unpersisted")
		logger.Error("reminder sent but flag not saved", "error", err)
		return false, err
	}
	if !set {
		s.metrics.ObserveReminder(string(w.id), "skipped")
		logger.Warn("reminder flag not set, already sent by a concurrent sweep or booking cancelled")
		return false, nil
	}

	s.metrics.ObserveReminder(string(w.id), "sent")
	logger.Info("reminder sent")
	if s.auditor != nil {
		if err := s.auditor.Record(ctx, audit.Event{
			Action:    audit.ActionReminderSent,
			SubjectID: b.ID,
			Actor:     booking.ActorSystem,
			Fields:    []string{"reminder_" + string(w.id) + "_sent"},
		}); err != nil {
			logger.Warn("audit record failed", "error", err)
		}
	}
	return true, nil
}
