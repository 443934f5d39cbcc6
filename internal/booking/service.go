package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/session-booking/internal/audit"
	"github.com/wolfman30/session-booking/internal/messaging"
	"github.com/wolfman30/session-booking/internal/observability/metrics"
	"github.com/wolfman30/session-booking/internal/schedule"
	"github.com/wolfman30/session-booking/internal/validation"
	"github.com/wolfman30/session-booking/pkg/logging"
)

var bookingTracer = otel.Tracer("booking.internal.booking")

const notifyTimeout = 30 * time.Second

// Notifier is told about new bookings. Its errors are logged only.
type Notifier interface {
	BookingCreated(ctx context.Context, b *Booking, cfg *schedule.Config) error
}

// Auditor records lifecycle events.
type Auditor interface {
	Record(ctx context.Context, event audit.Event) error
}

// Service creates and manages bookings against the current schedule.
type Service struct {
	repo        Repository
	blocked     BlockedDateStore
	settings    schedule.Store
	checker     *schedule.Checker
	validator   *validation.Validator
	countryCode string
	notifier    Notifier
	auditor     Auditor
	metrics     *metrics.BookingMetrics
	logger      *logging.Logger
}

// NewService constructs a booking service.
func NewService(repo Repository, blocked BlockedDateStore, settings schedule.Store, checker *schedule.Checker, logger *logging.Logger) *Service {
	if repo == nil {
		panic("booking: repository required")
	}
	if blocked == nil {
		panic("booking: blocked date store required")
	}
	if settings == nil {
		panic("booking: settings store required")
	}
	if checker == nil {
		checker = schedule.NewChecker(time.UTC)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:        repo,
		blocked:     blocked,
		settings:    settings,
		checker:     checker,
		validator:   validation.New(),
		countryCode: messaging.DefaultCountryCode,
		logger:      logger,
	}
}

// WithNotifier sets the confirmation notifier.
func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

// WithAuditor sets the audit recorder.
func (s *Service) WithAuditor(a Auditor) *Service {
	s.auditor = a
	return s
}

// WithMetrics sets the metrics sink.
func (s *Service) WithMetrics(m *metrics.BookingMetrics) *Service {
	s.metrics = m
	return s
}

// WithCountryCode sets the prefix used for phone keys.
func (s *Service) WithCountryCode(cc string) *Service {
	if cc != "" {
		s.countryCode = cc
	}
	return s
}

// CreateRequest is the public booking form.
type CreateRequest struct {
	ClientName string `json:"client_name" validate:"required,max=200"`
	Phone      string `json:"phone" validate:"required,max=32"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	Date       string `json:"date" validate:"required,isodate"`
	Time       string `json:"time" validate:"required,clock"`
	Notes      string `json:"notes,omitempty" validate:"max=2000"`
	Status     Status `json:"status,omitempty" validate:"omitempty,oneof=pending confirmed"`
}

func (req *CreateRequest) normalize() {
	req.ClientName = strings.TrimSpace(req.ClientName)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = strings.TrimSpace(req.Email)
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)
	req.Notes = strings.TrimSpace(req.Notes)
}

// Create validates req, checks the slot against the schedule and commits the
// booking with the repository's conditional insert. Two concurrent requests
// for one slot yield one booking and one ErrConflict.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Booking, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.create")
	defer span.End()

	b, cfg, err := s.prepare(ctx, req)
	if err != nil {
		s.metrics.ObserveBookingCreate(resultLabel(err))
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("booking.date", b.Date.String()),
		attribute.String("booking.time", b.Time),
	)

	if err := s.repo.Create(ctx, b); err != nil {
		s.metrics.ObserveBookingCreate(resultLabel(err))
		span.RecordError(err)
		if !errors.Is(err, ErrConflict) {
			span.SetStatus(codes.Error, "booking insert failed")
		}
		return nil, err
	}
	s.metrics.ObserveBookingCreate("created")
	span.SetAttributes(attribute.String("booking.id", b.ID.String()))

	s.logger.Info("booking created",
		"booking_id", b.ID,
		"date", b.Date.String(),
		"time", b.Time,
		"status", b.Status,
		"phone_key", b.PhoneKey,
	)
	s.record(ctx, audit.Event{
		Action:    audit.ActionCreated,
		SubjectID: b.ID,
		Actor:     ActorClient,
		Fields:    []string{"client_name", "phone", "date", "time", "status"},
		Details:   audit.Details(map[string]string{"date": b.Date.String(), "time": b.Time}),
	})
	s.notifyCreated(ctx, b, cfg)
	return b, nil
}

func (s *Service) prepare(ctx context.Context, req CreateRequest) (*Booking, *schedule.Config, error) {
	req.normalize()
	if fields := s.validator.Struct(req); fields != nil {
		return nil, nil, &ValidationError{Message: validation.Format(fields), Fields: fields}
	}
	key := messaging.CanonicalKey(req.Phone, s.countryCode)
	if len(key) < 10 {
		return nil, nil, invalid("phone", "must contain at least 10 digits")
	}
	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		return nil, nil, invalid("date", "must be a date in YYYY-MM-DD format")
	}
	clock, err := schedule.ParseClock(req.Time)
	if err != nil {
		return nil, nil, invalid("time", "must be a time in HH:MM format")
	}

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("booking: load schedule: %w", err)
	}
	blocked, err := s.blocked.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("booking: load blocked dates: %w", err)
	}
	booked, err := s.repo.BookedTimes(ctx, date)
	if err != nil {
		return nil, nil, err
	}

	days := blockedDays(blocked)
	ok, err := s.checker.IsBookable(cfg, date, clock.String(), days, booked)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		// Distinguish a taken slot from one the schedule never offers.
		if open, _ := s.checker.IsBookable(cfg, date, clock.String(), days, nil); open {
			return nil, nil, ErrConflict
		}
		return nil, nil, invalid("time", "is not an available slot")
	}

	status := req.Status
	if status == "" {
		status = StatusPending
	}
	return &Booking{
		ClientName: req.ClientName,
		Phone:      req.Phone,
		PhoneKey:   key,
		Email:      req.Email,
		Date:       date,
		Time:       clock.String(),
		Notes:      req.Notes,
		Status:     status,
	}, cfg, nil
}

// notifyCreated sends the confirmation on a context detached from the
// request so a client disconnect does not cut the send short.
func (s *Service) notifyCreated(ctx context.Context, b *Booking, cfg *schedule.Config) {
	if s.notifier == nil {
		return
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := s.notifier.BookingCreated(sendCtx, b, cfg); err != nil {
		s.logger.Warn("booking confirmation failed", "booking_id", b.ID, "error", err)
	}
}

// Get returns one booking.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return s.repo.Get(ctx, id)
}

// List returns bookings matching f. A raw phone in f.PhoneKey is reduced to
// its canonical key first.
func (s *Service) List(ctx context.Context, f Filter) ([]Booking, error) {
	if f.PhoneKey != "" {
		f.PhoneKey = messaging.CanonicalKey(f.PhoneKey, s.countryCode)
	}
	for _, st := range f.Statuses {
		if !st.Valid() {
			return nil, invalid("status", fmt.Sprintf("%q is not a booking status", st))
		}
	}
	out, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Booking{}
	}
	return out, nil
}

// UpdateStatus changes a booking's status. Cancelled bookings are terminal.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, actor string) (*Booking, error) {
	if !status.Valid() {
		return nil, invalid("status", "must be one of: pending, confirmed, completed, cancelled")
	}
	b, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.logger.Info("booking status updated", "booking_id", id, "status", status, "actor", actor)
	action := audit.ActionStatusChanged
	if status == StatusCancelled && actor == ActorMessage {
		action = audit.ActionCancelledByChat
	}
	s.record(ctx, audit.Event{
		Action:    action,
		SubjectID: id,
		Actor:     actor,
		Fields:    []string{"status"},
		Details:   audit.Details(map[string]string{"status": string(status)}),
	})
	return b, nil
}

// Delete removes a booking.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("booking deleted", "booking_id", id)
	s.record(ctx, audit.Event{Action: audit.ActionDeleted, SubjectID: id, Actor: ActorAdmin})
	return nil
}

// Availability returns the free slots on date. Non-working, blocked and past
// dates yield an empty list.
func (s *Service) Availability(ctx context.Context, date schedule.Date) ([]string, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("booking: load schedule: %w", err)
	}
	blocked, err := s.blocked.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("booking: load blocked dates: %w", err)
	}
	booked, err := s.repo.BookedTimes(ctx, date)
	if err != nil {
		return nil, err
	}
	return s.checker.AvailableSlots(cfg, date, blockedDays(blocked), booked)
}

// BlockDateRequest closes a day for booking.
type BlockDateRequest struct {
	Date   string `json:"date" validate:"required"`
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

// ListBlockedDates returns all blocked dates, earliest first.
func (s *Service) ListBlockedDates(ctx context.Context) ([]BlockedDate, error) {
	out, err := s.blocked.List(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []BlockedDate{}
	}
	return out, nil
}

// BlockDate adds a blocked date; a second record for the same day is ErrConflict.
func (s *Service) BlockDate(ctx context.Context, req BlockDateRequest) (*BlockedDate, error) {
	if fields := s.validator.Struct(req); fields != nil {
		return nil, &ValidationError{Message: validation.Format(fields), Fields: fields}
	}
	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		return nil, invalid("date", "must be a date in YYYY-MM-DD format")
	}
	d := &BlockedDate{Date: date, Reason: strings.TrimSpace(req.Reason)}
	if err := s.blocked.Create(ctx, d); err != nil {
		return nil, err
	}
	s.logger.Info("date blocked", "date", date.String())
	s.record(ctx, audit.Event{Action: audit.ActionDateBlocked, SubjectID: d.ID, Actor: ActorAdmin,
		Details: audit.Details(map[string]string{"date": date.String()})})
	return d, nil
}

// UnblockDate removes a blocked date.
func (s *Service) UnblockDate(ctx context.Context, id uuid.UUID) error {
	if err := s.blocked.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, audit.Event{Action: audit.ActionDateUnblocked, SubjectID: id, Actor: ActorAdmin})
	return nil
}

// Actors recorded in the audit trail.
const (
	ActorClient  = "client"
	ActorAdmin   = "admin"
	ActorMessage = "whatsapp"
	ActorSystem  = "system"
)

func (s *Service) record(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Record(ctx, event); err != nil {
		s.logger.Warn("audit record failed", "action", event.Action, "subject_id", event.SubjectID, "error", err)
	}
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrValidation), errors.Is(err, schedule.ErrConfig):
		return "invalid"
	default:
		return "error"
	}
}
