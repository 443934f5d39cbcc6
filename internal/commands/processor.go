package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/session-booking/internal/booking"
	"github.com/wolfman30/session-booking/internal/messaging"
	"github.com/wolfman30/session-booking/internal/messaging/templates"
	"github.com/wolfman30/session-booking/internal/observability/metrics"
	"github.com/wolfman30/session-booking/internal/schedule"
	"github.com/wolfman30/session-booking/pkg/logging"
)

var commandsTracer = otel.Tracer("booking.internal.commands")

// Outcome describes what Handle did with a message.
type Outcome string

const (
	OutcomeIgnored   Outcome = "ignored"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeNoActive  Outcome = "no_active"
)

// Result is returned by Handle. BookingID is set only for OutcomeCancelled.
type Result struct {
	Outcome   Outcome
	BookingID uuid.UUID
	// NoticeErr holds the notice send failure, if any. It never undoes the
	// status change.
	NoticeErr error
}

// Bookings is the slice of the booking service the processor needs.
type Bookings interface {
	List(ctx context.Context, f booking.Filter) ([]booking.Booking, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status booking.Status, actor string) (*booking.Booking, error)
}

// Processor resolves cancellation commands to the sender's next booking.
type Processor struct {
	bookings    Bookings
	settings    schedule.Store
	sender      messaging.Sender
	classifier  *Classifier
	engine      *templates.Engine
	loc         *time.Location
	now         func() time.Time
	countryCode string
	metrics     *metrics.BookingMetrics
	logger      *logging.Logger
}

func NewProcessor(bookings Bookings, settings schedule.Store, sender messaging.Sender, classifier *Classifier, loc *time.Location, logger *logging.Logger) *Processor {
	if bookings == nil || settings == nil || sender == nil {
		panic("commands: bookings, settings and sender required")
	}
	if classifier == nil {
		classifier = NewClassifier(MatchExact)
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Processor{
		bookings:    bookings,
		settings:    settings,
		sender:      sender,
		classifier:  classifier,
		engine:      templates.NewEngine(),
		loc:         loc,
		now:         time.Now,
		countryCode: messaging.DefaultCountryCode,
		logger:      logger,
	}
}

func (p *Processor) WithClock(now func() time.Time) *Processor {
	if now != nil {
		p.now = now
	}
	return p
}

func (p *Processor) WithCountryCode(cc string) *Processor {
	if cc != "" {
		p.countryCode = cc
	}
	return p
}

func (p *Processor) WithMetrics(m *metrics.BookingMetrics) *Processor {
	p.metrics = m
	return p
}

// Handle applies msg. Text that is not a command is ignored. A command with
// no upcoming booking for the sender gets the "no active booking" notice;
// otherwise the soonest booking is cancelled first and the notice sent after.
func (p *Processor) Handle(ctx context.Context, msg messaging.InboundMessage) (Result, error) {
	ctx, span := commandsTracer.Start(ctx, "commands.handle")
	defer span.End()

	if !p.classifier.IsCancel(msg.Text) {
		p.metrics.ObserveCommand(string(OutcomeIgnored))
		return Result{Outcome: OutcomeIgnored}, nil
	}

	key := messaging.CanonicalKey(msg.Sender, p.countryCode)
	logger := p.logger.With("phone_key", key, "message_id", msg.ID)
	span.SetAttributes(attribute.String("commands.phone_key", key))
	if key == "" {
		p.metrics.ObserveCommand("error")
		return Result{}, messaging.ErrNoSender
	}

	cfg, err := p.settings.Get(ctx)
	if err != nil {
		p.metrics.ObserveCommand("error")
		return Result{}, fmt.Errorf("commands: load schedule: %w", err)
	}

	target, err := p.resolve(ctx, key)
	if err != nil {
		p.metrics.ObserveCommand("error")
		span.RecordError(err)
		return Result{}, err
	}

	if target != nil {
		_, err = p.bookings.UpdateStatus(ctx, target.ID, booking.StatusCancelled, booking.ActorMessage)
		switch {
		case errors.Is(err, booking.ErrTerminalStatus), errors.Is(err, booking.ErrNotFound):
			// A concurrent delivery of the same command got there first.
			logger.Info("booking already cancelled", "booking_id", target.ID)
			target = nil
		case err != nil:
			p.metrics.ObserveCommand("error")
			span.RecordError(err)
			return Result{}, fmt.Errorf("commands: cancel booking: %w", err)
		}
	}

	if target == nil {
		logger.Info("cancel command with no active booking")
		res := Result{Outcome: OutcomeNoActive}
		res.NoticeErr = p.notify(ctx, cfg, msg.Sender, templates.KindNoActive, templates.Context{}, logger)
		p.metrics.ObserveCommand(string(OutcomeNoActive))
		return res, nil
	}

	logger.Info("booking cancelled by message", "booking_id", target.ID, "date", target.Date.String(), "time", target.Time)
	res := Result{Outcome: OutcomeCancelled, BookingID: target.ID}
	res.NoticeErr = p.notify(ctx, cfg, msg.Sender, templates.KindCancellation, target.MessageContext(cfg, ""), logger)
	p.metrics.ObserveCommand(string(OutcomeCancelled))
	return res, nil
}

// resolve returns the sender's soonest upcoming active booking, or nil.
func (p *Processor) resolve(ctx context.Context, key string) (*booking.Booking, error) {
	now := p.now()
	list, err := p.bookings.List(ctx, booking.Filter{
		Statuses: booking.ActiveStatuses(),
		From:     schedule.Today(now, p.loc),
		PhoneKey: key,
	})
	if err != nil {
		return nil, fmt.Errorf("commands: list bookings: %w", err)
	}
	upcoming := booking.Upcoming(list, now, p.loc)
	if len(upcoming) == 0 {
		return nil, nil
	}
	return &upcoming[0].Booking, nil
}

func (p *Processor) notify(ctx context.Context, cfg *schedule.Config, to string, kind templates.Kind, c templates.Context, logger *logging.Logger) error {
	if !cfg.WhatsAppEnabled {
		logger.Info("whatsapp disabled, notice not sent", "kind", string(kind))
		return nil
	}
	body, err := p.engine.Render(kind, "", c)
	if err != nil {
		return err
	}
	if err := p.sender.Send(ctx, to, body); err != nil {
		p.metrics.ObserveOutbound(string(kind), "failed")
		logger.Warn("notice send failed", "kind", string(kind), "error", err)
		return err
	}
	p.metrics.ObserveOutbound(string(kind), "sent")
	return nil
}
