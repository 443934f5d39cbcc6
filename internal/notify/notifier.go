package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/wolfman30/session-booking/internal/booking"
	"github.com/wolfman30/session-booking/internal/messaging"
	"github.com/wolfman30/session-booking/internal/messaging/templates"
	"github.com/wolfman30/session-booking/internal/observability/metrics"
	"github.com/wolfman30/session-booking/internal/schedule"
	"github.com/wolfman30/session-booking/pkg/logging"
)

const (
	confirmationSubject = "Подтверждение записи"
	confirmationTag     = "booking_confirmation"
)

// Notifier sends booking confirmations over WhatsApp and e-mail.
type Notifier struct {
	whatsapp messaging.Sender
	email    EmailSender
	engine   *templates.Engine
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
}

// NewNotifier builds a notifier. Either channel may be nil.
func NewNotifier(whatsapp messaging.Sender, email EmailSender, engine *templates.Engine, logger *logging.Logger) *Notifier {
	if engine == nil {
		engine = templates.NewEngine()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Notifier{
		whatsapp: whatsapp,
		email:    email,
		engine:   engine,
		logger:   logger,
	}
}

// WithMetrics records outbound results.
func (n *Notifier) WithMetrics(m *metrics.BookingMetrics) *Notifier {
	n.metrics = m
	return n
}

var _ booking.Notifier = (*Notifier)(nil)

// BookingCreated renders the confirmation and sends it on every enabled
// channel. WhatsApp is used when the schedule enables it; e-mail when the
// booking carries an address. All channel errors are returned joined.
func (n *Notifier) BookingCreated(ctx context.Context, b *booking.Booking, cfg *schedule.Config) error {
	var custom string
	whatsappEnabled := false
	if cfg != nil {
		custom = cfg.ConfirmationTemplate
		whatsappEnabled = cfg.WhatsAppEnabled
	}
	body, err := n.engine.Render(templates.KindConfirmation, custom, b.MessageContext(cfg, ""))
	if err != nil {
		return fmt.Errorf("notify: render confirmation: %w", err)
	}

	var errs []error
	if whatsappEnabled && n.whatsapp != nil {
		if err := n.whatsapp.Send(ctx, b.Phone, body); err != nil {
			n.metrics.ObserveOutbound("confirmation", "failed")
			errs = append(errs, err)
		} else {
			n.metrics.ObserveOutbound("confirmation", "sent")
		}
	}
	if strings.TrimSpace(b.Email) != "" && n.email != nil {
		err := n.email.Send(ctx, EmailMessage{
			To:      b.Email,
			ToName:  b.ClientName,
			Subject: confirmationSubject,
			Body:    body,
			HTML:    plainToHTML(body),
			Tag:     confirmationTag,
		})
		if err != nil {
			n.metrics.ObserveOutbound("confirmation_email", "failed")
			errs = append(errs, err)
		} else {
			n.metrics.ObserveOutbound("confirmation_email", "sent")
		}
	}
	if len(errs) > 0 {
		n.logger.Warn("booking confirmation not fully delivered",
			"booking_id", b.ID,
			"error", errors.Join(errs...),
		)
	}
	return errors.Join(errs...)
}

func plainToHTML(body string) string {
	escaped := html.EscapeString(body)
	return "<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>"
}
