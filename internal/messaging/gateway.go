package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/session-booking/pkg/logging"
)

// Sender delivers a plain-text message to a phone number. A nil error means
// the gateway accepted the message.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// ErrGateway matches every GatewayError via errors.Is.
var ErrGateway = errors.New("messaging: gateway send failed")

// GatewayError reports a failed outbound send with whatever detail the
// provider returned.
type GatewayError struct {
	Provider   string
	StatusCode int
	Detail     string
	Err        error
}

func (e *GatewayError) Error() string {
	msg := fmt.Sprintf("messaging: %s send failed", e.Provider)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GatewayError) Unwrap() error { return e.Err }

func (e *GatewayError) Is(target error) bool { return target == ErrGateway }

// LogSender logs messages instead of sending them. Used for dry runs.
type LogSender struct {
	logger      *logging.Logger
	countryCode string
}

// NewLogSender creates a sender that only logs.
func NewLogSender(countryCode string, logger *logging.Logger) *LogSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSender{logger: logger, countryCode: countryCode}
}

var _ Sender = (*LogSender)(nil)

func (s *LogSender) Send(ctx context.Context, to, body string) error {
	s.logger.Info("dry-run sender: would send message",
		"phone_key", CanonicalKey(to, s.countryCode),
		"length", len([]rune(body)),
	)
	return nil
}
