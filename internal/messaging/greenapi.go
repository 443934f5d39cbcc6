package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/session-booking/pkg/logging"
)

var greenAPITracer = otel.Tracer("booking.internal.messaging.greenapi")

const providerGreenAPI = "green-api"

// GreenAPIConfig holds Green API instance credentials.
type GreenAPIConfig struct {
	BaseURL     string
	InstanceID  string
	Token       string
	CountryCode string
	MaxAttempts int
}

// GreenAPISender posts WhatsApp messages through a Green API instance.
type GreenAPISender struct {
	baseURL     string
	instanceID  string
	token       string
	countryCode string
	maxAttempts int
	httpClient  *http.Client
	logger      *logging.Logger
	backoff     func(attempt int) time.Duration
}

// NewGreenAPISender builds a sender for the given instance.
func NewGreenAPISender(cfg GreenAPIConfig, logger *logging.Logger) *GreenAPISender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.green-api.com"
	}
	if cfg.CountryCode == "" {
		cfg.CountryCode = DefaultCountryCode
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &GreenAPISender{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		instanceID:  strings.TrimSpace(cfg.InstanceID),
		token:       strings.TrimSpace(cfg.Token),
		countryCode: cfg.CountryCode,
		maxAttempts: cfg.MaxAttempts,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
		backoff: func(int) time.Duration {
			return time.Duration(200+rand.Intn(300)) * time.Millisecond
		},
	}
}

// WithHTTPClient overrides the HTTP client.
func (s *GreenAPISender) WithHTTPClient(c *http.Client) *GreenAPISender {
	if c != nil {
		s.httpClient = c
	}
	return s
}

// WithBackoff overrides the delay between attempts.
func (s *GreenAPISender) WithBackoff(fn func(attempt int) time.Duration) *GreenAPISender {
	if fn != nil {
		s.backoff = fn
	}
	return s
}

var _ Sender = (*GreenAPISender)(nil)

type greenAPIResponse struct {
	IDMessage string `json:"idMessage"`
	Error     string `json:"error"`
	ErrorText string `json:"errorText"`
	Message   string `json:"message"`
}

// Send delivers body to the WhatsApp chat of phone `to`. Transport errors,
// 429 and 5xx responses are retried; other failures return immediately.
func (s *GreenAPISender) Send(ctx context.Context, to, body string) error {
	if s.instanceID == "" || s.token == "" {
		return &GatewayError{Provider: providerGreenAPI, Detail: "instance id or token not configured"}
	}
	chatID := ChatID(to, s.countryCode)
	if chatID == "" {
		return &GatewayError{Provider: providerGreenAPI, Detail: "recipient phone required"}
	}
	if strings.TrimSpace(body) == "" {
		return &GatewayError{Provider: providerGreenAPI, Detail: "message body required"}
	}

	ctx, span := greenAPITracer.Start(ctx, "messaging.greenapi.send", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.phone_key", CanonicalKey(to, s.countryCode)),
		attribute.Int("booking.message_length", len([]rune(body))),
	)

	payload, err := json.Marshal(map[string]string{
		"chatId":  chatID,
		"message": body,
	})
	if err != nil {
		return fmt.Errorf("messaging: marshal green api payload: %w", err)
	}
	url := fmt.Sprintf("%s/waInstance%s/sendMessage/%s", s.baseURL, s.instanceID, s.token)

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		id, retry, err := s.post(ctx, url, payload)
		if err == nil {
			span.SetAttributes(attribute.String("booking.provider_message_id", id))
			s.logger.Info("green api message sent",
				"phone_key", CanonicalKey(to, s.countryCode),
				"provider_message_id", id,
				"attempt", attempt,
			)
			return nil
		}
		lastErr = err
		if !retry || attempt == s.maxAttempts {
			break
		}
		if err := sleepContext(ctx, s.backoff(attempt)); err != nil {
			lastErr = &GatewayError{Provider: providerGreenAPI, Err: err}
			break
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "green api send failed")
	s.logger.Error("failed to send green api message",
		"error", lastErr,
		"phone_key", CanonicalKey(to, s.countryCode),
	)
	return lastErr
}

// post performs a single request. retry reports whether a later attempt may succeed.
func (s *GreenAPISender) post(ctx context.Context, url string, payload []byte) (id string, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", false, &GatewayError{Provider: providerGreenAPI, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", !errors.Is(err, context.Canceled), &GatewayError{Provider: providerGreenAPI, Err: err}
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))

	var parsed greenAPIResponse
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &parsed)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := parsed.detail()
		if resp.StatusCode == http.StatusUnauthorized {
			detail = "unauthorized: check instance id and token, and that the instance is authorised in the Green API console"
		}
		if detail == "" {
			detail = http.StatusText(resp.StatusCode)
		}
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", retry, &GatewayError{Provider: providerGreenAPI, StatusCode: resp.StatusCode, Detail: detail}
	}

	// Green API can answer 200 with an error body.
	if parsed.Error != "" || parsed.ErrorText != "" {
		return "", false, &GatewayError{Provider: providerGreenAPI, StatusCode: resp.StatusCode, Detail: parsed.detail()}
	}
	return parsed.IDMessage, false, nil
}

func (r greenAPIResponse) detail() string {
	switch {
	case r.ErrorText != "":
		return r.ErrorText
	case r.Error != "":
		return r.Error
	default:
		return r.Message
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
