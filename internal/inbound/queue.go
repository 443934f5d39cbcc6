// Package inbound moves received chat messages from the webhook to the
// command processor through a queue, so the webhook can acknowledge at once.
package inbound

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/wolfman30/session-booking/internal/messaging"
)

// Queue is the transport between webhook and worker.
type Queue interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]Message, error)
	Delete(ctx context.Context, receiptHandle string) error
}

// Message is one received queue entry.
type Message struct {
	ID            string
	Body          string
	ReceiptHandle string
}

type payload struct {
	ID      string                   `json:"id"`
	Message messaging.InboundMessage `json:"message"`
}

// Publisher enqueues inbound messages.
type Publisher struct {
	queue Queue
}

func NewPublisher(queue Queue) *Publisher {
	if queue == nil {
		panic("inbound: queue cannot be nil")
	}
	return &Publisher{queue: queue}
}

// Enqueue serialises msg onto the queue.
func (p *Publisher) Enqueue(ctx context.Context, msg messaging.InboundMessage) error {
	body, err := encodePayload(payload{Message: msg})
	if err != nil {
		return err
	}
	return p.queue.Send(ctx, body)
}

func encodePayload(p payload) (string, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	body, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("inbound: failed to encode payload: %w", err)
	}
	return string(body), nil
}

func decodePayload(body string) (payload, error) {
	var p payload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return payload{}, fmt.Errorf("inbound: failed to decode payload: %w", err)
	}
	return p, nil
}
