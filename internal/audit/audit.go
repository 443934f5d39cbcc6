// Package audit appends booking lifecycle events to booking_audit_events.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Action is the kind of lifecycle change recorded.
type Action string

const (
	ActionCreated         Action = "booking.created"
	ActionStatusChanged   Action = "booking.status_changed"
	ActionDeleted         Action = "booking.deleted"
	ActionCancelledByChat Action = "booking.cancelled_by_message"
	ActionReminderSent    Action = "booking.reminder_sent"
	ActionDateBlocked     Action = "blocked_date.created"
	ActionDateUnblocked   Action = "blocked_date.deleted"
)

// Event is an immutable audit record.
type Event struct {
	ID        string          `json:"id"`
	Action    Action          `json:"action"`
	SubjectID uuid.UUID       `json:"subject_id"`
	Actor     string          `json:"actor"`
	Fields    []string        `json:"fields,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Log writes events with database/sql.
type Log struct {
	db *sql.DB
}

// NewLog creates an audit log.
func NewLog(db *sql.DB) *Log {
	return &Log{db: db}
}

// Record inserts an event, filling in ID and CreatedAt when unset.
func (l *Log) Record(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.Actor == "" {
		event.Actor = "system"
	}
	if len(event.Details) == 0 {
		event.Details = json.RawMessage(`{}`)
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO booking_audit_events (
			id, action, subject_id, actor, fields, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID,
		string(event.Action),
		event.SubjectID.String(),
		event.Actor,
		pq.Array(event.Fields),
		[]byte(event.Details),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: record %s: %w", event.Action, err)
	}
	return nil
}

// Details marshals v for Event.Details, returning nil on failure.
func Details(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

// Filter narrows History.
type Filter struct {
	SubjectID uuid.UUID
	Action    Action
	Since     time.Time
	Limit     int
}

// History returns events newest first.
func (l *Log) History(ctx context.Context, filter Filter) ([]Event, error) {
	query := `
		SELECT id, action, subject_id, actor, fields, details, created_at
		FROM booking_audit_events
		WHERE 1 = 1`
	var args []any
	argIdx := 1

	if filter.SubjectID != uuid.Nil {
		query += fmt.Sprintf(" AND subject_id = $%d", argIdx)
		args = append(args, filter.SubjectID.String())
		argIdx++
	}
	if filter.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, string(filter.Action))
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.Since)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e       Event
			action  string
			subject string
			details []byte
		)
		if err := rows.Scan(&e.ID, &action, &subject, &e.Actor, pq.Array(&e.Fields), &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		e.Action = Action(action)
		e.SubjectID, _ = uuid.Parse(subject)
		e.Details = details
		events = append(events, e)
	}
	return events, rows.Err()
}
