package booking

import (
	"context"

	"github.com/google/uuid"

	"github.com/wolfman30/session-booking/internal/schedule"
)

// Repository persists bookings. Implementations must make Create and
// MarkReminderSent atomic: Create fails with ErrConflict when an active
// booking already holds the same date and time, and MarkReminderSent only
// flips a flag that is currently false.
type Repository interface {
	Create(ctx context.Context, b *Booking) error
	Get(ctx context.Context, id uuid.UUID) (*Booking, error)
	List(ctx context.Context, f Filter) ([]Booking, error)
	// BookedTimes returns the times of active bookings on date.
	BookedTimes(ctx context.Context, date schedule.Date) ([]string, error)
	// UpdateStatus returns ErrTerminalStatus when the booking is cancelled.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Booking, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// MarkReminderSent reports whether this call set the flag.
	MarkReminderSent(ctx context.Context, id uuid.UUID, w ReminderWindow) (bool, error)
}

// BlockedDateStore persists blocked dates, at most one per calendar day.
type BlockedDateStore interface {
	List(ctx context.Context) ([]BlockedDate, error)
	Create(ctx context.Context, d *BlockedDate) error
	Delete(ctx context.Context, id uuid.UUID) error
}

func blockedDays(list []BlockedDate) []schedule.Date {
	out := make([]schedule.Date, 0, len(list))
	for _, d := range list {
		out = append(out, d.Date)
	}
	return out
}
