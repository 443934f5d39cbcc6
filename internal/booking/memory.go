package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/session-booking/internal/schedule"
)

// MemoryRepository keeps bookings in process. The mutex provides the same
// atomicity the Postgres partial unique index gives.
type MemoryRepository struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]Booking
	now      func() time.Time
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		bookings: make(map[uuid.UUID]Booking),
		now:      time.Now,
	}
}

var _ Repository = (*MemoryRepository)(nil)

func (r *MemoryRepository) Create(ctx context.Context, b *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b.Active() {
		for _, existing := range r.bookings {
			if existing.Active() && existing.Date == b.Date && existing.Time == b.Time {
				return ErrConflict
			}
		}
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := r.now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	r.bookings[b.ID] = *b
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id uuid.UUID) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (r *MemoryRepository) List(ctx context.Context, f Filter) ([]Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Booking, 0, len(r.bookings))
	for _, b := range r.bookings {
		if f.matches(&b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) BookedTimes(ctx context.Context, date schedule.Date) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, b := range r.bookings {
		if b.Active() && b.Date == date {
			out = append(out, b.Time)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !b.Active() {
		return nil, ErrTerminalStatus
	}
	b.Status = status
	b.UpdatedAt = r.now().UTC()
	r.bookings[id] = b
	return &b, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[id]; !ok {
		return ErrNotFound
	}
	delete(r.bookings, id)
	return nil
}

func (r *MemoryRepository) MarkReminderSent(ctx context.Context, id uuid.UUID, w ReminderWindow) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return false, ErrNotFound
	}
	if b.Status == StatusCancelled {
		return false, nil
	}
	switch w {
	case Window24h:
		if b.Reminder24hSent {
			return false, nil
		}
		b.Reminder24hSent = true
	case Window3h:
		if b.Reminder3hSent {
			return false, nil
		}
		b.Reminder3hSent = true
	default:
		return false, invalid("window", "is unknown")
	}
	b.UpdatedAt = r.now().UTC()
	r.bookings[id] = b
	return true, nil
}

// MemoryBlockedDates keeps blocked dates in process.
type MemoryBlockedDates struct {
	mu    sync.Mutex
	dates map[uuid.UUID]BlockedDate
}

// NewMemoryBlockedDates creates an empty blocked-date store.
func NewMemoryBlockedDates() *MemoryBlockedDates {
	return &MemoryBlockedDates{dates: make(map[uuid.UUID]BlockedDate)}
}

var _ BlockedDateStore = (*MemoryBlockedDates)(nil)

func (s *MemoryBlockedDates) List(ctx context.Context) ([]BlockedDate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]BlockedDate, 0, len(s.dates))
	for _, d := range s.dates {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *MemoryBlockedDates) Create(ctx context.Context, d *BlockedDate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.dates {
		if existing.Date == d.Date {
			return ErrConflict
		}
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = time.Now().UTC()
	s.dates[d.ID] = *d
	return nil
}

func (s *MemoryBlockedDates) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dates[id]; !ok {
		return ErrNotFound
	}
	delete(s.dates, id)
	return nil
}
