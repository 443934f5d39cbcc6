// Package booking holds bookings and blocked dates, the repositories that
// persist them, and the service that creates bookings against the schedule.
package booking

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/session-booking/internal/messaging/templates"
	"github.com/wolfman30/session-booking/internal/schedule"
)

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// ActiveStatuses lists every status that still occupies a slot.
func ActiveStatuses() []Status {
	return []Status{StatusPending, StatusConfirmed, StatusCompleted}
}

// ReminderWindow identifies one of the two reminder flags.
type ReminderWindow string

const (
	Window24h ReminderWindow = "24h"
	Window3h  ReminderWindow = "3h"
)

// Booking is a client's reservation of one slot.
type Booking struct {
	ID         uuid.UUID     `json:"id"`
	ClientName string        `json:"client_name"`
	Phone      string        `json:"phone"`
	PhoneKey   string        `json:"-"`
	Email      string        `json:"email,omitempty"`
	Date       schedule.Date `json:"date"`
	Time       string        `json:"time"`
	Notes      string        `json:"notes,omitempty"`
	Status     Status        `json:"status"`

	Reminder24hSent   bool `json:"reminder_24h_sent"`
	Reminder3hSent    bool `json:"reminder_3h_sent"`
	ReviewRequestSent bool `json:"review_request_sent"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Active reports whether the booking still holds its slot.
func (b *Booking) Active() bool {
	return b.Status != StatusCancelled
}

// Instant resolves the booking's date and time in loc.
func (b *Booking) Instant(loc *time.Location) (time.Time, error) {
	return schedule.Instant(b.Date, b.Time, loc)
}

// ReminderSent returns the flag for window w.
func (b *Booking) ReminderSent(w ReminderWindow) bool {
	switch w {
	case Window24h:
		return b.Reminder24hSent
	case Window3h:
		return b.Reminder3hSent
	}
	return false
}

// MessageContext builds the template context for b, taking price and address
// from cfg.
func (b *Booking) MessageContext(cfg *schedule.Config, hoursBefore string) templates.Context {
	c := templates.Context{
		ClientName:  b.ClientName,
		Date:        b.Date,
		Time:        b.Time,
		HoursBefore: hoursBefore,
	}
	if cfg != nil {
		if price, ok := cfg.Price(); ok {
			c.Price = price
		}
		c.Address = cfg.OfficeAddress
	}
	return c
}

// BlockedDate is a calendar day closed for booking.
type BlockedDate struct {
	ID        uuid.UUID     `json:"id"`
	Date      schedule.Date `json:"date"`
	Reason    string        `json:"reason,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Filter narrows a booking listing. Zero values mean "no constraint"; From
// and To are inclusive.
type Filter struct {
	Statuses []Status
	From     schedule.Date
	To       schedule.Date
	// PhoneKey matches the canonical phone key.
	PhoneKey string
}

func (f Filter) matches(b *Booking) bool {
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if b.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if !f.From.IsZero() && b.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && f.To.Before(b.Date) {
		return false
	}
	if f.PhoneKey != "" && b.PhoneKey != f.PhoneKey {
		return false
	}
	return true
}

// Scheduled pairs a booking with its resolved instant.
type Scheduled struct {
	Booking
	At time.Time
}

// Upcoming returns the active bookings whose instant is at or after now,
// soonest first. Ties are broken by creation time. Bookings with an
// unparseable time are skipped.
func Upcoming(bookings []Booking, now time.Time, loc *time.Location) []Scheduled {
	out := make([]Scheduled, 0, len(bookings))
	for _, b := range bookings {
		if !b.Active() {
			continue
		}
		at, err := b.Instant(loc)
		if err != nil || at.Before(now) {
			continue
		}
		out = append(out, Scheduled{Booking: b, At: at})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].At.Equal(out[j].At) {
			return out[i].At.Before(out[j].At)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
