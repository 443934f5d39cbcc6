// Package schedule derives bookable slots from the working schedule and
// filters them against working days, blocked dates and existing bookings.
package schedule

import (
	"strings"
	"time"
)

// Config is the working schedule plus the display and messaging settings
// that outbound texts are rendered with.
type Config struct {
	// WorkDays holds weekday numbers, 0 = Sunday.
	WorkDays        []int  `json:"work_days"`
	WorkStart       string `json:"work_start"`
	WorkEnd         string `json:"work_end"`
	SessionDuration int    `json:"session_duration"`
	BreakStart      string `json:"break_start,omitempty"`
	BreakEnd        string `json:"break_end,omitempty"`

	SessionPrice  *int   `json:"session_price,omitempty"`
	OfficeAddress string `json:"office_address,omitempty"`

	WhatsAppEnabled      bool   `json:"whatsapp_enabled"`
	ConfirmationTemplate string `json:"confirmation_template,omitempty"`
	ReminderTemplate     string `json:"reminder_template,omitempty"`

	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// DefaultConfig returns the schedule used until an administrator saves one:
// Monday to Friday, 09:00-19:00, 30 minute sessions.
func DefaultConfig() *Config {
	return &Config{
		WorkDays:        []int{1, 2, 3, 4, 5},
		WorkStart:       "09:00",
		WorkEnd:         "19:00",
		SessionDuration: 30,
	}
}

// Break is a half-open [Start, End) pause inside the working day.
type Break struct {
	Start Clock
	End   Clock
}

// Validate checks that the schedule can produce slots.
func (c *Config) Validate() error {
	if c == nil {
		return configErr("schedule", "missing")
	}
	if _, _, err := c.workingHours(); err != nil {
		return err
	}
	if c.SessionDuration <= 0 {
		return configErr("session_duration", "must be positive, got %d", c.SessionDuration)
	}
	if _, err := c.breakInterval(); err != nil {
		return err
	}
	for _, d := range c.WorkDays {
		if d < 0 || d > 6 {
			return configErr("work_days", "weekday %d out of range 0..6", d)
		}
	}
	return nil
}

// Slots generates the bookable times of day for this schedule.
func (c *Config) Slots() ([]string, error) {
	brk, err := c.breakInterval()
	if err != nil {
		return nil, err
	}
	return GenerateSlots(c.WorkStart, c.WorkEnd, c.SessionDuration, brk)
}

// WorksOn reports whether weekday is a configured working day.
func (c *Config) WorksOn(weekday time.Weekday) bool {
	for _, d := range c.WorkDays {
		if time.Weekday(d) == weekday {
			return true
		}
	}
	return false
}

// Price returns the display price when it is set and positive.
func (c *Config) Price() (int, bool) {
	if c.SessionPrice == nil || *c.SessionPrice <= 0 {
		return 0, false
	}
	return *c.SessionPrice, true
}

// Normalize trims optional strings so blank values read as absent.
func (c *Config) Normalize() {
	c.WorkStart = strings.TrimSpace(c.WorkStart)
	c.WorkEnd = strings.TrimSpace(c.WorkEnd)
	c.BreakStart = strings.TrimSpace(c.BreakStart)
	c.BreakEnd = strings.TrimSpace(c.BreakEnd)
	c.OfficeAddress = strings.TrimSpace(c.OfficeAddress)
	c.ConfirmationTemplate = strings.TrimSpace(c.ConfirmationTemplate)
	c.ReminderTemplate = strings.TrimSpace(c.ReminderTemplate)
	if c.SessionPrice != nil && *c.SessionPrice <= 0 {
		c.SessionPrice = nil
	}
}

func (c *Config) workingHours() (Clock, Clock, error) {
	start, err := ParseClock(c.WorkStart)
	if err != nil {
		return 0, 0, configErr("work_start", "unparseable time %q", c.WorkStart)
	}
	end, err := ParseClock(c.WorkEnd)
	if err != nil {
		return 0, 0, configErr("work_end", "unparseable time %q", c.WorkEnd)
	}
	if start >= end {
		return 0, 0, configErr("work_hours", "start %s is not before end %s", start, end)
	}
	return start, end, nil
}

// breakInterval returns nil when no break is configured. A break needs both
// ends set; a single end is treated as a misconfiguration.
func (c *Config) breakInterval() (*Break, error) {
	bs, be := strings.TrimSpace(c.BreakStart), strings.TrimSpace(c.BreakEnd)
	if bs == "" && be == "" {
		return nil, nil
	}
	if bs == "" || be == "" {
		return nil, configErr("break", "both break_start and break_end are required")
	}
	start, err := ParseClock(bs)
	if err != nil {
		return nil, configErr("break_start", "unparseable time %q", bs)
	}
	end, err := ParseClock(be)
	if err != nil {
		return nil, configErr("break_end", "unparseable time %q", be)
	}
	if start >= end {
		return nil, configErr("break", "start %s is not before end %s", start, end)
	}
	return &Break{Start: start, End: end}, nil
}
