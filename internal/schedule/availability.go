package schedule

import "time"

// Checker decides which slots can still be booked on a given date.
type Checker struct {
	loc *time.Location
	now func() time.Time
}

// NewChecker builds a checker that resolves "today" in loc.
func NewChecker(loc *time.Location) *Checker {
	if loc == nil {
		loc = time.UTC
	}
	return &Checker{loc: loc, now: time.Now}
}

// WithClock overrides the time source.
func (c *Checker) WithClock(now func() time.Time) *Checker {
	if now != nil {
		c.now = now
	}
	return c
}

// Location returns the business location dates are resolved in.
func (c *Checker) Location() *time.Location {
	return c.loc
}

// Today returns the current calendar day in the business location.
func (c *Checker) Today() Date {
	return Today(c.now(), c.loc)
}

// DateAvailable reports whether date is a working day that is neither
// blocked nor in the past. An empty working-day set makes every date
// unavailable.
func (c *Checker) DateAvailable(cfg *Config, date Date, blocked []Date) bool {
	if cfg == nil || len(cfg.WorkDays) == 0 {
		return false
	}
	if !cfg.WorksOn(date.Weekday()) {
		return false
	}
	if date.Before(c.Today()) {
		return false
	}
	for _, b := range blocked {
		if b == date {
			return false
		}
	}
	return true
}

// AvailableSlots returns the slots of cfg that are still free on date.
// booked holds the times of non-cancelled bookings on that date. An empty
// result is not an error.
func (c *Checker) AvailableSlots(cfg *Config, date Date, blocked []Date, booked []string) ([]string, error) {
	if cfg == nil {
		return nil, configErr("schedule", "missing")
	}
	slots, err := cfg.Slots()
	if err != nil {
		return nil, err
	}
	if !c.DateAvailable(cfg, date, blocked) {
		return []string{}, nil
	}
	return FilterBooked(slots, booked), nil
}

// IsBookable reports whether timeOfDay is one of the free slots on date.
func (c *Checker) IsBookable(cfg *Config, date Date, timeOfDay string, blocked []Date, booked []string) (bool, error) {
	free, err := c.AvailableSlots(cfg, date, blocked, booked)
	if err != nil {
		return false, err
	}
	want, err := ParseClock(timeOfDay)
	if err != nil {
		return false, nil
	}
	for _, s := range free {
		if s == want.String() {
			return true, nil
		}
	}
	return false, nil
}

// FilterBooked removes slots whose time matches a booked time. Booked times
// are compared after normalising to "HH:MM".
func FilterBooked(slots, booked []string) []string {
	taken := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		if c, err := ParseClock(b); err == nil {
			taken[c.String()] = struct{}{}
		} else {
			taken[b] = struct{}{}
		}
	}
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		if _, ok := taken[s]; ok {
			continue
		}
		out = append(out, s)
	}
	return out
}
