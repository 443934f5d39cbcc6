package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Clock is a time of day expressed as minutes after midnight.
type Clock int

// ParseClock parses an "HH:MM" string.
func ParseClock(value string) (Clock, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

// String formats the clock as zero-padded "HH:MM".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Add returns the clock shifted by minutes.
func (c Clock) Add(minutes int) Clock {
	return c + Clock(minutes)
}

// Date is a calendar day without a time-of-day component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// ParseDate parses a "YYYY-MM-DD" string or a full RFC 3339 timestamp, whose
// calendar day is taken in its own offset. Anything else is rejected.
func ParseDate(value string) (Date, error) {
	value = strings.TrimSpace(value)
	if len(value) == len(dateLayout) {
		t, err := time.Parse(dateLayout, value)
		if err != nil {
			return Date{}, fmt.Errorf("schedule: parse date %q: %w", value, err)
		}
		return DateOf(t), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return Date{}, fmt.Errorf("schedule: parse date %q: %w", value, err)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current calendar day in loc.
func Today(now time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(now.In(loc))
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// String formats the date as "YYYY-MM-DD".
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time returns midnight of d in loc.
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// At combines the date with a time of day in loc.
func (d Date) At(c Clock, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, int(c)/60, int(c)%60, 0, 0, loc)
}

// Weekday returns the day of week of d.
func (d Date) Weekday() time.Weekday {
	return d.Time(time.UTC).Weekday()
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time(time.UTC).AddDate(0, 0, n))
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Instant resolves a booking date and "HH:MM" time into an absolute time in loc.
func Instant(d Date, timeOfDay string, loc *time.Location) (time.Time, error) {
	c, err := ParseClock(timeOfDay)
	if err != nil {
		return time.Time{}, fmt.Errorf("schedule: parse time %q: %w", timeOfDay, err)
	}
	return d.At(c, loc), nil
}
