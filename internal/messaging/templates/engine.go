// Package templates renders outbound booking messages from built-in or
// administrator-supplied templates.
package templates

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/wolfman30/session-booking/internal/schedule"
)

// Kind selects which message is being rendered.
type Kind string

const (
	KindConfirmation Kind = "confirmation"
	KindReminder     Kind = "reminder"
	KindCancellation Kind = "cancellation"
	KindNoActive     Kind = "no_active"
)

// Labels substituted for {hoursBefore} in reminders.
const (
	HoursBefore24 = "24 часа"
	HoursBefore3  = "3 часа"
)

// Context carries the values placeholders are filled from. Price <= 0 and an
// empty Address count as absent.
type Context struct {
	ClientName  string
	Date        schedule.Date
	Time        string
	Price       int
	Address     string
	HoursBefore string
}

// Engine renders messages. It is safe for concurrent use.
type Engine struct {
	printer  *message.Printer
	defaults map[Kind]*Template
}

// NewEngine builds an engine that groups prices the Russian way.
func NewEngine() *Engine {
	return &Engine{
		printer: message.NewPrinter(language.Russian),
		defaults: map[Kind]*Template{
			KindConfirmation: Parse(defaultConfirmation),
			KindReminder:     Parse(defaultReminder),
			KindCancellation: Parse(defaultCancellation),
			KindNoActive:     Parse(defaultNoActive),
		},
	}
}

// Render produces the message for kind. A non-blank custom template replaces
// the built-in one.
func (e *Engine) Render(kind Kind, custom string, c Context) (string, error) {
	tmpl, ok := e.defaults[kind]
	if !ok {
		return "", fmt.Errorf("templates: unknown message kind %q", kind)
	}
	if strings.TrimSpace(custom) != "" {
		tmpl = Parse(custom)
	}
	return tmpl.Execute(e.values(c)), nil
}

// FormatPrice groups digits per the ru locale, without a currency sign.
func (e *Engine) FormatPrice(price int) string {
	return e.printer.Sprintf("%d", price)
}

func (e *Engine) values(c Context) map[Field]string {
	values := map[Field]string{
		FieldClientName:  c.ClientName,
		FieldFirstName:   FirstName(c.ClientName),
		FieldDate:        c.Date.String(),
		FieldTime:        c.Time,
		FieldHoursBefore: c.HoursBefore,
	}
	if c.Price > 0 {
		values[FieldPrice] = e.FormatPrice(c.Price)
	}
	if addr := strings.TrimSpace(c.Address); addr != "" {
		values[FieldAddress] = addr
	}
	return values
}

// FirstName returns the first whitespace-delimited token of a full name.
func FirstName(fullName string) string {
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}
