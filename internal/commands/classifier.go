// Package commands interprets inbound chat messages and applies the booking
// changes they ask for.
package commands

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MatchMode controls how inbound text is compared with the vocabulary.
type MatchMode string

const (
	// MatchExact requires the normalised text to equal a vocabulary entry.
	MatchExact MatchMode = "exact"
	// MatchContains also accepts text that contains a vocabulary phrase.
	MatchContains MatchMode = "contains"
)

// ParseMatchMode maps a config value to a mode, defaulting to MatchExact.
func ParseMatchMode(value string) MatchMode {
	if MatchMode(strings.ToLower(strings.TrimSpace(value))) == MatchContains {
		return MatchContains
	}
	return MatchExact
}

// numericCancel is the shortcut advertised in reminders ("отправьте 2").
const numericCancel = "2"

var cancelVocabulary = []string{
	numericCancel,
	"отмена",
	"отменить",
	"cancel",
	"отменить запись",
	"отменить сеанс",
	"отмена записи",
}

// Classifier decides whether a message is a cancellation command.
type Classifier struct {
	mode  MatchMode
	vocab []string
}

func NewClassifier(mode MatchMode) *Classifier {
	if mode != MatchContains {
		mode = MatchExact
	}
	return &Classifier{mode: mode, vocab: cancelVocabulary}
}

func (c *Classifier) Mode() MatchMode { return c.mode }

// IsCancel reports whether text asks to cancel a booking. In contains mode
// the bare numeric shortcut still has to match exactly.
func (c *Classifier) IsCancel(text string) bool {
	normalized := Normalize(text)
	if normalized == "" {
		return false
	}
	for _, phrase := range c.vocab {
		if normalized == phrase {
			return true
		}
		if c.mode == MatchContains && phrase != numericCancel && strings.Contains(normalized, phrase) {
			return true
		}
	}
	return false
}

// Normalize lowercases text, collapses whitespace and drops trailing
// punctuation: "  Отменить   запись! " becomes "отменить запись".
func Normalize(text string) string {
	lowered := cases.Lower(language.Russian).String(text)
	collapsed := strings.Join(strings.Fields(lowered), " ")
	return strings.TrimRightFunc(collapsed, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}
