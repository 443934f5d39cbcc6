package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name  string `json:"clientName" validate:"required"`
	Date  string `json:"date" validate:"required,isodate"`
	Time  string `json:"time" validate:"required,clock"`
	Email string `json:"email" validate:"omitempty,email"`
	Mins  int    `json:"sessionDuration" validate:"min=15,max=120"`
}

func TestStructValid(t *testing.T) {
	v := New()
	got := v.Struct(sample{Name: "Анна", Date: "2025-03-14", Time: "09:30", Mins: 30})
	assert.Nil(t, got)
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	v := New()
	got := v.Struct(sample{Date: "14.03.2025", Time: "9.30", Email: "nope", Mins: 5})
	assert.Equal(t, "is required", got["clientName"])
	assert.Equal(t, "must be a date in YYYY-MM-DD format", got["date"])
	assert.Equal(t, "must be a time in HH:MM format", got["time"])
	assert.Equal(t, "must be a valid email", got["email"])
	assert.Equal(t, "must be at least 15", got["sessionDuration"])
}

func TestFormatIsSorted(t *testing.T) {
	out := Format(map[string]string{"time": "bad", "date": "bad"})
	assert.Equal(t, "date: bad; time: bad", out)
}
