package schedule

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSlots(t *testing.T) {
	tests := []struct {
		name     string
		start    string
		end      string
		duration int
		brk      *Break
		want     []string
	}{
		{
			name:     "no break",
			start:    "09:00",
			end:      "11:00",
			duration: 30,
			want:     []string{"09:00", "09:30", "10:00", "10:30"},
		},
		{
			name:     "break excludes overlapping slot only",
			start:    "09:00",
			end:      "11:00",
			duration: 30,
			brk:      &Break{Start: 9*60 + 30, End: 10 * 60},
			want:     []string{"09:00", "10:00", "10:30"},
		},
		{
			name:     "partial overlap on either edge excludes",
			start:    "09:00",
			end:      "12:00",
			duration: 60,
			brk:      &Break{Start: 9*60 + 45, End: 10*60 + 15},
			want:     []string{"11:00"},
		},
		{
			name:     "break inside slot excludes",
			start:    "09:00",
			end:      "11:00",
			duration: 60,
			brk:      &Break{Start: 10*60 + 10, End: 10*60 + 20},
			want:     []string{"09:00"},
		},
		{
			name:     "trailing partial slot dropped",
			start:    "09:00",
			end:      "10:45",
			duration: 30,
			want:     []string{"09:00", "09:30", "10:00"},
		},
		{
			name:     "single-digit hours normalised",
			start:    "9:00",
			end:      "10:00",
			duration: 20,
			want:     []string{"09:00", "09:20", "09:40"},
		},
		{
			name:     "duration longer than the day",
			start:    "09:00",
			end:      "09:30",
			duration: 45,
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GenerateSlots(tt.start, tt.end, tt.duration, tt.brk)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateSlotsIsRestartable(t *testing.T) {
	first, err := GenerateSlots("09:00", "11:00", 30, nil)
	require.NoError(t, err)
	second, err := GenerateSlots("09:00", "11:00", 30, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateSlotsConfigErrors(t *testing.T) {
	tests := []struct {
		name     string
		start    string
		end      string
		duration int
		brk      *Break
	}{
		{"start equals end", "10:00", "10:00", 30, nil},
		{"start after end", "18:00", "09:00", 30, nil},
		{"unparseable start", "nine", "18:00", 30, nil},
		{"unparseable end", "09:00", "25:61", 30, nil},
		{"zero duration", "09:00", "18:00", 0, nil},
		{"inverted break", "09:00", "18:00", 30, &Break{Start: 13 * 60, End: 12 * 60}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GenerateSlots(tt.start, tt.end, tt.duration, tt.brk)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfig))
			var cfgErr *ConfigError
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}

func TestConfigSlotsUsesBreak(t *testing.T) {
	cfg := &Config{WorkStart: "09:00", WorkEnd: "11:00", SessionDuration: 30, BreakStart: "09:30", BreakEnd: "10:00"}
	got, err := cfg.Slots()
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:00", "10:30"}, got)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	halfBreak := DefaultConfig()
	halfBreak.BreakStart = "13:00"
	assert.ErrorIs(t, halfBreak.Validate(), ErrConfig)

	badDay := DefaultConfig()
	badDay.WorkDays = []int{1, 7}
	assert.ErrorIs(t, badDay.Validate(), ErrConfig)

	inverted := DefaultConfig()
	inverted.WorkStart, inverted.WorkEnd = "19:00", "09:00"
	assert.ErrorIs(t, inverted.Validate(), ErrConfig)
}

func TestConfigPriceAndNormalize(t *testing.T) {
	zero := 0
	cfg := &Config{SessionPrice: &zero, OfficeAddress: "  ", ReminderTemplate: "\n"}
	_, ok := cfg.Price()
	assert.False(t, ok)

	cfg.Normalize()
	assert.Nil(t, cfg.SessionPrice)
	assert.Empty(t, cfg.OfficeAddress)
	assert.Empty(t, cfg.ReminderTemplate)

	price := 15000
	cfg.SessionPrice = &price
	got, ok := cfg.Price()
	assert.True(t, ok)
	assert.Equal(t, 15000, got)
}
