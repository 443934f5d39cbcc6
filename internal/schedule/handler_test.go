package schedule

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/session-booking/pkg/logging"
)

func doSettingsRequest(t *testing.T, h *Handler, method, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	return rr
}

func TestGetSettingsReturnsDefaults(t *testing.T) {
	h := NewHandler(NewMemoryStore(nil), logging.Default())

	rr := doSettingsRequest(t, h, http.MethodGet, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var cfg Config
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&cfg))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, cfg.WorkDays)
	assert.Equal(t, 30, cfg.SessionDuration)
}

func TestUpdateSettingsPartial(t *testing.T) {
	store := NewMemoryStore(nil)
	h := NewHandler(store, logging.Default())

	rr := doSettingsRequest(t, h, http.MethodPut, `{"session_duration": 60, "office_address": "  ул. Абая 10 ", "session_price": 15000}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	cfg, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.SessionDuration)
	assert.Equal(t, "ул. Абая 10", cfg.OfficeAddress)
	assert.Equal(t, "09:00", cfg.WorkStart)
	require.NotNil(t, cfg.SessionPrice)
	assert.Equal(t, 15000, *cfg.SessionPrice)
}

func TestUpdateSettingsRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"duration too short", `{"session_duration": 10}`},
		{"duration too long", `{"session_duration": 180}`},
		{"bad weekday", `{"work_days": [1, 9]}`},
		{"bad clock", `{"work_start": "9am"}`},
		{"inverted hours", `{"work_start": "20:00"}`},
		{"half break", `{"break_start": "13:00"}`},
		{"negative price", `{"session_price": -5}`},
		{"invalid json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore(nil)
			h := NewHandler(store, logging.Default())
			rr := doSettingsRequest(t, h, http.MethodPut, tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())

			cfg, err := store.Get(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 30, cfg.SessionDuration, "store must not change on rejected update")
		})
	}
}

func TestUpdateSettingsClearsBreak(t *testing.T) {
	store := NewMemoryStore(&Config{WorkDays: []int{1}, WorkStart: "09:00", WorkEnd: "18:00", SessionDuration: 30, BreakStart: "13:00", BreakEnd: "14:00"})
	h := NewHandler(store, logging.Default())

	rr := doSettingsRequest(t, h, http.MethodPost, `{"break_start": "", "break_end": ""}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	cfg, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cfg.BreakStart)
	assert.Empty(t, cfg.BreakEnd)
}
