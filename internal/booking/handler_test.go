package booking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (http.Handler, *serviceFixture) {
	t.Helper()
	f := newServiceFixture(t)
	h := NewHandler(f.service, nil)
	r := chi.NewRouter()
	r.Mount("/api/bookings", h.BookingRoutes())
	r.Mount("/api/blocked-dates", h.BlockedDateRoutes())
	r.Get("/api/availability", h.Availability)
	return r, f
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const createBody = `{"client_name":"Анна Иванова","phone":"87017777777","date":"2025-03-12","time":"10:30"}`

func TestHandlerCreateBooking(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/bookings", createBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "2025-03-12", got["date"])
	assert.Equal(t, "pending", got["status"])
	assert.NotContains(t, got, "PhoneKey")

	rec = do(t, h, http.MethodPost, "/api/bookings", createBody)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "slot is already booked")
}

func TestHandlerCreateBookingValidation(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/bookings", `{"phone":"87017777777"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var got struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "is required", got.Fields["client_name"])
	assert.Contains(t, got.Fields, "date")

	rec = do(t, h, http.MethodPost, "/api/bookings", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerGetUpdateDelete(t *testing.T) {
	h, f := newTestRouter(t)
	b, err := f.service.Create(context.Background(), validRequest())
	require.NoError(t, err)
	path := "/api/bookings/" + b.ID.String()

	rec := do(t, h, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPatch, path, `{"status":"cancelled"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPatch, path, `{"status":"confirmed"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/bookings/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerListBookings(t *testing.T) {
	h, f := newTestRouter(t)
	_, err := f.service.Create(context.Background(), validRequest())
	require.NoError(t, err)

	rec := do(t, h, http.MethodGet, "/api/bookings?status=pending,confirmed&from=2025-03-10&phone=%2B77017777777", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Bookings []Booking `json:"bookings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got.Bookings, 1)

	rec = do(t, h, http.MethodGet, "/api/bookings?status=cancelled", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"bookings":[]}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/bookings?from=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerAvailability(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/api/availability?date=2025-03-15", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"date":"2025-03-15","slots":[]}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/availability?date=2025-03-12", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Slots []string `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "09:00", got.Slots[0])

	rec = do(t, h, http.MethodGet, "/api/availability", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerBlockedDates(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/blocked-dates", `{"date":"2025-03-20","reason":"праздник"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created BlockedDate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = do(t, h, http.MethodPost, "/api/blocked-dates", `{"date":"2025-03-20"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already blocked")

	rec = do(t, h, http.MethodGet, "/api/blocked-dates", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "2025-03-20")

	rec = do(t, h, http.MethodDelete, "/api/blocked-dates/"+created.ID.String(), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodDelete, "/api/blocked-dates/"+created.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
