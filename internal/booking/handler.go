package booking

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/session-booking/internal/schedule"
	"github.com/wolfman30/session-booking/pkg/logging"
)

// Handler serves the booking, availability and blocked-date endpoints.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates booking HTTP handlers.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// BookingRoutes mounts under /api/bookings.
func (h *Handler) BookingRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListBookings)
	r.Post("/", h.CreateBooking)
	r.Route("/{bookingID}", func(r chi.Router) {
		r.Get("/", h.GetBooking)
		r.Patch("/", h.UpdateStatus)
		r.Delete("/", h.DeleteBooking)
	})
	return r
}

// BlockedDateRoutes mounts under /api/blocked-dates.
func (h *Handler) BlockedDateRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListBlockedDates)
	r.Post("/", h.BlockDate)
	r.Delete("/{blockedDateID}", h.UnblockDate)
	return r
}

// ListBookings GET /api/bookings?status=pending,confirmed&from=&to=&phone=
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f Filter
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				f.Statuses = append(f.Statuses, Status(part))
			}
		}
	}
	var err error
	if raw := q.Get("from"); raw != "" {
		if f.From, err = schedule.ParseDate(raw); err != nil {
			writeError(w, invalid("from", "must be a date in YYYY-MM-DD format"))
			return
		}
	}
	if raw := q.Get("to"); raw != "" {
		if f.To, err = schedule.ParseDate(raw); err != nil {
			writeError(w, invalid("to", "must be a date in YYYY-MM-DD format"))
			return
		}
	}
	f.PhoneKey = strings.TrimSpace(q.Get("phone"))

	bookings, err := h.service.List(r.Context(), f)
	if err != nil {
		h.fail(w, "failed to list bookings", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

// CreateBooking POST /api/bookings
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	b, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.fail(w, "failed to create booking", err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// GetBooking GET /api/bookings/{bookingID}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "bookingID")
	if !ok {
		return
	}
	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "failed to get booking", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type updateStatusRequest struct {
	Status Status `json:"status"`
}

// UpdateStatus PATCH /api/bookings/{bookingID}
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "bookingID")
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	b, err := h.service.UpdateStatus(r.Context(), id, req.Status, ActorAdmin)
	if err != nil {
		h.fail(w, "failed to update booking status", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// DeleteBooking DELETE /api/bookings/{bookingID}
func (h *Handler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "bookingID")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, "failed to delete booking", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Availability GET /api/availability?date=YYYY-MM-DD
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		writeError(w, invalid("date", "is required"))
		return
	}
	date, err := schedule.ParseDate(raw)
	if err != nil {
		writeError(w, invalid("date", "must be a date in YYYY-MM-DD format"))
		return
	}
	slots, err := h.service.Availability(r.Context(), date)
	if err != nil {
		h.fail(w, "failed to compute availability", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date.String(), "slots": slots})
}

// ListBlockedDates GET /api/blocked-dates
func (h *Handler) ListBlockedDates(w http.ResponseWriter, r *http.Request) {
	dates, err := h.service.ListBlockedDates(r.Context())
	if err != nil {
		h.fail(w, "failed to list blocked dates", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"blocked_dates": dates})
}

// BlockDate POST /api/blocked-dates
func (h *Handler) BlockDate(w http.ResponseWriter, r *http.Request) {
	var req BlockDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	d, err := h.service.BlockDate(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "date is already blocked"})
			return
		}
		h.fail(w, "failed to block date", err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// UnblockDate DELETE /api/blocked-dates/{blockedDateID}
func (h *Handler) UnblockDate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "blockedDateID")
	if !ok {
		return
	}
	if err := h.service.UnblockDate(r.Context(), id); err != nil {
		h.fail(w, "failed to unblock date", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	if StatusCode(err) == http.StatusInternalServerError {
		h.logger.Error(msg, "error", err)
	}
	writeError(w, err)
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, invalid("id", "must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

// StatusCode maps a service error to its HTTP status.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, schedule.ErrConfig):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrTerminalStatus):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := StatusCode(err)
	body := map[string]any{}
	switch {
	case status == http.StatusInternalServerError:
		body["error"] = "internal server error"
	case errors.Is(err, ErrConflict):
		body["error"] = "slot is already booked"
	default:
		body["error"] = err.Error()
	}
	var verr *ValidationError
	if errors.As(err, &verr) && len(verr.Fields) > 0 {
		body["fields"] = verr.Fields
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
