package schedule

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/session-booking/internal/validation"
	"github.com/wolfman30/session-booking/pkg/logging"
)

// Handler serves the schedule settings endpoints.
type Handler struct {
	store     Store
	validator *validation.Validator
	logger    *logging.Logger
}

// NewHandler creates a settings HTTP handler.
func NewHandler(store Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		store:     store,
		validator: validation.New(),
		logger:    logger,
	}
}

// Routes returns a chi router with the settings routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetSettings)
	r.Put("/", h.UpdateSettings)
	r.Post("/", h.UpdateSettings)
	return r
}

// GetSettings returns the current schedule configuration.
// GET /api/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.store.Get(r.Context())
	if err != nil {
		h.logger.Error("failed to get settings", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// UpdateSettingsRequest is a partial update; nil fields keep their value.
// Empty strings clear optional fields.
type UpdateSettingsRequest struct {
	WorkDays             []int   `json:"work_days,omitempty" validate:"omitempty,dive,min=0,max=6"`
	WorkStart            *string `json:"work_start,omitempty" validate:"omitempty,clock"`
	WorkEnd              *string `json:"work_end,omitempty" validate:"omitempty,clock"`
	SessionDuration      *int    `json:"session_duration,omitempty" validate:"omitempty,min=15,max=120"`
	BreakStart           *string `json:"break_start,omitempty"`
	BreakEnd             *string `json:"break_end,omitempty"`
	SessionPrice         *int    `json:"session_price,omitempty" validate:"omitempty,min=0"`
	OfficeAddress        *string `json:"office_address,omitempty"`
	WhatsAppEnabled      *bool   `json:"whatsapp_enabled,omitempty"`
	ConfirmationTemplate *string `json:"confirmation_template,omitempty"`
	ReminderTemplate     *string `json:"reminder_template,omitempty"`
}

// Apply merges the request into cfg.
func (req *UpdateSettingsRequest) Apply(cfg *Config) {
	if req.WorkDays != nil {
		cfg.WorkDays = append([]int(nil), req.WorkDays...)
	}
	if req.WorkStart != nil {
		cfg.WorkStart = *req.WorkStart
	}
	if req.WorkEnd != nil {
		cfg.WorkEnd = *req.WorkEnd
	}
	if req.SessionDuration != nil {
		cfg.SessionDuration = *req.SessionDuration
	}
	if req.BreakStart != nil {
		cfg.BreakStart = *req.BreakStart
	}
	if req.BreakEnd != nil {
		cfg.BreakEnd = *req.BreakEnd
	}
	if req.SessionPrice != nil {
		price := *req.SessionPrice
		cfg.SessionPrice = &price
	}
	if req.OfficeAddress != nil {
		cfg.OfficeAddress = *req.OfficeAddress
	}
	if req.WhatsAppEnabled != nil {
		cfg.WhatsAppEnabled = *req.WhatsAppEnabled
	}
	if req.ConfirmationTemplate != nil {
		cfg.ConfirmationTemplate = *req.ConfirmationTemplate
	}
	if req.ReminderTemplate != nil {
		cfg.ReminderTemplate = *req.ReminderTemplate
	}
	cfg.Normalize()
}

// UpdateSettings validates and saves a partial settings update.
// PUT /api/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if fields := h.validator.Struct(req); fields != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": validation.Format(fields), "fields": fields})
		return
	}

	cfg, err := h.store.Get(r.Context())
	if err != nil {
		h.logger.Error("failed to get settings", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	req.Apply(cfg)

	if err := cfg.Validate(); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrConfig) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	if err := h.store.Set(r.Context(), cfg); err != nil {
		h.logger.Error("failed to save settings", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save settings"})
		return
	}

	h.logger.Info("schedule settings updated",
		"work_days", cfg.WorkDays,
		"work_start", cfg.WorkStart,
		"work_end", cfg.WorkEnd,
		"session_duration", cfg.SessionDuration,
	)
	writeJSON(w, http.StatusOK, cfg)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
