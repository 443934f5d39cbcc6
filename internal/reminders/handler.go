package reminders

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/wolfman30/session-booking/pkg/logging"
)

// Handler exposes the sweep as an HTTP trigger for external cron.
type Handler struct {
	sweeper Sweeper
	now     func() time.Time
	logger  *logging.Logger
}

func NewHandler(sweeper Sweeper, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{sweeper: sweeper, now: time.Now, logger: logger}
}

type sweepResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Result
	Sent int `json:"sent"`
}

// Send POST /api/reminders/send
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	res, err := h.sweeper.Sweep(r.Context(), h.now())
	if err != nil {
		if errors.Is(err, ErrMessagingDisabled) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "WhatsApp не настроен"})
			return
		}
		h.logger.Error("reminder sweep failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Ошибка при отправке напоминаний"})
		return
	}
	writeJSON(w, http.StatusOK, sweepResponse{
		Success: true,
		Message: fmt.Sprintf("Обработано записей: %d, отправлено: %d (24ч: %d, 3ч: %d), ошибок: %d",
			res.Scanned, res.Sent(), res.Sent24h, res.Sent3h, res.Errors),
		Result: res,
		Sent:   res.Sent(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
