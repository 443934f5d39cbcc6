package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/wolfman30/session-booking/internal/messaging"
	"github.com/wolfman30/session-booking/internal/schedule"
	"github.com/wolfman30/session-booking/pkg/logging"
)

const defaultTestMessage = "Тестовое сообщение от системы записи. Если вы получили это сообщение, значит WhatsApp уведомления настроены правильно! ✅"

// WhatsAppTestHandler sends a one-off message so an administrator can check
// the gateway credentials.
type WhatsAppTestHandler struct {
	sender   messaging.Sender
	settings schedule.Store
	logger   *logging.Logger
}

func NewWhatsAppTestHandler(sender messaging.Sender, settings schedule.Store, logger *logging.Logger) *WhatsAppTestHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WhatsAppTestHandler{sender: sender, settings: settings, logger: logger}
}

type testMessageRequest struct {
	Phone     string `json:"phone"`
	TestPhone string `json:"testPhone"`
	Message   string `json:"message"`
}

type testMessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Send POST /api/whatsapp/test
func (h *WhatsAppTestHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req testMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, testMessageResponse{Error: "invalid JSON body"})
		return
	}

	cfg, err := h.settings.Get(r.Context())
	if err != nil {
		h.logger.Error("failed to load settings", "error", err)
		writeJSON(w, http.StatusInternalServerError, testMessageResponse{Error: "Ошибка при тестировании WhatsApp"})
		return
	}
	if !cfg.WhatsAppEnabled || h.sender == nil {
		writeJSON(w, http.StatusBadRequest, testMessageResponse{Error: "WhatsApp не настроен. Заполните настройки в админ-панели."})
		return
	}

	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		phone = strings.TrimSpace(req.TestPhone)
	}
	if phone == "" {
		writeJSON(w, http.StatusBadRequest, testMessageResponse{Error: "Укажите номер телефона для теста"})
		return
	}
	body := strings.TrimSpace(req.Message)
	if body == "" {
		body = defaultTestMessage
	}

	if err := h.sender.Send(r.Context(), phone, body); err != nil {
		detail := err.Error()
		var gwErr *messaging.GatewayError
		if errors.As(err, &gwErr) && gwErr.Detail != "" {
			detail = gwErr.Detail
		}
		h.logger.Warn("test message failed", "error", err)
		writeJSON(w, http.StatusBadGateway, testMessageResponse{Error: detail})
		return
	}
	writeJSON(w, http.StatusOK, testMessageResponse{Success: true, Message: "Тестовое сообщение успешно отправлено!"})
}
