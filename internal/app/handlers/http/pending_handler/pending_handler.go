package pending_handler

import (
	"fmt"
	"net/http"
	"time"

	accesssvc "edutest-bot/internal/domain/access/service"
	httpError "edutest-bot/pkg/http"
)

// PendingUser заявка на подтверждение в JSON-ответе
type PendingUser struct {
	TelegramID   int64  `json:"telegram_id"`
	FullName     string `json:"full_name"`
	Username     string `json:"username"`
	RegisteredAt string `json:"registered_at"`
}

// PendingHandler структура для обработчика списка заявок
type PendingHandler struct {
	access *accesssvc.AccessService
}

// NewPendingHandler создает новый экземпляр обработчика
func NewPendingHandler(access *accesssvc.AccessService) *PendingHandler {
	return &PendingHandler{access: access}
}

// ServeHTTP отдаёт заявки на подтверждение: GET /admin/pending.
// Роль проверяется токеном на уровне роутера.
func (h *PendingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	entries, err := h.access.PendingAll(r.Context())
	if err != nil {
		httpError.ErrorResponse(w, http.StatusInternalServerError, fmt.Sprintf("failed to list pending users: %v", err))
		return
	}

	out := make([]PendingUser, 0, len(entries))
	for _, e := range entries {
		out = append(out, PendingUser{
			TelegramID:   e.TelegramID,
			FullName:     e.FullName,
			Username:     e.Username,
			RegisteredAt: e.RegisteredAt.Format(time.RFC3339),
		})
	}
	httpError.JSONResponse(w, http.StatusOK, map[string]any{"pending": out})
}
