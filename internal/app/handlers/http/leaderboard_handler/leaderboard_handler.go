package leaderboard_handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"edutest-bot/internal/domain/bank"
	"edutest-bot/internal/domain/model"
	resultsvc "edutest-bot/internal/domain/results/service"
	httpError "edutest-bot/pkg/http"

	"github.com/go-chi/chi/v5"
)

// LeaderboardEntry строка табло в JSON-ответе
type LeaderboardEntry struct {
	Place        int    `json:"place"`
	UserID       int64  `json:"user_id"`
	DisplayName  string `json:"display_name"`
	BestScore    int    `json:"best_score"`
	BestDuration string `json:"best_duration"`
	CompletedAt  string `json:"completed_at"`
}

// LeaderboardHandler структура для обработчика табло
type LeaderboardHandler struct {
	results *resultsvc.ResultService
	catalog func() *bank.Catalog
}

// NewLeaderboardHandler создает новый экземпляр обработчика
func NewLeaderboardHandler(results *resultsvc.ResultService, catalog func() *bank.Catalog) *LeaderboardHandler {
	return &LeaderboardHandler{results: results, catalog: catalog}
}

// ServeHTTP отдаёт табло по банку: GET /admin/leaderboard/{bankID}?limit=N
func (h *LeaderboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	bankID := chi.URLParam(r, "bankID")
	if _, err := h.catalog().Get(bankID); err != nil {
		if errors.Is(err, model.ErrBankNotFound) {
			httpError.ErrorResponse(w, http.StatusNotFound, fmt.Sprintf("bank %q not found", bankID))
			return
		}
		httpError.ErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httpError.ErrorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.results.Rank(r.Context(), bankID, limit)
	if err != nil {
		httpError.ErrorResponse(w, http.StatusInternalServerError, fmt.Sprintf("failed to build leaderboard: %v", err))
		return
	}

	out := make([]LeaderboardEntry, 0, len(entries))
	for i, e := range entries {
		out = append(out, LeaderboardEntry{
			Place:        i + 1,
			UserID:       e.UserID,
			DisplayName:  e.DisplayName,
			BestScore:    e.BestScore,
			BestDuration: e.BestDuration.Round(time.Second).String(),
			CompletedAt:  e.CompletedAt.Format(time.RFC3339),
		})
	}
	httpError.JSONResponse(w, http.StatusOK, map[string]any{
		"bank_id": bankID,
		"entries": out,
	})
}
