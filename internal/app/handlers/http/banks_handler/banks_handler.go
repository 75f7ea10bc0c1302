package banks_handler

import (
	"net/http"

	"edutest-bot/internal/domain/bank"
	httpError "edutest-bot/pkg/http"
)

// BankSummary банк вопросов в JSON-ответе
type BankSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Version   int    `json:"version"`
	Questions int    `json:"questions"`
}

// BanksHandler структура для обработчика списка банков
type BanksHandler struct {
	catalog    func() *bank.Catalog
	loadErrors func() []bank.LoadError
}

// NewBanksHandler создает новый экземпляр обработчика
func NewBanksHandler(catalog func() *bank.Catalog, loadErrors func() []bank.LoadError) *BanksHandler {
	return &BanksHandler{catalog: catalog, loadErrors: loadErrors}
}

// ServeHTTP отдаёт загруженные банки и ошибки последней загрузки:
// GET /admin/banks. Непрошедшие загрузку банки видны администратору здесь.
func (h *BanksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	list := h.catalog().List()
	out := make([]BankSummary, 0, len(list))
	for _, b := range list {
		out = append(out, BankSummary{
			ID:        b.ID,
			Name:      b.Name,
			Version:   b.Version,
			Questions: len(b.Questions),
		})
	}

	errsOut := make([]string, 0)
	if h.loadErrors != nil {
		for _, e := range h.loadErrors() {
			errsOut = append(errsOut, e.Error())
		}
	}

	httpError.JSONResponse(w, http.StatusOK, map[string]any{
		"banks":       out,
		"load_errors": errsOut,
	})
}
