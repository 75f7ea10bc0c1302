package admin_handler

import (
	"strconv"

	"edutest-bot/internal/app/handlers/telegram/sender"
	"edutest-bot/internal/domain/dispatch"

	"gopkg.in/telebot.v4"
)

// AdminHandler структура для обработки административных команд
// /pending, /approve и /ban
type AdminHandler struct {
	dispatcher *dispatch.Dispatcher
}

// NewAdminHandler возвращает структуру обработчика
func NewAdminHandler(dispatcher *dispatch.Dispatcher) *AdminHandler {
	return &AdminHandler{dispatcher: dispatcher}
}

// HandlePending показывает заявки на подтверждение доступа.
func (h *AdminHandler) HandlePending(c telebot.Context) error {
	s := c.Sender()
	if s == nil {
		return nil
	}
	return sender.Dispatch(c, h.dispatcher, dispatch.Pending{UserID: s.ID})
}

// HandleApprove подтверждает доступ пользователя: /approve <id>.
func (h *AdminHandler) HandleApprove(c telebot.Context) error {
	s := c.Sender()
	if s == nil {
		return nil
	}
	target, ok := targetID(c)
	if !ok {
		return c.Send("Использование: /approve <telegram id>")
	}
	return sender.Dispatch(c, h.dispatcher, dispatch.Approve{UserID: s.ID, TargetID: target})
}

// HandleBan отзывает доступ пользователя: /ban <id>.
func (h *AdminHandler) HandleBan(c telebot.Context) error {
	s := c.Sender()
	if s == nil {
		return nil
	}
	target, ok := targetID(c)
	if !ok {
		return c.Send("Использование: /ban <telegram id>")
	}
	return sender.Dispatch(c, h.dispatcher, dispatch.Ban{UserID: s.ID, TargetID: target})
}

func targetID(c telebot.Context) (int64, bool) {
	args := c.Args()
	if len(args) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// GetPendingHandlerFunc возвращает обработчик /pending в формате telebot.HandlerFunc
func (h *AdminHandler) GetPendingHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.HandlePending(c)
	}
}

// GetApproveHandlerFunc возвращает обработчик /approve в формате telebot.HandlerFunc
func (h *AdminHandler) GetApproveHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.HandleApprove(c)
	}
}

// GetBanHandlerFunc возвращает обработчик /ban в формате telebot.HandlerFunc
func (h *AdminHandler) GetBanHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.HandleBan(c)
	}
}
