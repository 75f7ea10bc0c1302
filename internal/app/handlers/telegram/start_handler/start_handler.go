package start_handler

import (
	"edutest-bot/internal/app/handlers/telegram/sender"
	"edutest-bot/internal/domain/dispatch"

	"gopkg.in/telebot.v4"
)

// StartHandler структура для обработки команды /start
type StartHandler struct {
	dispatcher *dispatch.Dispatcher
}

// NewStartHandler возвращает структуру обработчика
func NewStartHandler(dispatcher *dispatch.Dispatcher) *StartHandler {
	return &StartHandler{dispatcher: dispatcher}
}

// Handle обрабатывает /start: регистрация нового пользователя либо
// приветствие вернувшегося.
func (h *StartHandler) Handle(c telebot.Context) error {
	s := c.Sender()
	if s == nil {
		return nil
	}
	return sender.Dispatch(c, h.dispatcher, dispatch.Hello{
		UserID:    s.ID,
		Username:  s.Username,
		FirstName: s.FirstName,
	})
}

// GetHandlerFunc возвращает обработчик в формате telebot.HandlerFunc
func (h *StartHandler) GetHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.Handle(c)
	}
}
