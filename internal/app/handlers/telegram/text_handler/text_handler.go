package text_handler

import (
	"edutest-bot/internal/app/handlers/telegram/sender"
	"edutest-bot/internal/domain/dispatch"

	"gopkg.in/telebot.v4"
)

// TextHandler структура для обработки произвольного текста. Единственный
// сценарий с текстом — регистрационный диалог, где пользователь присылает
// имя и фамилию.
type TextHandler struct {
	dispatcher *dispatch.Dispatcher
}

// NewTextHandler возвращает структуру обработчика
func NewTextHandler(dispatcher *dispatch.Dispatcher) *TextHandler {
	return &TextHandler{dispatcher: dispatcher}
}

// Handle передаёт текст как имя в регистрационный диалог.
func (h *TextHandler) Handle(c telebot.Context) error {
	s := c.Sender()
	if s == nil {
		return nil
	}
	return sender.Dispatch(c, h.dispatcher, dispatch.SetName{
		UserID: s.ID,
		Name:   c.Text(),
	})
}

// GetHandlerFunc возвращает обработчик в формате telebot.HandlerFunc
func (h *TextHandler) GetHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.Handle(c)
	}
}
