package callback_handler

import (
	"log"
	"strings"

	"edutest-bot/internal/app/handlers/telegram/sender"
	"edutest-bot/internal/domain/dispatch"

	"gopkg.in/telebot.v4"
)

// CallbackHandler структура для обработки нажатий инлайн-кнопок: выбор
// банка, ответы на вопросы, выбор банка для таблицы лидеров.
type CallbackHandler struct {
	dispatcher *dispatch.Dispatcher
}

// NewCallbackHandler возвращает структуру обработчика
func NewCallbackHandler(dispatcher *dispatch.Dispatcher) *CallbackHandler {
	return &CallbackHandler{dispatcher: dispatcher}
}

// Handle разбирает callback-данные в команду и выполняет её. Повреждённые
// данные молча игнорируются: кнопка могла остаться от старой версии сообщения.
func (h *CallbackHandler) Handle(c telebot.Context) error {
	s := c.Sender()
	cb := c.Callback()
	if s == nil || cb == nil {
		return nil
	}

	// Telegram добавляет к данным префиксный символ form feed.
	data := strings.TrimSpace(strings.ReplaceAll(cb.Data, "\f", ""))

	cmd, err := dispatch.ParseCallback(s.ID, data)
	if err != nil {
		log.Printf("ignoring callback: %v", err)
		return c.Respond(&telebot.CallbackResponse{})
	}
	return sender.Dispatch(c, h.dispatcher, cmd)
}

// GetHandlerFunc возвращает обработчик в формате telebot.HandlerFunc
func (h *CallbackHandler) GetHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.Handle(c)
	}
}
