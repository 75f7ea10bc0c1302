package abort_handler

import (
	"edutest-bot/internal/app/handlers/telegram/sender"
	"edutest-bot/internal/domain/dispatch"

	"gopkg.in/telebot.v4"
)

// AbortHandler структура для обработки команды /abort
type AbortHandler struct {
	dispatcher *dispatch.Dispatcher
}

// NewAbortHandler возвращает структуру обработчика
func NewAbortHandler(dispatcher *dispatch.Dispatcher) *AbortHandler {
	return &AbortHandler{dispatcher: dispatcher}
}

// Handle прерывает активный тест. /abort без аргумента прерывает
// единственную активную сессию, /abort <id> — сессию по конкретному банку.
func (h *AbortHandler) Handle(c telebot.Context) error {
	s := c.Sender()
	if s == nil {
		return nil
	}
	bankID := ""
	if args := c.Args(); len(args) > 0 {
		bankID = args[0]
	}
	return sender.Dispatch(c, h.dispatcher, dispatch.Abort{UserID: s.ID, BankID: bankID})
}

// GetHandlerFunc возвращает обработчик в формате telebot.HandlerFunc
func (h *AbortHandler) GetHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.Handle(c)
	}
}
