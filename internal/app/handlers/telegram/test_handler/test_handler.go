package test_handler

import (
	"edutest-bot/internal/app/handlers/telegram/sender"
	"edutest-bot/internal/domain/dispatch"

	"gopkg.in/telebot.v4"
)

// TestHandler структура для обработки команд /test и /banks
type TestHandler struct {
	dispatcher *dispatch.Dispatcher
}

// NewTestHandler возвращает структуру обработчика
func NewTestHandler(dispatcher *dispatch.Dispatcher) *TestHandler {
	return &TestHandler{dispatcher: dispatcher}
}

// HandleTest запускает тест. /test без аргумента показывает выбор банка,
// /test <id> запускает тест сразу.
func (h *TestHandler) HandleTest(c telebot.Context) error {
	s := c.Sender()
	if s == nil {
		return nil
	}
	bankID := ""
	if args := c.Args(); len(args) > 0 {
		bankID = args[0]
	}
	return sender.Dispatch(c, h.dispatcher, dispatch.BeginTest{UserID: s.ID, BankID: bankID})
}

// HandleBanks показывает список банков вопросов.
func (h *TestHandler) HandleBanks(c telebot.Context) error {
	s := c.Sender()
	if s == nil {
		return nil
	}
	return sender.Dispatch(c, h.dispatcher, dispatch.Banks{UserID: s.ID})
}

// GetTestHandlerFunc возвращает обработчик /test в формате telebot.HandlerFunc
func (h *TestHandler) GetTestHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.HandleTest(c)
	}
}

// GetBanksHandlerFunc возвращает обработчик /banks в формате telebot.HandlerFunc
func (h *TestHandler) GetBanksHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.HandleBanks(c)
	}
}
