package score_handler

import (
	"edutest-bot/internal/app/handlers/telegram/sender"
	"edutest-bot/internal/domain/dispatch"

	"gopkg.in/telebot.v4"
)

// ScoreHandler структура для обработки команд /score, /leaderboard и /help
type ScoreHandler struct {
	dispatcher *dispatch.Dispatcher
}

// NewScoreHandler возвращает структуру обработчика
func NewScoreHandler(dispatcher *dispatch.Dispatcher) *ScoreHandler {
	return &ScoreHandler{dispatcher: dispatcher}
}

// HandleScore показывает историю результатов пользователя.
func (h *ScoreHandler) HandleScore(c telebot.Context) error {
	s := c.Sender()
	if s == nil {
		return nil
	}
	return sender.Dispatch(c, h.dispatcher, dispatch.Score{UserID: s.ID})
}

// HandleLeaderboard показывает таблицу лидеров. /leaderboard без аргумента
// предлагает выбрать банк.
func (h *ScoreHandler) HandleLeaderboard(c telebot.Context) error {
	s := c.Sender()
	if s == nil {
		return nil
	}
	bankID := ""
	if args := c.Args(); len(args) > 0 {
		bankID = args[0]
	}
	return sender.Dispatch(c, h.dispatcher, dispatch.Leaderboard{UserID: s.ID, BankID: bankID})
}

// HandleHelp показывает список команд.
func (h *ScoreHandler) HandleHelp(c telebot.Context) error {
	s := c.Sender()
	if s == nil {
		return nil
	}
	return sender.Dispatch(c, h.dispatcher, dispatch.Help{UserID: s.ID})
}

// GetScoreHandlerFunc возвращает обработчик /score в формате telebot.HandlerFunc
func (h *ScoreHandler) GetScoreHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.HandleScore(c)
	}
}

// GetLeaderboardHandlerFunc возвращает обработчик /leaderboard в формате telebot.HandlerFunc
func (h *ScoreHandler) GetLeaderboardHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.HandleLeaderboard(c)
	}
}

// GetHelpHandlerFunc возвращает обработчик /help в формате telebot.HandlerFunc
func (h *ScoreHandler) GetHelpHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.HandleHelp(c)
	}
}
