package sender

import (
	"context"
	"log"

	"edutest-bot/internal/domain/dispatch"

	"gopkg.in/telebot.v4"
)

// Dispatch выполняет команду и доставляет ответ отправителю. Уведомления
// третьим лицам (например, студенту после подтверждения) отправляются
// отдельными сообщениями; их недоставка не считается ошибкой обработчика.
func Dispatch(c telebot.Context, d *dispatch.Dispatcher, cmd dispatch.Command) error {
	reply, notes, err := d.Dispatch(context.Background(), cmd)
	if err != nil {
		log.Printf("dispatch failed: %v", err)
		return c.Send("Что-то пошло не так. Попробуйте позже.")
	}

	for _, note := range notes {
		if _, err := c.Bot().Send(&telebot.User{ID: note.UserID}, note.Text); err != nil {
			log.Printf("failed to notify user %d: %v", note.UserID, err)
		}
	}

	if reply.Text == "" {
		return nil
	}
	return Send(c, reply)
}

// Send доставляет Reply: для callback редактирует исходное сообщение,
// иначе отправляет новое.
func Send(c telebot.Context, reply dispatch.Reply) error {
	markup := Markup(reply.Buttons)

	if c.Callback() != nil {
		_ = c.Respond(&telebot.CallbackResponse{})
		if err := c.Edit(reply.Text, markup); err == nil {
			return nil
		}
		// Сообщение могло быть удалено или слишком старое для правки.
	}
	return c.Send(reply.Text, markup)
}

// Markup переводит транспортно-нейтральные кнопки в инлайн-клавиатуру.
func Markup(buttons [][]dispatch.Button) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	rows := make([][]telebot.InlineButton, 0, len(buttons))
	for _, row := range buttons {
		line := make([]telebot.InlineButton, 0, len(row))
		for _, b := range row {
			line = append(line, telebot.InlineButton{Text: b.Text, Data: b.Data})
		}
		rows = append(rows, line)
	}
	markup.InlineKeyboard = rows
	return markup
}
