package model

import "time"

// Состояния регистрационного диалога, хранящиеся в users.current_state.
const (
	StateAwaitingName = "awaiting_name"
	StateRegistered   = ""
)

// AccessEntry — запись о доступе пользователя к тестам. Подтверждение
// выдаёт только администратор; самоподтверждения не существует.
// Роль администратора задаётся конфигурацией, не базой.
type AccessEntry struct {
	TelegramID   int64     `json:"telegram_id"`
	FullName     string    `json:"full_name"`
	Username     string    `json:"telegram_username"`
	Approved     bool      `json:"approved"`
	CurrentState string    `json:"current_state,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
