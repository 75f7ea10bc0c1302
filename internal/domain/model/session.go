package model

import "time"

// SessionState — состояние попытки прохождения теста.
type SessionState string

const (
	// StateNotStarted — сессия создана, но вопросы ещё не выданы.
	StateNotStarted SessionState = "not_started"
	// StateInProgress — тест идёт, позиция указывает на текущий вопрос.
	StateInProgress SessionState = "in_progress"
	// StateCompletionPending — вопросы исчерпаны, но запись результата не удалась;
	// завершение повторяется до успеха.
	StateCompletionPending SessionState = "completion_pending"
	// StateCompleted — тест завершён, результат записан ровно один раз.
	StateCompleted SessionState = "completed"
	// StateAborted — тест прерван пользователем, результат не записывается.
	StateAborted SessionState = "aborted"
)

// RecordedAnswer — зафиксированный ответ на вопрос последовательности.
// Повторный ответ до продвижения позиции перезаписывает предыдущий
// (семантика «последняя запись побеждает»).
type RecordedAnswer struct {
	Option     int       `json:"option"`
	AnsweredAt time.Time `json:"answered_at"`
}

// SelectionMode определяет, как из банка составляется последовательность вопросов.
type SelectionMode string

const (
	// SelectionFull — весь банк в порядке банка.
	SelectionFull SelectionMode = "full"
	// SelectionRandomSubset — ограниченное случайное подмножество без повторов.
	SelectionRandomSubset SelectionMode = "random-subset"
)

// SelectionPolicy — конфигурационная поверхность движка сессий.
type SelectionPolicy struct {
	Mode                 SelectionMode
	SubsetSize           int
	PerQuestionTimeLimit time.Duration // 0 — без ограничения
}
