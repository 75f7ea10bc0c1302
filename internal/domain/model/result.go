package model

import "time"

// AnswerDetail — аудит одного вопроса в составе результата.
type AnswerDetail struct {
	QuestionID string `json:"question_id"`
	Chosen     int    `json:"chosen"` // -1, если вопрос остался без ответа
	Correct    int    `json:"correct"`
	OK         bool   `json:"ok"`
}

// Result — неизменяемая запись завершённой сессии. После записи в хранилище
// строка никогда не обновляется и не удаляется (аудиторский след).
type Result struct {
	ID           int64          `json:"id"`
	UserID       int64          `json:"user_id"`
	UserName     string         `json:"user_name,omitempty"` // заполняется выборкой, не хранится в строке
	BankID       string         `json:"bank_id"`
	Score        int            `json:"score"`   // взвешенная сумма
	CorrectCount int            `json:"correct"` // число верных ответов
	Total        int            `json:"total"`   // максимально возможный балл
	Duration     time.Duration  `json:"duration"`
	CompletedAt  time.Time      `json:"completed_at"`
	Details      []AnswerDetail `json:"details,omitempty"`
}

// LeaderboardEntry — строка табло: лучший результат пользователя по банку.
type LeaderboardEntry struct {
	UserID       int64         `json:"user_id"`
	DisplayName  string        `json:"display_name"`
	BestScore    int           `json:"best_score"`
	BestDuration time.Duration `json:"best_duration"`
	CompletedAt  time.Time     `json:"completed_at"`
}
