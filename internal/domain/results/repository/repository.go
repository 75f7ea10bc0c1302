package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"edutest-bot/internal/domain/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ResultRepository — журнальное хранилище результатов поверх PostgreSQL.
// Строки только добавляются; обновления и удаления ядром не выполняются.
type ResultRepository struct {
	db *pgxpool.Pool
}

// NewResultRepository создает новый экземпляр ResultRepository.
func NewResultRepository(db *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{db: db}
}

// Append записывает результат завершённой сессии и возвращает его
// идентификатор. Возврат без ошибки гарантирует долговечность записи.
func (r *ResultRepository) Append(ctx context.Context, res model.Result) (int64, error) {
	details, err := json.Marshal(res.Details)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal result details: %w", err)
	}

	var id int64
	err = r.db.QueryRow(ctx, `
		INSERT INTO results (tg_id, bank_id, score, correct_count, total, duration_ms, completed_at, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		res.UserID, res.BankID, res.Score, res.CorrectCount, res.Total,
		res.Duration.Milliseconds(), res.CompletedAt, details).
		Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to append result: %w", err)
	}
	return id, nil
}

const resultColumns = `r.id, r.tg_id, COALESCE(u.full_name, ''), r.bank_id, r.score,
		r.correct_count, r.total, r.duration_ms, r.completed_at`

// QueryByBank возвращает все результаты по банку (для табло) вместе с
// именами пользователей.
func (r *ResultRepository) QueryByBank(ctx context.Context, bankID string) ([]model.Result, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+resultColumns+`
		FROM results r
		LEFT JOIN users u ON u.tg_id = r.tg_id
		WHERE r.bank_id = $1
		ORDER BY r.id`, bankID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results by bank: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

// QueryByUser возвращает последние результаты пользователя (история /score).
func (r *ResultRepository) QueryByUser(ctx context.Context, userID int64, limit int) ([]model.Result, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+resultColumns+`
		FROM results r
		LEFT JOIN users u ON u.tg_id = r.tg_id
		WHERE r.tg_id = $1
		ORDER BY r.completed_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query results by user: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

// rowScanner покрывает pgx.Rows для scanResults.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanResults(rows rowScanner) ([]model.Result, error) {
	var out []model.Result
	for rows.Next() {
		var res model.Result
		var durationMs int64
		var completedAt time.Time
		if err := rows.Scan(&res.ID, &res.UserID, &res.UserName, &res.BankID, &res.Score,
			&res.CorrectCount, &res.Total, &durationMs, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		res.Duration = time.Duration(durationMs) * time.Millisecond
		res.CompletedAt = completedAt
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate over rows: %w", err)
	}
	return out, nil
}
