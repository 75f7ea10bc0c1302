package repository

import (
	"context"
	"errors"
	"fmt"

	"edutest-bot/internal/domain/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository — реализация хранилища записей доступа поверх PostgreSQL.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository создает новый экземпляр UserRepository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `tg_id, full_name, telegram_username, approved, current_state, registered_at, updated_at`

// GetByTelegramID возвращает запись пользователя или nil, если её нет.
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*model.AccessEntry, error) {
	var entry model.AccessEntry
	err := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE tg_id=$1`, telegramID).
		Scan(&entry.TelegramID, &entry.FullName, &entry.Username, &entry.Approved,
			&entry.CurrentState, &entry.RegisteredAt, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by telegram id: %w", err)
	}
	return &entry, nil
}

// CreateUser регистрирует нового пользователя со статусом «не подтверждён».
func (r *UserRepository) CreateUser(ctx context.Context, telegramID int64, username, fullName, state string) (*model.AccessEntry, error) {
	var entry model.AccessEntry
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (tg_id, telegram_username, full_name, current_state)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tg_id) DO UPDATE SET telegram_username = EXCLUDED.telegram_username,
			updated_at = CURRENT_TIMESTAMP
		RETURNING `+userColumns,
		telegramID, username, fullName, state).
		Scan(&entry.TelegramID, &entry.FullName, &entry.Username, &entry.Approved,
			&entry.CurrentState, &entry.RegisteredAt, &entry.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &entry, nil
}

// SetFullName сохраняет имя и закрывает регистрационный диалог.
func (r *UserRepository) SetFullName(ctx context.Context, telegramID int64, fullName string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET full_name=$1, current_state='', updated_at=CURRENT_TIMESTAMP WHERE tg_id=$2`,
		fullName, telegramID)
	if err != nil {
		return fmt.Errorf("failed to set user name: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

// SetApproved выставляет флаг подтверждения. Операция идемпотентна:
// повторное подтверждение уже подтверждённого пользователя ничего не меняет.
func (r *UserRepository) SetApproved(ctx context.Context, telegramID int64, approved bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET approved=$1, updated_at=CURRENT_TIMESTAMP WHERE tg_id=$2`,
		approved, telegramID)
	if err != nil {
		return fmt.Errorf("failed to set approved flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

// SetState обновляет состояние регистрационного диалога.
func (r *UserRepository) SetState(ctx context.Context, telegramID int64, state string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET current_state=$1, updated_at=CURRENT_TIMESTAMP WHERE tg_id=$2`,
		state, telegramID)
	if err != nil {
		return fmt.Errorf("failed to set user state: %w", err)
	}
	return nil
}

// ListPending возвращает пользователей, ожидающих подтверждения.
func (r *UserRepository) ListPending(ctx context.Context) ([]model.AccessEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE approved = FALSE ORDER BY registered_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending users: %w", err)
	}
	defer rows.Close()

	var pending []model.AccessEntry
	for rows.Next() {
		var entry model.AccessEntry
		if err := rows.Scan(&entry.TelegramID, &entry.FullName, &entry.Username, &entry.Approved,
			&entry.CurrentState, &entry.RegisteredAt, &entry.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending user: %w", err)
		}
		pending = append(pending, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate over rows: %w", err)
	}
	return pending, nil
}
