package service

import (
	"context"
	"fmt"
	"strings"

	"edutest-bot/internal/domain/model"
)

// UserStore — хранилище записей доступа, потребляемое шлюзом.
// Конкретная реализация — pgx-репозиторий; в тестах подставляется фейк.
type UserStore interface {
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.AccessEntry, error)
	CreateUser(ctx context.Context, telegramID int64, username, fullName, state string) (*model.AccessEntry, error)
	SetFullName(ctx context.Context, telegramID int64, fullName string) error
	SetApproved(ctx context.Context, telegramID int64, approved bool) error
	SetState(ctx context.Context, telegramID int64, state string) error
	ListPending(ctx context.Context) ([]model.AccessEntry, error)
}

// AccessService — шлюз доступа: регистрация, подтверждение и роли.
// Администраторы задаются конфигурацией при старте процесса и не меняются
// в рантайме; пути самоподтверждения не существует.
type AccessService struct {
	store  UserStore
	admins map[int64]struct{}
}

// NewAccessService создает новый экземпляр AccessService.
func NewAccessService(store UserStore, adminIDs []int64) *AccessService {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &AccessService{store: store, admins: admins}
}

// IsAdmin отражает статическую административную конфигурацию.
func (s *AccessService) IsAdmin(userID int64) bool {
	_, ok := s.admins[userID]
	return ok
}

// IsApproved сообщает, подтверждён ли доступ пользователя к тестам.
// Администраторы считаются подтверждёнными всегда.
func (s *AccessService) IsApproved(ctx context.Context, userID int64) (bool, error) {
	if s.IsAdmin(userID) {
		return true, nil
	}
	entry, err := s.store.GetByTelegramID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get user: %w", err)
	}
	if entry == nil {
		return false, nil
	}
	return entry.Approved, nil
}

// EnsureUser возвращает запись пользователя, создавая её при первом
// обращении. Новый пользователь без имени попадает в регистрационный диалог.
func (s *AccessService) EnsureUser(ctx context.Context, telegramID int64, username, firstName string) (*model.AccessEntry, error) {
	entry, err := s.store.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if entry != nil {
		return entry, nil
	}

	entry, err = s.store.CreateUser(ctx, telegramID, username, "", model.StateAwaitingName)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return entry, nil
}

// SetFullName принимает имя из регистрационного диалога. Требуются минимум
// два слова (имя и фамилия), как в исходном сценарии регистрации.
func (s *AccessService) SetFullName(ctx context.Context, telegramID int64, fullName string) error {
	name := strings.TrimSpace(fullName)
	if len(strings.Fields(name)) < 2 {
		return fmt.Errorf("full name must contain at least two words")
	}
	if err := s.store.SetFullName(ctx, telegramID, name); err != nil {
		return fmt.Errorf("failed to set full name: %w", err)
	}
	return nil
}

// Approve подтверждает доступ пользователя. Действие доступно только
// администраторам; подтверждение уже подтверждённого пользователя — no-op.
func (s *AccessService) Approve(ctx context.Context, adminID, targetID int64) error {
	if !s.IsAdmin(adminID) {
		return model.ErrNotAdmin
	}
	if err := s.store.SetApproved(ctx, targetID, true); err != nil {
		return err
	}
	return nil
}

// Ban отзывает подтверждение доступа.
func (s *AccessService) Ban(ctx context.Context, adminID, targetID int64) error {
	if !s.IsAdmin(adminID) {
		return model.ErrNotAdmin
	}
	if err := s.store.SetApproved(ctx, targetID, false); err != nil {
		return err
	}
	return nil
}

// Pending возвращает заявки, ожидающие подтверждения. Только для
// администраторов.
func (s *AccessService) Pending(ctx context.Context, adminID int64) ([]model.AccessEntry, error) {
	if !s.IsAdmin(adminID) {
		return nil, model.ErrNotAdmin
	}
	return s.store.ListPending(ctx)
}

// PendingAll возвращает заявки без проверки роли — для административного
// HTTP-интерфейса, где роль проверяет транспортный слой.
func (s *AccessService) PendingAll(ctx context.Context) ([]model.AccessEntry, error) {
	return s.store.ListPending(ctx)
}

// Get возвращает запись пользователя (nil, если не зарегистрирован).
func (s *AccessService) Get(ctx context.Context, telegramID int64) (*model.AccessEntry, error) {
	return s.store.GetByTelegramID(ctx, telegramID)
}

// SetState переключает состояние регистрационного диалога.
func (s *AccessService) SetState(ctx context.Context, telegramID int64, state string) error {
	return s.store.SetState(ctx, telegramID, state)
}
