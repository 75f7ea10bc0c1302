package service

import (
	"context"
	"fmt"
	"sort"

	"edutest-bot/internal/domain/model"
)

// ResultStore — интерфейс хранилища результатов, потребляемый агрегатором.
type ResultStore interface {
	QueryByBank(ctx context.Context, bankID string) ([]model.Result, error)
	QueryByUser(ctx context.Context, userID int64, limit int) ([]model.Result, error)
}

// ResultService строит табло и историю поверх журнального хранилища.
// Чистое чтение: никаких побочных эффектов.
type ResultService struct {
	store ResultStore
}

// NewResultService создает новый экземпляр ResultService.
func NewResultService(store ResultStore) *ResultService {
	return &ResultService{store: store}
}

// Rank возвращает не более limit строк табло по банку: лучший результат
// каждого пользователя, упорядоченный детерминированно.
func (s *ResultService) Rank(ctx context.Context, bankID string, limit int) ([]model.LeaderboardEntry, error) {
	results, err := s.store.QueryByBank(ctx, bankID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	return Aggregate(results, limit), nil
}

// History возвращает последние результаты пользователя.
func (s *ResultService) History(ctx context.Context, userID int64, limit int) ([]model.Result, error) {
	results, err := s.store.QueryByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query user results: %w", err)
	}
	return results, nil
}

// Aggregate сворачивает результаты в табло. Для каждого пользователя берётся
// лучший балл по всем попыткам; равные баллы упорядочиваются меньшей
// длительностью, затем более ранним временем завершения, затем
// идентификатором пользователя — порядок полностью детерминирован и не
// зависит от порядка входных данных.
func Aggregate(results []model.Result, limit int) []model.LeaderboardEntry {
	best := make(map[int64]model.LeaderboardEntry)
	for _, r := range results {
		entry := model.LeaderboardEntry{
			UserID:       r.UserID,
			DisplayName:  r.UserName,
			BestScore:    r.Score,
			BestDuration: r.Duration,
			CompletedAt:  r.CompletedAt,
		}
		cur, ok := best[r.UserID]
		if !ok || better(entry, cur) {
			best[r.UserID] = entry
		}
	}

	entries := make([]model.LeaderboardEntry, 0, len(best))
	for _, e := range best {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return better(entries[i], entries[j]) })

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// better сообщает, стоит ли a выше b в табло.
func better(a, b model.LeaderboardEntry) bool {
	if a.BestScore != b.BestScore {
		return a.BestScore > b.BestScore
	}
	if a.BestDuration != b.BestDuration {
		return a.BestDuration < b.BestDuration
	}
	if !a.CompletedAt.Equal(b.CompletedAt) {
		return a.CompletedAt.Before(b.CompletedAt)
	}
	return a.UserID < b.UserID
}
