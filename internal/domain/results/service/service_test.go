package service

import (
	"context"
	"reflect"
	"testing"
	"time"

	"edutest-bot/internal/domain/model"
)

var base = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func result(user int64, name string, score int, dur time.Duration, at time.Time) model.Result {
	return model.Result{
		UserID:      user,
		UserName:    name,
		BankID:      "B1",
		Score:       score,
		Total:       10,
		Duration:    dur,
		CompletedAt: at,
	}
}

// TestAggregate_BestPerUser: из нескольких попыток пользователя в табло
// попадает лучшая.
func TestAggregate_BestPerUser(t *testing.T) {
	results := []model.Result{
		result(1, "Олена", 5, 3*time.Minute, base),
		result(1, "Олена", 8, 4*time.Minute, base.Add(time.Hour)),
		result(2, "Іван", 7, 2*time.Minute, base),
	}

	entries := Aggregate(results, 10)
	if len(entries) != 2 {
		t.Fatalf("ожидалось 2 строки, получено %d", len(entries))
	}
	if entries[0].UserID != 1 || entries[0].BestScore != 8 {
		t.Errorf("первым должен идти пользователь 1 с баллом 8: %+v", entries[0])
	}
	if entries[1].UserID != 2 || entries[1].BestScore != 7 {
		t.Errorf("вторым должен идти пользователь 2 с баллом 7: %+v", entries[1])
	}
}

// TestAggregate_TieBreaks: равный балл — короче длительность, затем раньше
// завершение, затем меньший идентификатор.
func TestAggregate_TieBreaks(t *testing.T) {
	results := []model.Result{
		result(3, "в", 5, 2*time.Minute, base.Add(time.Minute)),
		result(1, "а", 5, 2*time.Minute, base),
		result(2, "б", 5, time.Minute, base.Add(2*time.Minute)),
	}

	entries := Aggregate(results, 10)
	var order []int64
	for _, e := range entries {
		order = append(order, e.UserID)
	}
	// Пользователь 2 — самая короткая попытка; 1 раньше 3 при равной длительности.
	want := []int64{2, 1, 3}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("ожидался порядок %v, получено %v", want, order)
	}
}

// TestAggregate_Deterministic: на одинаковых данных порядок не зависит от
// порядка входа и повторных вызовов.
func TestAggregate_Deterministic(t *testing.T) {
	a := []model.Result{
		result(1, "а", 5, time.Minute, base),
		result(2, "б", 5, time.Minute, base),
		result(3, "в", 7, time.Minute, base),
	}
	b := []model.Result{a[2], a[0], a[1]}

	first := Aggregate(a, 10)
	second := Aggregate(b, 10)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("порядок должен быть детерминированным:\n%v\n%v", first, second)
	}
}

// TestAggregate_Limit: возвращается не более limit строк.
func TestAggregate_Limit(t *testing.T) {
	results := []model.Result{
		result(1, "а", 9, time.Minute, base),
		result(2, "б", 8, time.Minute, base),
		result(3, "в", 7, time.Minute, base),
	}
	entries := Aggregate(results, 2)
	if len(entries) != 2 {
		t.Fatalf("ожидалось 2 строки, получено %d", len(entries))
	}
	if entries[0].UserID != 1 || entries[1].UserID != 2 {
		t.Errorf("лимит должен отрезать хвост, а не голову: %+v", entries)
	}
}

// fakeStore для проверки Rank поверх интерфейса хранилища.
type fakeStore struct {
	byBank map[string][]model.Result
}

func (f *fakeStore) QueryByBank(_ context.Context, bankID string) ([]model.Result, error) {
	return f.byBank[bankID], nil
}

func (f *fakeStore) QueryByUser(_ context.Context, userID int64, limit int) ([]model.Result, error) {
	var out []model.Result
	for _, rs := range f.byBank {
		for _, r := range rs {
			if r.UserID == userID {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

// TestRank_EmptyBank: пустой банк даёт пустое табло без ошибки.
func TestRank_EmptyBank(t *testing.T) {
	svc := NewResultService(&fakeStore{byBank: map[string][]model.Result{}})
	entries, err := svc.Rank(context.Background(), "B1", 10)
	if err != nil {
		t.Fatalf("Rank вернул ошибку: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("ожидалось пустое табло, получено %d строк", len(entries))
	}
}
