package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestMarker(t *testing.T) (*Marker, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewMarker(client, time.Minute), mr
}

// TestAcquireRelease: отметка ставится один раз и снимается.
func TestAcquireRelease(t *testing.T) {
	m, mr := newTestMarker(t)
	ctx := context.Background()

	ok, err := m.Acquire(ctx, 100, "B1")
	if err != nil || !ok {
		t.Fatalf("первый Acquire должен пройти: ok=%v err=%v", ok, err)
	}
	if !mr.Exists("edutest:active:100:B1") {
		t.Fatalf("ключ отметки должен существовать")
	}

	ok, err = m.Acquire(ctx, 100, "B1")
	if err != nil || ok {
		t.Fatalf("повторный Acquire должен вернуть false: ok=%v err=%v", ok, err)
	}

	if err := m.Release(ctx, 100, "B1"); err != nil {
		t.Fatalf("Release вернул ошибку: %v", err)
	}
	if mr.Exists("edutest:active:100:B1") {
		t.Fatalf("после Release ключ должен исчезнуть")
	}

	ok, err = m.Acquire(ctx, 100, "B1")
	if err != nil || !ok {
		t.Fatalf("после Release отметка снова доступна: ok=%v err=%v", ok, err)
	}
}

// TestAcquire_IndependentKeys: отметки разных пар (пользователь, банк)
// не пересекаются.
func TestAcquire_IndependentKeys(t *testing.T) {
	m, _ := newTestMarker(t)
	ctx := context.Background()

	if ok, _ := m.Acquire(ctx, 100, "B1"); !ok {
		t.Fatalf("первая пара должна захватиться")
	}
	if ok, _ := m.Acquire(ctx, 100, "B2"); !ok {
		t.Errorf("другой банк того же пользователя не должен блокироваться")
	}
	if ok, _ := m.Acquire(ctx, 200, "B1"); !ok {
		t.Errorf("тот же банк другого пользователя не должен блокироваться")
	}
}

// TestMarkerTTL: ключ имеет TTL, после истечения отметка снимается сама.
func TestMarkerTTL(t *testing.T) {
	m, mr := newTestMarker(t)
	ctx := context.Background()

	if ok, _ := m.Acquire(ctx, 100, "B1"); !ok {
		t.Fatalf("Acquire должен пройти")
	}
	mr.FastForward(2 * time.Minute)
	if ok, _ := m.Acquire(ctx, 100, "B1"); !ok {
		t.Errorf("после истечения TTL отметка должна освободиться")
	}
}
