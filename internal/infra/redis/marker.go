package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Marker — межэкземплярная отметка активной сессии в Redis. Ключ живёт,
// пока идёт попытка, и страхует запрет на параллельные попытки, когда
// несколько реплик бота делят одну базу. TTL не даёт ключу зависнуть
// навсегда после падения процесса.
type Marker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewMarker создает новый экземпляр Marker.
func NewMarker(client *redis.Client, ttl time.Duration) *Marker {
	return &Marker{client: client, ttl: ttl}
}

// Acquire ставит отметку активной сессии. Возвращает false, если отметка
// уже стоит (попытка идёт в другом экземпляре).
func (m *Marker) Acquire(ctx context.Context, userID int64, bankID string) (bool, error) {
	ok, err := m.client.SetNX(ctx, m.key(userID, bankID), "1", m.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set session marker: %w", err)
	}
	return ok, nil
}

// Release снимает отметку. Отсутствующий ключ не считается ошибкой.
func (m *Marker) Release(ctx context.Context, userID int64, bankID string) error {
	if err := m.client.Del(ctx, m.key(userID, bankID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session marker: %w", err)
	}
	return nil
}

func (m *Marker) key(userID int64, bankID string) string {
	return fmt.Sprintf("edutest:active:%d:%s", userID, bankID)
}
