package idempotency

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	orderDomain "github.com/davicafu/minicommerce/internal/order/domain"
)

// RedisStore implementa el lock consultivo de idempotencia sobre Redis.
// SETNX con TTL: si el dueño muere, la clave expira sola, así que este lock
// nunca sustituye a la restricción UNIQUE del almacén.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

var _ orderDomain.IdempotencyStore = (*RedisStore)(nil)

// Acquire hace set-if-absent con el valor "processing".
func (s *RedisStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, orderDomain.IdemValueProcessing, ttl).Result()
}

// Get devuelve "" en miss, igual que si la clave hubiera expirado.
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", err
	}
	return v, nil
}

// SetResult sobrescribe el lock con el valor completado.
func (s *RedisStore) SetResult(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}
