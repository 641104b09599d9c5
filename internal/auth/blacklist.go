package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Blacklist — список отозванных идентификаторов токенов (jti).
// Попавший в список jti никогда больше не считается действительным.
type Blacklist interface {
	// Consume атомарно добавляет jti в список. Возвращает false, если
	// jti уже был в списке - это и есть проигрыш гонки при
	// одновременной ротации одного refresh-токена.
	Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error)

	// Contains проверяет членство за O(1)
	Contains(ctx context.Context, jti string) (bool, error)
}

// RedisBlacklist хранит отозванные jti в Redis с TTL, равным остатку
// жизни токена: после естественного истечения запись не нужна.
type RedisBlacklist struct {
	client *redis.Client
	prefix string
}

func NewRedisBlacklist(client *redis.Client) *RedisBlacklist {
	return &RedisBlacklist{
		client: client,
		prefix: "blacklist:",
	}
}

func (b *RedisBlacklist) Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		// Токен уже истек; считаем его потребленным
		return false, nil
	}
	// SETNX атомарен, второй конкурирующий вызов получает false
	return b.client.SetNX(ctx, b.prefix+jti, 1, ttl).Result()
}

func (b *RedisBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := b.client.Exists(ctx, b.prefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
