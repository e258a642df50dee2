package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/go-redis/redis/v8"
)

// ErrLockNotObtained indica que outro processo detém o lock.
var ErrLockNotObtained = errors.New("lock não obtido")

// Lock é um lock obtido que deve ser liberado pelo detentor.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker obtém locks distribuídos com TTL.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// RedisLocker implementa Locker com bsm/redislock.
type RedisLocker struct {
	client *redislock.Client
}

// NewRedisLocker cria o Locker sobre o cliente Redis já conectado.
func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb)}
}

// Obtain tenta obter o lock uma única vez (sem retry). Retorna ErrLockNotObtained
// se a chave já estiver bloqueada.
func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	lock, err := l.client.Obtain(ctx, "lock:"+key, ttl, nil)
	if err == redislock.ErrNotObtained {
		return nil, ErrLockNotObtained
	}
	if err != nil {
		return nil, err
	}
	return lock, nil
}
