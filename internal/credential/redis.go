package credential

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps credentials in Redis under <prefix>:<scope>:<key>.
// Entries carry no TTL.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore returns a store for one scope.
func NewRedisStore(rdb *redis.Client, prefix, scope string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix + ":" + scope + ":"}
}

// RedisFactory returns a Factory over a shared client. A nil client makes
// every open fail so misconfiguration surfaces at launch.
func RedisFactory(rdb *redis.Client, prefix string) Factory {
	return func(scope string) (Store, error) {
		if rdb == nil {
			return nil, errors.New("credential: redis backend selected but redis is unavailable")
		}
		return NewRedisStore(rdb, prefix, scope), nil
	}
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := checkKey(key); err != nil {
		return "", false, err
	}
	v, err := r.rdb.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return r.rdb.Set(ctx, r.prefix+key, value, 0).Err()
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return r.rdb.Del(ctx, r.prefix+key).Err()
}
