package memory

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores records as fields of a single hash.
type RedisBackend struct {
	rdb *redis.Client
	key string
}

func NewRedisBackend(rdb *redis.Client, key string) *RedisBackend {
	return &RedisBackend{rdb: rdb, key: key}
}

// DialRedis opens a client from a redis:// URL.
func DialRedis(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}

func (b *RedisBackend) Load(ctx context.Context) (map[string][]byte, error) {
	fields, err := b.rdb.HGetAll(ctx, b.key).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(fields))
	for k, v := range fields {
		out[k] = []byte(v)
	}
	return out, nil
}

func (b *RedisBackend) Save(ctx context.Context, put map[string][]byte, del []string) error {
	_, err := b.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if len(del) > 0 {
			p.HDel(ctx, b.key, del...)
		}
		if len(put) > 0 {
			values := make([]any, 0, 2*len(put))
			for k, v := range put {
				values = append(values, k, v)
			}
			p.HSet(ctx, b.key, values...)
		}
		return nil
	})
	return err
}

// Close is a no-op; the client is owned by the caller.
func (b *RedisBackend) Close() error { return nil }
