package kv

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const minTTL = time.Millisecond

const compareAndSwapScript = `
local cur = redis.call("GET", KEYS[1])
if cur == false then
  return 0
end
if cur ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`

const compareAndDeleteScript = `
local cur = redis.call("GET", KEYS[1])
if cur == false then
  return 0
end
if cur ~= ARGV[1] then
  return 0
end
redis.call("DEL", KEYS[1])
return 1
`

var (
	compareAndSwapLua   = redis.NewScript(compareAndSwapScript)
	compareAndDeleteLua = redis.NewScript(compareAndDeleteScript)
)

type redisStore struct {
	client *redis.Client
}

// NewRedis returns a Store backed by a shared Redis instance. Safe for
// multiple engine instances pointing at the same backend.
func NewRedis(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < minTTL {
		ttl = minTTL
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return data, nil
}

func (s *redisStore) TakeAndDelete(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.GetDel(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return data, nil
}

func (s *redisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *redisStore) CompareAndSwap(ctx context.Context, key string, expect, next []byte, ttl time.Duration) (bool, error) {
	if ttl < minTTL {
		ttl = minTTL
	}
	res, err := compareAndSwapLua.Run(ctx, s.client,
		[]string{key},
		string(expect),
		string(next),
		strconv.FormatInt(ttl.Milliseconds(), 10),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return res == 1, nil
}

func (s *redisStore) CompareAndDelete(ctx context.Context, key string, expect []byte) (bool, error) {
	res, err := compareAndDeleteLua.Run(ctx, s.client,
		[]string{key},
		string(expect),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return res == 1, nil
}
