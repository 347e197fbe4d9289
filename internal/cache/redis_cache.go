package cache

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	codeKeyPrefix    = "verification:"
	failureKeyPrefix = "verification_failures:"
)

// RedisCodeStore keeps verification codes in Redis and lets Redis expire them.
type RedisCodeStore struct {
	client *redis.Client
}

func NewRedisCodeStore(client *redis.Client) *RedisCodeStore {
	return &RedisCodeStore{client: client}
}

// Set stores code and clears the failures counted against the previous one.
func (s *RedisCodeStore) Set(ctx context.Context, key, code string, ttl time.Duration) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, codeKeyPrefix+key, code, ttl)
		pipe.Del(ctx, failureKeyPrefix+key)
		return nil
	})
	return err
}

func (s *RedisCodeStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, codeKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Fail counts a wrong guess. The counter expires with the code it belongs to.
func (s *RedisCodeStore) Fail(ctx context.Context, key string) (int, error) {
	ttl, err := s.client.PTTL(ctx, codeKeyPrefix+key).Result()
	if err != nil {
		return 0, err
	}
	if ttl <= 0 {
		return 0, nil
	}

	var failures *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		failures = pipe.Incr(ctx, failureKeyPrefix+key)
		pipe.PExpire(ctx, failureKeyPrefix+key, ttl)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(failures.Val()), nil
}

func (s *RedisCodeStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, codeKeyPrefix+key, failureKeyPrefix+key).Err()
}
