package session

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jobtrack/cli/internal/models"
)

const (
	fieldToken = "token"
	fieldUser  = "user"
)

// RedisStore keeps the credential in a single redis hash so that both
// halves are written by one HSET and removed by one DEL
type RedisStore struct {
	rdb *redis.Client
	key string
}

// NewRedisStore creates a store using the hash "<prefix>:credential"
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "jobtrack"
	}
	return &RedisStore{rdb: rdb, key: prefix + ":credential"}
}

func (r *RedisStore) Store(ctx context.Context, token string, user *models.User) error {
	if err := checkCredential(token, user); err != nil {
		return err
	}
	raw, err := encodeUser(user)
	if err != nil {
		return err
	}
	if err := r.rdb.HSet(ctx, r.key, fieldToken, token, fieldUser, raw).Err(); err != nil {
		return fmt.Errorf("redis store credential: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.rdb.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis clear credential: %w", err)
	}
	return nil
}

func (r *RedisStore) Read(ctx context.Context) (Credential, error) {
	vals, err := r.rdb.HMGet(ctx, r.key, fieldToken, fieldUser).Result()
	if err != nil {
		return Credential{}, fmt.Errorf("redis read credential: %w", err)
	}
	token, _ := vals[0].(string)
	user, _ := vals[1].(string)
	return assemble(token, user), nil
}

func (r *RedisStore) IsAuthenticated(ctx context.Context) bool {
	token, err := r.rdb.HGet(ctx, r.key, fieldToken).Result()
	return err == nil && token != ""
}
