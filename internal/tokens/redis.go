package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"bankcards/internal/models"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "refresh:"

// redisClient is the subset of *redis.Client the store needs.
type redisClient interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type RedisStore struct {
	client redisClient
}

type redisValue struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewRedisStore(client redisClient) *RedisStore {
	return &RedisStore{client: client}
}

// Save stores the token with a TTL matching its expiry. Already expired
// tokens are not stored.
func (s *RedisStore) Save(ctx context.Context, token models.RefreshToken) error {
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(redisValue{UserID: token.UserID, ExpiresAt: token.ExpiresAt.UTC()})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, keyPrefix+token.TokenID, payload, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, tokenID string) (models.RefreshToken, error) {
	raw, err := s.client.Get(ctx, keyPrefix+tokenID).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.RefreshToken{}, ErrNotFound
	}
	if err != nil {
		return models.RefreshToken{}, err
	}
	var value redisValue
	if err := json.Unmarshal(raw, &value); err != nil {
		return models.RefreshToken{}, err
	}
	return models.RefreshToken{TokenID: tokenID, UserID: value.UserID, ExpiresAt: value.ExpiresAt}, nil
}

func (s *RedisStore) Delete(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Del(ctx, keyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
