package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/saltoplay/platform/internal/oauth/domain"
)

const accessTokenKey = "oauth:at:"

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// TTL caps how long an entry lives. Entries never outlive the token.
	TTL time.Duration
}

// Redis is a TokenCache backed by go-redis.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func NewRedis(cfg RedisConfig) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Redis{rdb: rdb, ttl: cfg.TTL, now: time.Now}
}

// cachedAccessToken is the JSON shape stored in redis.
type cachedAccessToken struct {
	ID             string    `json:"id"`
	ClientID       string    `json:"client_id"`
	UserID         string    `json:"user_id"`
	Scopes         []string  `json:"scopes"`
	RefreshTokenID string    `json:"refresh_token_id,omitempty"`
	ExpiresAt      time.Time `json:"expires_at"`
	CreatedAt      time.Time `json:"created_at"`
}

func (c *Redis) GetAccessToken(ctx context.Context, hash string) (domain.AccessToken, error) {
	raw, err := c.rdb.Get(ctx, accessTokenKey+hash).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.AccessToken{}, ErrMiss
	}
	if err != nil {
		return domain.AccessToken{}, fmt.Errorf("cache get: %w", err)
	}

	var v cachedAccessToken
	if err := json.Unmarshal(raw, &v); err != nil {
		return domain.AccessToken{}, fmt.Errorf("cache decode: %w", err)
	}

	return domain.AccessToken{
		ID:             v.ID,
		TokenHash:      hash,
		ClientID:       v.ClientID,
		UserID:         v.UserID,
		Scopes:         v.Scopes,
		RefreshTokenID: v.RefreshTokenID,
		ExpiresAt:      v.ExpiresAt,
		CreatedAt:      v.CreatedAt,
	}, nil
}

func (c *Redis) SetAccessToken(ctx context.Context, t domain.AccessToken) error {
	ttl := min(c.ttl, t.ExpiresAt.Sub(c.now()))
	if ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(cachedAccessToken{
		ID:             t.ID,
		ClientID:       t.ClientID,
		UserID:         t.UserID,
		Scopes:         t.Scopes,
		RefreshTokenID: t.RefreshTokenID,
		ExpiresAt:      t.ExpiresAt,
		CreatedAt:      t.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}

	return c.rdb.Set(ctx, accessTokenKey+t.TokenHash, raw, ttl).Err()
}

func (c *Redis) DeleteAccessTokens(ctx context.Context, hashes ...string) error {
	if len(hashes) == 0 {
		return nil
	}
	keys := make([]string, len(hashes))
	for i, h := range hashes {
		keys[i] = accessTokenKey + h
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *Redis) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Redis) Close() error {
	return c.rdb.Close()
}
