package shared

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenManager issues opaque bearer tokens backed by Redis.
type TokenManager struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type tokenPayload struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}

// NewTokenManager constructs a TokenManager.
func NewTokenManager(client *redis.Client, prefix string, ttl time.Duration) *TokenManager {
	if prefix == "" {
		prefix = "pressroom_token"
	}
	return &TokenManager{client: client, prefix: prefix, ttl: ttl}
}

// Issue creates a token for the actor and stores it with TTL.
func (tm *TokenManager) Issue(ctx context.Context, actor Actor) (string, error) {
	if tm == nil || tm.client == nil {
		return "", errors.New("token manager not initialised")
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	payload, err := json.Marshal(tokenPayload{UserID: actor.ID, Email: actor.Email})
	if err != nil {
		return "", err
	}
	if err := tm.client.Set(ctx, tm.redisKey(token), payload, tm.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve looks up the actor for a token.
func (tm *TokenManager) Resolve(ctx context.Context, token string) (*Actor, error) {
	if tm == nil || tm.client == nil {
		return nil, errors.New("token manager not initialised")
	}
	if token == "" {
		return nil, ErrTokenInvalid
	}
	raw, err := tm.client.Get(ctx, tm.redisKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	var payload tokenPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return &Actor{ID: payload.UserID, Email: payload.Email}, nil
}

// Revoke deletes a token.
func (tm *TokenManager) Revoke(ctx context.Context, token string) error {
	if tm == nil || tm.client == nil {
		return errors.New("token manager not initialised")
	}
	if token == "" {
		return nil
	}
	return tm.client.Del(ctx, tm.redisKey(token)).Err()
}

func (tm *TokenManager) redisKey(token string) string {
	return tm.prefix + ":" + token
}
