package store

import (
	"context"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"havenai/internal/util"
)

const sessionKeyPrefix = "haven:session:"

// RedisSessionStore issues HS256-signed session tokens whose jti is kept
// in Redis with a TTL, so logout revokes a token before its exp.
type RedisSessionStore struct {
	client *redis.Client
	secret []byte
	ttl    time.Duration
}

// NewRedisSessionStore wraps an existing Redis client as a session store.
func NewRedisSessionStore(client *redis.Client, secret []byte, ttl time.Duration) (*RedisSessionStore, error) {
	if client == nil {
		return nil, fmt.Errorf("session store requires a redis client")
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("session secret required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSessionStore{
		client: client,
		secret: secret,
		ttl:    ttl,
	}, nil
}

// NewSession signs a token for the user and records its jti with TTL.
func (s *RedisSessionStore) NewSession(userID string) (string, error) {
	jti := util.NewID()
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.client.Set(ctx, sessionKeyPrefix+jti, userID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// UserIDByToken verifies the signature and claims, then checks the jti is
// still live in Redis. An invalid or revoked token resolves to not-found.
func (s *RedisSessionStore) UserIDByToken(token string) (string, bool, error) {
	claims, ok := s.parseClaims(token)
	if !ok {
		return "", false, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	userID, err := s.client.Get(ctx, sessionKeyPrefix+claims.ID).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if userID != claims.Subject {
		return "", false, nil
	}
	return userID, true, nil
}

// DeleteSession revokes the token's jti.
func (s *RedisSessionStore) DeleteSession(token string) error {
	claims, ok := s.parseClaims(token)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.client.Del(ctx, sessionKeyPrefix+claims.ID).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}

func (s *RedisSessionStore) parseClaims(token string) (*jwt.RegisteredClaims, bool) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, false
	}
	return claims, true
}
