package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// RevocationList remembers bearer token ids (jti) that were logged out before
// they expired. Entries only need to live until the token's own expiry.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, exp time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryRevocationList is a single-process revocation list
type MemoryRevocationList struct {
	revoked *cache.Cache
}

var _ RevocationList = (*MemoryRevocationList)(nil)

func NewMemoryRevocationList(cleanupInterval time.Duration) *MemoryRevocationList {
	return &MemoryRevocationList{revoked: cache.New(cache.NoExpiration, cleanupInterval)}
}

func (l *MemoryRevocationList) Revoke(_ context.Context, jti string, exp time.Time) error {
	ttl := exp.Sub(NowTimeFunc())
	if jti == "" || ttl <= 0 {
		return nil
	}
	l.revoked.Set(jti, struct{}{}, ttl)
	return nil
}

func (l *MemoryRevocationList) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, found := l.revoked.Get(jti)
	return found, nil
}

// RedisRevocationList shares revocations between instances
type RedisRevocationList struct {
	client redis.UniversalClient
	prefix string
}

var _ RevocationList = (*RedisRevocationList)(nil)

func NewRedisRevocationList(client redis.UniversalClient) *RedisRevocationList {
	return &RedisRevocationList{client: client, prefix: "revoked"}
}

func (l *RedisRevocationList) Revoke(ctx context.Context, jti string, exp time.Time) error {
	ttl := exp.Sub(NowTimeFunc())
	if jti == "" || ttl <= 0 {
		return nil
	}
	if err := l.client.Set(ctx, l.prefix+":"+jti, 1, ttl).Err(); err != nil {
		return fmt.Errorf("[RedisRevocationList Revoke] %w", err)
	}
	return nil
}

func (l *RedisRevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := l.client.Get(ctx, l.prefix+":"+jti).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("[RedisRevocationList IsRevoked] %w", err)
	}
	return true, nil
}
