// Package redis stores each session as a Redis hash so concurrent writers merge per field.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/jrsteele09/go-line-login/internal/errors"
	"github.com/jrsteele09/go-line-login/sessions"
)

const DefaultPrefix = "sess"

type Options struct {
	Addr     string
	Password string
	DB       int
}

// Connect opens a client and checks it answers a PING.
func Connect(ctx context.Context, opts Options) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("[redis Connect] ping %s failed: %w", opts.Addr, err)
	}
	return rdb, nil
}

type Store struct {
	client redis.UniversalClient
	prefix string
}

var _ sessions.Store = (*Store)(nil)

func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(id string) string {
	return s.prefix + ":" + id
}

func (s *Store) Load(ctx context.Context, id string) (map[string]string, error) {
	values, err := s.client.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("[redis Store Load] %w: %w", apperrors.ErrSessionIO, err)
	}
	if len(values) == 0 {
		return nil, apperrors.ErrSessionNotFound
	}
	return values, nil
}

// Save applies the field changes and the new expiry in one MULTI/EXEC.
func (s *Store) Save(ctx context.Context, id string, set map[string]string, unset []string, ttl time.Duration) error {
	key := s.key(id)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(set) > 0 {
			fields := make([]any, 0, 2*len(set))
			for k, v := range set {
				fields = append(fields, k, v)
			}
			pipe.HSet(ctx, key, fields...)
		}
		if len(unset) > 0 {
			pipe.HDel(ctx, key, unset...)
		}
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("[redis Store Save] %w: %w", apperrors.ErrSessionIO, err)
	}
	return nil
}

func (s *Store) Destroy(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("[redis Store Destroy] %w: %w", apperrors.ErrSessionIO, err)
	}
	return nil
}
