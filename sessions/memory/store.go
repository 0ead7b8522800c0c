// Package memory is an in-process session store backed by go-cache.
package memory

import (
	"context"
	"hash/fnv"
	"maps"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	apperrors "github.com/jrsteele09/go-line-login/internal/errors"
	"github.com/jrsteele09/go-line-login/sessions"
)

const lockStripes = 64

type Store struct {
	cache *gocache.Cache
	locks [lockStripes]sync.Mutex
}

var _ sessions.Store = (*Store)(nil)

// New creates a store whose entries expire after defaultTTL unless a Save sets another ttl.
func New(defaultTTL, cleanupInterval time.Duration) *Store {
	return &Store{cache: gocache.New(defaultTTL, cleanupInterval)}
}

func (s *Store) lock(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &s.locks[h.Sum32()%lockStripes]
}

func (s *Store) Load(ctx context.Context, id string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	return maps.Clone(v.(map[string]string)), nil
}

func (s *Store) Save(ctx context.Context, id string, set map[string]string, unset []string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	values := make(map[string]string)
	if v, ok := s.cache.Get(id); ok {
		maps.Copy(values, v.(map[string]string))
	}
	maps.Copy(values, set)
	for _, k := range unset {
		delete(values, k)
	}
	s.cache.Set(id, values, ttl)
	return nil
}

func (s *Store) Destroy(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.cache.Delete(id)
	return nil
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}
