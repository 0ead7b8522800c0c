package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-line-login/internal/config"
	"github.com/jrsteele09/go-line-login/ratelimit"
	"github.com/jrsteele09/go-line-login/sessions"
	"github.com/jrsteele09/go-line-login/sessions/memory"
	"github.com/jrsteele09/go-line-login/sessions/postgres"
	"github.com/jrsteele09/go-line-login/sessions/redis"
	"github.com/jrsteele09/go-line-login/token"
)

const (
	memoryCleanupInterval   = 10 * time.Minute
	postgresCleanupInterval = 15 * time.Minute
)

// backends holds the session store and rate limiters chosen by configuration.
type backends struct {
	store         sessions.Store
	globalLimiter ratelimit.Limiter
	authLimiter   ratelimit.Limiter
	revocations   token.RevocationList
	// cleanup runs until its context is cancelled; nil when the store expires entries itself
	cleanup func(ctx context.Context) error

	rdb *goredis.Client
	db  *sql.DB
}

func openBackends(ctx context.Context, c config.Config) (*backends, error) {
	b := &backends{}

	needRedis := c.GetSessionStore() == config.StoreRedis || c.GetRateLimitStore() == config.StoreRedis
	if needRedis {
		rdb, err := redis.Connect(ctx, redis.Options{
			Addr:     c.GetRedisAddr(),
			Password: c.GetRedisPassword(),
			DB:       c.GetRedisDB(),
		})
		if err != nil {
			return nil, err
		}
		b.rdb = rdb
	}

	switch c.GetSessionStore() {
	case config.StoreMemory:
		b.store = memory.New(c.GetSessionTTL(), memoryCleanupInterval)
	case config.StoreRedis:
		b.store = redis.New(b.rdb, redis.DefaultPrefix)
	case config.StorePostgres:
		db, err := postgres.Open(ctx, c.GetDatabaseURL())
		if err != nil {
			b.Close()
			return nil, err
		}
		b.db = db
		if err := postgres.Migrate(db); err != nil {
			b.Close()
			return nil, err
		}
		store := postgres.New(db)
		b.store = store
		b.cleanup = func(ctx context.Context) error {
			return store.RunCleanup(ctx, postgresCleanupInterval)
		}
	default:
		b.Close()
		return nil, fmt.Errorf("[openBackends] unknown SESSION_STORE %q", c.GetSessionStore())
	}

	globalLimit, globalWindow := c.GetGlobalRateLimit()
	authLimit, authWindow := c.GetAuthRateLimit()
	switch c.GetRateLimitStore() {
	case config.StoreMemory:
		b.globalLimiter = ratelimit.NewMemoryLimiter("global", globalLimit, globalWindow)
		b.authLimiter = ratelimit.NewMemoryLimiter("auth", authLimit, authWindow)
	case config.StoreRedis:
		b.globalLimiter = ratelimit.NewRedisLimiter(b.rdb, "global", globalLimit, globalWindow)
		b.authLimiter = ratelimit.NewRedisLimiter(b.rdb, "auth", authLimit, authWindow)
	default:
		b.Close()
		return nil, fmt.Errorf("[openBackends] unknown RATE_LIMIT_STORE %q", c.GetRateLimitStore())
	}

	// Revocations are shared whenever instances already share redis
	if b.rdb != nil {
		b.revocations = token.NewRedisRevocationList(b.rdb)
	} else {
		b.revocations = token.NewMemoryRevocationList(memoryCleanupInterval)
	}

	log.Info().
		Str("session_store", c.GetSessionStore()).
		Str("rate_limit_store", c.GetRateLimitStore()).
		Msg("backends ready")
	return b, nil
}

func (b *backends) Close() {
	if b.rdb != nil {
		if err := b.rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("closing redis client")
		}
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			log.Warn().Err(err).Msg("closing database")
		}
	}
}
