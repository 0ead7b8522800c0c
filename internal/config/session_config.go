package config

import "time"

const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type SessionConfig interface {
	GetSessionSecret() string
	GetSessionTTL() time.Duration
	GetSessionStore() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetDatabaseURL() string
}

type Session struct {
	Secret        string        `env:"SESSION_SECRET"`
	TTL           time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	Store         string        `env:"SESSION_STORE" envDefault:"memory"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	DatabaseURL   string        `env:"DATABASE_URL"`
}

var _ SessionConfig = Session{}

func (s Session) GetSessionSecret() string {
	return s.Secret
}

func (s Session) GetSessionTTL() time.Duration {
	return s.TTL
}

func (s Session) GetSessionStore() string {
	return s.Store
}

func (s Session) GetRedisAddr() string {
	return s.RedisAddr
}

func (s Session) GetRedisPassword() string {
	return s.RedisPassword
}

func (s Session) GetRedisDB() int {
	return s.RedisDB
}

func (s Session) GetDatabaseURL() string {
	return s.DatabaseURL
}
