package config

import "time"

type SecurityConfig interface {
	GetJWTSecret() string
	GetBearerTTL() time.Duration
	GetIssueBearerCookie() bool
	GetRateLimitStore() string
	GetGlobalRateLimit() (limit int64, window time.Duration)
	GetAuthRateLimit() (limit int64, window time.Duration)
	GetTrustProxy() bool
}

type Security struct {
	JWTSecret         string        `env:"JWT_SECRET"`
	BearerTTL         time.Duration `env:"BEARER_TTL" envDefault:"1h"`
	IssueBearerCookie bool          `env:"ISSUE_BEARER_COOKIE" envDefault:"false"`
	RateLimitStore    string        `env:"RATE_LIMIT_STORE" envDefault:"memory"`
	GlobalLimit       int64         `env:"RATE_LIMIT_GLOBAL" envDefault:"100"`
	GlobalWindow      time.Duration `env:"RATE_LIMIT_GLOBAL_WINDOW" envDefault:"15m"`
	AuthLimit         int64         `env:"RATE_LIMIT_AUTH" envDefault:"5"`
	AuthWindow        time.Duration `env:"RATE_LIMIT_AUTH_WINDOW" envDefault:"1h"`
	TrustProxy        bool          `env:"TRUST_PROXY" envDefault:"false"`
}

var _ SecurityConfig = Security{}

func (s Security) GetJWTSecret() string {
	return s.JWTSecret
}

func (s Security) GetBearerTTL() time.Duration {
	return s.BearerTTL
}

// GetIssueBearerCookie reports whether a successful login also sets the bearer "token" cookie.
func (s Security) GetIssueBearerCookie() bool {
	return s.IssueBearerCookie
}

func (s Security) GetRateLimitStore() string {
	return s.RateLimitStore
}

func (s Security) GetGlobalRateLimit() (int64, time.Duration) {
	return s.GlobalLimit, s.GlobalWindow
}

func (s Security) GetAuthRateLimit() (int64, time.Duration) {
	return s.AuthLimit, s.AuthWindow
}

// GetTrustProxy reports whether X-Forwarded-For / X-Real-IP name the client.
// Only enable it behind a proxy that overwrites those headers.
func (s Security) GetTrustProxy() bool {
	return s.TrustProxy
}
