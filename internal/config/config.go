package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/go-line-login/internal/errors"
)

const (
	EnvDevelopment = "DEV"

	devJWTSecret     = "dev-jwt-secret-do-not-use-in-production"
	devSessionSecret = "dev-session-secret-do-not-use-in-production"
)

type Config interface {
	EnvConfig
	ProviderConfig
	SessionConfig
	SecurityConfig
}

type mainConfig struct {
	EnvVars
	Provider
	Session
	Security
}

var _ Config = mainConfig{}

// New parses the process environment. Outside DEV the provider credentials and both
// secrets are mandatory; in DEV missing secrets fall back to fixed values.
func New() (Config, error) {
	var c mainConfig
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("[config New] failed to parse environment: %w", err)
	}
	if c.Provider.CallbackURL == "" {
		c.Provider.CallbackURL = c.EnvVars.GetAppURL() + "/auth/callback"
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *mainConfig) validate() error {
	if c.IsDevelopment() {
		if c.Security.JWTSecret == "" {
			log.Warn().Msg("JWT_SECRET not set, using development secret")
			c.Security.JWTSecret = devJWTSecret
		}
		if c.Session.Secret == "" {
			log.Warn().Msg("SESSION_SECRET not set, using development secret")
			c.Session.Secret = devSessionSecret
		}
		return nil
	}

	required := map[string]string{
		"LINE_CHANNEL_ID":     c.Provider.ChannelID,
		"LINE_CHANNEL_SECRET": c.Provider.ChannelSecret,
		"JWT_SECRET":          c.Security.JWTSecret,
		"SESSION_SECRET":      c.Session.Secret,
	}
	for name, value := range required {
		if value == "" {
			return apperrors.Wrapf(apperrors.ErrMissingConfig, "[config New] %s", name)
		}
	}
	return nil
}
