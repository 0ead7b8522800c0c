package config

import (
	"strings"
	"time"
)

type ProviderConfig interface {
	GetChannelID() string
	GetChannelSecret() string
	GetCallbackURL() string
	GetScopes() []string
	GetAuthorizeURL() string
	GetTokenURL() string
	GetProfileURL() string
	GetIssuer() string
	GetJWKSURL() string
	GetUpstreamTimeout() time.Duration
}

// Provider holds the identity provider endpoints and client credentials.
// Defaults point at LINE Login v2.1.
type Provider struct {
	ChannelID       string        `env:"LINE_CHANNEL_ID"`
	ChannelSecret   string        `env:"LINE_CHANNEL_SECRET"`
	CallbackURL     string        `env:"LINE_CALLBACK_URL"`
	Scope           string        `env:"LINE_SCOPE" envDefault:"profile openid"`
	AuthorizeURL    string        `env:"LINE_AUTHORIZE_URL" envDefault:"https://access.line.me/oauth2/v2.1/authorize"`
	TokenURL        string        `env:"LINE_TOKEN_URL" envDefault:"https://api.line.me/oauth2/v2.1/token"`
	ProfileURL      string        `env:"LINE_PROFILE_URL" envDefault:"https://api.line.me/v2/profile"`
	Issuer          string        `env:"LINE_ISSUER" envDefault:"https://access.line.me"`
	JWKSURL         string        `env:"LINE_JWKS_URL"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"5s"`
}

var _ ProviderConfig = Provider{}

func (p Provider) GetChannelID() string {
	return p.ChannelID
}

func (p Provider) GetChannelSecret() string {
	return p.ChannelSecret
}

func (p Provider) GetCallbackURL() string {
	return p.CallbackURL
}

func (p Provider) GetScopes() []string {
	return strings.Fields(p.Scope)
}

func (p Provider) GetAuthorizeURL() string {
	return p.AuthorizeURL
}

func (p Provider) GetTokenURL() string {
	return p.TokenURL
}

func (p Provider) GetProfileURL() string {
	return p.ProfileURL
}

func (p Provider) GetIssuer() string {
	return p.Issuer
}

// GetJWKSURL returns the key set used to verify id_tokens. Empty disables verification.
func (p Provider) GetJWKSURL() string {
	return p.JWKSURL
}

func (p Provider) GetUpstreamTimeout() time.Duration {
	return p.UpstreamTimeout
}
