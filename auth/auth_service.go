// Package auth drives the provider login: it starts an authorization request and
// runs the callback state machine against an explicit session.
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-line-login/provider"
	"github.com/jrsteele09/go-line-login/sessions"
)

// IdentityProvider is the subset of provider.Client the flow depends on.
type IdentityProvider interface {
	AuthorizationURL(state, nonce string) string
	ExchangeCode(ctx context.Context, code string) (*provider.TokenExchangeResult, error)
	VerifyIDToken(ctx context.Context, rawIDToken, nonce string) error
	FetchProfile(ctx context.Context, accessToken string) (*provider.Profile, error)
}

type StateGenerator interface {
	Generate() (string, error)
}

var _ IdentityProvider = (*provider.Client)(nil)

type Service struct {
	provider IdentityProvider
	states   StateGenerator
}

func New(idp IdentityProvider, states StateGenerator) *Service {
	return &Service{provider: idp, states: states}
}

// Login binds a fresh state and nonce to sess and returns the provider URL to
// redirect to. A repeated login overwrites the previous pair.
func (s *Service) Login(ctx context.Context, sess *sessions.Session) (string, error) {
	state, err := s.states.Generate()
	if err != nil {
		return "", fmt.Errorf("[Service Login] generating state: %w", err)
	}
	nonce, err := s.states.Generate()
	if err != nil {
		return "", fmt.Errorf("[Service Login] generating nonce: %w", err)
	}

	sess.Set(KeyState, state)
	sess.Set(KeyNonce, nonce)
	if err := sess.Save(ctx); err != nil {
		return "", fmt.Errorf("[Service Login] %w", err)
	}
	return s.provider.AuthorizationURL(state, nonce), nil
}

// Callback verifies the returned state, exchanges the code, fetches the profile
// and stores it as the session user. The session is written once, only after
// every provider call has succeeded; the access token is never stored.
func (s *Service) Callback(ctx context.Context, sess *sessions.Session, params CallbackParams) (*provider.Profile, error) {
	step := StepStart
	logger := log.With().Str("session", sess.ID()).Logger()

	expected, _ := sess.Get(KeyState)
	if params.State == "" || expected == "" || subtle.ConstantTimeCompare([]byte(params.State), []byte(expected)) != 1 {
		logger.Warn().Str("step", string(step)).Msg("callback state mismatch")
		return nil, errInvalidState()
	}
	step = StepStateVerified

	if params.Error != "" {
		logger.Info().Str("step", string(step)).Str("error", params.Error).Msg("provider returned an error")
		return nil, errProviderDenied(params.Error, params.ErrorDescription)
	}
	if params.Code == "" {
		return nil, errMissingCode()
	}

	tokens, err := s.provider.ExchangeCode(ctx, params.Code)
	if err != nil {
		return nil, fmt.Errorf("[Service Callback] %s: %w", step, err)
	}
	step = StepTokenExchanged

	nonce, _ := sess.Get(KeyNonce)
	if err := s.provider.VerifyIDToken(ctx, tokens.IDToken, nonce); err != nil {
		logger.Warn().Err(err).Str("step", string(step)).Msg("id token rejected")
		return nil, errInvalidIDToken(err)
	}

	profile, err := s.provider.FetchProfile(ctx, tokens.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("[Service Callback] %s: %w", step, err)
	}
	step = StepProfileFetched

	encoded, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("[Service Callback] encoding profile: %w", err)
	}
	sess.Set(KeyUser, string(encoded))
	sess.Delete(KeyState)
	sess.Delete(KeyNonce)
	if err := sess.Save(ctx); err != nil {
		return nil, fmt.Errorf("[Service Callback] %s: %w", step, err)
	}
	step = StepSessionUpdated

	logger.Info().Str("step", string(step)).Str("user", profile.UserID).Msg("login completed")
	return profile, nil
}

// UserFromSession returns the profile stored by a successful callback.
func UserFromSession(sess *sessions.Session) (*provider.Profile, bool) {
	raw, ok := sess.Get(KeyUser)
	if !ok || raw == "" {
		return nil, false
	}
	var profile provider.Profile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		log.Warn().Err(err).Str("session", sess.ID()).Msg("discarding unreadable session user")
		return nil, false
	}
	if profile.UserID == "" {
		return nil, false
	}
	return &profile, true
}
