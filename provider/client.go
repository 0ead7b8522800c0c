// Package provider talks to the identity provider's authorize, token and profile endpoints.
package provider

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	apperrors "github.com/jrsteele09/go-line-login/internal/errors"
)

const (
	DefaultTimeout = 5 * time.Second

	maxProfileBody = 64 * 1024
)

var errMalformedProfile = errors.New("profile response missing userId or displayName")

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	AuthorizeURL string
	TokenURL     string
	ProfileURL   string
	// Issuer and JWKSURL enable id_token verification when JWKSURL is set
	Issuer  string
	JWKSURL string
	Timeout time.Duration
}

// Observer is notified after every provider call.
type Observer func(endpoint string, elapsed time.Duration, err error)

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithObserver(observer Observer) Option {
	return func(c *Client) {
		c.observe = observer
	}
}

// WithKeySet verifies id_tokens against keySet instead of fetching JWKSURL.
func WithKeySet(keySet oidc.KeySet) Option {
	return func(c *Client) {
		c.keySet = keySet
	}
}

type Client struct {
	oauth      *oauth2.Config
	profileURL string
	timeout    time.Duration
	httpClient *http.Client
	keySet     oidc.KeySet
	verifier   *oidc.IDTokenVerifier
	observe    Observer
}

func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.ClientID == "" || cfg.RedirectURL == "" {
		return nil, apperrors.Wrapf(apperrors.ErrMissingConfig, "[provider New] client id and redirect url are required")
	}
	if cfg.AuthorizeURL == "" || cfg.TokenURL == "" || cfg.ProfileURL == "" {
		return nil, apperrors.Wrapf(apperrors.ErrMissingConfig, "[provider New] provider endpoints are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthorizeURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		profileURL: cfg.ProfileURL,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		observe:    func(string, time.Duration, error) {},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.keySet == nil && cfg.JWKSURL != "" {
		c.keySet = oidc.NewRemoteKeySet(oidc.ClientContext(context.Background(), c.httpClient), cfg.JWKSURL)
	}
	if c.keySet != nil {
		c.verifier = oidc.NewVerifier(cfg.Issuer, c.keySet, &oidc.Config{
			ClientID:             cfg.ClientID,
			SupportedSigningAlgs: []string{oidc.RS256, oidc.ES256},
		})
	}
	return c, nil
}

// AuthorizationURL builds the authorize redirect carrying response_type=code,
// client_id, redirect_uri, scope, state and nonce. It makes no network call.
func (c *Client) AuthorizationURL(state, nonce string) string {
	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("nonce", nonce))
}

// ExchangeCode swaps an authorization code for tokens with a form POST carrying
// grant_type, code, redirect_uri, client_id and client_secret.
func (c *Client) ExchangeCode(ctx context.Context, code string) (result *TokenExchangeResult, err error) {
	start := time.Now()
	defer func() { c.observe(EndpointToken, time.Since(start), err) }()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, c.exchangeError(err)
	}

	result = &TokenExchangeResult{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		result.ExpiresIn = int64(time.Until(tok.Expiry).Round(time.Second) / time.Second)
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		result.Scope = scope
	}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		result.IDToken = idToken
	}
	return result, nil
}

func (c *Client) exchangeError(err error) *UpstreamError {
	upstream := &UpstreamError{Endpoint: EndpointToken, Err: err}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response != nil {
			upstream.StatusCode = retrieveErr.Response.StatusCode
		}
		upstream.Body = truncate(retrieveErr.Body)
	}
	log.Warn().
		Str("endpoint", upstream.Endpoint).
		Int("status", upstream.StatusCode).
		Str("body", upstream.Body).
		Msg("token exchange failed")
	return upstream
}

// FetchProfile reads the user's profile with the access token as a bearer credential.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (profile *Profile, err error) {
	start := time.Now()
	defer func() { c.observe(EndpointProfile, time.Since(start), err) }()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.profileURL, nil)
	if err != nil {
		return nil, &UpstreamError{Endpoint: EndpointProfile, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Endpoint: EndpointProfile, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.Warn().
			Str("endpoint", EndpointProfile).
			Int("status", resp.StatusCode).
			Msg("profile fetch failed")
		return nil, &UpstreamError{
			Endpoint:   EndpointProfile,
			StatusCode: resp.StatusCode,
			Body:       truncate(body),
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	profile = &Profile{}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxProfileBody)).Decode(profile); err != nil {
		return nil, &UpstreamError{Endpoint: EndpointProfile, StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding profile: %w", err)}
	}
	if profile.UserID == "" || profile.DisplayName == "" {
		return nil, &UpstreamError{Endpoint: EndpointProfile, StatusCode: resp.StatusCode, Err: errMalformedProfile}
	}
	return profile, nil
}

// VerifyIDToken checks the id_token signature, issuer, audience and expiry and
// that its nonce matches the one stored at login. It is a no-op when no key set
// is configured or the provider returned no id_token.
func (c *Client) VerifyIDToken(ctx context.Context, rawIDToken, nonce string) error {
	if c.verifier == nil || rawIDToken == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	idToken, err := c.verifier.Verify(oidc.ClientContext(ctx, c.httpClient), rawIDToken)
	if err != nil {
		return fmt.Errorf("[provider VerifyIDToken] %w: %v", apperrors.ErrInvalidIDToken, err)
	}
	if nonce == "" || subtle.ConstantTimeCompare([]byte(idToken.Nonce), []byte(nonce)) != 1 {
		return fmt.Errorf("[provider VerifyIDToken] %w: nonce mismatch", apperrors.ErrInvalidIDToken)
	}
	return nil
}
