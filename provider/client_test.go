package provider_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jrsteele09/go-line-login/internal/errors"
	"github.com/jrsteele09/go-line-login/provider"
)

const (
	testClientID     = "1650000000"
	testClientSecret = "channel-secret-value"
	testRedirectURI  = "http://localhost:3100/auth/callback"
	testIssuer       = "https://access.line.me"
	testCode         = "auth-code-1"
	testAccessToken  = "access-token-1"
	testState        = "state-1"
	testNonce        = "nonce-1"
)

type testFixture struct {
	server  *httptest.Server
	mux     *http.ServeMux
	client  *provider.Client
	observe []string

	mu    sync.Mutex
	calls map[string]int
}

func setupTestFixture(t *testing.T, opts ...provider.Option) *testFixture {
	t.Helper()

	f := &testFixture{mux: http.NewServeMux(), calls: make(map[string]int)}
	f.server = httptest.NewServer(f.mux)
	t.Cleanup(f.server.Close)

	opts = append(opts, provider.WithObserver(func(endpoint string, _ time.Duration, _ error) {
		f.observe = append(f.observe, endpoint)
	}))

	client, err := provider.New(provider.Config{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		RedirectURL:  testRedirectURI,
		Scopes:       []string{"profile", "openid"},
		AuthorizeURL: "https://access.line.me/oauth2/v2.1/authorize",
		TokenURL:     f.server.URL + "/token",
		ProfileURL:   f.server.URL + "/profile",
		Issuer:       testIssuer,
		Timeout:      200 * time.Millisecond,
	}, opts...)
	require.NoError(t, err)
	f.client = client
	return f
}

func (f *testFixture) handle(pattern string, handler http.HandlerFunc) {
	f.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[pattern]++
		f.mu.Unlock()
		handler(w, r)
	})
}

func (f *testFixture) callCount(pattern string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[pattern]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewRequiresConfiguration(t *testing.T) {
	_, err := provider.New(provider.Config{ClientID: testClientID})
	require.ErrorIs(t, err, apperrors.ErrMissingConfig)
}

func TestAuthorizationURL(t *testing.T) {
	f := setupTestFixture(t)

	raw := f.client.AuthorizationURL(testState, testNonce)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "access.line.me", u.Host)
	require.Equal(t, "/oauth2/v2.1/authorize", u.Path)

	q := u.Query()
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, testClientID, q.Get("client_id"))
	require.Equal(t, testRedirectURI, q.Get("redirect_uri"))
	require.Equal(t, testState, q.Get("state"))
	require.Equal(t, testNonce, q.Get("nonce"))
	require.Equal(t, "profile openid", q.Get("scope"))
	require.Empty(t, q.Get("client_secret"))
	require.Zero(t, f.callCount("POST /token"), "building the URL makes no network call")
}

func TestExchangeCode(t *testing.T) {
	t.Run("posts the form and decodes the response", func(t *testing.T) {
		f := setupTestFixture(t)
		f.handle("POST /token", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
			assert.Equal(t, testCode, r.PostForm.Get("code"))
			assert.Equal(t, testRedirectURI, r.PostForm.Get("redirect_uri"))
			assert.Equal(t, testClientID, r.PostForm.Get("client_id"))
			assert.Equal(t, testClientSecret, r.PostForm.Get("client_secret"))
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token":  testAccessToken,
				"token_type":    "Bearer",
				"refresh_token": "refresh-1",
				"expires_in":    2592000,
				"scope":         "profile openid",
				"id_token":      "id.token.value",
			})
		})

		result, err := f.client.ExchangeCode(context.Background(), testCode)
		require.NoError(t, err)
		require.Equal(t, testAccessToken, result.AccessToken)
		require.Equal(t, "Bearer", result.TokenType)
		require.Equal(t, "refresh-1", result.RefreshToken)
		require.InDelta(t, 2592000, result.ExpiresIn, 2)
		require.Equal(t, "profile openid", result.Scope)
		require.Equal(t, "id.token.value", result.IDToken)
		require.Equal(t, []string{provider.EndpointToken}, f.observe)
	})

	t.Run("non-2xx is an upstream error", func(t *testing.T) {
		f := setupTestFixture(t)
		f.handle("POST /token", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":             "invalid_grant",
				"error_description": "code expired",
			})
		})

		result, err := f.client.ExchangeCode(context.Background(), testCode)
		require.Nil(t, result)
		require.ErrorIs(t, err, apperrors.ErrUpstream)

		var upstream *provider.UpstreamError
		require.ErrorAs(t, err, &upstream)
		require.Equal(t, provider.EndpointToken, upstream.Endpoint)
		require.Equal(t, http.StatusBadRequest, upstream.StatusCode)
		require.Contains(t, upstream.Body, "invalid_grant")
		require.NotContains(t, err.Error(), testClientSecret)
	})

	t.Run("missing access token is an upstream error", func(t *testing.T) {
		f := setupTestFixture(t)
		f.handle("POST /token", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"token_type": "Bearer"})
		})

		_, err := f.client.ExchangeCode(context.Background(), testCode)
		require.ErrorIs(t, err, apperrors.ErrUpstream)
	})

	t.Run("slow provider times out", func(t *testing.T) {
		f := setupTestFixture(t)
		f.handle("POST /token", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		})

		start := time.Now()
		_, err := f.client.ExchangeCode(context.Background(), testCode)
		require.ErrorIs(t, err, apperrors.ErrUpstream)
		require.Less(t, time.Since(start), time.Second)
	})

	t.Run("cancelled context is an upstream error", func(t *testing.T) {
		f := setupTestFixture(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := f.client.ExchangeCode(ctx, testCode)
		require.ErrorIs(t, err, apperrors.ErrUpstream)
		require.Zero(t, f.callCount("POST /token"))
	})
}

func TestFetchProfile(t *testing.T) {
	t.Run("sends the bearer token and decodes the profile", func(t *testing.T) {
		f := setupTestFixture(t)
		f.handle("GET /profile", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer "+testAccessToken, r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, map[string]string{
				"userId":        "U1",
				"displayName":   "Alice",
				"pictureUrl":    "https://profile.line-scdn.net/alice",
				"statusMessage": "hello",
			})
		})

		profile, err := f.client.FetchProfile(context.Background(), testAccessToken)
		require.NoError(t, err)
		require.Equal(t, &provider.Profile{
			UserID:        "U1",
			DisplayName:   "Alice",
			PictureURL:    "https://profile.line-scdn.net/alice",
			StatusMessage: "hello",
		}, profile)
	})

	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"invalid token"}`},
		{"server error", http.StatusInternalServerError, `oops`},
		{"malformed json", http.StatusOK, `{"userId":`},
		{"missing userId", http.StatusOK, `{"displayName":"Alice"}`},
		{"missing displayName", http.StatusOK, `{"userId":"U1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			f.handle("GET /profile", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			profile, err := f.client.FetchProfile(context.Background(), testAccessToken)
			require.Nil(t, profile)
			require.ErrorIs(t, err, apperrors.ErrUpstream)
			require.NotContains(t, err.Error(), testAccessToken)
		})
	}
}

func signIDToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return raw
}

func TestVerifyIDToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}

	now := time.Now()
	claims := func(overrides jwt.MapClaims) jwt.MapClaims {
		c := jwt.MapClaims{
			"iss":   testIssuer,
			"sub":   "U1",
			"aud":   testClientID,
			"exp":   now.Add(time.Hour).Unix(),
			"iat":   now.Unix(),
			"nonce": testNonce,
		}
		for k, v := range overrides {
			c[k] = v
		}
		return c
	}

	f := setupTestFixture(t, provider.WithKeySet(keySet))

	t.Run("valid token and nonce", func(t *testing.T) {
		require.NoError(t, f.client.VerifyIDToken(context.Background(), signIDToken(t, key, claims(nil)), testNonce))
	})

	t.Run("nonce mismatch", func(t *testing.T) {
		err := f.client.VerifyIDToken(context.Background(), signIDToken(t, key, claims(nil)), "other-nonce")
		require.ErrorIs(t, err, apperrors.ErrInvalidIDToken)
	})

	t.Run("wrong audience", func(t *testing.T) {
		err := f.client.VerifyIDToken(context.Background(), signIDToken(t, key, claims(jwt.MapClaims{"aud": "someone-else"})), testNonce)
		require.ErrorIs(t, err, apperrors.ErrInvalidIDToken)
	})

	t.Run("expired", func(t *testing.T) {
		err := f.client.VerifyIDToken(context.Background(), signIDToken(t, key, claims(jwt.MapClaims{"exp": now.Add(-time.Hour).Unix()})), testNonce)
		require.ErrorIs(t, err, apperrors.ErrInvalidIDToken)
	})

	t.Run("foreign signing key", func(t *testing.T) {
		other, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		err = f.client.VerifyIDToken(context.Background(), signIDToken(t, other, claims(nil)), testNonce)
		require.ErrorIs(t, err, apperrors.ErrInvalidIDToken)
	})

	t.Run("no id token is accepted", func(t *testing.T) {
		require.NoError(t, f.client.VerifyIDToken(context.Background(), "", testNonce))
	})

	t.Run("verification disabled without a key set", func(t *testing.T) {
		plain := setupTestFixture(t)
		require.NoError(t, plain.client.VerifyIDToken(context.Background(), "garbage", "whatever"))
	})
}
