package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-line-login/auth"
	"github.com/jrsteele09/go-line-login/authstate"
	apperrors "github.com/jrsteele09/go-line-login/internal/errors"
	"github.com/jrsteele09/go-line-login/provider"
	"github.com/jrsteele09/go-line-login/sessions"
	"github.com/jrsteele09/go-line-login/sessions/memory"
)

const (
	testCode        = "c1"
	testAccessToken = "t1"
	testIDToken     = "id-token-1"
	testUserID      = "u1"
	testDisplayName = "Alice"
)

// fakeProvider records calls and returns canned results.
type fakeProvider struct {
	exchangeCalls int
	profileCalls  int
	verifyCalls   int

	exchangeErr error
	profileErr  error
	verifyErr   error

	gotCode        string
	gotAccessToken string
	gotNonce       string
}

func (p *fakeProvider) AuthorizationURL(state, nonce string) string {
	return "https://provider.example/authorize?" + url.Values{"state": {state}, "nonce": {nonce}}.Encode()
}

func (p *fakeProvider) ExchangeCode(_ context.Context, code string) (*provider.TokenExchangeResult, error) {
	p.exchangeCalls++
	p.gotCode = code
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	return &provider.TokenExchangeResult{AccessToken: testAccessToken, TokenType: "Bearer", IDToken: testIDToken}, nil
}

func (p *fakeProvider) VerifyIDToken(_ context.Context, _ string, nonce string) error {
	p.verifyCalls++
	p.gotNonce = nonce
	return p.verifyErr
}

func (p *fakeProvider) FetchProfile(_ context.Context, accessToken string) (*provider.Profile, error) {
	p.profileCalls++
	p.gotAccessToken = accessToken
	if p.profileErr != nil {
		return nil, p.profileErr
	}
	return &provider.Profile{UserID: testUserID, DisplayName: testDisplayName}, nil
}

type failingSaveStore struct {
	sessions.Store
	fail bool
}

func (s *failingSaveStore) Save(ctx context.Context, id string, set map[string]string, unset []string, ttl time.Duration) error {
	if s.fail {
		return errors.New("store offline")
	}
	return s.Store.Save(ctx, id, set, unset, ttl)
}

type testFixture struct {
	provider *fakeProvider
	store    *failingSaveStore
	manager  *sessions.Manager
	service  *auth.Service
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	store := &failingSaveStore{Store: memory.New(time.Hour, time.Minute)}
	manager, err := sessions.NewManager(store, sessions.ManagerConfig{Secret: "test-secret"})
	require.NoError(t, err)

	fp := &fakeProvider{}
	return &testFixture{
		provider: fp,
		store:    store,
		manager:  manager,
		service:  auth.New(fp, authstate.New()),
	}
}

// newSession returns a fresh session and the cookie that reloads it.
func (f *testFixture) newSession(t *testing.T) (*sessions.Session, *http.Cookie) {
	t.Helper()
	rec := httptest.NewRecorder()
	sess, err := f.manager.Start(context.Background(), rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return sess, cookies[0]
}

func (f *testFixture) reload(t *testing.T, cookie *http.Cookie) *sessions.Session {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookie)
	sess, err := f.manager.Load(context.Background(), r)
	require.NoError(t, err)
	return sess
}

// login runs the login step and returns the state and nonce stored in the session.
func (f *testFixture) login(t *testing.T, sess *sessions.Session) (string, string) {
	t.Helper()
	redirect, err := f.service.Login(context.Background(), sess)
	require.NoError(t, err)

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	state, _ := sess.Get(auth.KeyState)
	nonce, _ := sess.Get(auth.KeyNonce)
	require.Equal(t, state, u.Query().Get("state"))
	require.Equal(t, nonce, u.Query().Get("nonce"))
	return state, nonce
}

func TestLogin(t *testing.T) {
	f := setupTestFixture(t)
	sess, cookie := f.newSession(t)

	state1, nonce1 := f.login(t, sess)
	require.NotEmpty(t, state1)
	require.NotEqual(t, state1, nonce1)

	stored := f.reload(t, cookie)
	got, _ := stored.Get(auth.KeyState)
	require.Equal(t, state1, got, "state persisted")

	t.Run("second login overwrites the pair", func(t *testing.T) {
		state2, nonce2 := f.login(t, stored)
		require.NotEqual(t, state1, state2)
		require.NotEqual(t, nonce1, nonce2)

		_, err := f.service.Callback(context.Background(), f.reload(t, cookie), auth.CallbackParams{Code: testCode, State: state1})
		var authErr *auth.AuthError
		require.ErrorAs(t, err, &authErr)
		require.Equal(t, auth.KindInvalidState, authErr.Kind)

		_, err = f.service.Callback(context.Background(), f.reload(t, cookie), auth.CallbackParams{Code: testCode, State: state2})
		require.NoError(t, err)
	})
}

func TestCallbackSuccess(t *testing.T) {
	f := setupTestFixture(t)
	sess, cookie := f.newSession(t)
	state, nonce := f.login(t, sess)

	profile, err := f.service.Callback(context.Background(), f.reload(t, cookie), auth.CallbackParams{Code: testCode, State: state})
	require.NoError(t, err)
	require.Equal(t, &provider.Profile{UserID: testUserID, DisplayName: testDisplayName}, profile)

	require.Equal(t, testCode, f.provider.gotCode)
	require.Equal(t, testAccessToken, f.provider.gotAccessToken)
	require.Equal(t, nonce, f.provider.gotNonce)

	stored := f.reload(t, cookie)
	user, ok := auth.UserFromSession(stored)
	require.True(t, ok)
	require.Equal(t, profile, user)

	_, hasState := stored.Get(auth.KeyState)
	require.False(t, hasState, "state is consumed")
	for _, v := range []string{testAccessToken, testIDToken} {
		for _, k := range []string{auth.KeyState, auth.KeyNonce, auth.KeyUser} {
			got, _ := stored.Get(k)
			require.NotContains(t, got, v, "tokens are never persisted")
		}
	}

	t.Run("replaying the callback fails", func(t *testing.T) {
		_, err := f.service.Callback(context.Background(), f.reload(t, cookie), auth.CallbackParams{Code: testCode, State: state})
		require.ErrorIs(t, err, apperrors.ErrInvalidState)
	})
}

func TestCallbackInvalidState(t *testing.T) {
	tests := []struct {
		name       string
		doLogin    bool
		queryState func(stored string) string
	}{
		{"mismatch", true, func(string) string { return "forged" }},
		{"empty query state", true, func(string) string { return "" }},
		{"prefix of stored state", true, func(s string) string { return s[:len(s)-1] }},
		{"no login in session", false, func(string) string { return "" }},
		{"no login with query state", false, func(string) string { return "anything" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			sess, cookie := f.newSession(t)
			stored := ""
			if tt.doLogin {
				stored, _ = f.login(t, sess)
			}

			_, err := f.service.Callback(context.Background(), sess, auth.CallbackParams{Code: testCode, State: tt.queryState(stored)})

			var authErr *auth.AuthError
			require.ErrorAs(t, err, &authErr)
			require.Equal(t, auth.KindInvalidState, authErr.Kind)
			require.Equal(t, http.StatusUnauthorized, authErr.Status)
			require.Equal(t, "Invalid state parameter", authErr.Message)
			require.Zero(t, f.provider.exchangeCalls, "no token exchange")
			require.Zero(t, f.provider.profileCalls, "no profile fetch")

			if tt.doLogin {
				_, hasUser := f.reload(t, cookie).Get(auth.KeyUser)
				require.False(t, hasUser)
			}
		})
	}
}

func TestCallbackFailuresDoNotWriteSession(t *testing.T) {
	upstream := &provider.UpstreamError{Endpoint: provider.EndpointToken, StatusCode: http.StatusBadRequest}

	tests := []struct {
		name          string
		params        func(state string) auth.CallbackParams
		setup         func(p *fakeProvider)
		wantKind      auth.ErrorKind
		wantErr       error
		wantExchanges int
		wantProfiles  int
	}{
		{
			name:     "provider denied",
			params:   func(s string) auth.CallbackParams { return auth.CallbackParams{State: s, Error: "access_denied"} },
			wantKind: auth.KindProviderDenied,
			wantErr:  apperrors.ErrProviderDenied,
		},
		{
			name:     "missing code",
			params:   func(s string) auth.CallbackParams { return auth.CallbackParams{State: s} },
			wantKind: auth.KindMissingCode,
			wantErr:  apperrors.ErrMissingCode,
		},
		{
			name:          "token exchange fails",
			params:        func(s string) auth.CallbackParams { return auth.CallbackParams{State: s, Code: testCode} },
			setup:         func(p *fakeProvider) { p.exchangeErr = upstream },
			wantErr:       apperrors.ErrUpstream,
			wantExchanges: 1,
		},
		{
			name:          "id token rejected",
			params:        func(s string) auth.CallbackParams { return auth.CallbackParams{State: s, Code: testCode} },
			setup:         func(p *fakeProvider) { p.verifyErr = apperrors.ErrInvalidIDToken },
			wantKind:      auth.KindInvalidIDToken,
			wantErr:       apperrors.ErrInvalidIDToken,
			wantExchanges: 1,
		},
		{
			name:   "profile fetch fails",
			params: func(s string) auth.CallbackParams { return auth.CallbackParams{State: s, Code: testCode} },
			setup: func(p *fakeProvider) {
				p.profileErr = &provider.UpstreamError{Endpoint: provider.EndpointProfile, Err: context.DeadlineExceeded}
			},
			wantErr:       apperrors.ErrUpstream,
			wantExchanges: 1,
			wantProfiles:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			if tt.setup != nil {
				tt.setup(f.provider)
			}
			sess, cookie := f.newSession(t)
			state, _ := f.login(t, sess)

			_, err := f.service.Callback(context.Background(), f.reload(t, cookie), tt.params(state))
			require.ErrorIs(t, err, tt.wantErr)
			if tt.wantKind != "" {
				var authErr *auth.AuthError
				require.ErrorAs(t, err, &authErr)
				require.Equal(t, tt.wantKind, authErr.Kind)
			}
			require.Equal(t, tt.wantExchanges, f.provider.exchangeCalls)
			require.Equal(t, tt.wantProfiles, f.provider.profileCalls)

			stored := f.reload(t, cookie)
			_, hasUser := stored.Get(auth.KeyUser)
			require.False(t, hasUser, "no partial session write")
			stillState, _ := stored.Get(auth.KeyState)
			require.Equal(t, state, stillState)
		})
	}
}

func TestCallbackSessionWriteFailure(t *testing.T) {
	f := setupTestFixture(t)
	sess, cookie := f.newSession(t)
	state, _ := f.login(t, sess)

	f.store.fail = true
	_, err := f.service.Callback(context.Background(), f.reload(t, cookie), auth.CallbackParams{Code: testCode, State: state})
	require.ErrorIs(t, err, apperrors.ErrSessionIO)
}

func TestUserFromSession(t *testing.T) {
	f := setupTestFixture(t)
	sess, _ := f.newSession(t)

	_, ok := auth.UserFromSession(sess)
	require.False(t, ok)

	sess.Set(auth.KeyUser, "not json")
	_, ok = auth.UserFromSession(sess)
	require.False(t, ok)

	sess.Set(auth.KeyUser, `{"userId":"u1","displayName":"Alice","pictureUrl":"https://img"}`)
	user, ok := auth.UserFromSession(sess)
	require.True(t, ok)
	require.Equal(t, "https://img", user.PictureURL)
}
