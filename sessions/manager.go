package sessions

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	apperrors "github.com/jrsteele09/go-line-login/internal/errors"
)

const (
	DefaultCookieName = "sid"
	DefaultTTL        = 24 * time.Hour

	cookieKeyInfo = "session-cookie-signing"
)

type ManagerConfig struct {
	Secret     string
	TTL        time.Duration
	CookieName string
	// Secure marks the cookie https-only; set outside development
	Secure bool
}

// Manager binds a signed, opaque session id cookie to a Store.
type Manager struct {
	store      Store
	ttl        time.Duration
	cookieName string
	secure     bool
	key        []byte
}

func NewManager(store Store, cfg ManagerConfig) (*Manager, error) {
	if cfg.Secret == "" {
		return nil, apperrors.Wrapf(apperrors.ErrMissingConfig, "[sessions NewManager] secret is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(cfg.Secret), nil, []byte(cookieKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("[sessions NewManager] failed to derive cookie key: %w", err)
	}

	return &Manager{
		store:      store,
		ttl:        cfg.TTL,
		cookieName: cfg.CookieName,
		secure:     cfg.Secure,
		key:        key,
	}, nil
}

// Start returns the request's session, creating one with a fresh id when the
// cookie is absent, forged or points at an expired session.
func (m *Manager) Start(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Session, error) {
	sess, err := m.Load(ctx, r)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, apperrors.ErrSessionNotFound) {
		return nil, err
	}

	sess = newSession(uuid.NewString(), nil, true, m.store, m.ttl)
	m.setCookie(w, m.sign(sess.id), int(m.ttl.Seconds()))
	return sess, nil
}

// Load returns the existing session for r without creating one.
func (m *Manager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return nil, apperrors.ErrSessionNotFound
	}
	id, ok := m.verify(cookie.Value)
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}

	values, err := m.store.Load(ctx, id)
	if errors.Is(err, apperrors.ErrSessionNotFound) {
		return nil, apperrors.ErrSessionNotFound
	}
	if err != nil {
		return nil, ioError("[Manager Load]", err)
	}
	return newSession(id, values, false, m.store, m.ttl), nil
}

// Destroy removes the session and clears its cookie. On failure the cookie is left in place.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if err := sess.Destroy(ctx); err != nil {
		return err
	}
	m.setCookie(w, "", -1)
	return nil
}

func (m *Manager) setCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) sign(id string) string {
	mac := hmac.New(sha256.New, m.key)
	mac.Write([]byte(id))
	return id + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (m *Manager) verify(value string) (string, bool) {
	id, _, found := strings.Cut(value, ".")
	if !found || id == "" {
		return "", false
	}
	return id, hmac.Equal([]byte(m.sign(id)), []byte(value))
}

type contextKey struct{}

// NewContext attaches a loaded session for downstream handlers.
func NewContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

func FromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(contextKey{}).(*Session)
	return sess, ok
}
