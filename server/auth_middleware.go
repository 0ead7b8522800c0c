package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-line-login/auth"
	apperrors "github.com/jrsteele09/go-line-login/internal/errors"
	"github.com/jrsteele09/go-line-login/provider"
	"github.com/jrsteele09/go-line-login/sessions"
	"github.com/jrsteele09/go-line-login/token"
)

// BearerCookieName is the cookie the token guard reads.
const BearerCookieName = "token"

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyUser stores the session user's profile
	ContextKeyUser ContextKey = "user"
)

// RequireSession is middleware for HTML routes that need a logged in session.
// Anonymous or unknown sessions are redirected to the home page.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			sess, err := s.sessions.Load(r.Context(), r)
			if errors.Is(err, apperrors.ErrSessionNotFound) {
				http.Redirect(w, r, RouteHome, http.StatusFound)
				return
			}
			if err != nil {
				s.handleError(w, r, err)
				return
			}

			user, ok := auth.UserFromSession(sess)
			if !ok {
				http.Redirect(w, r, RouteHome, http.StatusFound)
				return
			}

			ctx := sessions.NewContext(r.Context(), sess)
			ctx = context.WithValue(ctx, ContextKeyUser, user)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireToken is middleware that validates the bearer token cookie. Requests
// without a valid token are sent to the login page.
func (s *Server) RequireToken() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(BearerCookieName)
			if err != nil || cookie.Value == "" {
				http.Redirect(w, r, RouteAuthLogin, http.StatusFound)
				return
			}

			claims, err := s.verifier.Verify(r.Context(), cookie.Value)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("bearer token rejected")
				http.Redirect(w, r, RouteAuthLogin, http.StatusFound)
				return
			}

			next(w, r.WithContext(token.NewContext(r.Context(), claims)))
		}
	}
}

// UserFromContext returns the profile attached by RequireSession.
func UserFromContext(ctx context.Context) (*provider.Profile, bool) {
	user, ok := ctx.Value(ContextKeyUser).(*provider.Profile)
	return user, ok && user != nil
}

func (s *Server) setBearerCookie(w http.ResponseWriter, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     BearerCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   !s.config.IsDevelopment(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearBearerCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     BearerCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   !s.config.IsDevelopment(),
		SameSite: http.SameSiteLaxMode,
	})
}
