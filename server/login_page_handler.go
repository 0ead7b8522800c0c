package server

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/go-line-login/internal/errors"
)

// LoginHandler starts the provider login (GET /auth/login)
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Start(r.Context(), w, r)
		if err != nil {
			s.handleError(w, r, err)
			return
		}

		redirectURL, err := s.auth.Login(r.Context(), sess)
		if err != nil {
			s.handleError(w, r, err)
			return
		}
		http.Redirect(w, r, redirectURL, http.StatusFound)
	}
}

// LogoutHandler destroys the session (GET /auth/logout). A failed destroy is
// surfaced as an error, never a silent redirect.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.revokeBearer(r)
		s.clearBearerCookie(w)

		sess, err := s.sessions.Load(r.Context(), r)
		if errors.Is(err, apperrors.ErrSessionNotFound) {
			http.Redirect(w, r, RouteHome, http.StatusFound)
			return
		}
		if err != nil {
			s.handleError(w, r, err)
			return
		}

		if err := s.sessions.Destroy(r.Context(), w, sess); err != nil {
			s.handleError(w, r, err)
			return
		}
		log.Info().Str("session", sess.ID()).Msg("logged out")
		http.Redirect(w, r, RouteHome, http.StatusFound)
	}
}

// revokeBearer revokes the request's bearer token so a copied cookie stops working.
func (s *Server) revokeBearer(r *http.Request) {
	if s.revocations == nil {
		return
	}
	cookie, err := r.Cookie(BearerCookieName)
	if err != nil || cookie.Value == "" {
		return
	}
	claims, err := s.verifier.Verify(r.Context(), cookie.Value)
	if err != nil || claims.ExpiresAt == nil {
		return
	}
	if err := s.revocations.Revoke(r.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
		log.Warn().Err(err).Str("user", claims.UserID).Msg("failed to revoke bearer token")
	}
}
