package server

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-line-login/auth"
	"github.com/jrsteele09/go-line-login/token"
)

// CallbackHandler completes the provider login (GET /auth/callback)
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Start(r.Context(), w, r)
		if err != nil {
			s.handleError(w, r, err)
			return
		}

		profile, err := s.auth.Callback(r.Context(), sess, auth.CallbackParamsFromQuery(r.URL.Query()))
		s.metrics.ObserveCallback(err)
		if err != nil {
			s.handleError(w, r, err)
			return
		}

		if s.signer != nil && s.config.GetIssueBearerCookie() {
			ttl := s.config.GetBearerTTL()
			bearer, err := token.Issue(s.signer, profile.UserID, profile.DisplayName, ttl)
			if err != nil {
				// The session login already succeeded; only the token guard is affected
				log.Err(err).Str("user", profile.UserID).Msg("failed to issue bearer token")
			} else {
				s.setBearerCookie(w, bearer, ttl)
			}
		}

		log.Debug().Str("session", sess.ID()).Str("step", string(auth.StepRedirected)).Msg("redirecting to profile")
		http.Redirect(w, r, RouteAuthProfile, http.StatusFound)
	}
}
