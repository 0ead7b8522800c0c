package server

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-line-login/auth"
	"github.com/jrsteele09/go-line-login/provider"
	"github.com/jrsteele09/go-line-login/token"
)

type pageData struct {
	AppName   string
	LoginURL  string
	LogoutURL string
	User      *provider.Profile
}

// IndexHandler renders the home page. A logged in user is shown but no session is created.
func (s *Server) IndexHandler() (http.HandlerFunc, error) {
	tmpl, err := ParseTemplate("index.html")
	if err != nil {
		return nil, err
	}

	return func(w http.ResponseWriter, r *http.Request) {
		data := s.newPageData()
		if sess, err := s.sessions.Load(r.Context(), r); err == nil {
			data.User, _ = auth.UserFromSession(sess)
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := tmpl.Execute(w, data); err != nil {
			log.Err(err).Msg("failed to render index page")
		}
	}, nil
}

// ProfileHandler renders the logged in user's profile. Must run behind RequireSession.
func (s *Server) ProfileHandler() (http.HandlerFunc, error) {
	tmpl, err := ParseTemplate("profile.html")
	if err != nil {
		return nil, err
	}

	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, RouteHome, http.StatusFound)
			return
		}
		data := s.newPageData()
		data.User = user

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := tmpl.Execute(w, data); err != nil {
			log.Err(err).Msg("failed to render profile page")
		}
	}, nil
}

// MeHandler returns the bearer token claims. Must run behind RequireToken.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := token.FromContext(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "Unauthorized", Status: http.StatusUnauthorized})
			return
		}
		writeJSON(w, http.StatusOK, claims)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) newPageData() pageData {
	return pageData{
		AppName:   s.config.GetAppName(),
		LoginURL:  RouteAuthLogin,
		LogoutURL: RouteAuthLogout,
	}
}
