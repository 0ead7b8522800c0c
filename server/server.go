package server

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-line-login/auth"
	"github.com/jrsteele09/go-line-login/internal/config"
	"github.com/jrsteele09/go-line-login/internal/metrics"
	"github.com/jrsteele09/go-line-login/ratelimit"
	"github.com/jrsteele09/go-line-login/sessions"
	"github.com/jrsteele09/go-line-login/token"
)

// Dependencies are the collaborators the HTTP layer is wired with.
type Dependencies struct {
	Provider auth.IdentityProvider
	States   auth.StateGenerator
	Sessions *sessions.Manager
	Verifier token.Verifier
	// Revocations records bearer tokens cleared on logout; nil skips revocation
	Revocations token.RevocationList
	// Signer mints the bearer cookie after login when enabled in config
	Signer token.Signer
	// A nil limiter disables that limit
	GlobalLimiter ratelimit.Limiter
	AuthLimiter   ratelimit.Limiter
	Metrics       *metrics.Metrics
}

type Server struct {
	env           string
	mux           *http.ServeMux
	routes        []string
	config        config.Config
	auth          *auth.Service
	sessions      *sessions.Manager
	verifier      token.Verifier
	revocations   token.RevocationList
	signer        token.Signer
	globalLimiter ratelimit.Limiter
	authLimiter   ratelimit.Limiter
	metrics       *metrics.Metrics
}

func New(config config.Config, deps Dependencies) (*Server, error) {
	if deps.Provider == nil || deps.States == nil || deps.Sessions == nil || deps.Verifier == nil {
		return nil, fmt.Errorf("[Server New] provider, state generator, session manager and verifier are required")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	s := &Server{
		env:           config.GetEnv(),
		mux:           http.NewServeMux(),
		config:        config,
		auth:          auth.New(deps.Provider, deps.States),
		sessions:      deps.Sessions,
		verifier:      deps.Verifier,
		revocations:   deps.Revocations,
		signer:        deps.Signer,
		globalLimiter: deps.GlobalLimiter,
		authLimiter:   deps.AuthLimiter,
		metrics:       deps.Metrics,
	}

	if err := s.initRoutes(); err != nil {
		return nil, fmt.Errorf("[Server New] %w", err)
	}
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != config.EnvDevelopment {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	log.Debug().Msgf("[%s%-7s%s] %s", color, method, ResetColor, path)
}

// clientIP returns the caller address. With TRUST_PROXY set, RemoteAddr has
// already been rewritten from X-Forwarded-For / X-Real-IP by the RealIP middleware.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
