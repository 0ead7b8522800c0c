package server

import "net/http"

func (s *Server) initRoutes() error {
	index, err := s.IndexHandler()
	if err != nil {
		return err
	}
	profile, err := s.ProfileHandler()
	if err != nil {
		return err
	}
	static, err := StaticHandler()
	if err != nil {
		return err
	}

	s.RegisterRouteHandler("GET /{$}", ChainMiddleware(index, s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteStatic, ChainMiddleware(static, s.HTMLMiddleWare()...))

	// LOGIN FLOW
	s.RegisterRouteHandler("GET "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.AuthMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthCallback, ChainMiddleware(s.CallbackHandler(), s.AuthMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare(s.NoStoreMiddleware)...))

	// Protected by the session guard
	s.RegisterRouteHandler("GET "+RouteAuthProfile, ChainMiddleware(profile, s.HTMLMiddleWare(s.NoStoreMiddleware, s.RequireSession())...))

	// Protected by the bearer token guard
	s.RegisterRouteHandler("GET "+RouteAPIMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireToken())...))

	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics.Handler())

	s.RegisterRouteHandler("/", ChainMiddleware(s.NotFoundHandler(), s.HTMLMiddleWare()...))
	return nil
}

func (s *Server) NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "Not Found", Status: http.StatusNotFound})
	}
}
