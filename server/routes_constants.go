package server

// Route path constants
const (
	RouteHome   = "/"
	RouteStatic = "/static/"

	// Auth Routes
	RouteAuthLogin    = "/auth/login"
	RouteAuthCallback = "/auth/callback"
	RouteAuthProfile  = "/auth/profile"
	RouteAuthLogout   = "/auth/logout"

	// API Routes
	RouteAPIMe = "/api/me"

	// Operational Routes
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"
)
