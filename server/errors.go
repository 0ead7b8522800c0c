package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-line-login/auth"
	apperrors "github.com/jrsteele09/go-line-login/internal/errors"
)

type errorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
	Detail  string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("failed to write json response")
	}
}

// handleError is the single error renderer. Auth errors keep their own status
// and message; upstream failures are 502 and everything else 500.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Status: http.StatusInternalServerError}

	var authErr *auth.AuthError
	switch {
	case errors.As(err, &authErr):
		resp.Status = authErr.Status
		resp.Message = authErr.Message
	case errors.Is(err, apperrors.ErrUpstream):
		resp.Status = http.StatusBadGateway
		resp.Message = "Login provider request failed"
	case errors.Is(err, apperrors.ErrSessionIO):
		resp.Message = "Session storage unavailable"
	default:
		resp.Message = "Internal server error"
	}

	event := log.Warn()
	if resp.Status >= http.StatusInternalServerError {
		event = log.Error()
		if s.config.IsDevelopment() {
			resp.Detail = err.Error()
		} else {
			resp.Message = http.StatusText(resp.Status)
		}
	}
	event.Err(err).Str("path", r.URL.Path).Int("status", resp.Status).Msg("request failed")

	writeJSON(w, resp.Status, resp)
}
