package errors

import (
	"errors"
	"fmt"
)

// Common error types for the login flow
var (
	// Callback errors
	ErrInvalidState   = errors.New("invalid state parameter")
	ErrInvalidIDToken = errors.New("invalid id token")
	ErrProviderDenied = errors.New("provider denied authorization")
	ErrMissingCode    = errors.New("missing authorization code")

	// Provider errors
	ErrUpstream = errors.New("upstream provider error")

	// Bearer token errors
	ErrInvalidToken = errors.New("invalid token")

	// Session errors
	ErrSessionIO       = errors.New("session store failure")
	ErrSessionNotFound = errors.New("session not found")

	// Configuration errors
	ErrMissingConfig = errors.New("missing configuration")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
