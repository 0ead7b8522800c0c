package auth

import (
	"net/http"

	apperrors "github.com/jrsteele09/go-line-login/internal/errors"
)

type ErrorKind string

const (
	KindInvalidState   ErrorKind = "InvalidState"
	KindInvalidIDToken ErrorKind = "InvalidIDToken"
	KindProviderDenied ErrorKind = "ProviderDenied"
	KindMissingCode    ErrorKind = "MissingCode"
)

// AuthError is a callback failure that is safe to show to the user. Message and
// Status go into the response body as is.
type AuthError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func errInvalidState() *AuthError {
	return &AuthError{
		Kind:    KindInvalidState,
		Status:  http.StatusUnauthorized,
		Message: "Invalid state parameter",
		Err:     apperrors.ErrInvalidState,
	}
}

func errProviderDenied(code, description string) *AuthError {
	return &AuthError{
		Kind:    KindProviderDenied,
		Status:  http.StatusBadRequest,
		Message: "Authorization was not granted",
		Err:     apperrors.Wrapf(apperrors.ErrProviderDenied, "%s: %s", code, description),
	}
}

func errMissingCode() *AuthError {
	return &AuthError{
		Kind:    KindMissingCode,
		Status:  http.StatusBadRequest,
		Message: "Missing authorization code",
		Err:     apperrors.ErrMissingCode,
	}
}

func errInvalidIDToken(err error) *AuthError {
	return &AuthError{
		Kind:    KindInvalidIDToken,
		Status:  http.StatusUnauthorized,
		Message: "Invalid ID token",
		Err:     err,
	}
}
