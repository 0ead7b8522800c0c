package token

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/jrsteele09/go-line-login/internal/errors"
)

// Claims is the decoded payload of a bearer token. Nothing about it is stored
// server side; trust comes from the signature and expiry alone.
type Claims struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates a presented bearer token. Implementations may perform I/O
// (for example fetching rotated keys), hence the context.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*Claims, error)
}

type JWTVerifier struct {
	signer      Signer
	revocations RevocationList
}

var _ Verifier = (*JWTVerifier)(nil)

type VerifierOption func(*JWTVerifier)

// WithRevocationList rejects tokens whose jti has been revoked.
func WithRevocationList(list RevocationList) VerifierOption {
	return func(v *JWTVerifier) {
		v.revocations = list
	}
}

func NewVerifier(signer Signer, opts ...VerifierOption) *JWTVerifier {
	v := &JWTVerifier{signer: signer}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks the signature, algorithm and expiry of rawToken. Every failure
// matches apperrors.ErrInvalidToken; callers are not told which check failed.
func (v *JWTVerifier) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	if err := ctx.Err(); err != nil {
		return nil, invalid(err)
	}
	if strings.TrimSpace(rawToken) == "" {
		return nil, invalid(fmt.Errorf("empty token"))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(rawToken, claims, v.signer.GetVerificationKey,
		jwt.WithValidMethods([]string{v.signer.GetSigningMethod().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(NowTimeFunc),
	)
	if err != nil {
		return nil, invalid(err)
	}
	if !parsed.Valid {
		return nil, invalid(fmt.Errorf("token not valid"))
	}
	if claims.UserID == "" {
		return nil, invalid(fmt.Errorf("missing userId claim"))
	}
	if v.revocations != nil && claims.ID != "" {
		revoked, err := v.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			// Fail closed
			return nil, invalid(err)
		}
		if revoked {
			return nil, invalid(fmt.Errorf("token revoked"))
		}
	}
	return claims, nil
}

func invalid(cause error) error {
	return fmt.Errorf("[JWTVerifier Verify] %w: %v", apperrors.ErrInvalidToken, cause)
}
