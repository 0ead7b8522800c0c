package token_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jrsteele09/go-line-login/internal/errors"
	"github.com/jrsteele09/go-line-login/token"
)

const (
	testSecret      = "test-jwt-secret"
	testUserID      = "U1234567890"
	testDisplayName = "Alice"
)

func fixedNow(t *testing.T, now time.Time) {
	t.Helper()
	original := token.NowTimeFunc
	token.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { token.NowTimeFunc = original })
}

func TestVerifyValidToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fixedNow(t, now)

	signer := token.NewHMACSigner(testSecret)
	raw, err := token.Issue(signer, testUserID, testDisplayName, time.Hour)
	require.NoError(t, err)

	claims, err := token.NewVerifier(signer).Verify(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, testUserID, claims.UserID)
	require.Equal(t, testDisplayName, claims.DisplayName)
	require.Equal(t, now.Unix(), claims.IssuedAt.Unix())
	require.Equal(t, now.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestVerifyFailuresCollapseToInvalidToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fixedNow(t, now)

	signer := token.NewHMACSigner(testSecret)
	verifier := token.NewVerifier(signer)

	valid, err := token.Issue(signer, testUserID, testDisplayName, time.Hour)
	require.NoError(t, err)
	expired, err := token.Issue(signer, testUserID, testDisplayName, -time.Minute)
	require.NoError(t, err)
	wrongSecret, err := token.Issue(token.NewHMACSigner("another-secret"), testUserID, "", time.Hour)
	require.NoError(t, err)
	noExpiry, err := signer.Sign(&token.Claims{UserID: testUserID})
	require.NoError(t, err)
	noUser, err := token.Issue(signer, "", testDisplayName, time.Hour)
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &token.Claims{
		UserID:           testUserID,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"malformed", "not-a-jwt"},
		{"expired", expired},
		{"wrong secret", wrongSecret},
		{"missing expiry", noExpiry},
		{"missing user", noUser},
		{"alg none", unsigned},
		{"tampered", valid[:len(valid)-2] + "xx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := verifier.Verify(context.Background(), tt.token)
			require.Nil(t, claims)
			require.ErrorIs(t, err, apperrors.ErrInvalidToken)
		})
	}
}

func TestVerifyHonoursCancelledContext(t *testing.T) {
	signer := token.NewHMACSigner(testSecret)
	raw, err := token.Issue(signer, testUserID, "", time.Hour)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = token.NewVerifier(signer).Verify(ctx, raw)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}
