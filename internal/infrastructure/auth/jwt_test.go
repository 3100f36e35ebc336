package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/salesops/backend/internal/domain/shared"
	"github.com/salesops/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		Issuer:                "salesops-test",
		AccessTokenExpiration: 15 * time.Minute,
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestJWTService()

	token, expiresAt, err := svc.GenerateToken(GenerateTokenInput{SubjectCode: "REPA", Regions: []string{"EAST"}})
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "REPA", claims.SubjectCode)
	assert.Equal(t, []string{"EAST"}, claims.Regions)
	assert.NotEmpty(t, claims.ID)
	assert.Greater(t, claims.GetRemainingTTL(), time.Duration(0))
}

func TestValidateToken_Failures(t *testing.T) {
	svc := newTestJWTService()

	sign := func(claims *Claims, secret string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	registered := func(exp time.Time) jwt.RegisteredClaims {
		return jwt.RegisteredClaims{Issuer: "salesops-test", ExpiresAt: jwt.NewNumericDate(exp)}
	}

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"garbage", "not-a-token", ErrInvalidToken},
		{"wrong secret", sign(&Claims{RegisteredClaims: registered(time.Now().Add(time.Hour)), SubjectCode: "REPA"}, "other-secret"), ErrInvalidToken},
		{"expired", sign(&Claims{RegisteredClaims: registered(time.Now().Add(-time.Hour)), SubjectCode: "REPA"}, "test-secret-key-at-least-32-chars"), ErrExpiredToken},
		{"missing sub_code", sign(&Claims{RegisteredClaims: registered(time.Now().Add(time.Hour))}, "test-secret-key-at-least-32-chars"), ErrMissingSubjectCode},
		{"wrong issuer", sign(&Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: "elsewhere", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}, SubjectCode: "REPA"}, "test-secret-key-at-least-32-chars"), ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClaims_Identity(t *testing.T) {
	t.Run("plain caller", func(t *testing.T) {
		c := &Claims{SubjectCode: "REPA", Regions: []string{"EAST", " "}}
		id, err := c.Identity("ADMIN", "")
		require.NoError(t, err)
		assert.Equal(t, "REPA", id.EffectiveCode())
		assert.False(t, id.IsImpersonating())
		assert.Equal(t, []string{"EAST"}, id.RegionOverrides)
	})

	t.Run("admin impersonates through the claim", func(t *testing.T) {
		c := &Claims{SubjectCode: "ADMIN", Impersonate: "REPB"}
		id, err := c.Identity("ADMIN", "")
		require.NoError(t, err)
		assert.Equal(t, "REPB", id.EffectiveCode())
		assert.Equal(t, "ADMIN", id.ActingAdmin())
	})

	t.Run("override replaces the claim", func(t *testing.T) {
		c := &Claims{SubjectCode: "ADMIN", Impersonate: "REPB"}
		id, err := c.Identity("ADMIN", "REPC")
		require.NoError(t, err)
		assert.Equal(t, "REPC", id.EffectiveCode())
	})

	t.Run("non-admin impersonation is forbidden", func(t *testing.T) {
		c := &Claims{SubjectCode: "REPA"}
		_, err := c.Identity("ADMIN", "REPB")
		assert.ErrorIs(t, err, ErrImpersonationForbidden)
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("impersonating yourself is a no-op", func(t *testing.T) {
		c := &Claims{SubjectCode: "REPA", Impersonate: "REPA"}
		id, err := c.Identity("ADMIN", "")
		require.NoError(t, err)
		assert.False(t, id.IsImpersonating())
	})
}

func TestInMemoryRevocationList(t *testing.T) {
	l := NewInMemoryRevocationList()
	ctx := context.Background()

	require.NoError(t, l.Revoke(ctx, "jti-1", time.Hour))
	revoked, err := l.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = l.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, l.Revoke(ctx, "jti-short", time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	revoked, err = l.IsRevoked(ctx, "jti-short")
	require.NoError(t, err)
	assert.False(t, revoked)
}
