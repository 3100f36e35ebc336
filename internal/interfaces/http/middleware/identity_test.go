package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/salesops/backend/internal/domain/access"
	"github.com/salesops/backend/internal/infrastructure/auth"
	"github.com/salesops/backend/internal/infrastructure/config"
	"github.com/salesops/backend/internal/infrastructure/logger"
	"github.com/salesops/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testAdmin = "ADMIN"

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "test-issuer",
	})
}

func issue(t *testing.T, svc *auth.JWTService, input auth.GenerateTokenInput) string {
	t.Helper()
	token, _, err := svc.GenerateToken(input)
	require.NoError(t, err)
	return token
}

type failingRevocations struct{}

func (failingRevocations) Revoke(context.Context, string, time.Duration) error {
	return errors.New("redis down")
}

func (failingRevocations) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func identityRouter(cfg IdentityConfig, seen *access.IdentityContext) *gin.Engine {
	router := gin.New()
	router.Use(Identity(cfg))
	router.GET("/reports", func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if ok && seen != nil {
			*seen = id
		}
		c.JSON(http.StatusOK, gin.H{"owner": id.EffectiveCode()})
	})
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func serve(router http.Handler, token string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/reports", nil)
	if token != "" {
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.False(t, resp.Success)
	return resp.Error.Code
}

func TestIdentity_ValidToken(t *testing.T) {
	svc := newTestJWTService()
	token := issue(t, svc, auth.GenerateTokenInput{SubjectCode: "REPA", Regions: []string{"EAST"}})

	var seen access.IdentityContext
	rec := serve(identityRouter(DefaultIdentityConfig(svc, testAdmin), &seen), token, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "REPA", seen.SubjectCode)
	assert.Equal(t, "REPA", seen.EffectiveCode())
	assert.False(t, seen.IsImpersonating())
	assert.Equal(t, []string{"EAST"}, seen.RegionOverrides)
}

func TestIdentity_Rejections(t *testing.T) {
	svc := newTestJWTService()
	router := identityRouter(DefaultIdentityConfig(svc, testAdmin), nil)

	t.Run("missing header", func(t *testing.T) {
		rec := serve(router, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, dto.ErrCodeUnauthorized, errorCode(t, rec))
	})

	t.Run("wrong scheme", func(t *testing.T) {
		rec := serve(router, "", map[string]string{AuthHeaderKey: "Basic abc"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := serve(router, "not.a.token", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := auth.NewJWTService(config.JWTConfig{
			Secret:                "test-secret-key-at-least-32-chars",
			AccessTokenExpiration: -time.Minute,
			Issuer:                "test-issuer",
		})
		rec := serve(router, issue(t, expired, auth.GenerateTokenInput{SubjectCode: "REPA"}), nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, dto.ErrCodeTokenExpired, errorCode(t, rec))
	})

	t.Run("skip path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestIdentity_Impersonation(t *testing.T) {
	svc := newTestJWTService()

	t.Run("admin header override", func(t *testing.T) {
		var seen access.IdentityContext
		router := identityRouter(DefaultIdentityConfig(svc, testAdmin), &seen)
		token := issue(t, svc, auth.GenerateTokenInput{SubjectCode: testAdmin})

		rec := serve(router, token, map[string]string{ImpersonateHeader: "REPB"})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "REPB", seen.EffectiveCode())
		assert.Equal(t, testAdmin, seen.ActingAdmin())
	})

	t.Run("admin claim", func(t *testing.T) {
		var seen access.IdentityContext
		router := identityRouter(DefaultIdentityConfig(svc, testAdmin), &seen)
		token := issue(t, svc, auth.GenerateTokenInput{SubjectCode: testAdmin, Impersonate: "REPA"})

		rec := serve(router, token, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "REPA", seen.EffectiveCode())
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		router := identityRouter(DefaultIdentityConfig(svc, testAdmin), nil)
		token := issue(t, svc, auth.GenerateTokenInput{SubjectCode: "REPA"})

		rec := serve(router, token, map[string]string{ImpersonateHeader: "REPB"})

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, dto.ErrCodeForbidden, errorCode(t, rec))
	})

	t.Run("self impersonation is a no-op", func(t *testing.T) {
		var seen access.IdentityContext
		router := identityRouter(DefaultIdentityConfig(svc, testAdmin), &seen)
		token := issue(t, svc, auth.GenerateTokenInput{SubjectCode: "REPA"})

		rec := serve(router, token, map[string]string{ImpersonateHeader: "REPA"})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, seen.IsImpersonating())
	})
}

func TestIdentity_Revocation(t *testing.T) {
	svc := newTestJWTService()
	token := issue(t, svc, auth.GenerateTokenInput{SubjectCode: "REPA"})
	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)

	t.Run("revoked token", func(t *testing.T) {
		revocations := auth.NewInMemoryRevocationList()
		require.NoError(t, revocations.Revoke(context.Background(), claims.ID, time.Minute))

		cfg := DefaultIdentityConfig(svc, testAdmin)
		cfg.Revocations = revocations
		rec := serve(identityRouter(cfg, nil), token, nil)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, dto.ErrCodeTokenRevoked, errorCode(t, rec))
	})

	t.Run("lookup failure fails open", func(t *testing.T) {
		cfg := DefaultIdentityConfig(svc, testAdmin)
		cfg.Revocations = failingRevocations{}
		rec := serve(identityRouter(cfg, nil), token, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestIdentity_AttachesLogIdentity(t *testing.T) {
	svc := newTestJWTService()
	token := issue(t, svc, auth.GenerateTokenInput{SubjectCode: testAdmin, Impersonate: "REPB"})

	router := gin.New()
	router.Use(Identity(DefaultIdentityConfig(svc, testAdmin)))
	var got logger.Identity
	router.GET("/reports", func(c *gin.Context) {
		got = logger.GetIdentity(c.Request.Context())
		assert.NotNil(t, GetClaims(c))
		c.Status(http.StatusNoContent)
	})

	rec := serve(router, token, nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, logger.Identity{Subject: testAdmin, EffectiveOwner: "REPB", ActingAdmin: testAdmin}, got)
}
