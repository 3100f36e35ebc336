package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/salesops/backend/internal/domain/access"
	"github.com/salesops/backend/internal/infrastructure/auth"
	"github.com/salesops/backend/internal/infrastructure/logger"
	"github.com/salesops/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Identity context keys
const (
	IdentityKey       = "identity"
	ClaimsKey         = "jwt_claims"
	AuthHeaderKey     = "Authorization"
	BearerPrefix      = "Bearer "
	ImpersonateHeader = "X-Impersonate"
)

// IdentityConfig holds configuration for the identity middleware
type IdentityConfig struct {
	// JWTService is required for token validation
	JWTService *auth.JWTService
	// Revocations is optional; lookups that fail let the request through
	Revocations auth.RevocationList
	// AdminCode is the only subject allowed to impersonate
	AdminCode string
	// SkipPaths are paths that don't require authentication
	SkipPaths []string
	// SkipPathPrefixes are path prefixes that don't require authentication
	SkipPathPrefixes []string
	Logger           *zap.Logger
}

// DefaultIdentityConfig returns the identity configuration used by the server
func DefaultIdentityConfig(jwtService *auth.JWTService, adminCode string) IdentityConfig {
	return IdentityConfig{
		JWTService: jwtService,
		AdminCode:  adminCode,
		SkipPaths: []string{
			"/health",
			"/ready",
			"/api/v1/health",
		},
		SkipPathPrefixes: []string{
			"/swagger",
		},
	}
}

// Identity authenticates the bearer token and builds the request identity.
// The X-Impersonate header overrides the token's impersonate claim and is
// honoured for the administrator only.
func Identity(cfg IdentityConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if path == skip {
				c.Next()
				return
			}
		}
		for _, prefix := range cfg.SkipPathPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		header := c.GetHeader(AuthHeaderKey)
		if header == "" {
			abortUnauthorized(c, log, auth.ErrInvalidToken, "Missing authorization header")
			return
		}
		if !strings.HasPrefix(header, BearerPrefix) {
			abortUnauthorized(c, log, auth.ErrInvalidToken, "Invalid authorization header format")
			return
		}
		tokenString := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
		if tokenString == "" {
			abortUnauthorized(c, log, auth.ErrInvalidToken, "Missing token")
			return
		}

		claims, err := cfg.JWTService.ValidateToken(tokenString)
		if err != nil {
			abortUnauthorized(c, log, err, "Token validation failed")
			return
		}

		if cfg.Revocations != nil && claims.ID != "" {
			revoked, err := cfg.Revocations.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				log.Error("Failed to check token revocation",
					zap.String("jti", claims.ID),
					zap.Error(err))
			} else if revoked {
				abortUnauthorized(c, log, auth.ErrTokenRevoked, "Token has been revoked")
				return
			}
		}

		identity, err := claims.Identity(cfg.AdminCode, c.GetHeader(ImpersonateHeader))
		if err != nil {
			log.Warn("Impersonation refused",
				zap.String("subject", claims.SubjectCode),
				zap.String("path", path))
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponse(dto.ErrCodeForbidden, err.Error(), c.GetString("request_id")))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(IdentityKey, identity)

		ctx := logger.WithIdentity(c.Request.Context(), logger.Identity{
			Subject:        identity.SubjectCode,
			EffectiveOwner: identity.EffectiveCode(),
			ActingAdmin:    identity.ActingAdmin(),
		})
		c.Request = c.Request.WithContext(ctx)

		log.Debug("Identity established",
			zap.String("subject", identity.SubjectCode),
			zap.String("effective_owner", identity.EffectiveCode()))

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, log *zap.Logger, err error, message string) {
	log.Warn("Authentication failed",
		zap.Error(err),
		zap.String("message", message),
		zap.String("path", c.Request.URL.Path),
	)

	code := dto.ErrCodeUnauthorized
	text := "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, text = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		code, text = dto.ErrCodeTokenRevoked, "Token has been revoked"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		text = "Token is not yet valid"
	case errors.Is(err, auth.ErrMissingSubjectCode):
		text = "Token carries no subject code"
	case errors.Is(err, auth.ErrInvalidToken):
		text = "Invalid token"
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(code, text, c.GetString("request_id")))
}

// GetIdentity retrieves the request identity from gin.Context
func GetIdentity(c *gin.Context) (access.IdentityContext, bool) {
	v, exists := c.Get(IdentityKey)
	if !exists {
		return access.IdentityContext{}, false
	}
	identity, ok := v.(access.IdentityContext)
	return identity, ok
}

// GetClaims retrieves the validated token claims from gin.Context
func GetClaims(c *gin.Context) *auth.Claims {
	if v, exists := c.Get(ClaimsKey); exists {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}
