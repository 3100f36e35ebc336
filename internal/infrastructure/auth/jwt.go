// Package auth validates bearer tokens and turns their claims into the
// identity context used for access decisions.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/salesops/backend/internal/domain/access"
	"github.com/salesops/backend/internal/domain/shared"
	"github.com/salesops/backend/internal/infrastructure/config"
)

// Common errors
var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrInvalidClaims      = errors.New("invalid token claims")
	ErrTokenNotYetValid   = errors.New("token is not yet valid")
	ErrMissingSubjectCode = errors.New("missing sub_code in claims")
	ErrTokenRevoked       = errors.New("token has been revoked")

	// ErrImpersonationForbidden is returned when a non-administrator asks to act as another owner
	ErrImpersonationForbidden = shared.NewDomainError("FORBIDDEN", "Only the administrator may impersonate another owner")
)

// Claims represents the custom JWT claims issued by the identity provider
type Claims struct {
	jwt.RegisteredClaims
	// SubjectCode is the caller's own owner code
	SubjectCode string `json:"sub_code"`
	// Impersonate optionally names the owner the caller acts for
	Impersonate string `json:"impersonate,omitempty"`
	// Regions optionally narrows visibility to these region codes
	Regions []string `json:"regions,omitempty"`
}

// JWTService handles JWT token operations
type JWTService struct {
	secret     []byte
	expiration time.Duration
	issuer     string
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret:     []byte(cfg.Secret),
		expiration: cfg.AccessTokenExpiration,
		issuer:     cfg.Issuer,
	}
}

// GenerateTokenInput contains input for token generation
type GenerateTokenInput struct {
	SubjectCode string
	Impersonate string
	Regions     []string
}

// GenerateToken issues a signed access token. Used by tooling and tests;
// production tokens come from the identity provider.
func (s *JWTService) GenerateToken(input GenerateTokenInput) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiration)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   input.SubjectCode,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		SubjectCode: input.SubjectCode,
		Impersonate: input.Impersonate,
		Regions:     input.Regions,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// ValidateToken validates an access token and returns its claims
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	var opts []jwt.ParserOption
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if strings.TrimSpace(claims.SubjectCode) == "" {
		return nil, ErrMissingSubjectCode
	}
	return claims, nil
}

// Identity builds the request identity. override, when non-empty, replaces
// the token's impersonate claim. Impersonation is honoured only for the
// administrator sentinel; anyone else gets ErrImpersonationForbidden.
func (c *Claims) Identity(adminCode, override string) (access.IdentityContext, error) {
	impersonate := strings.TrimSpace(c.Impersonate)
	if o := strings.TrimSpace(override); o != "" {
		impersonate = o
	}
	subject := strings.TrimSpace(c.SubjectCode)
	if impersonate != "" && impersonate != subject {
		if adminCode == "" || subject != strings.TrimSpace(adminCode) {
			return access.IdentityContext{}, ErrImpersonationForbidden
		}
	} else {
		impersonate = ""
	}
	return access.NewIdentityContext(subject, impersonate, c.Regions), nil
}

// GetRemainingTTL returns the remaining time until the token expires
func (c *Claims) GetRemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	remaining := time.Until(c.ExpiresAt.Time)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// GetExpiration returns the access token expiration duration
func (s *JWTService) GetExpiration() time.Duration {
	return s.expiration
}
