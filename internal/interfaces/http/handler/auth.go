package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/salesops/backend/internal/infrastructure/auth"
	"github.com/salesops/backend/internal/infrastructure/logger"
	"github.com/salesops/backend/internal/interfaces/http/dto"
	"github.com/salesops/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// AuthHandler handles session endpoints. Tokens are issued by the identity
// provider; this service only validates and revokes them.
type AuthHandler struct {
	BaseHandler
	revocations auth.RevocationList
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(revocations auth.RevocationList) *AuthHandler {
	return &AuthHandler{revocations: revocations}
}

// SessionResponse describes the caller's session
type SessionResponse struct {
	SubjectCode    string   `json:"subject_code" example:"REPA"`
	EffectiveOwner string   `json:"effective_owner" example:"REPA"`
	ActingAdmin    string   `json:"acting_admin,omitempty"`
	Regions        []string `json:"regions,omitempty"`
	ExpiresIn      int64    `json:"expires_in" example:"900"`
}

// RevokeResponse confirms a revocation
type RevokeResponse struct {
	Message string `json:"message" example:"Token revoked"`
}

// GetSession godoc
// @ID           getAuthSession
// @Summary      Describe the current session
// @Description  Returns the identity resolved from the bearer token and X-Impersonate header
// @Tags         auth
// @Produce      json
// @Success      200 {object} APIResponse[SessionResponse]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /auth/session [get]
func (h *AuthHandler) GetSession(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	resp := SessionResponse{
		SubjectCode:    identity.SubjectCode,
		EffectiveOwner: identity.EffectiveCode(),
		ActingAdmin:    identity.ActingAdmin(),
		Regions:        identity.RegionOverrides,
	}
	if claims := middleware.GetClaims(c); claims != nil {
		resp.ExpiresIn = int64(claims.GetRemainingTTL().Seconds())
	}
	h.Success(c, resp)
}

// Revoke godoc
// @ID           revokeAuthToken
// @Summary      Revoke the current token
// @Description  Adds the token id to the revocation list until the token would expire
// @Tags         auth
// @Produce      json
// @Success      200 {object} APIResponse[RevokeResponse]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /auth/revoke [post]
func (h *AuthHandler) Revoke(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		h.Error(c, dto.ErrCodeUnauthorized, "Authentication required")
		return
	}
	if claims.ID == "" {
		h.BadRequest(c, "Token has no id and cannot be revoked")
		return
	}

	ttl := claims.GetRemainingTTL()
	if ttl > 0 {
		if err := h.revocations.Revoke(c.Request.Context(), claims.ID, ttl); err != nil {
			h.HandleError(c, err)
			return
		}
	}
	logger.L(c.Request.Context()).Info("Token revoked", zap.String("jti", claims.ID))
	h.Success(c, RevokeResponse{Message: "Token revoked"})
}
