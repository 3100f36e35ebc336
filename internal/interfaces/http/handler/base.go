// Package handler holds the gin handlers of the report API.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/salesops/backend/internal/domain/access"
	"github.com/salesops/backend/internal/domain/shared"
	"github.com/salesops/backend/internal/infrastructure/logger"
	"github.com/salesops/backend/internal/interfaces/http/dto"
	"github.com/salesops/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Error sends an error response with the status derived from code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponse(code, message, getRequestID(c)))
}

// BadRequest sends a 400 invalid input response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeInvalidInput, message)
}

// ValidationError sends a 400 response describing binding failures
func (h *BaseHandler) ValidationError(c *gin.Context, err error) {
	middleware.HandleValidationError(c, err)
}

// identity returns the authenticated identity or writes a 401
func (h *BaseHandler) identity(c *gin.Context) (access.IdentityContext, bool) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		h.Error(c, dto.ErrCodeUnauthorized, "Authentication required")
		return access.IdentityContext{}, false
	}
	return id, true
}

// HandleError maps service errors to responses. Domain errors keep their
// code; data source failures become 502; anything else is a logged 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	info := errorInfo(err, getRequestID(c))
	if info.Code == dto.ErrCodeInternal || info.Code == dto.ErrCodeDataSource {
		logger.L(c.Request.Context()).Error("Request failed", zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(dto.GetHTTPStatus(info.Code), dto.Response{Success: false, Error: info})
}

// errorInfo classifies err for the error envelope
func errorInfo(err error, requestID string) *dto.ErrorInfo {
	if errors.Is(err, shared.ErrDataSourceFailure) || errors.Is(err, context.DeadlineExceeded) {
		return &dto.ErrorInfo{
			Code:      dto.ErrCodeDataSource,
			Message:   shared.ErrDataSourceFailure.Message,
			RequestID: requestID,
		}
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		message := domainErr.Message
		// wrapped input errors carry the reason
		if domainErr.Code == dto.ErrCodeInvalidInput {
			message = err.Error()
		}
		return &dto.ErrorInfo{Code: domainErr.Code, Message: message, RequestID: requestID}
	}

	return &dto.ErrorInfo{
		Code:      dto.ErrCodeInternal,
		Message:   "An unexpected error occurred",
		RequestID: requestID,
	}
}
