package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	notificationapp "github.com/salesops/backend/internal/application/notification"
	"github.com/salesops/backend/internal/domain/notification"
	"github.com/salesops/backend/internal/interfaces/http/dto"
)

// NoticeService is the notification application service used by NoticeHandler
type NoticeService interface {
	RunExpiryNotices(ctx context.Context, asOf time.Time) (notificationapp.ExpirySummary, error)
	NoticeStatus(ctx context.Context, entityID string, noticeType notification.NoticeType, expirationDate time.Time) (*notification.Record, error)
}

// NoticeHandler exposes the expiry notice run and the dedup log
type NoticeHandler struct {
	BaseHandler
	service   NoticeService
	adminCode string
}

// NewNoticeHandler creates a new NoticeHandler. Only adminCode may trigger runs.
func NewNoticeHandler(service NoticeService, adminCode string) *NoticeHandler {
	return &NoticeHandler{service: service, adminCode: adminCode}
}

// NoticeRunResponse is the outcome of a manual notice run
type NoticeRunResponse struct {
	AsOf    string                        `json:"as_of" example:"2025-02-01"`
	Summary notificationapp.ExpirySummary `json:"summary"`
	Errors  string                        `json:"errors,omitempty"`
}

// NoticeStatusResponse reports whether a notice was recorded
type NoticeStatusResponse struct {
	EntityID       string    `json:"entity_id" example:"AGR-001"`
	NoticeType     string    `json:"notice_type" example:"EXPIRY_30"`
	ExpirationDate string    `json:"expiration_date" example:"2025-03-03"`
	SentAt         time.Time `json:"sent_at"`
	SentTo         []string  `json:"sent_to"`
}

// RunNotices godoc
// @ID           runExpiryNotices
// @Summary      Run expiry notices now
// @Description  Sends due agreement expiry notices and expires lapsed agreements. Safe to repeat: recorded notices are not resent. Administrator only.
// @Tags         notices
// @Accept       json
// @Produce      json
// @Param        request body dto.RunNoticesRequest false "As-of date, defaults to today"
// @Success      200 {object} APIResponse[NoticeRunResponse]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /notices/run [post]
func (h *NoticeHandler) RunNotices(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	if h.adminCode == "" || identity.SubjectCode != h.adminCode {
		h.Error(c, dto.ErrCodeForbidden, "Only the administrator may run notices")
		return
	}

	var body dto.RunNoticesRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			h.ValidationError(c, err)
			return
		}
	}
	asOf := time.Now().UTC()
	if body.AsOf != "" {
		parsed, err := time.Parse(dto.DateLayout, body.AsOf)
		if err != nil {
			h.BadRequest(c, "invalid as_of")
			return
		}
		asOf = parsed
	}

	summary, err := h.service.RunExpiryNotices(c.Request.Context(), asOf)
	resp := NoticeRunResponse{AsOf: asOf.Format(dto.DateLayout), Summary: summary}
	if err != nil {
		// per-agreement failures still return the summary
		if summary.Scanned == 0 {
			h.HandleError(c, err)
			return
		}
		resp.Errors = err.Error()
	}
	h.Success(c, resp)
}

// GetStatus godoc
// @ID           getNoticeStatus
// @Summary      Look up a notice in the dedup log
// @Tags         notices
// @Produce      json
// @Param        entity_id       query string true "Agreement code"
// @Param        notice_type     query string true "EXPIRY_30 or EXPIRY_15"
// @Param        expiration_date query string true "Expiration date (YYYY-MM-DD)"
// @Success      200 {object} APIResponse[NoticeStatusResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /notices/status [get]
func (h *NoticeHandler) GetStatus(c *gin.Context) {
	if _, ok := h.identity(c); !ok {
		return
	}

	var query dto.NoticeStatusQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.ValidationError(c, err)
		return
	}
	expiration, err := time.Parse(dto.DateLayout, query.ExpirationDate)
	if err != nil {
		h.BadRequest(c, "invalid expiration_date")
		return
	}

	record, err := h.service.NoticeStatus(c.Request.Context(), query.EntityID,
		notification.NoticeType(query.NoticeType), expiration)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, NoticeStatusResponse{
		EntityID:       record.Key.EntityID,
		NoticeType:     string(record.Key.NoticeType),
		ExpirationDate: record.Key.ExpirationDate.Format(dto.DateLayout),
		SentAt:         record.SentAt,
		SentTo:         record.SentTo,
	})
}
