package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	reportapp "github.com/salesops/backend/internal/application/report"
	"github.com/salesops/backend/internal/domain/access"
	"github.com/salesops/backend/internal/domain/audit"
	"github.com/salesops/backend/internal/interfaces/http/dto"
)

// SalesHistoryService is the report application service used by ReportHandler
type SalesHistoryService interface {
	Run(ctx context.Context, identity access.IdentityContext, req reportapp.Request) (*reportapp.Result, error)
	RunBatch(ctx context.Context, identity access.IdentityContext, reqs []reportapp.Request) ([]reportapp.BatchResult, error)
	CanExport() bool
	ExportSnapshot(ctx context.Context, identity access.IdentityContext, req reportapp.Request, expiresIn time.Duration) (*reportapp.Snapshot, error)
	UsageHistory(ctx context.Context, identity access.IdentityContext, owner string, limit int) ([]audit.UsageEvent, error)
}

// ReportHandler handles sales history report endpoints
type ReportHandler struct {
	BaseHandler
	service SalesHistoryService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(service SalesHistoryService) *ReportHandler {
	return &ReportHandler{service: service}
}

// GetSalesHistory godoc
// @ID           getSalesHistoryReport
// @Summary      Run the sales history report
// @Description  Returns per-group monthly values and fiscal year totals for the caller's effective owner. An empty row list means no activity in the window.
// @Tags         reports
// @Produce      json
// @Param        name           query  string    false  "Report name"
// @Param        as_of          query  string    false  "As-of date (YYYY-MM-DD), defaults to today"
// @Param        trailing_years query  int       false  "Complete fiscal years before the current one"
// @Param        source         query  []string  false  "Source ids" collectionFormat(multi)
// @Param        metric         query  []string  false  "revenue, quantity or cost" collectionFormat(multi)
// @Param        group_by       query  []string  false  "owner, ship_to, item, region or record_key" collectionFormat(multi)
// @Param        X-Impersonate  header string    false  "Owner code to act for (administrator only)"
// @Success      200 {object} APIResponse[reportapp.Result]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /reports/sales-history [get]
func (h *ReportHandler) GetSalesHistory(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	var body dto.ReportRequest
	if err := c.ShouldBindQuery(&body); err != nil {
		h.ValidationError(c, err)
		return
	}
	req, err := body.ToRequest()
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Run(c.Request.Context(), identity, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RunBatch godoc
// @ID           runSalesHistoryBatch
// @Summary      Run several sales history reports
// @Description  Runs the reports concurrently. Results keep request order; a failed report carries its own error.
// @Tags         reports
// @Accept       json
// @Produce      json
// @Param        request body dto.BatchReportRequest true "Reports to run"
// @Success      200 {object} APIResponse[[]dto.BatchItem]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /reports/sales-history/batch [post]
func (h *ReportHandler) RunBatch(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	var body dto.BatchReportRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.ValidationError(c, err)
		return
	}
	reqs := make([]reportapp.Request, len(body.Reports))
	for i, r := range body.Reports {
		req, err := r.ToRequest()
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		reqs[i] = req
	}

	results, err := h.service.RunBatch(c.Request.Context(), identity, reqs)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	requestID := getRequestID(c)
	items := make([]dto.BatchItem, len(results))
	for i, r := range results {
		if r.Err != nil {
			items[i].Error = errorInfo(r.Err, requestID)
			continue
		}
		items[i].Report = r.Result
	}
	h.Success(c, items)
}

// Export godoc
// @ID           exportSalesHistory
// @Summary      Export a sales history snapshot
// @Description  Runs the report, stores the result as JSON in object storage and returns a presigned download URL.
// @Tags         reports
// @Accept       json
// @Produce      json
// @Param        request body dto.ExportReportRequest true "Report to export"
// @Success      200 {object} APIResponse[reportapp.Snapshot]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /reports/sales-history/export [post]
func (h *ReportHandler) Export(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	// unavailable takes precedence over body validation
	if !h.service.CanExport() {
		h.HandleError(c, reportapp.ErrExportUnavailable)
		return
	}

	var body dto.ExportReportRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.ValidationError(c, err)
		return
	}
	req, err := body.ToRequest()
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	snapshot, err := h.service.ExportSnapshot(c.Request.Context(), identity, req,
		time.Duration(body.ExpiresInMinutes)*time.Minute)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, snapshot)
}

// ListUsage godoc
// @ID           listReportUsage
// @Summary      List report usage events
// @Description  Newest first. Only the administrator may list another owner's events.
// @Tags         reports
// @Produce      json
// @Param        owner query string false "Effective owner, defaults to the caller's"
// @Param        limit query int    false "Maximum events (1-500)"
// @Success      200 {object} APIResponse[[]audit.UsageEvent]
// @Failure      403 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /reports/usage [get]
func (h *ReportHandler) ListUsage(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}

	var query dto.UsageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.ValidationError(c, err)
		return
	}

	events, err := h.service.UsageHistory(c.Request.Context(), identity, query.Owner, query.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if events == nil {
		events = []audit.UsageEvent{}
	}
	h.Success(c, events)
}
