package dto

import (
	"fmt"
	"time"

	reportapp "github.com/salesops/backend/internal/application/report"
	"github.com/salesops/backend/internal/domain/report"
)

// DateLayout is the wire format of as-of and expiration dates
const DateLayout = time.DateOnly

// ReportRequest selects what a sales history report covers. Used as query
// parameters on GET and as a JSON body in batches and exports.
type ReportRequest struct {
	Name          string   `json:"name" form:"name" binding:"omitempty,max=100"`
	AsOf          string   `json:"as_of" form:"as_of" binding:"omitempty,datetime=2006-01-02"`
	TrailingYears *int     `json:"trailing_years" form:"trailing_years" binding:"omitempty,min=0,max=10"`
	Sources       []string `json:"sources" form:"source" binding:"omitempty,max=10,dive,source_id"`
	Metrics       []string `json:"metrics" form:"metric" binding:"omitempty,max=3,dive,oneof=revenue quantity cost"`
	GroupBy       []string `json:"group_by" form:"group_by" binding:"omitempty,max=5,dive,oneof=owner ship_to item region record_key"`
}

// ToRequest converts the wire request. Every metric shares the group keys;
// owner is the default grouping.
func (r ReportRequest) ToRequest() (reportapp.Request, error) {
	req := reportapp.Request{ReportName: r.Name, TrailingYears: r.TrailingYears}

	if r.AsOf != "" {
		asOf, err := time.Parse(DateLayout, r.AsOf)
		if err != nil {
			return reportapp.Request{}, fmt.Errorf("invalid as_of %q", r.AsOf)
		}
		req.AsOf = asOf
	}

	for _, s := range r.Sources {
		req.Sources = append(req.Sources, report.SourceID(s))
	}

	groupBy := []report.GroupKey{report.GroupOwner}
	if len(r.GroupBy) > 0 {
		groupBy = make([]report.GroupKey, len(r.GroupBy))
		for i, g := range r.GroupBy {
			groupBy[i] = report.GroupKey(g)
		}
	}
	for _, m := range r.Metrics {
		switch m {
		case "revenue":
			req.Metrics = append(req.Metrics, report.Revenue(groupBy...))
		case "quantity":
			req.Metrics = append(req.Metrics, report.Quantity(groupBy...))
		case "cost":
			req.Metrics = append(req.Metrics, report.Cost(groupBy...))
		default:
			return reportapp.Request{}, fmt.Errorf("unknown metric %q", m)
		}
	}
	if len(req.Metrics) == 0 && len(r.GroupBy) > 0 {
		req.Metrics = []report.MetricDef{report.Revenue(groupBy...)}
	}
	return req, nil
}

// BatchReportRequest runs several reports in one call
type BatchReportRequest struct {
	Reports []ReportRequest `json:"reports" binding:"required,min=1,max=20,dive"`
}

// BatchItem is one entry of a batch response, in request order
type BatchItem struct {
	Report *reportapp.Result `json:"report,omitempty"`
	Error  *ErrorInfo        `json:"error,omitempty"`
}

// ExportReportRequest runs a report and stores a snapshot
type ExportReportRequest struct {
	ReportRequest
	ExpiresInMinutes int `json:"expires_in_minutes" binding:"omitempty,min=1,max=1440"`
}

// RunNoticesRequest triggers an expiry notice pass
type RunNoticesRequest struct {
	AsOf string `json:"as_of" binding:"omitempty,datetime=2006-01-02"`
}

// NoticeStatusQuery identifies one dedup record
type NoticeStatusQuery struct {
	EntityID       string `form:"entity_id" binding:"required,max=64"`
	NoticeType     string `form:"notice_type" binding:"required,oneof=EXPIRY_30 EXPIRY_15"`
	ExpirationDate string `form:"expiration_date" binding:"required,datetime=2006-01-02"`
}

// UsageQuery lists usage events
type UsageQuery struct {
	Owner string `form:"owner" binding:"omitempty,max=32"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=500"`
}
