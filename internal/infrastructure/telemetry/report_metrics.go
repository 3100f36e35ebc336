package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Outcome labels
const (
	OutcomeSuccess     = "success"
	OutcomeDenied      = "denied"
	OutcomeFailed      = "failed"
	OutcomeSent        = "sent"
	OutcomeAlreadySent = "already_sent"
)

// ReportMetrics holds the application level instruments
type ReportMetrics struct {
	reportRuns     *Counter
	reportDuration *Histogram
	reportRows     *Counter
	notices        *Counter
	jobs           *Counter
}

// NewReportMetrics registers the instruments on meter
func NewReportMetrics(meter metric.Meter) (*ReportMetrics, error) {
	runs, err := NewCounter(meter, "salesops.report.runs", "Sales history report executions", "{run}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "salesops.report.duration",
		Description: "Sales history report execution time",
		Unit:        "s",
		Boundaries:  QueryDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	rows, err := NewCounter(meter, "salesops.report.rows", "Report rows returned", "{row}")
	if err != nil {
		return nil, err
	}
	notices, err := NewCounter(meter, "salesops.notices", "Expiry notice attempts", "{notice}")
	if err != nil {
		return nil, err
	}
	jobs, err := NewCounter(meter, "salesops.scheduler.jobs", "Scheduled jobs finished", "{job}")
	if err != nil {
		return nil, err
	}
	return &ReportMetrics{
		reportRuns:     runs,
		reportDuration: duration,
		reportRows:     rows,
		notices:        notices,
		jobs:           jobs,
	}, nil
}

// RecordReportRun records one report execution. Safe on a nil receiver.
func (m *ReportMetrics) RecordReportRun(ctx context.Context, reportName, outcome string, impersonated bool, d time.Duration, rows int) {
	if m == nil {
		return
	}
	m.reportRuns.Inc(ctx, AttrReportName.String(reportName), AttrOutcome.String(outcome), AttrImpersonate.Bool(impersonated))
	m.reportDuration.RecordDuration(ctx, d, AttrReportName.String(reportName), AttrOutcome.String(outcome))
	if rows > 0 {
		m.reportRows.Add(ctx, int64(rows), AttrReportName.String(reportName))
	}
}

// RecordNotice records one notice attempt. Safe on a nil receiver.
func (m *ReportMetrics) RecordNotice(ctx context.Context, noticeType, outcome string) {
	if m == nil {
		return
	}
	m.notices.Inc(ctx, AttrNoticeType.String(noticeType), AttrOutcome.String(outcome))
}

// RecordJob records one finished scheduler job. Safe on a nil receiver.
func (m *ReportMetrics) RecordJob(ctx context.Context, jobType, outcome string) {
	if m == nil {
		return
	}
	m.jobs.Inc(ctx, AttrJobType.String(jobType), AttrOutcome.String(outcome))
}
