// Package report runs scoped fiscal sales history reports.
//
// A run resolves the caller's access predicate, builds the fiscal window for
// the requested date, plans and executes the union query, and records a usage
// event for the effective owner. A caller without an effective owner never
// reaches the data source.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/salesops/backend/internal/domain/access"
	"github.com/salesops/backend/internal/domain/audit"
	"github.com/salesops/backend/internal/domain/fiscal"
	"github.com/salesops/backend/internal/domain/report"
	"github.com/salesops/backend/internal/domain/shared"
	"github.com/salesops/backend/internal/infrastructure/logger"
	"github.com/salesops/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultReportName names runs that do not supply one
const DefaultReportName = "sales_history"

// Config holds report execution settings
type Config struct {
	TrailingYears  int
	DefaultSources []report.SourceID
	MaxParallel    int
	QueryTimeout   time.Duration
}

// Request describes one report run
type Request struct {
	ReportName string             `json:"report_name"`
	AsOf       time.Time          `json:"as_of"`
	Sources    []report.SourceID  `json:"sources,omitempty"`
	Metrics    []report.MetricDef `json:"metrics,omitempty"`
	// TrailingYears overrides the configured number of complete fiscal years
	TrailingYears *int `json:"trailing_years,omitempty"`
}

// Result is a materialized report
type Result struct {
	ReportName     string             `json:"report_name"`
	EffectiveOwner string             `json:"effective_owner"`
	ActingAdmin    string             `json:"acting_admin,omitempty"`
	AsOf           time.Time          `json:"as_of"`
	Periods        []string           `json:"periods"`
	FiscalYears    []int              `json:"fiscal_years"`
	Rows           []report.ReportRow `json:"rows"`
}

// BatchResult is the outcome of one request in a batch
type BatchResult struct {
	Result *Result
	Err    error
}

// SalesHistoryService runs sales history reports on behalf of an identity
type SalesHistoryService struct {
	resolver *access.Resolver
	calendar fiscal.Calendar
	source   report.DataSource
	usage    audit.UsageRepository
	storage  SnapshotStorage
	metrics  *telemetry.ReportMetrics
	cfg      Config
	logger   *zap.Logger
}

// Option configures optional collaborators
type Option func(*SalesHistoryService)

// WithSnapshotStorage enables snapshot export
func WithSnapshotStorage(storage SnapshotStorage) Option {
	return func(s *SalesHistoryService) { s.storage = storage }
}

// WithMetrics records report runs
func WithMetrics(metrics *telemetry.ReportMetrics) Option {
	return func(s *SalesHistoryService) { s.metrics = metrics }
}

// NewSalesHistoryService creates a new sales history service
func NewSalesHistoryService(
	resolver *access.Resolver,
	calendar fiscal.Calendar,
	source report.DataSource,
	usage audit.UsageRepository,
	cfg Config,
	logger *zap.Logger,
	opts ...Option,
) *SalesHistoryService {
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 4
	}
	s := &SalesHistoryService{
		resolver: resolver,
		calendar: calendar,
		source:   source,
		usage:    usage,
		cfg:      cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one report for identity
func (s *SalesHistoryService) Run(ctx context.Context, identity access.IdentityContext, req Request) (*Result, error) {
	req = s.normalize(req)
	predicate, err := s.authorize(ctx, identity, req.ReportName)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, identity, predicate, req)
}

// RunBatch executes several reports for the same identity with bounded
// parallelism. A failing report does not cancel the others; results keep the
// order of reqs.
func (s *SalesHistoryService) RunBatch(ctx context.Context, identity access.IdentityContext, reqs []Request) ([]BatchResult, error) {
	if len(reqs) == 0 {
		return []BatchResult{}, nil
	}
	predicate, err := s.authorize(ctx, identity, "batch")
	if err != nil {
		return nil, err
	}

	results := make([]BatchResult, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxParallel)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := s.run(gctx, identity, predicate, s.normalize(req))
			results[i] = BatchResult{Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// RecordUsage appends a usage event. Failures are logged and swallowed so an
// audit outage never fails a report.
func (s *SalesHistoryService) RecordUsage(ctx context.Context, effectiveOwner, actingAdmin, reportName, parameters string) {
	event := audit.NewUsageEvent(effectiveOwner, actingAdmin, reportName, parameters)
	if err := s.usage.Append(context.WithoutCancel(ctx), event); err != nil {
		logger.WithLogger(ctx, s.logger).Error("Failed to record report usage",
			zap.String("report_name", reportName),
			zap.String("effective_owner", effectiveOwner),
			zap.Error(err),
		)
	}
}

// UsageHistory lists usage events of owner. Only the administrator may look
// at another owner's history; an empty owner means the caller's own.
func (s *SalesHistoryService) UsageHistory(ctx context.Context, identity access.IdentityContext, owner string, limit int) ([]audit.UsageEvent, error) {
	effective := identity.EffectiveCode()
	if effective == "" {
		return nil, shared.ErrAccessDenied
	}
	if owner == "" {
		owner = effective
	}
	if owner != effective && !s.resolver.IsAdmin(effective) {
		return nil, shared.ErrForbidden
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	events, err := s.usage.ListByOwner(ctx, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage for %s: %w", owner, err)
	}
	return events, nil
}

func (s *SalesHistoryService) normalize(req Request) Request {
	if req.ReportName == "" {
		req.ReportName = DefaultReportName
	}
	if req.AsOf.IsZero() {
		req.AsOf = time.Now()
	}
	if len(req.Sources) == 0 {
		req.Sources = s.cfg.DefaultSources
	}
	if len(req.Metrics) == 0 {
		req.Metrics = []report.MetricDef{report.Revenue(report.GroupOwner)}
	}
	return req
}

// authorize resolves the predicate and fails closed when nobody can be
// identified
func (s *SalesHistoryService) authorize(ctx context.Context, identity access.IdentityContext, reportName string) (access.AccessPredicate, error) {
	predicate := s.resolver.Resolve(identity)
	if predicate.IsDenied() {
		logger.WithLogger(ctx, s.logger).Warn("Report denied: no effective owner",
			zap.String("report_name", reportName),
			zap.String("subject", identity.SubjectCode),
		)
		s.metrics.RecordReportRun(ctx, reportName, telemetry.OutcomeDenied, identity.IsImpersonating(), 0, 0)
		return predicate, shared.ErrAccessDenied
	}
	return predicate, nil
}

func (s *SalesHistoryService) run(ctx context.Context, identity access.IdentityContext, predicate access.AccessPredicate, req Request) (*Result, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "SalesHistoryService", "Run",
		telemetry.SpanAttrReportName, req.ReportName,
		telemetry.SpanAttrEffectiveOwner, identity.EffectiveCode(),
		telemetry.SpanAttrActingAdmin, identity.ActingAdmin(),
	)
	defer span.End()
	start := time.Now()
	log := logger.WithLogger(ctx, s.logger).With(
		zap.String("report_name", req.ReportName),
		zap.String("effective_owner", identity.EffectiveCode()),
	)

	years := s.cfg.TrailingYears
	if req.TrailingYears != nil {
		years = *req.TrailingYears
	}
	window := s.calendar.BuildWindow(req.AsOf, years)

	plan, err := report.Build(predicate, window, req.Sources, req.Metrics)
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordReportRun(ctx, req.ReportName, telemetry.OutcomeFailed, identity.IsImpersonating(), time.Since(start), 0)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSources, len(plan.Sources),
		telemetry.SpanAttrPeriods, window.Len(),
		telemetry.SpanAttrPredicate, string(predicate.Owner().Kind()),
	)

	queryCtx := ctx
	if s.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, s.cfg.QueryTimeout)
		defer cancel()
	}

	var rows []report.ReportRow
	telemetry.WithProfilingLabels(queryCtx, map[string]string{
		telemetry.ProfilingLabelOperation: "report.execute",
		telemetry.ProfilingLabelReport:    req.ReportName,
	}, func(c context.Context) {
		rows, err = report.Execute(c, plan, s.source)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordReportRun(ctx, req.ReportName, telemetry.OutcomeFailed, identity.IsImpersonating(), time.Since(start), 0)
		log.Error("Report failed", zap.Error(err))
		return nil, err
	}

	s.RecordUsage(ctx, identity.EffectiveCode(), identity.ActingAdmin(), req.ReportName, encodeParameters(req, identity))

	telemetry.SetAttributes(span, telemetry.SpanAttrRows, len(rows))
	s.metrics.RecordReportRun(ctx, req.ReportName, telemetry.OutcomeSuccess, identity.IsImpersonating(), time.Since(start), len(rows))
	log.Info("Report completed", zap.Int("rows", len(rows)), zap.Int("periods", window.Len()))

	return &Result{
		ReportName:     req.ReportName,
		EffectiveOwner: identity.EffectiveCode(),
		ActingAdmin:    identity.ActingAdmin(),
		AsOf:           req.AsOf,
		Periods:        window.Labels(),
		FiscalYears:    window.FiscalYears(),
		Rows:           rows,
	}, nil
}

type usageParameters struct {
	AsOf          string             `json:"as_of"`
	TrailingYears string             `json:"trailing_years,omitempty"`
	Sources       []report.SourceID  `json:"sources"`
	Metrics       []report.MetricDef `json:"metrics"`
	Regions       []string           `json:"regions,omitempty"`
}

func encodeParameters(req Request, identity access.IdentityContext) string {
	p := usageParameters{
		AsOf:    req.AsOf.Format(time.DateOnly),
		Sources: req.Sources,
		Metrics: req.Metrics,
		Regions: identity.RegionOverrides,
	}
	if req.TrailingYears != nil {
		p.TrailingYears = strconv.Itoa(*req.TrailingYears)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(data)
}
