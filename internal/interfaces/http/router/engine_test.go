package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	notificationapp "github.com/salesops/backend/internal/application/notification"
	reportapp "github.com/salesops/backend/internal/application/report"
	"github.com/salesops/backend/internal/domain/access"
	"github.com/salesops/backend/internal/domain/audit"
	"github.com/salesops/backend/internal/domain/notification"
	"github.com/salesops/backend/internal/domain/report"
	"github.com/salesops/backend/internal/infrastructure/auth"
	"github.com/salesops/backend/internal/infrastructure/config"
	"github.com/salesops/backend/internal/interfaces/http/dto"
	"github.com/salesops/backend/internal/interfaces/http/handler"
	"github.com/salesops/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubReports echoes the effective owner it was called with
type stubReports struct {
	lastIdentity access.IdentityContext
}

func (s *stubReports) Run(_ context.Context, identity access.IdentityContext, _ reportapp.Request) (*reportapp.Result, error) {
	s.lastIdentity = identity
	return &reportapp.Result{
		ReportName:     reportapp.DefaultReportName,
		EffectiveOwner: identity.EffectiveCode(),
		ActingAdmin:    identity.ActingAdmin(),
		Rows:           []report.ReportRow{},
	}, nil
}

func (s *stubReports) RunBatch(context.Context, access.IdentityContext, []reportapp.Request) ([]reportapp.BatchResult, error) {
	return nil, nil
}

func (s *stubReports) CanExport() bool { return false }

func (s *stubReports) ExportSnapshot(context.Context, access.IdentityContext, reportapp.Request, time.Duration) (*reportapp.Snapshot, error) {
	return nil, reportapp.ErrExportUnavailable
}

func (s *stubReports) UsageHistory(context.Context, access.IdentityContext, string, int) ([]audit.UsageEvent, error) {
	return []audit.UsageEvent{}, nil
}

type stubNotices struct{}

func (stubNotices) RunExpiryNotices(context.Context, time.Time) (notificationapp.ExpirySummary, error) {
	return notificationapp.ExpirySummary{}, nil
}

func (stubNotices) NoticeStatus(context.Context, string, notification.NoticeType, time.Time) (*notification.Record, error) {
	return nil, notification.ErrNotRecorded
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "salesops-test", Env: "test"},
		JWT: config.JWTConfig{
			Secret:                "test-secret-key-at-least-32-chars",
			Issuer:                "test-issuer",
			AccessTokenExpiration: 15 * time.Minute,
		},
		HTTP: config.HTTPConfig{
			MaxBodySize: 1 << 20,
			Swagger:     config.SwaggerConfig{Enabled: false},
		},
		Access: config.AccessConfig{AdminCode: "ADMIN"},
	}
}

type testServer struct {
	engine      *gin.Engine
	jwt         *auth.JWTService
	reports     *stubReports
	revocations *auth.InMemoryRevocationList
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	jwtService := auth.NewJWTService(cfg.JWT)
	reports := &stubReports{}
	revocations := auth.NewInMemoryRevocationList()
	system := handler.NewSystemHandler(cfg.App.Name, "test")
	system.AddCheck("database", func(context.Context) error { return nil })

	engine, err := NewEngine(Deps{
		Config:      cfg,
		Logger:      zap.NewNop(),
		JWT:         jwtService,
		Revocations: revocations,
		Reports:     reports,
		Notices:     stubNotices{},
		System:      system,
	})
	require.NoError(t, err)
	return &testServer{engine: engine, jwt: jwtService, reports: reports, revocations: revocations}
}

func (s *testServer) token(t *testing.T, subject string) string {
	t.Helper()
	token, _, err := s.jwt.GenerateToken(auth.GenerateTokenInput{SubjectCode: subject})
	require.NoError(t, err)
	return token
}

func (s *testServer) do(method, path, token string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestEngine_PublicProbes(t *testing.T) {
	srv := newTestServer(t, testConfig())

	for _, path := range []string{"/health", "/ready", "/api/v1/health"} {
		w := srv.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader), path)
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"), path)
	}
}

func TestEngine_SalesHistory(t *testing.T) {
	srv := newTestServer(t, testConfig())

	t.Run("requires token", func(t *testing.T) {
		w := srv.do(http.MethodGet, "/api/v1/reports/sales-history", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeUnauthorized, errorCode(t, w))
	})

	t.Run("owner sees own rows", func(t *testing.T) {
		w := srv.do(http.MethodGet, "/api/v1/reports/sales-history?as_of=2025-02-01", srv.token(t, "REPA"), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "REPA", srv.reports.lastIdentity.EffectiveCode())
		assert.Contains(t, w.Body.String(), `"rows":[]`)
	})

	t.Run("admin impersonates by header", func(t *testing.T) {
		w := srv.do(http.MethodGet, "/api/v1/reports/sales-history", srv.token(t, "ADMIN"),
			map[string]string{middleware.ImpersonateHeader: "REPB"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "REPB", srv.reports.lastIdentity.EffectiveCode())
		assert.Equal(t, "ADMIN", srv.reports.lastIdentity.ActingAdmin())
	})

	t.Run("non admin cannot impersonate", func(t *testing.T) {
		w := srv.do(http.MethodGet, "/api/v1/reports/sales-history", srv.token(t, "REPA"),
			map[string]string{middleware.ImpersonateHeader: "REPB"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("export unavailable", func(t *testing.T) {
		w := srv.do(http.MethodPost, "/api/v1/reports/sales-history/export", srv.token(t, "REPA"), nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestEngine_RevokedTokenRejected(t *testing.T) {
	srv := newTestServer(t, testConfig())
	token := srv.token(t, "REPA")

	w := srv.do(http.MethodPost, "/api/v1/auth/revoke", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = srv.do(http.MethodGet, "/api/v1/auth/session", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeTokenRevoked, errorCode(t, w))
}

func TestEngine_NoticeRunAdminOnly(t *testing.T) {
	srv := newTestServer(t, testConfig())

	w := srv.do(http.MethodPost, "/api/v1/notices/run", srv.token(t, "REPA"), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = srv.do(http.MethodPost, "/api/v1/notices/run", srv.token(t, "ADMIN"), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEngine_Swagger(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		srv := newTestServer(t, testConfig())
		w := srv.do(http.MethodGet, "/swagger/index.html", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("requires auth", func(t *testing.T) {
		cfg := testConfig()
		cfg.HTTP.Swagger = config.SwaggerConfig{Enabled: true, RequireAuth: true}
		srv := newTestServer(t, cfg)

		w := srv.do(http.MethodGet, "/swagger/index.html", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = srv.do(http.MethodGet, "/swagger/index.html", srv.token(t, "REPA"), nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestEngine_UnknownRoute(t *testing.T) {
	srv := newTestServer(t, testConfig())
	w := srv.do(http.MethodGet, "/api/v1/nope", srv.token(t, "REPA"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEngine_RateLimitedReports(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 2}
	srv := newTestServer(t, cfg)
	repa := srv.token(t, "REPA")

	for range 2 {
		w := srv.do(http.MethodGet, "/api/v1/reports/sales-history", repa, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	w := srv.do(http.MethodGet, "/api/v1/reports/sales-history", repa, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, dto.ErrCodeRateLimited, errorCode(t, w))

	// budgets are per subject, and other route groups are not limited
	w = srv.do(http.MethodGet, "/api/v1/reports/sales-history", srv.token(t, "REPB"), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = srv.do(http.MethodGet, "/api/v1/auth/session", repa, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEngine_MetricsEndpoint(t *testing.T) {
	cfg := testConfig()
	engine, err := NewEngine(Deps{
		Config: cfg,
		JWT:    auth.NewJWTService(cfg.JWT),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("report_runs_total 3\n"))
		}),
		Reports: &stubReports{},
		Notices: stubNotices{},
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "report_runs_total")
}
