package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bioage-mcp-server/internal/domain"
	"github.com/bioage-mcp-server/internal/history"
	"github.com/bioage-mcp-server/internal/middleware"
	"github.com/bioage-mcp-server/internal/monitoring"
	"github.com/bioage-mcp-server/internal/scoring"
	"github.com/bioage-mcp-server/internal/service"
)

type memoryProfiles struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile
}

func (m *memoryProfiles) Upsert(_ context.Context, profile *domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *profile
	m.profiles[profile.ID] = &cp
	return nil
}

func (m *memoryProfiles) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

type failingEngine struct{}

func (failingEngine) Name() string { return "broken" }

func (failingEngine) Score(context.Context, domain.AssessmentInput) (*domain.AssessmentResult, error) {
	return nil, errors.New("upstream exploded")
}

type staticChecker struct {
	name string
	err  error
}

func (c staticChecker) Name() string                 { return c.name }
func (c staticChecker) Health(context.Context) error { return c.err }

func testConfig() *domain.Config {
	return &domain.Config{
		Server:  domain.ServerConfig{Host: "127.0.0.1", Port: 8080, RequestTimeout: 5 * time.Second},
		Logging: domain.LoggingConfig{Level: "info", Format: "json"},
		Assessment: domain.AssessmentConfig{
			Engine:           domain.EngineDeterministic,
			MissingAgePolicy: domain.MissingAgeReject,
			DefaultAge:       30,
			HistoryPageSize:  20,
		},
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestServer(t *testing.T, cfg *domain.Config, engine domain.ScoringEngine, checkers ...HealthChecker) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := history.NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := quietLogger()
	if engine == nil {
		engine = scoring.NewEngine(nil, logger, scoring.WithStrictCatalog(cfg.Assessment.StrictCatalog))
	}
	metrics := monitoring.NewMetrics()
	profiles := &memoryProfiles{profiles: map[string]*domain.Profile{}}
	assessments := service.NewAssessmentService(engine, nil, store, cfg.Assessment, logger,
		service.WithProfiles(profiles), service.WithMetrics(metrics))

	return NewServer(cfg, Dependencies{
		Assessments: assessments,
		Trends:      service.NewTrendService(store),
		Metrics:     metrics,
		Logger:      logger,
		Health:      append([]HealthChecker{store}, checkers...),
	})
}

func doRequest(t *testing.T, s *Server, method, path, owner string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		req.Header.Set("X-User-ID", owner)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		s := newTestServer(t, testConfig(), nil)
		w := doRequest(t, s, http.MethodGet, "/health", "", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]any
		decode(t, w, &body)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, Version, body["version"])
		assert.Contains(t, body["components"], "sqlite")
	})

	t.Run("unhealthy dependency", func(t *testing.T) {
		s := newTestServer(t, testConfig(), nil, staticChecker{name: "redis", err: errors.New("connection refused")})
		w := doRequest(t, s, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "connection refused")
	})
}

func TestCatalog(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	w := doRequest(t, s, http.MethodGet, "/api/v1/catalog", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Metrics       map[string][]domain.MetricDefinition `json:"metrics"`
		OrdinalLevels map[string][]string                  `json:"ordinal_levels"`
	}
	decode(t, w, &body)
	assert.Len(t, body.Metrics, 3)
	assert.NotEmpty(t, body.Metrics["vitals"])
	assert.Equal(t, []string{"Never", "Former", "Current"}, body.OrdinalLevels["smokingStatus"])
}

func TestAssessmentLifecycle(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	w := doRequest(t, s, http.MethodPost, "/api/v1/assessments", "owner-1", map[string]any{
		"chronological_age": 40,
		"vitals":            map[string]any{"systolicBP": 130},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created domain.AssessmentResult
	decode(t, w, &created)
	assert.Equal(t, 41.0, created.BiologicalAge)
	assert.Equal(t, "owner-1", created.OwnerID)
	require.NotEmpty(t, created.ID)

	w = doRequest(t, s, http.MethodGet, "/api/v1/assessments/"+created.ID, "owner-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Other owners cannot read it.
	w = doRequest(t, s, http.MethodGet, "/api/v1/assessments/"+created.ID, "owner-2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, s, http.MethodGet, "/api/v1/assessments?limit=10", "owner-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Assessments []domain.AssessmentResult `json:"assessments"`
		Total       int64                     `json:"total"`
	}
	decode(t, w, &list)
	assert.Len(t, list.Assessments, 1)
	assert.Equal(t, int64(1), list.Total)

	w = doRequest(t, s, http.MethodGet, "/api/v1/trends?range=3m", "owner-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var trend domain.Trend
	decode(t, w, &trend)
	assert.Equal(t, domain.TrendRange3M, trend.Range)
	assert.Len(t, trend.Points, 1)

	w = doRequest(t, s, http.MethodDelete, "/api/v1/assessments", "owner-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted":1}`, w.Body.String())
}

func TestErrorMapping(t *testing.T) {
	strict := testConfig()
	strict.Assessment.StrictCatalog = true

	tests := []struct {
		name     string
		cfg      *domain.Config
		engine   domain.ScoringEngine
		method   string
		path     string
		owner    string
		body     any
		wantCode int
		wantErr  string
	}{
		{"missing owner", testConfig(), nil, http.MethodGet, "/api/v1/assessments", "", nil, http.StatusUnauthorized, domain.ErrCodeAuthentication},
		{"missing age", testConfig(), nil, http.MethodPost, "/api/v1/assessments", "owner-1", map[string]any{"vitals": map[string]any{}}, http.StatusBadRequest, domain.ErrCodeInvalidInput},
		{"negative age", testConfig(), nil, http.MethodPost, "/api/v1/assessments", "owner-1", map[string]any{"chronological_age": -3}, http.StatusBadRequest, domain.ErrCodeInvalidInput},
		{"unknown metric in strict mode", strict, nil, http.MethodPost, "/api/v1/assessments", "owner-1",
			map[string]any{"chronological_age": 40, "bloodwork": map[string]any{"vitaminZ": 1}}, http.StatusUnprocessableEntity, domain.ErrCodeCatalog},
		{"engine failure", testConfig(), failingEngine{}, http.MethodPost, "/api/v1/assessments", "owner-1",
			map[string]any{"chronological_age": 40}, http.StatusBadGateway, domain.ErrCodeEngine},
		{"bad trend range", testConfig(), nil, http.MethodGet, "/api/v1/trends?range=2w", "owner-1", nil, http.StatusBadRequest, domain.ErrCodeInvalidInput},
		{"bad limit", testConfig(), nil, http.MethodGet, "/api/v1/assessments?limit=abc", "owner-1", nil, http.StatusBadRequest, domain.ErrCodeInvalidInput},
		{"unknown assessment", testConfig(), nil, http.MethodGet, "/api/v1/assessments/nope", "owner-1", nil, http.StatusNotFound, domain.ErrCodeNotFound},
		{"missing profile", testConfig(), nil, http.MethodGet, "/api/v1/profile", "owner-1", nil, http.StatusNotFound, domain.ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.cfg, tt.engine)
			w := doRequest(t, s, tt.method, tt.path, tt.owner, tt.body)
			require.Equal(t, tt.wantCode, w.Code, w.Body.String())

			var apiErr domain.APIError
			decode(t, w, &apiErr)
			assert.Equal(t, tt.wantErr, apiErr.Code)
		})
	}
}

func TestProfileDrivesAge(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	dob := time.Now().UTC().AddDate(-35, 0, -10).Format("2006-01-02")
	w := doRequest(t, s, http.MethodPut, "/api/v1/profile", "owner-1", map[string]any{
		"email":         "owner@example.com",
		"date_of_birth": dob,
		"gender":        "Female",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(t, s, http.MethodGet, "/api/v1/profile", "owner-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var profile domain.Profile
	decode(t, w, &profile)
	assert.Equal(t, "owner-1", profile.ID)
	assert.Equal(t, domain.GenderFemale, profile.Gender)

	w = doRequest(t, s, http.MethodPost, "/api/v1/assessments", "owner-1", map[string]any{})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var result domain.AssessmentResult
	decode(t, w, &result)
	assert.Equal(t, 35, result.ChronologicalAge)

	t.Run("rejects malformed date", func(t *testing.T) {
		w := doRequest(t, s, http.MethodPut, "/api/v1/profile", "owner-1", map[string]any{"date_of_birth": "15/06/1986"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects unknown gender", func(t *testing.T) {
		w := doRequest(t, s, http.MethodPut, "/api/v1/profile", "owner-1", map[string]any{"gender": "robot"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthenticatedRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = domain.AuthConfig{Enabled: true, JWTSecret: "test-secret"}
	s := newTestServer(t, cfg, nil)

	token, err := middleware.SignToken(cfg.Auth, "owner-jwt", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/assessments", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// The header fallback is ignored once tokens are required.
	w = doRequest(t, s, http.MethodGet, "/api/v1/assessments", "owner-1", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimitedRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = domain.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 1}
	s := newTestServer(t, cfg, nil)

	w := doRequest(t, s, http.MethodGet, "/api/v1/assessments", "owner-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doRequest(t, s, http.MethodGet, "/api/v1/assessments", "owner-1", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// Limits are per owner.
	w = doRequest(t, s, http.MethodGet, "/api/v1/assessments", "owner-2", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	doRequest(t, s, http.MethodGet, "/api/v1/catalog", "", nil)

	w := doRequest(t, s, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bioage_http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	w := doRequest(t, s, http.MethodOptions, "/api/v1/assessments", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
