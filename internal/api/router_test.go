package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hiveroadmap/internal/api/handlers"
	"hiveroadmap/internal/api/middleware"
	"hiveroadmap/internal/engine/roadmap"
	"hiveroadmap/internal/engine/webhooks"
	"hiveroadmap/internal/pkg/validator"
	"hiveroadmap/internal/platform/config"
	"hiveroadmap/internal/platform/models"
)

type stubRoadmap struct{}

func (stubRoadmap) GetOrganization(ctx context.Context) (*models.OrganizationRaw, error) {
	return &models.OrganizationRaw{ID: "org_1"}, nil
}

func (stubRoadmap) GetRoadmapMetadata(ctx context.Context) (*models.RoadmapMetadata, error) {
	return &models.RoadmapMetadata{Statuses: []models.Status{{ID: "planned"}}}, nil
}

func (stubRoadmap) GetStatusItems(ctx context.Context, statusID string, opts roadmap.QueryOptions) (*models.StatusSnapshot, error) {
	return &models.StatusSnapshot{Status: models.Status{ID: statusID}}, nil
}

func (stubRoadmap) GetAggregateRoadmap(ctx context.Context, opts roadmap.AggregateOptions) (*models.AggregateSnapshot, error) {
	return &models.AggregateSnapshot{}, nil
}

func (stubRoadmap) GetSubmissionByID(ctx context.Context, id string) (*models.RoadmapItem, error) {
	return &models.RoadmapItem{ID: id}, nil
}

func (stubRoadmap) BuildPublicSlugURL(slug string) (string, error) {
	return "https://hive.test/en/p/" + slug, nil
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(ctx context.Context) error { return p.err }

type stubDeliveries struct{}

func (stubDeliveries) ListByWebhook(ctx context.Context, id string, limit int) ([]*models.Delivery, error) {
	return []*models.Delivery{}, nil
}

func newTestRouter(limits config.RateLimitConfig, pingErr error) http.Handler {
	registry := webhooks.NewRegistry("default-secret-0123456789", validator.ValidateWebhookURL)
	dispatcher := webhooks.NewDispatcher(registry, config.WebhooksConfig{Timeout: time.Second}, nil)

	return NewRouter(&Dependencies{
		RoadmapHandler: handlers.NewRoadmapHandler(stubRoadmap{}, dispatcher, false),
		WebhookHandler: handlers.NewWebhookHandler(registry, dispatcher, stubDeliveries{}, false),
		HealthHandler:  handlers.NewHealthHandler(stubPinger{err: pingErr}),
		MetricsHandler: handlers.NewMetricsHandler(),
		RateLimiter:    middleware.NewRateLimiter(limits),
	})
}

func TestRouter_Routes(t *testing.T) {
	router := newTestRouter(config.RateLimitConfig{GlobalPerMinute: 1000, RoadmapPerMinute: 1000, WebhookPerMinute: 1000}, nil)

	tests := []struct {
		method     string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{http.MethodGet, "/health", "", http.StatusOK, `"delivery_log":"healthy"`},
		{http.MethodGet, "/api/v1/roadmap/organization", "", http.StatusOK, `"organization"`},
		{http.MethodGet, "/api/v1/roadmap/meta", "", http.StatusOK, `"statuses"`},
		{http.MethodGet, "/api/v1/roadmap/statuses", "", http.StatusOK, `"count":1`},
		{http.MethodGet, "/api/v1/roadmap/status/planned/items", "", http.StatusOK, `"id":"planned"`},
		{http.MethodGet, "/api/v1/roadmap/aggregate?includeCompleted=false", "", http.StatusOK, `"totals"`},
		{http.MethodGet, "/api/v1/roadmap/item/sub_1", "", http.StatusOK, `"id":"sub_1"`},
		{http.MethodGet, "/api/v1/roadmap/slug/maps", "", http.StatusOK, `"url":"https://hive.test/en/p/maps"`},
		{http.MethodGet, "/api/v1/webhooks", "", http.StatusOK, `"count":0`},
		{http.MethodPost, "/api/v1/webhooks", `{"url":"http://localhost/x"}`, http.StatusBadRequest, `"INVALID_INPUT"`},
		{http.MethodGet, "/api/v1/webhooks/missing", "", http.StatusNotFound, `"NOT_FOUND"`},
		{http.MethodDelete, "/api/v1/webhooks/missing", "", http.StatusNotFound, `"NOT_FOUND"`},
		{http.MethodPost, "/api/v1/webhooks/missing/test", "", http.StatusNotFound, `"NOT_FOUND"`},
		{http.MethodGet, "/api/v1/webhooks/missing/deliveries", "", http.StatusNotFound, `"NOT_FOUND"`},
		{http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound, `"Route not found"`},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("Expected %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Errorf("Expected body to contain %s, got %s", tt.wantBody, rr.Body.String())
			}
		})
	}
}

func TestRouter_AggregateRateLimit(t *testing.T) {
	router := newTestRouter(config.RateLimitConfig{GlobalPerMinute: 1000, RoadmapPerMinute: 1, WebhookPerMinute: 1000}, nil)

	do := func(path string) int {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		return rr.Code
	}

	if code := do("/api/v1/roadmap/aggregate"); code != http.StatusOK {
		t.Fatalf("Expected first aggregate to pass, got %d", code)
	}
	if code := do("/api/v1/roadmap/aggregate"); code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 on second aggregate, got %d", code)
	}
	if code := do("/api/v1/roadmap/meta"); code != http.StatusOK {
		t.Errorf("Expected other roadmap routes unaffected, got %d", code)
	}
}

func TestRouter_HealthDegraded(t *testing.T) {
	router := newTestRouter(config.RateLimitConfig{}, errors.New("database is closed"))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusServiceUnavailable || !strings.Contains(rr.Body.String(), `"degraded"`) {
		t.Errorf("Expected degraded health, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestRouter_Metrics(t *testing.T) {
	router := newTestRouter(config.RateLimitConfig{}, nil)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "http_request_duration_seconds") {
		t.Errorf("Expected request duration metric, got %d", rr.Code)
	}
}
