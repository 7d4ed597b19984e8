package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/cataloger/cache"
	"github.com/use-agent/cataloger/config"
	"github.com/use-agent/cataloger/metrics"
	"github.com/use-agent/cataloger/models"
	"github.com/use-agent/cataloger/pipeline"
)

type fakeRunner struct {
	result pipeline.Result
	err    error
	jobs   []pipeline.Job
	pages  []models.RenderedPage
}

func (f *fakeRunner) Run(_ context.Context, job pipeline.Job) (pipeline.Result, error) {
	f.jobs = append(f.jobs, job)
	return f.result, f.err
}

func (f *fakeRunner) Process(_ context.Context, page models.RenderedPage, job pipeline.Job) (pipeline.Result, error) {
	f.pages = append(f.pages, page)
	return f.result, f.err
}

type fakePool struct{}

func (fakePool) Stats() models.PoolStats {
	return models.PoolStats{MaxPages: 4, ActivePages: 1, Connected: true}
}

var okResult = pipeline.Result{
	FinalURL:    "https://www.citilink.ru/catalog/processory/",
	Scrolls:     5,
	FinalHeight: 12000,
	Outcome:     models.OutcomeSettled,
	FetchMethod: models.FetchModeBrowser,
	Batch: models.ExtractionBatch{
		{Brand: "AMD", Model: "Ryzen 5 5600X", Price: "32990"},
	},
	Success: true,
}

func newTestRouter(t *testing.T, runner *fakeRunner, mutate func(*config.Config)) http.Handler {
	t.Helper()
	cfg := config.Load()
	cfg.Server.Mode = "test"
	cfg.Auth.Enabled = true
	cfg.Auth.APIKeys = []string{"test-key"}
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100}
	if mutate != nil {
		mutate(cfg)
	}

	reg := prometheus.NewRegistry()
	metrics.New(reg)
	cc := cache.New(10, time.Hour)
	t.Cleanup(cc.Close)

	return NewRouter(Deps{
		Runner:    runner,
		Pool:      fakePool{},
		Sinks:     []string{"csv", "json", "stdout", "webhook"},
		Cache:     cc,
		Gatherer:  reg,
		Config:    cfg,
		StartTime: time.Now(),
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, models.HarvestResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "test-key")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp models.HarvestResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t, &fakeRunner{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var health models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, 4, health.PoolStats.MaxPages)
	assert.Equal(t, []string{"csv", "json", "stdout", "webhook"}, health.Sinks)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t, &fakeRunner{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cataloger_records_extracted_total")
}

func TestHarvest_Unauthorized(t *testing.T) {
	h := newTestRouter(t, &fakeRunner{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/harvest", strings.NewReader(`{"url":"https://example.com"}`))
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrCodeUnauthorized)
}

func TestHarvest_Success(t *testing.T) {
	runner := &fakeRunner{result: okResult}
	h := newTestRouter(t, runner, nil)

	w, resp := do(t, h, http.MethodPost, "/api/v1/harvest",
		`{"url":"https://www.citilink.ru/catalog/processory/","max_scrolls":50,"scroll_timeout_ms":2500,"scroll_budget":120,"stealth":false,"sink":"csv","destination":"out.csv"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Count)
	require.NotNil(t, resp.Scroll)
	assert.Equal(t, "settled", resp.Scroll.Outcome)

	require.Len(t, runner.jobs, 1)
	job := runner.jobs[0]
	assert.Equal(t, 50, job.Request.MaxScrolls)
	assert.Equal(t, 2500*time.Millisecond, job.Request.ScrollTimeout)
	assert.Equal(t, 2*time.Minute, job.Request.ScrollBudget)
	assert.Equal(t, 10*time.Second, job.Request.StepTimeout)
	assert.Equal(t, config.DefaultReadySelector, job.Request.ReadySelector)
	assert.False(t, job.Request.Stealth)
	assert.Equal(t, models.FetchModeBrowser, job.FetchMode)
	assert.Equal(t, "csv", job.Sink)
	assert.Equal(t, "out.csv", job.Destination)
}

func TestHarvest_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing url", `{}`},
		{"bad url", `{"url":"not a url"}`},
		{"bad fetch mode", `{"url":"https://example.com","fetch_mode":"carrier-pigeon"}`},
		{"unknown sink", `{"url":"https://example.com","sink":"kafka"}`},
		{"malformed json", `{"url":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			w, resp := do(t, newTestRouter(t, runner, nil), http.MethodPost, "/api/v1/harvest", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, models.ErrCodeInvalidInput, resp.Error.Code)
			assert.Empty(t, runner.jobs)
		})
	}
}

func TestHarvest_DestinationConfined(t *testing.T) {
	exportDir := filepath.Join(t.TempDir(), "exports")
	withDir := func(cfg *config.Config) { cfg.Sink.Dir = exportDir }

	rejected := []struct {
		name string
		body string
	}{
		{"absolute csv path", `{"url":"https://example.com","sink":"csv","destination":"/etc/cron.d/cataloger"}`},
		{"relative traversal", `{"url":"https://example.com","sink":"csv","destination":"../../products.csv"}`},
		{"nested json path", `{"url":"https://example.com","sink":"json","destination":"sub/products.json"}`},
		{"parent dir", `{"url":"https://example.com","sink":"json","destination":".."}`},
		{"server stdout", `{"url":"https://example.com","sink":"csv","destination":"-"}`},
		{"webhook url", `{"url":"https://example.com","sink":"webhook","destination":"http://169.254.169.254/latest"}`},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{result: okResult}
			w, resp := do(t, newTestRouter(t, runner, withDir), http.MethodPost, "/api/v1/harvest", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, models.ErrCodeInvalidInput, resp.Error.Code)
			assert.Empty(t, runner.jobs)
		})
	}

	t.Run("file name lands in the export dir", func(t *testing.T) {
		runner := &fakeRunner{result: okResult}
		w, _ := do(t, newTestRouter(t, runner, withDir), http.MethodPost, "/api/v1/harvest",
			`{"url":"https://example.com","sink":"csv","destination":"cpus.csv"}`)

		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, runner.jobs, 1)
		assert.Equal(t, filepath.Join(exportDir, "cpus.csv"), runner.jobs[0].Destination)
	})

	t.Run("webhook without destination uses the configured endpoint", func(t *testing.T) {
		runner := &fakeRunner{result: okResult}
		w, _ := do(t, newTestRouter(t, runner, withDir), http.MethodPost, "/api/v1/harvest",
			`{"url":"https://example.com","sink":"webhook"}`)

		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, runner.jobs, 1)
		assert.Empty(t, runner.jobs[0].Destination)
	})
}

func TestHarvest_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"ready timeout", models.NewHarvestError(models.ErrCodeReadyTimeout, "no products", nil), http.StatusGatewayTimeout},
		{"navigation", models.NewHarvestError(models.ErrCodeNavigation, "dns", nil), http.StatusBadGateway},
		{"browser", models.NewHarvestError(models.ErrCodeBrowserLaunch, "no chromium", nil), http.StatusServiceUnavailable},
		{"empty batch", models.ErrEmptyBatch, http.StatusUnprocessableEntity},
		{"sink", &models.SinkError{Sink: "csv", Err: context.DeadlineExceeded}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(t, &fakeRunner{err: tt.err}, nil)

			w, resp := do(t, h, http.MethodPost, "/api/v1/harvest", `{"url":"https://www.citilink.ru/catalog/processory/"}`)

			assert.Equal(t, tt.want, w.Code)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, models.CodeOf(tt.err), resp.Error.Code)
		})
	}
}

func TestHarvest_Cache(t *testing.T) {
	runner := &fakeRunner{result: okResult}
	h := newTestRouter(t, runner, nil)
	body := `{"url":"https://www.citilink.ru/catalog/processory/","max_age":60000}`

	_, first := do(t, h, http.MethodPost, "/api/v1/harvest", body)
	_, second := do(t, h, http.MethodPost, "/api/v1/harvest", body)

	assert.Equal(t, "miss", first.CacheStatus)
	assert.Equal(t, "hit", second.CacheStatus)
	assert.Equal(t, first.Products, second.Products)
	assert.Len(t, runner.jobs, 1)
}

func TestHarvest_RateLimited(t *testing.T) {
	h := newTestRouter(t, &fakeRunner{result: okResult}, func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.5, Burst: 1}
	})
	body := `{"url":"https://www.citilink.ru/catalog/processory/"}`

	w, _ := do(t, h, http.MethodPost, "/api/v1/harvest", body)
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp := do(t, h, http.MethodPost, "/api/v1/harvest", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Equal(t, models.ErrCodeRateLimited, resp.Error.Code)
}

func TestExtract(t *testing.T) {
	runner := &fakeRunner{result: pipeline.Result{Batch: okResult.Batch, Success: true}}
	h := newTestRouter(t, runner, nil)

	w, resp := do(t, h, http.MethodPost, "/api/v1/extract", `{"html":"<html><body>…</body></html>"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, resp.Count)
	assert.Nil(t, resp.Scroll)
	require.Len(t, runner.pages, 1)
	assert.Contains(t, runner.pages[0].HTML, "<body>")

	w, _ = do(t, h, http.MethodPost, "/api/v1/extract", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
