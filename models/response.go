package models

// HarvestResponse is the response for POST /api/v1/harvest and
// POST /api/v1/extract.
type HarvestResponse struct {
	// Success indicates whether a non-empty batch was produced
	// (and persisted, when a sink was requested).
	Success bool `json:"success"`

	// FinalURL is the URL after following all redirects.
	FinalURL string `json:"final_url,omitempty"`

	// Products is the extracted batch in page order.
	Products ExtractionBatch `json:"products"`

	// Count is len(Products).
	Count int `json:"count"`

	// Scroll reports how the convergence loop ended.
	Scroll *ScrollInfo `json:"scroll,omitempty"`

	// Gaps counts skipped containers by reason.
	Gaps map[string]int `json:"gaps,omitempty"`

	// Sink reports where the batch was written, if anywhere.
	Sink string `json:"sink,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// ScrollInfo summarises the convergence loop.
type ScrollInfo struct {
	Iterations  int    `json:"iterations"`
	FinalHeight int    `json:"final_height"`
	Outcome     string `json:"outcome"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// HarvestMs is the time spent loading and scrolling the page.
	HarvestMs int64 `json:"harvest_ms"`

	// ExtractMs is the time spent parsing records out of the markup.
	ExtractMs int64 `json:"extract_ms"`

	// SinkMs is the time spent persisting the batch.
	SinkMs int64 `json:"sink_ms,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Sinks     []string  `json:"sinks"`
	Version   string    `json:"version"`
}

// PoolStats reports browser tab usage.
type PoolStats struct {
	MaxPages    int  `json:"max_pages"`
	ActivePages int  `json:"active_pages"`
	Connected   bool `json:"connected"`
}
