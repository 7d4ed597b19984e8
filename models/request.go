package models

// HarvestBody is the payload for POST /api/v1/harvest.
type HarvestBody struct {
	// URL is the catalog page to harvest. Required.
	URL string `json:"url" binding:"required,url"`

	// ReadySelector overrides the configured readiness selector.
	ReadySelector string `json:"ready_selector,omitempty"`

	// StepTimeout is the navigation / readiness deadline in seconds.
	// Default: server configuration. Max: 120.
	StepTimeout int `json:"step_timeout,omitempty" binding:"omitempty,min=1,max=120"`

	// ScrollTimeoutMs is the per-scroll growth deadline in milliseconds.
	ScrollTimeoutMs int `json:"scroll_timeout_ms,omitempty" binding:"omitempty,min=100,max=60000"`

	// ScrollBudget caps the time spent scrolling, in seconds. Max: 1800.
	ScrollBudget int `json:"scroll_budget,omitempty" binding:"omitempty,min=1,max=1800"`

	// MaxScrolls caps the scroll loop. Max: 1000.
	MaxScrolls int `json:"max_scrolls,omitempty" binding:"omitempty,min=1,max=1000"`

	// Stealth enables anti-bot-detection evasions (e.g. navigator.webdriver masking).
	Stealth *bool `json:"stealth,omitempty"`

	// FetchMode selects "browser" (default, renders and scrolls),
	// "http" (plain fetch, no JavaScript) or "auto" (http, then browser).
	FetchMode string `json:"fetch_mode,omitempty" binding:"omitempty,oneof=browser http auto"`

	// Sink optionally persists the batch server-side
	// (e.g. "csv", "json", "sqlite", "postgres", "redis", "webhook").
	Sink string `json:"sink,omitempty"`

	// Destination names the table, stream, file or URL for the sink.
	Destination string `json:"destination,omitempty"`

	// MaxAge enables the response cache: a cached batch younger than
	// MaxAge milliseconds is returned without harvesting.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`
}

// Defaults applies default values to unset fields.
func (b *HarvestBody) Defaults() {
	if b.FetchMode == "" {
		b.FetchMode = FetchModeBrowser
	}
}

// Fetch modes understood by the harvester.
const (
	FetchModeBrowser = "browser"
	FetchModeHTTP    = "http"
	FetchModeAuto    = "auto"
)

// ExtractBody is the payload for POST /api/v1/extract.
type ExtractBody struct {
	// HTML is previously rendered catalog markup. Required.
	HTML string `json:"html" binding:"required"`
}
