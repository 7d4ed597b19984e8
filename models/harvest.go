package models

import "time"

// Viewport dimensions applied to every harvest. Lazy-load triggers on the
// catalog depend on layout, so they must not vary between runs.
const (
	ViewportWidth  = 1920
	ViewportHeight = 1080
)

// HarvestRequest describes a single harvest run. It is built once and
// never mutated afterwards.
type HarvestRequest struct {
	// URL is the catalog page to load.
	URL string

	// ReadySelector is the CSS selector of the first product container.
	// The page is considered non-functional if it never appears.
	ReadySelector string

	// StepTimeout bounds navigation and the readiness wait.
	StepTimeout time.Duration

	// ScrollTimeout bounds each wait for the page height to grow.
	// Expiry is the normal "no more content" signal.
	ScrollTimeout time.Duration

	// MaxScrolls caps the number of scroll iterations. Zero means no cap.
	MaxScrolls int

	// ScrollBudget caps the wall-clock time spent in the scroll loop.
	// Zero means no cap.
	ScrollBudget time.Duration

	// Stealth injects anti-automation evasions before navigation.
	Stealth bool
}

// ConvergenceOutcome records why the scroll loop stopped.
type ConvergenceOutcome string

const (
	// OutcomeSettled means the height stopped growing within ScrollTimeout.
	OutcomeSettled ConvergenceOutcome = "settled"
	// OutcomeError means a wait failed for a reason other than its timeout.
	OutcomeError ConvergenceOutcome = "error"
	// OutcomeMaxScrolls means the iteration cap was reached.
	OutcomeMaxScrolls ConvergenceOutcome = "max_scrolls"
	// OutcomeBudget means the wall-clock budget ran out.
	OutcomeBudget ConvergenceOutcome = "budget"
)

// RenderedPage is the fully rendered markup of a harvested page.
// The zero value is the empty page returned on harvest failure.
type RenderedPage struct {
	HTML        string
	FinalURL    string
	FinalHeight int
	Scrolls     int
	Outcome     ConvergenceOutcome
	FetchMethod string
}

// Empty reports whether the page carries no markup.
func (p RenderedPage) Empty() bool {
	return p.HTML == ""
}
