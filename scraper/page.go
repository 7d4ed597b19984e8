package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/cataloger/models"
	"github.com/ysmood/gson"
)

// Harvest renders req.URL, scrolls it until no more products load and
// returns the final markup.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. Browser              – launch or attach on first use
//  2. Acquire slot         – wait for one of MaxPages tab slots
//  3. Incognito context    – fresh cookies and storage per harvest
//  4. DEFER: cleanup       – dispose the context (closes the tab with it)
//  5. Viewport             – fixed 1920x1080, lazy loading depends on it
//  6. Stealth + headers    – before navigation
//  7. Hijack mount         – block heavy resources and trackers
//  8. Navigate             – wait for DOMContentLoaded only, bounded by StepTimeout
//  9. Readiness            – first product container within StepTimeout
//  10. Converge            – scroll until the height stops growing
//  11. Capture             – page.HTML(), detached from ctx
//
// Any failure returns the zero page and a *models.HarvestError. Panics
// raised by the driver are recovered here.
func (s *Scraper) Harvest(ctx context.Context, req models.HarvestRequest) (page models.RenderedPage, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			page = models.RenderedPage{}
			err = models.NewHarvestError(models.ErrCodeInternal, "browser driver panicked", fmt.Errorf("%v", r))
		}
		if err != nil {
			slog.Error("harvest failed",
				"url", req.URL,
				"code", models.CodeOf(err),
				"error", err,
				"elapsed", time.Since(start).String(),
			)
		}
	}()

	// ── 1. Browser ────────────────────────────────────────────────────
	browser, err := s.connect()
	if err != nil {
		return models.RenderedPage{}, err
	}

	// ── 2. Acquire slot ───────────────────────────────────────────────
	if err := s.acquire(ctx); err != nil {
		return models.RenderedPage{}, err
	}
	defer s.release()

	// ── 3. Incognito context ──────────────────────────────────────────
	incognito, err := browser.Incognito()
	if err != nil {
		return models.RenderedPage{}, models.NewHarvestError(
			models.ErrCodeBrowserLaunch,
			"failed to create browser context",
			err,
		)
	}

	// ── 4. CRITICAL DEFER: the context owns the tab; disposing it
	// releases both, even when ctx has already expired.
	defer func() {
		if closeErr := incognito.Close(); closeErr != nil {
			slog.Warn("cleanup: failed to dispose browser context", "error", closeErr)
		}
	}()

	tab, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return models.RenderedPage{}, models.NewHarvestError(
			models.ErrCodeBrowserLaunch,
			"failed to open tab",
			err,
		)
	}

	// ── 5. Viewport ───────────────────────────────────────────────────
	if err := tab.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             models.ViewportWidth,
		Height:            models.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		slog.Warn("failed to set viewport", "error", err)
	}

	// ── 6. Stealth + headers ──────────────────────────────────────────
	if req.Stealth {
		if _, evalErr := tab.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}
	if headers := s.extraHeaders(req.URL); len(headers) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(headers)}.Call(tab)
	}

	// ── 7. Hijack mount ───────────────────────────────────────────────
	router := setupHijack(tab, newResourceFilter(s.harvestCfg.BlockedResourceTypes, s.harvestCfg.BlockAds))
	if router != nil {
		defer func() { _ = router.Stop() }()
	}

	// ── 8. Navigate ───────────────────────────────────────────────────
	if err := navigate(ctx, tab, req.URL, req.StepTimeout); err != nil {
		return models.RenderedPage{}, err
	}
	slog.Info("page loaded", "url", req.URL)

	// ── 9. Readiness ──────────────────────────────────────────────────
	if err := waitReady(ctx, tab, req.ReadySelector, req.StepTimeout); err != nil {
		return models.RenderedPage{}, err
	}

	// ── 10. Converge ──────────────────────────────────────────────────
	conv := converge(ctx, rodDriver{page: tab}, req)

	// ── 11. Capture ───────────────────────────────────────────────────
	// A loop cut short by the caller's deadline still returns what loaded.
	captureCtx, cancel := captureContext(ctx)
	defer cancel()
	p := tab.Context(captureCtx)
	rawHTML, err := p.HTML()
	if err != nil {
		return models.RenderedPage{}, models.NewHarvestError(
			models.ErrCodeCaptureFailed,
			"failed to capture page HTML",
			err,
		)
	}

	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = req.URL
	}

	slog.Info("harvest complete",
		"url", finalURL,
		"bytes", len(rawHTML),
		"scrolls", conv.Scrolls,
		"outcome", string(conv.Outcome),
		"elapsed", time.Since(start).String(),
	)

	return models.RenderedPage{
		HTML:        rawHTML,
		FinalURL:    finalURL,
		FinalHeight: conv.Height,
		Scrolls:     conv.Scrolls,
		Outcome:     conv.Outcome,
		FetchMethod: models.FetchModeBrowser,
	}, nil
}

// captureTimeout bounds markup capture once the scroll loop has ended.
const captureTimeout = 10 * time.Second

// captureContext keeps ctx's values but not its cancellation.
func captureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), captureTimeout)
}

// navigate loads target and returns once DOMContentLoaded fired.
// The listener is registered before Navigate so the event cannot be missed.
func navigate(ctx context.Context, tab *rod.Page, target string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p := tab.Context(navCtx)
	wait := p.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := p.Navigate(target); err != nil {
		return categorizeError(err, "navigation to catalog failed")
	}
	wait()

	if err := navCtx.Err(); err != nil {
		return categorizeError(err, "catalog did not reach DOMContentLoaded")
	}
	return nil
}

// waitReady blocks until selector matches, proving the listing rendered.
func waitReady(ctx context.Context, tab *rod.Page, selector string, timeout time.Duration) error {
	if selector == "" {
		return nil
	}
	readyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := tab.Context(readyCtx).Element(selector); err != nil {
		if ctx.Err() != nil {
			return categorizeError(ctx.Err(), "harvest canceled while waiting for products")
		}
		return models.NewHarvestError(
			models.ErrCodeReadyTimeout,
			fmt.Sprintf("no element matched %q within %s", selector, timeout),
			err,
		)
	}
	return nil
}

// extraHeaders builds the Accept-Language and search-engine Referer
// headers sent with every request of the harvest.
func (s *Scraper) extraHeaders(target string) map[string]string {
	headers := make(map[string]string, 2)
	if s.harvestCfg.AcceptLanguage != "" {
		headers["Accept-Language"] = s.harvestCfg.AcceptLanguage
	}
	if u, err := url.Parse(target); err == nil && u.Hostname() != "" {
		headers["Referer"] = "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())
	}
	return headers
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
