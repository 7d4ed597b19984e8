package scraper

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/use-agent/cataloger/config"
	"github.com/use-agent/cataloger/models"
)

// Scraper owns one browser process and renders catalog pages in it.
// Each Harvest call gets its own incognito context and tab; at most
// MaxPages harvests run at once. It is safe for concurrent use.
type Scraper struct {
	mu      sync.Mutex
	browser *rod.Browser
	// launched is true when we started the process (and must kill it).
	launched bool

	browserCfg config.BrowserConfig
	harvestCfg config.HarvestConfig

	slots       chan struct{}
	activePages atomic.Int32
}

// NewScraper prepares a Scraper. The browser itself is started lazily on
// the first harvest, so a missing or broken Chromium surfaces as a harvest
// failure instead of a startup crash.
func NewScraper(browserCfg config.BrowserConfig, harvestCfg config.HarvestConfig) *Scraper {
	maxPages := browserCfg.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}
	return &Scraper{
		browserCfg: browserCfg,
		harvestCfg: harvestCfg,
		slots:      make(chan struct{}, maxPages),
	}
}

// connect returns the shared browser, launching or attaching to it on
// first use. A failed attempt is not cached; the next harvest retries.
func (s *Scraper) connect() (*rod.Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		return s.browser, nil
	}

	controlURL := s.browserCfg.ControlURL
	launched := false
	if controlURL == "" {
		l := launcher.New().
			Headless(s.browserCfg.Headless).
			NoSandbox(s.browserCfg.NoSandbox)

		if s.browserCfg.BrowserBin != "" {
			l = l.Bin(s.browserCfg.BrowserBin)
		}
		if s.browserCfg.DefaultProxy != "" {
			l = l.Proxy(s.browserCfg.DefaultProxy)
		}

		// ── Stealth flags ────────────────────────────────────────────
		l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
		l.Delete(flags.Flag("enable-automation"))
		l.Set(flags.Flag("disable-features"), "TranslateUI")
		l.Set(flags.Flag("disable-renderer-backgrounding"))
		l.Set(flags.Flag("disable-background-timer-throttling"))
		l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
		l.Set(flags.Flag("disable-dev-shm-usage"))
		l.Set(flags.Flag("disable-extensions"))
		l.Set(flags.Flag("no-first-run"))

		u, err := l.Launch()
		if err != nil {
			slog.Error("browser launch failed", "error", err)
			return nil, models.NewHarvestError(
				models.ErrCodeBrowserLaunch,
				"failed to launch browser",
				err,
			)
		}
		slog.Info("browser launched", "controlURL", u)
		controlURL = u
		launched = true
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		slog.Error("browser connect failed", "controlURL", controlURL, "error", err)
		return nil, models.NewHarvestError(
			models.ErrCodeBrowserLaunch,
			"failed to connect to browser",
			err,
		)
	}

	s.browser = browser
	s.launched = launched
	return browser, nil
}

// acquire blocks until a tab slot is free or ctx is done.
func (s *Scraper) acquire(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		s.activePages.Add(1)
		return nil
	case <-ctx.Done():
		return categorizeError(ctx.Err(), "timed out waiting for a free browser tab")
	}
}

func (s *Scraper) release() {
	s.activePages.Add(-1)
	<-s.slots
}

// Stats returns a snapshot of tab usage.
func (s *Scraper) Stats() models.PoolStats {
	s.mu.Lock()
	connected := s.browser != nil
	s.mu.Unlock()

	return models.PoolStats{
		MaxPages:    cap(s.slots),
		ActivePages: int(s.activePages.Load()),
		Connected:   connected,
	}
}

// Close shuts the browser down. A browser we only attached to over CDP is
// left running. Safe to call more than once.
func (s *Scraper) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		return nil
	}
	slog.Info("scraper shutting down: closing browser", "launched", s.launched)

	var err error
	if s.launched {
		err = s.browser.Close()
	}
	s.browser = nil
	return err
}
