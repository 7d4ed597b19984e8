package scraper

import (
	"context"
	"errors"
	"log/slog"

	"github.com/use-agent/cataloger/models"
)

// Harvester loads a catalog page and returns its rendered markup.
//
// On failure implementations return the zero RenderedPage together with a
// *models.HarvestError; callers are expected to treat the empty page as a
// normal outcome rather than a crash.
type Harvester interface {
	Harvest(ctx context.Context, req models.HarvestRequest) (models.RenderedPage, error)
}

// Fallback tries Primary first and falls back to Secondary when Primary
// fails. Typically Primary is the cheap static fetcher and Secondary the
// browser. Hosts where Primary failed are kept in Memory and skip it
// until the entry expires.
type Fallback struct {
	Primary   Harvester
	Secondary Harvester
	Memory    *HostMemory
}

// Harvest implements Harvester.
func (f *Fallback) Harvest(ctx context.Context, req models.HarvestRequest) (models.RenderedPage, error) {
	host := hostOf(req.URL)
	if f.Memory.NeedsBrowser(host) {
		slog.Debug("skipping static fetch for remembered host", "host", host)
		return f.Secondary.Harvest(ctx, req)
	}

	page, err := f.Primary.Harvest(ctx, req)
	if err == nil && !page.Empty() {
		return page, nil
	}
	if ctx.Err() != nil {
		return models.RenderedPage{}, categorizeError(ctx.Err(), "harvest canceled")
	}

	slog.Info("primary harvester failed, falling back",
		"url", req.URL,
		"code", models.CodeOf(err),
	)
	f.Memory.MarkBrowser(host)
	return f.Secondary.Harvest(ctx, req)
}

// categorizeError wraps raw errors into typed HarvestErrors so the API layer
// can map them to appropriate HTTP status codes.
func categorizeError(err error, msg string) *models.HarvestError {
	var he *models.HarvestError
	switch {
	case errors.As(err, &he):
		return he
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewHarvestError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewHarvestError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewHarvestError(models.ErrCodeNavigation, msg, err)
	}
}

// Router picks a Harvester by fetch mode.
type Router struct {
	Browser Harvester
	HTTP    Harvester
	// Memory is shared by every auto-mode harvest. May be nil.
	Memory *HostMemory
}

// For returns the harvester for mode. Unknown or empty modes use the
// browser; "auto" tries a static fetch before rendering.
func (r Router) For(mode string) Harvester {
	switch mode {
	case models.FetchModeHTTP:
		return r.HTTP
	case models.FetchModeAuto:
		return &Fallback{Primary: r.HTTP, Secondary: r.Browser, Memory: r.Memory}
	default:
		return r.Browser
	}
}
