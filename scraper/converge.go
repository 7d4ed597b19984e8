package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/use-agent/cataloger/models"
)

// pageDriver is the slice of page behaviour the scroll loop needs.
type pageDriver interface {
	// ScrollHeight returns document.body.scrollHeight.
	ScrollHeight(ctx context.Context) (int, error)
	// ScrollToBottom scrolls the window to the current bottom.
	ScrollToBottom(ctx context.Context) error
	// WaitGrowth blocks until the height exceeds baseline. It returns an
	// error wrapping context.DeadlineExceeded when timeout expires first.
	WaitGrowth(ctx context.Context, baseline int, timeout time.Duration) error
}

// convergence is the result of the scroll loop.
type convergence struct {
	Scrolls int
	Height  int
	Outcome models.ConvergenceOutcome
}

// converge scrolls until the page stops growing.
//
// Each iteration records the height, scrolls to the bottom and waits up to
// req.ScrollTimeout for the height to exceed the recorded value. Expiry of
// that wait is the normal "all content loaded" signal. Any other wait error
// stops the loop with OutcomeError, and the MaxScrolls / ScrollBudget guards
// stop it regardless of growth.
func converge(ctx context.Context, d pageDriver, req models.HarvestRequest) convergence {
	start := time.Now()
	res := convergence{}

	height, err := d.ScrollHeight(ctx)
	if err != nil {
		slog.Error("scroll loop: failed to read page height", "url", req.URL, "error", err)
		res.Outcome = models.OutcomeError
		return res
	}
	res.Height = height

	for {
		if req.MaxScrolls > 0 && res.Scrolls >= req.MaxScrolls {
			res.Outcome = models.OutcomeMaxScrolls
			break
		}
		if req.ScrollBudget > 0 && time.Since(start) >= req.ScrollBudget {
			res.Outcome = models.OutcomeBudget
			break
		}

		if err := d.ScrollToBottom(ctx); err != nil {
			slog.Error("scroll loop: scroll failed", "url", req.URL, "iteration", res.Scrolls, "error", err)
			res.Outcome = models.OutcomeError
			break
		}
		res.Scrolls++

		err := d.WaitGrowth(ctx, res.Height, req.ScrollTimeout)
		if err != nil {
			// Only our own per-scroll deadline means "settled"; the caller's
			// deadline expiring is a failure of the wait.
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				res.Outcome = models.OutcomeSettled
			} else {
				slog.Error("scroll loop: wait for growth failed",
					"url", req.URL,
					"iteration", res.Scrolls,
					"error", err,
				)
				res.Outcome = models.OutcomeError
			}
			break
		}

		h, err := d.ScrollHeight(ctx)
		if err != nil {
			slog.Error("scroll loop: failed to read page height", "url", req.URL, "error", err)
			res.Outcome = models.OutcomeError
			break
		}
		slog.Debug("scroll loop: page grew", "iteration", res.Scrolls, "from", res.Height, "to", h)
		res.Height = h
	}

	slog.Info("scroll loop finished",
		"url", req.URL,
		"outcome", string(res.Outcome),
		"scrolls", res.Scrolls,
		"height", res.Height,
		"elapsed", time.Since(start).String(),
	)
	return res
}

// rodDriver drives a real page.
type rodDriver struct {
	page *rod.Page
}

func (d rodDriver) ScrollHeight(ctx context.Context) (int, error) {
	res, err := d.page.Context(ctx).Eval(`() => document.body.scrollHeight`)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

func (d rodDriver) ScrollToBottom(ctx context.Context) error {
	_, err := d.page.Context(ctx).Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

func (d rodDriver) WaitGrowth(ctx context.Context, baseline int, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return d.page.Context(waitCtx).Wait(rod.Eval(`h => document.body.scrollHeight > h`, baseline))
}
