package handler

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/cataloger/cache"
	"github.com/use-agent/cataloger/config"
	"github.com/use-agent/cataloger/models"
	"github.com/use-agent/cataloger/pipeline"
)

// Runner executes pipeline jobs.
type Runner interface {
	Run(ctx context.Context, job pipeline.Job) (pipeline.Result, error)
	Process(ctx context.Context, page models.RenderedPage, job pipeline.Job) (pipeline.Result, error)
}

// Harvest returns a handler for POST /api/v1/harvest.
//
// Orchestration flow:
//  1. Parse & validate request, apply defaults, confine the destination.
//  2. Cache lookup when max_age is set.
//  3. Pipeline.Run → harvest, extract, optional sink.
//  4. Map the error code to a status, cache successes, respond.
//
// outputDir is the only directory the csv and json sinks may write to on
// behalf of a caller.
func Harvest(runner Runner, defaults config.HarvestConfig, sinks []string, outputDir string, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var body models.HarvestBody
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err.Error())
			return
		}
		body.Defaults()
		if body.Sink != "" && !slices.Contains(sinks, body.Sink) {
			badRequest(c, fmt.Sprintf("unknown sink %q, available: %v", body.Sink, sinks))
			return
		}
		destination, err := sinkDestination(body.Sink, body.Destination, outputDir)
		if err != nil {
			badRequest(c, err.Error())
			return
		}

		// ── 2. Cache lookup ─────────────────────────────────────────
		useCache := cc != nil && body.MaxAge > 0 && body.Sink == ""
		if useCache {
			if cached, hit := cc.Get(cache.Key(body), body.MaxAge); hit {
				cached.CacheStatus = "hit"
				cached.Timing = models.TimingInfo{TotalMs: time.Since(totalStart).Milliseconds()}
				c.JSON(http.StatusOK, cached)
				return
			}
		}

		// ── 3. Run ──────────────────────────────────────────────────
		job := pipeline.Job{
			Request:     RequestFromBody(body, defaults),
			FetchMode:   body.FetchMode,
			Sink:        body.Sink,
			Destination: destination,
		}
		res, err := runner.Run(c.Request.Context(), job)
		resp := res.Response(err)

		// ── 4. Respond ──────────────────────────────────────────────
		if err != nil {
			c.JSON(statusFor(resp.Error.Code), resp)
			return
		}
		if useCache {
			cc.Set(cache.Key(body), resp)
			resp.CacheStatus = "miss"
		}
		c.JSON(http.StatusOK, resp)
	}
}

// RequestFromBody merges the body's overrides into the server defaults.
func RequestFromBody(body models.HarvestBody, defaults config.HarvestConfig) models.HarvestRequest {
	req := models.HarvestRequest{
		URL:           body.URL,
		ReadySelector: defaults.ReadySelector,
		StepTimeout:   defaults.StepTimeout,
		ScrollTimeout: defaults.ScrollTimeout,
		MaxScrolls:    defaults.MaxScrolls,
		ScrollBudget:  defaults.ScrollBudget,
		Stealth:       defaults.Stealth,
	}
	if body.ReadySelector != "" {
		req.ReadySelector = body.ReadySelector
	}
	if body.StepTimeout > 0 {
		req.StepTimeout = time.Duration(body.StepTimeout) * time.Second
	}
	if body.ScrollTimeoutMs > 0 {
		req.ScrollTimeout = time.Duration(body.ScrollTimeoutMs) * time.Millisecond
	}
	if body.ScrollBudget > 0 {
		req.ScrollBudget = time.Duration(body.ScrollBudget) * time.Second
	}
	if body.MaxScrolls > 0 {
		req.MaxScrolls = body.MaxScrolls
	}
	if body.Stealth != nil {
		req.Stealth = *body.Stealth
	}
	return req
}
