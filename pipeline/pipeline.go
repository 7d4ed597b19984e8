// Package pipeline wires harvesting, extraction and persistence into a
// single run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/cataloger/extract"
	"github.com/use-agent/cataloger/metrics"
	"github.com/use-agent/cataloger/models"
	"github.com/use-agent/cataloger/scraper"
	"github.com/use-agent/cataloger/sink"
)

// HarvesterSelector picks a harvester for a fetch mode.
type HarvesterSelector interface {
	For(mode string) scraper.Harvester
}

// Job is one unit of work.
type Job struct {
	Request   models.HarvestRequest
	FetchMode string

	// Sink names the sink to write to. Empty means the batch is only
	// returned to the caller.
	Sink        string
	Destination string
}

// Result is the outcome of a run. It is populated as far as the run got,
// even when Run returns an error.
type Result struct {
	FinalURL    string
	Scrolls     int
	FinalHeight int
	Outcome     models.ConvergenceOutcome
	FetchMethod string

	Batch  models.ExtractionBatch
	Report extract.Report
	Sink   string
	Timing models.TimingInfo

	// Success is true when a non-empty batch was produced and, if a sink
	// was requested, persisted.
	Success bool
}

// Pipeline runs harvest → extract → sink. It never retries and never
// panics past Run.
type Pipeline struct {
	harvesters HarvesterSelector
	extractor  *extract.Extractor
	sinks      *sink.Registry
	metrics    *metrics.Metrics
}

// New creates a Pipeline. sinks and m may be nil.
func New(harvesters HarvesterSelector, extractor *extract.Extractor, sinks *sink.Registry, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		harvesters: harvesters,
		extractor:  extractor,
		sinks:      sinks,
		metrics:    m,
	}
}

// Run harvests job.Request.URL and processes the page.
//
// An empty page ends the run with an error matching models.ErrEmptyPage
// (and carrying the *models.HarvestError when there was one). An empty
// batch ends it with models.ErrEmptyBatch before the sink is touched.
func (p *Pipeline) Run(ctx context.Context, job Job) (res Result, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("pipeline panicked", "url", job.Request.URL, "panic", r)
			res.Success = false
			err = models.NewHarvestError(models.ErrCodeInternal, "pipeline panicked", fmt.Errorf("%v", r))
		}
		res.Timing.TotalMs = time.Since(start).Milliseconds()
	}()

	mode := job.FetchMode
	if mode == "" {
		mode = models.FetchModeBrowser
	}
	slog.Info("harvest started", "url", job.Request.URL, "mode", mode)

	hStart := time.Now()
	page, herr := p.harvesters.For(mode).Harvest(ctx, job.Request)
	hDur := time.Since(hStart)
	res.Timing.HarvestMs = hDur.Milliseconds()

	if herr != nil || page.Empty() {
		p.metrics.ObserveHarvest(mode, "failed", 0, hDur)
		slog.Error("harvest produced no content", "url", job.Request.URL, "code", models.CodeOf(herr))
		if herr != nil {
			return res, fmt.Errorf("%w: %w", models.ErrEmptyPage, herr)
		}
		return res, models.ErrEmptyPage
	}
	p.metrics.ObserveHarvest(mode, string(page.Outcome), page.Scrolls, hDur)

	return p.process(ctx, page, job, res)
}

// Process extracts and persists an already rendered page, e.g. markup
// saved from an earlier harvest.
func (p *Pipeline) Process(ctx context.Context, page models.RenderedPage, job Job) (Result, error) {
	start := time.Now()
	res, err := p.process(ctx, page, job, Result{})
	res.Timing.TotalMs = time.Since(start).Milliseconds()
	return res, err
}

func (p *Pipeline) process(ctx context.Context, page models.RenderedPage, job Job, res Result) (Result, error) {
	res.FinalURL = page.FinalURL
	res.Scrolls = page.Scrolls
	res.FinalHeight = page.FinalHeight
	res.Outcome = page.Outcome
	res.FetchMethod = page.FetchMethod

	if page.Empty() {
		slog.Error("no markup to extract from", "url", job.Request.URL)
		return res, models.ErrEmptyPage
	}

	eStart := time.Now()
	batch, report := p.extractor.Extract(page)
	eDur := time.Since(eStart)
	res.Batch = batch
	res.Report = report
	res.Timing.ExtractMs = eDur.Milliseconds()
	p.metrics.ObserveExtract(len(batch), report.GapCounts(), eDur)

	slog.Info("extraction complete",
		"url", page.FinalURL,
		"candidates", report.Candidates,
		"records", len(batch),
		"skipped", report.Skipped(),
	)

	if len(batch) == 0 {
		slog.Error("extraction produced no records, nothing to write", "url", page.FinalURL)
		return res, models.ErrEmptyBatch
	}

	if job.Sink == "" {
		res.Success = true
		return res, nil
	}

	if err := p.write(ctx, job, batch, &res); err != nil {
		return res, err
	}
	res.Success = true
	return res, nil
}

func (p *Pipeline) write(ctx context.Context, job Job, batch models.ExtractionBatch, res *Result) error {
	if p.sinks == nil {
		return &models.SinkError{Sink: job.Sink, Destination: job.Destination, Err: errors.New("no sinks configured")}
	}
	s, err := p.sinks.Get(job.Sink)
	if err != nil {
		return &models.SinkError{Sink: job.Sink, Destination: job.Destination, Err: err}
	}

	sStart := time.Now()
	err = s.Write(ctx, job.Destination, batch)
	sDur := time.Since(sStart)
	res.Timing.SinkMs = sDur.Milliseconds()
	p.metrics.ObserveSink(s.Name(), err, sDur)

	if err != nil {
		slog.Error("sink write failed", "sink", s.Name(), "destination", job.Destination, "error", err)
		return &models.SinkError{Sink: s.Name(), Destination: job.Destination, Err: err}
	}

	res.Sink = s.Name()
	slog.Info("batch written", "sink", s.Name(), "destination", job.Destination, "records", len(batch))
	return nil
}

// Response converts a run into the API response shape. err is the error
// returned alongside r, if any.
func (r Result) Response(err error) models.HarvestResponse {
	resp := models.HarvestResponse{
		Success:  r.Success && err == nil,
		FinalURL: r.FinalURL,
		Products: r.Batch,
		Count:    len(r.Batch),
		Gaps:     r.Report.GapCounts(),
		Sink:     r.Sink,
		Timing:   r.Timing,
	}
	if resp.Products == nil {
		resp.Products = models.ExtractionBatch{}
	}
	if r.Outcome != "" && r.FetchMethod == models.FetchModeBrowser {
		resp.Scroll = &models.ScrollInfo{
			Iterations:  r.Scrolls,
			FinalHeight: r.FinalHeight,
			Outcome:     string(r.Outcome),
		}
	}
	if err != nil {
		resp.Error = &models.ErrorDetail{Code: models.CodeOf(err), Message: err.Error()}
	}
	return resp
}
