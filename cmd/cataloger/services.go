package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/use-agent/cataloger/config"
	"github.com/use-agent/cataloger/extract"
	"github.com/use-agent/cataloger/metrics"
	"github.com/use-agent/cataloger/pipeline"
	"github.com/use-agent/cataloger/scraper"
	"github.com/use-agent/cataloger/sink"
)

// services is everything a command needs to run the pipeline.
type services struct {
	scraper  *scraper.Scraper
	sinks    *sink.Registry
	registry *prometheus.Registry
	pipeline *pipeline.Pipeline
}

func newServices(cfg *config.Config) (*services, error) {
	profile, err := extract.ProfileFromConfig(cfg.Extract)
	if err != nil {
		return nil, fmt.Errorf("extract profile: %w", err)
	}

	sinks, err := sink.NewRegistry(cfg.Sink)
	if err != nil {
		return nil, fmt.Errorf("sinks: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	sc := scraper.NewScraper(cfg.Browser, cfg.Harvest)
	router := scraper.Router{
		Browser: sc,
		HTTP:    scraper.NewHTTPFetcher(cfg.Browser.DefaultProxy, cfg.Harvest.AcceptLanguage),
		Memory:  scraper.NewHostMemory(6 * time.Hour),
	}

	return &services{
		scraper:  sc,
		sinks:    sinks,
		registry: reg,
		pipeline: pipeline.New(router, extract.New(profile), sinks, m),
	}, nil
}

// Close shuts the browser down and releases sink connections.
func (s *services) Close() {
	if err := s.scraper.Close(); err != nil {
		slog.Warn("browser close failed", "error", err)
	}
	if err := s.sinks.Close(); err != nil {
		slog.Warn("sink close failed", "error", err)
	}
}
