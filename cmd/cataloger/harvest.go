package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/cataloger/config"
	"github.com/use-agent/cataloger/models"
	"github.com/use-agent/cataloger/pipeline"
)

// outputFlags are shared by harvest and extract.
type outputFlags struct {
	sink        string
	destination string
	strict      bool
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.sink, "sink", "", "Sink to write the batch to (default from CATALOGER_SINK).")
	cmd.Flags().StringVarP(&o.destination, "destination", "o", "", "Table, stream, file or URL for the sink.")
	cmd.Flags().BoolVar(&o.strict, "strict", false, "Exit non-zero when no records were produced or written.")
}

// job builds the pipeline job for req, falling back to configured sink
// defaults.
func (o *outputFlags) job(req models.HarvestRequest, mode string) pipeline.Job {
	job := pipeline.Job{
		Request:     req,
		FetchMode:   mode,
		Sink:        o.sink,
		Destination: o.destination,
	}
	if job.Sink == "" {
		job.Sink = cfg.Sink.Default
	}
	if job.Destination == "" {
		job.Destination = cfg.Sink.Destination
	}
	return job
}

// finish logs the run summary. Failures are reported through the exit
// status only in strict mode.
func (o *outputFlags) finish(res pipeline.Result, err error) error {
	slog.Info("run finished",
		"success", res.Success,
		"records", len(res.Batch),
		"skipped", res.Report.Skipped(),
		"gaps", res.Report.GapCounts(),
		"sink", res.Sink,
		"total_ms", res.Timing.TotalMs,
	)
	if err == nil {
		return nil
	}
	slog.Error("run failed", "code", models.CodeOf(err), "error", err)
	if o.strict {
		return fmt.Errorf("%s: %w", models.CodeOf(err), err)
	}
	return nil
}

var harvestOpts struct {
	output        outputFlags
	url           string
	readySelector string
	stepTimeout   time.Duration
	scrollTimeout time.Duration
	maxScrolls    int
	scrollBudget  time.Duration
	stealth       bool
	fetchMode     string
}

var harvestCmd = &cobra.Command{
	Use:   "harvest [url]",
	Short: "Render a catalog page, scroll it to the end and write the extracted products.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyHarvestFlags(cmd, args, &cfg.Harvest)

		svc, err := newServices(cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		job := harvestOpts.output.job(requestFromConfig(cfg.Harvest), cfg.Harvest.FetchMode)
		res, err := svc.pipeline.Run(cmd.Context(), job)
		return harvestOpts.output.finish(res, err)
	},
}

func init() {
	f := harvestCmd.Flags()
	f.StringVar(&harvestOpts.url, "url", "", "Catalog page to harvest (default from CATALOGER_URL).")
	f.StringVar(&harvestOpts.readySelector, "ready-selector", "", "CSS selector of the first product container.")
	f.DurationVar(&harvestOpts.stepTimeout, "step-timeout", 0, "Navigation and readiness deadline.")
	f.DurationVar(&harvestOpts.scrollTimeout, "scroll-timeout", 0, "Per-scroll growth deadline.")
	f.IntVar(&harvestOpts.maxScrolls, "max-scrolls", 0, "Maximum scroll iterations.")
	f.DurationVar(&harvestOpts.scrollBudget, "scroll-budget", 0, "Total time allowed for scrolling.")
	f.BoolVar(&harvestOpts.stealth, "stealth", true, "Inject anti-automation evasions.")
	f.StringVar(&harvestOpts.fetchMode, "fetch-mode", "", "browser, http or auto.")
	harvestOpts.output.register(harvestCmd)

	rootCmd.AddCommand(harvestCmd)
}

// applyHarvestFlags overrides hc with every flag set on the command line.
func applyHarvestFlags(cmd *cobra.Command, args []string, hc *config.HarvestConfig) {
	flags := cmd.Flags()
	if len(args) == 1 {
		hc.URL = args[0]
	}
	if flags.Changed("url") {
		hc.URL = harvestOpts.url
	}
	if flags.Changed("ready-selector") {
		hc.ReadySelector = harvestOpts.readySelector
	}
	if flags.Changed("step-timeout") {
		hc.StepTimeout = harvestOpts.stepTimeout
	}
	if flags.Changed("scroll-timeout") {
		hc.ScrollTimeout = harvestOpts.scrollTimeout
	}
	if flags.Changed("max-scrolls") {
		hc.MaxScrolls = harvestOpts.maxScrolls
	}
	if flags.Changed("scroll-budget") {
		hc.ScrollBudget = harvestOpts.scrollBudget
	}
	if flags.Changed("stealth") {
		hc.Stealth = harvestOpts.stealth
	}
	if flags.Changed("fetch-mode") {
		hc.FetchMode = harvestOpts.fetchMode
	}
}

// requestFromConfig freezes the harvest settings into a request.
func requestFromConfig(hc config.HarvestConfig) models.HarvestRequest {
	return models.HarvestRequest{
		URL:           hc.URL,
		ReadySelector: hc.ReadySelector,
		StepTimeout:   hc.StepTimeout,
		ScrollTimeout: hc.ScrollTimeout,
		MaxScrolls:    hc.MaxScrolls,
		ScrollBudget:  hc.ScrollBudget,
		Stealth:       hc.Stealth,
	}
}
