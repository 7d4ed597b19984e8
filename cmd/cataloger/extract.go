package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/use-agent/cataloger/models"
)

var extractOpts struct {
	output outputFlags
	url    string
}

var extractCmd = &cobra.Command{
	Use:   "extract <file|->",
	Short: "Extract products from saved catalog markup and write them to a sink.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}

		svc, err := newServices(cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		page := models.RenderedPage{HTML: raw, FinalURL: extractOpts.url}
		job := extractOpts.output.job(models.HarvestRequest{URL: extractOpts.url}, "")
		res, err := svc.pipeline.Process(cmd.Context(), page, job)
		return extractOpts.output.finish(res, err)
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractOpts.url, "url", "", "URL the markup was saved from, for logs.")
	extractOpts.output.register(extractCmd)

	rootCmd.AddCommand(extractCmd)
}

// readInput reads path, or stdin when path is "-".
func readInput(stdin io.Reader, path string) (string, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}
