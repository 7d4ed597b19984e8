package sink

import (
	"context"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/use-agent/cataloger/models"
)

// Stdout renders the batch as a table. The destination picks the format:
// "markdown", "html", or anything else for a rounded box table.
type Stdout struct {
	out io.Writer
}

func NewStdout(out io.Writer) *Stdout {
	return &Stdout{out: out}
}

func (s *Stdout) Name() string { return NameStdout }

func (s *Stdout) Write(_ context.Context, destination string, batch models.ExtractionBatch) error {
	t := table.NewWriter()
	t.SetOutputMirror(s.out)

	header := table.Row{"#"}
	for _, h := range batch.Header() {
		header = append(header, h)
	}
	t.AppendHeader(header)

	for i, r := range batch {
		t.AppendRow(table.Row{i + 1, r.Brand, r.Model, r.Price})
	}
	t.AppendFooter(table.Row{"", "", "total", len(batch)})

	switch destination {
	case "markdown":
		t.RenderMarkdown()
	case "html":
		t.RenderHTML()
	default:
		t.SetStyle(table.StyleRounded)
		t.Render()
	}
	return nil
}
