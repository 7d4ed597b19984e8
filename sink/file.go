package sink

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/use-agent/cataloger/models"
)

// StdoutDestination makes the file sinks write to their stream instead of
// a file.
const StdoutDestination = "-"

// CSV writes a header row followed by one row per record.
type CSV struct {
	out io.Writer
}

// NewCSV creates a CSV sink. out receives batches sent to "-".
func NewCSV(out io.Writer) *CSV {
	return &CSV{out: out}
}

func (s *CSV) Name() string { return NameCSV }

// Write implements Sink. destination is a file path, default "products.csv".
func (s *CSV) Write(_ context.Context, destination string, batch models.ExtractionBatch) error {
	return writeTo(s.out, destination, "products.csv", func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(batch.Header()); err != nil {
			return err
		}
		if err := cw.WriteAll(batch.Rows()); err != nil {
			return err
		}
		return cw.Error()
	})
}

// JSON writes the batch as an indented JSON array.
type JSON struct {
	out io.Writer
}

// NewJSON creates a JSON sink. out receives batches sent to "-".
func NewJSON(out io.Writer) *JSON {
	return &JSON{out: out}
}

func (s *JSON) Name() string { return NameJSON }

// Write implements Sink. destination is a file path, default "products.json".
func (s *JSON) Write(_ context.Context, destination string, batch models.ExtractionBatch) error {
	return writeTo(s.out, destination, "products.json", func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(batch)
	})
}

// writeTo runs render against the stream or a freshly created file.
func writeTo(stream io.Writer, destination, fallback string, render func(io.Writer) error) error {
	if destination == StdoutDestination {
		return render(stream)
	}
	if destination == "" {
		destination = fallback
	}

	f, err := os.Create(destination)
	if err != nil {
		return fmt.Errorf("create %s: %w", destination, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", destination, err)
	}
	return f.Close()
}
