package handler

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/use-agent/cataloger/sink"
)

// sinkDestination maps a caller-supplied destination to the one handed to
// the sink. File sinks only accept a bare file name, which is placed in
// dir. Webhook endpoints come from server configuration only. Table and
// stream names are validated by their sinks.
func sinkDestination(sinkName, destination, dir string) (string, error) {
	if destination == "" {
		return "", nil
	}
	switch sinkName {
	case sink.NameCSV, sink.NameJSON:
		name := filepath.Base(destination)
		if name != destination || name == "." || name == ".." || name == sink.StdoutDestination {
			return "", fmt.Errorf("destination for the %s sink must be a plain file name, got %q", sinkName, destination)
		}
		return filepath.Join(dir, name), nil
	case sink.NameWebhook:
		return "", errors.New("the webhook endpoint is set by server configuration; omit destination")
	default:
		return destination, nil
	}
}
