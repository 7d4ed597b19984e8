// Package sink persists extraction batches.
//
// Every sink implements the same contract: accept the rows of one batch and
// persist them to a named destination (file path, table, stream or URL).
// Sinks are safe for concurrent use.
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"sort"

	"github.com/use-agent/cataloger/config"
	"github.com/use-agent/cataloger/models"
)

// Sink names.
const (
	NameStdout   = "stdout"
	NameCSV      = "csv"
	NameJSON     = "json"
	NameSQLite   = "sqlite"
	NamePostgres = "postgres"
	NameRedis    = "redis"
	NameWebhook  = "webhook"
)

// DefaultTable is the table or stream used when no destination is given.
const DefaultTable = "products"

// Sink persists a batch. An empty destination selects the sink's default.
type Sink interface {
	Name() string
	Write(ctx context.Context, destination string, batch models.ExtractionBatch) error
}

// ErrUnknownSink is returned by Registry.Get for unregistered names.
var ErrUnknownSink = errors.New("unknown sink")

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// tableName validates destination as an SQL identifier.
func tableName(destination string) (string, error) {
	if destination == "" {
		return DefaultTable, nil
	}
	if !identRe.MatchString(destination) {
		return "", fmt.Errorf("invalid table name %q", destination)
	}
	return destination, nil
}

// Registry holds the configured sinks by name.
type Registry struct {
	sinks       map[string]Sink
	defaultName string
	closers     []io.Closer
}

// NewRegistry builds every sink the configuration allows. Connections are
// opened lazily by the underlying drivers, so an unreachable database only
// fails the writes that target it.
func NewRegistry(cfg config.SinkConfig) (*Registry, error) {
	r := &Registry{
		sinks:       make(map[string]Sink),
		defaultName: cfg.Default,
	}

	r.add(NewStdout(os.Stdout))
	r.add(NewCSV(os.Stdout))
	r.add(NewJSON(os.Stdout))
	r.add(NewWebhook(cfg.WebhookURL, cfg.WebhookSecret))

	if cfg.SQLitePath != "" {
		s, err := NewSQLite(cfg.SQLitePath)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.add(s)
	}
	if cfg.PostgresURL != "" {
		s, err := NewPostgres(context.Background(), cfg.PostgresURL)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.add(s)
	}
	if cfg.RedisAddr != "" {
		r.add(NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisMaxLen))
	}

	if _, ok := r.sinks[r.defaultName]; !ok {
		slog.Warn("default sink not available, using stdout", "sink", r.defaultName)
		r.defaultName = NameStdout
	}
	return r, nil
}

// NewRegistryOf builds a registry from ready-made sinks. The first one is
// the default.
func NewRegistryOf(sinks ...Sink) *Registry {
	r := &Registry{sinks: make(map[string]Sink, len(sinks))}
	for _, s := range sinks {
		r.add(s)
	}
	if len(sinks) > 0 {
		r.defaultName = sinks[0].Name()
	}
	return r
}

func (r *Registry) add(s Sink) {
	r.sinks[s.Name()] = s
	if c, ok := s.(io.Closer); ok {
		r.closers = append(r.closers, c)
	}
}

// Get returns the named sink; an empty name selects the default.
func (r *Registry) Get(name string) (Sink, error) {
	if name == "" {
		name = r.defaultName
	}
	s, ok := r.sinks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSink, name)
	}
	return s, nil
}

// Names lists the registered sinks in alphabetical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sinks))
	for n := range r.sinks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Close releases database pools and clients.
func (r *Registry) Close() error {
	var errs []error
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
