// Package allocation wires convolution, valuation and the optimizer into
// batch and part allocation of two components.
package allocation

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/microsoft/tolstack/internal/cache"
	"github.com/microsoft/tolstack/internal/config"
	"github.com/microsoft/tolstack/internal/metrics"
	"github.com/microsoft/tolstack/internal/models"
)

// Allocation levels reported to the metrics collector.
const (
	LevelBatch = "batch"
	LevelPart  = "part"
)

// Engine runs allocations against the variants of a catalog. It holds no
// per-call state and is safe for concurrent use.
type Engine struct {
	catalog   *config.Catalog
	log       *slog.Logger
	workers   int
	collector metrics.Collector
	cache     *cache.Cache
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithWorkers bounds the optimizer's goroutines.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithCollector reports engine measurements to c.
func WithCollector(c metrics.Collector) Option {
	return func(e *Engine) {
		if c != nil {
			e.collector = c
		}
	}
}

// WithCache stores allocation results in c and reuses them for identical requests.
func WithCache(c *cache.Cache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// New creates an engine for the variants in catalog.
func New(catalog *config.Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog:   catalog,
		log:       slog.Default(),
		workers:   runtime.GOMAXPROCS(0),
		collector: metrics.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Variant resolves the variant named in settings.
func (e *Engine) Variant(settings models.Settings) (*config.Variant, error) {
	if e.catalog == nil {
		return nil, &models.ConfigError{Param: "config_name", Msg: "no variants loaded"}
	}
	return e.catalog.Get(settings.ConfigName)
}

// resolveBins picks the histogram resolution: the request's, else the variant's.
func resolveBins(settings models.Settings, v *config.Variant) (int, error) {
	bins := settings.Bins
	if bins <= 0 {
		bins = v.Bins
	}
	if bins <= 2 {
		return 0, &models.ConfigError{Param: "bins", Msg: fmt.Sprintf("at least 3 bins are required, got %d", bins)}
	}
	return bins, nil
}
