package kgstore

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/knowgraph/kgstore/cache"
	"github.com/knowgraph/kgstore/graph"
)

// Option configures the Manager.
type Option func(*managerConfig)

// managerConfig holds construction-time settings for a Manager instance.
type managerConfig struct {
	configPath string
	config     *Config
	logger     *slog.Logger
	tracer     trace.Tracer
	meter      metric.Meter
	backend    graph.Backend
	cache      cache.Cache
	clock      func() time.Time
}

// WithConfigFile sets the YAML configuration file path for the manager.
// The file is loaded and validated by New.
func WithConfigFile(path string) Option {
	return func(c *managerConfig) {
		c.configPath = path
	}
}

// WithConfig sets an already-built configuration, bypassing file loading.
// Defaults are still applied to omitted fields.
func WithConfig(cfg *Config) Option {
	return func(c *managerConfig) {
		c.config = cfg
	}
}

// WithLogger sets a custom logger for the manager.
// If not provided, a default logger will be created.
func WithLogger(logger *slog.Logger) Option {
	return func(c *managerConfig) {
		c.logger = logger
	}
}

// WithTracer sets an OpenTelemetry tracer for distributed tracing.
// This enables observability across the mutation and query paths.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *managerConfig) {
		c.tracer = tracer
	}
}

// WithMeter sets an OpenTelemetry meter used to record cache, mutation,
// and validation counters.
func WithMeter(meter metric.Meter) Option {
	return func(c *managerConfig) {
		c.meter = meter
	}
}

// WithBackend replaces the default in-memory graph backend.
func WithBackend(backend graph.Backend) Option {
	return func(c *managerConfig) {
		c.backend = backend
	}
}

// WithCache replaces the cache selected by the configuration. Useful when
// the caller constructs its own cache.Redis with non-default options.
func WithCache(qc cache.Cache) Option {
	return func(c *managerConfig) {
		c.cache = qc
	}
}

// WithClock overrides the time source used for entity timestamps and
// version metadata. Intended for tests that need deterministic time.
func WithClock(clock func() time.Time) Option {
	return func(c *managerConfig) {
		c.clock = clock
	}
}
