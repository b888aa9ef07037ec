package kgstore

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// storeMetrics holds the OpenTelemetry metric instruments for the manager.
// These are created once during construction and reused for all operations.
type storeMetrics struct {
	// cacheHits increments for each query answered from the cache
	cacheHits metric.Int64Counter

	// cacheMisses increments for each query executed against the backend
	cacheMisses metric.Int64Counter

	// mutations increments for each committed add or remove
	mutations metric.Int64Counter

	// validations increments for each validation run
	validations metric.Int64Counter

	// denials increments for each rejected mutation
	denials metric.Int64Counter
}

// newStoreMetrics creates all metric instruments. Returns nil when no meter
// is configured; every record method tolerates a nil receiver.
func newStoreMetrics(meter metric.Meter) (*storeMetrics, error) {
	if meter == nil {
		return nil, nil
	}

	m := &storeMetrics{}
	var err error

	m.cacheHits, err = meter.Int64Counter(
		"kgstore.cache.hits",
		metric.WithDescription("Number of queries answered from the cache"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cache hit counter: %w", err)
	}

	m.cacheMisses, err = meter.Int64Counter(
		"kgstore.cache.misses",
		metric.WithDescription("Number of queries executed against the backend"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cache miss counter: %w", err)
	}

	m.mutations, err = meter.Int64Counter(
		"kgstore.mutations",
		metric.WithDescription("Number of committed graph mutations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create mutation counter: %w", err)
	}

	m.validations, err = meter.Int64Counter(
		"kgstore.validations",
		metric.WithDescription("Number of validation runs"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create validation counter: %w", err)
	}

	m.denials, err = meter.Int64Counter(
		"kgstore.denials",
		metric.WithDescription("Number of mutations rejected by access control"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create denial counter: %w", err)
	}

	return m, nil
}

func (m *storeMetrics) recordCacheHit(ctx context.Context) {
	if m == nil {
		return
	}
	m.cacheHits.Add(ctx, 1)
}

func (m *storeMetrics) recordCacheMiss(ctx context.Context) {
	if m == nil {
		return
	}
	m.cacheMisses.Add(ctx, 1)
}

func (m *storeMetrics) recordMutation(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

func (m *storeMetrics) recordValidation(ctx context.Context) {
	if m == nil {
		return
	}
	m.validations.Add(ctx, 1)
}

func (m *storeMetrics) recordDenial(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.denials.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}
