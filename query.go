package kgstore

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/knowgraph/kgstore/cache"
	"github.com/knowgraph/kgstore/graph"
)

// Query executes a SPARQL-syntax query, serving from the cache when a
// whitespace-normalized equivalent was answered within the TTL. Results are
// converted to typed values: XSD integer, float, and boolean literals become
// native values; everything else stays text. Queries take no manager lock
// and may run concurrently with mutations.
func (m *Manager) Query(ctx context.Context, queryText string) ([]graph.Row, error) {
	const op = "Manager.Query"

	if !m.ready.Load() {
		return nil, NewInternalError(op, ErrNotInitialized)
	}

	key := cache.Normalize(queryText)

	ctx, span := m.startSpan(ctx, "kgstore.query")
	defer endSpan(span)

	rows, ok, err := m.cache.Get(ctx, key)
	if err != nil {
		m.logger.Warn("cache lookup failed", "error", err)
	} else if ok {
		m.hits.Add(1)
		m.metrics.recordCacheHit(ctx)
		if span != nil {
			span.SetAttributes(attribute.Bool("cache_hit", true), attribute.Int("rows", len(rows)))
		}
		return rows, nil
	}

	m.misses.Add(1)
	m.metrics.recordCacheMiss(ctx)

	solutions, err := m.backend.Select(ctx, key)
	if err != nil {
		return nil, NewValidationError(op, err).WithContext(map[string]any{"query": key})
	}

	rows = make([]graph.Row, 0, len(solutions))
	for _, solution := range solutions {
		row := make(graph.Row, len(solution))
		for name, binding := range solution {
			row[name] = bindingValue(binding)
		}
		rows = append(rows, row)
	}

	if err := m.cache.Put(ctx, key, rows, m.ttl); err != nil {
		m.logger.Warn("cache store failed", "error", err)
	}
	if span != nil {
		span.SetAttributes(attribute.Bool("cache_hit", false), attribute.Int("rows", len(rows)))
	}
	return rows, nil
}

// bindingValue converts a wire binding into a typed value by inspecting its
// kind tag and datatype IRI.
func bindingValue(b graph.Binding) graph.Value {
	if b.IsIRI {
		return graph.NewIRI(b.Text)
	}
	return graph.FromLiteral(b.Text, b.Datatype)
}
