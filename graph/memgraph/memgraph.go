// Package memgraph provides the reference in-memory implementation of
// graph.Backend: a mutex-guarded triple set with a SPARQL-subset query
// matcher and a canonical line-oriented serialization format.
package memgraph

import (
	"context"
	"sort"
	"sync"

	"github.com/knowgraph/kgstore/graph"
)

// Store is an in-memory triple store. The zero value is not usable; use New.
//
// Store is safe for concurrent use. Reads take a shared lock and never block
// other reads; mutations take the exclusive lock.
type Store struct {
	mu       sync.RWMutex
	triples  []graph.Triple
	prefixes map[string]string
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix registers a namespace prefix usable in queries, e.g.
// WithPrefix("ex", "http://example.org/"). The xsd, rdf and rdfs prefixes
// are always available.
func WithPrefix(prefix, iri string) Option {
	return func(s *Store) {
		s.prefixes[prefix] = iri
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		prefixes: map[string]string{
			"xsd":  "http://www.w3.org/2001/XMLSchema#",
			"rdf":  "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
			"rdfs": "http://www.w3.org/2000/01/rdf-schema#",
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert adds a triple. Duplicate (subject, predicate) pairs are legal here;
// exact duplicate triples are collapsed.
func (s *Store) Insert(ctx context.Context, t graph.Triple) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.triples {
		if existing.Equal(t) {
			return nil
		}
	}
	s.triples = append(s.triples, t)
	return nil
}

// Delete removes triples matching the given components and returns them.
// Empty subject or predicate and a nil object act as wildcards.
func (s *Store) Delete(ctx context.Context, subject, predicate string, object *graph.Value) ([]graph.Triple, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []graph.Triple
	var removed []graph.Triple
	for _, t := range s.triples {
		if matchesComponents(t, subject, predicate, object) {
			removed = append(removed, t)
			continue
		}
		kept = append(kept, t)
	}
	s.triples = kept
	return removed, nil
}

func matchesComponents(t graph.Triple, subject, predicate string, object *graph.Value) bool {
	if subject != "" && t.Subject != subject {
		return false
	}
	if predicate != "" && t.Predicate != predicate {
		return false
	}
	if object != nil && !t.Object.Equal(*object) {
		return false
	}
	return true
}

// Triples returns a copy of every triple in the store.
func (s *Store) Triples(ctx context.Context) ([]graph.Triple, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]graph.Triple, len(s.triples))
	copy(out, s.triples)
	return out, nil
}

// Len returns the number of triples in the store.
func (s *Store) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.triples), nil
}

// Clear removes every triple.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.triples = nil
	return nil
}

// Serialize renders the graph as sorted canonical lines, one per triple.
func (s *Store) Serialize(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := make([]string, 0, len(s.triples))
	for _, t := range s.triples {
		lines = append(lines, formatTriple(t))
	}
	sort.Strings(lines)

	out := ""
	for _, line := range lines {
		out += line + "\n"
	}
	return out, nil
}

// Load replaces the store contents with triples parsed from data.
func (s *Store) Load(ctx context.Context, data string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	triples, err := parseTriples(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.triples = triples
	return nil
}

// snapshotLocked returns the triple slice and a copy of the prefix table
// under the read lock, for use by the query matcher.
func (s *Store) snapshot() ([]graph.Triple, map[string]string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	triples := make([]graph.Triple, len(s.triples))
	copy(triples, s.triples)
	prefixes := make(map[string]string, len(s.prefixes))
	for k, v := range s.prefixes {
		prefixes[k] = v
	}
	return triples, prefixes
}

var _ graph.Backend = (*Store)(nil)
