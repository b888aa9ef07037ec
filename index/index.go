// Package index maintains a secondary lookup structure over the triple set
// for fast membership and neighbor checks. The index holds a redundant copy
// of backend state: the owning manager patches it incrementally on adds and
// rebuilds it in full after removals, so it is always consistent with the
// backend between mutations.
package index

import (
	"sync"

	"github.com/knowgraph/kgstore/graph"
)

// Index maps subjects, predicates and object tokens to the triples they
// participate in. Safe for concurrent use.
type Index struct {
	mu          sync.RWMutex
	bySubject   map[string][]graph.Triple
	byPredicate map[string][]graph.Triple
	byObject    map[string][]graph.Triple
}

// New creates an empty Index.
func New() *Index {
	idx := &Index{}
	idx.reset()
	return idx
}

func (idx *Index) reset() {
	idx.bySubject = make(map[string][]graph.Triple)
	idx.byPredicate = make(map[string][]graph.Triple)
	idx.byObject = make(map[string][]graph.Triple)
}

// objectKey renders the object position as a lookup token: the IRI for
// references, the lexical form for literals.
func objectKey(v graph.Value) string {
	return v.Text
}

// Add records one triple.
func (idx *Index) Add(t graph.Triple) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.addLocked(t)
}

func (idx *Index) addLocked(t graph.Triple) {
	idx.bySubject[t.Subject] = append(idx.bySubject[t.Subject], t)
	idx.byPredicate[t.Predicate] = append(idx.byPredicate[t.Predicate], t)
	key := objectKey(t.Object)
	idx.byObject[key] = append(idx.byObject[key], t)
}

// Remove deletes one triple. Removing a triple that is not present is a
// no-op.
func (idx *Index) Remove(t graph.Triple) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.bySubject[t.Subject] = without(idx.bySubject[t.Subject], t)
	if len(idx.bySubject[t.Subject]) == 0 {
		delete(idx.bySubject, t.Subject)
	}
	idx.byPredicate[t.Predicate] = without(idx.byPredicate[t.Predicate], t)
	if len(idx.byPredicate[t.Predicate]) == 0 {
		delete(idx.byPredicate, t.Predicate)
	}
	key := objectKey(t.Object)
	idx.byObject[key] = without(idx.byObject[key], t)
	if len(idx.byObject[key]) == 0 {
		delete(idx.byObject, key)
	}
}

func without(triples []graph.Triple, t graph.Triple) []graph.Triple {
	out := triples[:0]
	for _, cur := range triples {
		if !cur.Equal(t) {
			out = append(out, cur)
		}
	}
	return out
}

// Rebuild replaces the index contents with exactly the given triples.
func (idx *Index) Rebuild(triples []graph.Triple) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.reset()
	for _, t := range triples {
		idx.addLocked(t)
	}
}

// HasSubject reports whether any triple has the given subject.
func (idx *Index) HasSubject(subject string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.bySubject[subject]) > 0
}

// HasPredicate reports whether any triple has the given predicate.
func (idx *Index) HasPredicate(predicate string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.byPredicate[predicate]) > 0
}

// Has reports whether any triple has both the given subject and predicate.
func (idx *Index) Has(subject, predicate string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	for _, t := range idx.bySubject[subject] {
		if t.Predicate == predicate {
			return true
		}
	}
	return false
}

// Count returns the number of triples with the given subject and predicate.
// An empty subject counts across all subjects.
func (idx *Index) Count(subject, predicate string) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if subject == "" {
		return len(idx.byPredicate[predicate])
	}
	n := 0
	for _, t := range idx.bySubject[subject] {
		if t.Predicate == predicate {
			n++
		}
	}
	return n
}

// TriplesFor returns a copy of every triple with the given subject.
func (idx *Index) TriplesFor(subject string) []graph.Triple {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	triples := idx.bySubject[subject]
	out := make([]graph.Triple, len(triples))
	copy(out, triples)
	return out
}

// Subjects returns every distinct subject in the index.
func (idx *Index) Subjects() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]string, 0, len(idx.bySubject))
	for s := range idx.bySubject {
		out = append(out, s)
	}
	return out
}

// SubjectsWithObject returns every distinct subject of a triple whose object
// token equals the given value (IRI text or literal lexical form).
func (idx *Index) SubjectsWithObject(object string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, t := range idx.byObject[object] {
		if !seen[t.Subject] {
			seen[t.Subject] = true
			out = append(out, t.Subject)
		}
	}
	return out
}

// Len returns the number of distinct subjects in the index.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.bySubject)
}
