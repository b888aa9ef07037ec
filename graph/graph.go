package graph

import (
	"context"
	"errors"
)

// Common errors returned by graph backends.
var (
	// ErrBadQuery is returned when a query cannot be parsed or refers to
	// constructs the backend does not support.
	ErrBadQuery = errors.New("graph: bad query")

	// ErrBadSyntax is returned when serialized graph data cannot be parsed.
	ErrBadSyntax = errors.New("graph: bad syntax")
)

// Triple is an atomic (subject, predicate, object) fact. Subject and
// predicate are always references; the object may be a reference or a
// typed literal.
type Triple struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    Value  `json:"object"`
}

// Equal reports whether two triples are identical.
func (t Triple) Equal(other Triple) bool {
	return t.Subject == other.Subject &&
		t.Predicate == other.Predicate &&
		t.Object.Equal(other.Object)
}

// Binding is a wire-level query binding value. Backends tag each bound value
// as either a reference or a literal with an optional datatype IRI; the
// caller is responsible for mapping datatypes to native types.
type Binding struct {
	IsIRI    bool   `json:"is_iri"`
	Text     string `json:"text"`
	Datatype string `json:"datatype,omitempty"`
}

// Solution is one variable-binding row produced by a backend query.
type Solution map[string]Binding

// Row is a fully converted result row: variable name to typed value.
type Row map[string]Value

// Backend stores the authoritative triple set and executes pattern queries.
//
// Implementations must be safe for concurrent use: the owning manager
// serializes mutations but does not hold its write lock across reads, so
// Select may run concurrently with Insert or Delete.
type Backend interface {
	// Insert adds a triple to the store. Duplicate (subject, predicate)
	// pairs are legal at this layer; single-value semantics are enforced
	// by the caller.
	Insert(ctx context.Context, t Triple) error

	// Delete removes triples matching the given components and returns the
	// removed triples. Empty subject or predicate and a nil object act as
	// wildcards.
	Delete(ctx context.Context, subject, predicate string, object *Value) ([]Triple, error)

	// Select executes a SPARQL-syntax query and returns the solution rows
	// in a deterministic order. Returns ErrBadQuery for unparseable or
	// unsupported queries.
	Select(ctx context.Context, query string) ([]Solution, error)

	// Triples returns a copy of every triple currently in the store.
	Triples(ctx context.Context) ([]Triple, error)

	// Len returns the number of triples in the store.
	Len(ctx context.Context) (int, error)

	// Clear removes every triple from the store.
	Clear(ctx context.Context) error

	// Serialize renders the full graph as canonical serialized-triple
	// lines, one triple per line, sorted. The output is stable: two graphs
	// with the same triples serialize to identical text.
	Serialize(ctx context.Context) (string, error)

	// Load replaces the store contents with the triples parsed from data,
	// which must be in the format produced by Serialize. Returns
	// ErrBadSyntax if the data cannot be parsed.
	Load(ctx context.Context, data string) error
}
