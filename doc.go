// Package kgstore provides a mutable, queryable triple fact store with
// versioning, validation, caching, and access control.
//
// Facts are (subject, predicate, object) triples where subjects and
// predicates are URIs and objects are typed values: references, strings,
// integers, floats, or booleans. The store enforces single-value-per-
// predicate semantics: adding a triple replaces any existing triple sharing
// its subject and predicate.
//
// # Core Components
//
// The Manager facade coordinates the store's subsystems:
//
//   - graph: the backend interface and typed value model; graph/memgraph is
//     the in-memory reference backend with a SPARQL-subset query engine
//   - cache: TTL query-result caching with selective, token-based
//     invalidation (in-memory or Redis)
//   - index: secondary lookups by subject, predicate, and object
//   - version: append-only snapshot history with branches, diff, rollback,
//     cleanup, and export/import
//   - validate: a priority-ordered rule engine with seven rule kinds,
//     including CEL-expression custom rules
//   - security: per-triple access rules with an audit log
//
// # Concurrency
//
// The store is single-writer: one mutation is in flight at a time, guarded
// by an exclusive lock. Queries never take that lock and may run
// concurrently with each other and with mutations, observing state from
// either side of an in-flight commit.
//
// # Getting Started
//
//	import "github.com/knowgraph/kgstore"
//
//	store, err := kgstore.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//	ctx := context.Background()
//	if err := store.Initialize(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer store.Shutdown(ctx)
//
//	err = store.AddTriple(ctx,
//		"http://example.org/a",
//		"http://example.org/status",
//		graph.NewString("active"),
//		"admin")
//
//	rows, err := store.Query(ctx,
//		"SELECT ?s WHERE { ?s <http://example.org/status> \"active\" }")
//
// Every mutation appends a full-graph snapshot to the version history, so
// any earlier state can be inspected, diffed, branched from, or restored.
package kgstore
