// Package graph defines the storage contract for the knowledge graph: the
// Triple data model, kind-tagged values, and the Backend interface that
// stores triples and executes pattern queries.
//
// The package deliberately contains no storage implementation. The reference
// in-memory backend lives in graph/memgraph; alternative backends only need
// to satisfy Backend.
//
// Values are kind-tagged rather than interface-typed so that rows can be
// serialized for caching without type registration:
//
//	v := graph.NewInteger(42)
//	v.Kind       // graph.KindInteger
//	v.Native()   // int64(42)
package graph
