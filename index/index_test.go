package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowgraph/kgstore/graph"
)

func triple(s, p, o string) graph.Triple {
	return graph.Triple{Subject: s, Predicate: p, Object: graph.NewIRI(o)}
}

func TestAddAndLookups(t *testing.T) {
	idx := New()
	idx.Add(triple("a", "type", "Agent"))
	idx.Add(triple("a", "status", "Active"))
	idx.Add(triple("b", "type", "Agent"))

	assert.True(t, idx.HasSubject("a"))
	assert.False(t, idx.HasSubject("c"))
	assert.True(t, idx.HasPredicate("type"))
	assert.False(t, idx.HasPredicate("name"))
	assert.True(t, idx.Has("a", "status"))
	assert.False(t, idx.Has("b", "status"))

	assert.Equal(t, 2, idx.Count("", "type"))
	assert.Equal(t, 1, idx.Count("a", "type"))
	assert.Equal(t, 0, idx.Count("c", "type"))

	assert.Len(t, idx.TriplesFor("a"), 2)
	assert.ElementsMatch(t, []string{"a", "b"}, idx.Subjects())
	assert.ElementsMatch(t, []string{"a", "b"}, idx.SubjectsWithObject("Agent"))
	assert.Equal(t, 2, idx.Len())
}

func TestRemove(t *testing.T) {
	idx := New()
	tr := triple("a", "type", "Agent")
	idx.Add(tr)
	idx.Add(triple("a", "status", "Active"))

	idx.Remove(tr)
	assert.False(t, idx.Has("a", "type"))
	assert.True(t, idx.Has("a", "status"))
	assert.False(t, idx.HasPredicate("type"))
	assert.Empty(t, idx.SubjectsWithObject("Agent"))

	// Removing an absent triple is a no-op.
	idx.Remove(tr)
	assert.True(t, idx.HasSubject("a"))
}

func TestRebuild(t *testing.T) {
	idx := New()
	idx.Add(triple("old", "p", "o"))

	idx.Rebuild([]graph.Triple{
		triple("x", "p", "o"),
		triple("y", "p", "o"),
	})

	assert.False(t, idx.HasSubject("old"))
	assert.True(t, idx.HasSubject("x"))
	assert.True(t, idx.HasSubject("y"))
	assert.Equal(t, 2, idx.Len())

	idx.Rebuild(nil)
	assert.Equal(t, 0, idx.Len())
}

func TestLiteralObjectKeys(t *testing.T) {
	idx := New()
	idx.Add(graph.Triple{Subject: "a", Predicate: "status", Object: graph.NewString("active")})

	require.ElementsMatch(t, []string{"a"}, idx.SubjectsWithObject("active"))
}
