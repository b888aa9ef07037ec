package memgraph

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowgraph/kgstore/graph"
)

const ex = "http://example.org/"

func exIRI(local string) string { return ex + local }

func testStore(t *testing.T) *Store {
	t.Helper()
	return New(WithPrefix("ex", ex))
}

func TestInsertAndDelete(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	require.NoError(t, s.Insert(ctx, graph.Triple{Subject: exIRI("a"), Predicate: exIRI("type"), Object: graph.NewIRI(exIRI("Agent"))}))
	require.NoError(t, s.Insert(ctx, graph.Triple{Subject: exIRI("a"), Predicate: exIRI("status"), Object: graph.NewString("active")}))
	require.NoError(t, s.Insert(ctx, graph.Triple{Subject: exIRI("b"), Predicate: exIRI("type"), Object: graph.NewIRI(exIRI("Agent"))}))

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	t.Run("duplicate insert collapses", func(t *testing.T) {
		require.NoError(t, s.Insert(ctx, graph.Triple{Subject: exIRI("a"), Predicate: exIRI("status"), Object: graph.NewString("active")}))
		n, err := s.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("delete exact", func(t *testing.T) {
		obj := graph.NewString("active")
		removed, err := s.Delete(ctx, exIRI("a"), exIRI("status"), &obj)
		require.NoError(t, err)
		require.Len(t, removed, 1)
		assert.Equal(t, exIRI("status"), removed[0].Predicate)
	})

	t.Run("delete by subject wildcard", func(t *testing.T) {
		removed, err := s.Delete(ctx, exIRI("a"), "", nil)
		require.NoError(t, err)
		require.Len(t, removed, 1)

		n, err := s.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("delete nothing matches", func(t *testing.T) {
		removed, err := s.Delete(ctx, exIRI("missing"), "", nil)
		require.NoError(t, err)
		assert.Empty(t, removed)
	})
}

func TestSelect(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	seed := []graph.Triple{
		{Subject: exIRI("a"), Predicate: exIRI("type"), Object: graph.NewIRI(exIRI("Agent"))},
		{Subject: exIRI("b"), Predicate: exIRI("type"), Object: graph.NewIRI(exIRI("Agent"))},
		{Subject: exIRI("c"), Predicate: exIRI("type"), Object: graph.NewIRI(exIRI("Task"))},
		{Subject: exIRI("a"), Predicate: exIRI("priority"), Object: graph.NewInteger(5)},
		{Subject: exIRI("a"), Predicate: exIRI("status"), Object: graph.NewString("active")},
	}
	for _, tr := range seed {
		require.NoError(t, s.Insert(ctx, tr))
	}

	t.Run("single pattern with prefixed names", func(t *testing.T) {
		rows, err := s.Select(ctx, "SELECT ?s WHERE { ?s ex:type ex:Agent }")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.True(t, rows[0]["s"].IsIRI)
		assert.Equal(t, exIRI("a"), rows[0]["s"].Text)
		assert.Equal(t, exIRI("b"), rows[1]["s"].Text)
	})

	t.Run("full IRI terms", func(t *testing.T) {
		rows, err := s.Select(ctx, "SELECT ?s WHERE { ?s <http://example.org/type> <http://example.org/Task> }")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, exIRI("c"), rows[0]["s"].Text)
	})

	t.Run("join across patterns", func(t *testing.T) {
		rows, err := s.Select(ctx, "SELECT ?s ?o WHERE { ?s ex:type ex:Agent . ?s ex:status ?o }")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, exIRI("a"), rows[0]["s"].Text)
		assert.Equal(t, "active", rows[0]["o"].Text)
		assert.False(t, rows[0]["o"].IsIRI)
	})

	t.Run("typed literal binding carries datatype", func(t *testing.T) {
		rows, err := s.Select(ctx, "SELECT ?p WHERE { ex:a ex:priority ?p }")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "5", rows[0]["p"].Text)
		assert.Equal(t, graph.XSDInteger, rows[0]["p"].Datatype)
	})

	t.Run("literal term in pattern", func(t *testing.T) {
		rows, err := s.Select(ctx, `SELECT ?s WHERE { ?s ex:status "active" }`)
		require.NoError(t, err)
		require.Len(t, rows, 1)
	})

	t.Run("integer term in pattern", func(t *testing.T) {
		rows, err := s.Select(ctx, "SELECT ?s WHERE { ?s ex:priority 5 }")
		require.NoError(t, err)
		require.Len(t, rows, 1)
	})

	t.Run("float term keeps its decimal point", func(t *testing.T) {
		require.NoError(t, s.Insert(ctx, graph.Triple{Subject: exIRI("a"), Predicate: exIRI("score"), Object: graph.NewFloat(0.75)}))
		rows, err := s.Select(ctx, "SELECT ?s WHERE { ?s ex:score 0.75 . ?s ex:type ex:Agent }")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		_, err = s.Delete(ctx, exIRI("a"), exIRI("score"), nil)
		require.NoError(t, err)
	})

	t.Run("count", func(t *testing.T) {
		rows, err := s.Select(ctx, "SELECT (COUNT(?s) AS ?n) WHERE { ?s ex:type ex:Agent }")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "2", rows[0]["n"].Text)
		assert.Equal(t, graph.XSDInteger, rows[0]["n"].Datatype)
	})

	t.Run("star projection", func(t *testing.T) {
		rows, err := s.Select(ctx, "SELECT * WHERE { ?s ex:type ?t }")
		require.NoError(t, err)
		assert.Len(t, rows, 3)
	})

	t.Run("distinct", func(t *testing.T) {
		rows, err := s.Select(ctx, "SELECT DISTINCT ?t WHERE { ?s ex:type ?t }")
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("limit", func(t *testing.T) {
		rows, err := s.Select(ctx, "SELECT ?s WHERE { ?s ex:type ?t } LIMIT 2")
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("inline prefix declaration", func(t *testing.T) {
		rows, err := s.Select(ctx, "PREFIX e: <http://example.org/> SELECT ?s WHERE { ?s e:type e:Task }")
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("no matches", func(t *testing.T) {
		rows, err := s.Select(ctx, "SELECT ?s WHERE { ?s ex:type ex:Missing }")
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("bad query", func(t *testing.T) {
		_, err := s.Select(ctx, "DESCRIBE <http://example.org/a>")
		require.ErrorIs(t, err, graph.ErrBadQuery)
	})

	t.Run("unknown prefix", func(t *testing.T) {
		_, err := s.Select(ctx, "SELECT ?s WHERE { ?s nope:type ?t }")
		require.ErrorIs(t, err, graph.ErrBadQuery)
	})

	t.Run("pattern arity", func(t *testing.T) {
		_, err := s.Select(ctx, "SELECT ?s WHERE { ?s ex:type }")
		require.ErrorIs(t, err, graph.ErrBadQuery)
	})
}

func TestSerializeRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	seed := []graph.Triple{
		{Subject: exIRI("a"), Predicate: exIRI("type"), Object: graph.NewIRI(exIRI("Agent"))},
		{Subject: exIRI("a"), Predicate: exIRI("name"), Object: graph.NewString(`says "hi"` + "\nbye")},
		{Subject: exIRI("a"), Predicate: exIRI("priority"), Object: graph.NewInteger(5)},
		{Subject: exIRI("a"), Predicate: exIRI("score"), Object: graph.NewFloat(0.75)},
		{Subject: exIRI("a"), Predicate: exIRI("enabled"), Object: graph.NewBoolean(true)},
	}
	for _, tr := range seed {
		require.NoError(t, s.Insert(ctx, tr))
	}

	data, err := s.Serialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, strings.Count(data, "\n"))

	other := New()
	require.NoError(t, other.Load(ctx, data))

	data2, err := other.Serialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, data, data2, "serialization must be canonical")

	triples, err := other.Triples(ctx)
	require.NoError(t, err)
	require.Len(t, triples, 5)

	for _, want := range seed {
		found := false
		for _, got := range triples {
			if want.Equal(got) {
				found = true
				break
			}
		}
		assert.True(t, found, "missing triple %v", want)
	}
}

func TestSerializeStableAcrossInsertionOrder(t *testing.T) {
	ctx := context.Background()

	a := testStore(t)
	b := testStore(t)
	t1 := graph.Triple{Subject: exIRI("x"), Predicate: exIRI("p"), Object: graph.NewString("1")}
	t2 := graph.Triple{Subject: exIRI("y"), Predicate: exIRI("p"), Object: graph.NewString("2")}

	require.NoError(t, a.Insert(ctx, t1))
	require.NoError(t, a.Insert(ctx, t2))
	require.NoError(t, b.Insert(ctx, t2))
	require.NoError(t, b.Insert(ctx, t1))

	sa, err := a.Serialize(ctx)
	require.NoError(t, err)
	sb, err := b.Serialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, sa, sb)
}

func TestLoadBadSyntax(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	err := s.Load(ctx, "<http://example.org/a> <http://example.org/p> garbage .")
	require.ErrorIs(t, err, graph.ErrBadSyntax)

	err = s.Load(ctx, "not a triple at all")
	require.ErrorIs(t, err, graph.ErrBadSyntax)
}

func TestLoadSkipsBlankAndComments(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	data := "# comment\n\n<http://example.org/a> <http://example.org/p> \"v\" .\n"
	require.NoError(t, s.Load(ctx, data))

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
