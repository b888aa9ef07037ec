package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueConstructors(t *testing.T) {
	t.Run("iri", func(t *testing.T) {
		v := NewIRI("http://example.org/a")
		assert.Equal(t, KindIRI, v.Kind)
		assert.True(t, v.IsReference())
		assert.Equal(t, "http://example.org/a", v.Native())
		assert.Equal(t, "<http://example.org/a>", v.String())
	})

	t.Run("string", func(t *testing.T) {
		v := NewString("active")
		assert.Equal(t, KindString, v.Kind)
		assert.False(t, v.IsReference())
		assert.Equal(t, "active", v.Native())
	})

	t.Run("integer", func(t *testing.T) {
		v := NewInteger(42)
		assert.Equal(t, KindInteger, v.Kind)
		assert.Equal(t, "42", v.Text)
		assert.Equal(t, int64(42), v.Native())
		assert.Equal(t, XSDInteger, v.Datatype())
	})

	t.Run("float", func(t *testing.T) {
		v := NewFloat(3.5)
		assert.Equal(t, KindFloat, v.Kind)
		assert.Equal(t, 3.5, v.Native())
	})

	t.Run("boolean", func(t *testing.T) {
		v := NewBoolean(true)
		assert.Equal(t, KindBoolean, v.Kind)
		assert.Equal(t, true, v.Native())
		assert.Equal(t, XSDBoolean, v.Datatype())
	})
}

func TestFromLiteral(t *testing.T) {
	tests := []struct {
		name     string
		lexical  string
		datatype string
		want     Value
	}{
		{"integer", "7", XSDInteger, NewInteger(7)},
		{"float", "2.5", XSDFloat, Value{Kind: KindFloat, Text: "2.5", Float: 2.5}},
		{"double", "2.5", XSDDouble, Value{Kind: KindFloat, Text: "2.5", Float: 2.5}},
		{"boolean", "true", XSDBoolean, NewBoolean(true)},
		{"unknown datatype stays text", "2024-01-01", XSDDate, NewString("2024-01-01")},
		{"malformed integer stays text", "seven", XSDInteger, NewString("seven")},
		{"no datatype", "plain", "", NewString("plain")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromLiteral(tt.lexical, tt.datatype)
			assert.True(t, tt.want.Equal(got), "got %+v", got)
		})
	}
}

func TestValueEqual(t *testing.T) {
	require.True(t, NewInteger(1).Equal(NewInteger(1)))
	require.False(t, NewInteger(1).Equal(NewInteger(2)))
	require.False(t, NewInteger(1).Equal(NewString("1")))
	require.True(t, NewIRI("a").Equal(NewIRI("a")))
	require.False(t, NewIRI("a").Equal(NewString("a")))
}

func TestTripleEqual(t *testing.T) {
	a := Triple{Subject: "s", Predicate: "p", Object: NewString("o")}
	b := Triple{Subject: "s", Predicate: "p", Object: NewString("o")}
	c := Triple{Subject: "s", Predicate: "p", Object: NewString("x")}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}
