package security

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeDefaultPolicy(t *testing.T) {
	g := NewGuard("admin", 0)

	t.Run("no rules allows anyone", func(t *testing.T) {
		assert.True(t, g.Authorize("add_triple", "s", "p", "o", "guest"))
	})

	g.AddRule(AccessRule{Subject: "s", Predicate: "*", Object: "*", Roles: []string{"editor"}})

	t.Run("matching rule denies unlisted role", func(t *testing.T) {
		assert.False(t, g.Authorize("add_triple", "s", "p", "o", "guest"))
	})

	t.Run("matching rule allows listed role", func(t *testing.T) {
		assert.True(t, g.Authorize("add_triple", "s", "p", "o", "editor"))
	})

	t.Run("admin bypasses rules", func(t *testing.T) {
		assert.True(t, g.Authorize("add_triple", "s", "p", "o", "admin"))
	})

	t.Run("non-matching triple stays permissive", func(t *testing.T) {
		assert.True(t, g.Authorize("add_triple", "other", "p", "o", "guest"))
	})
}

func TestRuleMatching(t *testing.T) {
	tests := []struct {
		name  string
		rule  AccessRule
		s     string
		p     string
		o     string
		match bool
	}{
		{"exact", AccessRule{Subject: "s", Predicate: "p", Object: "o"}, "s", "p", "o", true},
		{"wildcard object", AccessRule{Subject: "s", Predicate: "p", Object: "*"}, "s", "p", "x", true},
		{"empty component acts as wildcard", AccessRule{Subject: "s"}, "s", "any", "any", true},
		{"subject mismatch", AccessRule{Subject: "s", Predicate: "*", Object: "*"}, "t", "p", "o", false},
		{"predicate mismatch", AccessRule{Subject: "*", Predicate: "p", Object: "*"}, "s", "q", "o", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, tt.rule.matches(tt.s, tt.p, tt.o))
		})
	}
}

func TestFirstMatchingRuleDecides(t *testing.T) {
	g := NewGuard("admin", 0)
	g.AddRule(AccessRule{Subject: "s", Roles: []string{"editor"}})
	g.AddRule(AccessRule{Subject: "s", Roles: []string{"guest"}})

	// The first rule matches and does not list guest; the second never runs.
	assert.False(t, g.Authorize("add_triple", "s", "p", "o", "guest"))
}

func TestAuditLog(t *testing.T) {
	g := NewGuard("admin", 0)
	g.AddRule(AccessRule{Subject: "s", Roles: []string{"editor"}})

	g.Authorize("add_triple", "s", "p", "o", "guest")
	g.Authorize("add_triple", "s", "p", "o", "editor")

	entries := g.Audit(0)
	require.Len(t, entries, 2)

	newest := entries[0]
	assert.True(t, newest.Allowed)
	assert.Equal(t, "editor", newest.Role)
	assert.Equal(t, "add_triple", newest.Operation)
	assert.NotEmpty(t, newest.ID)
	assert.False(t, newest.Timestamp.IsZero())

	assert.False(t, entries[1].Allowed)

	t.Run("limit", func(t *testing.T) {
		assert.Len(t, g.Audit(1), 1)
	})
}

func TestAuditCap(t *testing.T) {
	g := NewGuard("admin", 5)
	for i := 0; i < 12; i++ {
		g.Authorize("add_triple", fmt.Sprintf("s%d", i), "p", "o", "admin")
	}

	entries := g.Audit(0)
	require.Len(t, entries, 5)
	assert.Equal(t, "s11", entries[0].Subject, "newest retained")
	assert.Equal(t, "s7", entries[4].Subject, "oldest dropped")
}

func TestReset(t *testing.T) {
	g := NewGuard("admin", 0)
	g.AddRule(AccessRule{Subject: "s", Roles: []string{"editor"}})
	g.Authorize("add_triple", "s", "p", "o", "admin")

	g.Reset()
	assert.Empty(t, g.Rules())
	assert.Empty(t, g.Audit(0))
}
