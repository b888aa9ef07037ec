// Package cache provides the query result cache: normalized query text maps
// to cached result rows with a time-to-live, and entries can be selectively
// evicted by subject/predicate token after a mutation.
//
// Two implementations are provided: Memory, an in-process map, and Redis,
// backed by go-redis for deployments that already run Redis. Both implement
// Cache.
package cache

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/knowgraph/kgstore/graph"
)

// Cache maps normalized query text to cached result rows.
//
// Invalidation is conservative by design: InvalidateTokens evicts every
// entry whose key mentions any token, plus entries shaped like a generic
// three-variable wildcard query, trading cache hits for correctness.
type Cache interface {
	// Get returns the cached rows for a normalized key and whether the
	// entry was present and unexpired.
	Get(ctx context.Context, key string) ([]graph.Row, bool, error)

	// Put stores rows under a normalized key with the given TTL.
	Put(ctx context.Context, key string, rows []graph.Row, ttl time.Duration) error

	// InvalidateTokens evicts entries referencing any of the tokens and
	// returns the number evicted.
	InvalidateTokens(ctx context.Context, tokens []string) (int, error)

	// Clear evicts every entry.
	Clear(ctx context.Context) error

	// Len returns the number of live entries.
	Len(ctx context.Context) (int, error)

	// Close releases any resources held by the cache.
	Close() error
}

// Normalize canonicalizes query text so that queries differing only in
// whitespace share one cache key.
func Normalize(query string) string {
	return strings.Join(strings.Fields(query), " ")
}

// wildcardRe matches the generic three-variable query shape (?s ?p ?o),
// which can observe any triple and therefore never survives a mutation.
var wildcardRe = regexp.MustCompile(`\?\w+\s+\?\w+\s+\?\w+`)

// TokensFor expands a subject and predicate into the token set used for
// selective invalidation: the full URIs plus each one's local fragment.
func TokensFor(subject, predicate string) []string {
	var tokens []string
	for _, uri := range []string{subject, predicate} {
		if uri == "" {
			continue
		}
		tokens = append(tokens, uri)
		if frag := LocalFragment(uri); frag != "" && frag != uri {
			tokens = append(tokens, frag)
		}
	}
	return tokens
}

// LocalFragment returns the part of a URI after '#', or after the last '/'
// when there is no fragment separator.
func LocalFragment(uri string) string {
	if i := strings.LastIndexByte(uri, '#'); i >= 0 {
		return uri[i+1:]
	}
	if i := strings.LastIndexByte(uri, '/'); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

// staleKey reports whether a cache key should be evicted for the given
// tokens. Full URIs match anywhere in the key; bare local fragments only
// match as whole words, so short fragments do not evict every entry that
// happens to contain their letters.
func staleKey(key string, tokens []string) bool {
	if wildcardRe.MatchString(key) {
		return true
	}
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if strings.ContainsAny(tok, ":/#") {
			if strings.Contains(key, tok) {
				return true
			}
			continue
		}
		if fragmentRe(tok).MatchString(key) {
			return true
		}
	}
	return false
}

func fragmentRe(frag string) *regexp.Regexp {
	return regexp.MustCompile(`(^|\W)` + regexp.QuoteMeta(frag) + `(\W|$)`)
}
