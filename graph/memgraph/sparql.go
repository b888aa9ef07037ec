package memgraph

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/knowgraph/kgstore/graph"
)

// Select executes a SPARQL-subset query. Supported shape:
//
//	[PREFIX p: <iri> ...]
//	SELECT [DISTINCT] ?a ?b | * | (COUNT(?v) AS ?alias)
//	WHERE { pattern . pattern . ... }
//	[LIMIT n]
//
// where each pattern is three terms: a variable (?x), an IRI (<...> or
// prefix:local), or a literal ("text", optionally ^^xsd:type, a bare number,
// or true/false). Solutions are produced in a deterministic order that
// follows triple insertion order.
func (s *Store) Select(ctx context.Context, query string) ([]graph.Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	triples, prefixes := s.snapshot()

	q, err := parseQuery(query, prefixes)
	if err != nil {
		return nil, err
	}

	var rows []map[string]graph.Value
	matchPatterns(triples, q.patterns, map[string]graph.Value{}, &rows)

	if q.count {
		n := len(rows)
		return []graph.Solution{{
			q.countAlias: {Text: strconv.Itoa(n), Datatype: graph.XSDInteger},
		}}, nil
	}

	solutions := make([]graph.Solution, 0, len(rows))
	seen := map[string]bool{}
	for _, row := range rows {
		sol := graph.Solution{}
		for _, v := range q.vars {
			val, ok := row[v]
			if !ok {
				continue
			}
			sol[v] = toBinding(val)
		}
		if q.distinct {
			key := solutionKey(sol, q.vars)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		solutions = append(solutions, sol)
		if q.limit > 0 && len(solutions) >= q.limit {
			break
		}
	}
	return solutions, nil
}

func toBinding(v graph.Value) graph.Binding {
	if v.Kind == graph.KindIRI {
		return graph.Binding{IsIRI: true, Text: v.Text}
	}
	return graph.Binding{Text: v.Text, Datatype: v.Datatype()}
}

func solutionKey(sol graph.Solution, vars []string) string {
	var b strings.Builder
	for _, v := range vars {
		bind := sol[v]
		fmt.Fprintf(&b, "%t|%s|%s;", bind.IsIRI, bind.Text, bind.Datatype)
	}
	return b.String()
}

// term is one position of a triple pattern: either a variable or a bound
// value.
type term struct {
	isVar bool
	name  string
	value graph.Value
}

type parsedQuery struct {
	vars       []string
	distinct   bool
	count      bool
	countAlias string
	patterns   [][3]term
	limit      int
}

var (
	prefixRe = regexp.MustCompile(`(?i)\bPREFIX\s+([A-Za-z][\w-]*):\s*<([^>]*)>`)
	selectRe = regexp.MustCompile(`(?is)\bSELECT\b(.*?)\bWHERE\b\s*\{(.*)\}(.*)$`)
	countRe  = regexp.MustCompile(`(?i)^\(\s*COUNT\s*\(\s*(\*|\?[\w]+)\s*\)\s+AS\s+\?([\w]+)\s*\)$`)
	limitRe  = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)`)
)

func parseQuery(query string, prefixes map[string]string) (*parsedQuery, error) {
	for _, m := range prefixRe.FindAllStringSubmatch(query, -1) {
		prefixes[m[1]] = m[2]
	}
	stripped := prefixRe.ReplaceAllString(query, "")

	m := selectRe.FindStringSubmatch(stripped)
	if m == nil {
		return nil, fmt.Errorf("%w: expected SELECT ... WHERE { ... }", graph.ErrBadQuery)
	}

	q := &parsedQuery{}

	projection := strings.TrimSpace(m[1])
	if strings.HasPrefix(strings.ToUpper(projection), "DISTINCT") {
		q.distinct = true
		projection = strings.TrimSpace(projection[len("DISTINCT"):])
	}

	if cm := countRe.FindStringSubmatch(projection); cm != nil {
		q.count = true
		q.countAlias = cm[2]
	} else if projection == "*" {
		// All variables; resolved after pattern parsing.
	} else {
		for _, f := range strings.Fields(projection) {
			if !strings.HasPrefix(f, "?") {
				return nil, fmt.Errorf("%w: bad projection term %q", graph.ErrBadQuery, f)
			}
			q.vars = append(q.vars, f[1:])
		}
		if len(q.vars) == 0 {
			return nil, fmt.Errorf("%w: empty projection", graph.ErrBadQuery)
		}
	}

	patterns, err := parsePatterns(m[2], prefixes)
	if err != nil {
		return nil, err
	}
	q.patterns = patterns

	if projection == "*" {
		seen := map[string]bool{}
		for _, p := range patterns {
			for _, t := range p {
				if t.isVar && !seen[t.name] {
					seen[t.name] = true
					q.vars = append(q.vars, t.name)
				}
			}
		}
	}

	if lm := limitRe.FindStringSubmatch(m[3]); lm != nil {
		q.limit, _ = strconv.Atoi(lm[1])
	}

	return q, nil
}

func parsePatterns(body string, prefixes map[string]string) ([][3]term, error) {
	var patterns [][3]term
	for _, clause := range splitClauses(body) {
		tokens, err := tokenizeClause(clause)
		if err != nil {
			return nil, err
		}
		if len(tokens) == 0 {
			continue
		}
		if len(tokens) != 3 {
			return nil, fmt.Errorf("%w: pattern %q needs 3 terms, got %d", graph.ErrBadQuery, clause, len(tokens))
		}
		var p [3]term
		for i, tok := range tokens {
			t, err := parseTerm(tok, prefixes)
			if err != nil {
				return nil, err
			}
			p[i] = t
		}
		patterns = append(patterns, p)
	}
	if len(patterns) == 0 {
		return nil, fmt.Errorf("%w: empty WHERE clause", graph.ErrBadQuery)
	}
	return patterns, nil
}

// splitClauses splits a WHERE body on '.' separators, ignoring dots inside
// quoted literals, IRIs and numeric tokens (a separator dot only follows
// whitespace, '>' or '"').
func splitClauses(body string) []string {
	var clauses []string
	var cur strings.Builder
	inQuote, inIRI, escaped := false, false, false
	prev := ' '

	for _, r := range body {
		switch {
		case escaped:
			escaped = false
		case inQuote:
			if r == '\\' {
				escaped = true
			} else if r == '"' {
				inQuote = false
			}
		case inIRI:
			if r == '>' {
				inIRI = false
			}
		case r == '"':
			inQuote = true
		case r == '<':
			inIRI = true
		case r == '.' && (prev == ' ' || prev == '\t' || prev == '\n' || prev == '\r' || prev == '>' || prev == '"'):
			clauses = append(clauses, cur.String())
			cur.Reset()
			prev = ' '
			continue
		}
		prev = r
		cur.WriteRune(r)
	}
	clauses = append(clauses, cur.String())
	return clauses
}

// tokenizeClause splits one triple pattern into whitespace-separated terms,
// keeping quoted literals (with optional datatype suffix) intact.
func tokenizeClause(clause string) ([]string, error) {
	var tokens []string
	s := strings.TrimSpace(clause)
	for s != "" {
		s = strings.TrimLeft(s, " \t\r\n")
		if s == "" {
			break
		}
		switch s[0] {
		case '<':
			end := strings.IndexByte(s, '>')
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated IRI in %q", graph.ErrBadQuery, clause)
			}
			tokens = append(tokens, s[:end+1])
			s = s[end+1:]
		case '"':
			end := -1
			escaped := false
			for i := 1; i < len(s); i++ {
				if escaped {
					escaped = false
					continue
				}
				if s[i] == '\\' {
					escaped = true
				} else if s[i] == '"' {
					end = i
					break
				}
			}
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated literal in %q", graph.ErrBadQuery, clause)
			}
			tok := s[:end+1]
			s = s[end+1:]
			if strings.HasPrefix(s, "^^") {
				dtEnd := strings.IndexAny(s, " \t\r\n")
				if dtEnd < 0 {
					dtEnd = len(s)
				}
				tok += s[:dtEnd]
				s = s[dtEnd:]
			}
			tokens = append(tokens, tok)
		default:
			end := strings.IndexAny(s, " \t\r\n")
			if end < 0 {
				end = len(s)
			}
			tokens = append(tokens, s[:end])
			s = s[end:]
		}
	}
	return tokens, nil
}

func parseTerm(tok string, prefixes map[string]string) (term, error) {
	switch {
	case strings.HasPrefix(tok, "?"):
		if len(tok) == 1 {
			return term{}, fmt.Errorf("%w: bare '?'", graph.ErrBadQuery)
		}
		return term{isVar: true, name: tok[1:]}, nil

	case strings.HasPrefix(tok, "<") && strings.HasSuffix(tok, ">"):
		return term{value: graph.NewIRI(tok[1 : len(tok)-1])}, nil

	case strings.HasPrefix(tok, `"`):
		v, rest, err := parseObjectTerm(expandDatatype(tok, prefixes))
		if err != nil || strings.TrimSpace(rest) != "" {
			return term{}, fmt.Errorf("%w: bad literal %q", graph.ErrBadQuery, tok)
		}
		return term{value: v}, nil

	case tok == "true" || tok == "false":
		return term{value: graph.NewBoolean(tok == "true")}, nil
	}

	if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return term{value: graph.NewInteger(i)}, nil
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return term{value: graph.NewFloat(f)}, nil
	}

	// Prefixed name.
	if colon := strings.IndexByte(tok, ':'); colon > 0 {
		prefix, local := tok[:colon], tok[colon+1:]
		base, ok := prefixes[prefix]
		if !ok {
			return term{}, fmt.Errorf("%w: unknown prefix %q", graph.ErrBadQuery, prefix)
		}
		return term{value: graph.NewIRI(base + local)}, nil
	}

	return term{}, fmt.Errorf("%w: unrecognized term %q", graph.ErrBadQuery, tok)
}

// expandDatatype rewrites a ^^prefix:local datatype suffix into ^^<iri> form
// so the literal parser shared with the codec can handle it.
func expandDatatype(tok string, prefixes map[string]string) string {
	i := strings.LastIndex(tok, "^^")
	if i < 0 || strings.HasPrefix(tok[i+2:], "<") {
		return tok
	}
	dt := tok[i+2:]
	if colon := strings.IndexByte(dt, ':'); colon > 0 {
		if base, ok := prefixes[dt[:colon]]; ok {
			return tok[:i] + "^^<" + base + dt[colon+1:] + ">"
		}
	}
	return tok
}

// matchPatterns performs a backtracking join of the patterns against the
// triple set, appending each complete variable assignment to out.
func matchPatterns(triples []graph.Triple, patterns [][3]term, binding map[string]graph.Value, out *[]map[string]graph.Value) {
	if len(patterns) == 0 {
		row := make(map[string]graph.Value, len(binding))
		for k, v := range binding {
			row[k] = v
		}
		*out = append(*out, row)
		return
	}

	p := patterns[0]
	for _, t := range triples {
		bound, ok := bindPattern(p, t, binding)
		if !ok {
			continue
		}
		matchPatterns(triples, patterns[1:], binding, out)
		for _, name := range bound {
			delete(binding, name)
		}
	}
}

// bindPattern attempts to unify one pattern with one triple under the current
// binding. It returns the variable names newly bound by this triple.
func bindPattern(p [3]term, t graph.Triple, binding map[string]graph.Value) ([]string, bool) {
	parts := [3]graph.Value{graph.NewIRI(t.Subject), graph.NewIRI(t.Predicate), t.Object}

	var bound []string
	for i, tm := range p {
		if tm.isVar {
			if existing, ok := binding[tm.name]; ok {
				if !existing.Equal(parts[i]) {
					unbind(binding, bound)
					return nil, false
				}
				continue
			}
			binding[tm.name] = parts[i]
			bound = append(bound, tm.name)
			continue
		}
		if !tm.value.Equal(parts[i]) {
			unbind(binding, bound)
			return nil, false
		}
	}
	return bound, true
}

func unbind(binding map[string]graph.Value, names []string) {
	for _, n := range names {
		delete(binding, n)
	}
}
