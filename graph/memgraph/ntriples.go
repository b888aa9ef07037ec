package memgraph

import (
	"fmt"
	"strings"

	"github.com/knowgraph/kgstore/graph"
)

// Canonical serialization: one triple per line in an N-Triples style,
// with stable quoting so that identical triples always produce identical
// lines. The version tracker diffs snapshots line-wise, which is why the
// format must never vary for the same triple.

func formatTriple(t graph.Triple) string {
	return fmt.Sprintf("<%s> <%s> %s .", t.Subject, t.Predicate, formatObject(t.Object))
}

func formatObject(v graph.Value) string {
	if v.Kind == graph.KindIRI {
		return "<" + v.Text + ">"
	}
	quoted := `"` + escapeLiteral(v.Text) + `"`
	if dt := v.Datatype(); dt != "" {
		return quoted + "^^<" + dt + ">"
	}
	return quoted
}

func escapeLiteral(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func unescapeLiteral(s string) string {
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if !escaped {
			if r == '\\' {
				escaped = true
				continue
			}
			b.WriteRune(r)
			continue
		}
		switch r {
		case 'n':
			b.WriteRune('\n')
		case 'r':
			b.WriteRune('\r')
		case 't':
			b.WriteRune('\t')
		default:
			b.WriteRune(r)
		}
		escaped = false
	}
	return b.String()
}

func parseTriples(data string) ([]graph.Triple, error) {
	var triples []graph.Triple
	for i, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		t, err := parseTripleLine(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", graph.ErrBadSyntax, i+1, err)
		}
		triples = append(triples, t)
	}
	return triples, nil
}

func parseTripleLine(line string) (graph.Triple, error) {
	rest := strings.TrimSuffix(strings.TrimSpace(line), ".")
	rest = strings.TrimSpace(rest)

	subject, rest, err := parseIRIRef(rest)
	if err != nil {
		return graph.Triple{}, fmt.Errorf("subject: %v", err)
	}
	predicate, rest, err := parseIRIRef(rest)
	if err != nil {
		return graph.Triple{}, fmt.Errorf("predicate: %v", err)
	}
	object, rest, err := parseObjectTerm(rest)
	if err != nil {
		return graph.Triple{}, fmt.Errorf("object: %v", err)
	}
	if strings.TrimSpace(rest) != "" {
		return graph.Triple{}, fmt.Errorf("trailing content %q", rest)
	}
	return graph.Triple{Subject: subject, Predicate: predicate, Object: object}, nil
}

// parseIRIRef consumes a leading <iri> and returns the IRI and the remainder.
func parseIRIRef(s string) (string, string, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "<") {
		return "", "", fmt.Errorf("expected '<' at %q", s)
	}
	end := strings.IndexByte(s, '>')
	if end < 0 {
		return "", "", fmt.Errorf("unterminated IRI at %q", s)
	}
	return s[1:end], s[end+1:], nil
}

// parseObjectTerm consumes a leading object term: an IRI reference or a
// quoted literal with an optional ^^<datatype> suffix.
func parseObjectTerm(s string) (graph.Value, string, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<") {
		iri, rest, err := parseIRIRef(s)
		if err != nil {
			return graph.Value{}, "", err
		}
		return graph.NewIRI(iri), rest, nil
	}
	if !strings.HasPrefix(s, `"`) {
		return graph.Value{}, "", fmt.Errorf("expected IRI or literal at %q", s)
	}

	// Find the closing quote, honoring backslash escapes.
	end := -1
	escaped := false
	for i := 1; i < len(s); i++ {
		if escaped {
			escaped = false
			continue
		}
		switch s[i] {
		case '\\':
			escaped = true
		case '"':
			end = i
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		return graph.Value{}, "", fmt.Errorf("unterminated literal at %q", s)
	}

	lexical := unescapeLiteral(s[1:end])
	rest := s[end+1:]

	if strings.HasPrefix(rest, "^^") {
		datatype, remainder, err := parseIRIRef(rest[2:])
		if err != nil {
			return graph.Value{}, "", fmt.Errorf("datatype: %v", err)
		}
		return graph.FromLiteral(lexical, datatype), remainder, nil
	}
	return graph.NewString(lexical), rest, nil
}
