package graph

import (
	"fmt"
	"strconv"
)

// Kind identifies the semantic type of a Value.
type Kind int

const (
	// KindIRI represents a reference to an entity, identified by an IRI.
	KindIRI Kind = iota
	// KindString represents a plain string literal.
	KindString
	// KindInteger represents an integer literal (xsd:integer family).
	KindInteger
	// KindFloat represents a floating point literal (xsd:float, xsd:double, xsd:decimal).
	KindFloat
	// KindBoolean represents a boolean literal (xsd:boolean).
	KindBoolean
)

// String returns the string representation of the kind for debugging.
func (k Kind) String() string {
	switch k {
	case KindIRI:
		return "iri"
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBoolean:
		return "boolean"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Common XSD datatype IRIs used on the wire for typed literals.
const (
	XSDInteger = "http://www.w3.org/2001/XMLSchema#integer"
	XSDFloat   = "http://www.w3.org/2001/XMLSchema#float"
	XSDDouble  = "http://www.w3.org/2001/XMLSchema#double"
	XSDDecimal = "http://www.w3.org/2001/XMLSchema#decimal"
	XSDBoolean = "http://www.w3.org/2001/XMLSchema#boolean"
	XSDString  = "http://www.w3.org/2001/XMLSchema#string"
	XSDDate    = "http://www.w3.org/2001/XMLSchema#dateTime"
)

// Value is a kind-tagged triple object or query binding value.
// Exactly one of the typed fields is meaningful, selected by Kind;
// Text always carries the lexical form (or the IRI for KindIRI).
type Value struct {
	Kind  Kind    `json:"kind"`
	Text  string  `json:"text"`
	Int   int64   `json:"int,omitempty"`
	Float float64 `json:"float,omitempty"`
	Bool  bool    `json:"bool,omitempty"`
}

// NewIRI returns a reference value naming an entity.
func NewIRI(iri string) Value {
	return Value{Kind: KindIRI, Text: iri}
}

// NewString returns a plain string literal value.
func NewString(s string) Value {
	return Value{Kind: KindString, Text: s}
}

// NewInteger returns an integer literal value.
func NewInteger(i int64) Value {
	return Value{Kind: KindInteger, Text: strconv.FormatInt(i, 10), Int: i}
}

// NewFloat returns a floating point literal value.
func NewFloat(f float64) Value {
	return Value{Kind: KindFloat, Text: strconv.FormatFloat(f, 'g', -1, 64), Float: f}
}

// NewBoolean returns a boolean literal value.
func NewBoolean(b bool) Value {
	return Value{Kind: KindBoolean, Text: strconv.FormatBool(b), Bool: b}
}

// FromLiteral converts a lexical form plus an XSD datatype IRI into a typed
// Value. Unknown datatypes are preserved as plain strings, matching the
// contract that only integer, float and boolean datatypes map to native types.
func FromLiteral(lexical, datatype string) Value {
	switch datatype {
	case XSDInteger:
		if i, err := strconv.ParseInt(lexical, 10, 64); err == nil {
			return Value{Kind: KindInteger, Text: lexical, Int: i}
		}
	case XSDFloat, XSDDouble, XSDDecimal:
		if f, err := strconv.ParseFloat(lexical, 64); err == nil {
			return Value{Kind: KindFloat, Text: lexical, Float: f}
		}
	case XSDBoolean:
		if b, err := strconv.ParseBool(lexical); err == nil {
			return Value{Kind: KindBoolean, Text: lexical, Bool: b}
		}
	}
	return Value{Kind: KindString, Text: lexical}
}

// Datatype returns the XSD datatype IRI for the value, or the empty string
// for references and plain strings.
func (v Value) Datatype() string {
	switch v.Kind {
	case KindInteger:
		return XSDInteger
	case KindFloat:
		return XSDDouble
	case KindBoolean:
		return XSDBoolean
	default:
		return ""
	}
}

// Native returns the value as its native Go type: string for references and
// string literals, int64, float64 or bool for typed literals.
func (v Value) Native() any {
	switch v.Kind {
	case KindInteger:
		return v.Int
	case KindFloat:
		return v.Float
	case KindBoolean:
		return v.Bool
	default:
		return v.Text
	}
}

// IsReference reports whether the value names an entity rather than a literal.
func (v Value) IsReference() bool {
	return v.Kind == KindIRI
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindInteger:
		return v.Int == other.Int
	case KindFloat:
		return v.Float == other.Float
	case KindBoolean:
		return v.Bool == other.Bool
	default:
		return v.Text == other.Text
	}
}

// String returns a human-readable representation of the value.
func (v Value) String() string {
	if v.Kind == KindIRI {
		return "<" + v.Text + ">"
	}
	return v.Text
}
