package validate

import (
	"fmt"
	"time"
)

// ContextGlobal is the wildcard rule context: rules tagged with it run for
// every validation request regardless of the requested context.
const ContextGlobal = "global"

// Kind identifies a validation rule variant. The set is closed: each kind
// has exactly one evaluation function, selected by a switch in the engine.
type Kind int

const (
	// KindPatternCount runs a query and compares the result-row count
	// against an expected value or [min, max] bounds.
	KindPatternCount Kind = iota + 1

	// KindViolationCount runs a query whose result rows are themselves the
	// violations; zero rows passes.
	KindViolationCount

	// KindSchemaConformance checks that every instance of a declared class
	// carries each required predicate.
	KindSchemaConformance

	// KindCardinality counts triples for a subject-pattern/predicate pair
	// and fails when the count falls outside [min, max].
	KindCardinality

	// KindDatatype verifies that a value extracted from the operation
	// payload by dotted path has an expected primitive type.
	KindDatatype

	// KindPatternMatch checks a payload field against a pattern using one
	// of: regex, contains, equals, starts_with, ends_with.
	KindPatternMatch

	// KindCustom is the extension point: a registered Go callable or a CEL
	// expression. Without either wired in, evaluation fails with "not
	// implemented".
	KindCustom
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindPatternCount:
		return "pattern_count"
	case KindViolationCount:
		return "violation_count"
	case KindSchemaConformance:
		return "schema_conformance"
	case KindCardinality:
		return "cardinality"
	case KindDatatype:
		return "datatype"
	case KindPatternMatch:
		return "pattern_match"
	case KindCustom:
		return "custom"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) valid() bool {
	return k >= KindPatternCount && k <= KindCustom
}

// expensive reports whether results for this kind are cached between runs.
// The query-driven kinds touch the backend; the payload-only kinds are cheap
// enough to always re-evaluate.
func (k Kind) expensive() bool {
	return k == KindPatternCount || k == KindViolationCount
}

// Level is the severity attached to a validation result.
type Level int

const (
	LevelInfo Level = iota + 1
	LevelWarning
	LevelError
	LevelCritical
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelCritical:
		return "critical"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Rule is one registered validation rule. ID, Name and Description are fixed
// at registration; Enabled, Priority and Parameters may be updated in place
// through the engine.
type Rule struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Kind        Kind           `json:"kind"`
	Context     string         `json:"context"`
	Level       Level          `json:"level"`
	Enabled     bool           `json:"enabled"`
	Priority    int            `json:"priority"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// Result is the outcome of evaluating one rule. Results are produced fresh
// on every run and never mutated afterwards.
type Result struct {
	RuleID    string         `json:"rule_id"`
	RuleName  string         `json:"rule_name"`
	Level     Level          `json:"level"`
	Passed    bool           `json:"passed"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Duration  time.Duration  `json:"duration"`
	Timestamp time.Time      `json:"timestamp"`
}

// Failed reports whether the result is a failure at error severity or above.
func (r Result) Failed() bool {
	return !r.Passed && r.Level >= LevelError
}

// Stats summarizes the engine's registry and cache state.
type Stats struct {
	TotalRules    int            `json:"total_rules"`
	EnabledRules  int            `json:"enabled_rules"`
	RulesByKind   map[string]int `json:"rules_by_kind"`
	CachedResults int            `json:"cached_results"`
	Runs          int64          `json:"runs"`
}
