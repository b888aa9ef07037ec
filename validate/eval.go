package validate

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// sampleLimit bounds how many offending items a failing result reports.
const sampleLimit = 10

// rdfType is the default predicate linking an instance to its class.
const rdfType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

func (e *Engine) evalPatternCount(ctx context.Context, rule *Rule) (bool, string, map[string]any, error) {
	query, err := stringParam(rule, "query")
	if err != nil {
		return false, "", nil, err
	}

	rows, err := e.backend.Select(ctx, query)
	if err != nil {
		return false, "", nil, fmt.Errorf("query failed: %w", err)
	}
	count := len(rows)
	details := map[string]any{"count": count}

	if expected, ok, err := intParam(rule, "expected"); err != nil {
		return false, "", nil, err
	} else if ok {
		details["expected"] = expected
		if count == expected {
			return true, fmt.Sprintf("pattern matched %d rows as expected", count), details, nil
		}
		return false, fmt.Sprintf("pattern matched %d rows, expected %d", count, expected), details, nil
	}

	min, hasMin, err := intParam(rule, "min")
	if err != nil {
		return false, "", nil, err
	}
	max, hasMax, err := intParam(rule, "max")
	if err != nil {
		return false, "", nil, err
	}
	if hasMin {
		details["min"] = min
	}
	if hasMax {
		details["max"] = max
	}

	if hasMin && count < min {
		return false, fmt.Sprintf("pattern matched %d rows, below minimum %d", count, min), details, nil
	}
	if hasMax && count > max {
		return false, fmt.Sprintf("pattern matched %d rows, above maximum %d", count, max), details, nil
	}
	return true, fmt.Sprintf("pattern matched %d rows within bounds", count), details, nil
}

func (e *Engine) evalViolationCount(ctx context.Context, rule *Rule) (bool, string, map[string]any, error) {
	query, err := stringParam(rule, "query")
	if err != nil {
		return false, "", nil, err
	}

	rows, err := e.backend.Select(ctx, query)
	if err != nil {
		return false, "", nil, fmt.Errorf("query failed: %w", err)
	}
	if len(rows) == 0 {
		return true, "no violations found", map[string]any{"violations": 0}, nil
	}

	sample := make([]string, 0, sampleLimit)
	for _, row := range rows {
		if len(sample) >= sampleLimit {
			break
		}
		parts := make([]string, 0, len(row))
		for name, binding := range row {
			parts = append(parts, fmt.Sprintf("%s=%s", name, binding.Text))
		}
		sample = append(sample, strings.Join(parts, " "))
	}

	details := map[string]any{"violations": len(rows), "sample": sample}
	return false, fmt.Sprintf("found %d violations", len(rows)), details, nil
}

func (e *Engine) evalSchemaConformance(ctx context.Context, rule *Rule) (bool, string, map[string]any, error) {
	class, err := stringParam(rule, "class")
	if err != nil {
		return false, "", nil, err
	}
	required, err := stringSliceParam(rule, "required")
	if err != nil {
		return false, "", nil, err
	}
	typePredicate := rdfType
	if tp, ok := rule.Parameters["type_predicate"].(string); ok && tp != "" {
		typePredicate = tp
	}

	// Instances of the class: subjects with a (s, typePredicate, class) triple.
	var instances []string
	for _, subject := range e.idx.SubjectsWithObject(class) {
		for _, t := range e.idx.TriplesFor(subject) {
			if t.Predicate == typePredicate && t.Object.IsReference() && t.Object.Text == class {
				instances = append(instances, subject)
				break
			}
		}
	}

	var offenders []string
	missing := 0
	for _, instance := range instances {
		for _, predicate := range required {
			if e.idx.Has(instance, predicate) {
				continue
			}
			missing++
			if len(offenders) < sampleLimit {
				offenders = append(offenders, fmt.Sprintf("%s missing %s", instance, predicate))
			}
		}
	}

	details := map[string]any{
		"class":     class,
		"instances": len(instances),
		"missing":   missing,
	}
	if missing == 0 {
		return true, fmt.Sprintf("all %d instances conform to schema", len(instances)), details, nil
	}
	details["offenders"] = offenders
	return false, fmt.Sprintf("%d required predicates missing across %d instances", missing, len(instances)), details, nil
}

func (e *Engine) evalCardinality(ctx context.Context, rule *Rule) (bool, string, map[string]any, error) {
	predicate, err := stringParam(rule, "predicate")
	if err != nil {
		return false, "", nil, err
	}
	subjectPattern, _ := rule.Parameters["subject_pattern"].(string)

	count := 0
	if subjectPattern == "" {
		count = e.idx.Count("", predicate)
	} else {
		for _, subject := range e.idx.Subjects() {
			if strings.Contains(subject, subjectPattern) {
				count += e.idx.Count(subject, predicate)
			}
		}
	}

	min, hasMin, err := intParam(rule, "min")
	if err != nil {
		return false, "", nil, err
	}
	max, hasMax, err := intParam(rule, "max")
	if err != nil {
		return false, "", nil, err
	}

	details := map[string]any{"predicate": predicate, "count": count}
	if subjectPattern != "" {
		details["subject_pattern"] = subjectPattern
	}
	if hasMin {
		details["min"] = min
	}
	if hasMax {
		details["max"] = max
	}

	if hasMin && count < min {
		return false, fmt.Sprintf("cardinality %d below minimum %d", count, min), details, nil
	}
	if hasMax && count > max {
		return false, fmt.Sprintf("cardinality %d above maximum %d", count, max), details, nil
	}
	return true, fmt.Sprintf("cardinality %d within bounds", count), details, nil
}

func evalDatatype(rule *Rule, data map[string]any) (bool, string, map[string]any, error) {
	field, err := stringParam(rule, "field")
	if err != nil {
		return false, "", nil, err
	}
	expected, err := stringParam(rule, "expected")
	if err != nil {
		return false, "", nil, err
	}

	value, found := lookupPath(data, field)
	details := map[string]any{"field": field, "expected": expected}
	if !found {
		return false, fmt.Sprintf("field %q not present in operation data", field), details, nil
	}

	actual := typeName(value)
	details["actual"] = actual
	if matchesType(value, expected) {
		return true, fmt.Sprintf("field %q has expected type %s", field, expected), details, nil
	}
	return false, fmt.Sprintf("field %q has type %s, expected %s", field, actual, expected), details, nil
}

func evalPatternMatch(rule *Rule, data map[string]any) (bool, string, map[string]any, error) {
	field, err := stringParam(rule, "field")
	if err != nil {
		return false, "", nil, err
	}
	pattern, err := stringParam(rule, "pattern")
	if err != nil {
		return false, "", nil, err
	}
	mode, _ := rule.Parameters["match"].(string)
	if mode == "" {
		mode = "regex"
	}

	value, found := lookupPath(data, field)
	details := map[string]any{"field": field, "pattern": pattern, "match": mode}
	if !found {
		return false, fmt.Sprintf("field %q not present in operation data", field), details, nil
	}
	text := fmt.Sprintf("%v", value)

	var matched bool
	switch mode {
	case "regex":
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, "", nil, fmt.Errorf("bad regex %q: %w", pattern, err)
		}
		matched = re.MatchString(text)
	case "contains":
		matched = strings.Contains(text, pattern)
	case "equals":
		matched = text == pattern
	case "starts_with":
		matched = strings.HasPrefix(text, pattern)
	case "ends_with":
		matched = strings.HasSuffix(text, pattern)
	default:
		return false, "", nil, fmt.Errorf("unknown match mode %q", mode)
	}

	if matched {
		return true, fmt.Sprintf("field %q matches pattern", field), details, nil
	}
	return false, fmt.Sprintf("field %q does not match pattern %q (%s)", field, pattern, mode), details, nil
}

func (e *Engine) evalCustom(ctx context.Context, rule *Rule, data map[string]any) (bool, string, map[string]any, error) {
	if name, ok := rule.Parameters["function"].(string); ok && name != "" {
		e.mu.Lock()
		fn, registered := e.customFuncs[name]
		e.mu.Unlock()
		if !registered {
			return false, "", nil, fmt.Errorf("custom function %q is not registered", name)
		}
		passed, message, err := fn(ctx, data)
		if err != nil {
			return false, "", nil, err
		}
		return passed, message, map[string]any{"function": name}, nil
	}

	if expr, ok := rule.Parameters["expression"].(string); ok && expr != "" {
		return e.evalExpression(rule.ID, expr, data)
	}

	return false, "custom rule not implemented", nil, nil
}

// lookupPath resolves a dotted path ("payload.user.name") into nested maps.
func lookupPath(data map[string]any, path string) (any, bool) {
	var current any = data
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func typeName(value any) string {
	switch value.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int32, int64:
		return "integer"
	case float32, float64:
		return "float"
	case []any:
		return "list"
	case map[string]any:
		return "map"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", value)
	}
}

// matchesType compares a runtime value against an expected primitive kind.
// JSON decoding turns every number into float64, so "integer" also accepts
// whole-valued floats.
func matchesType(value any, expected string) bool {
	switch expected {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "integer":
		switch v := value.(type) {
		case int, int32, int64:
			return true
		case float64:
			return v == float64(int64(v))
		}
		return false
	case "float":
		switch value.(type) {
		case float32, float64, int, int32, int64:
			return true
		}
		return false
	case "list":
		_, ok := value.([]any)
		return ok
	case "map":
		_, ok := value.(map[string]any)
		return ok
	default:
		return false
	}
}

func stringParam(rule *Rule, name string) (string, error) {
	v, ok := rule.Parameters[name].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: parameter %q is required", ErrInvalidRule, name)
	}
	return v, nil
}

func stringSliceParam(rule *Rule, name string) ([]string, error) {
	switch v := rule.Parameters[name].(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: parameter %q must contain strings", ErrInvalidRule, name)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: parameter %q is required", ErrInvalidRule, name)
	}
}

// intParam extracts an optional integer parameter, accepting JSON-decoded
// float64 values.
func intParam(rule *Rule, name string) (int, bool, error) {
	v, present := rule.Parameters[name]
	if !present {
		return 0, false, nil
	}
	switch n := v.(type) {
	case int:
		return n, true, nil
	case int64:
		return int(n), true, nil
	case float64:
		return int(n), true, nil
	default:
		return 0, false, fmt.Errorf("%w: parameter %q must be a number", ErrInvalidRule, name)
	}
}
