package kgstore

import (
	"context"
	"errors"

	"github.com/knowgraph/kgstore/validate"
)

// ValidationReport is the result of a whole-graph validation pass.
// Validation never fails the caller; graph health lives in the report.
type ValidationReport struct {
	TripleCount int               `json:"triple_count"`
	Results     []validate.Result `json:"validation_results"`
	Errors      []validate.Result `json:"validation_errors"`
	Warnings    []validate.Result `json:"validation_warnings"`
	Passed      bool              `json:"validation_passed"`
}

// ValidateGraph runs every enabled global rule against the current graph
// and aggregates the outcomes. Rule failures and rule execution errors both
// land in the report; only backend unavailability returns an error.
func (m *Manager) ValidateGraph(ctx context.Context) (ValidationReport, error) {
	const op = "Manager.ValidateGraph"

	if !m.ready.Load() {
		return ValidationReport{}, NewInternalError(op, ErrNotInitialized)
	}

	ctx, span := m.startSpan(ctx, "kgstore.validate_graph")
	defer endSpan(span)

	count, err := m.backend.Len(ctx)
	if err != nil {
		return ValidationReport{}, NewInternalError(op, err)
	}

	results := m.engine.Validate(ctx, validate.ContextGlobal, nil)
	m.metrics.recordValidation(ctx)

	report := ValidationReport{
		TripleCount: count,
		Results:     results,
		Passed:      true,
	}
	for _, r := range results {
		switch {
		case r.Failed():
			report.Errors = append(report.Errors, r)
			report.Passed = false
		case !r.Passed && r.Level == validate.LevelWarning:
			report.Warnings = append(report.Warnings, r)
		}
	}
	return report, nil
}

// ValidateOperation runs the rules registered for the named operation
// context (plus global rules) against the operation payload.
func (m *Manager) ValidateOperation(ctx context.Context, opContext string, data map[string]any) ([]validate.Result, error) {
	const op = "Manager.ValidateOperation"

	if !m.ready.Load() {
		return nil, NewInternalError(op, ErrNotInitialized)
	}

	ctx, span := m.startSpan(ctx, "kgstore.validate_operation")
	defer endSpan(span)

	results := m.engine.Validate(ctx, opContext, data)
	m.metrics.recordValidation(ctx)
	return results, nil
}

// AddValidationRule registers a rule with the engine. Missing fields are
// defaulted: a generated id, the global context, error severity.
func (m *Manager) AddValidationRule(rule *validate.Rule) error {
	const op = "Manager.AddValidationRule"

	if err := m.engine.AddRule(rule); err != nil {
		return NewValidationError(op, err)
	}
	return nil
}

// RemoveValidationRule drops a rule and its cached results.
func (m *Manager) RemoveValidationRule(id string) error {
	return m.ruleError("Manager.RemoveValidationRule", id, m.engine.RemoveRule(id))
}

// EnableValidationRule marks a rule eligible for evaluation.
func (m *Manager) EnableValidationRule(id string) error {
	return m.ruleError("Manager.EnableValidationRule", id, m.engine.EnableRule(id))
}

// DisableValidationRule excludes a rule from evaluation without removing it.
func (m *Manager) DisableValidationRule(id string) error {
	return m.ruleError("Manager.DisableValidationRule", id, m.engine.DisableRule(id))
}

func (m *Manager) ruleError(op, id string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, validate.ErrRuleNotFound) {
		return NewNotFoundError(op, err).WithContext(map[string]any{"rule_id": id})
	}
	return NewValidationError(op, err)
}

// RegisterValidationFunc wires a named callable for custom rules that
// reference it via their "function" parameter.
func (m *Manager) RegisterValidationFunc(name string, fn validate.CustomFunc) {
	m.engine.RegisterCustomFunc(name, fn)
}

// ValidationStats summarizes the rule registry and result cache.
func (m *Manager) ValidationStats() validate.Stats {
	return m.engine.Stats()
}
