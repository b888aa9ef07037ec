// Package validate implements the validation-rule engine: a registry of
// typed rules evaluated against the current graph state or a proposed
// operation payload, producing leveled pass/fail results.
//
// Rule evaluation is never fatal to the caller: a rule that errors or panics
// yields a synthetic error-level Result instead of propagating, so one bad
// rule cannot block the others.
package validate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/knowgraph/kgstore/graph"
	"github.com/knowgraph/kgstore/index"
)

// Errors returned by registry operations.
var (
	// ErrRuleNotFound is returned when a rule id is not registered.
	ErrRuleNotFound = errors.New("validate: rule not found")

	// ErrRuleExists is returned when registering a duplicate rule id.
	ErrRuleExists = errors.New("validate: rule already exists")

	// ErrInvalidRule is returned when a rule is structurally invalid.
	ErrInvalidRule = errors.New("validate: invalid rule")
)

// CustomFunc is a caller-provided evaluation callable for custom rules.
// It returns pass/fail plus a human-readable message.
type CustomFunc func(ctx context.Context, data map[string]any) (bool, string, error)

// Engine maintains the rule registry and evaluates rules. Safe for
// concurrent use. Expensive rule kinds cache their results keyed by rule id
// and a hash of the operation payload; the owning manager clears that cache
// whenever the graph mutates.
type Engine struct {
	mu          sync.Mutex
	backend     graph.Backend
	idx         *index.Index
	logger      *slog.Logger
	rules       []*Rule
	results     map[string]Result
	customFuncs map[string]CustomFunc
	programs    map[string]compiledProgram
	runs        int64
}

// NewEngine creates an Engine that evaluates graph-driven rules against the
// given backend and index.
func NewEngine(backend graph.Backend, idx *index.Index, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		backend:     backend,
		idx:         idx,
		logger:      logger,
		results:     make(map[string]Result),
		customFuncs: make(map[string]CustomFunc),
		programs:    make(map[string]compiledProgram),
	}
}

// AddRule registers a rule. A missing ID is filled with a fresh UUID; a
// missing Context defaults to "global"; a missing Level defaults to error.
func (e *Engine) AddRule(rule *Rule) error {
	if rule == nil || rule.Name == "" {
		return fmt.Errorf("%w: rule name is required", ErrInvalidRule)
	}
	if !rule.Kind.valid() {
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidRule, int(rule.Kind))
	}
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.Context == "" {
		rule.Context = ContextGlobal
	}
	if rule.Level == 0 {
		rule.Level = LevelError
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, existing := range e.rules {
		if existing.ID == rule.ID {
			return fmt.Errorf("%w: %q", ErrRuleExists, rule.ID)
		}
	}
	e.rules = append(e.rules, rule)
	sort.SliceStable(e.rules, func(i, j int) bool {
		return e.rules[i].Priority < e.rules[j].Priority
	})
	return nil
}

// RemoveRule deletes a rule by id, along with any cached results and
// compiled programs for it.
func (e *Engine) RemoveRule(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, rule := range e.rules {
		if rule.ID == id {
			e.rules = append(e.rules[:i], e.rules[i+1:]...)
			delete(e.programs, id)
			for key := range e.results {
				if keyRuleID(key) == id {
					delete(e.results, key)
				}
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrRuleNotFound, id)
}

// EnableRule marks a rule enabled.
func (e *Engine) EnableRule(id string) error {
	return e.setEnabled(id, true)
}

// DisableRule marks a rule disabled.
func (e *Engine) DisableRule(id string) error {
	return e.setEnabled(id, false)
}

func (e *Engine) setEnabled(id string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, rule := range e.rules {
		if rule.ID == id {
			rule.Enabled = enabled
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrRuleNotFound, id)
}

// Rule returns a copy of the rule with the given id.
func (e *Engine) Rule(id string) (Rule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, rule := range e.rules {
		if rule.ID == id {
			return *rule, nil
		}
	}
	return Rule{}, fmt.Errorf("%w: %q", ErrRuleNotFound, id)
}

// Rules returns copies of all registered rules in priority order.
func (e *Engine) Rules() []Rule {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Rule, 0, len(e.rules))
	for _, rule := range e.rules {
		out = append(out, *rule)
	}
	return out
}

// RegisterCustomFunc wires a Go callable for custom rules whose "function"
// parameter names it.
func (e *Engine) RegisterCustomFunc(name string, fn CustomFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.customFuncs[name] = fn
}

// Validate evaluates every enabled rule whose context matches the requested
// context or is "global", in ascending priority order. Rule failures and
// rule execution errors are reported in the results, never as an error
// return.
func (e *Engine) Validate(ctx context.Context, ruleContext string, data map[string]any) []Result {
	e.mu.Lock()
	eligible := make([]*Rule, 0, len(e.rules))
	for _, rule := range e.rules {
		if rule.Enabled && (rule.Context == ContextGlobal || rule.Context == ruleContext) {
			eligible = append(eligible, rule)
		}
	}
	e.runs++
	e.mu.Unlock()

	dataHash := hashData(data)
	results := make([]Result, 0, len(eligible))
	for _, rule := range eligible {
		results = append(results, e.evaluate(ctx, rule, data, dataHash))
	}
	return results
}

// evaluate runs one rule, consulting the result cache for expensive kinds.
func (e *Engine) evaluate(ctx context.Context, rule *Rule, data map[string]any, dataHash string) (result Result) {
	start := time.Now()

	// A rule must never take down the run.
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("validation rule panicked",
				"rule_id", rule.ID,
				"rule_name", rule.Name,
				"panic", r)
			result = Result{
				RuleID:    rule.ID,
				RuleName:  rule.Name,
				Level:     LevelError,
				Passed:    false,
				Message:   fmt.Sprintf("rule execution panicked: %v", r),
				Duration:  time.Since(start),
				Timestamp: time.Now().UTC(),
			}
		}
	}()

	cacheKey := ""
	if rule.Kind.expensive() {
		cacheKey = resultKey(rule.ID, dataHash)
		e.mu.Lock()
		cached, ok := e.results[cacheKey]
		e.mu.Unlock()
		if ok {
			cached.Timestamp = time.Now().UTC()
			return cached
		}
	}

	passed, message, details, err := e.dispatch(ctx, rule, data)
	if err != nil {
		e.logger.Warn("validation rule errored",
			"rule_id", rule.ID,
			"rule_name", rule.Name,
			"error", err)
		return Result{
			RuleID:    rule.ID,
			RuleName:  rule.Name,
			Level:     LevelError,
			Passed:    false,
			Message:   fmt.Sprintf("rule execution failed: %v", err),
			Duration:  time.Since(start),
			Timestamp: time.Now().UTC(),
		}
	}

	result = Result{
		RuleID:    rule.ID,
		RuleName:  rule.Name,
		Level:     rule.Level,
		Passed:    passed,
		Message:   message,
		Details:   details,
		Duration:  time.Since(start),
		Timestamp: time.Now().UTC(),
	}

	if cacheKey != "" {
		e.mu.Lock()
		e.results[cacheKey] = result
		e.mu.Unlock()
	}
	return result
}

// dispatch selects the evaluation function for the rule's kind.
func (e *Engine) dispatch(ctx context.Context, rule *Rule, data map[string]any) (bool, string, map[string]any, error) {
	switch rule.Kind {
	case KindPatternCount:
		return e.evalPatternCount(ctx, rule)
	case KindViolationCount:
		return e.evalViolationCount(ctx, rule)
	case KindSchemaConformance:
		return e.evalSchemaConformance(ctx, rule)
	case KindCardinality:
		return e.evalCardinality(ctx, rule)
	case KindDatatype:
		return evalDatatype(rule, data)
	case KindPatternMatch:
		return evalPatternMatch(rule, data)
	case KindCustom:
		return e.evalCustom(ctx, rule, data)
	default:
		return false, "", nil, fmt.Errorf("%w: kind %v", ErrInvalidRule, rule.Kind)
	}
}

// ClearResultCache drops every cached result. Called by the manager after
// each mutation, since cached outcomes describe a graph that no longer
// exists.
func (e *Engine) ClearResultCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.results = make(map[string]Result)
}

// Stats summarizes the registry and cache.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := Stats{
		TotalRules:    len(e.rules),
		RulesByKind:   make(map[string]int),
		CachedResults: len(e.results),
		Runs:          e.runs,
	}
	for _, rule := range e.rules {
		stats.RulesByKind[rule.Kind.String()]++
		if rule.Enabled {
			stats.EnabledRules++
		}
	}
	return stats
}

// Reset drops all rules, cached results and compiled programs. Registered
// custom callables survive, since they are wiring rather than state.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = nil
	e.results = make(map[string]Result)
	e.programs = make(map[string]compiledProgram)
}

func resultKey(ruleID, dataHash string) string {
	return ruleID + "\x00" + dataHash
}

func keyRuleID(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == 0 {
			return key[:i]
		}
	}
	return key
}

func hashData(data map[string]any) string {
	if len(data) == 0 {
		return "empty"
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		// Unencodable payloads never share a cache slot.
		return uuid.NewString()
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}
