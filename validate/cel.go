package validate

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// compiledProgram caches one compiled CEL expression per rule so repeated
// validation runs skip parsing and type-checking.
type compiledProgram struct {
	expression string
	program    cel.Program
}

// evalExpression evaluates a CEL expression custom rule. The operation
// payload is bound as `data`; the expression must evaluate to a boolean.
//
// Example expression: `has(data.subject) && data.subject.startsWith("http")`.
func (e *Engine) evalExpression(ruleID, expression string, data map[string]any) (bool, string, map[string]any, error) {
	program, err := e.compile(ruleID, expression)
	if err != nil {
		return false, "", nil, err
	}

	if data == nil {
		data = map[string]any{}
	}
	out, _, err := program.Eval(map[string]any{"data": data})
	if err != nil {
		return false, "", nil, fmt.Errorf("expression evaluation failed: %w", err)
	}

	passed, ok := out.Value().(bool)
	if !ok {
		return false, "", nil, fmt.Errorf("expression must evaluate to a boolean, got %T", out.Value())
	}

	details := map[string]any{"expression": expression}
	if passed {
		return true, "expression evaluated to true", details, nil
	}
	return false, "expression evaluated to false", details, nil
}

func (e *Engine) compile(ruleID, expression string) (cel.Program, error) {
	e.mu.Lock()
	cached, ok := e.programs[ruleID]
	e.mu.Unlock()
	if ok && cached.expression == expression {
		return cached.program, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("data", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build expression environment: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", issues.Err())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build expression program: %w", err)
	}

	e.mu.Lock()
	e.programs[ruleID] = compiledProgram{expression: expression, program: program}
	e.mu.Unlock()
	return program, nil
}
