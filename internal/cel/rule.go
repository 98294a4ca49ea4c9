// Package cel compiles CEL expressions that are evaluated against data
// platform rows.
package cel

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// RowVariable is the name a rule uses to refer to the row being evaluated
const RowVariable = "row"

// RowRule is a compiled boolean expression over a single row. It is safe for
// concurrent use.
type RowRule struct {
	expr    string
	program cel.Program
}

// CompileRowRule compiles expr. The expression sees the row as the map
// variable "row" and must evaluate to a bool.
func CompileRowRule(expr string) (*RowRule, error) {
	env, err := cel.NewEnv(
		cel.Variable(RowVariable, cel.MapType(cel.StringType, cel.DynType)),
		RowHelpersLibrary(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %q: %w", expr, issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("rule %q must evaluate to bool, got %s", expr, out)
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build program for rule %q: %w", expr, err)
	}
	return &RowRule{expr: expr, program: program}, nil
}

// String returns the source expression
func (r *RowRule) String() string {
	return r.expr
}

// Eval evaluates the rule against row
func (r *RowRule) Eval(row map[string]any) (bool, error) {
	if row == nil {
		row = map[string]any{}
	}
	out, _, err := r.program.Eval(map[string]any{RowVariable: row})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate rule %q: %w", r.expr, err)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule %q returned %T, want bool", r.expr, out.Value())
	}
	return matched, nil
}
