// Package expr evaluates the CEL expressions that declarative table markup uses
// in place of closures: visibility and enablement predicates on columns and
// actions, and expression casts on cell values.
//
// Expressions see three variables:
//
//	row   - the current row (structs are converted to maps)
//	user  - the current user (permissions, isSuperAdmin, attributes)
//	value - the cell value being transformed, when there is one
package expr

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	celext "github.com/google/cel-go/ext"

	"github.com/oakwood-commons/gridkit/internal/fieldpath"
)

// Variable names bound in every expression.
const (
	VarRow   = "row"
	VarUser  = "user"
	VarValue = "value"
)

// Vars is the activation for one evaluation.
type Vars struct {
	Row   any
	User  map[string]any
	Value any
}

// Evaluator compiles and evaluates expressions, caching compiled programs by
// source text. It is safe for concurrent use.
type Evaluator struct {
	env      *cel.Env
	programs sync.Map // string -> cel.Program
}

// NewEvaluator creates an evaluator with the standard extension libraries.
func NewEvaluator() (*Evaluator, error) {
	env, err := newEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Evaluator{env: env}, nil
}

var (
	defaultOnce sync.Once
	defaultEval *Evaluator
	defaultErr  error
)

// Default returns a shared evaluator. Compiled programs are immutable, so
// sharing the cache across renders is safe.
func Default() (*Evaluator, error) {
	defaultOnce.Do(func() {
		defaultEval, defaultErr = NewEvaluator()
	})
	return defaultEval, defaultErr
}

func newEnv(opts ...cel.EnvOption) (*cel.Env, error) {
	allOpts := make([]cel.EnvOption, 0, 7+len(opts))
	allOpts = append(allOpts,
		cel.Variable(VarRow, cel.DynType),
		cel.Variable(VarUser, cel.DynType),
		cel.Variable(VarValue, cel.DynType),
		celext.Strings(),
		celext.Encoders(),
		celext.Lists(),
		celext.Math(),
	)
	allOpts = append(allOpts, opts...)
	return cel.NewEnv(allOpts...)
}

// Check compiles expr without evaluating it, so definitions can be validated
// at build time.
func (e *Evaluator) Check(expr string) error {
	_, err := e.program(expr)
	return err
}

func (e *Evaluator) program(expr string) (cel.Program, error) {
	if cached, ok := e.programs.Load(expr); ok {
		return cached.(cel.Program), nil
	}
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compilation error: %w", issues.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	e.programs.Store(expr, prg)
	return prg, nil
}

// Eval evaluates expr and converts the result back to Go values.
func (e *Evaluator) Eval(expr string, vars Vars) (any, error) {
	prg, err := e.program(expr)
	if err != nil {
		return nil, err
	}
	activation, err := vars.activation()
	if err != nil {
		return nil, err
	}
	result, _, err := prg.Eval(activation)
	if err != nil {
		return nil, fmt.Errorf("eval error: %w", err)
	}
	return ToGo(result), nil
}

// EvalBool evaluates a predicate. Non-boolean results are an error.
func (e *Evaluator) EvalBool(expr string, vars Vars) (bool, error) {
	out, err := e.Eval(expr, vars)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("expression %q returned %T, want bool", expr, out)
	}
	return b, nil
}

func (v Vars) activation() (map[string]any, error) {
	row, err := fieldpath.Normalize(v.Row)
	if err != nil {
		return nil, fmt.Errorf("row: %w", err)
	}
	val, err := fieldpath.Normalize(v.Value)
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	user := v.User
	if user == nil {
		user = map[string]any{}
	}
	if row == nil {
		row = map[string]any{}
	}
	return map[string]any{
		VarRow:   row,
		VarUser:  user,
		VarValue: val,
	}, nil
}

// ToGo converts CEL values to Go values recursively.
func ToGo(val ref.Val) any {
	if val == nil {
		return nil
	}

	switch v := val.(type) {
	case types.Bool:
		return bool(v)
	case types.Int:
		return int64(v)
	case types.Uint:
		return uint64(v)
	case types.Double:
		return float64(v)
	case types.String:
		return string(v)
	case types.Bytes:
		return []byte(v)
	case types.Null:
		return nil
	}

	valuer, ok := val.(interface{ Value() any })
	if !ok {
		return val
	}
	inner := valuer.Value()

	switch t := inner.(type) {
	case []ref.Val:
		out := make([]any, len(t))
		for i, elem := range t {
			out[i] = ToGo(elem)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, elem := range t {
			if rv, ok := elem.(ref.Val); ok {
				out[i] = ToGo(rv)
			} else {
				out[i] = elem
			}
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, elem := range t {
			if rv, ok := elem.(ref.Val); ok {
				out[k] = ToGo(rv)
			} else {
				out[k] = elem
			}
		}
		return out
	case map[ref.Val]ref.Val:
		out := make(map[string]any, len(t))
		for k, elem := range t {
			out[fmt.Sprint(ToGo(k))] = ToGo(elem)
		}
		return out
	default:
		return inner
	}
}
