package cast

import (
	"github.com/oakwood-commons/gridkit/internal/expr"
)

// Expr evaluates a CEL expression over row, user and value. The result
// replaces the value.
type Expr struct {
	Base
	Expression string
	eval       *expr.Evaluator
}

// NewExpr compiles expression against the shared evaluator.
func NewExpr(expression string) (*Expr, error) {
	ev, err := expr.Default()
	if err != nil {
		return nil, err
	}
	if err := ev.Check(expression); err != nil {
		return nil, err
	}
	return &Expr{
		Base:       Base{Name: "expr", Rank: PriorityExpr},
		Expression: expression,
		eval:       ev,
	}, nil
}

// Config implements Cast.
func (e *Expr) Config() map[string]any {
	return map[string]any{"expression": e.Expression}
}

// CanCast implements Cast. Expressions accept anything; failures surface from
// Cast.
func (e *Expr) CanCast(any, string) bool { return true }

// Cast implements Cast.
func (e *Expr) Cast(v any, ctx Context) (any, error) {
	return e.eval.Eval(e.Expression, expr.Vars{Row: ctx.Row, User: ctx.User, Value: v})
}
