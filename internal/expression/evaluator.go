package expression

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/sanspareilsmyn/profilelens/internal/value"
)

// Evaluator evaluates a single expression against a set of variables. A
// failed evaluation always returns an error wrapping ErrEvaluation; there is
// no silent default.
type Evaluator interface {
	Evaluate(ctx *Context, text string, vars Variables) (value.Value, error)
}

// ExprEvaluator evaluates expressions with github.com/expr-lang/expr.
// Undefined variables evaluate to nil, so `exists(x) ? x : 0` works before x
// is first bound. Non-finite numeric results are failures.
type ExprEvaluator struct {
	fallback *Context
}

func NewExprEvaluator() *ExprEvaluator {
	return &ExprEvaluator{fallback: EmptyContext()}
}

func (e *ExprEvaluator) Evaluate(ctx *Context, text string, vars Variables) (value.Value, error) {
	if strings.TrimSpace(text) == "" {
		return value.Null(), fmt.Errorf("%w: %w", ErrEvaluation, ErrEmptyExpression)
	}
	if ctx == nil {
		ctx = e.fallback
	}

	program, err := ctx.program(text)
	if err != nil {
		return value.Null(), fmt.Errorf("%w: compile %q: %w", ErrEvaluation, text, err)
	}

	out, err := expr.Run(program, ctx.environment(vars))
	if err != nil {
		return value.Null(), fmt.Errorf("%w: run %q: %w", ErrEvaluation, text, err)
	}

	v, err := value.FromAny(out)
	if err != nil {
		return value.Null(), fmt.Errorf("%w: result of %q: %w", ErrEvaluation, text, err)
	}
	return v, nil
}
