package expression

import "errors"

var (
	ErrEvaluation       = errors.New("expression evaluation failed")
	ErrEmptyExpression  = errors.New("expression is empty")
	ErrFunctionArgCount = errors.New("wrong number of function arguments")
)
