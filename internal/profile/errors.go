package profile

import "errors"

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidDefinition  = errors.New("invalid profile definition")
	ErrMissingName        = errors.New("profile name is required")
	ErrMissingForeach     = errors.New("foreach expression is required")
	ErrMissingResult      = errors.New("result expression is required")
	ErrEmptyVariable      = errors.New("variable name cannot be empty")
	ErrDuplicateVariable  = errors.New("variable assigned more than once")
	ErrEmptyExpression    = errors.New("expression cannot be empty")
	ErrDuplicateProfile   = errors.New("profile defined more than once")
	ErrMissingEvaluator   = errors.New("an expression evaluator is required")
	ErrUnmarshalProfiles  = errors.New("failed to parse profiler configuration")
	ErrInvalidAssignments = errors.New("assignments must be a mapping of variable to expression")
)
