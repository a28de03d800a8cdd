package profiler

import "errors"

var (
	ErrMissingTimestamp = errors.New("message has no usable timestamp")
	ErrMissingEvaluator = errors.New("an expression evaluator is required")
	ErrMissingProfiles  = errors.New("profiler config is required")
	ErrNonBooleanFilter = errors.New("onlyif must evaluate to a boolean")
	ErrNullEntity       = errors.New("foreach evaluated to null")
	ErrInvalidTTL       = errors.New("profile time-to-live must be positive")
	ErrBuilderCreation  = errors.New("failed to create profile builder")
)
