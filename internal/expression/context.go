package expression

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/sanspareilsmyn/profilelens/internal/value"
)

// Function is a callable exposed to expressions.
type Function func(args ...value.Value) (value.Value, error)

// Context carries function resolution and read-only globals into every
// evaluation, and memoizes compiled programs. It is safe for concurrent use.
type Context struct {
	functions map[string]Function
	globals   Map

	mu       sync.RWMutex
	programs map[string]*vm.Program
}

type ContextOption func(*Context)

// WithFunction registers fn under name, replacing a built-in of the same name.
func WithFunction(name string, fn Function) ContextOption {
	return func(c *Context) {
		c.functions[name] = fn
	}
}

// WithGlobals exposes read-only bindings to every expression. Message fields,
// profile state and special bindings all shadow globals.
func WithGlobals(globals map[string]value.Value) ContextOption {
	return func(c *Context) {
		for k, v := range globals {
			c.globals[k] = v
		}
	}
}

func NewContext(opts ...ContextOption) *Context {
	c := &Context{
		functions: builtinFunctions(),
		globals:   make(Map),
		programs:  make(map[string]*vm.Program),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EmptyContext returns a context holding only the built-in functions.
func EmptyContext() *Context {
	return NewContext()
}

func (c *Context) program(text string) (*vm.Program, error) {
	c.mu.RLock()
	p, ok := c.programs[text]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := expr.Compile(text, c.compileOptions()...)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.programs[text] = p
	c.mu.Unlock()
	return p, nil
}

func (c *Context) compileOptions() []expr.Option {
	opts := []expr.Option{
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
		// Builtins such as count, sum and duration would shadow profile
		// variables of the same name; only registered functions are callable.
		expr.DisableAllBuiltins(),
	}
	for name, fn := range c.functions {
		opts = append(opts, expr.Function(name, adaptFunction(name, fn)))
	}
	return opts
}

// environment flattens globals and vars into the map handed to the VM.
func (c *Context) environment(vars Variables) map[string]any {
	scope := Layer(c.globals, vars)
	names := scope.Names()
	env := make(map[string]any, len(names))
	for _, name := range names {
		if v, ok := scope.Lookup(name); ok {
			env[name] = v.Any()
		}
	}
	return env
}

func adaptFunction(name string, fn Function) func(params ...any) (any, error) {
	return func(params ...any) (any, error) {
		args := make([]value.Value, len(params))
		for i, p := range params {
			v, err := value.FromAny(p)
			if err != nil {
				return nil, fmt.Errorf("%s: argument %d: %w", name, i, err)
			}
			args[i] = v
		}
		out, err := fn(args...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return out.Any(), nil
	}
}
