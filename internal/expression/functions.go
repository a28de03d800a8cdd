package expression

import (
	"fmt"

	"github.com/sanspareilsmyn/profilelens/internal/value"
)

func builtinFunctions() map[string]Function {
	return map[string]Function{
		"exists":   exists,
		"is_empty": isEmpty,
	}
}

// exists reports whether its argument is bound to a non-null value.
func exists(args ...value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Null(), fmt.Errorf("%w: exists takes 1, got %d", ErrFunctionArgCount, len(args))
	}
	return value.Bool(!args[0].IsNull()), nil
}

// isEmpty is true for null, "", and empty lists or maps.
func isEmpty(args ...value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Null(), fmt.Errorf("%w: is_empty takes 1, got %d", ErrFunctionArgCount, len(args))
	}
	v := args[0]
	switch v.Kind() {
	case value.KindNull:
		return value.Bool(true), nil
	case value.KindString:
		s, _ := v.AsString()
		return value.Bool(s == ""), nil
	case value.KindList:
		l, _ := v.AsList()
		return value.Bool(len(l) == 0), nil
	case value.KindMap:
		m, _ := v.AsMap()
		return value.Bool(len(m) == 0), nil
	}
	return value.Bool(false), nil
}
