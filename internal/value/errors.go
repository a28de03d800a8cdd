package value

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported value type")
	ErrNonFinite       = errors.New("non-finite number")
)
