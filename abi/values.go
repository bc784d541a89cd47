package abi

import (
	"fmt"
	"math/big"
)

// toSlice coerces an encoder input value into a []any. It accepts []any
// (the typical json.Unmarshal shape) and nil (an empty array); pre-typed
// Go slices such as []string are rejected with ErrValueShape.
func toSlice(value any) ([]any, error) {
	switch v := value.(type) {
	case []any:
		return v, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: expected array, got %T", ErrValueShape, value)
	}
}

// toMap coerces an encoder input value into field-name-keyed params for a
// tuple. map[string]any is the expected shape for named tuple components.
func toMap(value any) (map[string]any, error) {
	switch v := value.(type) {
	case map[string]any:
		return v, nil
	case nil:
		return map[string]any{}, nil
	default:
		return nil, fmt.Errorf("%w: expected tuple object, got %T", ErrValueShape, value)
	}
}

// toBigInt accepts the numeric shapes callers are likely to hand in:
// *big.Int or big.Int directly, string decimal (for values too large for
// int64), int, int64 or uint64. Other Go integer types and float64 are
// rejected with ErrValueShape.
func toBigInt(value any) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return v, nil
	case big.Int:
		return &v, nil
	case string:
		n, ok := new(big.Int).SetString(v, 10)
		if !ok {
			return nil, fmt.Errorf("%w: malformed integer string %q", ErrValueShape, v)
		}
		return n, nil
	case int:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("%w: unsupported integer type %T", ErrValueShape, value)
	}
}
