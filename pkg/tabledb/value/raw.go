package value

// Equal reports whether two raw values are equal.
//
// This is the equality used for run boundaries, uniqueness, foreign-key
// lookups and joins. It compares numbers by value regardless of their Go kind
// (int64(1) equals float64(1), which matters after a JSON round trip), and
// compares maps and slices element-wise.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if ai, ok := toInt(a); ok {
		if bi, ok := toInt(b); ok {
			return ai == bi
		}
	}

	if af, ok := ToFloat(a); ok {
		bf, ok := ToFloat(b)

		return ok && af == bf
	}

	switch x := a.(type) {
	case string:
		y, ok := b.(string)

		return ok && x == y
	case bool:
		y, ok := b.(bool)

		return ok && x == y
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}

		for k, xv := range x {
			yv, found := y[k]
			if !found || !Equal(xv, yv) {
				return false
			}
		}

		return true
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}

		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}

		return true
	default:
		return isComparable(a, b) && a == b
	}
}

// isComparable guards the interface comparison in Equal against runtime
// panics for uncomparable dynamic types.
func isComparable(a, b any) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	_ = a == b

	return true
}

// Clone deep-copies JSON-shaped raw values (maps and slices). Scalars are
// returned unchanged.
func Clone(raw any) any {
	switch x := raw.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, v := range x {
			out[k] = Clone(v)
		}

		return out
	case []any:
		out := make([]any, len(x))
		for i, v := range x {
			out[i] = Clone(v)
		}

		return out
	default:
		return raw
	}
}

// Normalize converts raw into the canonical stored form of t. Values that
// cannot be converted are returned unchanged along with the error.
func Normalize(t DataType, raw any) (any, error) {
	v, err := Construct(t, raw)
	if err != nil {
		return raw, err
	}

	return v.Raw(), nil
}
