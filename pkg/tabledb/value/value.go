// Package value is the typed value model of tabledb.
//
// Rows are stored as raw Go values (whatever a JSON decoder or a caller hands
// in). Whenever the engine needs to order, aggregate or validate a raw value it
// first converts it into a [Value] of the column's [DataType]:
//
//	v, err := value.Construct(value.Int, 12.9) // Int(12)
//	gt, err := value.Greater(a, b)             // strict a > b
//
// Construction never fails except for [Binary] input that is not made of
// '0'/'1' characters. Ordering is defined for every type except [JSON].
package value

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DataType names the variant a column stores. The string form is the on-disk name.
type DataType string

// Supported data types.
const (
	Int      DataType = "Int"
	Float    DataType = "Float"
	Binary   DataType = "Binary"
	Boolean  DataType = "Boolean"
	DateTime DataType = "DateTime"
	String   DataType = "String"
	JSON     DataType = "JSON"
)

var (
	// ErrInvalidConversion is returned by [Construct] when a raw value cannot be
	// represented in the requested data type.
	ErrInvalidConversion = errors.New("invalid conversion")

	// ErrIncomparable is returned when ordering is attempted on values that have
	// no order (JSON) or on values of different data types.
	ErrIncomparable = errors.New("incomparable")

	// ErrUnknownType is returned by [ParseDataType] for names outside the closed set.
	ErrUnknownType = errors.New("unknown data type")
)

// DataTypes lists every supported data type in declaration order.
func DataTypes() []DataType {
	return []DataType{Int, Float, Binary, Boolean, DateTime, String, JSON}
}

// ParseDataType resolves a data type name case-insensitively ("json" and
// "Json" both map to [JSON]).
func ParseDataType(name string) (DataType, error) {
	for _, t := range DataTypes() {
		if strings.EqualFold(string(t), name) {
			return t, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// Valid reports whether t is one of the supported data types.
func (t DataType) Valid() bool {
	switch t {
	case Int, Float, Binary, Boolean, DateTime, String, JSON:
		return true
	default:
		return false
	}
}

// Numeric reports whether values of t are represented as numbers, which is
// what makes them summable.
func (t DataType) Numeric() bool {
	switch t {
	case Int, Float, Binary, DateTime:
		return true
	default:
		return false
	}
}

// Value is a raw value converted into one data type. The zero Value is an
// untyped null.
type Value struct {
	typ  DataType
	null bool
	i    int64
	f    float64
	b    bool
	s    string
	j    any
}

// Null returns the null value of type t.
func Null(t DataType) Value {
	return Value{typ: t, null: true}
}

// Construct converts raw into a Value of type t.
//
// A nil raw value yields a null Value of any type. Coercion rules:
//   - Int truncates numbers toward zero; numeric strings are parsed, other
//     strings become 0; booleans become 0/1.
//   - Float accepts numbers and numeric strings (others become 0).
//   - Binary accepts a non-empty string of '0'/'1' (parsed base 2) or an
//     integral number (the already-parsed stored form); anything else fails
//     with [ErrInvalidConversion].
//   - Boolean accepts booleans, numbers (non-zero is true) and strings
//     ("true"/"false" etc., any other non-empty string is true).
//   - DateTime stores milliseconds since the Unix epoch and accepts numbers,
//     [time.Time] and RFC 3339 strings.
//   - String formats non-string input with fmt.
//   - JSON keeps the value as is.
func Construct(t DataType, raw any) (Value, error) {
	if raw == nil {
		return Null(t), nil
	}

	switch t {
	case Int:
		return Value{typ: Int, i: coerceInt(raw)}, nil
	case Float:
		return Value{typ: Float, f: coerceFloat(raw)}, nil
	case Binary:
		n, err := parseBinary(raw)
		if err != nil {
			return Value{}, err
		}

		return Value{typ: Binary, i: n}, nil
	case Boolean:
		return Value{typ: Boolean, b: coerceBool(raw)}, nil
	case DateTime:
		return Value{typ: DateTime, i: coerceTime(raw)}, nil
	case String:
		return Value{typ: String, s: coerceString(raw)}, nil
	case JSON:
		return Value{typ: JSON, j: Clone(raw)}, nil
	default:
		return Value{}, fmt.Errorf("%w: %q", ErrUnknownType, string(t))
	}
}

// MustConstruct is like [Construct] but panics on error. Intended for tests
// and constants.
func MustConstruct(t DataType, raw any) Value {
	v, err := Construct(t, raw)
	if err != nil {
		panic(err)
	}

	return v
}

// Type returns the data type of v.
func (v Value) Type() DataType { return v.typ }

// IsNull reports whether v holds no value.
func (v Value) IsNull() bool { return v.null || v.typ == "" }

// Raw returns the canonical raw form of v, the form rows are stored in:
// int64 for Int, Binary and DateTime, float64 for Float, bool, string, or the
// JSON value itself. Null yields nil.
func (v Value) Raw() any {
	if v.IsNull() {
		return nil
	}

	switch v.typ {
	case Int, Binary, DateTime:
		return v.i
	case Float:
		return v.f
	case Boolean:
		return v.b
	case String:
		return v.s
	default:
		return v.j
	}
}

// Int returns the integer payload of Int, Binary and DateTime values.
func (v Value) Int() int64 { return v.i }

// Number returns v as a float64 when its data type is numeric.
func (v Value) Number() (float64, bool) {
	if v.IsNull() {
		return 0, false
	}

	switch v.typ {
	case Int, Binary, DateTime:
		return float64(v.i), true
	case Float:
		return v.f, true
	default:
		return 0, false
	}
}

// String implements fmt.Stringer.
func (v Value) String() string {
	if v.IsNull() {
		return "null"
	}

	switch v.typ {
	case Binary:
		return strconv.FormatInt(v.i, 2)
	case DateTime:
		return time.UnixMilli(v.i).UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v.Raw())
	}
}

// Greater reports whether a is strictly greater than b.
//
// Both values must share a data type. Null sorts below every non-null value.
// JSON values have no order and always fail with [ErrIncomparable].
func Greater(a, b Value) (bool, error) {
	if a.typ == JSON || b.typ == JSON {
		return false, fmt.Errorf("%w: cannot compare JSON", ErrIncomparable)
	}

	if a.typ != b.typ && a.typ != "" && b.typ != "" {
		return false, fmt.Errorf("%w: %s with %s", ErrIncomparable, a.typ, b.typ)
	}

	if a.IsNull() || b.IsNull() {
		return !a.IsNull() && b.IsNull(), nil
	}

	switch a.typ {
	case Int, Binary, DateTime:
		return a.i > b.i, nil
	case Float:
		return a.f > b.f, nil
	case Boolean:
		return a.b && !b.b, nil
	case String:
		return a.s > b.s, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownType, string(a.typ))
	}
}

// Compare orders a and b as -1, 0 or +1 using [Greater] in both directions.
func Compare(a, b Value) (int, error) {
	gt, err := Greater(a, b)
	if err != nil {
		return 0, err
	}

	if gt {
		return 1, nil
	}

	lt, err := Greater(b, a)
	if err != nil {
		return 0, err
	}

	if lt {
		return -1, nil
	}

	return 0, nil
}

// --- coercion ---

func coerceInt(raw any) int64 {
	if n, ok := toInt(raw); ok {
		return n
	}

	if f, ok := ToFloat(raw); ok {
		return truncate(f)
	}

	switch x := raw.(type) {
	case bool:
		if x {
			return 1
		}

		return 0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}

		return truncate(f)
	default:
		return 0
	}
}

func coerceFloat(raw any) float64 {
	if f, ok := ToFloat(raw); ok {
		return f
	}

	switch x := raw.(type) {
	case bool:
		if x {
			return 1
		}

		return 0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}

		return f
	default:
		return 0
	}
}

func parseBinary(raw any) (int64, error) {
	if s, ok := raw.(string); ok {
		if s == "" || strings.Trim(s, "01") != "" {
			return 0, fmt.Errorf("%w: %q is not binary, expected only 0's and 1's", ErrInvalidConversion, s)
		}

		n, err := strconv.ParseInt(s, 2, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %w", ErrInvalidConversion, s, err)
		}

		return n, nil
	}

	if n, ok := toInt(raw); ok {
		return n, nil
	}

	if f, ok := ToFloat(raw); ok && f == math.Trunc(f) && !math.IsInf(f, 0) {
		return int64(f), nil
	}

	return 0, fmt.Errorf("%w: %v (%T) is not binary", ErrInvalidConversion, raw, raw)
}

func coerceBool(raw any) bool {
	switch x := raw.(type) {
	case bool:
		return x
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return x != ""
		}

		return b
	}

	if f, ok := ToFloat(raw); ok {
		return f != 0 && !math.IsNaN(f)
	}

	return true
}

func coerceTime(raw any) int64 {
	switch x := raw.(type) {
	case time.Time:
		return x.UnixMilli()
	case *time.Time:
		if x == nil {
			return 0
		}

		return x.UnixMilli()
	case string:
		s := strings.TrimSpace(x)
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UnixMilli()
		}

		if t, err := time.Parse(time.DateOnly, s); err == nil {
			return t.UnixMilli()
		}
	}

	return coerceInt(raw)
}

func coerceString(raw any) string {
	switch x := raw.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func truncate(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}

	return int64(math.Trunc(f))
}

// toInt extracts an exact integer from integer kinds and integral json.Number.
func toInt(raw any) (int64, bool) {
	switch x := raw.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), true //nolint:gosec // values above MaxInt64 are not representable anyway
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), true //nolint:gosec // see uint
	case json.Number:
		n, err := x.Int64()

		return n, err == nil
	default:
		return 0, false
	}
}

// ToFloat returns raw as float64 when it is any Go number or a json.Number.
func ToFloat(raw any) (float64, bool) {
	if n, ok := toInt(raw); ok {
		return float64(n), true
	}

	switch x := raw.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()

		return f, err == nil
	default:
		return 0, false
	}
}
