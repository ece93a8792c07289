package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/calvinalkan/tabledb/pkg/tabledb"
	"github.com/calvinalkan/tabledb/pkg/tabledb/value"
)

// Condition is one parsed --where expression.
type Condition struct {
	Column string
	Op     string
	Value  any
}

// Longer operators first so ">=" is not read as ">".
var operators = []string{"!=", ">=", "<=", "=", ">", "<"}

// ParseCondition parses "col<op>value". The value is decoded as JSON when
// possible and otherwise taken as a plain string, so name=Ann and
// name="Ann" are the same condition and id=null matches nulls.
func ParseCondition(expr string) (Condition, error) {
	idx, op := -1, ""

	for i := range len(expr) {
		for _, candidate := range operators {
			if strings.HasPrefix(expr[i:], candidate) {
				idx, op = i, candidate

				break
			}
		}

		if idx >= 0 {
			break
		}
	}

	if idx < 0 {
		return Condition{}, fmt.Errorf("%w: %q has no operator (use = != > >= < <=)", ErrInvalidWhere, expr)
	}

	col := strings.TrimSpace(expr[:idx])
	if col == "" {
		return Condition{}, fmt.Errorf("%w: %q has no column", ErrInvalidWhere, expr)
	}

	raw := strings.TrimSpace(expr[idx+len(op):])

	var v any

	err := json.Unmarshal([]byte(raw), &v)
	if err != nil {
		v = raw
	}

	return Condition{Column: col, Op: op, Value: v}, nil
}

// ParseConditions parses every expression.
func ParseConditions(exprs []string) ([]Condition, error) {
	conds := make([]Condition, 0, len(exprs))

	for _, expr := range exprs {
		c, err := ParseCondition(expr)
		if err != nil {
			return nil, err
		}

		conds = append(conds, c)
	}

	return conds, nil
}

// compiledCondition holds the literal converted to the column's type.
type compiledCondition struct {
	Condition

	typ     value.DataType
	literal value.Value
}

// Predicate compiles conds against cols into a predicate matching rows that
// satisfy all of them.
//
// Literals are converted to the column's data type first, so a DateTime
// column can be compared with an RFC 3339 string and a Binary column with
// "101". Ordering operators never match nulls and fail for JSON columns.
func Predicate(conds []Condition, cols []tabledb.Column) (tabledb.Predicate, error) {
	compiled := make([]compiledCondition, 0, len(conds))

	for _, c := range conds {
		idx := -1

		for i := range cols {
			if cols[i].Name == c.Column {
				idx = i

				break
			}
		}

		if idx < 0 {
			return nil, fmt.Errorf("%w: %q", tabledb.ErrColumnNotFound, c.Column)
		}

		typ := cols[idx].DataType

		if typ == value.JSON && c.Op != "=" && c.Op != "!=" {
			return nil, fmt.Errorf("%w: %s %s on JSON column %q", tabledb.ErrIncomparable, c.Column, c.Op, c.Column)
		}

		raw := c.Value

		// A JSON-decoded number typed for a Binary column is its digits.
		if f, ok := raw.(float64); ok && typ == value.Binary {
			raw = strconv.FormatFloat(f, 'f', -1, 64)
		}

		lit, err := value.Construct(typ, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidWhere, c.Column, err)
		}

		compiled = append(compiled, compiledCondition{Condition: c, typ: typ, literal: lit})
	}

	return func(row tabledb.Row, _ int) bool {
		for _, c := range compiled {
			if !c.match(row[c.Column]) {
				return false
			}
		}

		return true
	}, nil
}

func (c compiledCondition) match(raw any) bool {
	switch c.Op {
	case "=":
		return value.Equal(raw, c.literal.Raw())
	case "!=":
		return !value.Equal(raw, c.literal.Raw())
	}

	if raw == nil || c.literal.IsNull() {
		return false
	}

	v, err := value.Construct(c.typ, raw)
	if err != nil {
		return false
	}

	cmp, err := value.Compare(v, c.literal)
	if err != nil {
		return false
	}

	switch c.Op {
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	default:
		return false
	}
}
