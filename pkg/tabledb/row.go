package tabledb

import (
	"fmt"
	"maps"
	"strings"
)

// Row is a formatted row: column name to raw value.
type Row map[string]any

// Clone returns a shallow copy of r.
func (r Row) Clone() Row {
	return maps.Clone(r)
}

// Predicate selects rows. pos is the row's position in the view or table
// being scanned.
type Predicate func(row Row, pos int) bool

// All matches every row.
func All(Row, int) bool { return true }

// Eq matches rows whose column equals v (raw equality, see value.Equal).
func Eq(column string, v any) Predicate {
	return func(row Row, _ int) bool {
		return rawEqual(row[column], v)
	}
}

// At matches the row at position pos.
func At(pos int) Predicate {
	return func(_ Row, p int) bool { return p == pos }
}

// Direction is a sort direction.
type Direction int

// Sort directions.
const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "DESC"
	}

	return "ASC"
}

// ParseDirection parses "asc"/"desc" case-insensitively. Empty means ascending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ASC":
		return Ascending, nil
	case "DESC":
		return Descending, nil
	default:
		return Ascending, fmt.Errorf("invalid sort direction %q", s)
	}
}

// OrderKey is one (column, direction) pair of an ORDER BY.
type OrderKey struct {
	Column    string
	Direction Direction
}

// Asc orders by column ascending.
func Asc(column string) OrderKey { return OrderKey{Column: column, Direction: Ascending} }

// Desc orders by column descending.
func Desc(column string) OrderKey { return OrderKey{Column: column, Direction: Descending} }
