package tabledb

import (
	"slices"

	"github.com/calvinalkan/tabledb/pkg/tabledb/value"
)

// View is an in-memory relational view over a set of rows.
//
// Views are values: every operation returns a new View and never changes the
// receiver or the table it was read from. Rows returned by a View must be
// treated as read-only since views derived from each other may share them.
type View struct {
	table string
	cols  []Column
	rows  []Row
}

// NewView builds a view from column definitions and positional raw rows,
// keying every row by column name and preserving order.
func NewView(cols []Column, rawRows [][]any) *View {
	raw := &RawTable{Cols: cols, Rows: rawRows}

	rows := make([]Row, len(rawRows))
	for i := range rawRows {
		row := raw.formatRow(i)
		for k, v := range row {
			row[k] = value.Clone(v)
		}

		rows[i] = row
	}

	return &View{cols: cloneColumns(cols), rows: rows}
}

// ViewFromRows builds a view from already formatted rows.
func ViewFromRows(cols []Column, rows []Row) *View {
	return &View{cols: cloneColumns(cols), rows: slices.Clone(rows)}
}

// derive returns a view sharing v's schema with a new set of rows.
func (v *View) derive(rows []Row) *View {
	return &View{table: v.table, cols: v.cols, rows: rows}
}

// Len returns the number of rows.
func (v *View) Len() int { return len(v.rows) }

// Rows returns the rows in order.
func (v *View) Rows() []Row { return slices.Clone(v.rows) }

// Row returns the row at position i.
func (v *View) Row(i int) Row { return v.rows[i] }

// Columns returns a copy of the column definitions.
func (v *View) Columns() []Column { return cloneColumns(v.cols) }

// Values returns the column's values in row order.
func (v *View) Values(column string) []any {
	out := make([]any, len(v.rows))
	for i, row := range v.rows {
		out[i] = row[column]
	}

	return out
}

// Column looks up a column definition by name. The boolean is false when no
// such column exists.
func (v *View) Column(name string) (Column, bool) {
	i := slices.IndexFunc(v.cols, func(c Column) bool { return c.Name == name })
	if i < 0 {
		return Column{}, false
	}

	return v.cols[i].Clone(), true
}

// Select narrows every row to the listed columns. Names without a column
// definition still appear in every row, holding nil.
func (v *View) Select(names ...string) *View {
	rows := make([]Row, len(v.rows))
	for i, row := range v.rows {
		narrowed := make(Row, len(names))
		for _, name := range names {
			narrowed[name] = row[name]
		}

		rows[i] = narrowed
	}

	var cols []Column

	for _, name := range names {
		if i := slices.IndexFunc(v.cols, func(c Column) bool { return c.Name == name }); i >= 0 {
			cols = append(cols, v.cols[i])
		}
	}

	return &View{table: v.table, cols: cols, rows: rows}
}

// Where keeps the rows for which pred holds, in order. pred receives the
// row's position in v.
func (v *View) Where(pred Predicate) *View {
	return v.WhereLimit(pred, 0)
}

// WhereLimit is [View.Where] stopping after limit matches. A limit <= 0 is
// unbounded.
func (v *View) WhereLimit(pred Predicate, limit int) *View {
	var rows []Row

	for i, row := range v.rows {
		if !pred(row, i) {
			continue
		}

		rows = append(rows, row)

		if limit > 0 && len(rows) == limit {
			break
		}
	}

	return v.derive(rows)
}

// Between returns the rows at positions i through j inclusive. Positions
// outside the view are clamped to it.
func (v *View) Between(i, j int) *View {
	n := len(v.rows)
	start := clampIndex(i, n)

	end := 0
	if j >= 0 {
		end = min(j, n-1) + 1
	}

	if end < start {
		end = start
	}

	return v.derive(slices.Clone(v.rows[start:end]))
}

// Top returns the first n rows.
func (v *View) Top(n int) *View { return v.Between(0, n-1) }

// Bottom returns the last n rows.
func (v *View) Bottom(n int) *View { return v.Between(len(v.rows)-n, len(v.rows)) }

func clampIndex(i, n int) int {
	return min(max(i, 0), n)
}

// SortBy stable-sorts the rows by one column using the ordering of the
// column's data type. Rows with equal keys keep their relative order in both
// directions.
func (v *View) SortBy(column string, dir Direction) (*View, error) {
	keys, err := v.typedColumn(column, true)
	if err != nil {
		return nil, err
	}

	idx := make([]int, len(v.rows))
	for i := range idx {
		idx[i] = i
	}

	var cmpErr error

	slices.SortStableFunc(idx, func(a, b int) int {
		c, err := value.Compare(keys[a], keys[b])
		if err != nil && cmpErr == nil {
			cmpErr = err
		}

		if dir == Descending {
			return -c
		}

		return c
	})

	if cmpErr != nil {
		return nil, newError(ErrIncomparable, withTable(v.table), withColumn(column), withCause(cmpErr))
	}

	rows := make([]Row, len(idx))
	for i, at := range idx {
		rows[i] = v.rows[at]
	}

	return v.derive(rows), nil
}

// OrderBy orders by several keys: rows are sorted by the first key, split into
// runs of equal first-key value, and every run is ordered by the remaining
// keys. No keys returns v unchanged.
func (v *View) OrderBy(keys ...OrderKey) (*View, error) {
	if len(keys) == 0 {
		return v, nil
	}

	sorted, err := v.SortBy(keys[0].Column, keys[0].Direction)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(sorted.rows))

	for _, run := range runs(sorted.rows, keys[0].Column) {
		ordered, err := v.derive(run).OrderBy(keys[1:]...)
		if err != nil {
			return nil, err
		}

		rows = append(rows, ordered.rows...)
	}

	return v.derive(rows), nil
}

// GroupBy sorts by column and returns every run of equal value as its own
// view, in ascending value order. An empty view has no groups.
func (v *View) GroupBy(column string) ([]*View, error) {
	sorted, err := v.SortBy(column, Ascending)
	if err != nil {
		return nil, err
	}

	groups := runs(sorted.rows, column)

	out := make([]*View, len(groups))
	for i, g := range groups {
		out[i] = v.derive(g)
	}

	return out, nil
}

// runs splits rows into maximal runs of equal raw value in column.
func runs(rows []Row, column string) [][]Row {
	var (
		out     [][]Row
		current []Row
	)

	for i, row := range rows {
		if i > 0 && !rawEqual(row[column], rows[i-1][column]) {
			out = append(out, current)
			current = nil
		}

		current = append(current, row)
	}

	if len(current) > 0 {
		out = append(out, current)
	}

	return out
}

// Max returns the raw value of the greatest row in column. On ties the first
// occurrence wins.
func (v *View) Max(column string) (any, error) {
	return v.extreme(column, func(cur, best value.Value) (bool, error) {
		return value.Greater(cur, best)
	})
}

// Min returns the raw value of the smallest row in column. On ties the first
// occurrence wins.
func (v *View) Min(column string) (any, error) {
	return v.extreme(column, func(cur, best value.Value) (bool, error) {
		return value.Greater(best, cur)
	})
}

func (v *View) extreme(column string, better func(cur, best value.Value) (bool, error)) (any, error) {
	keys, err := v.typedColumn(column, true)
	if err != nil {
		return nil, err
	}

	if len(keys) == 0 {
		return nil, newError(ErrEmptyView, withTable(v.table), withColumn(column))
	}

	bestAt := 0

	for i := 1; i < len(keys); i++ {
		replace, err := better(keys[i], keys[bestAt])
		if err != nil {
			return nil, newError(ErrIncomparable, withTable(v.table), withColumn(column), withCause(err))
		}

		if replace {
			bestAt = i
		}
	}

	return v.rows[bestAt][column], nil
}

// Sum adds up a numeric column. Null values count as zero. Columns whose data
// type is not numeric fail with [ErrNonNumericAggregate].
func (v *View) Sum(column string) (float64, error) {
	keys, err := v.typedColumn(column, false)
	if err != nil {
		return 0, err
	}

	var sum float64

	for _, k := range keys {
		if n, ok := k.Number(); ok {
			sum += n
		}
	}

	return sum, nil
}

// Avg is Sum divided by the number of rows. An empty view fails with
// [ErrEmptyView].
func (v *View) Avg(column string) (float64, error) {
	sum, err := v.Sum(column)
	if err != nil {
		return 0, err
	}

	if len(v.rows) == 0 {
		return 0, newError(ErrEmptyView, withTable(v.table), withColumn(column))
	}

	return sum / float64(len(v.rows)), nil
}

// typedColumn converts every row's value in column into its typed form.
// ordered requires the data type to be orderable; otherwise it must be numeric.
func (v *View) typedColumn(column string, ordered bool) ([]value.Value, error) {
	def, ok := v.Column(column)
	if !ok {
		return nil, newError(ErrColumnNotFound, withTable(v.table), withColumn(column))
	}

	if ordered && def.DataType == value.JSON {
		return nil, newError(ErrIncomparable, withTable(v.table), withColumn(column))
	}

	if !ordered && !def.DataType.Numeric() {
		return nil, newError(ErrNonNumericAggregate, withTable(v.table), withColumn(column))
	}

	keys := make([]value.Value, len(v.rows))

	for i, row := range v.rows {
		k, err := value.Construct(def.DataType, row[column])
		if err != nil {
			return nil, newError(ErrTypeConversion, withTable(v.table), withColumn(column),
				withPosition(i), withValue(row[column]), withCause(err))
		}

		keys[i] = k
	}

	return keys, nil
}

// Join is a left outer join of v with other on every column name the two
// schemas share.
//
// For each row of v the first row of other agreeing on all shared columns
// supplies other's remaining columns; without a match they are nil. Later
// matches are ignored. Output columns are v's non-shared columns followed by
// all of other's columns in other's order.
func (v *View) Join(other *View) *View {
	otherNames := make(map[string]bool, len(other.cols))
	for _, c := range other.cols {
		otherNames[c.Name] = true
	}

	var shared []string

	cols := make([]Column, 0, len(v.cols)+len(other.cols))

	for _, c := range v.cols {
		if otherNames[c.Name] {
			shared = append(shared, c.Name)
		} else {
			cols = append(cols, c)
		}
	}

	cols = append(cols, other.cols...)

	rows := make([]Row, len(v.rows))

	for i, left := range v.rows {
		match := other.WhereLimit(func(right Row, _ int) bool {
			for _, name := range shared {
				if !rawEqual(right[name], left[name]) {
					return false
				}
			}

			return true
		}, 1)

		var right Row
		if match.Len() > 0 {
			right = match.rows[0]
		}

		joined := left.Clone()

		for _, c := range other.cols {
			if slices.Contains(shared, c.Name) {
				continue
			}

			joined[c.Name] = right[c.Name]
		}

		rows[i] = joined
	}

	return &View{table: v.table, cols: cols, rows: rows}
}

func cloneColumns(cols []Column) []Column {
	out := make([]Column, len(cols))
	for i := range cols {
		out[i] = cols[i].Clone()
	}

	return out
}

func rawEqual(a, b any) bool {
	return value.Equal(a, b)
}
