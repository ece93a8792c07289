package tabledb

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/calvinalkan/tabledb/pkg/tabledb/value"
)

// Error kinds. Every error returned by tabledb satisfies errors.Is for exactly
// one of these (plus whatever underlying cause it wraps).
var (
	ErrNotExists               = errors.New("does not exist")
	ErrAlreadyExists           = errors.New("already exists")
	ErrInvalidColumnDefinition = errors.New("invalid column definition")
	ErrColumnNotFound          = errors.New("column not found")
	ErrReferencedByOthers      = errors.New("column is referenced by other columns")
	ErrTypeConversion          = errors.New("type conversion failed")
	ErrAutoIncrementOutOfRange = errors.New("auto increment value out of range")
	ErrNotNull                 = errors.New("null value in not-null column")
	ErrUniqueViolation         = errors.New("unique violation")
	ErrPrimaryKeyViolation     = errors.New("primary key violation")
	ErrForeignKeyViolation     = errors.New("foreign key violation")
	ErrReferentialIntegrity    = errors.New("row is referenced by other rows")
	ErrIncomparable            = value.ErrIncomparable
	ErrNonNumericAggregate     = errors.New("non-numeric aggregate")
	ErrRowNotFound             = errors.New("row not found")
	ErrEmptyView               = errors.New("empty view")
)

// Error is the structured error type returned by the engine.
//
// The message starts with the kind (and cause, if any) followed by context:
//
//	unique violation (table=users column=email value="a@b.c")
//
// When the database was opened with [Options.FriendlyErrors], Error renders
// a longer explanation aimed at people instead. Both forms describe the same
// failure; use [errors.Is] against the Err* kinds and [errors.As] to read the
// fields:
//
//	var tErr *tabledb.Error
//	if errors.As(err, &tErr) {
//	    fmt.Println(tErr.Table, tErr.Column, tErr.Rows)
//	}
type Error struct {
	// Kind is one of the Err* sentinels.
	Kind error

	// Entity is "database" or "table" for ErrNotExists/ErrAlreadyExists.
	Entity string

	Table  string
	Column string

	// Value is the offending value, when there is one.
	Value    any
	hasValue bool

	// Position is the row index involved, or -1.
	Position int

	// Row is the row being written or deleted.
	Row Row

	// Rows are the existing rows that caused the failure: the duplicate for
	// unique/primary key violations, the dependents for referential integrity.
	Rows []Row

	// Link is the foreign key (or reverse link) involved.
	Link *Link

	// Links are the reverse links blocking a column drop.
	Links []Link

	// Lower and Upper are the exclusive bounds for auto increment values.
	// Upper is nil when unbounded.
	Lower, Upper any

	// Err is the underlying cause, if any.
	Err error

	friendly bool
}

// Error implements error.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	if e.friendly {
		return e.friendlyMessage()
	}

	cause := e.cause()
	suffix := e.suffix()

	if suffix == "" {
		return cause
	}

	return cause + " " + suffix
}

// Unwrap exposes both the kind and the cause to [errors.Is] and [errors.As].
func (e *Error) Unwrap() []error {
	if e == nil {
		return nil
	}

	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}

	if e.Err != nil {
		out = append(out, e.Err)
	}

	return out
}

func (e *Error) cause() string {
	kind := "error"
	if e.Kind != nil {
		kind = e.Kind.Error()
	}

	if e.Entity != "" {
		kind = e.Entity + " " + kind
	}

	if e.Err == nil {
		return kind
	}

	return kind + ": " + e.Err.Error()
}

func (e *Error) suffix() string {
	var parts []string

	if e.Table != "" {
		parts = append(parts, "table="+e.Table)
	}

	if e.Column != "" {
		parts = append(parts, "column="+e.Column)
	}

	if e.Position >= 0 {
		parts = append(parts, fmt.Sprintf("row=%d", e.Position))
	}

	if e.hasValue {
		parts = append(parts, "value="+formatValue(e.Value))
	}

	if e.Link != nil {
		parts = append(parts, "link="+e.Link.String())
	}

	if len(e.Links) > 0 {
		names := make([]string, len(e.Links))
		for i, l := range e.Links {
			names[i] = l.String()
		}

		parts = append(parts, "linked_with="+strings.Join(names, ","))
	}

	if e.Lower != nil {
		parts = append(parts, fmt.Sprintf("range=(%s,%s)", formatValue(e.Lower), formatUpper(e.Upper)))
	}

	if len(e.Rows) > 0 {
		parts = append(parts, fmt.Sprintf("conflicting_rows=%d", len(e.Rows)))
	}

	if len(parts) == 0 {
		return ""
	}

	return "(" + strings.Join(parts, " ") + ")"
}

// friendlyMessage renders the human-oriented form of the error.
func (e *Error) friendlyMessage() string {
	col := fmt.Sprintf("%q", e.Column)
	val := formatValue(e.Value)

	switch e.Kind {
	case ErrNotExists:
		if e.Entity == "table" {
			return fmt.Sprintf("The table %q does not exist in this database.", e.Table)
		}

		return "This database does not exist."
	case ErrAlreadyExists:
		switch e.Entity {
		case "table":
			return fmt.Sprintf("The table %q already exists in this database.", e.Table)
		case "copy target":
			return "The database cannot be copied there, because the target already exists."
		default:
			return "This database already exists."
		}
	case ErrInvalidColumnDefinition:
		return fmt.Sprintf("The column %s could not be added to table %q: %s.", col, e.Table, e.causeText())
	case ErrColumnNotFound:
		return fmt.Sprintf("The column %s does not exist in table %q.", col, e.Table)
	case ErrReferencedByOthers:
		return fmt.Sprintf("You cannot drop the column %s, since it is linked to %s. Drop those columns first.",
			col, describeLinks(e.Links))
	case ErrTypeConversion:
		return fmt.Sprintf("The value %s could not be stored in column %s of table %q, because it could not be converted to the column's data type (%s).",
			val, col, e.Table, e.causeText())
	case ErrAutoIncrementOutOfRange:
		return fmt.Sprintf("The value %s could not be stored in column %s, because the column has the autoIncrement constraint. Leave it empty or use a value bigger than %s and smaller than %s.",
			val, col, formatValue(e.Lower), formatUpper(e.Upper))
	case ErrNotNull:
		return fmt.Sprintf("An empty value cannot be stored in column %s of table %q. Fill in this column.", col, e.Table)
	case ErrUniqueViolation, ErrPrimaryKeyViolation:
		return fmt.Sprintf("The value %s could not be stored in column %s, because this column does not allow duplicate values. It is already used in this row:\n%s",
			val, col, formatRows(e.Rows))
	case ErrForeignKeyViolation:
		target := "its foreign column"
		if e.Link != nil {
			target = fmt.Sprintf("column %q of table %q", e.Link.Column, e.Link.Table)
		}

		return fmt.Sprintf("The value %s could not be stored in column %s, because it is linked to %s and the value does not exist there. Insert it there first.",
			val, col, target)
	case ErrReferentialIntegrity:
		target := "another table"
		if e.Link != nil {
			target = fmt.Sprintf("column %q of table %q", e.Link.Column, e.Link.Table)
		}

		return fmt.Sprintf("This row cannot be deleted, because its column %s (value %s) is still used by %s. First delete these rows:\n%s",
			col, val, target, formatRows(e.Rows))
	case ErrRowNotFound:
		return fmt.Sprintf("Row number %d does not exist in table %q.", e.Position, e.Table)
	case ErrNonNumericAggregate:
		return fmt.Sprintf("The column %s cannot be summed up, because its values are not numbers.", col)
	case ErrIncomparable:
		return fmt.Sprintf("The values of column %s cannot be ordered.", col)
	case ErrEmptyView:
		return "There are no rows to aggregate."
	default:
		return strings.TrimSpace(e.cause() + " " + e.suffix())
	}
}

func (e *Error) causeText() string {
	if e.Err == nil {
		return "no details"
	}

	return e.Err.Error()
}

// --- construction helpers ---

type errOpt func(*Error)

func withTable(name string) errOpt    { return func(e *Error) { e.Table = name } }
func withColumn(name string) errOpt   { return func(e *Error) { e.Column = name } }
func withEntity(entity string) errOpt { return func(e *Error) { e.Entity = entity } }
func withPosition(pos int) errOpt     { return func(e *Error) { e.Position = pos } }
func withRow(row Row) errOpt          { return func(e *Error) { e.Row = row } }
func withRows(rows ...Row) errOpt     { return func(e *Error) { e.Rows = rows } }
func withLinks(links []Link) errOpt   { return func(e *Error) { e.Links = links } }
func withCause(err error) errOpt      { return func(e *Error) { e.Err = err } }

func withValue(v any) errOpt {
	return func(e *Error) {
		e.Value = v
		e.hasValue = true
	}
}

func withLink(l Link) errOpt {
	return func(e *Error) { e.Link = &l }
}

func withBounds(lower, upper any) errOpt {
	return func(e *Error) {
		e.Lower = lower
		e.Upper = upper
	}
}

// newError builds an *Error of the given kind.
func newError(kind error, opts ...errOpt) *Error {
	e := &Error{Kind: kind, Position: -1}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// present applies the presentation mode to err if it is an *Error.
func present(err error, friendly bool) error {
	var tErr *Error
	if errors.As(err, &tErr) {
		tErr.friendly = friendly
	}

	return err
}

func formatValue(v any) string {
	if v == nil {
		return "null"
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}

	return string(b)
}

func formatUpper(v any) string {
	if v == nil {
		return "+Inf"
	}

	return formatValue(v)
}

func formatRows(rows []Row) string {
	b, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Sprint(rows)
	}

	return string(b)
}

func describeLinks(links []Link) string {
	parts := make([]string, len(links))
	for i, l := range links {
		parts[i] = fmt.Sprintf("column %q of table %q", l.Column, l.Table)
	}

	return strings.Join(parts, ", and ")
}
