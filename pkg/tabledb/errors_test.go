package tabledb

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Error_Formats_Terse_Message_When_Context_Given(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "bare kind",
			err:  newError(ErrEmptyView),
			want: "empty view",
		},
		{
			name: "entity prefix",
			err:  newError(ErrNotExists, withEntity("table"), withTable("users")),
			want: "table does not exist (table=users)",
		},
		{
			name: "value and position",
			err:  newError(ErrUniqueViolation, withTable("users"), withColumn("email"), withPosition(2), withValue("a@b.c")),
			want: `unique violation (table=users column=email row=2 value="a@b.c")`,
		},
		{
			name: "null value",
			err:  newError(ErrTypeConversion, withColumn("n"), withValue(nil)),
			want: "type conversion failed (column=n value=null)",
		},
		{
			name: "cause",
			err:  newError(ErrInvalidColumnDefinition, withColumn("x"), withCause(errors.New("missing data type"))),
			want: "invalid column definition: missing data type (column=x)",
		},
		{
			name: "unbounded range",
			err:  newError(ErrAutoIncrementOutOfRange, withColumn("id"), withValue(int64(1)), withBounds(int64(3), nil)),
			want: "auto increment value out of range (column=id value=1 range=(3,+Inf))",
		},
		{
			name: "links",
			err: newError(ErrReferencedByOthers, withTable("users"), withColumn("id"),
				withLinks([]Link{{Table: "orders", Column: "userId"}, {Table: "notes", Column: "author"}})),
			want: "column is referenced by other columns (table=users column=id linked_with=orders.userId,notes.author)",
		},
		{
			name: "conflicting rows",
			err:  newError(ErrReferentialIntegrity, withLink(Link{Table: "orders", Column: "userId"}), withRows(Row{"id": 1}, Row{"id": 2})),
			want: "row is referenced by other rows (link=orders.userId conflicting_rows=2)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func Test_Error_Matches_Kind_And_Cause_When_Unwrapped(t *testing.T) {
	t.Parallel()

	inner := tableNotExists("users")
	err := error(newError(ErrForeignKeyViolation, withTable("orders"), withCause(inner)))

	require.ErrorIs(t, err, ErrForeignKeyViolation)
	require.ErrorIs(t, err, ErrNotExists)
	require.NotErrorIs(t, err, ErrUniqueViolation)

	var tErr *Error
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, "orders", tErr.Table)
}

func Test_Error_Renders_Friendly_Message_When_Presented_Friendly(t *testing.T) {
	t.Parallel()

	err := present(newError(ErrUniqueViolation, withTable("users"), withColumn("email"),
		withValue("a@b.c"), withRows(Row{"email": "a@b.c"})), true)

	msg := err.Error()
	assert.True(t, strings.HasPrefix(msg, `The value "a@b.c" could not be stored in column "email"`), msg)
	assert.Contains(t, msg, "does not allow duplicate values")
	require.ErrorIs(t, err, ErrUniqueViolation)

	terse := present(err, false)
	assert.Equal(t, `unique violation (table=users column=email value="a@b.c" conflicting_rows=1)`, terse.Error())
}

func Test_Error_Uses_Kind_For_Friendly_Message_When_Cause_Has_Other_Kind(t *testing.T) {
	t.Parallel()

	err := present(newError(ErrForeignKeyViolation, withColumn("userId"), withValue(int64(9)),
		withLink(Link{Table: "users", Column: "id"}), withCause(tableNotExists("users"))), true)

	assert.Contains(t, err.Error(), `linked to column "id" of table "users"`)
}

func Test_Error_Returns_Empty_String_When_Nil(t *testing.T) {
	t.Parallel()

	var e *Error
	assert.Empty(t, e.Error())
	assert.Nil(t, e.Unwrap())
}
