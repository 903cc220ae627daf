// Package querybuilder renders the SQL the postgres repositories need from
// row structs tagged with `db:"column"`.
package querybuilder

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Table maps a row struct T onto a table. Columns are read once from the
// exported fields' db tags, in declaration order; `db:"-"` and untagged
// fields are skipped.
type Table[T any] struct {
	name    string
	columns []string
	fields  []int
}

func NewTable[T any](name string) (*Table[T], error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("table name is required")
	}

	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("table %s: row type %s must be a struct", name, typ)
	}

	t := &Table[T]{name: name}
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		col, _, _ := strings.Cut(field.Tag.Get("db"), ",")
		col = strings.TrimSpace(col)
		if col == "" || col == "-" {
			continue
		}
		t.columns = append(t.columns, col)
		t.fields = append(t.fields, i)
	}
	if len(t.columns) == 0 {
		return nil, fmt.Errorf("table %s: row type %s has no db columns", name, typ)
	}
	return t, nil
}

// MustTable is NewTable for package-level table declarations.
func MustTable[T any](name string) *Table[T] {
	t, err := NewTable[T](name)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table[T]) Name() string { return t.name }

func (t *Table[T]) Columns() []string {
	return append([]string(nil), t.columns...)
}

// SelectAll reads every mapped column of every row.
func (t *Table[T]) SelectAll(orderBy ...string) string {
	var buf strings.Builder
	buf.WriteString("SELECT ")
	buf.WriteString(strings.Join(t.columns, ", "))
	buf.WriteString(" FROM ")
	buf.WriteString(t.name)
	if len(orderBy) > 0 {
		buf.WriteString(" ORDER BY ")
		buf.WriteString(strings.Join(orderBy, ", "))
	}
	return buf.String()
}

// DeleteAll clears the table.
func (t *Table[T]) DeleteAll() string {
	return "DELETE FROM " + t.name
}

// Insert renders one multi-row INSERT with $n placeholders for rows. suffix,
// such as an ON CONFLICT clause, is appended verbatim.
func (t *Table[T]) Insert(rows []T, suffix string) (string, []any, error) {
	if len(rows) == 0 {
		return "", nil, fmt.Errorf("insert into %s: rows are required", t.name)
	}

	var buf strings.Builder
	buf.WriteString("INSERT INTO ")
	buf.WriteString(t.name)
	buf.WriteString(" (")
	buf.WriteString(strings.Join(t.columns, ", "))
	buf.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(t.fields))
	for r := range rows {
		if r > 0 {
			buf.WriteString(", ")
		}
		value := reflect.ValueOf(&rows[r]).Elem()
		buf.WriteByte('(')
		for c, field := range t.fields {
			if c > 0 {
				buf.WriteString(", ")
			}
			args = append(args, value.Field(field).Interface())
			buf.WriteByte('$')
			buf.WriteString(strconv.Itoa(len(args)))
		}
		buf.WriteByte(')')
	}

	if suffix = strings.TrimSpace(suffix); suffix != "" {
		buf.WriteByte(' ')
		buf.WriteString(suffix)
	}
	return buf.String(), args, nil
}
