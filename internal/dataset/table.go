package dataset

import (
	"fmt"
	"sort"
)

// Table is an ordered set of equally long columns. Tables share immutable
// columns, so Clone is cheap and never exposes the source to mutation.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// New creates a table from columns. All columns must have the same length
// and distinct names.
func New(columns ...*Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(columns))}
	for _, col := range columns {
		if _, dup := t.index[col.Name()]; dup {
			return nil, fmt.Errorf("duplicate column %q", col.Name())
		}
		if err := t.Set(col); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Empty returns a table with no columns and no rows
func Empty() *Table {
	return &Table{index: map[string]int{}}
}

// Len returns the number of rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.rows
}

// Width returns the number of columns
func (t *Table) Width() int {
	if t == nil {
		return 0
	}
	return len(t.columns)
}

// Shape returns (rows, columns)
func (t *Table) Shape() (int, int) {
	return t.Len(), t.Width()
}

// Names returns the column names in order
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name()
	}
	return names
}

// Columns returns the columns in order
func (t *Table) Columns() []*Column {
	return append([]*Column(nil), t.columns...)
}

// Column returns the named column
func (t *Table) Column(name string) (*Column, bool) {
	if t == nil {
		return nil, false
	}
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// Has reports whether the named column exists
func (t *Table) Has(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// Set adds a column, or replaces the column of the same name in place
func (t *Table) Set(col *Column) error {
	if len(t.columns) > 0 && col.Len() != t.rows {
		return fmt.Errorf("column %q has %d rows, table has %d", col.Name(), col.Len(), t.rows)
	}
	if len(t.columns) == 0 {
		t.rows = col.Len()
	}
	if i, ok := t.index[col.Name()]; ok {
		t.columns[i] = col
		return nil
	}
	t.index[col.Name()] = len(t.columns)
	t.columns = append(t.columns, col)
	return nil
}

// Drop removes the named column if present
func (t *Table) Drop(name string) {
	i, ok := t.index[name]
	if !ok {
		return
	}
	t.columns = append(t.columns[:i], t.columns[i+1:]...)
	t.reindex()
}

// Rename renames the columns present in mapping. A column already holding
// a target name is replaced by the renamed column.
func (t *Table) Rename(mapping map[string]string) {
	for from, to := range mapping {
		if from == to {
			continue
		}
		i, ok := t.index[from]
		if !ok {
			continue
		}
		t.columns[i] = t.columns[i].WithName(to)
		if j, taken := t.index[to]; taken {
			t.columns = append(t.columns[:j], t.columns[j+1:]...)
		}
		t.reindex()
	}
}

// RenameAll applies fn to every column name. It fails if two columns end up
// with the same name.
func (t *Table) RenameAll(fn func(string) string) error {
	renamed := make([]*Column, len(t.columns))
	seen := make(map[string]string, len(t.columns))
	for i, col := range t.columns {
		name := fn(col.Name())
		if prev, dup := seen[name]; dup {
			return fmt.Errorf("columns %q and %q both normalize to %q", prev, col.Name(), name)
		}
		seen[name] = col.Name()
		renamed[i] = col.WithName(name)
	}
	t.columns = renamed
	t.reindex()
	return nil
}

// Clone returns a table sharing the (immutable) columns of t
func (t *Table) Clone() *Table {
	cp := &Table{
		columns: append([]*Column(nil), t.columns...),
		rows:    t.rows,
	}
	cp.reindex()
	return cp
}

// Head returns the first n formatted values of the named column
func (t *Table) Head(name string, n int) []string {
	col, ok := t.Column(name)
	if !ok {
		return nil
	}
	if n > col.Len() {
		n = col.Len()
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = col.Format(i)
	}
	return out
}

// Records renders every row as formatted text, in column order
func (t *Table) Records() [][]string {
	records := make([][]string, t.rows)
	for r := 0; r < t.rows; r++ {
		record := make([]string, len(t.columns))
		for c, col := range t.columns {
			record[c] = col.Format(r)
		}
		records[r] = record
	}
	return records
}

// Schema returns the typed set of available fields
func (t *Table) Schema() Schema {
	fields := make(map[string]Kind, len(t.columns))
	for _, col := range t.columns {
		fields[col.Name()] = col.Kind()
	}
	return Schema{fields: fields, order: t.Names()}
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.columns))
	for i, col := range t.columns {
		t.index[col.Name()] = i
	}
}

// Schema is the set of fields a table offers, computed once and consulted
// by each analysis before it picks its aggregation plan
type Schema struct {
	fields map[string]Kind
	order  []string
}

// Has reports whether the field exists
func (s Schema) Has(name string) bool {
	_, ok := s.fields[name]
	return ok
}

// Kind returns the kind of the named field
func (s Schema) Kind(name string) (Kind, bool) {
	k, ok := s.fields[name]
	return k, ok
}

// IsNumeric reports whether the field exists and holds floats
func (s Schema) IsNumeric(name string) bool {
	return s.fields[name] == KindFloat && s.Has(name)
}

// Present returns the candidates that exist, in candidate order
func (s Schema) Present(candidates ...string) []string {
	var out []string
	for _, name := range candidates {
		if s.Has(name) {
			out = append(out, name)
		}
	}
	return out
}

// PresentNumeric returns the candidates that exist as float fields
func (s Schema) PresentNumeric(candidates ...string) []string {
	var out []string
	for _, name := range candidates {
		if s.IsNumeric(name) {
			out = append(out, name)
		}
	}
	return out
}

// Names returns every field name in table order
func (s Schema) Names() []string {
	return append([]string(nil), s.order...)
}

// SortedKeys returns the distinct non-null string values of col in
// ascending order, together with the row indices holding each value
func SortedKeys(col *Column) ([]string, map[string][]int) {
	groups := make(map[string][]int)
	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			continue
		}
		key := col.Format(i)
		groups[key] = append(groups[key], i)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, groups
}
