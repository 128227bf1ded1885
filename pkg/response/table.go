package response

// Table is an ordered set of rows sharing one column list.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// NewEmptyTable returns a table with columns and no rows.
func NewEmptyTable(columns []string) *Table {
	return &Table{Columns: append([]string(nil), columns...), Rows: [][]any{}}
}

// ColumnIndex returns the position of a column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Value returns the cell at row i for the named column.
func (t *Table) Value(i int, column string) (any, bool) {
	idx := t.ColumnIndex(column)
	if idx < 0 || i < 0 || i >= len(t.Rows) || idx >= len(t.Rows[i]) {
		return nil, false
	}
	return t.Rows[i][idx], true
}

// RenameColumns applies old→new renames in place. Columns not in the
// mapping keep their names.
func (t *Table) RenameColumns(renames map[string]string) {
	for i, c := range t.Columns {
		if n, ok := renames[c]; ok {
			t.Columns[i] = n
		}
	}
}

// Records returns every row as a column-name keyed map.
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for j, c := range t.Columns {
			if j < len(row) {
				rec[c] = row[j]
			}
		}
		out = append(out, rec)
	}
	return out
}
