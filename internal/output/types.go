package output

// Table is one output table. Rows feed the table and csv renderers;
// Records (the typed slice the rows came from) feed json and yaml.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
	Records any
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}
