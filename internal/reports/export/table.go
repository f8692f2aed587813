package export

// Column names one field of a Row and the label shown for it.
type Column struct {
	Key   string
	Label string
}

// Row maps column keys to cell values.
type Row map[string]interface{}

// Table is an ordered set of columns with its rows.
type Table struct {
	Name    string
	Columns []Column
	Rows    []Row
}

// Field is a single labelled value in a summary block. Fields keep the
// order they are given in.
type Field struct {
	Label string
	Value interface{}
}

// Keys returns the column keys in order.
func (t Table) Keys() []string {
	keys := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		keys[i] = c.Key
	}
	return keys
}

// Labels returns the column labels in order, falling back to the key.
func (t Table) Labels() []string {
	labels := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		labels[i] = c.Label
		if labels[i] == "" {
			labels[i] = c.Key
		}
	}
	return labels
}

// FieldsTable turns summary fields into a two column table.
func FieldsTable(name string, fields []Field) Table {
	t := Table{
		Name:    name,
		Columns: []Column{{Key: "field", Label: "Field"}, {Key: "value", Label: "Value"}},
		Rows:    make([]Row, 0, len(fields)),
	}
	for _, f := range fields {
		t.Rows = append(t.Rows, Row{"field": f.Label, "value": f.Value})
	}
	return t
}
