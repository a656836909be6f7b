package models

// ExportTable is the tabular result of a spreadsheet export query.
type ExportTable struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// ExportScript is a rendered editor macro together with the table it embeds.
type ExportScript struct {
	SheetName string      `json:"sheetName"`
	Script    string      `json:"script"`
	Table     ExportTable `json:"table"`
	Truncated bool        `json:"truncated,omitempty"`
}
