package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/docspace-portals/backend/internal/models"
)

// The macro runs inside the editor's scripting sandbox. Data is embedded as a
// JSON literal; the backend never evaluates the script itself.
var scriptTemplate = template.Must(template.New("sheet").Parse(`(function () {
    var table = {{.Table}};
    var sheetName = {{.SheetName}};
    var sheet = Api.GetSheet(sheetName);
    if (!sheet) {
        Api.AddSheet(sheetName);
        sheet = Api.GetActiveSheet();
    }
    for (var c = 0; c < table.columns.length; c++) {
        sheet.GetCells(1, c + 1).SetValue(table.columns[c]);
    }
    for (var r = 0; r < table.rows.length; r++) {
        var row = table.rows[r];
        for (var c = 0; c < row.length; c++) {
            sheet.GetCells(r + 2, c + 1).SetValue(row[c] === null ? "" : String(row[c]));
        }
    }
})();
`))

// RenderScript renders the sheet-writing macro for table.
func RenderScript(sheetName string, table *models.ExportTable) (string, error) {
	tableJSON, err := json.Marshal(table)
	if err != nil {
		return "", fmt.Errorf("encoding export table: %w", err)
	}
	nameJSON, err := json.Marshal(sheetName)
	if err != nil {
		return "", fmt.Errorf("encoding sheet name: %w", err)
	}

	var b strings.Builder
	err = scriptTemplate.Execute(&b, struct {
		Table     string
		SheetName string
	}{string(tableJSON), string(nameJSON)})
	if err != nil {
		return "", fmt.Errorf("rendering export script: %w", err)
	}
	return b.String(), nil
}
