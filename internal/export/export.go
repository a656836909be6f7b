// Package export turns a read-only database query into a spreadsheet editor
// macro that writes the result into the active sheet.
package export

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/docspace-portals/backend/internal/metrics"
	"github.com/docspace-portals/backend/internal/models"
	"github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"
)

// DefaultMaxRows caps the rows embedded into a single script.
const DefaultMaxRows = 5000

var (
	// ErrNotSelect is returned for statements other than a single SELECT.
	ErrNotSelect = errors.New("export: only a single SELECT statement is allowed")

	selectRe = regexp.MustCompile(`(?is)^\s*(select|with)\b`)
)

// Exporter runs export queries against a DuckDB database opened read-only.
type Exporter struct {
	db        *sql.DB
	maxRows   int
	sheetName string
	logger    *zap.Logger
}

// NewExporter opens the database at dbPath in read-only mode.
func NewExporter(dbPath string, maxRows int, sheetName string, logger *zap.Logger) (*Exporter, error) {
	if dbPath == "" {
		return nil, errors.New("export: database path is required")
	}
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	if sheetName == "" {
		sheetName = "Export"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	connector, err := duckdb.NewConnector(dbPath+"?access_mode=READ_ONLY", func(execer driver.ExecerContext) error {
		_, err := execer.ExecContext(context.Background(), "PRAGMA enable_progress_bar=false", nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open export database: %w", err)
	}

	return &Exporter{
		db:        sql.OpenDB(connector),
		maxRows:   maxRows,
		sheetName: sheetName,
		logger:    logger.Named("export"),
	}, nil
}

// Close closes the database.
func (x *Exporter) Close() error {
	return x.db.Close()
}

// Query runs a single SELECT and returns at most maxRows rows. The second
// return value reports whether more rows were available.
func (x *Exporter) Query(ctx context.Context, query string) (*models.ExportTable, bool, error) {
	stmt, err := checkSelect(query)
	if err != nil {
		return nil, false, err
	}

	wrapped := fmt.Sprintf("SELECT * FROM (%s) AS export_source LIMIT %d", stmt, x.maxRows+1)
	rows, err := x.db.QueryContext(ctx, wrapped)
	if err != nil {
		return nil, false, fmt.Errorf("export query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, false, fmt.Errorf("reading columns: %w", err)
	}

	table := &models.ExportTable{Columns: columns, Rows: make([][]any, 0)}
	truncated := false
	for rows.Next() {
		if len(table.Rows) == x.maxRows {
			truncated = true
			break
		}
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, false, fmt.Errorf("scanning row: %w", err)
		}
		for i, v := range values {
			values[i] = cellValue(v)
		}
		table.Rows = append(table.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("reading rows: %w", err)
	}

	metrics.ExportRowsTotal.Add(float64(len(table.Rows)))
	x.logger.Debug("export query",
		zap.Int("columns", len(columns)),
		zap.Int("rows", len(table.Rows)),
		zap.Bool("truncated", truncated))
	return table, truncated, nil
}

// BuildScript queries the database and renders the macro that writes the
// result into sheetName (the configured default when empty).
func (x *Exporter) BuildScript(ctx context.Context, query, sheetName string) (*models.ExportScript, error) {
	table, truncated, err := x.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(sheetName) == "" {
		sheetName = x.sheetName
	}
	script, err := RenderScript(sheetName, table)
	if err != nil {
		return nil, err
	}
	return &models.ExportScript{
		SheetName: sheetName,
		Script:    script,
		Table:     *table,
		Truncated: truncated,
	}, nil
}

// checkSelect returns the statement without a trailing semicolon, or
// ErrNotSelect.
func checkSelect(query string) (string, error) {
	stmt := strings.TrimSpace(query)
	stmt = strings.TrimSpace(strings.TrimRight(stmt, ";"))
	if stmt == "" || !selectRe.MatchString(stmt) || strings.Contains(stmt, ";") {
		return "", ErrNotSelect
	}
	return stmt, nil
}

// cellValue converts driver values into JSON-friendly ones.
func cellValue(v any) any {
	switch t := v.(type) {
	case nil, bool, string, int8, int16, int32, int64, uint8, uint16, uint32, uint64, int, float32, float64:
		return t
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case *big.Int:
		return t.String()
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
