package database

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/basekick-labs/dfio/internal/table"
)

// CreateTableSQL builds the CREATE TABLE statement for tbl, mapping column
// types through typeName.
func CreateTableSQL(name string, tbl *table.Table, typeName func(table.ColumnType) string) string {
	defs := make([]string, len(tbl.Columns))
	for i, col := range tbl.Columns {
		defs[i] = QuoteIdent(col.Name) + " " + typeName(col.Type)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdent(name), strings.Join(defs, ", "))
}

// columnTypeFor maps a driver's declared column type back to a table type.
func columnTypeFor(dbType string) table.ColumnType {
	dbType = strings.ToUpper(dbType)
	switch {
	case strings.Contains(dbType, "BOOL"):
		return table.Bool
	case strings.Contains(dbType, "INT"):
		return table.Int64
	case strings.Contains(dbType, "DOUBLE"), strings.Contains(dbType, "REAL"), strings.Contains(dbType, "FLOAT"):
		return table.Float64
	default:
		return table.String
	}
}

// ScanTable drains rows into a table. NULLs are rejected since generated
// tables never contain them.
func ScanTable(rows *sql.Rows) (*table.Table, error) {
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get column types: %w", err)
	}

	tbl := &table.Table{Columns: make([]table.Column, len(colTypes))}
	for i, ct := range colTypes {
		tbl.Columns[i] = table.NewColumn(ct.Name(), columnTypeFor(ct.DatabaseTypeName()), 0)
	}

	values := make([]interface{}, len(colTypes))
	ptrs := make([]interface{}, len(colTypes))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if v == nil {
				return nil, fmt.Errorf("column %s: unexpected NULL", tbl.Columns[i].Name)
			}
			if err := tbl.Columns[i].Append(v); err != nil {
				return nil, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return tbl, nil
}
