package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/basekick-labs/dfio/internal/table"
	_ "github.com/mattn/go-sqlite3"
)

// SQLite journal modes the Database method can be configured with.
const (
	JournalWAL    = "wal"
	JournalDelete = "delete"
)

// OpenSQLite opens (creating if needed) a SQLite file with the given
// journal mode.
func OpenSQLite(ctx context.Context, path, journal string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if journal != "" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode="+strings.ToUpper(journal)); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set journal mode: %w", err)
		}
	}
	return db, nil
}

// WriteSQLite creates name in db and inserts every row of tbl in one
// transaction.
func WriteSQLite(ctx context.Context, db *sql.DB, name string, tbl *table.Table) error {
	if _, err := db.ExecContext(ctx, CreateTableSQL(name, tbl, sqliteType)); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", tbl.NumCols()), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", QuoteIdent(name), placeholders))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	row := make([]interface{}, tbl.NumCols())
	for i := 0; i < tbl.NumRows(); i++ {
		for c := range tbl.Columns {
			row[c] = tbl.Columns[c].Value(i)
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// ReadSQLite reads every row of name back into a table.
func ReadSQLite(ctx context.Context, db *sql.DB, name string) (*table.Table, error) {
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+QuoteIdent(name))
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()
	return ScanTable(rows)
}

func sqliteType(t table.ColumnType) string {
	switch t {
	case table.Bool:
		return "BOOLEAN"
	case table.Float64:
		return "REAL"
	case table.Int64:
		return "INTEGER"
	default:
		return "TEXT"
	}
}
