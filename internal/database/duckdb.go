// Package database opens the embedded engines (DuckDB and SQLite) used by the
// Database and Parquet storage methods, and moves tables in and out of them.
package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/basekick-labs/dfio/internal/table"
	"github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"
)

// DuckDB wraps one DuckDB database, in memory or backed by a file.
// Benchmarks run single threaded, so the pool is pinned to one connection.
type DuckDB struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Config holds DuckDB configuration
type Config struct {
	MemoryLimit string
	ThreadCount int
}

// NewDuckDB opens a DuckDB database at path; an empty path opens an
// in-memory database.
func NewDuckDB(path string, cfg *Config, logger zerolog.Logger) (*DuckDB, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	// memory_limit and threads can only be applied with SET once connected
	for _, stmt := range settings(cfg) {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure duckdb (%s): %w", stmt, err)
		}
	}

	logger.Debug().
		Str("path", path).
		Str("memory_limit", cfg.MemoryLimit).
		Int("threads", cfg.ThreadCount).
		Msg("Opened DuckDB")

	return &DuckDB{db: db, logger: logger}, nil
}

func settings(cfg *Config) []string {
	var stmts []string
	if cfg.MemoryLimit != "" {
		stmts = append(stmts, fmt.Sprintf("SET memory_limit='%s'", EscapeSQLString(cfg.MemoryLimit)))
	}
	if cfg.ThreadCount > 0 {
		stmts = append(stmts, fmt.Sprintf("SET threads=%d", cfg.ThreadCount))
	}
	return stmts
}

// Exec runs a statement that returns no rows.
func (d *DuckDB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	result, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("duckdb exec %q: %w", query, err)
	}
	d.logger.Debug().
		Str("query", query).
		Dur("elapsed", time.Since(start)).
		Msg("DuckDB exec")
	return result, nil
}

// QueryTable runs query and collects the result set into a table.
func (d *DuckDB) QueryTable(ctx context.Context, query string) (*table.Table, error) {
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()
	return ScanTable(rows)
}

// CreateTable creates name with columns matching tbl and loads every row
// through the DuckDB appender.
func (d *DuckDB) CreateTable(ctx context.Context, name string, tbl *table.Table) error {
	if _, err := d.Exec(ctx, CreateTableSQL(name, tbl, duckdbType)); err != nil {
		return err
	}

	conn, err := d.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	return conn.Raw(func(driverConn any) error {
		appender, err := duckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", name)
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}

		row := make([]driver.Value, tbl.NumCols())
		for i := 0; i < tbl.NumRows(); i++ {
			for c := range tbl.Columns {
				row[c] = tbl.Columns[c].Value(i)
			}
			if err := appender.AppendRow(row...); err != nil {
				appender.Close()
				return fmt.Errorf("failed to append row %d: %w", i, err)
			}
		}
		if err := appender.Close(); err != nil {
			return fmt.Errorf("failed to flush appender: %w", err)
		}
		return nil
	})
}

func (d *DuckDB) Close() error { return d.db.Close() }

func duckdbType(t table.ColumnType) string {
	switch t {
	case table.Bool:
		return "BOOLEAN"
	case table.Float64:
		return "DOUBLE"
	case table.Int64:
		return "BIGINT"
	default:
		return "VARCHAR"
	}
}

// EscapeSQLString doubles single quotes for use inside a SQL string literal.
func EscapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// QuoteIdent quotes an identifier for DuckDB and SQLite.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
