package methods

import (
	"context"
	"fmt"

	"github.com/basekick-labs/dfio/internal/database"
	"github.com/basekick-labs/dfio/internal/table"
	"github.com/rs/zerolog"
)

// Database engines.
const (
	EngineSQLite = "sqlite"
)

const tableName = "dfio"

var (
	sqliteAuxFiles = []string{"-wal", "-shm", "-journal"}
	duckdbAuxFiles = []string{".wal"}
)

// Database stores the table in an embedded database file.
type Database struct {
	engine  string
	journal string
	duck    *database.Config
	logger  zerolog.Logger
}

// NewDatabase returns a Database strategy. SQLite requires a journal mode
// (wal or delete); DuckDB takes none.
func NewDatabase(engine, journal string, env Env) (*Database, error) {
	switch engine {
	case EngineSQLite:
		if journal != database.JournalWAL && journal != database.JournalDelete {
			return nil, fmt.Errorf("unknown sqlite journal mode %q", journal)
		}
	case EngineDuckDB:
		if journal != "" {
			return nil, fmt.Errorf("duckdb takes no journal mode, got %q", journal)
		}
	default:
		return nil, fmt.Errorf("unknown Database engine %q", engine)
	}
	return &Database{engine: engine, journal: journal, duck: env.DuckDB, logger: env.Logger}, nil
}

func (s *Database) Descriptor() Descriptor {
	return Descriptor{Class: ClassDatabase, Engine: s.engine, Journal: s.journal}
}

func (s *Database) String() string {
	return s.Descriptor().String()
}

func (s *Database) auxFiles() []string {
	if s.engine == EngineSQLite {
		return sqliteAuxFiles
	}
	return duckdbAuxFiles
}

func (s *Database) Write(tbl *table.Table, path string) error {
	// A database file would accumulate tables; always start from nothing.
	if err := s.CleanUp(path); err != nil {
		return fmt.Errorf("failed to remove previous database: %w", err)
	}

	ctx := context.Background()
	if s.engine == EngineSQLite {
		db, err := database.OpenSQLite(ctx, path, s.journal)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.WriteSQLite(ctx, db, tableName, tbl); err != nil {
			return err
		}
		return db.Close()
	}

	duck, err := database.NewDuckDB(path, s.duck, s.logger)
	if err != nil {
		return err
	}
	defer duck.Close()
	if err := duck.CreateTable(ctx, tableName, tbl); err != nil {
		return err
	}
	return duck.Close()
}

func (s *Database) Read(path string) (*table.Table, error) {
	ctx := context.Background()
	if s.engine == EngineSQLite {
		db, err := database.OpenSQLite(ctx, path, "")
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return database.ReadSQLite(ctx, db, tableName)
	}

	duck, err := database.NewDuckDB(path, s.duck, s.logger)
	if err != nil {
		return nil, err
	}
	defer duck.Close()
	return duck.QueryTable(ctx, "SELECT * FROM "+database.QuoteIdent(tableName))
}

func (s *Database) FileSize(path string) (int64, error) {
	return fileSize(path, s.auxFiles()...)
}

func (s *Database) CleanUp(path string) error {
	return removeFiles(path, s.auxFiles()...)
}
