package warehouse

import (
	"context"
	"log/slog"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/leapstack-labs/catalogsync/pkg/dialect"
)

func init() {
	Register("duckdb", func(logger *slog.Logger) Executor { return NewDuckDB(logger) })
}

// DuckDB reads lineage and statistics tables exported to a local DuckDB
// file, for development and offline runs.
type DuckDB struct {
	BaseExecutor
}

// NewDuckDB creates an unconnected DuckDB executor.
func NewDuckDB(logger *slog.Logger) *DuckDB {
	return &DuckDB{BaseExecutor: newBase(logger)}
}

// Kind returns dialect.ANSI. DuckDB keeps identifier case as written.
func (d *DuckDB) Kind() dialect.Kind { return dialect.ANSI }

// Connect opens cfg.Path, or an in-memory database when it is empty.
func (d *DuckDB) Connect(ctx context.Context, cfg Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	d.Logger.Debug("opening duckdb", slog.String("path", path))
	return d.open(ctx, "duckdb", path)
}
