package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

var errNotConnected = errors.New("database connection not established")

// BaseExecutor provides the database/sql plumbing shared by the
// warehouses. Embed it and implement Connect and Kind.
type BaseExecutor struct {
	DB     *sql.DB
	Logger *slog.Logger
}

func newBase(logger *slog.Logger) BaseExecutor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return BaseExecutor{Logger: logger}
}

// open opens and pings a database/sql connection.
func (b *BaseExecutor) open(ctx context.Context, driver, dsn string) error {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s connection: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping %s: %w", driver, err)
	}
	b.DB = db
	return nil
}

// Close closes the database connection.
func (b *BaseExecutor) Close() error {
	if b.DB == nil {
		return nil
	}
	b.Logger.Debug("closing warehouse connection")
	return b.DB.Close()
}

// Query runs sqlStr and returns the rows as maps.
func (b *BaseExecutor) Query(ctx context.Context, sqlStr string) ([]map[string]any, error) {
	var out []map[string]any
	err := b.scan(ctx, sqlStr, func(cols []string, vals []any) {
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = vals[i]
		}
		out = append(out, row)
	})
	return out, err
}

// QueryTuples runs sqlStr and returns the rows positionally.
func (b *BaseExecutor) QueryTuples(ctx context.Context, sqlStr string) ([][]any, error) {
	var out [][]any
	err := b.scan(ctx, sqlStr, func(_ []string, vals []any) {
		out = append(out, vals)
	})
	return out, err
}

// scan calls f once per row with freshly allocated values. []byte values
// are converted to strings, since drivers reuse their buffers.
func (b *BaseExecutor) scan(ctx context.Context, sqlStr string, f func(cols []string, vals []any)) error {
	if b.DB == nil {
		return errNotConnected
	}
	b.Logger.Debug("running warehouse query", slog.Int("length", len(sqlStr)))

	rows, err := b.DB.QueryContext(ctx, sqlStr)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("failed to read result columns: %w", err)
	}

	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range vals {
			if bs, ok := v.([]byte); ok {
				vals[i] = string(bs)
			}
		}
		f(cols, vals)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating rows: %w", err)
	}
	return nil
}
