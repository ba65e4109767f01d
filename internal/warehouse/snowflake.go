package warehouse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/snowflakedb/gosnowflake"

	"github.com/leapstack-labs/catalogsync/pkg/dialect"
)

func init() {
	Register("snowflake", func(logger *slog.Logger) Executor { return NewSnowflake(logger) })
}

// Snowflake executes queries through the gosnowflake driver.
type Snowflake struct {
	BaseExecutor
}

// NewSnowflake creates an unconnected Snowflake executor.
func NewSnowflake(logger *slog.Logger) *Snowflake {
	return &Snowflake{BaseExecutor: newBase(logger)}
}

// Kind returns dialect.Snowflake.
func (s *Snowflake) Kind() dialect.Kind { return dialect.Snowflake }

// Connect opens a session for cfg.User in cfg.Account.
func (s *Snowflake) Connect(ctx context.Context, cfg Config) error {
	dsn, err := snowflakeDSN(cfg)
	if err != nil {
		return err
	}
	s.Logger.Debug("connecting to snowflake", slog.String("account", cfg.Account), slog.String("warehouse", cfg.Warehouse))
	return s.open(ctx, "snowflake", dsn)
}

func snowflakeDSN(cfg Config) (string, error) {
	dsn, err := gosnowflake.DSN(&gosnowflake.Config{
		Account:   cfg.Account,
		User:      cfg.User,
		Password:  cfg.Password,
		Role:      cfg.Role,
		Warehouse: cfg.Warehouse,
		Database:  cfg.Database,
		Schema:    cfg.Schema,
	})
	if err != nil {
		return "", fmt.Errorf("invalid snowflake config: %w", err)
	}
	return dsn, nil
}
