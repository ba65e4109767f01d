package warehouse

import (
	"context"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver

	"github.com/leapstack-labs/catalogsync/pkg/dialect"
)

func init() {
	Register("redshift", func(logger *slog.Logger) Executor { return NewRedshift(logger) })
}

// DefaultRedshiftPort is used when Config.Port is zero.
const DefaultRedshiftPort = 5439

// Redshift executes queries over the Postgres wire protocol using pgx.
type Redshift struct {
	BaseExecutor
}

// NewRedshift creates an unconnected Redshift executor.
func NewRedshift(logger *slog.Logger) *Redshift {
	return &Redshift{BaseExecutor: newBase(logger)}
}

// Kind returns dialect.Redshift.
func (r *Redshift) Kind() dialect.Kind { return dialect.Redshift }

// Connect opens a connection to cfg.Host.
func (r *Redshift) Connect(ctx context.Context, cfg Config) error {
	r.Logger.Debug("connecting to redshift", slog.String("host", cfg.Host), slog.String("database", cfg.Database))
	return r.open(ctx, "pgx", redshiftDSN(cfg))
}

// redshiftDSN builds a keyword/value connection string.
func redshiftDSN(cfg Config) string {
	port := cfg.Port
	if port == 0 {
		port = DefaultRedshiftPort
	}
	sslmode := "require"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", cfg.Host, port, cfg.Database, sslmode)
	if cfg.User != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.User)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", quoteDSNValue(cfg.Password))
	}
	return dsn
}

// quoteDSNValue single-quotes a value that contains spaces or quotes.
func quoteDSNValue(v string) string {
	needs := v == ""
	for _, r := range v {
		if r == ' ' || r == '\'' || r == '\\' {
			needs = true
			break
		}
	}
	if !needs {
		return v
	}
	out := []rune{'\''}
	for _, r := range v {
		if r == '\'' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(append(out, '\''))
}
