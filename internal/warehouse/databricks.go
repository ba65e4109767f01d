package warehouse

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/databricks/databricks-sql-go" // databricks database/sql driver

	"github.com/leapstack-labs/catalogsync/pkg/dialect"
)

func init() {
	Register("databricks", func(logger *slog.Logger) Executor { return NewDatabricks(logger) })
}

// Databricks executes queries against a SQL warehouse with a personal
// access token.
type Databricks struct {
	BaseExecutor
}

// NewDatabricks creates an unconnected Databricks executor.
func NewDatabricks(logger *slog.Logger) *Databricks {
	return &Databricks{BaseExecutor: newBase(logger)}
}

// Kind returns dialect.Databricks.
func (d *Databricks) Kind() dialect.Kind { return dialect.Databricks }

// Connect opens a connection to the SQL warehouse at cfg.HTTPPath.
func (d *Databricks) Connect(ctx context.Context, cfg Config) error {
	d.Logger.Debug("connecting to databricks", slog.String("host", cfg.Host), slog.String("http_path", cfg.HTTPPath))
	return d.open(ctx, "databricks", databricksDSN(cfg))
}

// databricksDSN builds token:<token>@<host>:<port>/<http_path>.
func databricksDSN(cfg Config) string {
	port := cfg.Port
	if port == 0 {
		port = 443
	}
	host := TrimScheme(cfg.Host)
	path := strings.TrimPrefix(cfg.HTTPPath, "/")

	dsn := fmt.Sprintf("token:%s@%s:%d/%s", cfg.Token, host, port, path)
	var params []string
	if cfg.Database != "" {
		params = append(params, "catalog="+cfg.Database)
	}
	if cfg.Schema != "" {
		params = append(params, "schema="+cfg.Schema)
	}
	if len(params) > 0 {
		dsn += "?" + strings.Join(params, "&")
	}
	return dsn
}

// TrimScheme strips an http:// or https:// prefix and any trailing slash
// from a host.
func TrimScheme(host string) string {
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	return strings.TrimRight(host, "/")
}
