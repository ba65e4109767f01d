// Package warehouse runs profiling queries against the supported data
// warehouses.
//
// Each warehouse registers a factory under its name from an init function,
// the same way dialects register themselves. Executors are created
// unconnected and opened with Connect.
package warehouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/leapstack-labs/catalogsync/pkg/dialect"
)

// Config holds connection settings. Each warehouse reads the fields it
// needs and ignores the rest.
type Config struct {
	Type string `koanf:"type"`

	// Snowflake
	Account   string `koanf:"account"`
	Role      string `koanf:"role"`
	Warehouse string `koanf:"warehouse"`

	// Redshift, Databricks
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// Databricks
	HTTPPath string `koanf:"http_path"`
	Token    string `koanf:"token"`

	// DuckDB
	Path string `koanf:"path"`

	// BigQuery. Credentials holds a service account key, either the JSON
	// itself or a path to it. Project defaults to the key's project_id and
	// Organization is looked up from the project when unset.
	Project      string   `koanf:"project"`
	Credentials  string   `koanf:"credentials"`
	Organization string   `koanf:"organization"`
	Regions      []string `koanf:"regions"`
	StatsTables  []string `koanf:"stats_tables"`

	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	Database string            `koanf:"database"`
	Schema   string            `koanf:"schema"`
	Options  map[string]string `koanf:"options"`
}

// Executor runs read-only queries against one warehouse connection.
type Executor interface {
	// Connect opens the connection described by cfg.
	Connect(ctx context.Context, cfg Config) error

	// Close releases the connection.
	Close() error

	// Query runs sql and returns one map per row keyed by the column names
	// the driver reports.
	Query(ctx context.Context, sql string) ([]map[string]any, error)

	// QueryTuples runs sql and returns the rows positionally.
	QueryTuples(ctx context.Context, sql string) ([][]any, error)

	// Kind is the SQL dialect the warehouse speaks.
	Kind() dialect.Kind
}

// Factory creates an unconnected executor.
type Factory func(logger *slog.Logger) Executor

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a warehouse factory to the registry.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get retrieves a warehouse factory by name.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// List returns all registered warehouse names (sorted).
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates an executor for cfg.Type without connecting it.
func New(cfg Config, logger *slog.Logger) (Executor, error) {
	if cfg.Type == "" {
		return nil, errors.New("warehouse type not specified")
	}
	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownWarehouseError{Type: cfg.Type, Available: List()}
	}
	return factory(logger), nil
}

// Open creates and connects an executor for cfg.Type.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Executor, error) {
	exec, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := exec.Connect(ctx, cfg); err != nil {
		return nil, err
	}
	return exec, nil
}

// UnknownWarehouseError is returned when an unregistered warehouse type is
// requested.
type UnknownWarehouseError struct {
	Type      string
	Available []string
}

func (e *UnknownWarehouseError) Error() string {
	return fmt.Sprintf("unknown warehouse type %q\nAvailable warehouses: %v\nHint: Check warehouse.type in catalogsync.yaml", e.Type, e.Available)
}
