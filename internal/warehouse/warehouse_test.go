package warehouse

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/snowflakedb/gosnowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/catalogsync/pkg/dialect"
)

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"bigquery", "databricks", "duckdb", "redshift", "snowflake"}, List())

	tests := []struct {
		name string
		kind dialect.Kind
	}{
		{"snowflake", dialect.Snowflake},
		{"redshift", dialect.Redshift},
		{"databricks", dialect.Databricks},
		{"duckdb", dialect.ANSI},
		{"bigquery", dialect.BigQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec, err := New(Config{Type: tt.name}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, exec.Kind())
			assert.NoError(t, exec.Close())
		})
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Config{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warehouse type not specified")

	_, err = New(Config{Type: "teradata"}, nil)
	var unknown *UnknownWarehouseError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "teradata", unknown.Type)
	assert.Contains(t, unknown.Available, "snowflake")
	assert.Contains(t, err.Error(), "Hint: Check warehouse.type")
}

func TestRegister_Custom(t *testing.T) {
	Register("fake-wh", func(logger *slog.Logger) Executor { return NewDuckDB(logger) })
	t.Cleanup(func() {
		registryMu.Lock()
		delete(registry, "fake-wh")
		registryMu.Unlock()
	})

	_, ok := Get("fake-wh")
	assert.True(t, ok)
}

func TestOpen_DuckDBInMemory(t *testing.T) {
	exec, err := Open(context.Background(), Config{Type: "duckdb"}, nil)
	require.NoError(t, err)
	defer func() { _ = exec.Close() }()

	rows, err := exec.Query(context.Background(), "SELECT 42 AS answer, 'x' AS label")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 42, rows[0]["answer"])
	assert.Equal(t, "x", rows[0]["label"])
}

func TestSnowflakeDSN(t *testing.T) {
	dsn, err := snowflakeDSN(Config{
		Account:   "xy12345",
		User:      "loader",
		Password:  "secret",
		Role:      "SYSADMIN",
		Warehouse: "COMPUTE_WH",
		Database:  "QUOLLIO_DATA",
		Schema:    "PUBLIC",
	})
	require.NoError(t, err)

	cfg, err := gosnowflake.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "loader", cfg.User)
	assert.Equal(t, "QUOLLIO_DATA", cfg.Database)
	assert.Equal(t, "COMPUTE_WH", cfg.Warehouse)
	assert.Equal(t, "SYSADMIN", cfg.Role)

	_, err = snowflakeDSN(Config{User: "loader", Password: "secret"})
	assert.Error(t, err)
}

func TestRedshiftDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "defaults",
			cfg:  Config{Host: "rs.example.com", Database: "dev"},
			want: "host=rs.example.com port=5439 dbname=dev sslmode=require",
		},
		{
			name: "credentials and port",
			cfg:  Config{Host: "rs", Port: 5440, Database: "dev", User: "admin", Password: "pw"},
			want: "host=rs port=5440 dbname=dev sslmode=require user=admin password=pw",
		},
		{
			name: "password with space",
			cfg:  Config{Host: "rs", Database: "dev", Password: "a b'c"},
			want: `host=rs port=5439 dbname=dev sslmode=require password='a b\'c'`,
		},
		{
			name: "sslmode option",
			cfg:  Config{Host: "rs", Database: "dev", Options: map[string]string{"sslmode": "disable"}},
			want: "host=rs port=5439 dbname=dev sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, redshiftDSN(tt.cfg))
		})
	}
}

func TestDatabricksDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "minimal",
			cfg:  Config{Host: "dbc-1.cloud.databricks.com", HTTPPath: "/sql/1.0/warehouses/abc", Token: "dapi1"},
			want: "token:dapi1@dbc-1.cloud.databricks.com:443/sql/1.0/warehouses/abc",
		},
		{
			name: "scheme and catalog",
			cfg: Config{
				Host:     "https://dbc-1.cloud.databricks.com/",
				HTTPPath: "sql/1.0/warehouses/abc",
				Token:    "dapi1",
				Database: "main",
				Schema:   "default",
			},
			want: "token:dapi1@dbc-1.cloud.databricks.com:443/sql/1.0/warehouses/abc?catalog=main&schema=default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, databricksDSN(tt.cfg))
		})
	}
}

func TestTrimScheme(t *testing.T) {
	assert.Equal(t, "host.example.com", TrimScheme("https://host.example.com/"))
	assert.Equal(t, "host.example.com", TrimScheme("http://host.example.com"))
	assert.Equal(t, "host.example.com", TrimScheme("host.example.com"))
}
