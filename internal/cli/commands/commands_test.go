package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/catalogsync/internal/cli/config"
	"github.com/leapstack-labs/catalogsync/internal/testutil"
	"github.com/leapstack-labs/catalogsync/internal/warehouse"
	"github.com/leapstack-labs/catalogsync/pkg/dialect"
	"github.com/leapstack-labs/catalogsync/pkg/globalid"
)

const testTenant = "tenant1"

// catalogServer is a fake catalog API that records lineage and stats
// updates.
type catalogServer struct {
	*httptest.Server

	mu      sync.Mutex
	lineage map[string]map[string][]string
	stats   map[string]map[string]any
}

func newCatalogServer(t *testing.T) *catalogServer {
	t.Helper()
	s := &catalogServer{
		lineage: make(map[string]map[string][]string),
		stats:   make(map[string]map[string]any),
	}

	r := chi.NewRouter()
	r.Post("/oauth2/token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"opaque-token"}`))
	})
	r.Put("/v2/lineage/{id}", func(w http.ResponseWriter, r *http.Request) {
		var body map[string][]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.lineage[chi.URLParam(r, "id")] = body
		s.mu.Unlock()
	})
	r.Put("/v2/assets/{id}/stats", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.stats[chi.URLParam(r, "id")] = body
		s.mu.Unlock()
	})

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// mockWarehouse is a connected executor backed by sqlmock.
type mockWarehouse struct {
	*warehouse.BaseExecutor
	kind dialect.Kind
}

func (m mockWarehouse) Connect(context.Context, warehouse.Config) error { return nil }
func (m mockWarehouse) Kind() dialect.Kind                              { return m.kind }

// bigQueryWarehouse adds lineage links and an organization lookup to a
// sqlmock-backed executor.
type bigQueryWarehouse struct {
	mockWarehouse
	org   string
	links map[string][]warehouse.LineageLink
}

func (b bigQueryWarehouse) SearchLinks(_ context.Context, _, target string) ([]warehouse.LineageLink, error) {
	return b.links[target], nil
}

func (b bigQueryWarehouse) OrganizationID(context.Context) (string, error) { return b.org, nil }

// stubWarehouse makes every command connect to a sqlmock database.
func stubWarehouse(t *testing.T, kind dialect.Kind) sqlmock.Sqlmock {
	t.Helper()
	exec, mock := newMockWarehouse(t, kind)
	stubExecutor(t, exec)
	return mock
}

func newMockWarehouse(t *testing.T, kind dialect.Kind) (mockWarehouse, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return mockWarehouse{
		BaseExecutor: &warehouse.BaseExecutor{DB: db, Logger: testutil.NewTestLogger(t)},
		kind:         kind,
	}, mock
}

func stubExecutor(t *testing.T, exec warehouse.Executor) {
	t.Helper()
	orig := openWarehouse
	openWarehouse = func(context.Context, warehouse.Config, *slog.Logger) (warehouse.Executor, error) {
		return exec, nil
	}
	t.Cleanup(func() { openWarehouse = orig })
}

func testConfig(t *testing.T, catalogURL string) *config.Config {
	t.Helper()
	return &config.Config{
		TenantID:  testTenant,
		Output:    "json",
		StatePath: filepath.Join(t.TempDir(), "state", "state.db"),
		Catalog: config.CatalogConfig{
			URL:          catalogURL,
			ClientID:     "client",
			ClientSecret: "secret",
		},
		Profiler: config.ProfilerConfig{Parallelism: 2},
		Snowflake: warehouse.Config{
			Account: "acct", User: "u", Password: "p", Database: "DWH", Schema: "QUOLLIO",
		},
		DuckDB: warehouse.Config{Path: "warehouse.duckdb"},
	}
}

// execute runs cmd with cfg and a test logger in its context, the way
// the root command sets them up.
func execute(t *testing.T, cmd *cobra.Command, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	ctx := config.WithConfig(context.Background(), cfg)
	ctx = context.WithValue(ctx, config.LoggerKey(), testutil.NewTestLogger(t))
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func history(t *testing.T, cfg *config.Config) []HistoryEntry {
	t.Helper()
	out, err := execute(t, NewHistoryCommand(), cfg)
	require.NoError(t, err)
	var entries []HistoryEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	return entries
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewLineageCommand(), "lineage <warehouse>", []string{"skip-column-lineage", "history-table"}},
		{NewStatsCommand(), "stats <warehouse>", nil},
		{NewParseCommand(), "parse [file|-]", []string{"dialect", "src-db", "src-schema", "dest-db", "dest-schema", "endpoint"}},
		{NewQueryCommand(), "query <warehouse> [SQL]", []string{"input"}},
		{NewHistoryCommand(), "history", []string{"limit"}},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Example, "Example should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestLineageCommand_Snowflake(t *testing.T) {
	catalog := newCatalogServer(t)
	mock := stubWarehouse(t, dialect.Snowflake)
	mock.ExpectQuery(`SELECT \* FROM DWH\.QUOLLIO\.QUOLLIO_LINEAGE_TABLE_LEVEL`).WillReturnRows(
		sqlmock.NewRows([]string{"DOWNSTREAM_TABLE_NAME", "DOWNSTREAM_TABLE_DOMAIN", "UPSTREAM_TABLES"}).
			AddRow("DB.SCH.DST", "TABLE", `[{"upstream_object_name":"DB.SCH.SRC","upstream_object_domain":"TABLE"}]`))

	cfg := testConfig(t, catalog.URL)
	out, err := execute(t, NewLineageCommand(), cfg, "snowflake", "--skip-column-lineage")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	var summary RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, "lineage", summary.Command)
	assert.Equal(t, "snowflake", summary.Warehouse)
	assert.Equal(t, "completed", summary.Status)
	assert.Equal(t, 1, summary.Attempted)
	assert.Equal(t, 1, summary.Succeeded)

	dst := globalid.TableID(testTenant, "acct", "DB", "SCH", "DST")
	src := globalid.TableID(testTenant, "acct", "DB", "SCH", "SRC")
	assert.Equal(t, map[string][]string{dst: {src}}, catalog.lineage[dst])

	entries := history(t, cfg)
	require.Len(t, entries, 1)
	assert.Equal(t, summary.RunID, entries[0].ID)
	assert.NotNil(t, entries[0].CompletedAt)
}

func TestLineageCommand_FailureIsRecorded(t *testing.T) {
	catalog := newCatalogServer(t)
	mock := stubWarehouse(t, dialect.Snowflake)
	mock.ExpectQuery(`QUOLLIO_LINEAGE_TABLE_LEVEL`).WillReturnError(assert.AnError)

	cfg := testConfig(t, catalog.URL)
	_, err := execute(t, NewLineageCommand(), cfg, "snowflake")
	require.ErrorIs(t, err, assert.AnError)

	entries := history(t, cfg)
	require.Len(t, entries, 1)
	assert.Equal(t, "failed", entries[0].Status)
	assert.Contains(t, entries[0].Error, "failed to read snowflake table lineage")
}

func TestLineageCommand_QueryHistory(t *testing.T) {
	catalog := newCatalogServer(t)
	mock := stubWarehouse(t, dialect.ANSI)
	mock.ExpectQuery(`SELECT query_text, database_name, schema_name FROM main\.query_history`).WillReturnRows(
		sqlmock.NewRows([]string{"query_text", "database_name", "schema_name"}).
			AddRow("insert into dst select * from src", "db", "sc"))

	cfg := testConfig(t, catalog.URL)
	out, err := execute(t, NewLineageCommand(), cfg, "duckdb", "--history-table", "main.query_history")
	require.NoError(t, err)

	var summary RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 1, summary.Succeeded)

	dst := globalid.TableID(testTenant, "warehouse.duckdb", "db", "sc", "dst")
	src := globalid.TableID(testTenant, "warehouse.duckdb", "db", "sc", "src")
	assert.Equal(t, map[string][]string{dst: {src}}, catalog.lineage[dst])
}

func TestLineageCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "duckdb needs a history table",
			args:    []string{"duckdb"},
			wantErr: "--history-table",
		},
		{
			name:    "missing warehouse settings",
			args:    []string{"snowflake"},
			mutate:  func(c *config.Config) { c.Snowflake.Account = "" },
			wantErr: "missing snowflake settings: snowflake.account",
		},
		{
			name:    "invalid config",
			args:    []string{"snowflake"},
			mutate:  func(c *config.Config) { c.TenantID = "" },
			wantErr: "TENANT_ID",
		},
		{
			name:    "unknown warehouse",
			args:    []string{"oracle"},
			wantErr: `unknown warehouse type "oracle"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := newCatalogServer(t)
			stubWarehouse(t, dialect.ANSI)
			cfg := testConfig(t, catalog.URL)
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			_, err := execute(t, NewLineageCommand(), cfg, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLineageCommand_BigQuery(t *testing.T) {
	catalog := newCatalogServer(t)
	exec, mock := newMockWarehouse(t, dialect.BigQuery)
	stubExecutor(t, bigQueryWarehouse{
		mockWarehouse: exec,
		org:           "org-7",
		links: map[string][]warehouse.LineageLink{
			"bigquery:proj.mart.daily": {{Source: "bigquery:proj.sales.orders", Target: "bigquery:proj.mart.daily"}},
		},
	})
	mock.ExpectQuery("FROM `proj`.`region-us`.INFORMATION_SCHEMA.TABLES").WillReturnRows(
		sqlmock.NewRows([]string{"table_catalog", "table_schema", "table_name", "table_type"}).
			AddRow("proj", "mart", "daily", "VIEW").
			AddRow("proj", "sales", "orders", "BASE TABLE").
			AddRow("proj", "sales", "ext", "EXTERNAL"))

	cfg := testConfig(t, catalog.URL)
	cfg.BigQuery = warehouse.Config{Credentials: "/secrets/sa.json", Project: "proj", Regions: []string{"us"}}
	out, err := execute(t, NewLineageCommand(), cfg, "bigquery")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	var summary RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, "bigquery", summary.Warehouse)
	assert.Equal(t, 1, summary.Succeeded)

	dst := globalid.TableID(testTenant, "org-7", "proj", "mart", "daily")
	src := globalid.TableID(testTenant, "org-7", "proj", "sales", "orders")
	assert.Equal(t, map[string][]string{dst: {src}}, catalog.lineage[dst])
}

func TestStatsCommand_BigQuery(t *testing.T) {
	catalog := newCatalogServer(t)
	mock := stubWarehouse(t, dialect.BigQuery)
	mock.ExpectQuery("WITH dataplex_profile AS[\\s\\S]*FROM `proj\\.dataplex\\.orders_profile`").WillReturnRows(
		sqlmock.NewRows([]string{
			"db_name", "schema_name", "table_name", "column_name",
			"max_value", "min_value", "null_count", "cardinality",
			"avg_value", "median_value", "mode_value", "stddev_value",
		}).AddRow("proj", "sales", "orders", "amount", "99", "1", int64(0), int64(42), "10.5", "9", "8", "2.25"))

	cfg := testConfig(t, catalog.URL)
	cfg.BigQuery = warehouse.Config{
		Credentials:  "/secrets/sa.json",
		Organization: "org-1",
		StatsTables:  []string{"proj.dataplex.orders_profile"},
	}
	_, err := execute(t, NewStatsCommand(), cfg, "bigquery")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	id := globalid.ColumnID(testTenant, "org-1", "proj", "sales", "orders", "amount")
	require.Contains(t, catalog.stats, id)
	cs := catalog.stats[id]["column_stats"].(map[string]any)
	assert.Equal(t, "10.5", cs["mean"])
}

func TestBigQueryCommands_MissingSettings(t *testing.T) {
	catalog := newCatalogServer(t)
	stubWarehouse(t, dialect.BigQuery)
	cfg := testConfig(t, catalog.URL)
	cfg.BigQuery = warehouse.Config{Credentials: "/secrets/sa.json", Organization: "org-1"}

	_, err := execute(t, NewLineageCommand(), cfg, "bigquery")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bigquery.regions (GCP_REGIONS)")

	_, err = execute(t, NewStatsCommand(), cfg, "bigquery")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bigquery.stats_tables (DATAPLEX_STATS_TABLES)")
}

func TestStatsCommand_DuckDB(t *testing.T) {
	cfg := testConfig(t, "http://unused")
	_, err := execute(t, NewStatsCommand(), cfg, "duckdb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stats are not available for duckdb")
}

const parseScript = `insert into mart.public.a select * from dwh.public.x;
select * from nowhere;
create table (;
create table mart.public.b as select * from dwh.public.y join dwh.public.z on y.id = z.id`

func TestParseCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etl.sql")
	require.NoError(t, os.WriteFile(path, []byte(parseScript), 0600))

	cfg := testConfig(t, "")
	out, err := execute(t, NewParseCommand(), cfg, path, "--dialect", "redshift", "--endpoint", "ep")
	require.NoError(t, err)

	var stmts []ParsedStatement
	require.NoError(t, json.Unmarshal([]byte(out), &stmts))
	require.Len(t, stmts, 4)

	assert.Equal(t, 1, stmts[0].Line)
	assert.Equal(t, "mart.public.a", stmts[0].Destination)
	assert.Equal(t, []string{"dwh.public.x"}, stmts[0].Sources)
	assert.Equal(t, globalid.TableID(testTenant, "ep", "mart", "public", "a"), stmts[0].DestinationID)
	assert.Equal(t, []string{globalid.TableID(testTenant, "ep", "dwh", "public", "x")}, stmts[0].SourceIDs)

	assert.Empty(t, stmts[1].Destination)
	assert.Empty(t, stmts[1].Error)

	assert.Equal(t, 3, stmts[2].Line)
	assert.NotEmpty(t, stmts[2].Error)

	assert.Equal(t, "mart.public.b", stmts[3].Destination)
	assert.Equal(t, []string{"dwh.public.y", "dwh.public.z"}, stmts[3].Sources)
}

func TestParseCommand_Stdin(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Output = "text"

	cmd := NewParseCommand()
	cmd.SetIn(strings.NewReader("create table dst as select * from src"))
	out, err := execute(t, cmd, cfg, "-", "--dialect", "snowflake", "--dest-db", "DWH", "--dest-schema", "PUBLIC",
		"--src-db", "RAW", "--src-schema", "LANDING")
	require.NoError(t, err)
	assert.Contains(t, out, "DWH.PUBLIC.DST")
	assert.Contains(t, out, "RAW.LANDING.SRC")
}

func TestParseCommand_Errors(t *testing.T) {
	cfg := testConfig(t, "")

	cmd := NewParseCommand()
	cmd.SetIn(strings.NewReader("select 1"))
	_, err := execute(t, cmd, cfg, "--dialect", "mysql")
	assert.ErrorIs(t, err, dialect.ErrUnknownDialect)

	cmd = NewParseCommand()
	cmd.SetIn(strings.NewReader("create table (; insert into"))
	_, err = execute(t, cmd, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no statement could be parsed")

	_, err = execute(t, NewParseCommand(), cfg, filepath.Join(t.TempDir(), "missing.sql"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestQueryCommand(t *testing.T) {
	mock := stubWarehouse(t, dialect.Snowflake)
	mock.ExpectQuery(`SELECT 1 AS N, NULL AS X`).WillReturnRows(
		sqlmock.NewRows([]string{"N", "X"}).AddRow(int64(1), nil))

	cfg := testConfig(t, "")
	cfg.Output = "text"
	out, err := execute(t, NewQueryCommand(), cfg, "snowflake", "SELECT 1 AS N, NULL AS X")
	require.NoError(t, err)
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "(1 rows)")
}

func TestQueryCommand_NoSQL(t *testing.T) {
	_, err := execute(t, NewQueryCommand(), testConfig(t, ""), "snowflake")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no SQL given")
}

func TestHistoryCommand_Empty(t *testing.T) {
	entries := history(t, testConfig(t, ""))
	assert.Empty(t, entries)
}

// keyProject reports the project read from a service account key.
type keyProject struct{ mockWarehouse }

func (keyProject) Project() string { return "from-key" }

func TestBigQuerySource_Project(t *testing.T) {
	wc := warehouse.Config{Organization: "org-1", Regions: []string{"us"}}
	src := bigQuerySource(keyProject{}, wc)
	assert.Equal(t, "from-key", src.Project)
	assert.Equal(t, "org-1", src.Organization)

	wc.Project = "configured"
	assert.Equal(t, "configured", bigQuerySource(keyProject{}, wc).Project)
}
