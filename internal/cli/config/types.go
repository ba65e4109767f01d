// Package config loads the catalogsync configuration.
//
// Values are layered, lowest to highest: built-in defaults, the YAML
// config file, environment variables, then flags the user set
// explicitly. Environment variables keep the names the profilers have
// always used (TENANT_ID, QDC_API_URL, SNOWFLAKE_ACCOUNT_ID, ...); any
// other key can be set with a CATALOGSYNC_ variable, using a double
// underscore between sections (CATALOGSYNC_CATALOG__MAX_ATTEMPTS).
package config

import (
	"time"

	"github.com/leapstack-labs/catalogsync/internal/warehouse"
)

// Config holds all CLI configuration options.
type Config struct {
	TenantID  string `koanf:"tenant_id"`
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`
	Output    string `koanf:"output"`
	StatePath string `koanf:"state_path"`

	Catalog  CatalogConfig  `koanf:"catalog"`
	Profiler ProfilerConfig `koanf:"profiler"`

	Snowflake  warehouse.Config `koanf:"snowflake"`
	Redshift   warehouse.Config `koanf:"redshift"`
	Databricks warehouse.Config `koanf:"databricks"`
	DuckDB     warehouse.Config `koanf:"duckdb"`
	BigQuery   warehouse.Config `koanf:"bigquery"`
}

// CatalogConfig configures the catalog API client.
type CatalogConfig struct {
	URL               string        `koanf:"url"`
	ClientID          string        `koanf:"client_id"`
	ClientSecret      string        `koanf:"client_secret"`
	MaxAttempts       int           `koanf:"max_attempts"`
	BackoffBase       time.Duration `koanf:"backoff_base"`
	BackoffCap        time.Duration `koanf:"backoff_cap"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
}

// ProfilerConfig tunes the profilers.
type ProfilerConfig struct {
	// Parallelism bounds concurrent catalog updates.
	Parallelism int `koanf:"parallelism"`

	// Stats lists the column statistics to send. A comma-separated string
	// is accepted from the environment.
	Stats []string `koanf:"stats"`

	// SkipColumnLineage limits lineage runs to table level.
	SkipColumnLineage bool `koanf:"skip_column_lineage"`
}

// Default configuration values.
const (
	DefaultConfigFile = "catalogsync.yaml"
	DefaultStateFile  = ".catalogsync/state.db"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
	DefaultOutput     = "auto" // text on a terminal, json otherwise
)

// envKeys maps the profilers' environment variables to config keys.
var envKeys = map[string]string{
	"TENANT_ID":         "tenant_id",
	"LOG_LEVEL":         "log_level",
	"QDC_API_URL":       "catalog.url",
	"QDC_CLIENT_ID":     "catalog.client_id",
	"QDC_CLIENT_SECRET": "catalog.client_secret",

	"SNOWFLAKE_ACCOUNT_ID": "snowflake.account",
	"SNOWFLAKE_USER":       "snowflake.user",
	"SNOWFLAKE_PASSWORD":   "snowflake.password",
	"SNOWFLAKE_ROLE":       "snowflake.role",
	"SNOWFLAKE_WAREHOUSE":  "snowflake.warehouse",
	"SNOWFLAKE_DATABASE":   "snowflake.database",
	"SNOWFLAKE_SCHEMA":     "snowflake.schema",

	"REDSHIFT_HOST":            "redshift.host",
	"REDSHIFT_PORT":            "redshift.port",
	"REDSHIFT_QUERY_USER":      "redshift.user",
	"REDSHIFT_QUERY_PASSWORD":  "redshift.password",
	"REDSHIFT_TARGET_DATABASE": "redshift.database",
	"REDSHIFT_TARGET_SCHEMA":   "redshift.schema",

	"DATABRICKS_HOST":           "databricks.host",
	"DATABRICKS_HTTP_PATH":      "databricks.http_path",
	"DATABRICKS_TOKEN":          "databricks.token",
	"DATABRICKS_TARGET_CATALOG": "databricks.database",
	"DATABRICKS_TARGET_SCHEMA":  "databricks.schema",

	"GOOGLE_APPLICATION_CREDENTIALS": "bigquery.credentials",
	"GCP_PROJECT_ID":                 "bigquery.project",
	"GCP_REGIONS":                    "bigquery.regions",
	"DATAPLEX_STATS_TABLES":          "bigquery.stats_tables",
}

// EnvVars returns the environment variables read under their own names,
// mapped to the config keys they set.
func EnvVars() map[string]string {
	out := make(map[string]string, len(envKeys))
	for k, v := range envKeys {
		out[k] = v
	}
	return out
}
