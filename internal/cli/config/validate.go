package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/catalogsync/internal/warehouse"
	"github.com/leapstack-labs/catalogsync/pkg/payload"
)

// Validate checks the settings every sync command needs.
func (c *Config) Validate() error {
	var missing []string
	if c.TenantID == "" {
		missing = append(missing, "tenant_id (TENANT_ID)")
	}
	if c.Catalog.URL == "" {
		missing = append(missing, "catalog.url (QDC_API_URL)")
	}
	if c.Catalog.ClientID == "" {
		missing = append(missing, "catalog.client_id (QDC_CLIENT_ID)")
	}
	if c.Catalog.ClientSecret == "" {
		missing = append(missing, "catalog.client_secret (QDC_CLIENT_SECRET)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}

	if c.Profiler.Parallelism < 1 {
		return errors.New("profiler.parallelism must be at least 1")
	}
	known := payload.TargetStatsItems(nil)
	for _, s := range c.Profiler.Stats {
		if _, ok := known[s]; !ok {
			return fmt.Errorf("unknown stat %q in profiler.stats\nAvailable stats: %v", s, payload.ColumnStatsItems())
		}
	}
	return nil
}

// Warehouse returns the connection settings for the named warehouse,
// checking the fields that warehouse needs.
func (c *Config) Warehouse(name string) (warehouse.Config, error) {
	var (
		wc       warehouse.Config
		required map[string]string
	)
	switch name {
	case "snowflake":
		wc = c.Snowflake
		required = map[string]string{
			"account": wc.Account, "user": wc.User, "password": wc.Password,
			"database": wc.Database, "schema": wc.Schema,
		}
	case "redshift":
		wc = c.Redshift
		required = map[string]string{
			"host": wc.Host, "user": wc.User, "database": wc.Database, "schema": wc.Schema,
		}
	case "databricks":
		wc = c.Databricks
		required = map[string]string{
			"host": wc.Host, "http_path": wc.HTTPPath, "token": wc.Token,
			"database": wc.Database, "schema": wc.Schema,
		}
	case "duckdb":
		wc = c.DuckDB
	case "bigquery":
		wc = c.BigQuery
		required = map[string]string{"credentials": wc.Credentials}
	default:
		return warehouse.Config{}, &warehouse.UnknownWarehouseError{Type: name, Available: warehouse.List()}
	}
	wc.Type = name

	var missing []string
	for key, val := range required {
		if val == "" {
			missing = append(missing, name+"."+key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return warehouse.Config{}, fmt.Errorf("missing %s settings: %s", name, strings.Join(missing, ", "))
	}
	return wc, nil
}

// EnabledStats returns the configured stats as the map the stats
// renderer expects.
func (c *Config) EnabledStats() map[string]bool {
	return payload.TargetStatsItems(c.Profiler.Stats)
}
