package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/catalogsync/internal/profiler"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <warehouse>",
		Short: "Send column statistics to the catalog",
		Long: `Read column statistics computed in a warehouse and replace the stats of
the matching catalog assets.

The statistics sent are chosen with profiler.stats in the config file
(or CATALOGSYNC_PROFILER__STATS). Databricks statistics come from
Lakehouse Monitoring tables and always include table stats. BigQuery
statistics come from the Dataplex data profile export tables listed in
bigquery.stats_tables.`,
		Example: `  # Send Redshift column statistics
  catalogsync stats redshift

  # Only cardinality and null counts
  CATALOGSYNC_PROFILER__STATS=cardinality,number_of_null catalogsync stats snowflake`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeWarehouses,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, args[0])
		},
	}
}

func runStats(cmd *cobra.Command, name string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	if err := cc.Cfg.Validate(); err != nil {
		return err
	}
	if name == "duckdb" {
		return fmt.Errorf("stats are not available for %s", name)
	}
	if name == "bigquery" && len(cc.Cfg.BigQuery.StatsTables) == 0 {
		return errors.New("missing bigquery settings: bigquery.stats_tables (DATAPLEX_STATS_TABLES)")
	}

	return cc.track(cmd.Context(), "stats", name, func(ctx context.Context) (profiler.Result, error) {
		exec, wc, err := cc.connect(ctx, name)
		if err != nil {
			return profiler.Result{}, err
		}
		defer func() { _ = exec.Close() }()

		in, err := cc.newIngestor(ctx)
		if err != nil {
			return profiler.Result{}, err
		}

		enabled := cc.Cfg.EnabledStats()
		switch name {
		case "snowflake":
			return in.SnowflakeStats(ctx, exec, profiler.SnowflakeSource{Account: wc.Account, Database: wc.Database, Schema: wc.Schema}, enabled)
		case "redshift":
			return in.RedshiftStats(ctx, exec, profiler.RedshiftSource{Host: wc.Host, Database: wc.Database, Schema: wc.Schema}, enabled)
		case "databricks":
			return in.DatabricksStats(ctx, exec, profiler.DatabricksSource{Host: wc.Host, Catalog: wc.Database, Schema: wc.Schema})
		case "bigquery":
			if wc.Organization, err = resolveEndpoint(ctx, exec, name, wc); err != nil {
				return profiler.Result{}, err
			}
			return in.BigQueryStats(ctx, exec, bigQuerySource(exec, wc), enabled)
		}
		return profiler.Result{}, fmt.Errorf("stats are not available for %s", name)
	})
}
