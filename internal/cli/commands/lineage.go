package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/catalogsync/internal/profiler"
	"github.com/leapstack-labs/catalogsync/internal/warehouse"
)

// LineageOptions holds options for the lineage command.
type LineageOptions struct {
	SkipColumnLineage bool
	HistoryTable      string
}

// NewLineageCommand creates the lineage command.
func NewLineageCommand() *cobra.Command {
	opts := &LineageOptions{}

	cmd := &cobra.Command{
		Use:   "lineage <warehouse>",
		Short: "Send table and column lineage to the catalog",
		Long: `Read lineage from the profiling views in a warehouse and replace the
upstream lists of the matching catalog assets.

Snowflake and Databricks send table and column lineage. Redshift sends
table and view lineage. BigQuery sends the table lineage recorded by the
Data Lineage API in every region listed in bigquery.regions. With --history-table, lineage is also extracted
from the SQL text of executed queries (columns query_text, database_name
and schema_name).`,
		Example: `  # Send Snowflake lineage
  catalogsync lineage snowflake

  # Table level only
  catalogsync lineage databricks --skip-column-lineage

  # BigQuery lineage across two regions
  GCP_REGIONS=us,asia-northeast1 catalogsync lineage bigquery

  # Parse query history kept in a local DuckDB file
  catalogsync lineage duckdb --history-table main.query_history`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeWarehouses,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLineage(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.SkipColumnLineage, "skip-column-lineage", false, "Send table level lineage only")
	cmd.Flags().StringVar(&opts.HistoryTable, "history-table", "", "Table of executed queries to extract lineage from")

	return cmd
}

func runLineage(cmd *cobra.Command, name string, opts *LineageOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	if err := cc.Cfg.Validate(); err != nil {
		return err
	}
	if name == "bigquery" && len(cc.Cfg.BigQuery.Regions) == 0 {
		return errors.New("missing bigquery settings: bigquery.regions (GCP_REGIONS)")
	}
	skipColumns := opts.SkipColumnLineage || cc.Cfg.Profiler.SkipColumnLineage

	return cc.track(cmd.Context(), "lineage", name, func(ctx context.Context) (profiler.Result, error) {
		exec, wc, err := cc.connect(ctx, name)
		if err != nil {
			return profiler.Result{}, err
		}
		defer func() { _ = exec.Close() }()

		in, err := cc.newIngestor(ctx)
		if err != nil {
			return profiler.Result{}, err
		}

		ep, err := resolveEndpoint(ctx, exec, name, wc)
		if err != nil {
			return profiler.Result{}, err
		}
		if name == "bigquery" {
			wc.Organization = ep
		}

		res, err := warehouseLineage(ctx, in, exec, name, wc, skipColumns, opts.HistoryTable != "")
		if err != nil || opts.HistoryTable == "" {
			return res, err
		}

		rows, err := exec.Query(ctx, "SELECT query_text, database_name, schema_name FROM "+opts.HistoryTable)
		if err != nil {
			return res, err
		}
		sqlRes, err := in.SQLLineage(ctx, profiler.QueryHistoryFromMaps(rows), exec.Kind(), ep)
		return res.Add(sqlRes), err
	})
}

// warehouseLineage sends the lineage kept in the warehouse's profiling
// views. DuckDB has none, so it needs a query history table.
func warehouseLineage(ctx context.Context, in *profiler.Ingestor, q profiler.Querier, name string, wc warehouse.Config, skipColumns, hasHistory bool) (profiler.Result, error) {
	switch name {
	case "snowflake":
		src := profiler.SnowflakeSource{Account: wc.Account, Database: wc.Database, Schema: wc.Schema}
		if skipColumns {
			return in.SnowflakeTableLineage(ctx, q, src)
		}
		return in.SnowflakeLineage(ctx, q, src)
	case "redshift":
		return in.RedshiftLineage(ctx, q, profiler.RedshiftSource{Host: wc.Host, Database: wc.Database, Schema: wc.Schema})
	case "databricks":
		src := profiler.DatabricksSource{Host: wc.Host, Catalog: wc.Database, Schema: wc.Schema}
		if skipColumns {
			return in.DatabricksTableLineage(ctx, q, src)
		}
		return in.DatabricksLineage(ctx, q, src)
	case "bigquery":
		links, ok := q.(profiler.LinkSearcher)
		if !ok {
			return profiler.Result{}, fmt.Errorf("%s warehouse cannot search lineage links", name)
		}
		return in.BigQueryLineage(ctx, q, links, bigQuerySource(q, wc))
	}
	if !hasHistory {
		return profiler.Result{}, fmt.Errorf("%s has no lineage views\nHint: Use --history-table to extract lineage from query history", name)
	}
	return profiler.Result{}, nil
}

// bigQuerySource describes the project the executor q connected to. The
// project may come from the service account key rather than the config.
func bigQuerySource(q profiler.Querier, wc warehouse.Config) profiler.BigQuerySource {
	project := wc.Project
	if p, ok := q.(interface{ Project() string }); ok && project == "" {
		project = p.Project()
	}
	return profiler.BigQuerySource{
		Project:      project,
		Organization: wc.Organization,
		Regions:      wc.Regions,
		StatsTables:  wc.StatsTables,
	}
}
