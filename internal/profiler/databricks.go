package profiler

import (
	"context"
	"fmt"
	"strings"

	"github.com/leapstack-labs/catalogsync/internal/warehouse"
	"github.com/leapstack-labs/catalogsync/pkg/payload"
)

// Databricks table names.
const (
	DatabricksTableLineageTable  = "quollio_lineage_table_level"
	DatabricksColumnLineageTable = "quollio_lineage_column_level"
	ProfileMetricsSuffix         = "_profile_metrics"
)

// DatabricksSource locates the lineage tables in a Databricks workspace.
// The host, without scheme, is the catalog endpoint.
type DatabricksSource struct {
	Host    string
	Catalog string
	Schema  string
}

func (s DatabricksSource) endpoint() string { return warehouse.TrimScheme(s.Host) }

// DatabricksTableLineage ingests quollio_lineage_table_level, whose
// UPSTREAM_TABLES column is an array of structs.
func (in *Ingestor) DatabricksTableLineage(ctx context.Context, q Querier, src DatabricksSource) (Result, error) {
	rows, err := q.Query(ctx, fmt.Sprintf("SELECT DOWNSTREAM_TABLE_NAME, UPSTREAM_TABLES FROM %s",
		fqn(src.Catalog, src.Schema, DatabricksTableLineageTable)))
	if err != nil {
		return Result{}, fmt.Errorf("failed to read databricks table lineage: %w", err)
	}
	tables := payload.TableLineageRowsFromMaps(in.logger(), rows)
	inputs := payload.BuildTableLineage(in.logger(), in.TenantID, src.endpoint(), tables)
	return in.pushLineage(ctx, "table", inputs)
}

// DatabricksColumnLineage ingests quollio_lineage_column_level.
func (in *Ingestor) DatabricksColumnLineage(ctx context.Context, q Querier, src DatabricksSource) (Result, error) {
	rows, err := q.Query(ctx, fmt.Sprintf("SELECT * FROM %s",
		fqn(src.Catalog, src.Schema, DatabricksColumnLineageTable)))
	if err != nil {
		return Result{}, fmt.Errorf("failed to read databricks column lineage: %w", err)
	}
	columns := payload.ColumnLineageRowsFromMaps(in.logger(), rows)
	inputs := payload.BuildColumnLineage(in.logger(), in.TenantID, src.endpoint(), columns)
	return in.pushLineage(ctx, "column", inputs)
}

// DatabricksLineage runs table lineage then column lineage.
func (in *Ingestor) DatabricksLineage(ctx context.Context, q Querier, src DatabricksSource) (Result, error) {
	tables, err := in.DatabricksTableLineage(ctx, q, src)
	if err != nil {
		return tables, err
	}
	columns, err := in.DatabricksColumnLineage(ctx, q, src)
	return tables.Add(columns), err
}

// databricksStatsSQL reads the latest window of a Lakehouse Monitoring
// profile table. The mode is the most frequent item of that window.
func databricksStatsSQL(metricsTable string, monitored tableName) string {
	return fmt.Sprintf(`WITH MaxCounts AS (
    SELECT
        t.COLUMN_NAME,
        MAX(item.count) AS max_count,
        MAX(t.window) AS latest
    FROM
        %[1]s t
    LATERAL VIEW EXPLODE(t.frequent_items) AS item
    GROUP BY t.COLUMN_NAME
)
SELECT
    %[2]s as DB_NAME,
    %[3]s as SCHEMA_NAME,
    %[4]s as TABLE_NAME,
    t.COLUMN_NAME,
    t.DATA_TYPE,
    t.distinct_count as CARDINALITY,
    t.MAX as MAX_VALUE,
    t.MIN as MIN_VALUE,
    t.AVG as AVG_VALUE,
    t.MEDIAN as MEDIAN_VALUE,
    t.STDDEV as STDDEV_VALUE,
    t.NUM_NULLS as NULL_COUNT,
    item.item AS MODE_VALUE
FROM
    %[1]s t
JOIN MaxCounts mc ON t.COLUMN_NAME = mc.COLUMN_NAME
LATERAL VIEW EXPLODE(t.frequent_items) AS item
WHERE
    item.count = mc.max_count
    AND t.window = mc.latest
`, metricsTable, quoteLiteral(monitored.catalog), quoteLiteral(monitored.schema), quoteLiteral(monitored.name))
}

// DatabricksStats ingests column statistics from every monitoring profile
// table visible in system.information_schema. The request carries both
// the column and table sections.
func (in *Ingestor) DatabricksStats(ctx context.Context, q Querier, src DatabricksSource) (Result, error) {
	tables, err := in.distinctTables(ctx, q, fmt.Sprintf(
		"SELECT table_catalog, table_schema, table_name FROM system.information_schema.tables WHERE table_name LIKE %s",
		quoteLiteral("%"+ProfileMetricsSuffix)))
	if err != nil {
		return Result{}, fmt.Errorf("failed to list databricks monitoring tables: %w", err)
	}
	if len(tables) == 0 {
		in.logger().Info("No monitoring tables found.")
		return Result{}, nil
	}
	in.logger().Info(fmt.Sprintf("Found %d monitoring tables.", len(tables)))

	var total Result
	for _, t := range tables {
		monitored := tableName{t.catalog, t.schema, strings.TrimSuffix(t.name, ProfileMetricsSuffix)}
		if monitored.name == "" {
			in.logger().Warn("skipping monitoring table without a monitored table", "table", t.name)
			continue
		}
		metrics := fqn(t.catalog, t.schema, t.name)
		rows, err := q.Query(ctx, databricksStatsSQL(metrics, monitored))
		if err != nil {
			return total, fmt.Errorf("failed to read monitoring table %s: %w", metrics, err)
		}
		reqs := payload.BuildStatsFromMaps(in.logger(), in.TenantID, src.endpoint(), rows)
		res, err := in.pushStats(ctx, reqs, payload.StatsInput.Body)
		total = total.Add(res)
		if err != nil {
			return total, err
		}
	}
	in.logStatsFinished(total)
	return total, nil
}
