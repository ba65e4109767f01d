package profiler

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/catalogsync/internal/warehouse"
	"github.com/leapstack-labs/catalogsync/pkg/payload"
)

// bigQueryFQNPrefix marks BigQuery entities in Data Lineage names.
const bigQueryFQNPrefix = "bigquery:"

// bigQueryLineageTypes are the INFORMATION_SCHEMA table types that can
// carry lineage. External tables and snapshots are left out.
var bigQueryLineageTypes = map[string]bool{
	"BASE TABLE":        true,
	"VIEW":              true,
	"MATERIALIZED VIEW": true,
}

// LinkSearcher finds the lineage links recorded for a table.
// *warehouse.BigQuery implements it.
type LinkSearcher interface {
	SearchLinks(ctx context.Context, region, target string) ([]warehouse.LineageLink, error)
}

// BigQuerySource locates a BigQuery project. Organization is the catalog
// endpoint.
type BigQuerySource struct {
	Project      string
	Organization string
	Regions      []string

	// StatsTables are Dataplex data profile export tables, as
	// project.dataset.table.
	StatsTables []string
}

// BigQueryTables lists the project's tables, views and materialized
// views in every region as sorted project.dataset.table names.
func (in *Ingestor) BigQueryTables(ctx context.Context, q Querier, src BigQuerySource) ([]string, error) {
	seen := make(map[string]bool)
	var names []string
	for _, region := range src.Regions {
		sql := fmt.Sprintf("SELECT table_catalog, table_schema, table_name, table_type\n"+
			"FROM `%s`.`region-%s`.INFORMATION_SCHEMA.TABLES", src.Project, region)
		tuples, err := q.QueryTuples(ctx, sql)
		if err != nil {
			return nil, fmt.Errorf("failed to list bigquery tables in %s: %w", region, err)
		}
		for _, t := range tuples {
			if len(t) != 4 {
				continue
			}
			typ, _ := t[3].(string)
			if !bigQueryLineageTypes[typ] {
				continue
			}
			project, ok1 := t[0].(string)
			dataset, ok2 := t[1].(string)
			table, ok3 := t[2].(string)
			if !ok1 || !ok2 || !ok3 {
				continue
			}
			name := fqn(project, dataset, table)
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

// BigQueryLineageGraph searches every region for links targeting each
// table and returns the sources per target. Links to non-BigQuery
// entities are ignored.
func (in *Ingestor) BigQueryLineageGraph(ctx context.Context, s LinkSearcher, regions, tables []string) (map[string][]string, error) {
	graph := make(map[string][]string)
	for _, table := range tables {
		for _, region := range regions {
			links, err := s.SearchLinks(ctx, region, bigQueryFQNPrefix+table)
			if err != nil {
				return nil, err
			}
			for _, l := range links {
				src, ok1 := strings.CutPrefix(l.Source, bigQueryFQNPrefix)
				dst, ok2 := strings.CutPrefix(l.Target, bigQueryFQNPrefix)
				if !ok1 || !ok2 {
					in.logger().Debug("skipping non-bigquery lineage link", "source", l.Source, "target", l.Target)
					continue
				}
				graph[dst] = append(graph[dst], src)
			}
		}
	}
	return graph, nil
}

// BigQueryLineage ingests the table lineage the Data Lineage API recorded
// for the project.
func (in *Ingestor) BigQueryLineage(ctx context.Context, q Querier, s LinkSearcher, src BigQuerySource) (Result, error) {
	tables, err := in.BigQueryTables(ctx, q, src)
	if err != nil {
		return Result{}, err
	}
	in.logger().Info(fmt.Sprintf("Found %d tables in %s.", len(tables), src.Project))

	graph, err := in.BigQueryLineageGraph(ctx, s, src.Regions, tables)
	if err != nil {
		return Result{}, err
	}
	rows := payload.TableLineageRowsFromGraph(graph)
	return in.pushLineage(ctx, "table", payload.BuildTableLineage(in.logger(), in.TenantID, src.Organization, rows))
}

// BigQueryStats ingests the latest column profile of every Dataplex
// export table. enabled selects the stats to send; nil sends them all.
func (in *Ingestor) BigQueryStats(ctx context.Context, q Querier, src BigQuerySource, enabled map[string]bool) (Result, error) {
	if enabled == nil {
		enabled = payload.TargetStatsItems(payload.ColumnStatsItems())
	}

	var total Result
	for _, table := range src.StatsTables {
		if !validBigQueryTable(table) {
			in.logger().Warn("skipping invalid dataplex stats table", "table", table)
			continue
		}
		in.logger().Info(fmt.Sprintf("Profiling columns using Dataplex stats table: %s", table))
		rows, err := q.Query(ctx, payload.RenderStatsSQL(enabled, "dataplex_profile", dataplexProfileCTE(table)))
		if err != nil {
			return total, fmt.Errorf("failed to read dataplex stats table %s: %w", table, err)
		}
		reqs := payload.BuildStatsFromMaps(in.logger(), in.TenantID, src.Organization, rows)
		res, err := in.pushStats(ctx, reqs, payload.StatsInput.ColumnStatsBody)
		total = total.Add(res)
		if err != nil {
			return total, err
		}
	}
	in.logStatsFinished(total)
	return total, nil
}

// validBigQueryTable reports whether name is project.dataset.table with
// no empty part and no backquote.
func validBigQueryTable(name string) bool {
	parts := strings.Split(name, ".")
	if len(parts) != 3 || strings.Contains(name, "`") {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

// dataplexProfileCTE maps the latest scan of a Dataplex data profile
// export table onto the stats columns. Null and distinct counts are
// derived from the scanned row count.
func dataplexProfileCTE(table string) string {
	return "WITH dataplex_profile AS (\n" +
		"    SELECT\n" +
		"        data_source.table_project_id AS db_name\n" +
		"        , data_source.dataset_id AS schema_name\n" +
		"        , data_source.table_id AS table_name\n" +
		"        , column_name\n" +
		"        , CAST(max_value AS STRING) AS max_value\n" +
		"        , CAST(min_value AS STRING) AS min_value\n" +
		"        , CAST(ROUND(percent_null / 100 * job_rows_scanned) AS INT64) AS null_count\n" +
		"        , CAST(ROUND(percent_unique / 100 * job_rows_scanned) AS INT64) AS cardinality\n" +
		"        , CAST(average_value AS STRING) AS avg_value\n" +
		"        , CAST(quartile_median AS STRING) AS median_value\n" +
		"        , top_n[SAFE_OFFSET(0)].value AS mode_value\n" +
		"        , CAST(standard_deviation AS STRING) AS stddev_value\n" +
		"    FROM `" + table + "`\n" +
		"    WHERE column_name IS NOT NULL\n" +
		"    QUALIFY ROW_NUMBER() OVER (\n" +
		"        PARTITION BY data_source.table_project_id, data_source.dataset_id, data_source.table_id, column_name\n" +
		"        ORDER BY job_start_time DESC\n" +
		"    ) = 1\n" +
		")"
}
