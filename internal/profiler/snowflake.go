package profiler

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/catalogsync/pkg/payload"
)

// SnowflakeSource locates the views built in a Snowflake account. The
// account id is the catalog endpoint.
type SnowflakeSource struct {
	Account  string
	Database string
	Schema   string
}

// SnowflakeTableLineage ingests QUOLLIO_LINEAGE_TABLE_LEVEL.
func (in *Ingestor) SnowflakeTableLineage(ctx context.Context, q Querier, src SnowflakeSource) (Result, error) {
	rows, err := q.Query(ctx, fmt.Sprintf("SELECT * FROM %s", fqn(src.Database, src.Schema, "QUOLLIO_LINEAGE_TABLE_LEVEL")))
	if err != nil {
		return Result{}, fmt.Errorf("failed to read snowflake table lineage: %w", err)
	}
	tables := payload.TableLineageRowsFromMaps(in.logger(), rows)
	inputs := payload.BuildTableLineage(in.logger(), in.TenantID, src.Account, tables)
	return in.pushLineage(ctx, "table", inputs)
}

// SnowflakeColumnLineage ingests QUOLLIO_LINEAGE_COLUMN_LEVEL.
func (in *Ingestor) SnowflakeColumnLineage(ctx context.Context, q Querier, src SnowflakeSource) (Result, error) {
	rows, err := q.Query(ctx, fmt.Sprintf("SELECT * FROM %s", fqn(src.Database, src.Schema, "QUOLLIO_LINEAGE_COLUMN_LEVEL")))
	if err != nil {
		return Result{}, fmt.Errorf("failed to read snowflake column lineage: %w", err)
	}
	columns := payload.ColumnLineageRowsFromMaps(in.logger(), rows)
	inputs := payload.BuildColumnLineage(in.logger(), in.TenantID, src.Account, columns)
	return in.pushLineage(ctx, "column", inputs)
}

// SnowflakeLineage runs table lineage then column lineage.
func (in *Ingestor) SnowflakeLineage(ctx context.Context, q Querier, src SnowflakeSource) (Result, error) {
	tables, err := in.SnowflakeTableLineage(ctx, q, src)
	if err != nil {
		return tables, err
	}
	columns, err := in.SnowflakeColumnLineage(ctx, q, src)
	return tables.Add(columns), err
}

type tableName struct {
	catalog, schema, name string
}

func (in *Ingestor) distinctTables(ctx context.Context, q Querier, sql string) ([]tableName, error) {
	rows, err := q.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	out := make([]tableName, 0, len(rows))
	for i, row := range rows {
		c, ok1 := field(row, "TABLE_CATALOG")
		s, ok2 := field(row, "TABLE_SCHEMA")
		n, ok3 := field(row, "TABLE_NAME")
		if !ok1 || !ok2 || !ok3 {
			in.logger().Warn("skipping table row without a full name", "row", i)
			continue
		}
		out = append(out, tableName{c, s, n})
	}
	return out, nil
}

// SnowflakeStats ingests column statistics. Profiled tables come from
// QUOLLIO_STATS_PROFILING_COLUMNS; each QUOLLIO_STATS_COLUMNS_* view is read
// once per profiled table. enabled selects the stats to send; nil sends
// them all.
func (in *Ingestor) SnowflakeStats(ctx context.Context, q Querier, src SnowflakeSource, enabled map[string]bool) (Result, error) {
	targets, err := in.distinctTables(ctx, q, fmt.Sprintf(
		"SELECT DISTINCT TABLE_CATALOG, TABLE_SCHEMA, TABLE_NAME FROM %s",
		fqn(src.Database, src.Schema, "QUOLLIO_STATS_PROFILING_COLUMNS")))
	if err != nil {
		return Result{}, fmt.Errorf("failed to read snowflake profiling targets: %w", err)
	}

	views, err := in.distinctTables(ctx, q, fmt.Sprintf(
		"SELECT DISTINCT TABLE_CATALOG, TABLE_SCHEMA, TABLE_NAME FROM %s "+
			"WHERE startswith(TABLE_NAME, 'QUOLLIO_STATS_COLUMNS_') AND TABLE_SCHEMA = UPPER(%s)",
		fqn(src.Database, "INFORMATION_SCHEMA", "TABLES"), quoteLiteral(src.Schema)))
	if err != nil {
		return Result{}, fmt.Errorf("failed to list snowflake stats views: %w", err)
	}

	if enabled == nil {
		enabled = payload.TargetStatsItems(payload.ColumnStatsItems())
	}

	var total Result
	for _, target := range targets {
		for _, view := range views {
			sql := payload.RenderStatsSQL(enabled, fqn(view.catalog, view.schema, view.name), "") +
				fmt.Sprintf("WHERE db_name = %s AND schema_name = %s AND table_name = %s",
					quoteLiteral(target.catalog), quoteLiteral(target.schema), quoteLiteral(target.name))
			rows, err := q.Query(ctx, sql)
			if err != nil {
				return total, fmt.Errorf("failed to read stats view %s: %w", view.name, err)
			}
			reqs := payload.BuildStatsFromMaps(in.logger(), in.TenantID, src.Account, rows)
			res, err := in.pushStats(ctx, reqs, payload.StatsInput.ColumnStatsBody)
			total = total.Add(res)
			if err != nil {
				return total, err
			}
		}
	}
	in.logStatsFinished(total)
	return total, nil
}
