package profiler

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/catalogsync/pkg/payload"
)

// Lineage views built in a Redshift cluster.
const (
	RedshiftTableLineageView = "quollio_lineage_table_level"
	RedshiftViewLineageView  = "quollio_lineage_view_level"
)

// RedshiftSource locates the views built in a Redshift cluster. The host
// is the catalog endpoint.
type RedshiftSource struct {
	Host     string
	Database string
	Schema   string
}

// RedshiftTableLineage ingests one lineage view, whose rows are
// (downstream, upstream) table pairs.
func (in *Ingestor) RedshiftTableLineage(ctx context.Context, q Querier, src RedshiftSource, view string) (Result, error) {
	sql := "SELECT\n" +
		"    downstream_database_name || '.' || downstream_schema_name || '.' || downstream_table_name\n" +
		"    , upstream_database_name || '.' || upstream_schema_name || '.' || upstream_table_name\n" +
		"FROM\n    " + fqn(src.Database, src.Schema, view) + "\n"
	tuples, err := q.QueryTuples(ctx, sql)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read redshift lineage from %s: %w", view, err)
	}

	pairs := make([][2]string, 0, len(tuples))
	for i, t := range tuples {
		if len(t) != 2 {
			in.logger().Warn("skipping lineage row", "view", view, "row", i, "fields", len(t))
			continue
		}
		dst, ok1 := t[0].(string)
		up, ok2 := t[1].(string)
		if !ok1 || !ok2 {
			in.logger().Warn("skipping lineage row with null names", "view", view, "row", i)
			continue
		}
		pairs = append(pairs, [2]string{dst, up})
	}

	inputs := payload.BuildTableLineage(in.logger(), in.TenantID, src.Host, payload.GroupTableLineagePairs(pairs))
	kind := "table"
	if view == RedshiftViewLineageView {
		kind = "view"
	}
	return in.pushLineage(ctx, kind, inputs)
}

// RedshiftLineage ingests table lineage then view lineage.
func (in *Ingestor) RedshiftLineage(ctx context.Context, q Querier, src RedshiftSource) (Result, error) {
	tables, err := in.RedshiftTableLineage(ctx, q, src, RedshiftTableLineageView)
	if err != nil {
		return tables, err
	}
	views, err := in.RedshiftTableLineage(ctx, q, src, RedshiftViewLineageView)
	return tables.Add(views), err
}

// RedshiftStats ingests every quollio_stats_columns_* view of the schema.
// enabled selects the stats to send; nil sends them all.
func (in *Ingestor) RedshiftStats(ctx context.Context, q Querier, src RedshiftSource, enabled map[string]bool) (Result, error) {
	views, err := q.QueryTuples(ctx, fmt.Sprintf(
		"SELECT DISTINCT table_name FROM svv_tables WHERE table_catalog = %s AND table_schema = %s "+
			"AND table_name LIKE 'quollio_stats_columns_%%' ORDER BY table_name",
		quoteLiteral(src.Database), quoteLiteral(src.Schema)))
	if err != nil {
		return Result{}, fmt.Errorf("failed to list redshift stats views: %w", err)
	}

	if enabled == nil {
		enabled = payload.TargetStatsItems(payload.ColumnStatsItems())
	}

	var total Result
	for _, v := range views {
		if len(v) != 1 {
			continue
		}
		name, ok := v[0].(string)
		if !ok {
			continue
		}
		tuples, err := q.QueryTuples(ctx, payload.RenderStatsSQL(enabled, fqn(src.Database, src.Schema, name), ""))
		if err != nil {
			return total, fmt.Errorf("failed to read stats view %s: %w", name, err)
		}
		reqs := payload.BuildStatsFromTuples(in.logger(), in.TenantID, src.Host, tuples)
		res, err := in.pushStats(ctx, reqs, payload.StatsInput.ColumnStatsBody)
		total = total.Add(res)
		if err != nil {
			return total, err
		}
	}
	in.logStatsFinished(total)
	return total, nil
}
