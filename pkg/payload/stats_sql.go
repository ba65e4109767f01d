package payload

import (
	"strings"
)

// ColumnStatsItems returns the names of the column statistics that can be
// enabled, in wire order.
func ColumnStatsItems() []string {
	return []string{
		"cardinality",
		"max",
		"mean",
		"median",
		"min",
		"mode",
		"number_of_null",
		"number_of_unique",
		"stddev",
	}
}

// TargetStatsItems returns every stat name mapped to whether it is in
// enabled.
func TargetStatsItems(enabled []string) map[string]bool {
	on := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		on[name] = true
	}
	out := make(map[string]bool)
	for _, name := range ColumnStatsItems() {
		out[name] = on[name]
	}
	return out
}

// statsColumns maps each aggregated select column to the stat enabling it.
// number_of_unique has no column of its own; it is derived from
// cardinality.
var statsColumns = []struct {
	alias string
	stat  string
}{
	{"max_value", "max"},
	{"min_value", "min"},
	{"null_count", "number_of_null"},
	{"cardinality", "cardinality"},
	{"avg_value", "mean"},
	{"median_value", "median"},
	{"mode_value", "mode"},
	{"stddev_value", "stddev"},
}

// RenderStatsSQL builds the query reading a stats table. Every column is
// always selected so the result shape does not depend on which stats are
// enabled; a disabled stat is selected as "null as <alias>". cte, when
// non-empty, is placed before SELECT.
func RenderStatsSQL(enabled map[string]bool, tableFQN, cte string) string {
	var sb strings.Builder
	if cte = strings.TrimSpace(cte); cte != "" {
		sb.WriteString(cte)
		sb.WriteString("\n")
	}
	sb.WriteString("SELECT\n")
	sb.WriteString("    db_name\n")
	sb.WriteString("    , schema_name\n")
	sb.WriteString("    , table_name\n")
	sb.WriteString("    , column_name\n")
	for _, c := range statsColumns {
		sb.WriteString("    , ")
		if !enabled[c.stat] {
			sb.WriteString("null as ")
		}
		sb.WriteString(c.alias)
		sb.WriteString("\n")
	}
	sb.WriteString("FROM\n    ")
	sb.WriteString(tableFQN)
	sb.WriteString("\n")
	return sb.String()
}
