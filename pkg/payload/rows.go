package payload

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
)

// Column names of the lineage result sets. Lookups are case-insensitive.
const (
	keyDownstreamTableName  = "downstream_table_name"
	keyDownstreamTableDom   = "downstream_table_domain"
	keyDownstreamColumnName = "downstream_column_name"
	keyUpstreamTables       = "upstream_tables"
	keyUpstreamColumns      = "upstream_columns"
	keyUpstreamObjectDomain = "upstream_object_domain"
	keyUpstreamObjectName   = "upstream_object_name"
	keyUpstreamTableName    = "upstream_table_name"
	keyUpstreamColumnName   = "upstream_column_name"
)

// TableLineageRowsFromMaps converts warehouse result rows into table lineage
// rows. UPSTREAM_TABLES may be a decoded list or JSON text, which is how
// Snowflake returns VARIANT and Databricks returns ARRAY<STRUCT> columns.
// Rows whose upstream list cannot be decoded are logged and skipped.
func TableLineageRowsFromMaps(logger *slog.Logger, rows []map[string]any) []TableLineageRow {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	out := make([]TableLineageRow, 0, len(rows))
	for _, row := range rows {
		name, _ := lookup(row, keyDownstreamTableName)
		domain, _ := lookup(row, keyDownstreamTableDom)
		raw, _ := lookup(row, keyUpstreamTables)

		entries, err := decodeObjectList(raw)
		if err != nil {
			logger.Warn("skipping lineage row with unreadable upstreams",
				slog.String("downstream", stringValue(name)),
				slog.String("error", err.Error()))
			continue
		}

		r := TableLineageRow{
			DownstreamTableName:   stringValue(name),
			DownstreamTableDomain: stringValue(domain),
			UpstreamTables:        make([]UpstreamTable, 0, len(entries)),
		}
		for _, e := range entries {
			d, _ := lookup(e, keyUpstreamObjectDomain)
			n, _ := lookup(e, keyUpstreamObjectName)
			r.UpstreamTables = append(r.UpstreamTables, UpstreamTable{
				ObjectDomain: stringValue(d),
				ObjectName:   stringValue(n),
			})
		}
		out = append(out, r)
	}
	return out
}

// ColumnLineageRowsFromMaps converts warehouse result rows into column
// lineage rows. UPSTREAM_COLUMNS follows the same rules as UPSTREAM_TABLES
// in TableLineageRowsFromMaps.
func ColumnLineageRowsFromMaps(logger *slog.Logger, rows []map[string]any) []ColumnLineageRow {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	out := make([]ColumnLineageRow, 0, len(rows))
	for _, row := range rows {
		table, _ := lookup(row, keyDownstreamTableName)
		column, _ := lookup(row, keyDownstreamColumnName)
		raw, _ := lookup(row, keyUpstreamColumns)

		entries, err := decodeObjectList(raw)
		if err != nil {
			logger.Warn("skipping column lineage row with unreadable upstreams",
				slog.String("downstream", stringValue(table)),
				slog.String("column", stringValue(column)),
				slog.String("error", err.Error()))
			continue
		}

		r := ColumnLineageRow{
			DownstreamTableName:  stringValue(table),
			DownstreamColumnName: stringValue(column),
			UpstreamColumns:      make([]UpstreamColumn, 0, len(entries)),
		}
		for _, e := range entries {
			d, _ := lookup(e, keyUpstreamObjectDomain)
			t, _ := lookup(e, keyUpstreamTableName)
			c, _ := lookup(e, keyUpstreamColumnName)
			r.UpstreamColumns = append(r.UpstreamColumns, UpstreamColumn{
				ObjectDomain: stringValue(d),
				TableName:    stringValue(t),
				ColumnName:   stringValue(c),
			})
		}
		out = append(out, r)
	}
	return out
}

// decodeObjectList accepts a list of objects as JSON text or as already
// decoded values. nil and the empty string yield an empty list.
func decodeObjectList(raw any) ([]map[string]any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return decodeJSONList([]byte(v))
	case []byte:
		return decodeJSONList(v)
	case []map[string]any:
		return v, nil
	case []any:
		out := make([]map[string]any, 0, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: upstream entry %d is %T, not an object", ErrMalformedRow, i, item)
			}
			out = append(out, m)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: unsupported upstream list type %T", ErrMalformedRow, raw)
}

func decodeJSONList(b []byte) ([]map[string]any, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var out []map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("%w: failed to decode upstream list: %w", ErrMalformedRow, err)
	}
	return out, nil
}

// GroupTableLineagePairs groups (downstream, upstream) name pairs, as
// returned by Redshift's lineage views, into table lineage rows. Downstreams
// and their upstreams keep first-seen order.
func GroupTableLineagePairs(pairs [][2]string) []TableLineageRow {
	var out []TableLineageRow
	index := make(map[string]int)
	for _, p := range pairs {
		i, ok := index[p[0]]
		if !ok {
			i = len(out)
			index[p[0]] = i
			out = append(out, TableLineageRow{DownstreamTableName: p[0], UpstreamTables: []UpstreamTable{}})
		}
		out[i].UpstreamTables = append(out[i].UpstreamTables, UpstreamTable{ObjectName: p[1]})
	}
	return out
}

// TableLineageRowsFromGraph converts a {downstream: [upstreams]} graph into
// table lineage rows sorted by downstream name. Downstreams without
// upstreams are kept.
func TableLineageRowsFromGraph(graph map[string][]string) []TableLineageRow {
	names := make([]string, 0, len(graph))
	for name := range graph {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]TableLineageRow, 0, len(names))
	for _, name := range names {
		row := TableLineageRow{DownstreamTableName: name, UpstreamTables: make([]UpstreamTable, 0, len(graph[name]))}
		for _, up := range graph[name] {
			row.UpstreamTables = append(row.UpstreamTables, UpstreamTable{ObjectName: up})
		}
		out = append(out, row)
	}
	return out
}
