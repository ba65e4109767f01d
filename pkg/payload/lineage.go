// Package payload turns warehouse result rows into the request bodies the
// catalog accepts: per-asset upstream lists for lineage and per-column
// statistics.
//
// Builders validate identifier shapes and drop what they cannot use. A
// malformed row is logged and skipped so one bad record never aborts a
// batch.
package payload

import (
	"log/slog"
	"strings"

	"github.com/leapstack-labs/catalogsync/pkg/globalid"
)

// LineageInput is the lineage update for one downstream asset.
type LineageInput struct {
	DownstreamGlobalID string
	DownstreamDatabase string
	DownstreamSchema   string
	DownstreamTable    string
	DownstreamColumn   string // empty for table lineage
	Upstreams          []string
}

// Body returns the request body: {downstream_global_id: [upstream ids...]}.
func (l LineageInput) Body() map[string][]string {
	upstreams := l.Upstreams
	if upstreams == nil {
		upstreams = []string{}
	}
	return map[string][]string{l.DownstreamGlobalID: upstreams}
}

// UpstreamTable is one entry of a table lineage row.
type UpstreamTable struct {
	ObjectDomain string
	ObjectName   string // db.schema.table
}

// TableLineageRow is a raw table lineage record as read from a warehouse.
type TableLineageRow struct {
	DownstreamTableName   string // db.schema.table
	DownstreamTableDomain string
	UpstreamTables        []UpstreamTable
}

// UpstreamColumn is one entry of a column lineage row.
type UpstreamColumn struct {
	ObjectDomain string
	TableName    string // db.schema.table
	ColumnName   string
}

// ColumnLineageRow is a raw column lineage record as read from a warehouse.
type ColumnLineageRow struct {
	DownstreamTableName  string
	DownstreamColumnName string
	UpstreamColumns      []UpstreamColumn
}

// splitTableName splits db.schema.table. It reports false unless the name
// has exactly three segments and a non-empty table.
func splitTableName(name string) (db, schema, table string, ok bool) {
	parts := strings.Split(name, ".")
	if len(parts) != 3 || parts[2] == "" {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// lineageBuilder accumulates payloads keyed by downstream ID, keeping
// first-seen order for downstreams and their upstreams.
type lineageBuilder struct {
	inputs []*LineageInput
	index  map[string]int
	seen   []map[string]struct{}
}

func newLineageBuilder() *lineageBuilder {
	return &lineageBuilder{index: make(map[string]int)}
}

func (b *lineageBuilder) downstream(in LineageInput) int {
	if i, ok := b.index[in.DownstreamGlobalID]; ok {
		return i
	}
	i := len(b.inputs)
	in.Upstreams = []string{}
	b.inputs = append(b.inputs, &in)
	b.index[in.DownstreamGlobalID] = i
	b.seen = append(b.seen, make(map[string]struct{}))
	return i
}

func (b *lineageBuilder) addUpstream(i int, id string) {
	if _, dup := b.seen[i][id]; dup {
		return
	}
	b.seen[i][id] = struct{}{}
	b.inputs[i].Upstreams = append(b.inputs[i].Upstreams, id)
}

func (b *lineageBuilder) result() []LineageInput {
	out := make([]LineageInput, 0, len(b.inputs))
	for _, in := range b.inputs {
		out = append(out, *in)
	}
	return out
}

// BuildTableLineage converts table lineage rows into one LineageInput per
// downstream table.
func BuildTableLineage(logger *slog.Logger, tenantID, endpoint string, rows []TableLineageRow) []LineageInput {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	b := newLineageBuilder()
	for _, row := range rows {
		db, schema, table, ok := splitTableName(row.DownstreamTableName)
		if !ok {
			logger.Warn("skipping lineage row: downstream is not db.schema.table",
				slog.String("downstream", row.DownstreamTableName))
			continue
		}
		i := b.downstream(LineageInput{
			DownstreamGlobalID: globalid.TableID(tenantID, endpoint, db, schema, table),
			DownstreamDatabase: db,
			DownstreamSchema:   schema,
			DownstreamTable:    table,
		})

		for _, up := range row.UpstreamTables {
			udb, uschema, utable, ok := splitTableName(up.ObjectName)
			if !ok {
				logger.Warn("skipping upstream: not db.schema.table",
					slog.String("downstream", row.DownstreamTableName),
					slog.String("upstream", up.ObjectName))
				continue
			}
			b.addUpstream(i, globalid.TableID(tenantID, endpoint, udb, uschema, utable))
		}
	}
	return b.result()
}

// BuildColumnLineage converts column lineage rows into one LineageInput per
// downstream column.
func BuildColumnLineage(logger *slog.Logger, tenantID, endpoint string, rows []ColumnLineageRow) []LineageInput {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	b := newLineageBuilder()
	for _, row := range rows {
		db, schema, table, ok := splitTableName(row.DownstreamTableName)
		if !ok || row.DownstreamColumnName == "" {
			logger.Warn("skipping column lineage row: downstream is not db.schema.table.column",
				slog.String("downstream", row.DownstreamTableName),
				slog.String("column", row.DownstreamColumnName))
			continue
		}
		i := b.downstream(LineageInput{
			DownstreamGlobalID: globalid.ColumnID(tenantID, endpoint, db, schema, table, row.DownstreamColumnName),
			DownstreamDatabase: db,
			DownstreamSchema:   schema,
			DownstreamTable:    table,
			DownstreamColumn:   row.DownstreamColumnName,
		})

		for _, up := range row.UpstreamColumns {
			udb, uschema, utable, ok := splitTableName(up.TableName)
			if !ok || up.ColumnName == "" {
				logger.Warn("skipping upstream column",
					slog.String("downstream", row.DownstreamTableName+"."+row.DownstreamColumnName),
					slog.String("upstream_table", up.TableName),
					slog.String("upstream_column", up.ColumnName))
				continue
			}
			b.addUpstream(i, globalid.ColumnID(tenantID, endpoint, udb, uschema, utable, up.ColumnName))
		}
	}
	return b.result()
}
