package profiler

import (
	"context"
	"errors"
	"fmt"

	"github.com/leapstack-labs/catalogsync/pkg/dialect"
	"github.com/leapstack-labs/catalogsync/pkg/lineage"
	"github.com/leapstack-labs/catalogsync/pkg/parser"
	"github.com/leapstack-labs/catalogsync/pkg/payload"
)

// ErrNothingParsed is returned by SQLLineage when no statement of the
// query history could be parsed.
var ErrNothingParsed = errors.New("no statement could be parsed")

// QueryHistoryRow is one executed query with the session namespace it ran
// in.
type QueryHistoryRow struct {
	QueryText    string
	DatabaseName string
	SchemaName   string
}

// QueryHistoryFromMaps reads query_text, database_name and schema_name in
// any case. Rows without query text are dropped.
func QueryHistoryFromMaps(rows []map[string]any) []QueryHistoryRow {
	out := make([]QueryHistoryRow, 0, len(rows))
	for _, row := range rows {
		text, ok := field(row, "query_text")
		if !ok || text == "" {
			continue
		}
		db, _ := field(row, "database_name")
		schema, _ := field(row, "schema_name")
		out = append(out, QueryHistoryRow{QueryText: text, DatabaseName: db, SchemaName: schema})
	}
	return out
}

// ExtractHistory extracts table lineage from query history. Each row's
// namespace is the default for both sources and destination. Facts with
// the same destination are merged, in first-seen order. parsed and failed
// count statements.
func ExtractHistory(rows []QueryHistoryRow, kind dialect.Kind) (dests []lineage.TableRef, srcs map[lineage.TableRef]lineage.TableSet, parsed, failed int, err error) {
	srcs = make(map[lineage.TableRef]lineage.TableSet)
	for _, row := range rows {
		opts := lineage.Options{
			SrcDatabase:  row.DatabaseName,
			SrcSchema:    row.SchemaName,
			DestDatabase: row.DatabaseName,
			DestSchema:   row.SchemaName,
		}
		facts, err := lineage.ExtractAll(row.QueryText, kind, opts)
		if err != nil {
			return nil, nil, 0, 0, err
		}
		for _, f := range facts {
			var pe *parser.ParseError
			switch {
			case errors.As(f.Err, &pe):
				failed++
				continue
			case f.Err != nil:
				parsed++
				continue
			}
			parsed++
			set, ok := srcs[f.Destination]
			if !ok {
				set = lineage.TableSet{}
				srcs[f.Destination] = set
				dests = append(dests, f.Destination)
			}
			for t := range f.Sources {
				set.Add(t)
			}
		}
	}
	return dests, srcs, parsed, failed, nil
}

// SQLLineage extracts table lineage from query history and uploads it.
// Unparseable statements are skipped; the run fails only when every
// statement failed to parse.
func (in *Ingestor) SQLLineage(ctx context.Context, rows []QueryHistoryRow, kind dialect.Kind, endpoint string) (Result, error) {
	dests, srcs, parsed, failed, err := ExtractHistory(rows, kind)
	if err != nil {
		return Result{}, err
	}
	if failed > 0 {
		in.logger().Warn("some statements could not be parsed", "failed", failed, "parsed", parsed)
	}
	if parsed == 0 && failed > 0 {
		return Result{}, fmt.Errorf("%w: %d statements failed", ErrNothingParsed, failed)
	}

	inputs := make([]payload.LineageInput, 0, len(dests))
	for _, d := range dests {
		inputs = append(inputs, lineage.BuildInput(in.TenantID, endpoint, d, srcs[d]))
	}
	return in.pushLineage(ctx, "sql", inputs)
}
