package payload

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/leapstack-labs/catalogsync/pkg/globalid"
)

// statsFields lists the stats result set columns in positional order.
var statsFields = [...]string{
	"db_name",
	"schema_name",
	"table_name",
	"column_name",
	"max_value",
	"min_value",
	"null_count",
	"cardinality",
	"avg_value",
	"median_value",
	"mode_value",
	"stddev_value",
}

// StatsRow is one column's statistics after boundary normalization.
// Aggregates are kept as the decimal text the warehouse returned; an empty
// string means the warehouse returned NULL.
type StatsRow struct {
	Database    string
	Schema      string
	Table       string
	Column      string
	Max         string
	Min         string
	NullCount   int64
	Cardinality int64
	Mean        string
	Median      string
	Mode        string
	Stddev      string
}

// NormalizeStatsRow reads a stats row keyed by column name in any case.
// The four name columns are required.
func NormalizeStatsRow(row map[string]any) (StatsRow, error) {
	values := make([]any, len(statsFields))
	for i, field := range statsFields {
		v, ok := lookup(row, field)
		if !ok && i < 4 {
			return StatsRow{}, fmt.Errorf("%w: missing %s", ErrMalformedRow, field)
		}
		values[i] = v
	}
	return statsRowFromValues(values)
}

// StatsRowFromTuple reads a stats row given positionally, in the order
// db, schema, table, column, max, min, null count, cardinality, avg,
// median, mode, stddev.
func StatsRowFromTuple(row []any) (StatsRow, error) {
	if len(row) != len(statsFields) {
		return StatsRow{}, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedRow, len(statsFields), len(row))
	}
	return statsRowFromValues(row)
}

func statsRowFromValues(v []any) (StatsRow, error) {
	nulls, err := intValue(v[6])
	if err != nil {
		return StatsRow{}, fmt.Errorf("null_count: %w", err)
	}
	card, err := intValue(v[7])
	if err != nil {
		return StatsRow{}, fmt.Errorf("cardinality: %w", err)
	}
	return StatsRow{
		Database:    stringValue(v[0]),
		Schema:      stringValue(v[1]),
		Table:       stringValue(v[2]),
		Column:      stringValue(v[3]),
		Max:         stringValue(v[4]),
		Min:         stringValue(v[5]),
		NullCount:   nulls,
		Cardinality: card,
		Mean:        stringValue(v[8]),
		Median:      stringValue(v[9]),
		Mode:        stringValue(v[10]),
		Stddev:      stringValue(v[11]),
	}, nil
}

// ColumnStats is the column_stats section of a stats update.
type ColumnStats struct {
	Cardinality    int64
	Max            string
	Mean           string
	Median         string
	Min            string
	Mode           string
	NumberOfNull   int64
	NumberOfUnique int64
	Stddev         string
}

// TableStats is the table_stats section of a stats update.
type TableStats struct {
	Count int64
	Size  float64
}

// StatsInput is the body of a stats update.
type StatsInput struct {
	ColumnStats ColumnStats
	TableStats  TableStats
}

// decimal emits a decimal string unchanged. Empty means NULL.
func decimal(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (c ColumnStats) fields() map[string]any {
	return map[string]any{
		"cardinality":      c.Cardinality,
		"max":              decimal(c.Max),
		"mean":             decimal(c.Mean),
		"median":           decimal(c.Median),
		"min":              decimal(c.Min),
		"mode":             decimal(c.Mode),
		"number_of_null":   c.NumberOfNull,
		"number_of_unique": c.NumberOfUnique,
		"stddev":           decimal(c.Stddev),
	}
}

// ColumnStatsBody returns {"column_stats": {...}}, the body sent when only
// column statistics are known.
func (s StatsInput) ColumnStatsBody() map[string]any {
	return map[string]any{"column_stats": s.ColumnStats.fields()}
}

// Body returns {"column_stats": {...}, "table_stats": {...}}.
func (s StatsInput) Body() map[string]any {
	return map[string]any{
		"column_stats": s.ColumnStats.fields(),
		"table_stats": map[string]any{
			"count": s.TableStats.Count,
			// Keep the fractional form (0.0) on the wire.
			"size": json.Number(strconv.FormatFloat(s.TableStats.Size, 'f', 1, 64)),
		},
	}
}

// StatsRequest is the stats update for one column.
type StatsRequest struct {
	GlobalID string
	Database string
	Schema   string
	Table    string
	Column   string
	Body     StatsInput
}

// BuildStats converts normalized rows into one request per row.
func BuildStats(tenantID, endpoint string, rows []StatsRow) []StatsRequest {
	out := make([]StatsRequest, 0, len(rows))
	for _, r := range rows {
		out = append(out, StatsRequest{
			GlobalID: globalid.ColumnID(tenantID, endpoint, r.Database, r.Schema, r.Table, r.Column),
			Database: r.Database,
			Schema:   r.Schema,
			Table:    r.Table,
			Column:   r.Column,
			Body: StatsInput{
				ColumnStats: ColumnStats{
					Cardinality:    r.Cardinality,
					Max:            r.Max,
					Mean:           r.Mean,
					Median:         r.Median,
					Min:            r.Min,
					Mode:           r.Mode,
					NumberOfNull:   r.NullCount,
					NumberOfUnique: r.Cardinality,
					Stddev:         r.Stddev,
				},
			},
		})
	}
	return out
}

// BuildStatsFromMaps normalizes keyed rows and builds requests. Rows that
// fail normalization are logged and skipped.
func BuildStatsFromMaps(logger *slog.Logger, tenantID, endpoint string, rows []map[string]any) []StatsRequest {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	normalized := make([]StatsRow, 0, len(rows))
	for i, row := range rows {
		r, err := NormalizeStatsRow(row)
		if err != nil {
			logger.Warn("skipping stats row", slog.Int("row", i), slog.String("error", err.Error()))
			continue
		}
		normalized = append(normalized, r)
	}
	return BuildStats(tenantID, endpoint, normalized)
}

// BuildStatsFromTuples is BuildStatsFromMaps for positional rows.
func BuildStatsFromTuples(logger *slog.Logger, tenantID, endpoint string, rows [][]any) []StatsRequest {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	normalized := make([]StatsRow, 0, len(rows))
	for i, row := range rows {
		r, err := StatsRowFromTuple(row)
		if err != nil {
			logger.Warn("skipping stats row", slog.Int("row", i), slog.String("error", err.Error()))
			continue
		}
		normalized = append(normalized, r)
	}
	return BuildStats(tenantID, endpoint, normalized)
}
