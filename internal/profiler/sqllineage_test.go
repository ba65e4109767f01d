package profiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/catalogsync/pkg/dialect"
	"github.com/leapstack-labs/catalogsync/pkg/lineage"
)

func TestQueryHistoryFromMaps(t *testing.T) {
	rows := QueryHistoryFromMaps([]map[string]any{
		{"QUERY_TEXT": "insert into a select * from b", "DATABASE_NAME": "DWH", "SCHEMA_NAME": []byte("PUBLIC")},
		{"query_text": "", "database_name": "DWH"},
		{"database_name": "DWH"},
		{"query_text": "select 1"},
	})
	assert.Equal(t, []QueryHistoryRow{
		{QueryText: "insert into a select * from b", DatabaseName: "DWH", SchemaName: "PUBLIC"},
		{QueryText: "select 1"},
	}, rows)
}

func TestExtractHistory(t *testing.T) {
	rows := []QueryHistoryRow{
		{QueryText: "insert into dst select * from a; insert into dst select * from b", DatabaseName: "DWH", SchemaName: "PUBLIC"},
		{QueryText: "create table (", DatabaseName: "DWH", SchemaName: "PUBLIC"},
		{QueryText: "select 1", DatabaseName: "DWH", SchemaName: "PUBLIC"},
		{QueryText: "create table mart.public.report as select * from dst", DatabaseName: "DWH", SchemaName: "PUBLIC"},
	}

	dests, srcs, parsed, failed, err := ExtractHistory(rows, dialect.Snowflake)
	require.NoError(t, err)
	assert.Equal(t, 4, parsed)
	assert.Equal(t, 1, failed)

	dst := lineage.TableRef{Database: "DWH", Schema: "PUBLIC", Table: "DST"}
	report := lineage.TableRef{Database: "MART", Schema: "PUBLIC", Table: "REPORT"}
	assert.Equal(t, []lineage.TableRef{dst, report}, dests)
	assert.Equal(t, []lineage.TableRef{
		{Database: "DWH", Schema: "PUBLIC", Table: "A"},
		{Database: "DWH", Schema: "PUBLIC", Table: "B"},
	}, srcs[dst].Sorted())
	assert.Equal(t, []lineage.TableRef{dst}, srcs[report].Sorted())
}

func TestSQLLineage(t *testing.T) {
	client := newFakeCatalog()
	rows := []QueryHistoryRow{
		{QueryText: "insert into dst select * from a; insert into dst select * from b", DatabaseName: "DWH", SchemaName: "PUBLIC"},
		{QueryText: "create table (", DatabaseName: "DWH", SchemaName: "PUBLIC"},
	}

	res, err := newIngestor(t, client).SQLLineage(context.Background(), rows, dialect.Snowflake, testAccount)
	require.NoError(t, err)
	assert.Equal(t, Result{Attempted: 1, Succeeded: 1}, res)

	id := tbl(testAccount, "DWH", "PUBLIC", "DST")
	assert.Equal(t, []string{
		tbl(testAccount, "DWH", "PUBLIC", "A"),
		tbl(testAccount, "DWH", "PUBLIC", "B"),
	}, client.lineage[id][id])
}

func TestSQLLineage_NothingParsed(t *testing.T) {
	rows := []QueryHistoryRow{
		{QueryText: "create table ("},
		{QueryText: "not sql at all"},
	}
	_, err := newIngestor(t, newFakeCatalog()).SQLLineage(context.Background(), rows, dialect.Redshift, "rs")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNothingParsed)
}

func TestSQLLineage_Empty(t *testing.T) {
	res, err := newIngestor(t, newFakeCatalog()).SQLLineage(context.Background(), nil, dialect.ANSI, "e")
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}

func TestSQLLineage_UnknownDialect(t *testing.T) {
	rows := []QueryHistoryRow{{QueryText: "insert into a select * from b"}}
	_, err := newIngestor(t, newFakeCatalog()).SQLLineage(context.Background(), rows, dialect.Kind(99), "e")
	assert.ErrorIs(t, err, dialect.ErrUnknownDialect)
}
