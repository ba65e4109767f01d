package lineage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/catalogsync/pkg/dialect"
	"github.com/leapstack-labs/catalogsync/pkg/parser"
)

func TestExtract_NoDestination(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{name: "select", sql: "select * from a.b.c"},
		{name: "delete", sql: "delete from a.b.c where id = 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Extract(tt.sql, dialect.Snowflake, Options{})
			assert.ErrorIs(t, err, ErrNoDestination)
		})
	}
}

func TestExtract_UnknownDialect(t *testing.T) {
	_, _, err := Extract("select 1", dialect.Kind(99), Options{})
	assert.ErrorIs(t, err, dialect.ErrUnknownDialect)

	_, err = ExtractAll("select 1", dialect.Kind(99), Options{})
	assert.ErrorIs(t, err, dialect.ErrUnknownDialect)
}

func TestExtract_CTEScope(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []TableRef
	}{
		{
			name: "cte names are not sources",
			sql: `insert into dst
				with a as (select * from src1), b as (select * from a join src2 on a.id = src2.id)
				select * from b`,
			want: []TableRef{{"DWH", "PUBLIC", "SRC1"}, {"DWH", "PUBLIC", "SRC2"}},
		},
		{
			name: "qualified name matching a cte is a source",
			sql: `create table dst as
				with t as (select 1 as id)
				select * from t join other.t on t.id = other.t.id`,
			want: []TableRef{{"DWH", "OTHER", "T"}},
		},
		{
			name: "cte defined later is not visible to an earlier one",
			sql: `create table dst as
				with a as (select * from b), b as (select * from src)
				select * from a`,
			want: []TableRef{{"DWH", "PUBLIC", "B"}, {"DWH", "PUBLIC", "SRC"}},
		},
		{
			name: "subquery in where",
			sql: `create table dst as
				select * from src1 where id in (select id from src2)`,
			want: []TableRef{{"DWH", "PUBLIC", "SRC1"}, {"DWH", "PUBLIC", "SRC2"}},
		},
	}

	opts := Options{SrcDatabase: "dwh", SrcSchema: "public", DestDatabase: "mart", DestSchema: "public"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest, srcs, err := Extract(tt.sql, dialect.Snowflake, opts)
			require.NoError(t, err)
			assert.Equal(t, TableRef{"MART", "PUBLIC", "DST"}, dest)
			assert.Equal(t, tt.want, srcs.Sorted())
		})
	}
}

func TestExtractAll(t *testing.T) {
	script := `
		insert into mart.public.a select * from dwh.public.x;
		select * from nowhere;
		create table mart.public.b as select * from dwh.public.y join dwh.public.z on y.id = z.id;
		create table (;
		update mart.public.c set v = (select max(v) from dwh.public.w)`

	facts, err := ExtractAll(script, dialect.Redshift, Options{})
	require.NoError(t, err)
	require.Len(t, facts, 5)

	assert.NoError(t, facts[0].Err)
	assert.Equal(t, TableRef{"mart", "public", "a"}, facts[0].Destination)
	assert.Equal(t, []TableRef{{"dwh", "public", "x"}}, facts[0].Sources.Sorted())

	assert.ErrorIs(t, facts[1].Err, ErrNoDestination)

	assert.NoError(t, facts[2].Err)
	assert.Equal(t, TableRef{"mart", "public", "b"}, facts[2].Destination)
	assert.Equal(t, 2, facts[2].Sources.Len())

	var perr *parser.ParseError
	assert.ErrorAs(t, facts[3].Err, &perr)
	assert.Equal(t, 5, facts[3].Pos.Line)

	assert.NoError(t, facts[4].Err)
	assert.True(t, facts[4].Sources.Has(TableRef{"dwh", "public", "w"}))
}

func TestBuildInput(t *testing.T) {
	dest, srcs, err := Extract(
		"create table DEST_TABLE as select * from TEST1 a inner join TEST2 b on a.id = b.id",
		dialect.ANSI,
		Options{SrcDatabase: "DB_DWH", SrcSchema: "PUBLIC", DestDatabase: "MART", DestSchema: "PUBLIC"},
	)
	require.NoError(t, err)

	in := BuildInput("test-tenant", "test-endpoint", dest, srcs)
	assert.Equal(t, "tbl-51e840224b237bd0ebb983128f1f03cc", in.DownstreamGlobalID)
	assert.Equal(t, "MART", in.DownstreamDatabase)
	assert.Equal(t, "PUBLIC", in.DownstreamSchema)
	assert.Equal(t, "DEST_TABLE", in.DownstreamTable)
	assert.Equal(t, []string{
		"tbl-4c7c4128a56bf0f9728590b90476bb4f",
		"tbl-d2d924bd453747c01880e827cc37824a",
	}, in.Upstreams)
}

func TestBuildInput_NoSources(t *testing.T) {
	in := BuildInput("t", "e", TableRef{"a", "b", "c"}, TableSet{})
	assert.NotNil(t, in.Upstreams)
	assert.Empty(t, in.Upstreams)
}

func TestTableRef_String(t *testing.T) {
	assert.Equal(t, "a.b.c", TableRef{"a", "b", "c"}.String())
	assert.Equal(t, "b.c", TableRef{Schema: "b", Table: "c"}.String())
	assert.Equal(t, "c", TableRef{Table: "c"}.String())
}
