package dialect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/catalogsync/pkg/dialect"
	_ "github.com/leapstack-labs/catalogsync/pkg/dialects/all"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind dialect.Kind
		want string
	}{
		{dialect.ANSI, "ansi"},
		{dialect.Snowflake, "snowflake"},
		{dialect.Redshift, "redshift"},
		{dialect.Presto, "presto"},
		{dialect.Oracle, "oracle"},
		{dialect.Databricks, "databricks"},
		{dialect.BigQuery, "bigquery"},
		{dialect.Postgres, "postgres"},
		{dialect.Kind(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.String())
		})
	}
}

func TestEveryKindIsRegistered(t *testing.T) {
	for _, k := range dialect.Kinds() {
		d, ok := dialect.ForKind(k)
		require.True(t, ok, "%s not registered", k)
		assert.Equal(t, k, d.Kind)
		assert.Equal(t, k.String(), d.Name)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		name    string
		want    dialect.Kind
		wantErr bool
	}{
		{name: "", want: dialect.ANSI},
		{name: "  ", want: dialect.ANSI},
		{name: "Snowflake", want: dialect.Snowflake},
		{name: "athena", want: dialect.Presto},
		{name: "trino", want: dialect.Presto},
		{name: "spark", want: dialect.Databricks},
		{name: "hive", want: dialect.Databricks},
		{name: "generic", want: dialect.ANSI},
		{name: "postgresql", want: dialect.Postgres},
		{name: "mysql", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dialect.ParseKind(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, dialect.ErrUnknownDialect)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		dialect string
		name    string
		quoted  bool
		want    string
	}{
		{"snowflake", "db_mart", false, "DB_MART"},
		{"oracle", "Emp", false, "EMP"},
		{"redshift", "Public", false, "public"},
		{"presto", "Hive_Tbl", false, "hive_tbl"},
		{"databricks", "Tbl", false, "tbl"},
		{"postgres", "Tbl", false, "tbl"},
		{"ansi", "MixedCase", false, "MixedCase"},
		{"bigquery", "MixedCase", false, "MixedCase"},
		{"snowflake", "quoted", true, "quoted"},
		{"redshift", "QUOTED", true, "QUOTED"},
	}

	for _, tt := range tests {
		t.Run(tt.dialect+"/"+tt.name, func(t *testing.T) {
			d, ok := dialect.Get(tt.dialect)
			require.True(t, ok)
			assert.Equal(t, tt.want, d.Normalize(tt.name, tt.quoted))
		})
	}
}

func TestQuoteIdentifier(t *testing.T) {
	sf, _ := dialect.Get("snowflake")
	assert.Equal(t, `"a""b"`, sf.QuoteIdentifier(`a"b`))

	db, _ := dialect.Get("databricks")
	assert.Equal(t, "`tbl`", db.QuoteIdentifier("tbl"))
}

func TestTableOptionsAreReservedAliases(t *testing.T) {
	rs, _ := dialect.Get("redshift")
	assert.NotNil(t, rs.TableOptionHandler("distkey"))
	assert.True(t, rs.IsReservedAlias("DISTKEY"))
	assert.NotNil(t, rs.StatementSuffixHandler("with"))

	ansi, _ := dialect.Get("ansi")
	assert.Nil(t, ansi.TableOptionHandler("DISTKEY"))
	assert.False(t, ansi.IsReservedAlias("DISTKEY"))
}

func TestConfigIsCopy(t *testing.T) {
	sf, _ := dialect.Get("snowflake")
	cfg := sf.Config()
	cfg.Name = "changed"
	assert.Equal(t, "snowflake", sf.Name)
}
