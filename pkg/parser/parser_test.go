package parser_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/catalogsync/pkg/dialect"
	_ "github.com/leapstack-labs/catalogsync/pkg/dialects/all"
	"github.com/leapstack-labs/catalogsync/pkg/parser"
)

func mustDialect(t *testing.T, name string) *dialect.Dialect {
	t.Helper()
	d, ok := dialect.Get(name)
	require.True(t, ok, "dialect %q not registered", name)
	return d
}

// collectTables returns every table name under stmt in walk order.
func collectTables(stmt parser.Statement) []string {
	var names []string
	parser.Inspect(stmt, func(n parser.Node) bool {
		if t, ok := n.(*parser.TableName); ok {
			names = append(names, t.Name.Name)
		}
		return true
	})
	return names
}

func TestParse_StatementTypes(t *testing.T) {
	tests := []struct {
		name    string
		dialect string
		sql     string
		check   func(t *testing.T, stmt parser.Statement)
	}{
		{
			name:    "select",
			dialect: "ansi",
			sql:     "SELECT a, b FROM t WHERE a > 1 ORDER BY b LIMIT 10",
			check: func(t *testing.T, stmt parser.Statement) {
				s, ok := stmt.(*parser.SelectStmt)
				require.True(t, ok)
				require.NotNil(t, s.Body.Left)
				assert.Len(t, s.Body.Left.Columns, 2)
				assert.NotNil(t, s.Body.Left.Where)
			},
		},
		{
			name:    "create table as select",
			dialect: "snowflake",
			sql:     "CREATE OR REPLACE TRANSIENT TABLE db.sch.t AS SELECT * FROM src",
			check: func(t *testing.T, stmt parser.Statement) {
				s, ok := stmt.(*parser.CreateTableStmt)
				require.True(t, ok)
				assert.True(t, s.OrReplace)
				assert.Equal(t, "db", s.Name.Catalog.Name)
				assert.Equal(t, "sch", s.Name.Schema.Name)
				assert.Equal(t, "t", s.Name.Name.Name)
				require.NotNil(t, s.Query)
			},
		},
		{
			name:    "create table clone",
			dialect: "snowflake",
			sql:     "CREATE TABLE t2 CLONE t1",
			check: func(t *testing.T, stmt parser.Statement) {
				s, ok := stmt.(*parser.CreateTableStmt)
				require.True(t, ok)
				require.NotNil(t, s.Clone)
				assert.Equal(t, "t1", s.Clone.Name.Name)
			},
		},
		{
			name:    "create view",
			dialect: "redshift",
			sql:     "CREATE VIEW v AS SELECT * FROM t WITH NO SCHEMA BINDING",
			check: func(t *testing.T, stmt parser.Statement) {
				s, ok := stmt.(*parser.CreateViewStmt)
				require.True(t, ok)
				assert.Equal(t, "v", s.Name.Name.Name)
			},
		},
		{
			name:    "insert values",
			dialect: "ansi",
			sql:     "INSERT INTO t (a, b) VALUES (1, 2), (3, 4)",
			check: func(t *testing.T, stmt parser.Statement) {
				s, ok := stmt.(*parser.InsertStmt)
				require.True(t, ok)
				assert.Len(t, s.Columns, 2)
				assert.Len(t, s.Values, 2)
			},
		},
		{
			name:    "update from",
			dialect: "redshift",
			sql:     "UPDATE t SET a = s.a FROM s WHERE t.id = s.id",
			check: func(t *testing.T, stmt parser.Statement) {
				s, ok := stmt.(*parser.UpdateStmt)
				require.True(t, ok)
				assert.Len(t, s.Sets, 1)
				require.NotNil(t, s.From)
				assert.NotNil(t, s.Where)
			},
		},
		{
			name:    "merge",
			dialect: "snowflake",
			sql: `MERGE INTO t USING s ON t.id = s.id
				WHEN MATCHED AND s.del THEN DELETE
				WHEN MATCHED THEN UPDATE SET t.v = s.v
				WHEN NOT MATCHED THEN INSERT (id, v) VALUES (s.id, s.v)`,
			check: func(t *testing.T, stmt parser.Statement) {
				s, ok := stmt.(*parser.MergeStmt)
				require.True(t, ok)
				require.Len(t, s.Clauses, 3)
				assert.Equal(t, parser.MergeDelete, s.Clauses[0].Action)
				assert.NotNil(t, s.Clauses[0].Condition)
				assert.Equal(t, parser.MergeUpdate, s.Clauses[1].Action)
				assert.Equal(t, parser.MergeInsert, s.Clauses[2].Action)
				assert.False(t, s.Clauses[2].Matched)
			},
		},
		{
			name:    "delete",
			dialect: "postgres",
			sql:     "DELETE FROM t WHERE id IN (SELECT id FROM s)",
			check: func(t *testing.T, stmt parser.Statement) {
				_, ok := stmt.(*parser.DeleteStmt)
				assert.True(t, ok)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := parser.Parse(tt.sql, mustDialect(t, tt.dialect))
			require.NoError(t, err)
			tt.check(t, stmt)
		})
	}
}

func TestParse_QuotedIdentifiers(t *testing.T) {
	stmt, err := parser.Parse(`SELECT * FROM "My Db".sch."Tbl"`, mustDialect(t, "snowflake"))
	require.NoError(t, err)

	s := stmt.(*parser.SelectStmt)
	tbl, ok := s.Body.Left.From.Source.(*parser.TableName)
	require.True(t, ok)
	assert.Equal(t, parser.Ident{Name: "My Db", Quoted: true}, tbl.Catalog)
	assert.Equal(t, parser.Ident{Name: "sch"}, tbl.Schema)
	assert.Equal(t, parser.Ident{Name: "Tbl", Quoted: true}, tbl.Name)
}

func TestParse_BigQuerySplitsQuotedPath(t *testing.T) {
	stmt, err := parser.Parse("SELECT * FROM `proj.ds.tbl`", mustDialect(t, "bigquery"))
	require.NoError(t, err)

	tbl := stmt.(*parser.SelectStmt).Body.Left.From.Source.(*parser.TableName)
	assert.Equal(t, "proj", tbl.Catalog.Name)
	assert.Equal(t, "ds", tbl.Schema.Name)
	assert.Equal(t, "tbl", tbl.Name.Name)
}

func TestParse_TableNameTooManyParts(t *testing.T) {
	tests := []struct {
		name    string
		dialect string
		sql     string
	}{
		{name: "from", dialect: "ansi", sql: "SELECT * FROM a.b.c.d"},
		{name: "ctas target", dialect: "snowflake", sql: "CREATE TABLE a.b.c.d AS SELECT 1"},
		{name: "insert target", dialect: "ansi", sql: "INSERT INTO a.b.c.d SELECT 1"},
		{name: "quoted path", dialect: "bigquery", sql: "SELECT * FROM `p.d.t.x`"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse(tt.sql, mustDialect(t, tt.dialect))
			var perr *parser.ParseError
			require.ErrorAs(t, err, &perr)
			assert.Contains(t, perr.Message, "more than three parts")
		})
	}
}

func TestParse_FourPartFunctionName(t *testing.T) {
	_, err := parser.Parse("SELECT a.b.c.f(x) FROM t", mustDialect(t, "ansi"))
	assert.NoError(t, err)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		dialect string
		sql     string
	}{
		{name: "empty", dialect: "ansi", sql: ""},
		{name: "garbage", dialect: "ansi", sql: "this is not sql"},
		{name: "unbalanced parens", dialect: "ansi", sql: "SELECT (a FROM t"},
		{name: "two statements", dialect: "ansi", sql: "SELECT 1; SELECT 2"},
		{name: "trailing comma without support", dialect: "redshift", sql: "SELECT a, FROM t"},
		{name: "unknown table option", dialect: "ansi", sql: "CREATE TABLE t DISTKEY(a) AS SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse(tt.sql, mustDialect(t, tt.dialect))
			require.Error(t, err)
			var perr *parser.ParseError
			assert.True(t, errors.As(err, &perr), "got %T", err)
		})
	}
}

func TestParse_ErrorPosition(t *testing.T) {
	_, err := parser.Parse("SELECT a\nFROM t\nWHERE )", mustDialect(t, "ansi"))
	var perr *parser.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 3, perr.Pos.Line)
	assert.Equal(t, 7, perr.Pos.Column)
}

func TestParse_TrailingSemicolons(t *testing.T) {
	_, err := parser.Parse("SELECT 1;;;", mustDialect(t, "ansi"))
	assert.NoError(t, err)
}

func TestParseScript(t *testing.T) {
	script := "SELECT * FROM a;\nSELECT FROM;\nINSERT INTO b SELECT * FROM c"
	got := parser.ParseScript(script, mustDialect(t, "ansi"))
	require.Len(t, got, 3)

	assert.NoError(t, got[0].Err)
	assert.Equal(t, []string{"a"}, collectTables(got[0].Statement))

	assert.Error(t, got[1].Err)
	assert.Nil(t, got[1].Statement)
	assert.Equal(t, 2, got[1].Pos.Line)

	assert.NoError(t, got[2].Err)
	assert.Equal(t, []string{"b", "c"}, collectTables(got[2].Statement))
}

func TestInspect_ReachesNestedQueries(t *testing.T) {
	sql := `SELECT (SELECT max(x) FROM s1), EXISTS (SELECT 1 FROM s2)
		FROM t1 JOIN (SELECT * FROM s3) d ON t1.id = d.id
		WHERE t1.v IN (SELECT v FROM s4)
		UNION ALL SELECT * FROM s5`
	stmt, err := parser.Parse(sql, mustDialect(t, "ansi"))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"s1", "s2", "t1", "s3", "s4", "s5"}, collectTables(stmt))
}

func TestNilDialectUsesANSI(t *testing.T) {
	stmt, err := parser.Parse(`SELECT * FROM "T"`, nil)
	require.NoError(t, err)
	tbl := stmt.(*parser.SelectStmt).Body.Left.From.Source.(*parser.TableName)
	assert.True(t, tbl.Name.Quoted)
}
