package globalid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name       string
		tenant     string
		cluster    string
		contentKey string
		kind       Kind
		want       string
	}{
		{
			name:       "table",
			tenant:     "test-tenant",
			cluster:    "test-endpoint",
			contentKey: "MARTPUBLICDEST_TABLE",
			kind:       Table,
			want:       "tbl-51e840224b237bd0ebb983128f1f03cc",
		},
		{
			name:       "snowflake lineage downstream",
			tenant:     "tenant1",
			cluster:    "snowflake-test-endpoint",
			contentKey: "TEST_DB1TEST_SCHEMA1TEST_TABLE1",
			kind:       Table,
			want:       "tbl-6a985454f20f611bb0180433520ac94b",
		},
		{
			name:       "snowflake lineage upstream",
			tenant:     "tenant1",
			cluster:    "snowflake-test-endpoint",
			contentKey: "TEST_DB2TEST_SCHEMA1TEST_TABLE1",
			kind:       Table,
			want:       "tbl-7db303735f2b3ba0e226c5f423c2eba7",
		},
		{
			name:       "column",
			tenant:     "tenant1",
			cluster:    "snowflake-test-endpoint",
			contentKey: "TEST_DB1TEST_SCHEMA1TEST_TABLE1COL1",
			kind:       Column,
			want:       "col-58bb0c700fec35b266e00389e157c90f",
		},
		{
			name: "empty inputs are valid",
			kind: Schema,
			want: "schm-d41d8cd98f00b204e9800998ecf8427e",
		},
		{
			name:       "data source",
			tenant:     "tenant1",
			cluster:    "cluster",
			contentKey: "db",
			kind:       DataSource,
			want:       "dsrc-6b0003384d002c9cf16748b8f0667f49",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Derive(tt.tenant, tt.cluster, tt.contentKey, tt.kind))
		})
	}
}

func TestDerive_Deterministic(t *testing.T) {
	a := Derive("t", "c", "key", Table)
	b := Derive("t", "c", "key", Table)
	assert.Equal(t, a, b)
	assert.Len(t, a, len("tbl-")+32)
	assert.NotEqual(t, a, Derive("t", "c", "key", Column))
}

func TestContentKey(t *testing.T) {
	assert.Equal(t, "DB_DWHPUBLICTEST1", ContentKey("DB_DWH", "PUBLIC", "TEST1"))
	assert.Equal(t, "", ContentKey())
	assert.Equal(t,
		Derive("test-tenant", "test-endpoint", "DB_DWHPUBLICTEST2", Table),
		TableID("test-tenant", "test-endpoint", "DB_DWH", "PUBLIC", "TEST2"))
	assert.Equal(t, "tbl-d2d924bd453747c01880e827cc37824a",
		TableID("test-tenant", "test-endpoint", "DB_DWH", "PUBLIC", "TEST2"))
	assert.Equal(t, "col-58bb0c700fec35b266e00389e157c90f",
		ColumnID("tenant1", "snowflake-test-endpoint", "TEST_DB1", "TEST_SCHEMA1", "TEST_TABLE1", "COL1"))
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{in: "table", want: Table},
		{in: "column", want: Column},
		{in: "SCHEMA", want: Schema},
		{in: "data_source", want: DataSource},
		{in: "view", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Prefix(), got.Prefix())
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "data_source", DataSource.String())
	assert.Equal(t, "dsrc", DataSource.Prefix())
	assert.Equal(t, "Kind(9)", Kind(9).String())
	assert.Equal(t, "", Kind(9).Prefix())
}
