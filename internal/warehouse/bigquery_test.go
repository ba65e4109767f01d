package warehouse

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const serviceAccountKey = `{"type": "service_account", "project_id": "analytics-prod", "client_email": "sync@analytics-prod.iam.gserviceaccount.com"}`

func TestLoadCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, []byte(serviceAccountKey), 0o600))

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "empty", in: ""},
		{name: "inline json", in: "  " + serviceAccountKey, want: serviceAccountKey},
		{name: "file", in: path, want: serviceAccountKey},
		{name: "missing file", in: filepath.Join(t.TempDir(), "nope.json"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := loadCredentials(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "failed to read bigquery credentials")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestCredentialsProject(t *testing.T) {
	assert.Equal(t, "analytics-prod", credentialsProject([]byte(serviceAccountKey)))
	assert.Empty(t, credentialsProject(nil))
	assert.Empty(t, credentialsProject([]byte("not json")))
	assert.Empty(t, credentialsProject([]byte(`{"type": "authorized_user"}`)))
}

func TestBigQuery_ConnectNeedsProject(t *testing.T) {
	err := NewBigQuery(nil).Connect(context.Background(), Config{Credentials: `{"type": "service_account"}`})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bigquery project not set")
}

func TestBigQuery_Unconnected(t *testing.T) {
	bq := NewBigQuery(nil)
	ctx := context.Background()

	_, err := bq.Query(ctx, "SELECT 1")
	assert.ErrorIs(t, err, errNotConnected)
	_, err = bq.QueryTuples(ctx, "SELECT 1")
	assert.ErrorIs(t, err, errNotConnected)
	_, err = bq.SearchLinks(ctx, "us", "bigquery:p.d.t")
	assert.ErrorIs(t, err, errNotConnected)
	assert.NoError(t, bq.Close())
}

func TestBigQuery_ConfiguredOrganization(t *testing.T) {
	bq := NewBigQuery(nil)
	bq.org = "123456789"

	org, err := bq.OrganizationID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "123456789", org)
}

func TestBigQueryValue(t *testing.T) {
	assert.Equal(t, "12.5", bigQueryValue(big.NewRat(25, 2)))
	assert.Equal(t, "7", bigQueryValue(big.NewRat(7, 1)))
	assert.Equal(t, int64(7), bigQueryValue(int64(7)))
	assert.Equal(t, "x", bigQueryValue("x"))
	assert.Nil(t, bigQueryValue(nil))
}
