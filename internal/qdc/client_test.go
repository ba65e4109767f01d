package qdc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/catalogsync/internal/testutil"
)

const (
	testClientID     = "fake_client_id"
	testClientSecret = "fake_client_secret"
)

// fakeCatalog is an in-process catalog API.
type fakeCatalog struct {
	srv *httptest.Server

	tokenCalls  atomic.Int32
	updateCalls atomic.Int32

	// exp is the expiry stamped into issued tokens; zero omits the claim.
	exp time.Time
	// status is returned by update endpoints.
	status atomic.Int32

	lastPath atomic.Value
	lastAuth atomic.Value
	lastBody atomic.Value
}

func newFakeCatalog(t *testing.T) *fakeCatalog {
	t.Helper()
	fc := &fakeCatalog{}
	fc.status.Store(http.StatusOK)

	r := chi.NewRouter()
	r.Post("/oauth2/token", fc.handleToken(t))
	r.Put("/v2/lineage/{id}", fc.handleUpdate)
	r.Put("/v2/assets/{id}/stats", fc.handleUpdate)

	fc.srv = httptest.NewServer(r)
	t.Cleanup(fc.srv.Close)
	return fc
}

func (fc *fakeCatalog) handleToken(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := fc.tokenCalls.Add(1)

		id, secret, ok := r.BasicAuth()
		if !ok || id != testClientID || secret != testClientSecret {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := r.ParseForm(); err != nil ||
			r.PostForm.Get("grant_type") != "client_credentials" ||
			r.PostForm.Get("client_id") != testClientID ||
			r.PostForm.Get("scope") != tokenScope {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		claims := jwt.MapClaims{"sub": testClientID, "n": n}
		if !fc.exp.IsZero() {
			claims["exp"] = fc.exp.Unix()
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		if err != nil {
			t.Errorf("sign token: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": signed})
	}
}

func (fc *fakeCatalog) handleUpdate(w http.ResponseWriter, r *http.Request) {
	fc.updateCalls.Add(1)
	body, _ := io.ReadAll(r.Body)
	fc.lastPath.Store(r.URL.Path)
	fc.lastAuth.Store(r.Header.Get("Authorization"))
	fc.lastBody.Store(string(body))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(int(fc.status.Load()))
	_, _ = w.Write([]byte(`{"error": "error test"}`))
}

func (fc *fakeCatalog) config() Config {
	return Config{
		BaseURL:      fc.srv.URL,
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		BackoffBase:  time.Millisecond,
		BackoffCap:   2 * time.Millisecond,
	}
}

func TestNew_FetchesToken(t *testing.T) {
	fc := newFakeCatalog(t)

	c, err := New(context.Background(), fc.config(), testutil.NewTestLogger(t))
	require.NoError(t, err)
	assert.NotEmpty(t, c.token)
	assert.Equal(t, int32(1), fc.tokenCalls.Load())
}

func TestNew_Errors(t *testing.T) {
	fc := newFakeCatalog(t)

	t.Run("bad credentials", func(t *testing.T) {
		cfg := fc.config()
		cfg.ClientSecret = "wrong"
		_, err := New(context.Background(), cfg, testutil.NewTestLogger(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 401")
	})

	t.Run("missing base url", func(t *testing.T) {
		_, err := New(context.Background(), Config{}, nil)
		assert.Error(t, err)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		cfg := fc.config()
		cfg.BaseURL = srv.URL
		_, err := New(context.Background(), cfg, testutil.NewTestLogger(t))
		assert.Error(t, err)
	})

	t.Run("no access token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))
		t.Cleanup(srv.Close)
		cfg := fc.config()
		cfg.BaseURL = srv.URL
		_, err := New(context.Background(), cfg, testutil.NewTestLogger(t))
		assert.ErrorIs(t, err, ErrNoAccessToken)
	})
}

func TestUpdate_Retries(t *testing.T) {
	tests := []struct {
		code     int
		attempts int32
	}{
		{http.StatusOK, 1},
		{http.StatusBadRequest, 1},
		{http.StatusUnauthorized, 1},
		{http.StatusForbidden, 1},
		{http.StatusNotFound, 1},
		{http.StatusTooManyRequests, 10},
		{http.StatusInternalServerError, 10},
		{http.StatusServiceUnavailable, 10},
		{http.StatusGatewayTimeout, 10},
	}

	calls := map[string]func(c *Client) (int, error){
		"lineage": func(c *Client) (int, error) {
			return c.UpdateLineage(context.Background(), "tbl-12345", map[string][]string{"tbl-12345": {"tbl-67890"}})
		},
		"stats": func(c *Client) (int, error) {
			return c.UpdateStats(context.Background(), "tbl-12345", map[string][]string{"tbl-12345": {"tbl-67890"}})
		},
	}

	for name, call := range calls {
		for _, tt := range tests {
			t.Run(name+"/"+http.StatusText(tt.code), func(t *testing.T) {
				fc := newFakeCatalog(t)
				fc.status.Store(int32(tt.code))
				c, err := New(context.Background(), fc.config(), testutil.NewTestLogger(t))
				require.NoError(t, err)

				status, err := call(c)
				require.NoError(t, err)
				assert.Equal(t, tt.code, status)
				assert.Equal(t, tt.attempts, fc.updateCalls.Load())
			})
		}
	}
}

func TestUpdate_MaxAttemptsIsConfigurable(t *testing.T) {
	fc := newFakeCatalog(t)
	fc.status.Store(http.StatusServiceUnavailable)
	cfg := fc.config()
	cfg.MaxAttempts = 3

	c, err := New(context.Background(), cfg, testutil.NewTestLogger(t))
	require.NoError(t, err)

	status, err := c.UpdateLineage(context.Background(), "tbl-1", map[string][]string{"tbl-1": {}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, int32(3), fc.updateCalls.Load())
}

func TestUpdateLineage_Request(t *testing.T) {
	fc := newFakeCatalog(t)
	c, err := New(context.Background(), fc.config(), testutil.NewTestLogger(t))
	require.NoError(t, err)

	status, err := c.UpdateLineage(context.Background(), "tbl-abc", map[string][]string{"tbl-abc": {"tbl-x", "tbl-y"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	assert.Equal(t, "/v2/lineage/tbl-abc", fc.lastPath.Load())
	assert.Equal(t, "Bearer "+c.token, fc.lastAuth.Load())
	assert.JSONEq(t, `{"tbl-abc": ["tbl-x", "tbl-y"]}`, fc.lastBody.Load().(string))
}

func TestUpdateStats_Request(t *testing.T) {
	fc := newFakeCatalog(t)
	c, err := New(context.Background(), fc.config(), testutil.NewTestLogger(t))
	require.NoError(t, err)

	_, err = c.UpdateStats(context.Background(), "col-abc", map[string]any{"column_stats": map[string]any{"max": "10"}})
	require.NoError(t, err)
	assert.Equal(t, "/v2/assets/col-abc/stats", fc.lastPath.Load())
	assert.JSONEq(t, `{"column_stats": {"max": "10"}}`, fc.lastBody.Load().(string))
}

func TestBearer_RefreshesAtExpiry(t *testing.T) {
	exp := time.Unix(1720079532, 0)
	fc := newFakeCatalog(t)
	fc.exp = exp

	now := exp.Add(-time.Second)
	cfg := fc.config()
	cfg.Now = func() time.Time { return now }

	c, err := New(context.Background(), cfg, testutil.NewTestLogger(t))
	require.NoError(t, err)
	first := c.token

	// Before expiry the cached token is reused.
	got, err := c.bearer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, got)
	assert.Equal(t, int32(1), fc.tokenCalls.Load())

	// At expiry a new token is fetched.
	now = exp
	got, err = c.bearer(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, got)
	assert.Equal(t, int32(2), fc.tokenCalls.Load())

	// Past expiry as well.
	now = exp.Add(time.Second)
	_, err = c.bearer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), fc.tokenCalls.Load())
}

func TestBearer_NoExpiryKeepsToken(t *testing.T) {
	fc := newFakeCatalog(t)
	c, err := New(context.Background(), fc.config(), testutil.NewTestLogger(t))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := c.UpdateLineage(context.Background(), "tbl-1", map[string][]string{"tbl-1": {}})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), fc.tokenCalls.Load())
}

func TestBearer_OpaqueTokenIsReplaced(t *testing.T) {
	fc := newFakeCatalog(t)
	c, err := New(context.Background(), fc.config(), testutil.NewTestLogger(t))
	require.NoError(t, err)

	c.token = "not-a-jwt"
	got, err := c.bearer(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, "not-a-jwt", got)
}

func TestUpdate_BadRequestLogsHint(t *testing.T) {
	fc := newFakeCatalog(t)
	fc.status.Store(http.StatusBadRequest)

	logger, logs := testutil.NewCapturingLogger(t)
	c, err := New(context.Background(), fc.config(), logger)
	require.NoError(t, err)

	_, err = c.UpdateLineage(context.Background(), "tbl-missing", map[string][]string{"tbl-missing": {}})
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "Please check downstream asset exists on qdc.")
	assert.Contains(t, logs.String(), "downstream_global_id=tbl-missing")

	logs.Reset()
	_, err = c.UpdateStats(context.Background(), "col-missing", map[string]any{})
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "Please check asset exists on qdc.")
	assert.Contains(t, logs.String(), "global_id=col-missing")
}

func TestUpdate_NetworkError(t *testing.T) {
	fc := newFakeCatalog(t)
	c, err := New(context.Background(), fc.config(), testutil.NewTestLogger(t))
	require.NoError(t, err)

	fc.srv.Close()
	status, err := c.UpdateLineage(context.Background(), "tbl-1", map[string][]string{"tbl-1": {}})
	assert.Error(t, err)
	assert.Equal(t, 0, status)
}

func TestUpdate_ContextCanceledDuringBackoff(t *testing.T) {
	fc := newFakeCatalog(t)
	fc.status.Store(http.StatusServiceUnavailable)
	cfg := fc.config()
	cfg.BackoffBase = time.Hour
	cfg.BackoffCap = time.Hour

	c, err := New(context.Background(), cfg, testutil.NewTestLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.UpdateLineage(ctx, "tbl-1", map[string][]string{"tbl-1": {}})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), fc.updateCalls.Load())
}

func TestUpdate_Paced(t *testing.T) {
	fc := newFakeCatalog(t)
	cfg := fc.config()
	cfg.RequestsPerSecond = 1000

	c, err := New(context.Background(), cfg, testutil.NewTestLogger(t))
	require.NoError(t, err)
	require.NotNil(t, c.limiter)

	for i := 0; i < 5; i++ {
		status, err := c.UpdateLineage(context.Background(), "tbl-1", map[string][]string{"tbl-1": {}})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)
	}
	assert.Equal(t, int32(5), fc.updateCalls.Load())
}
