package warehouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"strings"
	"sync"

	"cloud.google.com/go/bigquery"
	lineage "cloud.google.com/go/datacatalog/lineage/apiv1"
	"cloud.google.com/go/datacatalog/lineage/apiv1/lineagepb"
	"google.golang.org/api/cloudresourcemanager/v1"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/leapstack-labs/catalogsync/pkg/dialect"
)

func init() {
	Register("bigquery", func(logger *slog.Logger) Executor { return NewBigQuery(logger) })
}

// LineageLink is one edge recorded by the Data Lineage API, as fully
// qualified names ("bigquery:project.dataset.table").
type LineageLink struct {
	Source string
	Target string
}

// BigQuery runs queries through the BigQuery API and searches the Data
// Lineage API of the same project.
type BigQuery struct {
	Logger *slog.Logger

	opts    []option.ClientOption
	project string
	client  *bigquery.Client
	links   *lineage.Client

	orgMu sync.Mutex
	org   string
}

// NewBigQuery creates an unconnected BigQuery executor.
func NewBigQuery(logger *slog.Logger) *BigQuery {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &BigQuery{Logger: logger}
}

// Kind returns dialect.BigQuery.
func (b *BigQuery) Kind() dialect.Kind { return dialect.BigQuery }

// Project returns the project queries are billed to.
func (b *BigQuery) Project() string { return b.project }

// Connect creates the BigQuery and Data Lineage clients. Without
// credentials the application default credentials are used.
func (b *BigQuery) Connect(ctx context.Context, cfg Config) error {
	key, err := loadCredentials(cfg.Credentials)
	if err != nil {
		return err
	}
	b.project = cfg.Project
	if b.project == "" {
		b.project = credentialsProject(key)
	}
	if b.project == "" {
		return errors.New("bigquery project not set\nHint: Set bigquery.project or use a service account key with a project_id")
	}
	if key != nil {
		b.opts = []option.ClientOption{option.WithAuthCredentialsJSON(option.ServiceAccount, key)}
	}
	b.org = cfg.Organization

	b.Logger.Debug("connecting to bigquery", slog.String("project", b.project))
	client, err := bigquery.NewClient(ctx, b.project, b.opts...)
	if err != nil {
		return fmt.Errorf("failed to create bigquery client: %w", err)
	}
	links, err := lineage.NewClient(ctx, b.opts...)
	if err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to create lineage client: %w", err)
	}
	b.client, b.links = client, links
	return nil
}

// loadCredentials returns the service account key in s, reading it from
// disk when s is a path. An empty s yields nil.
func loadCredentials(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "{") {
		return []byte(s), nil
	}
	key, err := os.ReadFile(s)
	if err != nil {
		return nil, fmt.Errorf("failed to read bigquery credentials: %w", err)
	}
	return key, nil
}

func credentialsProject(key []byte) string {
	if key == nil {
		return ""
	}
	var k struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(key, &k); err != nil {
		return ""
	}
	return k.ProjectID
}

// Close releases both clients.
func (b *BigQuery) Close() error {
	var errs []error
	if b.links != nil {
		errs = append(errs, b.links.Close())
		b.links = nil
	}
	if b.client != nil {
		b.Logger.Debug("closing bigquery client")
		errs = append(errs, b.client.Close())
		b.client = nil
	}
	return errors.Join(errs...)
}

// Query runs sqlStr as a standard SQL job and returns the rows as maps.
func (b *BigQuery) Query(ctx context.Context, sqlStr string) ([]map[string]any, error) {
	it, err := b.read(ctx, sqlStr)
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for {
		var row map[string]bigquery.Value
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		m := make(map[string]any, len(row))
		for k, v := range row {
			m[k] = bigQueryValue(v)
		}
		out = append(out, m)
	}
}

// QueryTuples runs sqlStr and returns the rows positionally.
func (b *BigQuery) QueryTuples(ctx context.Context, sqlStr string) ([][]any, error) {
	it, err := b.read(ctx, sqlStr)
	if err != nil {
		return nil, err
	}
	var out [][]any
	for {
		var row []bigquery.Value
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		vals := make([]any, len(row))
		for i, v := range row {
			vals[i] = bigQueryValue(v)
		}
		out = append(out, vals)
	}
}

func (b *BigQuery) read(ctx context.Context, sqlStr string) (*bigquery.RowIterator, error) {
	if b.client == nil {
		return nil, errNotConnected
	}
	b.Logger.Debug("running warehouse query", slog.Int("length", len(sqlStr)))
	it, err := b.client.Query(sqlStr).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return it, nil
}

// bigQueryValue renders NUMERIC and BIGNUMERIC values as decimal strings
// without trailing zeros.
func bigQueryValue(v bigquery.Value) any {
	r, ok := v.(*big.Rat)
	if !ok || r == nil {
		return v
	}
	s := bigquery.NumericString(r)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}

// SearchLinks returns the links whose target is the fully qualified name
// target, as recorded in region.
func (b *BigQuery) SearchLinks(ctx context.Context, region, target string) ([]LineageLink, error) {
	if b.links == nil {
		return nil, errNotConnected
	}
	it := b.links.SearchLinks(ctx, &lineagepb.SearchLinksRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s", b.project, region),
		Criteria: &lineagepb.SearchLinksRequest_Target{
			Target: &lineagepb.EntityReference{FullyQualifiedName: target},
		},
	})
	var out []LineageLink
	for {
		link, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to search lineage of %s in %s: %w", target, region, err)
		}
		out = append(out, LineageLink{
			Source: link.GetSource().GetFullyQualifiedName(),
			Target: link.GetTarget().GetFullyQualifiedName(),
		})
	}
}

// OrganizationID returns the organization owning the project. Global IDs
// of BigQuery assets are derived from it.
func (b *BigQuery) OrganizationID(ctx context.Context) (string, error) {
	b.orgMu.Lock()
	defer b.orgMu.Unlock()
	if b.org != "" {
		return b.org, nil
	}

	svc, err := cloudresourcemanager.NewService(ctx, b.opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create resource manager client: %w", err)
	}
	p, err := svc.Projects.Get(b.project).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to look up project %s: %w", b.project, err)
	}
	if p.Parent == nil || p.Parent.Id == "" {
		return "", fmt.Errorf("project %s has no parent organization\nHint: Set bigquery.organization", b.project)
	}
	b.org = p.Parent.Id
	return b.org, nil
}
