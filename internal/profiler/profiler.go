// Package profiler reads lineage and statistics from a warehouse and pushes
// them to the catalog.
//
// Every profiler follows the same shape: query the warehouse, build request
// payloads with package payload, then send one update per asset through a
// CatalogClient. Updates may run concurrently; a failed update is logged
// and counted, never fatal.
package profiler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/catalogsync/pkg/payload"
)

// CatalogClient sends updates to the catalog. *qdc.Client implements it.
type CatalogClient interface {
	UpdateLineage(ctx context.Context, globalID string, body map[string][]string) (int, error)
	UpdateStats(ctx context.Context, globalID string, body any) (int, error)
}

// Querier runs read-only queries. Every warehouse.Executor is a Querier.
type Querier interface {
	Query(ctx context.Context, sql string) ([]map[string]any, error)
	QueryTuples(ctx context.Context, sql string) ([][]any, error)
}

// Result counts the updates of one profiler run.
type Result struct {
	Attempted int
	Succeeded int
}

// Add returns the sum of r and o.
func (r Result) Add(o Result) Result {
	return Result{Attempted: r.Attempted + o.Attempted, Succeeded: r.Succeeded + o.Succeeded}
}

// Ingestor pushes payloads for one tenant.
type Ingestor struct {
	Client   CatalogClient
	Logger   *slog.Logger
	TenantID string

	// Parallelism bounds the number of in-flight catalog updates.
	// Values below 1 mean sequential.
	Parallelism int
}

func (in *Ingestor) logger() *slog.Logger {
	if in.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return in.Logger
}

func (in *Ingestor) limit() int {
	if in.Parallelism < 1 {
		return 1
	}
	return in.Parallelism
}

// fanOut calls send for each of n items with bounded concurrency and
// counts the items whose status was 200. Only context cancellation stops
// the run early.
func (in *Ingestor) fanOut(ctx context.Context, n int, send func(ctx context.Context, i int) (int, error)) (Result, error) {
	var succeeded atomic.Int64
	attempted := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.limit())
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		attempted++
		g.Go(func() error {
			status, err := send(gctx, i)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				return nil
			}
			if status == 200 {
				succeeded.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return Result{Attempted: attempted, Succeeded: int(succeeded.Load())}, err
}

// pushLineage sends one lineage update per input. kind names the lineage
// in log lines ("table", "column", "view").
func (in *Ingestor) pushLineage(ctx context.Context, kind string, inputs []payload.LineageInput) (Result, error) {
	log := in.logger()
	res, err := in.fanOut(ctx, len(inputs), func(ctx context.Context, i int) (int, error) {
		li := inputs[i]
		log.Info(fmt.Sprintf("Generating %s lineage. downstream: %s", kind, downstreamPath(li)))
		return in.Client.UpdateLineage(ctx, li.DownstreamGlobalID, li.Body())
	})
	if err != nil {
		return res, fmt.Errorf("%s lineage upload interrupted: %w", kind, err)
	}
	log.Info(fmt.Sprintf("Generating %s lineage is finished. %d lineages are ingested.", kind, res.Succeeded))
	return res, nil
}

// pushStats sends one stats update per request. body selects which
// sections of the request are sent.
func (in *Ingestor) pushStats(ctx context.Context, reqs []payload.StatsRequest, body func(payload.StatsInput) map[string]any) (Result, error) {
	log := in.logger()
	res, err := in.fanOut(ctx, len(reqs), func(ctx context.Context, i int) (int, error) {
		r := reqs[i]
		log.Info(fmt.Sprintf("Generating table stats. asset: %s -> %s -> %s -> %s", r.Database, r.Schema, r.Table, r.Column))
		return in.Client.UpdateStats(ctx, r.GlobalID, body(r.Body))
	})
	if err != nil {
		return res, fmt.Errorf("stats upload interrupted: %w", err)
	}
	return res, nil
}

func (in *Ingestor) logStatsFinished(res Result) {
	in.logger().Info(fmt.Sprintf("Generating table stats is finished. %d stats are ingested.", res.Succeeded))
}

func downstreamPath(li payload.LineageInput) string {
	parts := []string{li.DownstreamDatabase, li.DownstreamSchema, li.DownstreamTable}
	if li.DownstreamColumn != "" {
		parts = append(parts, li.DownstreamColumn)
	}
	return strings.Join(parts, " -> ")
}

// quoteLiteral renders s as a single-quoted SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// fqn joins name parts with dots.
func fqn(parts ...string) string {
	return strings.Join(parts, ".")
}

// field reads key from row ignoring case and renders it as a string.
func field(row map[string]any, key string) (string, bool) {
	v, ok := row[key]
	if !ok {
		for k, val := range row {
			if strings.EqualFold(k, key) {
				v, ok = val, true
				break
			}
		}
	}
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	default:
		return fmt.Sprint(t), true
	}
}
