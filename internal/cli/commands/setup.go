package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/catalogsync/internal/cli/config"
	"github.com/leapstack-labs/catalogsync/internal/cli/output"
	"github.com/leapstack-labs/catalogsync/internal/profiler"
	"github.com/leapstack-labs/catalogsync/internal/qdc"
	"github.com/leapstack-labs/catalogsync/internal/state"
	"github.com/leapstack-labs/catalogsync/internal/warehouse"
)

// openWarehouse is replaced in tests.
var openWarehouse = warehouse.Open

// newCatalogClient connects to the catalog API and fetches the first
// access token.
func newCatalogClient(ctx context.Context, cfg config.CatalogConfig, logger *slog.Logger) (profiler.CatalogClient, error) {
	client, err := qdc.New(ctx, qdc.Config{
		BaseURL:           cfg.URL,
		ClientID:          cfg.ClientID,
		ClientSecret:      cfg.ClientSecret,
		MaxAttempts:       cfg.MaxAttempts,
		BackoffBase:       cfg.BackoffBase,
		BackoffCap:        cfg.BackoffCap,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}, logger)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext reads the config and logger the root command stored
// in the command context and builds the renderer.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := config.GetConfig(cmd.Context())
	mode, err := output.ParseMode(cfg.Output)
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}, nil
}

// openStore opens and migrates the run-history database.
func (cc *CommandContext) openStore(ctx context.Context) (*state.Store, error) {
	stateDir := filepath.Dir(cc.Cfg.StatePath)
	if stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewStore(cc.Logger)
	if err := store.Open(ctx, cc.Cfg.StatePath); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// newIngestor connects to the catalog API.
func (cc *CommandContext) newIngestor(ctx context.Context) (*profiler.Ingestor, error) {
	client, err := newCatalogClient(ctx, cc.Cfg.Catalog, cc.Logger)
	if err != nil {
		return nil, err
	}
	return &profiler.Ingestor{
		Client:      client,
		Logger:      cc.Logger,
		TenantID:    cc.Cfg.TenantID,
		Parallelism: cc.Cfg.Profiler.Parallelism,
	}, nil
}

// RunSummary is the output of the lineage and stats commands.
type RunSummary struct {
	RunID     string `json:"run_id" yaml:"run_id"`
	Command   string `json:"command" yaml:"command"`
	Warehouse string `json:"warehouse" yaml:"warehouse"`
	Status    string `json:"status" yaml:"status"`
	Attempted int    `json:"attempted" yaml:"attempted"`
	Succeeded int    `json:"succeeded" yaml:"succeeded"`
	Duration  string `json:"duration" yaml:"duration"`
}

// track records fn as a run in the history store and renders its summary.
// The run is marked failed when fn returns an error.
func (cc *CommandContext) track(ctx context.Context, command, wh string, fn func(ctx context.Context) (profiler.Result, error)) error {
	store, err := cc.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := store.StartRun(ctx, command, wh)
	if err != nil {
		return err
	}
	cc.Logger.Debug("run started", "run_id", run.ID, "command", command, "warehouse", wh)

	res, runErr := fn(ctx)
	if runErr != nil {
		// The caller's context may be cancelled; still record the failure.
		if err := store.FailRun(context.WithoutCancel(ctx), run.ID, res.Attempted, res.Succeeded, runErr); err != nil {
			cc.Logger.Error("failed to record run", "run_id", run.ID, "error", err)
		}
		return runErr
	}
	if err := store.CompleteRun(ctx, run.ID, res.Attempted, res.Succeeded); err != nil {
		return err
	}

	done, err := store.GetRun(ctx, run.ID)
	if err != nil {
		return err
	}
	summary := RunSummary{
		RunID:     done.ID,
		Command:   done.Command,
		Warehouse: done.Warehouse,
		Status:    string(done.Status),
		Attempted: done.Attempted,
		Succeeded: done.Succeeded,
		Duration:  done.Duration().String(),
	}
	return cc.Renderer.Render(summary, func(t table.Writer) {
		t.AppendHeader(table.Row{"Run", "Command", "Warehouse", "Status", "Attempted", "Succeeded", "Duration"})
		t.AppendRow(table.Row{summary.RunID, summary.Command, summary.Warehouse, summary.Status,
			summary.Attempted, summary.Succeeded, summary.Duration})
	})
}

// connect validates the settings for the named warehouse and opens it.
func (cc *CommandContext) connect(ctx context.Context, name string) (warehouse.Executor, warehouse.Config, error) {
	wc, err := cc.Cfg.Warehouse(name)
	if err != nil {
		return nil, warehouse.Config{}, err
	}
	exec, err := openWarehouse(ctx, wc, cc.Logger)
	if err != nil {
		return nil, warehouse.Config{}, fmt.Errorf("failed to connect to %s: %w", name, err)
	}
	return exec, wc, nil
}

// endpoint returns the cluster identifier that global IDs are derived
// from for the named warehouse.
func endpoint(name string, wc warehouse.Config) string {
	switch name {
	case "snowflake":
		return wc.Account
	case "redshift":
		return wc.Host
	case "databricks":
		return warehouse.TrimScheme(wc.Host)
	case "bigquery":
		return wc.Organization
	}
	return wc.Path
}

// organizationResolver looks up the organization of a BigQuery project.
type organizationResolver interface {
	OrganizationID(ctx context.Context) (string, error)
}

// resolveEndpoint is endpoint, asking the connected warehouse when the
// BigQuery organization is not configured.
func resolveEndpoint(ctx context.Context, exec warehouse.Executor, name string, wc warehouse.Config) (string, error) {
	if ep := endpoint(name, wc); ep != "" || name != "bigquery" {
		return ep, nil
	}
	r, ok := exec.(organizationResolver)
	if !ok {
		return "", errors.New("bigquery organization not set\nHint: Set bigquery.organization")
	}
	return r.OrganizationID(ctx)
}

// completeWarehouses completes the warehouse argument.
func completeWarehouses(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return warehouse.List(), cobra.ShellCompDirectiveNoFileComp
}
