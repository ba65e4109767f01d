package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/catalogsync/internal/state"
)

// HistoryEntry is one run in the history command output.
type HistoryEntry struct {
	ID          string     `json:"id" yaml:"id"`
	Command     string     `json:"command" yaml:"command"`
	Warehouse   string     `json:"warehouse" yaml:"warehouse"`
	Status      string     `json:"status" yaml:"status"`
	Attempted   int        `json:"attempted" yaml:"attempted"`
	Succeeded   int        `json:"succeeded" yaml:"succeeded"`
	Error       string     `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent lineage and stats runs",
		Example: `  # Last 20 runs
  catalogsync history

  # Last 5 runs as YAML
  catalogsync history --limit 5 -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")

	return cmd
}

func runHistory(cmd *cobra.Command, limit int) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	store, err := cc.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.RecentRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	entries := make([]HistoryEntry, 0, len(runs))
	for _, r := range runs {
		entries = append(entries, historyEntry(r))
	}

	return cc.Renderer.Render(entries, func(t table.Writer) {
		t.AppendHeader(table.Row{"Started", "Command", "Warehouse", "Status", "Succeeded", "Duration", "Error"})
		for _, r := range runs {
			t.AppendRow(table.Row{
				r.StartedAt.Local().Format(time.DateTime),
				r.Command,
				r.Warehouse,
				r.Status,
				formatCount(r),
				r.Duration().Round(time.Millisecond),
				r.Error,
			})
		}
		t.AppendFooter(table.Row{fmt.Sprintf("(%d runs)", len(runs))})
	})
}

func historyEntry(r *state.Run) HistoryEntry {
	return HistoryEntry{
		ID:          r.ID,
		Command:     r.Command,
		Warehouse:   r.Warehouse,
		Status:      string(r.Status),
		Attempted:   r.Attempted,
		Succeeded:   r.Succeeded,
		Error:       r.Error,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
	}
}

// formatCount renders succeeded/attempted.
func formatCount(r *state.Run) string {
	return fmt.Sprintf("%d/%d", r.Succeeded, r.Attempted)
}
