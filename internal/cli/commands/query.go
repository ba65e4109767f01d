package commands

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Input string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query <warehouse> [SQL]",
		Short: "Run a read-only query against a warehouse",
		Long: `Run SQL against a configured warehouse and print the result.

Useful for checking the lineage and stats views the profilers read
before sending anything to the catalog.`,
		Example: `  # Inspect the Snowflake lineage view
  catalogsync query snowflake "SELECT * FROM DWH.QUOLLIO.QUOLLIO_LINEAGE_TABLE_LEVEL LIMIT 10"

  # Read SQL from a file and print JSON
  catalogsync query redshift --input check.sql -o json`,
		Args:              cobra.RangeArgs(1, 2),
		ValidArgsFunction: completeWarehouses,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	var sqlStr string
	switch {
	case opts.Input != "":
		b, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", opts.Input, err)
		}
		sqlStr = string(b)
	case len(args) == 2:
		sqlStr = args[1]
	}
	if strings.TrimSpace(sqlStr) == "" {
		return fmt.Errorf("no SQL given\nHint: Pass the query as an argument or use --input")
	}

	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	exec, _, err := cc.connect(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer func() { _ = exec.Close() }()

	rows, err := exec.Query(cmd.Context(), sqlStr)
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []map[string]any{}
	}

	return cc.Renderer.Render(rows, func(t table.Writer) {
		cols := resultColumns(rows)
		header := make(table.Row, len(cols))
		for i, col := range cols {
			header[i] = col
		}
		t.AppendHeader(header)
		for _, r := range rows {
			row := make(table.Row, len(cols))
			for i, col := range cols {
				row[i] = formatValue(r[col])
			}
			t.AppendRow(row)
		}
		t.AppendFooter(table.Row{fmt.Sprintf("(%d rows)", len(rows))})
	})
}

// resultColumns returns the column names of rows, sorted.
func resultColumns(rows []map[string]any) []string {
	seen := make(map[string]struct{})
	for _, r := range rows {
		for col := range r {
			seen[col] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for col := range seen {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}
