package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/catalogsync/pkg/dialect"
	_ "github.com/leapstack-labs/catalogsync/pkg/dialects/all" // register dialects
	"github.com/leapstack-labs/catalogsync/pkg/lineage"
)

// ParseOptions holds options for the parse command.
type ParseOptions struct {
	Dialect      string
	SrcDatabase  string
	SrcSchema    string
	DestDatabase string
	DestSchema   string
	Endpoint     string
}

// ParsedStatement is the lineage of one statement of the parsed script.
type ParsedStatement struct {
	Line          int      `json:"line" yaml:"line"`
	Destination   string   `json:"destination,omitempty" yaml:"destination,omitempty"`
	Sources       []string `json:"sources" yaml:"sources"`
	DestinationID string   `json:"destination_id,omitempty" yaml:"destination_id,omitempty"`
	SourceIDs     []string `json:"source_ids,omitempty" yaml:"source_ids,omitempty"`
	Error         string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	opts := &ParseOptions{}

	cmd := &cobra.Command{
		Use:   "parse [file|-]",
		Short: "Extract table lineage from a SQL script",
		Long: `Parse a SQL script offline and print the destination and source tables
of each statement. Nothing is sent to the catalog.

Unqualified names are resolved against the --src-* defaults for sources
and the --dest-* defaults for the destination. With --endpoint, the
table global IDs are printed too, derived with the configured tenant.`,
		Example: `  # Parse a Snowflake script
  catalogsync parse etl.sql --dialect snowflake --dest-db DWH --dest-schema PUBLIC

  # Read from stdin and print JSON
  cat etl.sql | catalogsync parse - --dialect redshift -o json

  # Show the global IDs the catalog would use
  catalogsync parse etl.sql --dialect snowflake --tenant acme --endpoint xy12345`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return runParse(cmd, path, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Dialect, "dialect", "ansi", "SQL dialect ("+strings.Join(dialectNames(), "|")+")")
	cmd.Flags().StringVar(&opts.SrcDatabase, "src-db", "", "Default database for source tables")
	cmd.Flags().StringVar(&opts.SrcSchema, "src-schema", "", "Default schema for source tables")
	cmd.Flags().StringVar(&opts.DestDatabase, "dest-db", "", "Default database for the destination table")
	cmd.Flags().StringVar(&opts.DestSchema, "dest-schema", "", "Default schema for the destination table")
	cmd.Flags().StringVar(&opts.Endpoint, "endpoint", "", "Cluster endpoint used to derive global IDs")

	_ = cmd.RegisterFlagCompletionFunc("dialect", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return dialectNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func dialectNames() []string {
	kinds := dialect.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return names
}

func readScript(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path) //nolint:gosec // G304: path is a user argument
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(b), nil
}

func runParse(cmd *cobra.Command, path string, opts *ParseOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	kind, err := dialect.ParseKind(opts.Dialect)
	if err != nil {
		return err
	}
	sql, err := readScript(cmd, path)
	if err != nil {
		return err
	}

	facts, err := lineage.ExtractAll(sql, kind, lineage.Options{
		SrcDatabase:  opts.SrcDatabase,
		SrcSchema:    opts.SrcSchema,
		DestDatabase: opts.DestDatabase,
		DestSchema:   opts.DestSchema,
	})
	if err != nil {
		return err
	}

	stmts := make([]ParsedStatement, 0, len(facts))
	failed := 0
	for _, f := range facts {
		stmts = append(stmts, parsedStatement(f, cc.Cfg.TenantID, opts.Endpoint))
		if f.Err != nil && !errors.Is(f.Err, lineage.ErrNoDestination) {
			failed++
		}
	}

	if err := cc.Renderer.Render(stmts, func(t table.Writer) {
		header := table.Row{"Line", "Destination", "Sources"}
		if opts.Endpoint != "" {
			header = append(header, "Destination ID")
		}
		t.AppendHeader(header)
		for _, s := range stmts {
			dest := s.Destination
			switch {
			case s.Error != "":
				dest = "error: " + s.Error
			case dest == "":
				dest = "(none)"
			}
			row := table.Row{s.Line, dest, strings.Join(s.Sources, "\n")}
			if opts.Endpoint != "" {
				row = append(row, s.DestinationID)
			}
			t.AppendRow(row)
		}
	}); err != nil {
		return err
	}

	cc.Renderer.Statusf("%d statements, %d failed", len(stmts), failed)
	if failed > 0 && failed == len(stmts) {
		return fmt.Errorf("no statement could be parsed")
	}
	return nil
}

func parsedStatement(f lineage.Fact, tenantID, endpoint string) ParsedStatement {
	s := ParsedStatement{Line: f.Pos.Line, Sources: []string{}}
	if errors.Is(f.Err, lineage.ErrNoDestination) {
		return s
	}
	if f.Err != nil {
		s.Error = f.Err.Error()
		return s
	}

	s.Destination = f.Destination.String()
	for _, src := range f.Sources.Sorted() {
		s.Sources = append(s.Sources, src.String())
	}
	if endpoint != "" {
		in := lineage.BuildInput(tenantID, endpoint, f.Destination, f.Sources)
		s.DestinationID = in.DownstreamGlobalID
		s.SourceIDs = in.Upstreams
	}
	return s
}
