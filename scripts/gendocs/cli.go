package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/catalogsync/internal/cli"
	"github.com/leapstack-labs/catalogsync/internal/cli/config"
	"github.com/leapstack-labs/catalogsync/internal/warehouse"
)

// warehouseArg marks commands that take a warehouse name.
const warehouseArg = "<warehouse>"

// generateCLIDocs writes an index page and one page per command.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	cmds := documented(root)

	if err := writePage(outDir, "index.md", cliIndex(root, cmds)); err != nil {
		return err
	}
	for _, cmd := range cmds {
		if err := writePage(outDir, cmd.Name()+".md", commandPage(cmd)); err != nil {
			return fmt.Errorf("failed to generate page for %s: %w", cmd.Name(), err)
		}
	}
	return nil
}

func writePage(dir, name string, w *MarkdownWriter) error {
	log.Printf("  Generated %s", name)
	return os.WriteFile(filepath.Join(dir, name), w.Bytes(), 0600)
}

// documented returns the commands that get a page, completion excluded.
func documented(root *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	for _, cmd := range root.Commands() {
		switch {
		case cmd.Hidden, cmd.Name() == "help", cmd.Name() == "completion":
			continue
		}
		out = append(out, cmd)
	}
	return out
}

func cliIndex(root *cobra.Command, cmds []*cobra.Command) *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "catalogsync commands")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph(root.Long)

	rows := make([][]string, 0, len(cmds))
	for _, cmd := range cmds {
		link := fmt.Sprintf("[%s](/cli/%s)", InlineCode(cmd.Name()), cmd.Name())
		args := arguments(cmd)
		if args != "" {
			args = InlineCode(args)
		}
		rows = append(rows, []string{link, args, cleanDescription(cmd.Short)})
	}
	w.Table([]string{"Command", "Arguments", "Description"}, rows)

	w.Header(2, "Global Flags")
	w.Paragraph("Each global flag overrides a key of the configuration file. " +
		"See the [configuration reference](/reference/configuration).")
	var flags [][]string
	root.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		key := config.FlagKey(f.Name)
		if key != "" {
			key = InlineCode(key)
		}
		flags = append(flags, []string{InlineCode(flagName(f)), key, cleanDescription(f.Usage)})
	})
	w.Table([]string{"Flag", "Config key", "Description"}, flags)
	return w
}

func commandPage(cmd *cobra.Command) *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, cmd.Name())
	if cmd.Long != "" {
		w.Paragraph(cmd.Long)
	} else {
		w.Paragraph(cmd.Short)
	}
	w.CodeBlock("bash", strings.TrimSuffix(cmd.UseLine(), " [flags]"))

	if strings.Contains(cmd.Use, warehouseArg) {
		w.Header(2, "Warehouses")
		w.Paragraph("Connection settings come from the warehouse's section of the config file " +
			"or from these environment variables:")
		w.Table([]string{"Warehouse", "Environment variables"}, warehouseEnv())
	}

	if cmd.HasLocalFlags() {
		w.Header(2, "Flags")
		var rows [][]string
		cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
			if f.Hidden {
				return
			}
			def := ""
			if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "[]" {
				def = InlineCode(f.DefValue)
			}
			rows = append(rows, []string{InlineCode(flagName(f)), def, cleanDescription(f.Usage)})
		})
		w.Table([]string{"Flag", "Default", "Description"}, rows)
	}

	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", unindent(cmd.Example))
	}
	return w
}

// arguments is the part of the use line after the command name.
func arguments(cmd *cobra.Command) string {
	_, args, _ := strings.Cut(cmd.Use, " ")
	return args
}

func flagName(f *pflag.Flag) string {
	if f.Shorthand != "" {
		return fmt.Sprintf("-%s, --%s", f.Shorthand, f.Name)
	}
	return "--" + f.Name
}

// warehouseEnv groups the recognised environment variables by the
// warehouse section their config key lives in.
func warehouseEnv() [][]string {
	byWarehouse := make(map[string][]string)
	for name, key := range config.EnvVars() {
		section, _, ok := strings.Cut(key, ".")
		if ok {
			byWarehouse[section] = append(byWarehouse[section], name)
		}
	}
	var rows [][]string
	for _, wh := range warehouse.List() {
		names := byWarehouse[wh]
		sort.Strings(names)
		rows = append(rows, []string{InlineCode(wh), strings.Join(codeList(names), ", ")})
	}
	return rows
}

// unindent drops the two-space indent cobra examples are written with.
func unindent(example string) string {
	lines := strings.Split(strings.Trim(example, "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, "  ")
	}
	return strings.Join(lines, "\n")
}
