package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/catalogsync/internal/cli/config"
	"github.com/leapstack-labs/catalogsync/internal/warehouse"
	"github.com/leapstack-labs/catalogsync/pkg/dialect"
	"github.com/leapstack-labs/catalogsync/pkg/payload"
)

// generateConfigDocs writes the configuration reference page.
func generateConfigDocs(outDir string) error {
	log.Printf("Generating config docs to %s", outDir)
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "catalogsync configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph(fmt.Sprintf("catalogsync reads %s from the working directory, or the file given with %s. "+
		"Environment variables override the file and flags override both.",
		InlineCode(config.DefaultConfigFile), InlineCode("--config")))

	w.Header(2, "Environment Variables")
	env := config.EnvVars()
	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{InlineCode(name), InlineCode(env[name])})
	}
	w.Table([]string{"Variable", "Config key"}, rows)
	w.Paragraph(fmt.Sprintf("Any other key can be set with a %s variable, using %s between sections, "+
		"for example %s.", InlineCode("CATALOGSYNC_"), InlineCode("__"), InlineCode("CATALOGSYNC_CATALOG__MAX_ATTEMPTS")))

	w.Header(2, "Warehouses")
	w.BulletList(codeList(warehouse.List()))

	w.Header(2, "Column Statistics")
	w.Paragraph(fmt.Sprintf("%s selects which of these are sent (all by default):", InlineCode("profiler.stats")))
	w.BulletList(codeList(payload.ColumnStatsItems()))

	w.Header(2, "SQL Dialects")
	w.Paragraph(fmt.Sprintf("Accepted by %s:", InlineCode("parse --dialect")))
	var dialects []string
	for _, k := range dialect.Kinds() {
		dialects = append(dialects, k.String())
	}
	w.BulletList(codeList(dialects))

	log.Printf("  Generated configuration.md")
	return os.WriteFile(filepath.Join(outDir, "configuration.md"), w.Bytes(), 0600)
}

func codeList(items []string) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = InlineCode(strings.TrimSpace(s))
	}
	return out
}
