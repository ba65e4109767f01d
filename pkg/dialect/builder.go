package dialect

import (
	"strings"

	"github.com/leapstack-labs/catalogsync/pkg/core"
	"github.com/leapstack-labs/catalogsync/pkg/spi"
)

// Builder assembles a Dialect from its static config and parsing hooks.
//
//	var Redshift = dialect.New(dialect.Redshift, Config).
//		TableOption("DISTKEY", dialect.ParenthesizedOption).
//		Build()
type Builder struct {
	d *Dialect
}

// New starts building a dialect of the given kind.
func New(kind Kind, cfg *core.DialectConfig) *Builder {
	return &Builder{d: &Dialect{
		DialectConfig:   *cfg,
		Kind:            kind,
		tableOptions:    make(map[string]spi.TableOptionHandler),
		statementSuffix: make(map[string]spi.StatementSuffixHandler),
		reservedAsAlias: make(map[string]struct{}),
	}}
}

// TableOption registers a CREATE TABLE option keyword. The keyword can no
// longer be read as an implicit alias of the created table.
func (b *Builder) TableOption(word string, h spi.TableOptionHandler) *Builder {
	w := strings.ToUpper(word)
	b.d.tableOptions[w] = h
	b.d.reservedAsAlias[w] = struct{}{}
	return b
}

// StatementSuffix registers a trailer accepted after a CREATE VIEW body.
func (b *Builder) StatementSuffix(word string, h spi.StatementSuffixHandler) *Builder {
	b.d.statementSuffix[strings.ToUpper(word)] = h
	return b
}

// ReservedAlias marks words that must not be taken as implicit table aliases.
func (b *Builder) ReservedAlias(words ...string) *Builder {
	for _, w := range words {
		b.d.reservedAsAlias[strings.ToUpper(w)] = struct{}{}
	}
	return b
}

// Build finalizes the dialect.
func (b *Builder) Build() *Dialect {
	return b.d
}
