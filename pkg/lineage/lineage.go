// Package lineage extracts table-level lineage from SQL statements.
//
// Extract parses one statement in a given dialect and reports the table it
// writes and the set of tables it reads. Unqualified names are completed
// from caller-supplied defaults, with separate defaults for the
// destination and for sources, and every identifier is normalized the way
// the dialect's engine folds unquoted names.
package lineage

import (
	"errors"
	"fmt"
	"sort"

	"github.com/leapstack-labs/catalogsync/pkg/dialect"
	"github.com/leapstack-labs/catalogsync/pkg/globalid"
	"github.com/leapstack-labs/catalogsync/pkg/parser"
	"github.com/leapstack-labs/catalogsync/pkg/payload"
)

// ErrNoDestination is returned for statements that parse but write no
// table, such as a plain SELECT or a DELETE.
var ErrNoDestination = errors.New("statement has no destination table")

// TableRef is a resolved table reference. Database and Schema may be empty
// when neither the SQL nor the defaults supply them.
type TableRef struct {
	Database string
	Schema   string
	Table    string
}

// String returns db.schema.table, omitting empty leading segments.
func (t TableRef) String() string {
	switch {
	case t.Database != "":
		return t.Database + "." + t.Schema + "." + t.Table
	case t.Schema != "":
		return t.Schema + "." + t.Table
	}
	return t.Table
}

// TableSet is a set of table references.
type TableSet map[TableRef]struct{}

// Add inserts t.
func (s TableSet) Add(t TableRef) { s[t] = struct{}{} }

// Has reports whether t is in the set.
func (s TableSet) Has(t TableRef) bool {
	_, ok := s[t]
	return ok
}

// Len returns the number of tables.
func (s TableSet) Len() int { return len(s) }

// Sorted returns the tables ordered by database, schema, then table.
func (s TableSet) Sorted() []TableRef {
	out := make([]TableRef, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Database != b.Database {
			return a.Database < b.Database
		}
		if a.Schema != b.Schema {
			return a.Schema < b.Schema
		}
		return a.Table < b.Table
	})
	return out
}

// Options holds the default namespaces used for names the SQL leaves
// unqualified. Defaults are normalized like SQL identifiers.
type Options struct {
	SrcDatabase  string
	SrcSchema    string
	DestDatabase string
	DestSchema   string
}

// Fact is the lineage of one statement of a script.
type Fact struct {
	Destination TableRef
	Sources     TableSet
	Err         error
	Pos         parser.Position
}

// resolveDialect returns the registered dialect for kind.
func resolveDialect(kind dialect.Kind) (*dialect.Dialect, error) {
	d, ok := dialect.ForKind(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not registered", dialect.ErrUnknownDialect, kind)
	}
	return d, nil
}

// Extract parses sql as a single statement and returns its destination and
// sources. Syntax errors are returned as *parser.ParseError.
func Extract(sql string, kind dialect.Kind, opts Options) (TableRef, TableSet, error) {
	d, err := resolveDialect(kind)
	if err != nil {
		return TableRef{}, nil, err
	}

	stmt, err := parser.Parse(sql, d)
	if err != nil {
		return TableRef{}, nil, err
	}
	return newExtractor(d, opts).extract(stmt)
}

// ExtractAll extracts lineage from every statement of a semicolon-separated
// script. Statements that fail are reported in their Fact's Err and do not
// stop the remaining statements.
func ExtractAll(sql string, kind dialect.Kind, opts Options) ([]Fact, error) {
	d, err := resolveDialect(kind)
	if err != nil {
		return nil, err
	}

	var facts []Fact
	for _, s := range parser.ParseScript(sql, d) {
		fact := Fact{Pos: s.Pos, Err: s.Err}
		if s.Err == nil {
			fact.Destination, fact.Sources, fact.Err = newExtractor(d, opts).extract(s.Statement)
		}
		facts = append(facts, fact)
	}
	return facts, nil
}

// BuildInput converts an extracted fact into a table lineage update.
// Upstream IDs are ordered by source name so the output is stable.
func BuildInput(tenantID, endpoint string, dest TableRef, srcs TableSet) payload.LineageInput {
	in := payload.LineageInput{
		DownstreamGlobalID: globalid.TableID(tenantID, endpoint, dest.Database, dest.Schema, dest.Table),
		DownstreamDatabase: dest.Database,
		DownstreamSchema:   dest.Schema,
		DownstreamTable:    dest.Table,
		Upstreams:          make([]string, 0, srcs.Len()),
	}
	for _, src := range srcs.Sorted() {
		in.Upstreams = append(in.Upstreams, globalid.TableID(tenantID, endpoint, src.Database, src.Schema, src.Table))
	}
	return in
}
