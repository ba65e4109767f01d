package lineage

import (
	"github.com/leapstack-labs/catalogsync/pkg/dialect"
	"github.com/leapstack-labs/catalogsync/pkg/parser"
)

// scope holds the CTE names visible at a point of the query. Unqualified
// table names found in a scope are CTE references, not sources.
type scope struct {
	parent *scope
	names  map[string]struct{}
}

func (s *scope) has(name string) bool {
	for ; s != nil; s = s.parent {
		if _, ok := s.names[name]; ok {
			return true
		}
	}
	return false
}

// extractor walks one statement and collects its sources.
type extractor struct {
	d       *dialect.Dialect
	opts    Options
	sources TableSet
}

func newExtractor(d *dialect.Dialect, opts Options) *extractor {
	return &extractor{d: d, opts: opts, sources: make(TableSet)}
}

// extract returns the destination and sources of stmt.
func (e *extractor) extract(stmt parser.Statement) (TableRef, TableSet, error) {
	var dest *parser.TableName

	switch s := stmt.(type) {
	case *parser.CreateTableStmt:
		dest = s.Name
		e.query(s.Query, nil)
		// CLONE copies data; LIKE only copies the shape.
		if s.Clone != nil {
			e.addSource(s.Clone, nil)
		}
	case *parser.CreateViewStmt:
		dest = s.Name
		e.query(s.Query, nil)
	case *parser.InsertStmt:
		dest = s.Table
		sc := e.with(s.With, nil)
		e.query(s.Query, sc)
		for _, row := range s.Values {
			for _, v := range row {
				e.walk(v, sc)
			}
		}
	case *parser.UpdateStmt:
		dest = s.Table
		for _, set := range s.Sets {
			e.walk(set.Value, nil)
		}
		if s.From != nil {
			e.walk(s.From, nil)
		}
		e.walk(s.Where, nil)
	case *parser.MergeStmt:
		dest = s.Target
		sc := e.with(s.With, nil)
		e.walk(s.Source, sc)
		e.walk(s.On, sc)
		for _, c := range s.Clauses {
			e.walk(c.Condition, sc)
			for _, set := range c.Sets {
				e.walk(set.Value, sc)
			}
			for _, v := range c.Values {
				e.walk(v, sc)
			}
		}
	default:
		return TableRef{}, nil, ErrNoDestination
	}

	if dest == nil || dest.Name.IsZero() {
		return TableRef{}, nil, ErrNoDestination
	}
	return e.resolve(dest, e.opts.DestDatabase, e.opts.DestSchema), e.sources, nil
}

// with registers the CTEs of w in a new scope and collects the sources of
// their bodies. A non-recursive CTE body sees only the CTEs defined before
// it.
func (e *extractor) with(w *parser.WithClause, parent *scope) *scope {
	if w == nil {
		return parent
	}
	sc := &scope{parent: parent, names: make(map[string]struct{})}
	for _, cte := range w.CTEs {
		name := e.d.Normalize(cte.Name.Name, cte.Name.Quoted)
		if w.Recursive {
			sc.names[name] = struct{}{}
		}
		e.query(cte.Select, sc)
		sc.names[name] = struct{}{}
	}
	return sc
}

// query collects the sources of a (sub)query.
func (e *extractor) query(q *parser.SelectStmt, sc *scope) {
	if q == nil {
		return
	}
	sc = e.with(q.With, sc)
	if q.Body != nil {
		e.walk(q.Body, sc)
	}
}

// walk collects every table named under n. Nested queries get their own
// CTE scope.
func (e *extractor) walk(n parser.Node, sc *scope) {
	if n == nil {
		return
	}
	parser.Inspect(n, func(n parser.Node) bool {
		switch v := n.(type) {
		case *parser.SelectStmt:
			e.query(v, sc)
			return false
		case *parser.TableName:
			e.addSource(v, sc)
			return false
		}
		return true
	})
}

func (e *extractor) addSource(t *parser.TableName, sc *scope) {
	if t.Catalog.IsZero() && t.Schema.IsZero() && sc.has(e.d.Normalize(t.Name.Name, t.Name.Quoted)) {
		return
	}
	e.sources.Add(e.resolve(t, e.opts.SrcDatabase, e.opts.SrcSchema))
}

// resolve completes a table name: a segment written in the SQL wins over
// the default, and a missing segment with no default stays empty.
func (e *extractor) resolve(t *parser.TableName, defDatabase, defSchema string) TableRef {
	return TableRef{
		Database: e.segment(t.Catalog, defDatabase),
		Schema:   e.segment(t.Schema, defSchema),
		Table:    e.d.Normalize(t.Name.Name, t.Name.Quoted),
	}
}

func (e *extractor) segment(id parser.Ident, def string) string {
	if !id.IsZero() {
		return e.d.Normalize(id.Name, id.Quoted)
	}
	return e.d.NormalizeName(def)
}
