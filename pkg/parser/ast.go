package parser

// Node is any AST node.
type Node interface {
	node()
}

// Statement represents a SQL statement.
type Statement interface {
	Node
	stmtNode()
}

// Expr represents an expression in SQL.
type Expr interface {
	Node
	exprNode()
}

// TableRef represents a table reference in FROM clause.
type TableRef interface {
	Node
	tableRefNode()
}

// Ident is a single identifier segment. Quoted identifiers keep their case
// through normalization.
type Ident struct {
	Name   string
	Quoted bool
}

// IsZero reports whether the identifier is absent.
func (i Ident) IsZero() bool { return i.Name == "" }

// ---------- Statement Types ----------

// SelectStmt represents a complete query with optional WITH clause.
type SelectStmt struct {
	With *WithClause
	Body *SelectBody
}

// WithClause represents a WITH clause with CTEs.
type WithClause struct {
	Recursive bool
	CTEs      []*CTE
}

// CTE represents a Common Table Expression.
type CTE struct {
	Name    Ident
	Columns []Ident
	Select  *SelectStmt
}

// SetOpType represents the type of set operation.
type SetOpType string

// SetOpType constants for set operations in queries.
const (
	SetOpNone      SetOpType = ""
	SetOpUnion     SetOpType = "UNION"
	SetOpIntersect SetOpType = "INTERSECT"
	SetOpExcept    SetOpType = "EXCEPT"
)

// SelectBody is one operand of a query, possibly chained with set
// operations. Exactly one of Left or Nested is set.
type SelectBody struct {
	Left   *SelectCore
	Nested *SelectStmt // parenthesized query operand

	Op    SetOpType
	All   bool
	Right *SelectBody

	// ORDER BY / LIMIT applied to a parenthesized operand.
	OrderBy []OrderByItem
	Limit   Expr
	Offset  Expr
}

// SelectCore represents the core SELECT clause.
type SelectCore struct {
	Distinct   bool
	DistinctOn []Expr
	Columns    []SelectItem
	From       *FromClause
	Where      Expr
	GroupBy    []Expr
	Having     Expr
	Qualify    Expr
	OrderBy    []OrderByItem
	Limit      Expr
	Offset     Expr
}

// SelectItem is one projection of a select list.
type SelectItem struct {
	Star      bool    // SELECT *
	TableStar []Ident // SELECT t.*
	Expr      Expr
	Alias     Ident
}

// OrderByItem is one ORDER BY key.
type OrderByItem struct {
	Expr Expr
	Desc bool
}

// FromClause is a FROM source followed by its joins.
type FromClause struct {
	Source TableRef
	Joins  []*Join
}

// JoinType identifies the join flavour.
type JoinType string

// Join types.
const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
	JoinCross JoinType = "CROSS"
	JoinComma JoinType = ","
)

// Join is one JOIN (or comma-separated source) in a FROM clause.
type Join struct {
	Type      JoinType
	Natural   bool
	Right     TableRef
	Condition Expr
	Using     []Ident
}

// CreateTableStmt is CREATE TABLE, optionally populated by a query (CTAS)
// or cloned from another table.
type CreateTableStmt struct {
	OrReplace   bool
	IfNotExists bool
	Modifiers   []string // TEMPORARY, TRANSIENT, ...
	Name        *TableName
	Columns     []Ident
	Query       *SelectStmt
	Like        *TableName
	Clone       *TableName
}

// CreateViewStmt is CREATE [MATERIALIZED] VIEW ... AS query.
type CreateViewStmt struct {
	OrReplace    bool
	IfNotExists  bool
	Materialized bool
	Modifiers    []string
	Name         *TableName
	Columns      []Ident
	Query        *SelectStmt
}

// InsertStmt is INSERT INTO / INSERT OVERWRITE.
type InsertStmt struct {
	With      *WithClause
	Overwrite bool
	Table     *TableName
	Columns   []Ident
	Query     *SelectStmt
	Values    [][]Expr
}

// UpdateStmt is UPDATE ... SET ... [FROM ...] [WHERE ...].
type UpdateStmt struct {
	Table *TableName
	Sets  []*SetClause
	From  *FromClause
	Where Expr
}

// SetClause assigns Value to one column, or a parenthesized column list.
type SetClause struct {
	Columns []*ColumnRef
	Value   Expr
}

// MergeStmt is MERGE INTO target USING source ON cond WHEN ...
type MergeStmt struct {
	With    *WithClause
	Target  *TableName
	Source  TableRef
	On      Expr
	Clauses []*MergeClause
}

// MergeAction is the action of a WHEN clause.
type MergeAction string

// Merge actions.
const (
	MergeUpdate    MergeAction = "UPDATE"
	MergeDelete    MergeAction = "DELETE"
	MergeInsert    MergeAction = "INSERT"
	MergeDoNothing MergeAction = "DO NOTHING"
)

// MergeClause is WHEN [NOT] MATCHED [BY SOURCE|TARGET] [AND cond] THEN action.
type MergeClause struct {
	Matched   bool
	BySource  bool
	Condition Expr
	Action    MergeAction
	Sets      []*SetClause
	Star      bool // UPDATE SET * / INSERT *
	Columns   []Ident
	Values    []Expr
}

// DeleteStmt is DELETE FROM t [USING ...] [WHERE ...].
type DeleteStmt struct {
	Table *TableName
	Using *FromClause
	Where Expr
}

func (*SelectStmt) node()      {}
func (*WithClause) node()      {}
func (*SelectBody) node()      {}
func (*SelectCore) node()      {}
func (*FromClause) node()      {}
func (*CreateTableStmt) node() {}
func (*CreateViewStmt) node()  {}
func (*InsertStmt) node()      {}
func (*UpdateStmt) node()      {}
func (*MergeStmt) node()       {}
func (*DeleteStmt) node()      {}

func (*SelectStmt) stmtNode()      {}
func (*CreateTableStmt) stmtNode() {}
func (*CreateViewStmt) stmtNode()  {}
func (*InsertStmt) stmtNode()      {}
func (*UpdateStmt) stmtNode()      {}
func (*MergeStmt) stmtNode()       {}
func (*DeleteStmt) stmtNode()      {}

// ---------- Table References ----------

// TableName is a possibly qualified table name of at most three parts.
type TableName struct {
	Catalog       Ident
	Schema        Ident
	Name          Ident
	Alias         Ident
	ColumnAliases []Ident
}

// DerivedTable is a parenthesized subquery or VALUES list in FROM.
type DerivedTable struct {
	Select        *SelectStmt
	Values        [][]Expr
	Lateral       bool
	Alias         Ident
	ColumnAliases []Ident
}

// TableFunction is a function call used as a FROM source, e.g.
// TABLE(FLATTEN(input => x)) or LATERAL VIEW explode(arr) t.
type TableFunction struct {
	Func          *FuncCall
	Lateral       bool
	Alias         Ident
	ColumnAliases []Ident
}

// ParenTableRef is a parenthesized join tree: FROM (a JOIN b ON ...).
type ParenTableRef struct {
	From  *FromClause
	Alias Ident
}

func (*TableName) node()     {}
func (*DerivedTable) node()  {}
func (*TableFunction) node() {}
func (*ParenTableRef) node() {}

func (*TableName) tableRefNode()     {}
func (*DerivedTable) tableRefNode()  {}
func (*TableFunction) tableRefNode() {}
func (*ParenTableRef) tableRefNode() {}

// ---------- Expressions ----------

// LiteralKind classifies a literal value.
type LiteralKind int

// Literal kinds.
const (
	LiteralNumber LiteralKind = iota
	LiteralString
	LiteralBool
	LiteralNull
	LiteralParam
)

// Literal is a constant. Type carries the prefix of a typed literal such
// as DATE '2024-01-01'.
type Literal struct {
	Kind  LiteralKind
	Value string
	Type  string
}

// ColumnRef is a possibly qualified column reference.
type ColumnRef struct {
	Parts []Ident
}

// Name returns the final segment.
func (c *ColumnRef) Name() string {
	if len(c.Parts) == 0 {
		return ""
	}
	return c.Parts[len(c.Parts)-1].Name
}

// StarExpr is * or a qualified t.* in expression position.
type StarExpr struct {
	Table []Ident
}

// BinaryExpr is a binary operator application.
type BinaryExpr struct {
	Left  Expr
	Op    string
	Right Expr
}

// UnaryExpr is a prefix operator application.
type UnaryExpr struct {
	Op   string
	Expr Expr
}

// FuncCall is a scalar, aggregate or window function call.
type FuncCall struct {
	Name     []Ident
	Distinct bool
	Star     bool
	Args     []Expr
	OrderBy  []OrderByItem // WITHIN GROUP / in-argument ORDER BY
	Filter   Expr
	Window   bool // has an OVER clause
}

// NamedArg is name => value.
type NamedArg struct {
	Name  string
	Value Expr
}

// CaseExpr is CASE [operand] WHEN ... THEN ... [ELSE ...] END.
type CaseExpr struct {
	Operand Expr
	Whens   []WhenClause
	Else    Expr
}

// WhenClause is one CASE branch.
type WhenClause struct {
	Cond   Expr
	Result Expr
}

// CastExpr is CAST(x AS type), x::type or similar.
type CastExpr struct {
	Expr Expr
	Type string
}

// InExpr is x [NOT] IN (list | subquery).
type InExpr struct {
	Expr   Expr
	Not    bool
	Values []Expr
	Query  *SelectStmt
}

// BetweenExpr is x [NOT] BETWEEN low AND high.
type BetweenExpr struct {
	Expr Expr
	Not  bool
	Low  Expr
	High Expr
}

// LikeExpr is x [NOT] LIKE|ILIKE|RLIKE pattern [ESCAPE e].
type LikeExpr struct {
	Expr    Expr
	Not     bool
	Op      string
	Pattern Expr
	Escape  Expr
}

// IsExpr is x IS [NOT] NULL|TRUE|FALSE|DISTINCT FROM y.
type IsExpr struct {
	Expr  Expr
	Not   bool
	Value string
	From  Expr
}

// ExistsExpr is EXISTS (subquery).
type ExistsExpr struct {
	Select *SelectStmt
}

// SubqueryExpr is a scalar subquery.
type SubqueryExpr struct {
	Select *SelectStmt
}

// ParenExpr is a parenthesized expression.
type ParenExpr struct {
	Expr Expr
}

// TupleExpr is a parenthesized expression list (a, b).
type TupleExpr struct {
	Items []Expr
}

// ArrayExpr is ARRAY[...] or [...].
type ArrayExpr struct {
	Items []Expr
}

// IndexExpr is x[i] or a semi-structured path access x:field.
type IndexExpr struct {
	Expr  Expr
	Index Expr
	Field string
}

// IntervalExpr is INTERVAL value [unit].
type IntervalExpr struct {
	Value Expr
	Unit  string
}

func (*Literal) node()      {}
func (*ColumnRef) node()    {}
func (*StarExpr) node()     {}
func (*BinaryExpr) node()   {}
func (*UnaryExpr) node()    {}
func (*FuncCall) node()     {}
func (*NamedArg) node()     {}
func (*CaseExpr) node()     {}
func (*CastExpr) node()     {}
func (*InExpr) node()       {}
func (*BetweenExpr) node()  {}
func (*LikeExpr) node()     {}
func (*IsExpr) node()       {}
func (*ExistsExpr) node()   {}
func (*SubqueryExpr) node() {}
func (*ParenExpr) node()    {}
func (*TupleExpr) node()    {}
func (*ArrayExpr) node()    {}
func (*IndexExpr) node()    {}
func (*IntervalExpr) node() {}

func (*Literal) exprNode()      {}
func (*ColumnRef) exprNode()    {}
func (*StarExpr) exprNode()     {}
func (*BinaryExpr) exprNode()   {}
func (*UnaryExpr) exprNode()    {}
func (*FuncCall) exprNode()     {}
func (*NamedArg) exprNode()     {}
func (*CaseExpr) exprNode()     {}
func (*CastExpr) exprNode()     {}
func (*InExpr) exprNode()       {}
func (*BetweenExpr) exprNode()  {}
func (*LikeExpr) exprNode()     {}
func (*IsExpr) exprNode()       {}
func (*ExistsExpr) exprNode()   {}
func (*SubqueryExpr) exprNode() {}
func (*ParenExpr) exprNode()    {}
func (*TupleExpr) exprNode()    {}
func (*ArrayExpr) exprNode()    {}
func (*IndexExpr) exprNode()    {}
func (*IntervalExpr) exprNode() {}
