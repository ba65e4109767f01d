package parser

// Inspect traverses an AST in depth-first order, calling f for each node.
// If f returns false, the children of that node are skipped.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || isNilNode(n) || !f(n) {
		return
	}
	for _, c := range children(n) {
		Inspect(c, f)
	}
}

// isNilNode catches typed nil pointers stored in an interface.
func isNilNode(n Node) bool {
	switch v := n.(type) {
	case *SelectStmt:
		return v == nil
	case *TableName:
		return v == nil
	case *FromClause:
		return v == nil
	case *WithClause:
		return v == nil
	case *SelectBody:
		return v == nil
	case *SelectCore:
		return v == nil
	case *FuncCall:
		return v == nil
	case *ColumnRef:
		return v == nil
	}
	return false
}

// children returns the direct child nodes of n.
func children(n Node) []Node {
	var out []Node
	addExpr := func(e Expr) {
		if e != nil {
			out = append(out, e)
		}
	}
	addExprs := func(es []Expr) {
		for _, e := range es {
			addExpr(e)
		}
	}
	addOrder := func(items []OrderByItem) {
		for _, o := range items {
			addExpr(o.Expr)
		}
	}
	addSelect := func(s *SelectStmt) {
		if s != nil {
			out = append(out, s)
		}
	}
	addFrom := func(f *FromClause) {
		if f != nil {
			out = append(out, f)
		}
	}
	addSets := func(sets []*SetClause) {
		for _, s := range sets {
			for _, c := range s.Columns {
				out = append(out, c)
			}
			addExpr(s.Value)
		}
	}
	addTable := func(t *TableName) {
		if t != nil {
			out = append(out, t)
		}
	}

	switch v := n.(type) {
	case *SelectStmt:
		if v.With != nil {
			out = append(out, v.With)
		}
		if v.Body != nil {
			out = append(out, v.Body)
		}
	case *WithClause:
		for _, c := range v.CTEs {
			addSelect(c.Select)
		}
	case *SelectBody:
		if v.Left != nil {
			out = append(out, v.Left)
		}
		addSelect(v.Nested)
		addOrder(v.OrderBy)
		addExpr(v.Limit)
		addExpr(v.Offset)
		if v.Right != nil {
			out = append(out, v.Right)
		}
	case *SelectCore:
		addExprs(v.DistinctOn)
		for _, item := range v.Columns {
			addExpr(item.Expr)
		}
		addFrom(v.From)
		addExpr(v.Where)
		addExprs(v.GroupBy)
		addExpr(v.Having)
		addExpr(v.Qualify)
		addOrder(v.OrderBy)
		addExpr(v.Limit)
		addExpr(v.Offset)
	case *FromClause:
		if v.Source != nil {
			out = append(out, v.Source)
		}
		for _, j := range v.Joins {
			out = append(out, j.Right)
			addExpr(j.Condition)
		}
	case *DerivedTable:
		addSelect(v.Select)
		for _, row := range v.Values {
			addExprs(row)
		}
	case *TableFunction:
		if v.Func != nil {
			out = append(out, v.Func)
		}
	case *ParenTableRef:
		addFrom(v.From)
	case *CreateTableStmt:
		addTable(v.Name)
		addSelect(v.Query)
		addTable(v.Like)
		addTable(v.Clone)
	case *CreateViewStmt:
		addTable(v.Name)
		addSelect(v.Query)
	case *InsertStmt:
		if v.With != nil {
			out = append(out, v.With)
		}
		addTable(v.Table)
		addSelect(v.Query)
		for _, row := range v.Values {
			addExprs(row)
		}
	case *UpdateStmt:
		addTable(v.Table)
		addSets(v.Sets)
		addFrom(v.From)
		addExpr(v.Where)
	case *MergeStmt:
		if v.With != nil {
			out = append(out, v.With)
		}
		addTable(v.Target)
		if v.Source != nil {
			out = append(out, v.Source)
		}
		addExpr(v.On)
		for _, c := range v.Clauses {
			addExpr(c.Condition)
			addSets(c.Sets)
			addExprs(c.Values)
		}
	case *DeleteStmt:
		addTable(v.Table)
		addFrom(v.Using)
		addExpr(v.Where)
	case *BinaryExpr:
		addExpr(v.Left)
		addExpr(v.Right)
	case *UnaryExpr:
		addExpr(v.Expr)
	case *FuncCall:
		addExprs(v.Args)
		addOrder(v.OrderBy)
		addExpr(v.Filter)
	case *NamedArg:
		addExpr(v.Value)
	case *CaseExpr:
		addExpr(v.Operand)
		for _, w := range v.Whens {
			addExpr(w.Cond)
			addExpr(w.Result)
		}
		addExpr(v.Else)
	case *CastExpr:
		addExpr(v.Expr)
	case *InExpr:
		addExpr(v.Expr)
		addExprs(v.Values)
		addSelect(v.Query)
	case *BetweenExpr:
		addExpr(v.Expr)
		addExpr(v.Low)
		addExpr(v.High)
	case *LikeExpr:
		addExpr(v.Expr)
		addExpr(v.Pattern)
		addExpr(v.Escape)
	case *IsExpr:
		addExpr(v.Expr)
		addExpr(v.From)
	case *ExistsExpr:
		addSelect(v.Select)
	case *SubqueryExpr:
		addSelect(v.Select)
	case *ParenExpr:
		addExpr(v.Expr)
	case *TupleExpr:
		addExprs(v.Items)
	case *ArrayExpr:
		addExprs(v.Items)
	case *IndexExpr:
		addExpr(v.Expr)
		addExpr(v.Index)
	case *IntervalExpr:
		addExpr(v.Value)
	}
	return out
}
