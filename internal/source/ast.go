package source

// Span is a half-open byte range [Start, End) into the file source.
type Span struct {
	Start int
	End   int
}

// Node is implemented by every AST node.
type Node interface {
	Span() Span
}

// Expr is a sealed interface for expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a sealed interface for statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// Ident is an identifier reference.
type Ident struct {
	Sp   Span
	Name string
}

// StringLit is a quoted string literal; Value is decoded.
type StringLit struct {
	Sp    Span
	Value string
}

// NumberLit is a numeric literal. Float is set for fractional or exponent
// literals, which the IR cannot carry.
type NumberLit struct {
	Sp    Span
	Raw   string
	Int   int64
	Float bool
}

// BoolLit is true or false.
type BoolLit struct {
	Sp    Span
	Value bool
}

// NullLit is null. Undefined is set for the undefined identifier.
type NullLit struct {
	Sp        Span
	Undefined bool
}

// TemplateLit is a backquoted template. len(Quasis) == len(Exprs)+1.
type TemplateLit struct {
	Sp     Span
	Quasis []string
	Exprs  []Expr
}

// Member is X.Name or X?.Name.
type Member struct {
	Sp       Span
	X        Expr
	Name     string
	Optional bool
}

// IndexExpr is X[Index] or X?.[Index].
type IndexExpr struct {
	Sp       Span
	X        Expr
	Index    Expr
	Optional bool
}

// Call is Fun<TypeArgs>(Args).
type Call struct {
	Sp       Span
	Fun      Expr
	TypeArgs []*TypeRef
	Args     []Expr
}

// Unary is a prefix operator: "!", "-", "+" or "typeof".
type Unary struct {
	Sp Span
	Op string
	X  Expr
}

// Binary is a binary operator expression.
type Binary struct {
	Sp Span
	Op string
	X  Expr
	Y  Expr
}

// Conditional is Test ? Then : Else.
type Conditional struct {
	Sp   Span
	Test Expr
	Then Expr
	Else Expr
}

// Paren is a parenthesized expression.
type Paren struct {
	Sp Span
	X  Expr
}

// Property is one entry of an object literal.
type Property struct {
	Sp        Span
	Key       string
	Computed  Expr // [expr]: key, unsupported downstream
	Value     Expr
	Shorthand bool
	Spread    bool // ...Value
}

// ObjectLit is an object literal.
type ObjectLit struct {
	Sp    Span
	Props []*Property
}

// Get returns the value of the first non-spread property named key.
func (o *ObjectLit) Get(key string) (Expr, bool) {
	for _, p := range o.Props {
		if !p.Spread && p.Computed == nil && p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// ArrayLit is an array literal.
type ArrayLit struct {
	Sp    Span
	Elems []Expr
}

// Spread is ...X inside an array literal or call arguments.
type Spread struct {
	Sp Span
	X  Expr
}

// PatternProp is one binding of a destructuring pattern: Key: Local = Default.
type PatternProp struct {
	Key     string
	Local   string
	Default Expr
	Rest    bool
}

// Param is an arrow-function parameter: a plain name or an object pattern.
type Param struct {
	Sp      Span
	Name    string
	Pattern []*PatternProp
	Type    *TypeRef
}

// Locals returns the names the parameter binds.
func (p *Param) Locals() []string {
	if p.Pattern == nil {
		return []string{p.Name}
	}
	out := make([]string, len(p.Pattern))
	for i, pp := range p.Pattern {
		out[i] = pp.Local
	}
	return out
}

// Arrow is an arrow function. Exactly one of Body and Block is set.
type Arrow struct {
	Sp     Span
	Params []*Param
	Body   Expr
	Block  []Stmt
}

// Result returns the expression the arrow renders: its expression body, or
// the argument of the first top-level return statement.
func (a *Arrow) Result() Expr {
	if a.Body != nil {
		return a.Body
	}
	for _, s := range a.Block {
		if r, ok := s.(*ReturnStmt); ok {
			return r.X
		}
	}
	return nil
}

// JSXAttr is a name=value attribute or a {...spread}.
type JSXAttr struct {
	Sp     Span
	Name   string
	Value  Expr // StringLit for "..." values, BoolLit true for bare names
	Spread bool
}

// JSXElement is <Name<TypeArgs> attrs>children</Name>.
type JSXElement struct {
	Sp          Span
	Name        string
	NameSp      Span
	TypeArgs    []*TypeRef
	Attrs       []*JSXAttr
	Children    []Expr
	SelfClosing bool
	Inner       Span // raw source between the opening and closing tags
}

// Attr returns the attribute named name.
func (e *JSXElement) Attr(name string) (*JSXAttr, bool) {
	for _, a := range e.Attrs {
		if !a.Spread && a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// JSXFragment is <>children</>.
type JSXFragment struct {
	Sp       Span
	Children []Expr
}

// JSXText is literal text between tags. Value has JSX whitespace rules
// applied and entities decoded; Raw is the source text.
type JSXText struct {
	Sp    Span
	Value string
	Raw   string
}

// JSXExprContainer is {X} in child position.
type JSXExprContainer struct {
	Sp Span
	X  Expr
}

// TypeKind classifies a parsed type.
type TypeKind int

const (
	TypeNamed TypeKind = iota
	TypeObject
	TypeUnion
	TypeIntersection
	TypeLiteral
	TypeOther
)

// TypeRef is a parsed type annotation. Only the shapes that matter for
// contract resolution are structured; Text keeps the source form.
type TypeRef struct {
	Sp      Span
	Kind    TypeKind
	Name    string     // TypeNamed, e.g. "Props" or "ns.Props"
	Args    []*TypeRef // TypeNamed type arguments
	Members []*Field   // TypeObject
	Parts   []*TypeRef // TypeUnion, TypeIntersection
	Text    string
}

// Field is a property signature of an interface or object type.
type Field struct {
	Sp       Span
	Name     string
	Optional bool
	Type     *TypeRef
}

// ImportSpec binds Local to the exported name Imported.
type ImportSpec struct {
	Imported string
	Local    string
}

// ImportDecl is an import statement.
type ImportDecl struct {
	Sp       Span
	Path     string
	Default  string
	Specs    []ImportSpec
	TypeOnly bool
}

// InterfaceDecl declares an interface.
type InterfaceDecl struct {
	Sp       Span
	Name     string
	Extends  []*TypeRef
	Fields   []*Field
	Exported bool
}

// TypeAlias is type Name = Type.
type TypeAlias struct {
	Sp       Span
	Name     string
	Type     *TypeRef
	Exported bool
}

// VarDecl is a const or let declaration binding a name or an object pattern.
type VarDecl struct {
	Sp       Span
	Keyword  string // "const" or "let"
	Name     string
	NameSp   Span
	Pattern  []*PatternProp
	Type     *TypeRef
	Init     Expr
	Exported bool
}

// ExportDefault is export default X.
type ExportDefault struct {
	Sp Span
	X  Expr
}

// ExportList is export { a, b as c } [from "path"].
type ExportList struct {
	Sp    Span
	Specs []ImportSpec // Imported is the local name, Local the exported name
	From  string
}

// ReturnStmt is return [X] inside an arrow block.
type ReturnStmt struct {
	Sp Span
	X  Expr
}

// ExprStmt is an expression used as a statement.
type ExprStmt struct {
	Sp Span
	X  Expr
}

func (n *Ident) Span() Span            { return n.Sp }
func (n *StringLit) Span() Span        { return n.Sp }
func (n *NumberLit) Span() Span        { return n.Sp }
func (n *BoolLit) Span() Span          { return n.Sp }
func (n *NullLit) Span() Span          { return n.Sp }
func (n *TemplateLit) Span() Span      { return n.Sp }
func (n *Member) Span() Span           { return n.Sp }
func (n *IndexExpr) Span() Span        { return n.Sp }
func (n *Call) Span() Span             { return n.Sp }
func (n *Unary) Span() Span            { return n.Sp }
func (n *Binary) Span() Span           { return n.Sp }
func (n *Conditional) Span() Span      { return n.Sp }
func (n *Paren) Span() Span            { return n.Sp }
func (n *ObjectLit) Span() Span        { return n.Sp }
func (n *ArrayLit) Span() Span         { return n.Sp }
func (n *Spread) Span() Span           { return n.Sp }
func (n *Arrow) Span() Span            { return n.Sp }
func (n *JSXElement) Span() Span       { return n.Sp }
func (n *JSXFragment) Span() Span      { return n.Sp }
func (n *JSXText) Span() Span          { return n.Sp }
func (n *JSXExprContainer) Span() Span { return n.Sp }
func (n *TypeRef) Span() Span          { return n.Sp }
func (n *Field) Span() Span            { return n.Sp }
func (n *Param) Span() Span            { return n.Sp }
func (n *Property) Span() Span         { return n.Sp }
func (n *JSXAttr) Span() Span          { return n.Sp }
func (n *ImportDecl) Span() Span       { return n.Sp }
func (n *InterfaceDecl) Span() Span    { return n.Sp }
func (n *TypeAlias) Span() Span        { return n.Sp }
func (n *VarDecl) Span() Span          { return n.Sp }
func (n *ExportDefault) Span() Span    { return n.Sp }
func (n *ExportList) Span() Span       { return n.Sp }
func (n *ReturnStmt) Span() Span       { return n.Sp }
func (n *ExprStmt) Span() Span         { return n.Sp }

func (*Ident) exprNode()            {}
func (*StringLit) exprNode()        {}
func (*NumberLit) exprNode()        {}
func (*BoolLit) exprNode()          {}
func (*NullLit) exprNode()          {}
func (*TemplateLit) exprNode()      {}
func (*Member) exprNode()           {}
func (*IndexExpr) exprNode()        {}
func (*Call) exprNode()             {}
func (*Unary) exprNode()            {}
func (*Binary) exprNode()           {}
func (*Conditional) exprNode()      {}
func (*Paren) exprNode()            {}
func (*ObjectLit) exprNode()        {}
func (*ArrayLit) exprNode()         {}
func (*Spread) exprNode()           {}
func (*Arrow) exprNode()            {}
func (*JSXElement) exprNode()       {}
func (*JSXFragment) exprNode()      {}
func (*JSXText) exprNode()          {}
func (*JSXExprContainer) exprNode() {}

func (*ImportDecl) stmtNode()    {}
func (*InterfaceDecl) stmtNode() {}
func (*TypeAlias) stmtNode()     {}
func (*VarDecl) stmtNode()       {}
func (*ExportDefault) stmtNode() {}
func (*ExportList) stmtNode()    {}
func (*ReturnStmt) stmtNode()    {}
func (*ExprStmt) stmtNode()      {}

// Unparen strips any number of enclosing parentheses.
func Unparen(e Expr) Expr {
	for {
		p, ok := e.(*Paren)
		if !ok {
			return e
		}
		e = p.X
	}
}
