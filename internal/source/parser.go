package source

import (
	"strconv"
	"strings"

	"github.com/roach88/promptc/internal/ir"
)

// bailout carries a syntax error out of the recursive-descent parser.
type bailout struct {
	err *ir.CompileError
}

type parser struct {
	file    *File
	src     string
	pos     int   // scan position, just past tok
	tok     token // current token
	prevEnd int   // end of the previously consumed token
}

type parserState struct {
	pos     int
	tok     token
	prevEnd int
}

// Parse parses a TSX source file. Syntax errors are returned as
// *ir.CompileError with code E200.
func Parse(path, src string) (f *File, err error) {
	p := &parser{file: newFile(path, src), src: src}
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			f, err = nil, b.err
		}
	}()

	p.next()
	for p.tok.kind != tokEOF {
		p.file.Stmts = append(p.file.Stmts, p.parseStatement(true))
	}
	return p.file, nil
}

// ParseExpr parses a single expression; used by tests and the config layer.
func ParseExpr(src string) (e Expr, err error) {
	f, err := Parse("<expr>", "const __expr = "+src+";")
	if err != nil {
		return nil, err
	}
	return f.Stmts[0].(*VarDecl).Init, nil
}

func (p *parser) next() {
	p.prevEnd = p.tok.end
	p.tok = p.scan()
}

func (p *parser) save() parserState {
	return parserState{pos: p.pos, tok: p.tok, prevEnd: p.prevEnd}
}

func (p *parser) restore(s parserState) {
	p.pos, p.tok, p.prevEnd = s.pos, s.tok, s.prevEnd
}

// try runs fn speculatively. On a syntax error the parser state is restored
// and try reports false.
func (p *parser) try(fn func()) (ok bool) {
	saved := p.save()
	defer func() {
		if r := recover(); r != nil {
			if _, isBail := r.(bailout); !isBail {
				panic(r)
			}
			p.restore(saved)
			ok = false
		}
	}()
	fn()
	return true
}

func (p *parser) failAt(off int, format string, args ...any) {
	panic(bailout{ir.Errorf(ir.ErrSyntax, p.file.Pos(off), format, args...)})
}

func (p *parser) fail(format string, args ...any) {
	p.failAt(p.tok.start, format, args...)
}

func (p *parser) describe() string {
	if p.tok.kind == tokEOF {
		return "end of file"
	}
	return strconv.Quote(p.tok.text)
}

func (p *parser) expect(punct string) token {
	if !p.tok.is(punct) {
		p.fail("expected %q, found %s", punct, p.describe())
	}
	t := p.tok
	p.next()
	return t
}

func (p *parser) expectIdent() token {
	if p.tok.kind != tokIdent {
		p.fail("expected identifier, found %s", p.describe())
	}
	t := p.tok
	p.next()
	return t
}

func (p *parser) optional(punct string) bool {
	if p.tok.is(punct) {
		p.next()
		return true
	}
	return false
}

func (p *parser) span(start int) Span {
	return Span{Start: start, End: p.prevEnd}
}

// ---------------------------------------------------------------------------
// Statements

func (p *parser) parseStatement(top bool) Stmt {
	start := p.tok.start
	switch {
	case top && p.tok.isWord("import"):
		return p.parseImport()
	case top && p.tok.isWord("export"):
		return p.parseExport()
	case top && p.tok.isWord("interface"):
		return p.parseInterface(start, false)
	case p.tok.isWord("type") && p.peekIdent():
		return p.parseTypeAlias(start, false)
	case p.tok.isWord("const") || p.tok.isWord("let") || p.tok.isWord("var"):
		return p.parseVarDecl(start, false)
	case !top && p.tok.isWord("return"):
		p.next()
		var x Expr
		if !p.tok.is(";") && !p.tok.is("}") {
			x = p.parseExpr()
		}
		p.optional(";")
		return &ReturnStmt{Sp: p.span(start), X: x}
	case p.tok.is(";"):
		p.next()
		return &ExprStmt{Sp: p.span(start)}
	case p.tok.isWord("function") || p.tok.isWord("class") || p.tok.isWord("enum"):
		p.fail("%s declarations are not supported; use const with an arrow function", p.tok.text)
	}
	x := p.parseExpr()
	p.optional(";")
	return &ExprStmt{Sp: p.span(start), X: x}
}

// peekIdent reports whether the token after the current one is an
// identifier ("type Foo" versus an expression using "type").
func (p *parser) peekIdent() bool {
	saved := p.save()
	p.next()
	ok := p.tok.kind == tokIdent
	p.restore(saved)
	return ok
}

func (p *parser) parseImport() Stmt {
	start := p.tok.start
	p.next()
	imp := &ImportDecl{}
	if p.tok.isWord("type") && !p.peekIsWord("from") {
		imp.TypeOnly = true
		p.next()
	}
	if p.tok.kind == tokString {
		imp.Path = p.tok.value
		p.next()
		p.optional(";")
		imp.Sp = p.span(start)
		return imp
	}

	if p.tok.kind == tokIdent {
		imp.Default = p.tok.text
		p.next()
		p.optional(",")
	}
	switch {
	case p.tok.is("*"):
		p.next()
		if !p.tok.isWord("as") {
			p.fail("expected 'as' after '*'")
		}
		p.next()
		imp.Specs = append(imp.Specs, ImportSpec{Imported: "*", Local: p.expectIdent().text})
	case p.tok.is("{"):
		imp.Specs = p.parseSpecList()
	}
	if !p.tok.isWord("from") {
		p.fail("expected 'from', found %s", p.describe())
	}
	p.next()
	if p.tok.kind != tokString {
		p.fail("expected module path, found %s", p.describe())
	}
	imp.Path = p.tok.value
	p.next()
	p.optional(";")
	imp.Sp = p.span(start)
	return imp
}

func (p *parser) peekIsWord(word string) bool {
	saved := p.save()
	p.next()
	ok := p.tok.isWord(word)
	p.restore(saved)
	return ok
}

// parseSpecList parses { a, b as c, type d }.
func (p *parser) parseSpecList() []ImportSpec {
	p.expect("{")
	var specs []ImportSpec
	for !p.tok.is("}") {
		if p.tok.isWord("type") && p.peekIdent() {
			p.next()
		}
		name := p.expectIdent().text
		local := name
		if p.tok.isWord("as") {
			p.next()
			local = p.expectIdent().text
		}
		specs = append(specs, ImportSpec{Imported: name, Local: local})
		if !p.optional(",") {
			break
		}
	}
	p.expect("}")
	return specs
}

func (p *parser) parseExport() Stmt {
	start := p.tok.start
	p.next()
	switch {
	case p.tok.isWord("default"):
		p.next()
		x := p.parseExpr()
		p.optional(";")
		return &ExportDefault{Sp: p.span(start), X: x}
	case p.tok.isWord("interface"):
		return p.parseInterface(start, true)
	case p.tok.isWord("type") && p.peekIdent():
		return p.parseTypeAlias(start, true)
	case p.tok.isWord("const") || p.tok.isWord("let"):
		return p.parseVarDecl(start, true)
	case p.tok.is("{"):
		list := &ExportList{}
		for _, s := range p.parseSpecList() {
			list.Specs = append(list.Specs, ImportSpec{Imported: s.Imported, Local: s.Local})
		}
		if p.tok.isWord("from") {
			p.next()
			if p.tok.kind != tokString {
				p.fail("expected module path, found %s", p.describe())
			}
			list.From = p.tok.value
			p.next()
		}
		p.optional(";")
		list.Sp = p.span(start)
		return list
	}
	p.fail("unsupported export form %s", p.describe())
	return nil
}

func (p *parser) parseInterface(start int, exported bool) Stmt {
	p.next() // interface
	decl := &InterfaceDecl{Name: p.expectIdent().text, Exported: exported}
	p.skipTypeParams()
	if p.tok.isWord("extends") {
		p.next()
		for {
			decl.Extends = append(decl.Extends, p.parseType())
			if !p.optional(",") {
				break
			}
		}
	}
	decl.Fields = p.parseMembers()
	decl.Sp = p.span(start)
	return decl
}

func (p *parser) parseTypeAlias(start int, exported bool) Stmt {
	p.next() // type
	alias := &TypeAlias{Name: p.expectIdent().text, Exported: exported}
	p.skipTypeParams()
	p.expect("=")
	alias.Type = p.parseType()
	p.optional(";")
	alias.Sp = p.span(start)
	return alias
}

// skipTypeParams skips a <T, U extends X = Y> parameter list.
func (p *parser) skipTypeParams() {
	if !p.tok.is("<") {
		return
	}
	depth := 0
	for {
		switch {
		case p.tok.kind == tokEOF:
			p.fail("unterminated type parameter list")
		case p.tok.is("<"):
			depth++
		case p.tok.is(">"):
			depth--
		}
		p.next()
		if depth == 0 {
			return
		}
	}
}

func (p *parser) parseVarDecl(start int, exported bool) Stmt {
	decl := &VarDecl{Keyword: p.tok.text, Exported: exported}
	p.next()
	switch {
	case p.tok.kind == tokIdent:
		decl.NameSp = Span{Start: p.tok.start, End: p.tok.end}
		decl.Name = p.tok.text
		p.next()
	case p.tok.is("{"):
		decl.NameSp = Span{Start: p.tok.start, End: p.tok.start}
		decl.Pattern = p.parseObjectPattern()
	default:
		p.fail("expected binding name, found %s", p.describe())
	}
	if p.optional(":") {
		decl.Type = p.parseType()
	}
	if p.optional("=") {
		decl.Init = p.parseExpr()
	}
	p.optional(";")
	decl.Sp = p.span(start)
	return decl
}

// parseObjectPattern parses { a, b: c, d = 1, ...rest }.
func (p *parser) parseObjectPattern() []*PatternProp {
	p.expect("{")
	props := []*PatternProp{}
	for !p.tok.is("}") {
		if p.optional("...") {
			name := p.expectIdent().text
			props = append(props, &PatternProp{Key: name, Local: name, Rest: true})
		} else {
			key := p.expectIdent().text
			pp := &PatternProp{Key: key, Local: key}
			if p.optional(":") {
				pp.Local = p.expectIdent().text
			}
			if p.optional("=") {
				pp.Default = p.parseExprNoComma()
			}
			props = append(props, pp)
		}
		if !p.optional(",") {
			break
		}
	}
	p.expect("}")
	return props
}

// ---------------------------------------------------------------------------
// Types

func (p *parser) parseType() *TypeRef {
	start := p.tok.start
	p.optional("|")
	first := p.parseIntersectionType()
	if !p.tok.is("|") {
		return first
	}
	t := &TypeRef{Kind: TypeUnion, Parts: []*TypeRef{first}}
	for p.optional("|") {
		t.Parts = append(t.Parts, p.parseIntersectionType())
	}
	return p.finishType(t, start)
}

func (p *parser) parseIntersectionType() *TypeRef {
	start := p.tok.start
	p.optional("&")
	first := p.parsePostfixType()
	if !p.tok.is("&") {
		return first
	}
	t := &TypeRef{Kind: TypeIntersection, Parts: []*TypeRef{first}}
	for p.optional("&") {
		t.Parts = append(t.Parts, p.parsePostfixType())
	}
	return p.finishType(t, start)
}

func (p *parser) parsePostfixType() *TypeRef {
	start := p.tok.start
	t := p.parsePrimaryType()
	for p.tok.is("[") {
		p.skipBalanced("[", "]")
		t = &TypeRef{Kind: TypeOther}
		p.finishType(t, start)
	}
	return t
}

func (p *parser) parsePrimaryType() *TypeRef {
	start := p.tok.start
	switch {
	case p.tok.is("{"):
		t := &TypeRef{Kind: TypeObject, Members: p.parseMembers()}
		return p.finishType(t, start)

	case p.tok.is("("):
		// function type or parenthesized type
		saved := p.save()
		p.skipBalanced("(", ")")
		if p.tok.is("=>") {
			p.next()
			p.parseType()
			return p.finishType(&TypeRef{Kind: TypeOther}, start)
		}
		p.restore(saved)
		p.next()
		inner := p.parseType()
		p.expect(")")
		return inner

	case p.tok.is("["):
		p.skipBalanced("[", "]")
		return p.finishType(&TypeRef{Kind: TypeOther}, start)

	case p.tok.kind == tokString || p.tok.kind == tokNumber:
		p.next()
		return p.finishType(&TypeRef{Kind: TypeLiteral}, start)

	case p.tok.is("-"):
		p.next()
		if p.tok.kind != tokNumber {
			p.fail("expected number in type, found %s", p.describe())
		}
		p.next()
		return p.finishType(&TypeRef{Kind: TypeLiteral}, start)

	case p.tok.is("`"):
		p.parseTemplate()
		return p.finishType(&TypeRef{Kind: TypeLiteral}, start)

	case p.tok.isWord("typeof") || p.tok.isWord("keyof") || p.tok.isWord("readonly") || p.tok.isWord("unique"):
		p.next()
		p.parsePostfixType()
		return p.finishType(&TypeRef{Kind: TypeOther}, start)

	case p.tok.kind == tokIdent:
		name := p.tok.text
		p.next()
		for p.tok.is(".") {
			p.next()
			name += "." + p.expectIdent().text
		}
		t := &TypeRef{Kind: TypeNamed, Name: name}
		if p.tok.is("<") {
			t.Args = p.parseTypeArgs()
		}
		return p.finishType(t, start)
	}
	p.fail("expected type, found %s", p.describe())
	return nil
}

func (p *parser) finishType(t *TypeRef, start int) *TypeRef {
	t.Sp = p.span(start)
	t.Text = strings.TrimSpace(p.src[t.Sp.Start:t.Sp.End])
	return t
}

// parseTypeArgs parses <A, B>. The current token is "<".
func (p *parser) parseTypeArgs() []*TypeRef {
	p.expect("<")
	var args []*TypeRef
	for !p.tok.is(">") {
		args = append(args, p.parseType())
		if !p.optional(",") {
			break
		}
	}
	p.expect(">")
	return args
}

// parseMembers parses an object type body { a: T; b?: U, ... }.
func (p *parser) parseMembers() []*Field {
	p.expect("{")
	fields := []*Field{}
	for !p.tok.is("}") {
		if p.tok.kind == tokEOF {
			p.fail("unterminated type body")
		}
		start := p.tok.start
		if p.tok.isWord("readonly") && !p.peekIs(":") && !p.peekIs("?") {
			p.next()
		}
		if p.tok.is("[") {
			// index signature
			p.skipBalanced("[", "]")
			p.expect(":")
			p.parseType()
			p.skipSeparator()
			continue
		}

		var name string
		switch p.tok.kind {
		case tokIdent:
			name = p.tok.text
		case tokString:
			name = p.tok.value
		default:
			p.fail("expected property name, found %s", p.describe())
		}
		p.next()
		field := &Field{Name: name}
		if p.optional("?") {
			field.Optional = true
		}
		if p.tok.is("(") {
			// method signature
			p.skipBalanced("(", ")")
			p.expect(":")
			p.parseType()
			field.Type = &TypeRef{Kind: TypeOther, Text: "function"}
		} else {
			p.expect(":")
			field.Type = p.parseType()
		}
		field.Sp = p.span(start)
		fields = append(fields, field)
		p.skipSeparator()
	}
	p.expect("}")
	return fields
}

func (p *parser) skipSeparator() {
	if !p.optional(";") {
		p.optional(",")
	}
}

func (p *parser) peekIs(punct string) bool {
	saved := p.save()
	p.next()
	ok := p.tok.is(punct)
	p.restore(saved)
	return ok
}

// skipBalanced consumes tokens from open through the matching close.
func (p *parser) skipBalanced(open, close string) {
	depth := 0
	for {
		switch {
		case p.tok.kind == tokEOF:
			p.fail("unbalanced %q", open)
		case p.tok.is(open):
			depth++
		case p.tok.is(close):
			depth--
		}
		p.next()
		if depth == 0 {
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Expressions

var binaryPrec = map[string]int{
	"??": 1,
	"||": 2,
	"&&": 3,
	"==": 4, "!=": 4, "===": 4, "!==": 4,
	"<": 5, ">": 5, "<=": 5, ">=": 5,
	"+": 6, "-": 6,
	"*": 7, "/": 7, "%": 7,
}

func (p *parser) parseExpr() Expr {
	return p.parseExprNoComma()
}

func (p *parser) parseExprNoComma() Expr {
	if arrow := p.tryArrow(); arrow != nil {
		return arrow
	}
	start := p.tok.start
	test := p.parseBinary(1)
	if !p.tok.is("?") {
		return test
	}
	p.next()
	then := p.parseExprNoComma()
	p.expect(":")
	els := p.parseExprNoComma()
	return &Conditional{Sp: p.span(start), Test: test, Then: then, Else: els}
}

func (p *parser) parseBinary(minPrec int) Expr {
	start := p.tok.start
	x := p.parseUnary()
	for {
		if p.tok.isWord("as") || p.tok.isWord("satisfies") {
			p.next()
			p.parseType()
			continue
		}
		if p.tok.kind != tokPunct {
			return x
		}
		prec, ok := binaryPrec[p.tok.text]
		if !ok || prec < minPrec {
			return x
		}
		op := p.tok.text
		p.next()
		y := p.parseBinary(prec + 1)
		x = &Binary{Sp: p.span(start), Op: op, X: x, Y: y}
	}
}

func (p *parser) parseUnary() Expr {
	start := p.tok.start
	switch {
	case p.tok.is("!") || p.tok.is("-") || p.tok.is("+"):
		op := p.tok.text
		p.next()
		x := p.parseUnary()
		return &Unary{Sp: p.span(start), Op: op, X: x}
	case p.tok.isWord("typeof"):
		p.next()
		x := p.parseUnary()
		return &Unary{Sp: p.span(start), Op: "typeof", X: x}
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() Expr {
	start := p.tok.start
	x := p.parsePrimary()
	for {
		switch {
		case p.tok.is("."):
			p.next()
			name := p.expectIdent().text
			x = &Member{Sp: p.span(start), X: x, Name: name}

		case p.tok.is("?."):
			p.next()
			switch {
			case p.tok.is("["):
				p.next()
				idx := p.parseExpr()
				p.expect("]")
				x = &IndexExpr{Sp: p.span(start), X: x, Index: idx, Optional: true}
			case p.tok.is("("):
				args := p.parseArgs()
				x = &Call{Sp: p.span(start), Fun: x, Args: args}
			default:
				name := p.expectIdent().text
				x = &Member{Sp: p.span(start), X: x, Name: name, Optional: true}
			}

		case p.tok.is("["):
			p.next()
			idx := p.parseExpr()
			p.expect("]")
			x = &IndexExpr{Sp: p.span(start), X: x, Index: idx}

		case p.tok.is("("):
			args := p.parseArgs()
			x = &Call{Sp: p.span(start), Fun: x, Args: args}

		case p.tok.is("<") && isCallee(x):
			var typeArgs []*TypeRef
			if !p.try(func() {
				typeArgs = p.parseTypeArgs()
				if !p.tok.is("(") {
					p.fail("not a generic call")
				}
			}) {
				return x
			}
			args := p.parseArgs()
			x = &Call{Sp: p.span(start), Fun: x, TypeArgs: typeArgs, Args: args}

		case p.tok.is("!") && p.tok.start == p.prevEnd:
			// non-null assertion
			p.next()

		default:
			return x
		}
	}
}

func isCallee(x Expr) bool {
	switch x.(type) {
	case *Ident, *Member:
		return true
	}
	return false
}

func (p *parser) parseArgs() []Expr {
	p.expect("(")
	args := []Expr{}
	for !p.tok.is(")") {
		if p.tok.is("...") {
			start := p.tok.start
			p.next()
			x := p.parseExprNoComma()
			args = append(args, &Spread{Sp: p.span(start), X: x})
		} else {
			args = append(args, p.parseExprNoComma())
		}
		if !p.optional(",") {
			break
		}
	}
	p.expect(")")
	return args
}

func (p *parser) parsePrimary() Expr {
	start := p.tok.start
	tok := p.tok
	switch tok.kind {
	case tokIdent:
		p.next()
		switch tok.text {
		case "true", "false":
			return &BoolLit{Sp: p.span(start), Value: tok.text == "true"}
		case "null":
			return &NullLit{Sp: p.span(start)}
		case "undefined":
			return &NullLit{Sp: p.span(start), Undefined: true}
		}
		return &Ident{Sp: p.span(start), Name: tok.text}

	case tokNumber:
		p.next()
		return p.numberLit(tok)

	case tokString:
		p.next()
		return &StringLit{Sp: p.span(start), Value: tok.value}

	case tokPunct:
		switch tok.text {
		case "(":
			p.next()
			x := p.parseExpr()
			p.expect(")")
			return &Paren{Sp: p.span(start), X: x}
		case "[":
			return p.parseArray()
		case "{":
			return p.parseObject()
		case "`":
			return p.parseTemplate()
		case "<":
			el := p.parseJSX()
			p.next()
			return el
		}
	case tokEOF:
		p.fail("unexpected end of file")
	}
	p.fail("unexpected %s", p.describe())
	return nil
}

func (p *parser) numberLit(tok token) *NumberLit {
	n := &NumberLit{Sp: Span{Start: tok.start, End: tok.end}, Raw: tok.text}
	clean := strings.ReplaceAll(tok.text, "_", "")
	if strings.HasPrefix(clean, "0x") || strings.HasPrefix(clean, "0X") {
		v, err := strconv.ParseInt(clean[2:], 16, 64)
		if err != nil {
			p.failAt(tok.start, "invalid number %s", tok.text)
		}
		n.Int = v
		return n
	}
	if strings.ContainsAny(clean, ".eE") {
		n.Float = true
		return n
	}
	v, err := strconv.ParseInt(clean, 10, 64)
	if err != nil {
		p.failAt(tok.start, "number %s out of range", tok.text)
	}
	n.Int = v
	return n
}

func (p *parser) parseArray() Expr {
	start := p.tok.start
	p.expect("[")
	arr := &ArrayLit{Elems: []Expr{}}
	for !p.tok.is("]") {
		if p.tok.is("...") {
			s := p.tok.start
			p.next()
			x := p.parseExprNoComma()
			arr.Elems = append(arr.Elems, &Spread{Sp: p.span(s), X: x})
		} else {
			arr.Elems = append(arr.Elems, p.parseExprNoComma())
		}
		if !p.optional(",") {
			break
		}
	}
	p.expect("]")
	arr.Sp = p.span(start)
	return arr
}

func (p *parser) parseObject() Expr {
	start := p.tok.start
	p.expect("{")
	obj := &ObjectLit{Props: []*Property{}}
	for !p.tok.is("}") {
		ps := p.tok.start
		prop := &Property{}
		switch {
		case p.tok.is("..."):
			p.next()
			prop.Spread = true
			prop.Value = p.parseExprNoComma()
		case p.tok.is("["):
			p.next()
			prop.Computed = p.parseExpr()
			p.expect("]")
			p.expect(":")
			prop.Value = p.parseExprNoComma()
		default:
			switch p.tok.kind {
			case tokIdent, tokNumber:
				prop.Key = p.tok.text
			case tokString:
				prop.Key = p.tok.value
			default:
				p.fail("expected property name, found %s", p.describe())
			}
			keyTok := p.tok
			p.next()
			switch {
			case p.optional(":"):
				prop.Value = p.parseExprNoComma()
			case p.tok.is("("):
				p.fail("method shorthand is not supported in object literals")
			case keyTok.kind == tokIdent:
				prop.Shorthand = true
				prop.Value = &Ident{Sp: Span{Start: keyTok.start, End: keyTok.end}, Name: keyTok.text}
			default:
				p.fail("expected ':' after property name")
			}
		}
		prop.Sp = p.span(ps)
		obj.Props = append(obj.Props, prop)
		if !p.optional(",") {
			break
		}
	}
	p.expect("}")
	obj.Sp = p.span(start)
	return obj
}

// parseTemplate scans a template literal. The current token is the opening
// backquote; on return the token after the closing backquote is current.
func (p *parser) parseTemplate() Expr {
	start := p.tok.start
	p.pos = start + 1
	tpl := &TemplateLit{}
	var b strings.Builder
	for {
		if p.pos >= len(p.src) {
			p.failAt(start, "unterminated template literal")
		}
		c := p.src[p.pos]
		switch {
		case c == '`':
			p.pos++
			tpl.Quasis = append(tpl.Quasis, b.String())
			p.tok = token{kind: tokPunct, text: "`", start: start, end: p.pos}
			p.next()
			tpl.Sp = p.span(start)
			return tpl
		case c == '\\':
			p.pos++
			b.WriteString(p.scanEscape(start))
		case c == '$' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '{':
			tpl.Quasis = append(tpl.Quasis, b.String())
			b.Reset()
			p.pos += 2
			p.next()
			tpl.Exprs = append(tpl.Exprs, p.parseExpr())
			if !p.tok.is("}") {
				p.fail("expected '}' closing template substitution, found %s", p.describe())
			}
			p.pos = p.tok.end
		default:
			if c == '\r' {
				p.pos++
				continue
			}
			b.WriteByte(c)
			p.pos++
		}
	}
}

// tryArrow parses an arrow function if one starts at the current token.
func (p *parser) tryArrow() Expr {
	start := p.tok.start
	switch {
	case p.tok.kind == tokIdent && p.peekIs("=>"):
		param := &Param{Sp: Span{Start: p.tok.start, End: p.tok.end}, Name: p.tok.text}
		p.next()
		p.expect("=>")
		return p.finishArrow(start, []*Param{param})

	case p.tok.is("("):
		var params []*Param
		if !p.try(func() {
			params = p.parseParams()
			if p.optional(":") {
				p.parseType()
			}
			if !p.tok.is("=>") {
				p.fail("not an arrow function")
			}
		}) {
			return nil
		}
		p.expect("=>")
		return p.finishArrow(start, params)
	}
	return nil
}

func (p *parser) parseParams() []*Param {
	p.expect("(")
	params := []*Param{}
	for !p.tok.is(")") {
		ps := p.tok.start
		param := &Param{}
		switch {
		case p.tok.is("{"):
			param.Pattern = p.parseObjectPattern()
		case p.tok.kind == tokIdent:
			param.Name = p.tok.text
			p.next()
			p.optional("?")
		default:
			p.fail("expected parameter, found %s", p.describe())
		}
		if p.optional(":") {
			param.Type = p.parseType()
		}
		if p.optional("=") {
			p.parseExprNoComma()
		}
		param.Sp = p.span(ps)
		params = append(params, param)
		if !p.optional(",") {
			break
		}
	}
	p.expect(")")
	return params
}

func (p *parser) finishArrow(start int, params []*Param) Expr {
	arrow := &Arrow{Params: params}
	if p.tok.is("{") {
		p.next()
		for !p.tok.is("}") {
			if p.tok.kind == tokEOF {
				p.fail("unterminated function body")
			}
			arrow.Block = append(arrow.Block, p.parseStatement(false))
		}
		p.next()
	} else {
		arrow.Body = p.parseExprNoComma()
	}
	arrow.Sp = p.span(start)
	return arrow
}

// ---------------------------------------------------------------------------
// JSX

// parseJSX parses an element or fragment. The current token is "<". On
// return the final ">" of the element is the current token and p.pos is just
// past it; the caller decides whether to resume token or text scanning.
func (p *parser) parseJSX() Expr {
	start := p.tok.start
	p.expect("<")

	if p.tok.is(">") {
		frag := &JSXFragment{}
		frag.Children, _ = p.parseJSXChildren("")
		frag.Sp = Span{Start: start, End: p.tok.end}
		return frag
	}

	el := &JSXElement{}
	nameStart := p.tok.start
	el.Name = p.parseJSXName()
	el.NameSp = Span{Start: nameStart, End: p.prevEnd}
	if p.tok.is("<") {
		el.TypeArgs = p.parseTypeArgs()
	}

	for {
		p.splitGT()
		switch {
		case p.tok.is("/"):
			p.next()
			p.splitGT()
			if !p.tok.is(">") {
				p.fail("expected '>' after '/' in self-closing tag")
			}
			el.SelfClosing = true
			el.Sp = Span{Start: start, End: p.tok.end}
			el.Inner = Span{Start: p.tok.end, End: p.tok.end}
			return el

		case p.tok.is(">"):
			innerStart := p.tok.end
			var innerEnd int
			el.Children, innerEnd = p.parseJSXChildren(el.Name)
			el.Inner = Span{Start: innerStart, End: innerEnd}
			el.Sp = Span{Start: start, End: p.tok.end}
			return el

		case p.tok.is("{"):
			as := p.tok.start
			p.next()
			p.expect("...")
			x := p.parseExpr()
			if !p.tok.is("}") {
				p.fail("expected '}' after spread attribute")
			}
			p.next()
			el.Attrs = append(el.Attrs, &JSXAttr{Sp: p.span(as), Value: x, Spread: true})

		case p.tok.kind == tokIdent:
			el.Attrs = append(el.Attrs, p.parseJSXAttr())

		default:
			p.fail("unexpected %s in tag <%s>", p.describe(), el.Name)
		}
	}
}

// splitGT turns a ">=" token into ">" so element text may start with "=".
func (p *parser) splitGT() {
	if p.tok.is(">=") {
		p.tok.text = ">"
		p.tok.end = p.tok.start + 1
		p.pos = p.tok.end
	}
}

// parseJSXName parses Tag, Ns.Tag or hyphenated-tag.
func (p *parser) parseJSXName() string {
	name := p.expectIdentHyphenated()
	for p.tok.is(".") {
		p.next()
		name += "." + p.expectIdent().text
	}
	return name
}

// expectIdentHyphenated reads an identifier that may contain hyphens, as
// JSX attribute and tag names may.
func (p *parser) expectIdentHyphenated() string {
	if p.tok.kind != tokIdent {
		p.fail("expected name, found %s", p.describe())
	}
	name := p.tok.text
	for p.pos < len(p.src) && p.src[p.pos] == '-' {
		p.pos++
		s := p.pos
		for p.pos < len(p.src) && isIdentPart(rune(p.src[p.pos])) {
			p.pos++
		}
		name += "-" + p.src[s:p.pos]
	}
	p.tok.end = p.pos
	p.tok.text = p.src[p.tok.start:p.pos]
	p.next()
	return name
}

func (p *parser) parseJSXAttr() *JSXAttr {
	start := p.tok.start
	attr := &JSXAttr{Name: p.expectIdentHyphenated()}
	if !p.tok.is("=") {
		attr.Value = &BoolLit{Sp: p.span(start), Value: true}
		attr.Sp = p.span(start)
		return attr
	}
	p.next()
	switch {
	case p.tok.kind == tokString:
		raw := p.tok.text[1 : len(p.tok.text)-1]
		attr.Value = &StringLit{Sp: Span{Start: p.tok.start, End: p.tok.end}, Value: decodeEntities(raw)}
		p.next()
	case p.tok.is("{"):
		p.next()
		attr.Value = p.parseExpr()
		if !p.tok.is("}") {
			p.fail("expected '}' closing attribute %s, found %s", attr.Name, p.describe())
		}
		p.next()
	case p.tok.is("<"):
		attr.Value = p.parseJSX()
		p.next()
	default:
		p.fail("expected attribute value for %s, found %s", attr.Name, p.describe())
	}
	attr.Sp = p.span(start)
	return attr
}

// parseJSXChildren scans children after an opening tag's ">" up to and
// including the matching closing tag. It returns the children and the offset
// of the closing tag's "<".
func (p *parser) parseJSXChildren(name string) ([]Expr, int) {
	children := []Expr{}
	for {
		textStart := p.pos
		for p.pos < len(p.src) && p.src[p.pos] != '<' && p.src[p.pos] != '{' {
			p.pos++
		}
		if p.pos > textStart {
			raw := p.src[textStart:p.pos]
			if v := jsxText(raw); v != "" {
				children = append(children, &JSXText{Sp: Span{Start: textStart, End: p.pos}, Value: v, Raw: raw})
			}
		}
		if p.pos >= len(p.src) {
			if name == "" {
				p.failAt(textStart, "unterminated fragment")
			}
			p.failAt(textStart, "unterminated element <%s>", name)
		}

		if p.src[p.pos] == '{' {
			cs := p.pos
			p.pos++
			p.next()
			if p.tok.is("}") {
				// {/* comment */}
				p.pos = p.tok.end
				continue
			}
			x := p.parseExpr()
			if !p.tok.is("}") {
				p.fail("expected '}' closing expression, found %s", p.describe())
			}
			p.pos = p.tok.end
			children = append(children, &JSXExprContainer{Sp: Span{Start: cs, End: p.pos}, X: x})
			continue
		}

		lt := p.pos
		p.pos++
		p.next()
		if p.tok.is("/") {
			p.next()
			closing := ""
			if !p.tok.is(">") {
				closing = p.parseJSXName()
			}
			if closing != name {
				if name == "" {
					p.failAt(lt, "expected </>, found </%s>", closing)
				}
				p.failAt(lt, "expected </%s>, found </%s>", name, closing)
			}
			p.splitGT()
			if !p.tok.is(">") {
				p.fail("expected '>' in closing tag")
			}
			return children, lt
		}

		// nested element: rewind so parseJSX sees the "<"
		p.pos = lt
		p.next()
		children = append(children, p.parseJSX())
		p.pos = p.tok.end
	}
}
