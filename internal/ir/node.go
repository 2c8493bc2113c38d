package ir

// Kind discriminates IR nodes. The set is closed: a node's Kind uniquely
// determines its Go type and shape.
type Kind string

// Block kinds.
const (
	KindHeading       Kind = "heading"
	KindParagraph     Kind = "paragraph"
	KindList          Kind = "list"
	KindListItem      Kind = "list-item"
	KindCodeBlock     Kind = "code-block"
	KindBlockquote    Kind = "blockquote"
	KindTable         Kind = "table"
	KindThematicBreak Kind = "thematic-break"
	KindTaggedBlock   Kind = "tagged-block"
	KindSection       Kind = "section"
	KindRawMarkdown   Kind = "raw-markdown"
	KindStep          Kind = "step"
	KindAssign        Kind = "assign"
	KindIf            Kind = "if"
	KindLoop          Kind = "loop"
	KindBreak         Kind = "break"
	KindReturn        Kind = "return"
	KindStatusBranch  Kind = "status-branch"
	KindAgentSpawn    Kind = "agent-spawn"
	KindUserPrompt    Kind = "user-prompt"
	KindRuntimeCall   Kind = "runtime-call"
)

// Inline kinds.
const (
	KindText       Kind = "text"
	KindBold       Kind = "bold"
	KindItalic     Kind = "italic"
	KindInlineCode Kind = "inline-code"
	KindLink       Kind = "link"
	KindLineBreak  Kind = "line-break"
	KindVarRef     Kind = "var-ref"
	KindChoice     Kind = "choice"
)

// Condition kinds.
const (
	KindCondRef     Kind = "reference"
	KindCondLiteral Kind = "literal"
	KindNot         Kind = "not"
	KindAnd         Kind = "and"
	KindOr          Kind = "or"
	KindEq          Kind = "eq"
	KindNeq         Kind = "neq"
	KindGt          Kind = "gt"
	KindGte         Kind = "gte"
	KindLt          Kind = "lt"
	KindLte         Kind = "lte"
)

// Node is a sealed interface implemented by every IR node.
// The marker method prevents implementations outside this package and lets
// the emitter switch exhaustively.
type Node interface {
	Kind() Kind
	irNode()
}

// Block is a node that occupies whole lines of output.
type Block interface {
	Node
	blockNode()
}

// Inline is a node that renders inside a line of prose.
type Inline interface {
	Node
	inlineNode()
}

// Heading is a markdown heading. Level is 1-6 before section offsets apply.
type Heading struct {
	Level   int
	Content []Inline
}

// Paragraph is a run of inline content.
type Paragraph struct {
	Content []Inline
}

// List is a bullet or ordered list. Items are always *ListItem.
type List struct {
	Ordered bool
	Start   int // first number of an ordered list; 0 means 1
	Items   []*ListItem
}

// ListItem holds the blocks of one list entry.
type ListItem struct {
	Children []Block
}

// CodeBlock is a fenced code block.
type CodeBlock struct {
	Language string
	Code     string
}

// Blockquote prefixes its children with "> ".
type Blockquote struct {
	Children []Block
}

// Align is a table column alignment.
type Align string

// Table column alignments.
const (
	AlignNone   Align = ""
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Cell is the inline content of one table cell.
type Cell []Inline

// Table is a pipe table.
type Table struct {
	Headers []Cell
	Rows    [][]Cell
	Align   []Align
}

// ThematicBreak is a horizontal rule.
type ThematicBreak struct{}

// Attr is a name/value attribute on a tagged block.
type Attr struct {
	Name  string
	Value string
}

// TaggedBlock wraps its children in <name>...</name>. Name is lowercase
// hyphenated.
type TaggedBlock struct {
	Name     string
	Attrs    []Attr
	Children []Block
}

// Section renders Title as a heading one level below the enclosing section
// and shifts every heading inside it by one level.
type Section struct {
	Title    []Inline
	Children []Block
}

// RawMarkdown is passed through verbatim.
type RawMarkdown struct {
	Text string
}

// Step is a numbered procedural step rendered as a heading.
type Step struct {
	Number   int
	Name     string
	Children []Block
}

// AssignSourceKind says where an Assign takes its value from.
type AssignSourceKind string

// Assign sources.
const (
	AssignLiteral AssignSourceKind = "literal"
	AssignShell   AssignSourceKind = "shell"
	AssignRef     AssignSourceKind = "ref"
)

// Assign sets a runtime variable.
type Assign struct {
	Var     string // runtime name, e.g. "CTX"
	Source  AssignSourceKind
	Literal Value  // AssignLiteral
	Shell   string // AssignShell
	Ref     *Ref   // AssignRef
}

// If is a conditional with an optional else branch.
type If struct {
	Test    Condition
	Then    []Block
	Else    []Block
	HasElse bool
}

// Bound is the maximum iteration count of a Loop. Exactly one of Static or
// Ref is set; a Loop never exists without a Bound.
type Bound struct {
	Static int
	Ref    *Ref
}

// Loop repeats its children at most Max times.
type Loop struct {
	Max      Bound
	Children []Block
}

// Break leaves the innermost Loop.
type Break struct {
	Message string
}

// Return ends the document's procedure with a status.
type Return struct {
	Status  string
	Message string
}

// StatusBranch runs its children when an agent output reports Status.
type StatusBranch struct {
	Output   string // runtime name of the output variable
	Status   string
	Children []Block
}

// Arg is a named value: either a literal or a runtime reference.
type Arg struct {
	Name    string
	Literal Value
	Ref     *Ref
}

// AgentSpawn starts a sub-agent with a typed input.
type AgentSpawn struct {
	Agent       string
	Model       string
	Description string
	Contract    string // interface name the input was checked against
	Input       []Arg
	InputRef    *Ref   // whole input passed as one runtime value
	Output      string // runtime name receiving the agent's answer
	Prompt      []Block
}

// Option is one answer offered by a UserPrompt.
type Option struct {
	Label       string
	Description string
}

// UserPrompt asks the user a question.
type UserPrompt struct {
	Question    string
	Header      string
	Options     []Option
	MultiSelect bool
	Output      string
}

// RuntimeCall invokes a bundled runtime function and stores its JSON result.
type RuntimeCall struct {
	Function string
	Args     []Arg
	Output   string
}

// Text is literal prose.
type Text struct {
	Value string
}

// Bold is strong emphasis.
type Bold struct {
	Content []Inline
}

// Italic is emphasis.
type Italic struct {
	Content []Inline
}

// InlineCode is a code span.
type InlineCode struct {
	Value string
}

// Link is an inline link.
type Link struct {
	Href    string
	Content []Inline
}

// LineBreak is a hard line break inside a paragraph.
type LineBreak struct{}

// VarRef reads a runtime value inline.
type VarRef struct {
	Ref Ref
}

// Choice is a value-position ternary: it picks one of two strings at runtime.
// It never introduces a control-flow branch.
type Choice struct {
	Test Condition
	Then string
	Else string
}

func (*Heading) Kind() Kind       { return KindHeading }
func (*Paragraph) Kind() Kind     { return KindParagraph }
func (*List) Kind() Kind          { return KindList }
func (*ListItem) Kind() Kind      { return KindListItem }
func (*CodeBlock) Kind() Kind     { return KindCodeBlock }
func (*Blockquote) Kind() Kind    { return KindBlockquote }
func (*Table) Kind() Kind         { return KindTable }
func (*ThematicBreak) Kind() Kind { return KindThematicBreak }
func (*TaggedBlock) Kind() Kind   { return KindTaggedBlock }
func (*Section) Kind() Kind       { return KindSection }
func (*RawMarkdown) Kind() Kind   { return KindRawMarkdown }
func (*Step) Kind() Kind          { return KindStep }
func (*Assign) Kind() Kind        { return KindAssign }
func (*If) Kind() Kind            { return KindIf }
func (*Loop) Kind() Kind          { return KindLoop }
func (*Break) Kind() Kind         { return KindBreak }
func (*Return) Kind() Kind        { return KindReturn }
func (*StatusBranch) Kind() Kind  { return KindStatusBranch }
func (*AgentSpawn) Kind() Kind    { return KindAgentSpawn }
func (*UserPrompt) Kind() Kind    { return KindUserPrompt }
func (*RuntimeCall) Kind() Kind   { return KindRuntimeCall }
func (*Text) Kind() Kind          { return KindText }
func (*Bold) Kind() Kind          { return KindBold }
func (*Italic) Kind() Kind        { return KindItalic }
func (*InlineCode) Kind() Kind    { return KindInlineCode }
func (*Link) Kind() Kind          { return KindLink }
func (*LineBreak) Kind() Kind     { return KindLineBreak }
func (*VarRef) Kind() Kind        { return KindVarRef }
func (*Choice) Kind() Kind        { return KindChoice }

func (*Heading) irNode()       {}
func (*Paragraph) irNode()     {}
func (*List) irNode()          {}
func (*ListItem) irNode()      {}
func (*CodeBlock) irNode()     {}
func (*Blockquote) irNode()    {}
func (*Table) irNode()         {}
func (*ThematicBreak) irNode() {}
func (*TaggedBlock) irNode()   {}
func (*Section) irNode()       {}
func (*RawMarkdown) irNode()   {}
func (*Step) irNode()          {}
func (*Assign) irNode()        {}
func (*If) irNode()            {}
func (*Loop) irNode()          {}
func (*Break) irNode()         {}
func (*Return) irNode()        {}
func (*StatusBranch) irNode()  {}
func (*AgentSpawn) irNode()    {}
func (*UserPrompt) irNode()    {}
func (*RuntimeCall) irNode()   {}
func (*Text) irNode()          {}
func (*Bold) irNode()          {}
func (*Italic) irNode()        {}
func (*InlineCode) irNode()    {}
func (*Link) irNode()          {}
func (*LineBreak) irNode()     {}
func (*VarRef) irNode()        {}
func (*Choice) irNode()        {}

func (*Heading) blockNode()       {}
func (*Paragraph) blockNode()     {}
func (*List) blockNode()          {}
func (*ListItem) blockNode()      {}
func (*CodeBlock) blockNode()     {}
func (*Blockquote) blockNode()    {}
func (*Table) blockNode()         {}
func (*ThematicBreak) blockNode() {}
func (*TaggedBlock) blockNode()   {}
func (*Section) blockNode()       {}
func (*RawMarkdown) blockNode()   {}
func (*Step) blockNode()          {}
func (*Assign) blockNode()        {}
func (*If) blockNode()            {}
func (*Loop) blockNode()          {}
func (*Break) blockNode()         {}
func (*Return) blockNode()        {}
func (*StatusBranch) blockNode()  {}
func (*AgentSpawn) blockNode()    {}
func (*UserPrompt) blockNode()    {}
func (*RuntimeCall) blockNode()   {}

func (*Text) inlineNode()       {}
func (*Bold) inlineNode()       {}
func (*Italic) inlineNode()     {}
func (*InlineCode) inlineNode() {}
func (*Link) inlineNode()       {}
func (*LineBreak) inlineNode()  {}
func (*VarRef) inlineNode()     {}
func (*Choice) inlineNode()     {}
