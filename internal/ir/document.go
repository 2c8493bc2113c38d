package ir

// DocumentKind is the kind of artifact a Document renders to.
type DocumentKind string

// Document kinds.
const (
	DocCommand DocumentKind = "command"
	DocAgent   DocumentKind = "agent"
)

// ValidDocumentKinds defines allowed document kinds.
var ValidDocumentKinds = map[DocumentKind]bool{
	DocCommand: true,
	DocAgent:   true,
}

// FrontMatterEntry is one key/value of the front-matter block. Entries keep
// source order so emission is deterministic.
type FrontMatterEntry struct {
	Key   string
	Value Value
}

// RuntimeVarKind says how a runtime variable was declared.
type RuntimeVarKind string

// Runtime variable kinds.
const (
	VarVariable RuntimeVarKind = "variable"
	VarOutput   RuntimeVarKind = "output"
)

// RuntimeVar is an entry of the document's runtime variable table.
type RuntimeVar struct {
	Name    string // runtime name, e.g. "CTX"
	Binding string // source identifier, e.g. "ctx"
	Kind    RuntimeVarKind
	Type    string // interface name, "" when untyped
	Pos     Pos
}

// ContractField is one property of an Interface Contract.
type ContractField struct {
	Name     string
	Required bool
	Type     string // source text of the property type
}

// Contract is a named set of (property, required) pairs resolved from a
// generic type argument.
type Contract struct {
	Name   string
	Fields []ContractField
	Pos    Pos
}

// Required returns the names of required properties in contract order.
func (c *Contract) Required() []string {
	var out []string
	for _, f := range c.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// Has reports whether the contract declares the property.
func (c *Contract) Has(name string) bool {
	for _, f := range c.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Missing returns the required properties not present in supplied, in
// contract order. An empty result means the contract is satisfied.
func (c *Contract) Missing(supplied map[string]bool) []string {
	var out []string
	for _, name := range c.Required() {
		if !supplied[name] {
			out = append(out, name)
		}
	}
	return out
}

// Document is the root of the IR: one per source file. It is immutable once
// the transform engine returns it and is consumed once by the emitter.
type Document struct {
	Kind        DocumentKind
	Name        string
	Source      string // source file path
	FrontMatter []FrontMatterEntry
	Body        []Block
	Variables   []RuntimeVar
	Output      *Contract // agent output contract from <Agent<T>>, may be nil
}

// Variable looks up a runtime variable by runtime name.
func (d *Document) Variable(name string) (RuntimeVar, bool) {
	for _, v := range d.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return RuntimeVar{}, false
}

// RuntimeCallRequest is handed to the function bundler: the function name, the
// argument literal as rendered into the artifact, and the output variable.
type RuntimeCallRequest struct {
	Function string `json:"function"`
	Args     string `json:"args"`
	Output   string `json:"output"`
	Source   string `json:"source"`
}

// RuntimeCalls returns the runtime-call nodes of the document in document
// order.
func (d *Document) RuntimeCalls() []*RuntimeCall {
	var calls []*RuntimeCall
	for _, b := range d.Body {
		Walk(b, func(n Node) bool {
			if rc, ok := n.(*RuntimeCall); ok {
				calls = append(calls, rc)
			}
			return true
		})
	}
	return calls
}
