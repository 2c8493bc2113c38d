package emit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/promptc/internal/ir"
)

// DefaultRuntimePath is the script runtime calls are dispatched through.
const DefaultRuntimePath = ".claude/runtime/runtime.js"

// Errors returned by Emit. Both abort the document.
var (
	ErrNoBundler   = errors.New("document makes runtime calls but no bundler is configured")
	ErrNotBundled  = errors.New("runtime function not bundled")
	ErrNilDocument = errors.New("cannot emit nil document")
)

// Bundler resolves and bundles the functions named by runtime-call requests
// and returns the names of the functions it bundled.
type Bundler interface {
	Bundle(ctx context.Context, calls []ir.RuntimeCallRequest) ([]string, error)
}

// Options configures an Emitter.
type Options struct {
	Bundler     Bundler
	RuntimePath string
	Logger      *slog.Logger
}

// Emitter renders IR Documents to text. It holds no per-document state and
// may be shared between goroutines.
type Emitter struct {
	opts Options
}

// New creates an Emitter.
func New(opts Options) *Emitter {
	if opts.RuntimePath == "" {
		opts.RuntimePath = DefaultRuntimePath
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Emitter{opts: opts}
}

// Emit renders doc. Runtime calls are handed to the bundler first; every
// called function must be in the list it returns.
//
// CRITICAL: Output is a pure function of doc and the bundled list. Emitting
// the same Document twice yields byte-identical text.
func (e *Emitter) Emit(ctx context.Context, doc *ir.Document) (string, error) {
	if doc == nil {
		return "", ErrNilDocument
	}
	em := &emitter{
		opts: e.opts,
		doc:  doc,
		used: make(map[string]bool),
	}

	calls, err := Requests(doc)
	if err != nil {
		return "", err
	}
	if len(calls) > 0 {
		if e.opts.Bundler == nil {
			return "", ErrNoBundler
		}
		names, err := e.opts.Bundler.Bundle(ctx, calls)
		if err != nil {
			return "", fmt.Errorf("bundle runtime functions: %w", err)
		}
		em.bundled = make(map[string]bool, len(names))
		for _, n := range names {
			em.bundled[n] = true
		}
	}

	out, err := em.document()
	if err != nil {
		return "", err
	}
	e.opts.Logger.Debug("document emitted",
		"source", doc.Source,
		"bytes", len(out),
		"runtime_calls", len(calls))
	return out, nil
}

// emitter is the private per-document emission context. used is the registry
// of runtime variables referenced by rendered nodes; it only grows.
type emitter struct {
	opts    Options
	doc     *ir.Document
	bundled map[string]bool
	used    map[string]bool
}

// state is the running emission state threaded through block rendering.
type state struct {
	lists  []listFrame // open lists, innermost last
	offset int         // heading levels added by enclosing sections
}

// listFrame is one open list: its marker style and the next item number.
type listFrame struct {
	ordered bool
	next    int
}

// push returns a copy of st with frame opened as the innermost list.
func (st state) push(frame listFrame) state {
	st.lists = append(slices.Clone(st.lists), frame)
	return st
}

// advance returns a copy of st with the innermost list's counter moved to
// the next item.
func (st state) advance() state {
	lists := slices.Clone(st.lists)
	lists[len(lists)-1].next++
	st.lists = lists
	return st
}

// nested returns a copy of st with headings shifted one level.
func (st state) nested() state {
	st.offset++
	return st
}

func (em *emitter) use(name string) {
	em.used[name] = true
}

func (em *emitter) useRef(r ir.Ref) string {
	em.use(r.Var)
	return r.Expr()
}

func (em *emitter) useCondition(c ir.Condition) {
	for _, r := range ir.CondRefs(c) {
		em.use(r.Var)
	}
}

// document renders front-matter, the runtime variable block, the body and,
// for typed agents, the output format. Body rendering comes first so the
// variable block lists exactly the variables the body references.
func (em *emitter) document() (string, error) {
	body, _, err := em.blocks(em.doc.Body, state{}, "\n\n")
	if err != nil {
		return "", err
	}

	var parts []string
	if em.doc.Kind == ir.DocCommand || len(em.doc.FrontMatter) > 0 {
		fm, err := frontMatter(em.doc.FrontMatter)
		if err != nil {
			return "", err
		}
		parts = append(parts, fm)
	}
	if vars := em.variables(); vars != "" {
		parts = append(parts, vars)
	}
	if body != "" {
		parts = append(parts, body)
	}
	if em.doc.Kind == ir.DocAgent && em.doc.Output != nil {
		parts = append(parts, outputFormat(em.doc.Output))
	}
	return norm.NFC.String(strings.Join(parts, "\n\n") + "\n"), nil
}

// variables renders the <runtime-variables> block for referenced variables
// in declaration order.
func (em *emitter) variables() string {
	var lines []string
	for _, v := range em.doc.Variables {
		if !em.used[v.Name] {
			continue
		}
		line := "- $" + v.Name
		if v.Type != "" {
			line += ": " + v.Type
		}
		if v.Kind == ir.VarOutput {
			line += " (agent output)"
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return ""
	}
	return "<runtime-variables>\n" + strings.Join(lines, "\n") + "\n</runtime-variables>"
}

// outputFormat renders the response contract of a typed agent.
func outputFormat(c *ir.Contract) string {
	var b strings.Builder
	b.WriteString("<output-format>\n")
	fmt.Fprintf(&b, "Respond with a JSON object matching %s:\n\n", c.Name)
	for _, f := range c.Fields {
		req := "optional"
		if f.Required {
			req = "required"
		}
		typ := f.Type
		if typ == "" {
			typ = "any"
		}
		fmt.Fprintf(&b, "- `%s` (%s, %s)\n", f.Name, typ, req)
	}
	b.WriteString("</output-format>")
	return b.String()
}
