package source

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokPunct
)

type token struct {
	kind  tokenKind
	text  string // raw source text
	value string // decoded value of a string literal
	start int
	end   int
}

func (t token) is(text string) bool {
	return t.kind == tokPunct && t.text == text
}

func (t token) isWord(word string) bool {
	return t.kind == tokIdent && t.text == word
}

// Longest punctuators first. ">>" is deliberately absent so generic tag
// arguments like <SpawnAgent<Input>> close one bracket at a time.
var puncts = []string{
	"===", "!==", "...",
	"=>", "==", "!=", "<=", ">=", "&&", "||", "??", "?.",
}

// scan lexes the token starting at p.pos (after whitespace and comments)
// and advances p.pos past it.
func (p *parser) scan() token {
	p.skipSpace()
	start := p.pos
	if p.pos >= len(p.src) {
		return token{kind: tokEOF, start: start, end: start}
	}

	c := p.src[p.pos]
	r, size := utf8.DecodeRuneInString(p.src[p.pos:])
	switch {
	case isIdentStart(r):
		p.pos += size
		for p.pos < len(p.src) {
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			if !isIdentPart(r) {
				break
			}
			p.pos += size
		}
		return token{kind: tokIdent, text: p.src[start:p.pos], start: start, end: p.pos}

	case isDigit(c) || (c == '.' && p.pos+1 < len(p.src) && isDigit(p.src[p.pos+1])):
		p.scanNumber()
		return token{kind: tokNumber, text: p.src[start:p.pos], start: start, end: p.pos}

	case c == '"' || c == '\'':
		value := p.scanString(c)
		return token{kind: tokString, text: p.src[start:p.pos], value: value, start: start, end: p.pos}
	}

	for _, punct := range puncts {
		if strings.HasPrefix(p.src[p.pos:], punct) {
			// a?.5 is a ternary, not optional chaining
			if punct == "?." && p.pos+2 < len(p.src) && isDigit(p.src[p.pos+2]) {
				continue
			}
			p.pos += len(punct)
			return token{kind: tokPunct, text: punct, start: start, end: p.pos}
		}
	}
	p.pos += size
	return token{kind: tokPunct, text: p.src[start:p.pos], start: start, end: p.pos}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			p.pos++
		case strings.HasPrefix(p.src[p.pos:], "//"):
			nl := strings.IndexByte(p.src[p.pos:], '\n')
			if nl < 0 {
				p.pos = len(p.src)
			} else {
				p.pos += nl + 1
			}
		case strings.HasPrefix(p.src[p.pos:], "/*"):
			end := strings.Index(p.src[p.pos+2:], "*/")
			if end < 0 {
				p.failAt(p.pos, "unterminated comment")
			}
			p.pos += end + 4
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			if r == '\u00a0' || r == '\ufeff' {
				p.pos += size
				continue
			}
			return
		}
	}
}

func (p *parser) scanNumber() {
	if strings.HasPrefix(p.src[p.pos:], "0x") || strings.HasPrefix(p.src[p.pos:], "0X") {
		p.pos += 2
		for p.pos < len(p.src) && (isHex(p.src[p.pos]) || p.src[p.pos] == '_') {
			p.pos++
		}
		return
	}
	digits := func() {
		for p.pos < len(p.src) && (isDigit(p.src[p.pos]) || p.src[p.pos] == '_') {
			p.pos++
		}
	}
	digits()
	if p.pos < len(p.src) && p.src[p.pos] == '.' {
		p.pos++
		digits()
	}
	if p.pos < len(p.src) && (p.src[p.pos] == 'e' || p.src[p.pos] == 'E') {
		p.pos++
		if p.pos < len(p.src) && (p.src[p.pos] == '+' || p.src[p.pos] == '-') {
			p.pos++
		}
		digits()
	}
}

// scanString scans a quoted literal starting at p.pos and returns its
// decoded value.
func (p *parser) scanString(quote byte) string {
	start := p.pos
	p.pos++
	var b strings.Builder
	for {
		if p.pos >= len(p.src) || p.src[p.pos] == '\n' {
			p.failAt(start, "unterminated string literal")
		}
		c := p.src[p.pos]
		if c == quote {
			p.pos++
			return b.String()
		}
		if c == '\\' {
			p.pos++
			b.WriteString(p.scanEscape(start))
			continue
		}
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		b.WriteRune(r)
		p.pos += size
	}
}

// scanEscape decodes the escape sequence after a backslash.
func (p *parser) scanEscape(litStart int) string {
	if p.pos >= len(p.src) {
		p.failAt(litStart, "unterminated escape sequence")
	}
	c := p.src[p.pos]
	p.pos++
	switch c {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case 'b':
		return "\b"
	case 'f':
		return "\f"
	case 'v':
		return "\v"
	case '0':
		return "\x00"
	case '\n':
		return ""
	case 'x':
		return p.hexRune(litStart, 2)
	case 'u':
		if p.pos < len(p.src) && p.src[p.pos] == '{' {
			end := strings.IndexByte(p.src[p.pos:], '}')
			if end < 0 {
				p.failAt(litStart, "invalid unicode escape")
			}
			n, err := strconv.ParseUint(p.src[p.pos+1:p.pos+end], 16, 32)
			if err != nil {
				p.failAt(litStart, "invalid unicode escape")
			}
			p.pos += end + 1
			return string(rune(n))
		}
		return p.hexRune(litStart, 4)
	default:
		r, size := utf8.DecodeRuneInString(p.src[p.pos-1:])
		p.pos += size - 1
		return string(r)
	}
}

func (p *parser) hexRune(litStart, n int) string {
	if p.pos+n > len(p.src) {
		p.failAt(litStart, "invalid escape sequence")
	}
	v, err := strconv.ParseUint(p.src[p.pos:p.pos+n], 16, 32)
	if err != nil {
		p.failAt(litStart, "invalid escape sequence")
	}
	p.pos += n
	return string(rune(v))
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// jsxText applies the JSX whitespace rules to raw text between tags: lines
// are trimmed at line boundaries, whitespace-only lines vanish and the
// remaining lines are joined with one space.
func jsxText(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	lines := strings.Split(raw, "\n")
	lastNonEmpty := 0
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			lastNonEmpty = i
		}
	}

	var b strings.Builder
	for i, line := range lines {
		line = strings.ReplaceAll(line, "\t", " ")
		if i > 0 {
			line = strings.TrimLeft(line, " ")
		}
		if i < len(lines)-1 {
			line = strings.TrimRight(line, " ")
		}
		if line == "" {
			continue
		}
		b.WriteString(line)
		if i != lastNonEmpty {
			b.WriteByte(' ')
		}
	}
	return decodeEntities(b.String())
}

var entities = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&nbsp;", "\u00a0",
	"&#123;", "{",
	"&#125;", "}",
	"&lbrace;", "{",
	"&rbrace;", "}",
)

func decodeEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return entities.Replace(s)
}
