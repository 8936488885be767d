package pdfread

import (
	"bytes"
	"fmt"
	"strconv"
)

const maxNesting = 100

// Parser is a recursive descent parser over a byte slice of PDF syntax. It
// is used both for file level objects and for content streams.
type Parser struct {
	data  []byte
	pos   int
	depth int
}

// NewParser starts a parser at the given position.
func NewParser(data []byte, pos int) *Parser {
	return &Parser{data: data, pos: pos}
}

// Pos returns the current position.
func (p *Parser) Pos() int { return p.pos }

// SetPos moves the parser.
func (p *Parser) SetPos(pos int) { p.pos = pos }

// AtEnd reports whether the input is exhausted.
func (p *Parser) AtEnd() bool { return p.pos >= len(p.data) }

func isDelim(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isWhitespace(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

// SkipWhitespace skips whitespace and comments.
func (p *Parser) SkipWhitespace() {
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if c == '%' {
			for p.pos < len(p.data) && p.data[p.pos] != '\n' && p.data[p.pos] != '\r' {
				p.pos++
			}
			continue
		}
		if !isWhitespace(c) {
			return
		}
		p.pos++
	}
}

func (p *Parser) match(s string) bool {
	end := p.pos + len(s)
	if end > len(p.data) || string(p.data[p.pos:end]) != s {
		return false
	}
	p.pos = end
	return true
}

// ReadToken reads up to the next whitespace or delimiter.
func (p *Parser) ReadToken() string {
	start := p.pos
	for p.pos < len(p.data) && !isWhitespace(p.data[p.pos]) && !isDelim(p.data[p.pos]) {
		p.pos++
	}
	return string(p.data[start:p.pos])
}

// Next reads the next content stream token. It returns either an operand
// object or an operator keyword, never both. At the end of input both are
// empty.
func (p *Parser) Next() (*Object, string) {
	p.SkipWhitespace()
	if p.pos >= len(p.data) {
		return nil, ""
	}
	c := p.data[p.pos]
	if c == '(' || c == '<' || c == '/' || c == '[' ||
		c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9') {
		obj, err := p.ParseObject()
		if err != nil {
			p.pos++
			return nil, ""
		}
		return obj, ""
	}
	if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '\'' || c == '"' || c == '*' {
		return nil, p.readOperator()
	}
	p.pos++
	return nil, ""
}

// readOperator reads an operator keyword, which may contain * and quotes but
// never digits or delimiters.
func (p *Parser) readOperator() string {
	start := p.pos
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if isWhitespace(c) || isDelim(c) || c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9') {
			break
		}
		p.pos++
	}
	return string(p.data[start:p.pos])
}

// ParseObject parses one object at the current position.
func (p *Parser) ParseObject() (*Object, error) {
	if p.depth > maxNesting {
		return nil, fmt.Errorf("object nesting deeper than %d", maxNesting)
	}
	p.depth++
	defer func() { p.depth-- }()

	p.SkipWhitespace()
	if p.pos >= len(p.data) {
		return &Object{Kind: KindNull}, nil
	}
	c := p.data[p.pos]
	switch {
	case c == 'n' && p.match("null"):
		return &Object{Kind: KindNull}, nil
	case c == 't' && p.match("true"):
		return &Object{Kind: KindBool, Bool: true}, nil
	case c == 'f' && p.match("false"):
		return &Object{Kind: KindBool}, nil
	case c == '(':
		return p.parseLiteralString(), nil
	case c == '<' && p.pos+1 < len(p.data) && p.data[p.pos+1] == '<':
		return p.parseDict()
	case c == '<':
		return p.parseHexString(), nil
	case c == '/':
		return p.parseName(), nil
	case c == '[':
		return p.parseArray()
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return p.parseNumberOrRef(), nil
	default:
		p.pos++
		return &Object{Kind: KindNull}, nil
	}
}

func (p *Parser) parseLiteralString() *Object {
	p.pos++
	var buf bytes.Buffer
	depth := 1
	for p.pos < len(p.data) && depth > 0 {
		c := p.data[p.pos]
		switch c {
		case '\\':
			p.pos++
			if p.pos >= len(p.data) {
				break
			}
			esc := p.data[p.pos]
			p.pos++
			switch esc {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case '(', ')', '\\':
				buf.WriteByte(esc)
			case '\r':
				if p.pos < len(p.data) && p.data[p.pos] == '\n' {
					p.pos++
				}
			case '\n':
				// line continuation
			default:
				if esc >= '0' && esc <= '7' {
					oct := int(esc - '0')
					for i := 0; i < 2 && p.pos < len(p.data); i++ {
						d := p.data[p.pos]
						if d < '0' || d > '7' {
							break
						}
						oct = oct*8 + int(d-'0')
						p.pos++
					}
					buf.WriteByte(byte(oct))
				} else {
					buf.WriteByte(esc)
				}
			}
		case '(':
			depth++
			buf.WriteByte(c)
			p.pos++
		case ')':
			depth--
			if depth > 0 {
				buf.WriteByte(c)
			}
			p.pos++
		default:
			buf.WriteByte(c)
			p.pos++
		}
	}
	return &Object{Kind: KindString, Str: buf.Bytes()}
}

func (p *Parser) parseHexString() *Object {
	p.pos++
	var buf bytes.Buffer
	for p.pos < len(p.data) && p.data[p.pos] != '>' {
		p.SkipWhitespace()
		if p.pos >= len(p.data) || p.data[p.pos] == '>' {
			break
		}
		hi := hexVal(p.data[p.pos])
		p.pos++
		var lo byte
		if p.pos < len(p.data) && p.data[p.pos] != '>' {
			lo = hexVal(p.data[p.pos])
			p.pos++
		}
		buf.WriteByte(hi<<4 | lo)
	}
	if p.pos < len(p.data) {
		p.pos++
	}
	return &Object{Kind: KindString, Str: buf.Bytes()}
}

func hexVal(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}

func (p *Parser) parseName() *Object {
	p.pos++
	start := p.pos
	for p.pos < len(p.data) && !isWhitespace(p.data[p.pos]) && !isDelim(p.data[p.pos]) {
		p.pos++
	}
	name := string(p.data[start:p.pos])
	if bytes.IndexByte([]byte(name), '#') >= 0 {
		var buf bytes.Buffer
		for i := 0; i < len(name); {
			if name[i] == '#' && i+2 < len(name) {
				buf.WriteByte(hexVal(name[i+1])<<4 | hexVal(name[i+2]))
				i += 3
				continue
			}
			buf.WriteByte(name[i])
			i++
		}
		name = buf.String()
	}
	return &Object{Kind: KindName, Name: name}
}

func (p *Parser) parseArray() (*Object, error) {
	p.pos++
	var arr []*Object
	for {
		p.SkipWhitespace()
		if p.pos >= len(p.data) {
			break
		}
		if p.data[p.pos] == ']' {
			p.pos++
			break
		}
		obj, err := p.ParseObject()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
	return &Object{Kind: KindArray, Array: arr}, nil
}

// parseDict parses a dictionary and, when followed by the stream keyword,
// the raw stream bytes. The stream length comes from /Length when that is a
// direct integer, otherwise the endstream keyword delimits the data.
func (p *Parser) parseDict() (*Object, error) {
	p.pos += 2
	d := make(Dict)
	for {
		p.SkipWhitespace()
		if p.pos >= len(p.data) {
			break
		}
		if p.pos+1 < len(p.data) && p.data[p.pos] == '>' && p.data[p.pos+1] == '>' {
			p.pos += 2
			break
		}
		if p.data[p.pos] != '/' {
			p.pos++
			continue
		}
		key := p.parseName()
		val, err := p.ParseObject()
		if err != nil {
			return nil, err
		}
		d[key.Name] = val
	}

	p.SkipWhitespace()
	if !p.match("stream") {
		return &Object{Kind: KindDict, Dict: d}, nil
	}
	if p.pos < len(p.data) && p.data[p.pos] == '\r' {
		p.pos++
	}
	if p.pos < len(p.data) && p.data[p.pos] == '\n' {
		p.pos++
	}

	start := p.pos
	length := -1
	if n, ok := d.Int("Length"); ok {
		length = int(n)
	}
	var data []byte
	if length >= 0 && start+length <= len(p.data) {
		data = p.data[start : start+length]
		p.pos = start + length
	} else {
		end := bytes.Index(p.data[start:], []byte("endstream"))
		if end < 0 {
			end = len(p.data) - start
		}
		data = p.data[start : start+end]
		p.pos = start + end
	}
	p.SkipWhitespace()
	p.match("endstream")
	return &Object{Kind: KindStream, Dict: d, Stream: data}, nil
}

// parseNumberOrRef disambiguates numbers from "N G R" references by looking
// ahead for the second integer and the R keyword.
func (p *Parser) parseNumberOrRef() *Object {
	numStr := p.ReadToken()
	n, errInt := strconv.ParseInt(numStr, 10, 64)
	if errInt == nil {
		after := p.pos
		p.SkipWhitespace()
		genStr := p.ReadToken()
		if g, err := strconv.ParseInt(genStr, 10, 64); err == nil {
			p.SkipWhitespace()
			if p.pos < len(p.data) && p.data[p.pos] == 'R' {
				if p.pos+1 >= len(p.data) || isWhitespace(p.data[p.pos+1]) || isDelim(p.data[p.pos+1]) {
					p.pos++
					return &Object{Kind: KindRef, Ref: Reference{Number: int(n), Gen: int(g)}}
				}
			}
		}
		p.pos = after
		return &Object{Kind: KindInt, Int: n}
	}
	if f, err := strconv.ParseFloat(numStr, 64); err == nil {
		return &Object{Kind: KindReal, Real: f}
	}
	return &Object{Kind: KindNull}
}
