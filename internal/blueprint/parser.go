// Package blueprint reads the data-literal subset of the Lua syntax used by
// Supreme Commander blueprint files. It never evaluates anything: the input is
// turned into a tree of tables, text, numbers and booleans or rejected.
package blueprint

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// MaxDepth bounds table nesting.
	MaxDepth = 128
	// MaxInputBytes bounds the size of a single blueprint.
	MaxInputBytes = 2 << 20
)

// Parse parses a blueprint. A leading type tag such as "UnitBlueprint {" is
// discarded.
func Parse(text string) (Value, error) {
	if len(text) > MaxInputBytes {
		return Value{}, &ParseError{Kind: ErrInputTooLarge, Offset: MaxInputBytes}
	}
	p := &parser{src: text}
	p.skipTypeTag()
	v, err := p.parseValue()
	if err != nil {
		return Value{}, err
	}
	p.skipSpace()
	if !p.eof() {
		return Value{}, p.fail(ErrTrailingContent)
	}
	return v, nil
}

// parser is a cursor over the input. It is used by one goroutine at a time.
type parser struct {
	src   string
	pos   int
	depth int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) fail(kind error) *ParseError {
	e := &ParseError{Kind: kind, Offset: p.pos}
	if kind != ErrUnexpectedEOF && !p.eof() {
		e.Char, _ = utf8.DecodeRuneInString(p.src[p.pos:])
	}
	return e
}

func (p *parser) failAt(kind error, offset int) *ParseError {
	return &ParseError{Kind: kind, Offset: offset}
}

// skipSpace skips whitespace, line comments and block comments.
func (p *parser) skipSpace() {
	for !p.eof() {
		switch c := p.src[p.pos]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			p.pos++
		case strings.HasPrefix(p.src[p.pos:], "--[["):
			end := strings.Index(p.src[p.pos+4:], "]]")
			if end < 0 {
				p.pos = len(p.src)
				return
			}
			p.pos += 4 + end + 2
		case strings.HasPrefix(p.src[p.pos:], "--"):
			nl := strings.IndexByte(p.src[p.pos:], '\n')
			if nl < 0 {
				p.pos = len(p.src)
				return
			}
			p.pos += nl + 1
		default:
			return
		}
	}
}

func (p *parser) skipTypeTag() {
	start := p.pos
	p.skipSpace()
	tagStart := p.pos
	for !p.eof() && isTagByte(p.src[p.pos]) {
		p.pos++
	}
	if p.pos > tagStart {
		p.skipSpace()
		if p.peek() == '{' {
			return
		}
	}
	p.pos = start
}

func (p *parser) parseValue() (Value, error) {
	p.skipSpace()
	if p.eof() {
		return Value{}, p.fail(ErrUnexpectedEOF)
	}
	c := p.src[p.pos]
	switch {
	case c == '{':
		return p.parseTable()
	case c == '"' || c == '\'':
		s, err := p.parseString()
		if err != nil {
			return Value{}, err
		}
		return TextValue(s), nil
	case isNumberStart(c):
		n, err := p.parseNumber()
		if err != nil {
			return Value{}, err
		}
		return NumberValue(n), nil
	case isIdentByte(c):
		start := p.pos
		for !p.eof() && isIdentByte(p.src[p.pos]) {
			p.pos++
		}
		ident := p.src[start:p.pos]
		switch ident {
		case "true":
			return BoolValue(true), nil
		case "false":
			return BoolValue(false), nil
		}
		p.skipSpace()
		if p.peek() == '{' {
			return p.parseTable()
		}
		return TextValue(ident), nil
	default:
		return Value{}, p.fail(ErrUnexpectedChar)
	}
}

func (p *parser) parseTable() (Value, error) {
	if p.depth >= MaxDepth {
		return Value{}, p.fail(ErrNestedTooDeep)
	}
	p.depth++
	defer func() { p.depth-- }()

	p.pos++ // '{'
	t := NewTable()
	keys := positional{next: 1}
	for {
		p.skipSpace()
		if p.eof() {
			return Value{}, p.fail(ErrUnexpectedEOF)
		}
		if p.peek() == '}' {
			p.pos++
			return TableValue(t), nil
		}

		var key Key
		var val Value
		if p.peek() == '[' {
			p.pos++
			kv, err := p.parseValue()
			if err != nil {
				return Value{}, err
			}
			if err := p.expect(']'); err != nil {
				return Value{}, err
			}
			if err := p.expect('='); err != nil {
				return Value{}, err
			}
			if val, err = p.parseValue(); err != nil {
				return Value{}, err
			}
			key = keys.keyFor(kv)
		} else {
			left, err := p.parseValue()
			if err != nil {
				return Value{}, err
			}
			p.skipSpace()
			if p.peek() == '=' {
				p.pos++
				if val, err = p.parseValue(); err != nil {
					return Value{}, err
				}
				key = keys.keyFor(left)
			} else {
				key, val = keys.take(), left
			}
		}
		t.Set(key, val)

		p.skipSpace()
		switch {
		case p.eof():
			return Value{}, p.fail(ErrUnexpectedEOF)
		case p.peek() == ',' || p.peek() == ';':
			p.pos++
		case p.peek() == '}':
		default:
			return Value{}, p.fail(ErrUnexpectedChar)
		}
	}
}

func (p *parser) expect(c byte) error {
	p.skipSpace()
	if p.eof() {
		return p.fail(ErrUnexpectedEOF)
	}
	if p.src[p.pos] != c {
		return p.fail(ErrUnexpectedChar)
	}
	p.pos++
	return nil
}

func (p *parser) parseString() (string, error) {
	start := p.pos
	quote := p.src[p.pos]
	p.pos++
	var sb strings.Builder
	for {
		if p.eof() {
			return "", p.failAt(ErrUnclosedString, start)
		}
		c := p.src[p.pos]
		switch c {
		case quote:
			p.pos++
			return sb.String(), nil
		case '\\':
			p.pos++
			if p.eof() {
				return "", p.failAt(ErrUnclosedString, start)
			}
			switch e := p.src[p.pos]; e {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case '\\', '"', '\'':
				sb.WriteByte(e)
			default:
				return "", p.fail(ErrInvalidEscape)
			}
			p.pos++
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
}

// parseNumber reads a float literal, then an optional "/ <number>" divisor.
// A zero divisor leaves the numerator unchanged.
func (p *parser) parseNumber() (float64, error) {
	start := p.pos
	if c := p.peek(); c == '+' || c == '-' {
		p.pos++
	}
	for !p.eof() {
		c := p.src[p.pos]
		if isDigit(c) || c == '.' {
			p.pos++
			continue
		}
		if c == 'e' || c == 'E' {
			p.pos++
			if s := p.peek(); s == '+' || s == '-' {
				p.pos++
			}
			continue
		}
		break
	}
	n, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return 0, p.failAt(ErrInvalidNumber, start)
	}

	save := p.pos
	p.skipSpace()
	if p.peek() != '/' {
		p.pos = save
		return n, nil
	}
	p.pos++
	p.skipSpace()
	if !isNumberStart(p.peek()) {
		return 0, p.fail(ErrInvalidNumber)
	}
	d, err := p.parseNumber()
	if err != nil {
		return 0, err
	}
	if d != 0 {
		n /= d
	}
	if math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, p.failAt(ErrInvalidNumber, start)
	}
	return n, nil
}

// positional hands out array indices for entries without a usable key.
type positional struct {
	next uint32
}

func (k *positional) take() Key {
	idx := k.next
	k.observe(idx)
	return IndexKey(idx)
}

func (k *positional) observe(n uint32) {
	if n >= k.next && n < math.MaxUint32 {
		k.next = n + 1
	}
}

// keyFor converts a key value: text stays text, whole numbers >= 1 become
// indices, anything else takes the next index.
func (k *positional) keyFor(v Value) Key {
	if s, ok := v.AsText(); ok {
		return TextKey(s)
	}
	if n, ok := v.AsNumber(); ok && n >= 1 && n <= math.MaxUint32 && n == math.Trunc(n) {
		idx := uint32(n)
		k.observe(idx)
		return IndexKey(idx)
	}
	return k.take()
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isNumberStart(c byte) bool {
	return isDigit(c) || c == '.' || c == '-' || c == '+'
}

func isTagByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentByte(c byte) bool { return isTagByte(c) || isDigit(c) }
