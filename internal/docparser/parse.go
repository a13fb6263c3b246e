package docparser

import (
	"fmt"
	"strconv"

	"github.com/fathomlabs/fathom/internal/fathomerr"
)

// MaxDepth is the fixed maximum nesting depth for arrays/objects. Documents
// nested deeper are rejected rather than risk unbounded recursion.
const MaxDepth = 64

const op = "docparser.Parse"

// Parse parses the JSON-family document in input. Trailing non-whitespace
// bytes after the root value are an error. All failures are reported with
// fathomerr.KindInvalidDocument. Array and object vectors grow the same way
// Go's append already does (capacity doubling); in the arena-based source
// this growth happens inside the region, but a garbage-collected target
// only needs that discipline for the byte buffers the values point into,
// not for the value tree itself.
func Parse(input []byte) (Value, error) {
	p := &parser{src: input}
	p.skipWS()
	v, err := p.parseValue(0)
	if err != nil {
		return Value{}, err
	}
	p.skipWS()
	if p.pos != len(p.src) {
		return Value{}, fathomerr.New(op, fathomerr.KindInvalidDocument,
			fmt.Errorf("trailing bytes at offset %d", p.pos))
	}
	return v, nil
}

type parser struct {
	src []byte
	pos int
}

func (p *parser) errf(format string, args ...any) error {
	return fathomerr.New(op, fathomerr.KindInvalidDocument, fmt.Errorf(format, args...))
}

func (p *parser) skipWS() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) peek() (byte, bool) {
	if p.pos >= len(p.src) {
		return 0, false
	}
	return p.src[p.pos], true
}

func (p *parser) parseValue(depth int) (Value, error) {
	if depth > MaxDepth {
		return Value{}, p.errf("max nesting depth %d exceeded", MaxDepth)
	}
	b, ok := p.peek()
	if !ok {
		return Value{}, p.errf("unexpected end of input")
	}
	start := p.pos
	var v Value
	var err error
	switch {
	case b == '{':
		v, err = p.parseObject(depth)
	case b == '[':
		v, err = p.parseArray(depth)
	case b == '"':
		v, err = p.parseString()
	case b == 't' || b == 'f':
		v, err = p.parseBool()
	case b == 'n':
		v, err = p.parseNull()
	case b == '-' || (b >= '0' && b <= '9'):
		v, err = p.parseNumber()
	default:
		return Value{}, p.errf("unexpected byte %q at offset %d", b, p.pos)
	}
	if err != nil {
		return Value{}, err
	}
	v.Raw = p.src[start:p.pos]
	return v, nil
}

func (p *parser) expect(c byte) error {
	b, ok := p.peek()
	if !ok || b != c {
		return p.errf("expected %q at offset %d", c, p.pos)
	}
	p.pos++
	return nil
}

func (p *parser) parseNull() (Value, error) {
	if p.pos+4 > len(p.src) || string(p.src[p.pos:p.pos+4]) != "null" {
		return Value{}, p.errf("invalid literal at offset %d", p.pos)
	}
	p.pos += 4
	return Value{Type: Null}, nil
}

func (p *parser) parseBool() (Value, error) {
	if p.pos+4 <= len(p.src) && string(p.src[p.pos:p.pos+4]) == "true" {
		p.pos += 4
		return Value{Type: Bool, Boolean: true}, nil
	}
	if p.pos+5 <= len(p.src) && string(p.src[p.pos:p.pos+5]) == "false" {
		p.pos += 5
		return Value{Type: Bool, Boolean: false}, nil
	}
	return Value{}, p.errf("invalid literal at offset %d", p.pos)
}

func (p *parser) parseNumber() (Value, error) {
	start := p.pos
	if b, ok := p.peek(); ok && b == '-' {
		p.pos++
	}
	if b, ok := p.peek(); !ok || b < '0' || b > '9' {
		return Value{}, p.errf("invalid number at offset %d", start)
	}
	for {
		b, ok := p.peek()
		if !ok || b < '0' || b > '9' {
			break
		}
		p.pos++
	}
	if b, ok := p.peek(); ok && b == '.' {
		p.pos++
		digits := 0
		for {
			b, ok := p.peek()
			if !ok || b < '0' || b > '9' {
				break
			}
			p.pos++
			digits++
		}
		if digits == 0 {
			return Value{}, p.errf("invalid number at offset %d", start)
		}
	}
	if b, ok := p.peek(); ok && (b == 'e' || b == 'E') {
		p.pos++
		if b, ok := p.peek(); ok && (b == '+' || b == '-') {
			p.pos++
		}
		digits := 0
		for {
			b, ok := p.peek()
			if !ok || b < '0' || b > '9' {
				break
			}
			p.pos++
			digits++
		}
		if digits == 0 {
			return Value{}, p.errf("invalid number at offset %d", start)
		}
	}
	n, err := strconv.ParseFloat(string(p.src[start:p.pos]), 64)
	if err != nil {
		return Value{}, p.errf("invalid number %q: %v", p.src[start:p.pos], err)
	}
	return Value{Type: Number, Num: n}, nil
}

func (p *parser) parseString() (Value, error) {
	if err := p.expect('"'); err != nil {
		return Value{}, err
	}
	start := p.pos
	for {
		b, ok := p.peek()
		if !ok {
			return Value{}, p.errf("unterminated string starting at offset %d", start-1)
		}
		if b == '\\' {
			p.pos += 2
			continue
		}
		if b == '"' {
			break
		}
		if b < 0x20 {
			return Value{}, p.errf("control byte in string at offset %d", p.pos)
		}
		p.pos++
	}
	raw := p.src[start:p.pos]
	if err := p.expect('"'); err != nil {
		return Value{}, err
	}
	return Value{Type: String, Str: raw}, nil
}

func (p *parser) parseArray(depth int) (Value, error) {
	if err := p.expect('['); err != nil {
		return Value{}, err
	}
	p.skipWS()
	var items []Value
	if b, ok := p.peek(); ok && b == ']' {
		p.pos++
		return Value{Type: Array, Items: items}, nil
	}
	for {
		p.skipWS()
		v, err := p.parseValue(depth + 1)
		if err != nil {
			return Value{}, err
		}
		items = append(items, v)
		p.skipWS()
		b, ok := p.peek()
		if !ok {
			return Value{}, p.errf("unterminated array")
		}
		if b == ',' {
			p.pos++
			continue
		}
		if b == ']' {
			p.pos++
			break
		}
		return Value{}, p.errf("expected ',' or ']' at offset %d", p.pos)
	}
	return Value{Type: Array, Items: items}, nil
}

func (p *parser) parseObject(depth int) (Value, error) {
	if err := p.expect('{'); err != nil {
		return Value{}, err
	}
	p.skipWS()
	var keys [][]byte
	var values []Value
	if b, ok := p.peek(); ok && b == '}' {
		p.pos++
		return Value{Type: Object, Keys: keys, Values: values}, nil
	}
	for {
		p.skipWS()
		keyVal, err := p.parseString()
		if err != nil {
			return Value{}, err
		}
		p.skipWS()
		if err := p.expect(':'); err != nil {
			return Value{}, err
		}
		p.skipWS()
		v, err := p.parseValue(depth + 1)
		if err != nil {
			return Value{}, err
		}
		keys = append(keys, keyVal.Str)
		values = append(values, v)
		p.skipWS()
		b, ok := p.peek()
		if !ok {
			return Value{}, p.errf("unterminated object")
		}
		if b == ',' {
			p.pos++
			continue
		}
		if b == '}' {
			p.pos++
			break
		}
		return Value{}, p.errf("expected ',' or '}' at offset %d", p.pos)
	}
	return Value{Type: Object, Keys: keys, Values: values}, nil
}
