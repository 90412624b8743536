package benchmark

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	apperrors "github.com/lueurxax/ner-recall/internal/core/errors"
	"github.com/lueurxax/ner-recall/internal/core/domain"
)

// Span records in annotation files are written in Python literal notation, e.g.
//
//	{'start': 0, 'end': 13, 'text': 'Inglise kanal', 'labels': ['LOC']}
//
// literalParser reads that notation (dicts, lists, quoted strings, integers, floats,
// True/False/None). JSON objects are a subset and parse as well.
type literalParser struct {
	src string
	pos int
}

func parseLiteral(src string) (any, error) {
	p := &literalParser{src: src}

	v, err := p.value()
	if err != nil {
		return nil, err
	}

	p.skipSpace()

	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected trailing input")
	}

	return v, nil
}

func (p *literalParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: literal at offset %d: %s", apperrors.ErrBadFormat, p.pos, fmt.Sprintf(format, args...))
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) && strings.ContainsRune(" \t\r\n", rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *literalParser) value() (any, error) {
	p.skipSpace()

	if p.pos >= len(p.src) {
		return nil, p.errorf("unexpected end of input")
	}

	switch c := p.src[p.pos]; {
	case c == '{':
		return p.dict()
	case c == '[' || c == '(':
		return p.list()
	case c == '\'' || c == '"':
		return p.str()
	case c == '-' || c == '+' || (c >= '0' && c <= '9'):
		return p.number()
	default:
		return p.keyword()
	}
}

func (p *literalParser) dict() (any, error) {
	p.pos++ // {
	out := make(map[string]any)

	for {
		p.skipSpace()

		if p.consume('}') {
			return out, nil
		}

		k, err := p.value()
		if err != nil {
			return nil, err
		}

		key, ok := k.(string)
		if !ok {
			return nil, p.errorf("dict key %v is not a string", k)
		}

		p.skipSpace()

		if !p.consume(':') {
			return nil, p.errorf("expected ':'")
		}

		v, err := p.value()
		if err != nil {
			return nil, err
		}

		out[key] = v

		p.skipSpace()

		if p.consume(',') {
			continue
		}

		if p.consume('}') {
			return out, nil
		}

		return nil, p.errorf("expected ',' or '}'")
	}
}

func (p *literalParser) list() (any, error) {
	closing := byte(']')
	if p.src[p.pos] == '(' {
		closing = ')'
	}

	p.pos++
	out := []any{}

	for {
		p.skipSpace()

		if p.consume(closing) {
			return sequence(out, closing), nil
		}

		v, err := p.value()
		if err != nil {
			return nil, err
		}

		out = append(out, v)

		p.skipSpace()

		if p.consume(',') {
			continue
		}

		if p.consume(closing) {
			return sequence(out, closing), nil
		}

		return nil, p.errorf("expected ',' or '%c'", closing)
	}
}

// tuple is a parsed parenthesized sequence. It is kept apart from lists so that
// attributes required to be lists reject it.
type tuple []any

func sequence(items []any, closing byte) any {
	if closing == ')' {
		return tuple(items)
	}

	return items
}

func (p *literalParser) consume(c byte) bool {
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++

		return true
	}

	return false
}

func (p *literalParser) str() (any, error) {
	quote := p.src[p.pos]
	p.pos++

	var b strings.Builder

	for p.pos < len(p.src) {
		c := p.src[p.pos]

		switch {
		case c == quote:
			p.pos++

			return b.String(), nil
		case c == '\\':
			if err := p.escape(&b); err != nil {
				return nil, err
			}
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			b.WriteRune(r)
			p.pos += size
		}
	}

	return nil, p.errorf("unterminated string")
}

func (p *literalParser) escape(b *strings.Builder) error {
	p.pos++ // backslash

	if p.pos >= len(p.src) {
		return p.errorf("unterminated escape")
	}

	c := p.src[p.pos]
	p.pos++

	switch c {
	case '\\', '\'', '"':
		b.WriteByte(c)
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'x':
		return p.hexRune(b, 2)
	case 'u':
		return p.hexRune(b, 4)
	case 'U':
		return p.hexRune(b, 8)
	default:
		b.WriteByte('\\')
		b.WriteByte(c)
	}

	return nil
}

func (p *literalParser) hexRune(b *strings.Builder, digits int) error {
	if p.pos+digits > len(p.src) {
		return p.errorf("truncated \\x/\\u escape")
	}

	n, err := strconv.ParseUint(p.src[p.pos:p.pos+digits], 16, 32)
	if err != nil {
		return p.errorf("bad hex escape: %v", err)
	}

	p.pos += digits
	b.WriteRune(rune(n))

	return nil
}

func (p *literalParser) number() (any, error) {
	start := p.pos

	for p.pos < len(p.src) && strings.ContainsRune("+-0123456789.eE_", rune(p.src[p.pos])) {
		p.pos++
	}

	tok := strings.ReplaceAll(p.src[start:p.pos], "_", "")

	if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return n, nil
	}

	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return nil, p.errorf("bad number %q", tok)
	}

	return f, nil
}

func (p *literalParser) keyword() (any, error) {
	for kw, v := range map[string]any{"True": true, "False": false, "None": nil, "true": true, "false": false, "null": nil} {
		if strings.HasPrefix(p.src[p.pos:], kw) {
			p.pos += len(kw)

			return v, nil
		}
	}

	return nil, p.errorf("unexpected character %q", p.src[p.pos])
}

// ParseSpan decodes a span record literal into a Span. Missing attributes and a
// non-list "labels" fail with ErrInvalidSpan.
func ParseSpan(src string) (domain.Span, error) {
	v, err := parseLiteral(src)
	if err != nil {
		return domain.Span{}, err
	}

	m, ok := v.(map[string]any)
	if !ok {
		return domain.Span{}, fmt.Errorf("%w: span is not a record", apperrors.ErrInvalidSpan)
	}

	for _, attr := range []string{"start", "end", "labels", "text"} {
		if _, ok := m[attr]; !ok {
			return domain.Span{}, fmt.Errorf("%w: span is missing %q attribute", apperrors.ErrInvalidSpan, attr)
		}
	}

	var span domain.Span

	if span.Start, err = intAttr(m, "start"); err != nil {
		return domain.Span{}, err
	}

	if span.End, err = intAttr(m, "end"); err != nil {
		return domain.Span{}, err
	}

	if span.Text, ok = m["text"].(string); !ok {
		return domain.Span{}, fmt.Errorf("%w: span \"text\" is not a string", apperrors.ErrInvalidSpan)
	}

	labels, ok := m["labels"].([]any)
	if !ok {
		return domain.Span{}, fmt.Errorf("%w: span \"labels\" is not a list", apperrors.ErrInvalidSpan)
	}

	span.Labels = make([]string, 0, len(labels))

	for _, l := range labels {
		s, ok := l.(string)
		if !ok {
			return domain.Span{}, fmt.Errorf("%w: span label %v is not a string", apperrors.ErrInvalidSpan, l)
		}

		span.Labels = append(span.Labels, s)
	}

	return span, nil
}

func intAttr(m map[string]any, name string) (int, error) {
	n, ok := m[name].(int64)
	if !ok {
		return 0, fmt.Errorf("%w: span %q is not an integer", apperrors.ErrInvalidSpan, name)
	}

	return int(n), nil
}
