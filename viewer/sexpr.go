package viewer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// node is one element of a KiCad s-expression: an atom or a list.
type node struct {
	atom   string
	list   []*node
	isList bool
}

// head returns the first atom of a list, e.g. "footprint".
func (n *node) head() string {
	if !n.isList || len(n.list) == 0 || n.list[0].isList {
		return ""
	}
	return n.list[0].atom
}

// arg returns the i-th atom after the head.
func (n *node) arg(i int) string {
	if !n.isList || i+1 >= len(n.list) || n.list[i+1].isList {
		return ""
	}
	return n.list[i+1].atom
}

func (n *node) floatArg(i int) float64 {
	f, _ := strconv.ParseFloat(n.arg(i), 64)
	return f
}

// child returns the first child list with the given head.
func (n *node) child(name string) *node {
	for _, c := range n.list {
		if c.head() == name {
			return c
		}
	}
	return nil
}

// children returns every child list with the given head.
func (n *node) children(name string) []*node {
	var out []*node
	for _, c := range n.list {
		if c.head() == name {
			out = append(out, c)
		}
	}
	return out
}

func parseSexpr(src string) (*node, error) {
	p := &sexprParser{src: src}
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '(' {
		return nil, fmt.Errorf("expected '(' at offset %d", p.pos)
	}
	return p.parseList()
}

type sexprParser struct {
	src string
	pos int
}

func (p *sexprParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *sexprParser) parseList() (*node, error) {
	p.pos++ // '('
	n := &node{isList: true}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, fmt.Errorf("unterminated list")
		}
		switch p.src[p.pos] {
		case ')':
			p.pos++
			return n, nil
		case '(':
			child, err := p.parseList()
			if err != nil {
				return nil, err
			}
			n.list = append(n.list, child)
		case '"':
			s, err := p.parseString()
			if err != nil {
				return nil, err
			}
			n.list = append(n.list, &node{atom: s})
		default:
			start := p.pos
			for p.pos < len(p.src) {
				c := p.src[p.pos]
				if c == '(' || c == ')' || c == '"' || unicode.IsSpace(rune(c)) {
					break
				}
				p.pos++
			}
			n.list = append(n.list, &node{atom: p.src[start:p.pos]})
		}
	}
}

func (p *sexprParser) parseString() (string, error) {
	p.pos++ // opening quote
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case '\\':
			if p.pos+1 < len(p.src) {
				b.WriteByte(p.src[p.pos+1])
				p.pos += 2
				continue
			}
		case '"':
			p.pos++
			return b.String(), nil
		}
		b.WriteByte(c)
		p.pos++
	}
	return "", fmt.Errorf("unterminated string")
}
