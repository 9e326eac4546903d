// Package templater renders the site's page templates.
//
// The grammar is deliberately small:
//
//	{{.Field}}                     value of Field, "" when unknown
//	{{if.Field}} ... {{endif}}     body when Field is not blank
//	{{if!.Field}} ... {{endif}}    body when Field is blank
//	{{if.A == text}} ... {{endif}} body when A equals the literal text
//	{{if.A != .B}} ... {{endif}}   body when A differs from field B
//
// Keywords and field names are case-insensitive. Blocks nest.
package templater

import (
	"fmt"
	"strings"

	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
)

const (
	openDelim  = "{{"
	closeDelim = "}}"
	endKeyword = "endif"
)

type compareOp int

const (
	opNotBlank compareOp = iota
	opEqual
	opNotEqual
)

type node interface{}

type textNode string

type fieldNode string

type ifNode struct {
	negate   bool
	op       compareOp
	left     string
	right    string
	rightVar bool
	body     []node
}

// Template is a parsed template. It is immutable and safe for concurrent use.
type Template struct {
	name  string
	nodes []node
}

// Name returns the name the template was parsed with.
func (t *Template) Name() string {
	return t.name
}

type parser struct {
	name string
	src  string
	pos  int
}

// Parse parses src. name only appears in errors.
func Parse(name, src string) (*Template, error) {
	p := &parser{name: name, src: src}
	nodes, closed, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if closed {
		return nil, p.errorf(p.pos, "unmatched {{%s}}", endKeyword)
	}
	return &Template{name: name, nodes: nodes}, nil
}

// parseBlock reads nodes until the end of input or an {{endif}}. closed reports
// which of the two ended the block.
func (p *parser) parseBlock() (nodes []node, closed bool, err error) {
	for p.pos < len(p.src) {
		start := strings.Index(p.src[p.pos:], openDelim)
		if start < 0 {
			nodes = append(nodes, textNode(p.src[p.pos:]))
			p.pos = len(p.src)
			break
		}
		start += p.pos
		end := strings.Index(p.src[start+len(openDelim):], closeDelim)
		if end < 0 {
			nodes = append(nodes, textNode(p.src[p.pos:]))
			p.pos = len(p.src)
			break
		}
		end += start + len(openDelim)

		if start > p.pos {
			nodes = append(nodes, textNode(p.src[p.pos:start]))
		}
		command := p.src[start+len(openDelim) : end]
		p.pos = end + len(closeDelim)

		if strings.EqualFold(strings.TrimSpace(command), endKeyword) {
			return nodes, true, nil
		}
		n, err := p.parseCommand(command, start)
		if err != nil {
			return nil, false, err
		}
		nodes = append(nodes, n)
	}
	return nodes, false, nil
}

func (p *parser) parseCommand(command string, at int) (node, error) {
	dot := strings.IndexByte(command, '.')
	if dot < 0 {
		return nil, p.errorf(at, "invalid command %q", command)
	}
	function := strings.ToLower(strings.TrimSpace(command[:dot]))
	expr := command[dot+1:]

	switch function {
	case "":
		return fieldNode(normalizeName(expr)), nil
	case "if", "if!":
		n := &ifNode{negate: function == "if!"}
		p.parseCondition(n, expr)
		body, closed, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		if !closed {
			return nil, p.errorf(at, "missing {{%s}} for %q", endKeyword, command)
		}
		n.body = body
		return n, nil
	default:
		return nil, p.errorf(at, "invalid function %q in %q", function, command)
	}
}

func (p *parser) parseCondition(n *ifNode, expr string) {
	op, left, right := opNotBlank, expr, ""
	if i := strings.Index(expr, "=="); i >= 0 {
		op, left, right = opEqual, expr[:i], expr[i+2:]
	} else if i := strings.Index(expr, "!="); i >= 0 {
		op, left, right = opNotEqual, expr[:i], expr[i+2:]
	}
	n.op = op
	n.left = normalizeName(left)
	right = strings.TrimSpace(right)
	if strings.HasPrefix(right, ".") {
		n.rightVar = true
		right = normalizeName(right[1:])
	}
	n.right = strings.ToLower(right)
}

func (p *parser) errorf(at int, format string, args ...any) error {
	line := 1 + strings.Count(p.src[:min(at, len(p.src))], "\n")
	return ferrors.TemplateSyntaxError(fmt.Sprintf(format, args...)).
		WithContext("template", p.name).
		WithContext("line", line).
		Build()
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Execute renders the template against data. Each field is looked up at most once
// per call.
func (t *Template) Execute(data Data) string {
	var b strings.Builder
	vars := make(map[string]string)
	execute(&b, t.nodes, data, vars)
	return b.String()
}

func execute(b *strings.Builder, nodes []node, data Data, vars map[string]string) {
	for _, n := range nodes {
		switch n := n.(type) {
		case textNode:
			b.WriteString(string(n))
		case fieldNode:
			b.WriteString(lookup(data, string(n), vars))
		case *ifNode:
			if n.holds(data, vars) {
				execute(b, n.body, data, vars)
			}
		}
	}
}

func (n *ifNode) holds(data Data, vars map[string]string) bool {
	left := lookup(data, n.left, vars)
	right := n.right
	if n.rightVar {
		right = lookup(data, n.right, vars)
	}
	var ok bool
	switch n.op {
	case opEqual:
		ok = strings.EqualFold(left, right)
	case opNotEqual:
		ok = !strings.EqualFold(left, right)
	default:
		ok = strings.TrimSpace(left) != ""
	}
	return ok != n.negate
}

func lookup(data Data, name string, vars map[string]string) string {
	if name == "" {
		return ""
	}
	if v, ok := vars[name]; ok {
		return v
	}
	v, _ := data.Lookup(name)
	vars[name] = v
	return v
}
