package routing

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// segment is one compiled "/"-separated piece of a pattern.
type segment struct {
	raw   string
	kind  segmentKind
	names []string
	re    *regexp.Regexp // mixed segments only
}

type segmentKind uint8

const (
	literalSegment segmentKind = iota
	mixedSegment               // e.g. "file-{id}.txt"
	paramSegment               // exactly "{id}"
)

// compile splits pattern into segments. The second result reports whether
// the pattern contains any placeholder.
func compile(pattern string) ([]segment, bool, error) {
	parts := strings.Split(pattern, "/")
	segs := make([]segment, len(parts))
	seen := make(map[string]struct{})
	dynamic := false

	for i, part := range parts {
		seg, err := compileSegment(part)
		if err != nil {
			return nil, false, err
		}
		for _, name := range seg.names {
			if _, dup := seen[name]; dup {
				return nil, false, fmt.Errorf("placeholder '%s' used twice", name)
			}
			seen[name] = struct{}{}
		}
		if seg.kind != literalSegment {
			dynamic = true
		}
		segs[i] = seg
	}
	return segs, dynamic, nil
}

func compileSegment(part string) (segment, error) {
	if !strings.ContainsAny(part, "{}") {
		return segment{raw: part, kind: literalSegment}, nil
	}

	var (
		expr  strings.Builder
		names []string
		rest  = part
	)
	expr.WriteByte('^')
	for rest != "" {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			if strings.ContainsRune(rest, '}') {
				return segment{}, fmt.Errorf("unbalanced '}' in segment '%s'", part)
			}
			expr.WriteString(regexp.QuoteMeta(rest))
			break
		}
		if strings.ContainsRune(rest[:open], '}') {
			return segment{}, fmt.Errorf("unbalanced '}' in segment '%s'", part)
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return segment{}, fmt.Errorf("unclosed '{' in segment '%s'", part)
		}
		name := rest[open+1 : open+end]
		if !placeholderName.MatchString(name) {
			return segment{}, fmt.Errorf("invalid placeholder name '%s'", name)
		}
		if open > 0 {
			expr.WriteString(regexp.QuoteMeta(rest[:open]))
		}
		expr.WriteString("(.+?)")
		names = append(names, name)
		rest = rest[open+end+1:]
	}
	expr.WriteByte('$')

	if len(names) == 1 && part == "{"+names[0]+"}" {
		return segment{raw: part, kind: paramSegment, names: names}, nil
	}
	re, err := regexp.Compile(expr.String())
	if err != nil {
		return segment{}, err
	}
	return segment{raw: part, kind: mixedSegment, names: names, re: re}, nil
}

// leaf is a pattern terminating at a node.
type leaf struct {
	pattern string
	target  Target
	names   []string
}

// node is one position of the placeholder trie. At every position a literal
// child outranks a mixed child, which outranks a whole-segment placeholder.
type node struct {
	literal map[string]*node
	mixed   []*mixedEdge
	param   *node
	leaf    *leaf
}

// mixedEdge is keyed by its shape, the compiled expression, which carries no
// placeholder names: "{a}.txt" and "{b}.txt" share one edge.
type mixedEdge struct {
	shape string
	re    *regexp.Regexp
	next  *node
}

func newNode() *node {
	return &node{literal: make(map[string]*node)}
}

// insert adds a compiled pattern. A pattern with the same shape as an
// existing one replaces it.
func (n *node) insert(pattern string, segs []segment, target Target) {
	var names []string
	cur := n
	for _, seg := range segs {
		switch seg.kind {
		case literalSegment:
			next, ok := cur.literal[seg.raw]
			if !ok {
				next = newNode()
				cur.literal[seg.raw] = next
			}
			cur = next
		case mixedSegment:
			cur = cur.mixedChild(seg)
		case paramSegment:
			if cur.param == nil {
				cur.param = newNode()
			}
			cur = cur.param
		}
		names = append(names, seg.names...)
	}
	cur.leaf = &leaf{pattern: pattern, target: target, names: names}
}

func (n *node) mixedChild(seg segment) *node {
	shape := seg.re.String()
	for _, e := range n.mixed {
		if e.shape == shape {
			return e.next
		}
	}
	e := &mixedEdge{shape: shape, re: seg.re, next: newNode()}
	n.mixed = append(n.mixed, e)
	return e.next
}

// lookup walks segs depth first, backtracking when a more specific branch
// dead-ends, and returns the leaf with the captured values in pattern order.
func (n *node) lookup(segs []string, captured []string) (*leaf, []string) {
	if len(segs) == 0 {
		if n.leaf != nil {
			return n.leaf, captured
		}
		return nil, nil
	}

	seg, rest := segs[0], segs[1:]

	if next, ok := n.literal[seg]; ok {
		if l, vals := next.lookup(rest, captured); l != nil {
			return l, vals
		}
	}

	for _, e := range n.mixed {
		sub := e.re.FindStringSubmatch(seg)
		if sub == nil {
			continue
		}
		if l, vals := e.next.lookup(rest, append(captured, sub[1:]...)); l != nil {
			return l, vals
		}
	}

	if n.param != nil && seg != "" {
		if l, vals := n.param.lookup(rest, append(captured, seg)); l != nil {
			return l, vals
		}
	}
	return nil, nil
}
