package scanner

import (
	"strings"
	"unicode"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"umlizer/internal/graph"
)

// fileContext carries one parsed file through extraction.
type fileContext struct {
	lang   Language
	rel    string
	hash   string
	module string
	src    []byte
	root   *sitter.Node
}

func (fc *fileContext) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Utf8Text(fc.src)
}

func (fc *fileContext) field(n *sitter.Node, name string) *sitter.Node {
	if n == nil {
		return nil
	}
	return n.ChildByFieldName(name)
}

func (fc *fileContext) fieldText(n *sitter.Node, name string) string {
	return fc.text(fc.field(n, name))
}

func (fc *fileContext) declaration(name string, def *sitter.Node) Declaration {
	return Declaration{
		Language: fc.lang,
		File:     fc.rel,
		FileHash: fc.hash,
		Module:   fc.module,
		Name:     name,
		Kind:     graph.KindClass,
		Line:     line(def),
	}
}

func line(n *sitter.Node) int {
	return int(n.StartPosition().Row) + 1
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	count := n.NamedChildCount()
	out := make([]*sitter.Node, 0, count)
	for i := uint(0); i < count; i++ {
		if c := n.NamedChild(i); c != nil {
			out = append(out, c)
		}
	}
	return out
}

func childrenByField(n *sitter.Node, name string) []*sitter.Node {
	if n == nil {
		return nil
	}
	cursor := n.Walk()
	defer cursor.Close()
	found := n.ChildrenByFieldName(name, cursor)
	out := make([]*sitter.Node, len(found))
	for i := range found {
		out[i] = &found[i]
	}
	return out
}

// hasChild reports whether n has a direct child, named or anonymous, of kind.
func hasChild(n *sitter.Node, kind string) bool {
	return childOfKind(n, kind) != nil
}

func childOfKind(n *sitter.Node, kinds ...string) *sitter.Node {
	if n == nil {
		return nil
	}
	count := n.ChildCount()
	for i := uint(0); i < count; i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		for _, k := range kinds {
			if c.Kind() == k {
				return c
			}
		}
	}
	return nil
}

func hasAncestor(n *sitter.Node, kinds ...string) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		for _, k := range kinds {
			if p.Kind() == k {
				return true
			}
		}
	}
	return false
}

// firstErrorLine finds the line of the first ERROR or MISSING node.
func firstErrorLine(n *sitter.Node) int {
	if n == nil {
		return 0
	}
	if n.IsError() || n.IsMissing() {
		return line(n)
	}
	if !n.HasError() {
		return 0
	}
	count := n.ChildCount()
	for i := uint(0); i < count; i++ {
		if l := firstErrorLine(n.Child(i)); l > 0 {
			return l
		}
	}
	return line(n)
}

// cleanType collapses whitespace inside a type expression.
func cleanType(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stripGenerics drops type arguments: "Generic[T]" and "Repo<User>" both
// reduce to their head.
func stripGenerics(s string) string {
	if i := strings.IndexAny(s, "[<("); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func lastSegment(s string) string {
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[i+1:]
	}
	return s
}

func isDunder(name string) bool {
	return len(name) > 4 && strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__")
}

func isExported(name string) bool {
	for _, r := range name {
		return unicode.IsUpper(r)
	}
	return false
}

func trimQuotes(s string) string {
	return strings.Trim(s, "\"'`")
}
