package render

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"umlizer/internal/graph"
)

// Generator turns a model into a textual diagram description.
type Generator interface {
	Generate(m *graph.DiagramModel) (string, error)
}

// --- DOT Generator ---

type DotGenerator struct {
	Style Style
}

func (g *DotGenerator) Generate(m *graph.DiagramModel) (string, error) {
	if err := g.Style.Validate(); err != nil {
		return "", err
	}
	s := g.Style.withDefaults()
	c := paletteColors(s.Palette)

	shape := string(s.Shape)
	if s.Shape == ShapeTable {
		shape = "plain"
	}

	var b bytes.Buffer
	b.WriteString("digraph \"classes\" {\n")
	b.WriteString(fmt.Sprintf("  graph [rankdir=%s, bgcolor=%s, fontname=%s];\n", s.RankDir, quote(c.background), quote(s.Font)))
	b.WriteString(fmt.Sprintf("  node [shape=%s, style=filled, fillcolor=%s, color=%s, fontcolor=%s, fontname=%s, fontsize=10];\n",
		shape, quote(c.fill), quote(c.line), quote(c.text), quote(s.Font)))
	b.WriteString(fmt.Sprintf("  edge [color=%s, fontcolor=%s, fontname=%s, fontsize=9];\n\n", quote(c.edge), quote(c.text), quote(s.Font)))

	hidden := make(map[string]bool)
	for _, n := range m.Nodes() {
		if n.Kind == graph.KindExternal {
			if !s.ShowExternal {
				hidden[n.QualifiedName] = true
				continue
			}
			b.WriteString(fmt.Sprintf("  %s [label=%s, shape=box, style=\"dashed,filled\", fillcolor=%s];\n",
				quote(n.QualifiedName), quote(n.Name), quote(c.external)))
			continue
		}
		if s.Shape == ShapeTable {
			b.WriteString(fmt.Sprintf("  %s [label=%s];\n", quote(n.QualifiedName), tableLabel(n, c)))
		} else {
			b.WriteString(fmt.Sprintf("  %s [label=%s];\n", quote(n.QualifiedName), quote(recordLabel(n))))
		}
	}
	b.WriteString("\n")

	for _, e := range m.Edges() {
		if hidden[e.Source] || hidden[e.Target] {
			continue
		}
		a := s.Arrows[e.Kind]
		attrs := []string{
			"dir=both",
			"arrowhead=" + orNone(a.Head),
			"arrowtail=" + orNone(a.Tail),
			"style=" + string(a.Line),
		}
		if e.Label != "" {
			attrs = append(attrs, "label="+quote(e.Label))
		}
		if e.Cardinality != nil {
			if e.Cardinality.Source != "" {
				attrs = append(attrs, "taillabel="+quote(e.Cardinality.Source))
			}
			if e.Cardinality.Target != "" {
				attrs = append(attrs, "headlabel="+quote(e.Cardinality.Target))
			}
		}
		b.WriteString(fmt.Sprintf("  %s -> %s [%s];\n", quote(e.Source), quote(e.Target), strings.Join(attrs, ", ")))
	}
	b.WriteString("}\n")
	return b.String(), nil
}

func orNone(arrow string) string {
	if arrow == "" {
		return "none"
	}
	return arrow
}

// quote produces a DOT double-quoted string. Backslash sequences already
// present (\l, \n) are kept as Graphviz escapes.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

var recordEscaper = strings.NewReplacer(
	`\`, `\\`,
	`{`, `\{`,
	`}`, `\}`,
	`|`, `\|`,
	`<`, `\<`,
	`>`, `\>`,
	"\n", `\n`,
)

func stereotype(n graph.TypeNode) string {
	switch {
	case n.Kind == graph.KindInterface:
		return "«interface»"
	case n.Kind == graph.KindEnum:
		return "«enumeration»"
	case n.Abstract:
		return "«abstract»"
	}
	return ""
}

// recordLabel renders {header|attributes|methods} with left-justified
// member lines.
func recordLabel(n graph.TypeNode) string {
	header := recordEscaper.Replace(n.Name)
	if st := stereotype(n); st != "" {
		header = st + `\n` + header
	}

	var attrs strings.Builder
	for _, a := range n.Attributes {
		attrs.WriteString(recordEscaper.Replace(formatAttribute(a)))
		attrs.WriteString(`\l`)
	}
	var methods strings.Builder
	for _, mt := range n.Methods {
		methods.WriteString(recordEscaper.Replace(formatMethod(mt)))
		methods.WriteString(`\l`)
	}
	return "{" + header + "|" + attrs.String() + "|" + methods.String() + "}"
}

func tableLabel(n graph.TypeNode, c colors) string {
	var b strings.Builder
	b.WriteString(`<<table border="0" cellborder="1" cellspacing="0" cellpadding="4"`)
	b.WriteString(fmt.Sprintf(` bgcolor="%s" color="%s">`, c.fill, c.line))
	b.WriteString("<tr><td>")
	if st := stereotype(n); st != "" {
		b.WriteString("<i>" + html.EscapeString(st) + "</i><br/>")
	}
	b.WriteString("<b>" + html.EscapeString(n.Name) + "</b></td></tr>")

	section := func(lines []string) {
		b.WriteString(`<tr><td align="left" balign="left">`)
		for i, l := range lines {
			if i > 0 {
				b.WriteString("<br/>")
			}
			b.WriteString(html.EscapeString(l))
		}
		b.WriteString("</td></tr>")
	}
	var attrs, methods []string
	for _, a := range n.Attributes {
		attrs = append(attrs, formatAttribute(a))
	}
	for _, mt := range n.Methods {
		methods = append(methods, formatMethod(mt))
	}
	section(attrs)
	section(methods)
	b.WriteString("</table>>")
	return b.String()
}

func formatAttribute(a graph.Attribute) string {
	s := string(a.Visibility) + " " + a.Name
	if a.Type != "" {
		s += ": " + a.Type
	}
	if a.Static {
		s += " {static}"
	}
	return s
}

func formatMethod(m graph.Method) string {
	params := make([]string, 0, len(m.Parameters))
	for _, p := range m.Parameters {
		switch {
		case p.Name == "":
			params = append(params, p.Type)
		case p.Type == "":
			params = append(params, p.Name)
		default:
			params = append(params, p.Name+": "+p.Type)
		}
	}
	s := string(m.Visibility) + " " + m.Name + "(" + strings.Join(params, ", ") + ")"
	if m.ReturnType != "" {
		s += ": " + m.ReturnType
	}
	if m.Abstract {
		s += " {abstract}"
	}
	if m.Static {
		s += " {static}"
	}
	return s
}
