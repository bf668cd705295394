package render

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"umlizer/internal/graph"
)

// --- Mermaid Class Diagram Generator ---

type MermaidGenerator struct {
	Style Style
}

var mermaidIDRe = regexp.MustCompile(`[^A-Za-z0-9_]`)

func mermaidID(qn string) string {
	return mermaidIDRe.ReplaceAllString(qn, "_")
}

// mermaidType rewrites generic brackets into Mermaid's ~T~ notation.
var mermaidType = strings.NewReplacer("<", "~", ">", "~", "[", "~", "]", "~", `"`, "'")

var mermaidArrows = map[graph.RelationKind]string{
	graph.RelationInheritance: "--|>",
	graph.RelationComposition: "*--",
	graph.RelationAssociation: "-->",
	graph.RelationDependency:  "..>",
}

func (g *MermaidGenerator) Generate(m *graph.DiagramModel) (string, error) {
	if err := g.Style.Validate(); err != nil {
		return "", err
	}
	s := g.Style.withDefaults()

	var b bytes.Buffer
	b.WriteString("classDiagram\n")
	b.WriteString(fmt.Sprintf("  direction %s\n", s.RankDir))

	hidden := make(map[string]bool)
	for _, n := range m.Nodes() {
		if n.Kind == graph.KindExternal && !s.ShowExternal {
			hidden[n.QualifiedName] = true
			continue
		}
		b.WriteString(fmt.Sprintf("  class %s[\"%s\"] {\n", mermaidID(n.QualifiedName), strings.ReplaceAll(n.Name, `"`, "'")))
		switch {
		case n.Kind == graph.KindInterface:
			b.WriteString("    <<interface>>\n")
		case n.Kind == graph.KindEnum:
			b.WriteString("    <<enumeration>>\n")
		case n.Kind == graph.KindExternal:
			b.WriteString("    <<external>>\n")
		case n.Abstract:
			b.WriteString("    <<abstract>>\n")
		}
		for _, a := range n.Attributes {
			line := string(a.Visibility) + a.Name
			if a.Type != "" {
				line += " : " + mermaidType.Replace(a.Type)
			}
			if a.Static {
				line += "$"
			}
			b.WriteString("    " + line + "\n")
		}
		for _, mt := range n.Methods {
			params := make([]string, 0, len(mt.Parameters))
			for _, p := range mt.Parameters {
				params = append(params, strings.TrimSpace(p.Name+" "+mermaidType.Replace(p.Type)))
			}
			line := string(mt.Visibility) + mt.Name + "(" + strings.Join(params, ", ") + ")"
			switch {
			case mt.Abstract:
				line += "*"
			case mt.Static:
				line += "$"
			}
			if mt.ReturnType != "" {
				line += " " + mermaidType.Replace(mt.ReturnType)
			}
			b.WriteString("    " + line + "\n")
		}
		b.WriteString("  }\n")
	}

	for _, e := range m.Edges() {
		if hidden[e.Source] || hidden[e.Target] {
			continue
		}
		var src, dst string
		if e.Cardinality != nil {
			if e.Cardinality.Source != "" {
				src = fmt.Sprintf(" \"%s\"", e.Cardinality.Source)
			}
			if e.Cardinality.Target != "" {
				dst = fmt.Sprintf("\"%s\" ", e.Cardinality.Target)
			}
		}
		line := fmt.Sprintf("  %s%s %s %s%s", mermaidID(e.Source), src, mermaidArrows[e.Kind], dst, mermaidID(e.Target))
		if e.Label != "" {
			line += " : " + e.Label
		}
		b.WriteString(line + "\n")
	}
	return b.String(), nil
}
