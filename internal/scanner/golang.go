package scanner

import (
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"umlizer/internal/graph"
)

func extractGo(fc *fileContext, defs []sitter.Node) []Declaration {
	if fc.module == "" {
		if pkg := childOfKind(fc.root, "package_clause"); pkg != nil {
			if id := childOfKind(pkg, "package_identifier"); id != nil {
				fc.module = fc.text(id)
			}
		}
	}
	imports := goImports(fc)
	consts := goTypedConsts(fc)
	declared := make(map[string]bool)

	var out []Declaration
	for i := range defs {
		def := &defs[i]
		if hasAncestor(def, "function_declaration", "method_declaration", "func_literal") {
			continue
		}
		switch def.Kind() {
		case "type_spec":
			d, ok := goTypeSpec(fc, def, consts)
			if !ok {
				continue
			}
			declared[d.Name] = true
			d.Imports = imports
			out = append(out, d)
		case "method_declaration":
			recv := goReceiver(fc, def)
			if recv == "" {
				continue
			}
			d := fc.declaration(recv, def)
			d.Receiver = recv
			d.Imports = imports
			d.addMethod(goMethod(fc, def))
			out = append(out, d)
		}
	}

	// Constants of a type declared in another file of the package travel
	// like methods and are merged into the type by the builder.
	var pending []string
	for name := range consts {
		if !declared[name] && !goPredeclared[name] {
			pending = append(pending, name)
		}
	}
	sort.Strings(pending)
	for _, name := range pending {
		group := consts[name]
		d := fc.declaration(name, group.node)
		d.Kind = graph.KindEnum
		d.Receiver = name
		d.Imports = imports
		group.addTo(&d)
		out = append(out, d)
	}
	return out
}

func goTypeSpec(fc *fileContext, def *sitter.Node, consts map[string]*goConsts) (Declaration, bool) {
	name := fc.fieldText(def, "name")
	d := fc.declaration(name, def)
	typ := fc.field(def, "type")
	if typ == nil {
		return d, false
	}

	switch typ.Kind() {
	case "struct_type":
		goStruct(fc, typ, &d)
	case "interface_type":
		d.Kind = graph.KindInterface
		goInterface(fc, typ, &d)
	default:
		// A named basic or function type is an enum candidate. Without
		// constants anywhere in its package the builder drops it again.
		d.Kind = graph.KindEnum
		if group, ok := consts[name]; ok {
			group.addTo(&d)
		}
	}
	return d, true
}

func goStruct(fc *fileContext, st *sitter.Node, d *Declaration) {
	list := childOfKind(st, "field_declaration_list")
	for _, fd := range namedChildren(list) {
		if fd.Kind() != "field_declaration" {
			continue
		}
		typ := cleanType(fc.fieldText(fd, "type"))
		names := childrenByField(fd, "name")
		if len(names) == 0 {
			pointer := hasChild(fd, "*")
			if pointer {
				typ = "*" + typ
			}
			name := lastSegment(stripGenerics(strings.TrimPrefix(typ, "*")))
			d.addField(Field{
				Attribute: graph.Attribute{Name: name, Type: typ, Visibility: goVisibility(name)},
				Owned:     !pointer,
			})
			continue
		}
		for _, n := range names {
			name := fc.text(n)
			d.addField(Field{
				Attribute: graph.Attribute{Name: name, Type: typ, Visibility: goVisibility(name)},
				Owned:     goOwns(typ),
			})
		}
	}
}

// goOwns reports whether a field of the given type holds its value
// directly rather than referring to one.
func goOwns(typ string) bool {
	if strings.Contains(typ, "*") {
		return false
	}
	for _, prefix := range []string{"func", "chan", "<-chan", "interface"} {
		if strings.HasPrefix(typ, prefix) {
			return false
		}
	}
	return true
}

func goInterface(fc *fileContext, it *sitter.Node, d *Declaration) {
	for _, elem := range namedChildren(it) {
		switch elem.Kind() {
		case "method_elem", "method_spec":
			name := fc.fieldText(elem, "name")
			d.addMethod(graph.Method{
				Name:       name,
				Parameters: goParameters(fc, fc.field(elem, "parameters")),
				ReturnType: cleanType(fc.fieldText(elem, "result")),
				Visibility: goVisibility(name),
				Abstract:   true,
			})
		case "type_elem", "constraint_elem":
			text := fc.text(elem)
			if strings.ContainsAny(text, "~|") {
				continue
			}
			for _, t := range namedChildren(elem) {
				d.Bases = append(d.Bases, stripGenerics(fc.text(t)))
			}
		}
	}
}

func goMethod(fc *fileContext, fn *sitter.Node) graph.Method {
	name := fc.fieldText(fn, "name")
	return graph.Method{
		Name:       name,
		Parameters: goParameters(fc, fc.field(fn, "parameters")),
		ReturnType: cleanType(fc.fieldText(fn, "result")),
		Visibility: goVisibility(name),
	}
}

func goParameters(fc *fileContext, params *sitter.Node) []graph.Parameter {
	var out []graph.Parameter
	for _, p := range namedChildren(params) {
		typ := cleanType(fc.fieldText(p, "type"))
		switch p.Kind() {
		case "parameter_declaration":
		case "variadic_parameter_declaration":
			typ = "..." + typ
		default:
			continue
		}
		names := childrenByField(p, "name")
		if len(names) == 0 {
			out = append(out, graph.Parameter{Type: typ})
			continue
		}
		for _, n := range names {
			out = append(out, graph.Parameter{Name: fc.text(n), Type: typ})
		}
	}
	return out
}

func goReceiver(fc *fileContext, fn *sitter.Node) string {
	for _, p := range namedChildren(fc.field(fn, "receiver")) {
		if p.Kind() != "parameter_declaration" {
			continue
		}
		return stripGenerics(strings.TrimLeft(fc.fieldText(p, "type"), "* "))
	}
	return ""
}

func goVisibility(name string) graph.Visibility {
	if isExported(name) {
		return graph.Public
	}
	return graph.Package
}

func goImports(fc *fileContext) []Import {
	var out []Import
	var specs []*sitter.Node
	for _, decl := range namedChildren(fc.root) {
		if decl.Kind() != "import_declaration" {
			continue
		}
		for _, c := range namedChildren(decl) {
			switch c.Kind() {
			case "import_spec":
				specs = append(specs, c)
			case "import_spec_list":
				for _, s := range namedChildren(c) {
					if s.Kind() == "import_spec" {
						specs = append(specs, s)
					}
				}
			}
		}
	}
	for _, spec := range specs {
		importPath := trimQuotes(fc.fieldText(spec, "path"))
		alias := fc.fieldText(spec, "name")
		switch alias {
		case "_":
			continue
		case ".":
			out = append(out, Import{Module: strings.ReplaceAll(importPath, "/", "."), Name: "*"})
			continue
		case "":
			alias = importPath[strings.LastIndex(importPath, "/")+1:]
		}
		out = append(out, Import{Module: strings.ReplaceAll(importPath, "/", "."), Alias: alias})
	}
	return out
}

var goPredeclared = map[string]bool{
	"bool": true, "string": true, "int": true, "int8": true, "int16": true, "int32": true,
	"int64": true, "uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true,
	"uintptr": true, "byte": true, "rune": true, "float32": true, "float64": true,
	"complex64": true, "complex128": true,
}

// goConsts are the constants of one named type declared in a file.
type goConsts struct {
	node  *sitter.Node
	names []string
}

func (g *goConsts) addTo(d *Declaration) {
	for _, v := range g.names {
		d.addField(Field{Attribute: graph.Attribute{Name: v, Visibility: goVisibility(v), Static: true}})
	}
}

// goTypedConsts maps each named type to the constants declared with it in
// this file. Constants without a type or value continue the previous
// spec's type, following iota blocks.
func goTypedConsts(fc *fileContext) map[string]*goConsts {
	out := make(map[string]*goConsts)
	for _, decl := range namedChildren(fc.root) {
		if decl.Kind() != "const_declaration" {
			continue
		}
		last := ""
		for _, spec := range namedChildren(decl) {
			if spec.Kind() != "const_spec" {
				continue
			}
			switch {
			case fc.field(spec, "type") != nil:
				last = stripGenerics(fc.fieldText(spec, "type"))
			case fc.field(spec, "value") != nil:
				last = ""
			}
			if last == "" || strings.Contains(last, ".") {
				continue
			}
			group, ok := out[last]
			if !ok {
				group = &goConsts{node: spec}
				out[last] = group
			}
			for _, n := range childrenByField(spec, "name") {
				if name := fc.text(n); name != "_" {
					group.names = append(group.names, name)
				}
			}
		}
	}
	return out
}
