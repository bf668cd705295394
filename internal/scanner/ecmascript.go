package scanner

import (
	"path"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"umlizer/internal/graph"
)

// extractECMAScript handles both TypeScript and JavaScript trees; the
// JavaScript grammar is a subset of the node kinds handled here.
func extractECMAScript(fc *fileContext, defs []sitter.Node) []Declaration {
	imports := esImports(fc)

	var out []Declaration
	for i := range defs {
		def := &defs[i]
		if parent := def.Parent(); parent == nil || !isTopLevelES(parent.Kind()) {
			continue
		}
		d := fc.declaration(fc.fieldText(def, "name"), def)
		d.Imports = imports

		switch def.Kind() {
		case "abstract_class_declaration":
			d.Abstract = true
			fallthrough
		case "class_declaration":
			esHeritage(fc, def, &d)
			esClassBody(fc, fc.field(def, "body"), &d)
		case "interface_declaration":
			d.Kind = graph.KindInterface
			if ext := childOfKind(def, "extends_type_clause", "extends_clause"); ext != nil {
				for _, t := range namedChildren(ext) {
					d.Bases = append(d.Bases, stripGenerics(fc.text(t)))
				}
			}
			esInterfaceBody(fc, fc.field(def, "body"), &d)
		case "enum_declaration":
			d.Kind = graph.KindEnum
			esEnumBody(fc, fc.field(def, "body"), &d)
		}
		out = append(out, d)
	}
	return out
}

func isTopLevelES(kind string) bool {
	switch kind {
	case "program", "export_statement", "ambient_declaration":
		return true
	}
	return false
}

func esHeritage(fc *fileContext, def *sitter.Node, d *Declaration) {
	heritage := childOfKind(def, "class_heritage")
	for _, clause := range namedChildren(heritage) {
		switch clause.Kind() {
		case "extends_clause", "implements_clause":
			for _, t := range namedChildren(clause) {
				if t.Kind() == "type_arguments" {
					continue
				}
				d.Bases = append(d.Bases, stripGenerics(fc.text(t)))
			}
		default:
			d.Bases = append(d.Bases, stripGenerics(fc.text(clause)))
		}
	}
}

func esClassBody(fc *fileContext, body *sitter.Node, d *Declaration) {
	for _, member := range namedChildren(body) {
		switch member.Kind() {
		case "public_field_definition", "field_definition":
			name := fc.fieldText(member, "name")
			if name == "" {
				name = fc.fieldText(member, "property")
			}
			typ, owned := esInitializer(fc, esTypeAnnotation(fc, fc.field(member, "type")), fc.field(member, "value"))
			d.addField(Field{
				Attribute: graph.Attribute{
					Name:       name,
					Type:       typ,
					Visibility: esVisibility(fc, member, name),
					Static:     hasChild(member, "static"),
				},
				Owned: owned,
			})
		case "method_definition":
			name := fc.fieldText(member, "name")
			if name == "constructor" {
				esConstructor(fc, member, d)
				continue
			}
			if hasChild(member, "set") {
				continue
			}
			m := esMethod(fc, member, name)
			if hasChild(member, "get") {
				d.addField(Field{Attribute: graph.Attribute{Name: name, Type: m.ReturnType, Visibility: m.Visibility, Static: m.Static}})
				continue
			}
			d.addMethod(m)
		case "method_signature":
			d.addMethod(esMethod(fc, member, fc.fieldText(member, "name")))
		case "abstract_method_signature":
			m := esMethod(fc, member, fc.fieldText(member, "name"))
			m.Abstract = true
			d.addMethod(m)
		}
	}
}

func esInterfaceBody(fc *fileContext, body *sitter.Node, d *Declaration) {
	for _, member := range namedChildren(body) {
		switch member.Kind() {
		case "property_signature":
			name := fc.fieldText(member, "name")
			d.addField(Field{Attribute: graph.Attribute{
				Name:       name,
				Type:       esTypeAnnotation(fc, fc.field(member, "type")),
				Visibility: graph.Public,
			}})
		case "method_signature":
			d.addMethod(esMethod(fc, member, fc.fieldText(member, "name")))
		}
	}
}

func esEnumBody(fc *fileContext, body *sitter.Node, d *Declaration) {
	for _, member := range namedChildren(body) {
		var name string
		switch member.Kind() {
		case "enum_assignment":
			name = fc.fieldText(member, "name")
		case "property_identifier", "string":
			name = trimQuotes(fc.text(member))
		default:
			continue
		}
		d.addField(Field{Attribute: graph.Attribute{Name: name, Visibility: graph.Public, Static: true}})
	}
}

func esMethod(fc *fileContext, member *sitter.Node, name string) graph.Method {
	return graph.Method{
		Name:       name,
		Parameters: esParameters(fc, fc.field(member, "parameters")),
		ReturnType: esTypeAnnotation(fc, fc.field(member, "return_type")),
		Visibility: esVisibility(fc, member, name),
		Static:     hasChild(member, "static"),
		Abstract:   hasChild(member, "abstract"),
	}
}

func esParameters(fc *fileContext, params *sitter.Node) []graph.Parameter {
	var out []graph.Parameter
	for _, p := range namedChildren(params) {
		switch p.Kind() {
		case "required_parameter", "optional_parameter":
			name := fc.fieldText(p, "pattern")
			if name == "this" {
				continue
			}
			if p.Kind() == "optional_parameter" {
				name += "?"
			}
			out = append(out, graph.Parameter{Name: name, Type: esTypeAnnotation(fc, fc.field(p, "type"))})
		case "assignment_pattern":
			out = append(out, graph.Parameter{Name: fc.fieldText(p, "left")})
		case "identifier", "rest_pattern", "object_pattern", "array_pattern":
			out = append(out, graph.Parameter{Name: cleanType(fc.text(p))})
		}
	}
	return out
}

// esConstructor picks up TypeScript parameter properties and this.x
// assignments made in the constructor body.
func esConstructor(fc *fileContext, ctor *sitter.Node, d *Declaration) {
	paramTypes := make(map[string]string)
	for _, p := range namedChildren(fc.field(ctor, "parameters")) {
		if p.Kind() != "required_parameter" && p.Kind() != "optional_parameter" {
			continue
		}
		name := fc.fieldText(p, "pattern")
		typ := esTypeAnnotation(fc, fc.field(p, "type"))
		paramTypes[name] = typ
		if mod := childOfKind(p, "accessibility_modifier"); mod != nil || hasChild(p, "readonly") {
			d.addField(Field{Attribute: graph.Attribute{Name: name, Type: typ, Visibility: esVisibility(fc, p, name)}})
		}
	}

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		for _, c := range namedChildren(n) {
			switch c.Kind() {
			case "function_declaration", "function_expression", "arrow_function", "class_declaration", "class":
				continue
			case "assignment_expression":
				left := fc.field(c, "left")
				if left != nil && left.Kind() == "member_expression" && fc.fieldText(left, "object") == "this" {
					name := fc.fieldText(left, "property")
					right := fc.field(c, "right")
					typ, owned := esInitializer(fc, "", right)
					if typ == "" && right != nil && right.Kind() == "identifier" {
						typ = paramTypes[fc.text(right)]
					}
					d.addField(Field{
						Attribute: graph.Attribute{Name: name, Type: typ, Visibility: esVisibility(fc, nil, name)},
						Owned:     owned,
					})
				}
			}
			walk(c)
		}
	}
	walk(fc.field(ctor, "body"))
}

func esInitializer(fc *fileContext, typ string, value *sitter.Node) (string, bool) {
	if value == nil || value.Kind() != "new_expression" {
		return typ, false
	}
	if typ == "" {
		typ = stripGenerics(fc.fieldText(value, "constructor"))
	}
	return typ, true
}

func esTypeAnnotation(fc *fileContext, n *sitter.Node) string {
	s := strings.TrimSpace(fc.text(n))
	s = strings.TrimPrefix(s, ":")
	return cleanType(s)
}

func esVisibility(fc *fileContext, member *sitter.Node, name string) graph.Visibility {
	if strings.HasPrefix(name, "#") {
		return graph.Private
	}
	if mod := childOfKind(member, "accessibility_modifier"); mod != nil {
		switch strings.TrimSpace(fc.text(mod)) {
		case "private":
			return graph.Private
		case "protected":
			return graph.Protected
		}
	}
	return graph.Public
}

func esImports(fc *fileContext) []Import {
	var out []Import
	for _, stmt := range namedChildren(fc.root) {
		if stmt.Kind() != "import_statement" {
			continue
		}
		module := resolveESModule(fc.rel, trimQuotes(fc.fieldText(stmt, "source")))
		clause := childOfKind(stmt, "import_clause")
		for _, c := range namedChildren(clause) {
			switch c.Kind() {
			case "identifier":
				out = append(out, Import{Module: module, Name: fc.text(c)})
			case "named_imports":
				for _, spec := range namedChildren(c) {
					if spec.Kind() != "import_specifier" {
						continue
					}
					out = append(out, Import{
						Module: module,
						Name:   trimQuotes(fc.fieldText(spec, "name")),
						Alias:  fc.fieldText(spec, "alias"),
					})
				}
			case "namespace_import":
				if id := childOfKind(c, "identifier"); id != nil {
					out = append(out, Import{Module: module, Alias: fc.text(id)})
				}
			}
		}
	}
	return out
}

// resolveESModule maps an import specifier onto the dotted module space:
// relative specifiers resolve against the importing file, package
// specifiers keep their name.
func resolveESModule(rel, spec string) string {
	if !strings.HasPrefix(spec, ".") {
		return strings.ReplaceAll(spec, "/", ".")
	}
	joined := path.Join(path.Dir(rel), spec)
	switch path.Ext(joined) {
	case ".js", ".ts", ".jsx", ".tsx", ".mjs", ".cjs", ".mts", ".cts":
		joined = strings.TrimSuffix(joined, path.Ext(joined))
	}
	if path.Base(joined) == "index" && path.Dir(joined) != "." {
		joined = path.Dir(joined)
	}
	if joined == "." {
		return ""
	}
	return strings.ReplaceAll(joined, "/", ".")
}
