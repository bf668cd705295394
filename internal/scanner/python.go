package scanner

import (
	"path"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"umlizer/internal/graph"
)

var pythonEnumBases = map[string]bool{
	"Enum": true, "IntEnum": true, "StrEnum": true, "Flag": true, "IntFlag": true,
}

func extractPython(fc *fileContext, defs []sitter.Node) []Declaration {
	imports := pythonImports(fc)

	var out []Declaration
	for i := range defs {
		def := &defs[i]
		name, ok := pythonClassName(fc, def)
		if !ok {
			continue
		}
		d := fc.declaration(name, def)
		d.Imports = imports
		pythonBases(fc, def, &d)
		pythonBody(fc, def, &d)
		out = append(out, d)
	}
	return out
}

// pythonClassName qualifies nested classes with their enclosing classes
// and rejects classes local to a function.
func pythonClassName(fc *fileContext, def *sitter.Node) (string, bool) {
	name := fc.fieldText(def, "name")
	for p := def.Parent(); p != nil; p = p.Parent() {
		switch p.Kind() {
		case "class_definition":
			name = fc.fieldText(p, "name") + "." + name
		case "function_definition", "lambda":
			return "", false
		}
	}
	return name, name != ""
}

func pythonBases(fc *fileContext, def *sitter.Node, d *Declaration) {
	for _, arg := range namedChildren(fc.field(def, "superclasses")) {
		switch arg.Kind() {
		case "comment":
			continue
		case "keyword_argument":
			if fc.fieldText(arg, "name") == "metaclass" && strings.Contains(fc.fieldText(arg, "value"), "ABCMeta") {
				d.Abstract = true
			}
			continue
		}

		base := stripGenerics(fc.text(arg))
		switch last := lastSegment(base); {
		case base == "" || last == "object" || last == "Generic":
		case last == "Protocol":
			d.Kind = graph.KindInterface
		case last == "ABC":
			d.Abstract = true
		case pythonEnumBases[last]:
			d.Kind = graph.KindEnum
		default:
			d.Bases = append(d.Bases, base)
		}
	}
}

func pythonDecorators(fc *fileContext, def *sitter.Node) []string {
	parent := def.Parent()
	if parent == nil || parent.Kind() != "decorated_definition" {
		return nil
	}
	var out []string
	for _, c := range namedChildren(parent) {
		if c.Kind() != "decorator" {
			continue
		}
		name := strings.TrimPrefix(strings.TrimSpace(fc.text(c)), "@")
		out = append(out, stripGenerics(name))
	}
	return out
}

func pythonBody(fc *fileContext, def *sitter.Node, d *Declaration) {
	for _, stmt := range namedChildren(fc.field(def, "body")) {
		switch stmt.Kind() {
		case "expression_statement":
			for _, expr := range namedChildren(stmt) {
				if expr.Kind() == "assignment" {
					pythonClassAssignment(fc, expr, d)
				}
			}
		case "function_definition":
			pythonMember(fc, stmt, d)
		case "decorated_definition":
			if fn := fc.field(stmt, "definition"); fn != nil && fn.Kind() == "function_definition" {
				pythonMember(fc, fn, d)
			}
		}
	}
}

func pythonClassAssignment(fc *fileContext, assign *sitter.Node, d *Declaration) {
	left := fc.field(assign, "left")
	if left == nil || left.Kind() != "identifier" {
		return
	}
	name := fc.text(left)
	if isDunder(name) {
		return
	}
	typ, owned := pythonInitializer(fc, cleanType(fc.fieldText(assign, "type")), fc.field(assign, "right"))
	d.addField(Field{
		Attribute: graph.Attribute{Name: name, Type: typ, Visibility: pythonVisibility(name)},
		Owned:     owned,
	})
}

// pythonInitializer inspects the assigned value: a constructor call, or a
// dataclass field(default_factory=...), makes the attribute owned and
// supplies the type when no annotation exists.
func pythonInitializer(fc *fileContext, typ string, right *sitter.Node) (string, bool) {
	if right == nil || right.Kind() != "call" {
		return typ, false
	}
	callee := fc.fieldText(right, "function")
	if lastSegment(callee) == "field" {
		for _, arg := range namedChildren(fc.field(right, "arguments")) {
			if arg.Kind() == "keyword_argument" && fc.fieldText(arg, "name") == "default_factory" {
				factory := fc.fieldText(arg, "value")
				if typ == "" {
					typ = factory
				}
				return typ, isExported(lastSegment(factory))
			}
		}
		return typ, false
	}
	if !isExported(lastSegment(callee)) {
		return typ, false
	}
	if typ == "" {
		typ = callee
	}
	return typ, true
}

func pythonMember(fc *fileContext, fn *sitter.Node, d *Declaration) {
	name := fc.fieldText(fn, "name")
	if name == "__init__" {
		pythonInit(fc, fn, d)
		return
	}
	if isDunder(name) {
		return
	}

	decorators := pythonDecorators(fc, fn)
	m := graph.Method{Name: name, Visibility: pythonVisibility(name)}
	skipFirst := true
	for _, dec := range decorators {
		switch lastSegment(dec) {
		case "staticmethod":
			m.Static = true
			skipFirst = false
		case "classmethod":
			m.Static = true
		case "abstractmethod", "abstractproperty":
			m.Abstract = true
		case "setter", "deleter":
			return
		}
	}
	m.Parameters = pythonParameters(fc, fc.field(fn, "parameters"), skipFirst)
	m.ReturnType = cleanType(fc.fieldText(fn, "return_type"))

	for _, dec := range decorators {
		if dec == "property" || strings.HasSuffix(dec, "cached_property") {
			d.addField(Field{Attribute: graph.Attribute{Name: name, Type: m.ReturnType, Visibility: m.Visibility}})
			return
		}
	}
	d.addMethod(m)
}

func pythonParameters(fc *fileContext, params *sitter.Node, skipFirst bool) []graph.Parameter {
	var out []graph.Parameter
	first := true
	for _, p := range namedChildren(params) {
		var param graph.Parameter
		switch p.Kind() {
		case "identifier", "list_splat_pattern", "dictionary_splat_pattern":
			param.Name = fc.text(p)
		case "typed_parameter":
			if children := namedChildren(p); len(children) > 0 {
				param.Name = fc.text(children[0])
			}
			param.Type = cleanType(fc.fieldText(p, "type"))
		case "default_parameter":
			param.Name = fc.fieldText(p, "name")
		case "typed_default_parameter":
			param.Name = fc.fieldText(p, "name")
			param.Type = cleanType(fc.fieldText(p, "type"))
		default:
			continue
		}
		if first {
			first = false
			if skipFirst {
				continue
			}
		}
		out = append(out, param)
	}
	return out
}

// pythonInit collects instance attributes assigned through self in __init__.
func pythonInit(fc *fileContext, fn *sitter.Node, d *Declaration) {
	paramTypes := make(map[string]string)
	for _, p := range pythonParameters(fc, fc.field(fn, "parameters"), true) {
		if p.Type != "" {
			paramTypes[p.Name] = p.Type
		}
	}

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		for _, c := range namedChildren(n) {
			switch c.Kind() {
			case "function_definition", "class_definition", "lambda":
				continue
			case "assignment":
				pythonSelfAssignment(fc, c, paramTypes, d)
			}
			walk(c)
		}
	}
	walk(fc.field(fn, "body"))
}

func pythonSelfAssignment(fc *fileContext, assign *sitter.Node, paramTypes map[string]string, d *Declaration) {
	left := fc.field(assign, "left")
	if left == nil || left.Kind() != "attribute" || fc.fieldText(left, "object") != "self" {
		return
	}
	name := fc.fieldText(left, "attribute")
	if name == "" || isDunder(name) {
		return
	}
	right := fc.field(assign, "right")
	typ, owned := pythonInitializer(fc, cleanType(fc.fieldText(assign, "type")), right)
	if typ == "" && right != nil && right.Kind() == "identifier" {
		typ = paramTypes[fc.text(right)]
	}
	d.addField(Field{
		Attribute: graph.Attribute{Name: name, Type: typ, Visibility: pythonVisibility(name)},
		Owned:     owned,
	})
}

func pythonVisibility(name string) graph.Visibility {
	switch {
	case strings.HasPrefix(name, "__") && !isDunder(name):
		return graph.Private
	case strings.HasPrefix(name, "_"):
		return graph.Protected
	}
	return graph.Public
}

func pythonImports(fc *fileContext) []Import {
	var out []Import
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		for _, c := range namedChildren(n) {
			switch c.Kind() {
			case "import_statement":
				for _, name := range childrenByField(c, "name") {
					if name.Kind() == "aliased_import" {
						out = append(out, Import{Module: fc.fieldText(name, "name"), Alias: fc.fieldText(name, "alias")})
					} else {
						out = append(out, Import{Module: fc.text(name)})
					}
				}
			case "import_from_statement":
				out = append(out, pythonFromImport(fc, c)...)
			default:
				walk(c)
			}
		}
	}
	walk(fc.root)
	return out
}

func pythonFromImport(fc *fileContext, stmt *sitter.Node) []Import {
	moduleNode := fc.field(stmt, "module_name")
	module := fc.text(moduleNode)
	if moduleNode != nil && moduleNode.Kind() == "relative_import" {
		module = resolvePythonRelative(fc, module)
	}

	var out []Import
	if hasChild(stmt, "wildcard_import") {
		out = append(out, Import{Module: module, Name: "*"})
	}
	for _, name := range childrenByField(stmt, "name") {
		if name.Kind() == "aliased_import" {
			out = append(out, Import{Module: module, Name: fc.fieldText(name, "name"), Alias: fc.fieldText(name, "alias")})
		} else {
			out = append(out, Import{Module: module, Name: fc.text(name)})
		}
	}
	return out
}

// resolvePythonRelative turns "..models" into an absolute dotted module
// using the importing file's package.
func resolvePythonRelative(fc *fileContext, rel string) string {
	dots := len(rel) - len(strings.TrimLeft(rel, "."))
	rest := rel[dots:]

	pkg := fc.module
	if path.Base(strings.TrimSuffix(fc.rel, path.Ext(fc.rel))) != "__init__" {
		pkg = parentModule(pkg)
	}
	for i := 1; i < dots; i++ {
		pkg = parentModule(pkg)
	}
	switch {
	case pkg == "":
		return rest
	case rest == "":
		return pkg
	}
	return pkg + "." + rest
}

func parentModule(module string) string {
	if i := strings.LastIndex(module, "."); i >= 0 {
		return module[:i]
	}
	return ""
}
