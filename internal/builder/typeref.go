package builder

import (
	"regexp"
	"strings"

	"umlizer/internal/scanner"
)

var (
	identRe   = regexp.MustCompile(`[A-Za-z_$][A-Za-z0-9_$]*(?:\.[A-Za-z_$][A-Za-z0-9_$]*)*`)
	stringRe  = regexp.MustCompile("\"[^\"]*\"|'[^']*'|`[^`]*`")
	literalRe = regexp.MustCompile(`\bLiteral\s*\[`)
	goIdentRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*`)
)

// typeRefs pulls the candidate type names out of an annotation in order of
// first appearance. Literal values and the names of parameters and members
// inside function or object types are not type names and are skipped.
func typeRefs(annotation string, lang scanner.Language) []string {
	if annotation == "" {
		return nil
	}
	switch lang {
	case scanner.Python:
		annotation = pythonForwardRefs(annotation)
	case scanner.Go:
		annotation = maskGoNames(stringRe.ReplaceAllString(annotation, " "))
	default:
		annotation = maskESNames(stringRe.ReplaceAllString(annotation, " "))
	}

	seen := make(map[string]bool)
	var out []string
	for _, ref := range identRe.FindAllString(annotation, -1) {
		if seen[ref] {
			continue
		}
		seen[ref] = true
		out = append(out, ref)
	}
	return out
}

// pythonForwardRefs blanks the values of Literal[...] and unquotes the
// strings left over, which are forward references to real types.
func pythonForwardRefs(s string) string {
	b := []byte(s)
	for _, loc := range literalRe.FindAllStringIndex(s, -1) {
		blank(b, loc[1], closing(s, loc[1]-1))
	}
	return strings.NewReplacer(`"`, " ", `'`, " ").Replace(string(b))
}

// maskESNames blanks parameter and property names in TypeScript function
// and object types: identifiers followed by ":" or "?:", and method names
// followed by "(". A ":" after "?" belongs to a conditional type.
func maskESNames(s string) string {
	b := []byte(s)
	for _, loc := range identRe.FindAllStringIndex(s, -1) {
		next := skipSpace(s, loc[1])
		if next >= len(s) {
			continue
		}
		name := false
		switch s[next] {
		case ':':
			name = prevNonSpace(s, loc[0]) != '?'
		case '?':
			after := skipSpace(s, next+1)
			name = after < len(s) && s[after] == ':'
		case '(':
			name = true
		}
		if name {
			blank(b, loc[0], loc[1])
		}
	}
	return string(b)
}

var goTypeKeywords = set("func", "map", "chan", "struct", "interface")

// maskGoNames blanks the names in Go parameter lists, result lists and
// inline struct or interface types.
func maskGoNames(s string) string {
	b := []byte(s)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			maskGoList(s, b, i+1, closing(s, i), ",", false)
		case '{':
			maskGoList(s, b, i+1, closing(s, i), ";\n", true)
		}
	}
	return string(b)
}

// maskGoList handles one list between from and to. A parameter list either
// names every entry or none, so once one entry is "name Type" the bare
// identifiers of grouped entries such as "a, b int" are names too. In a
// brace list a bare identifier is an embedded type and stays.
func maskGoList(s string, b []byte, from, to int, seps string, braces bool) {
	type span struct{ start, end int }
	var named, bare []span
	depth := 0
	start := from
	segment := func(end int) {
		k := skipSpace(s, start)
		if k >= end {
			return
		}
		m := goIdentRe.FindStringIndex(s[k:end])
		if m == nil || goTypeKeywords[s[k:k+m[1]]] {
			return
		}
		id := span{k, k + m[1]}
		rest := skipSpace(s, id.end)
		switch {
		case rest >= end:
			bare = append(bare, id)
		case braces && s[rest] == '(':
			named = append(named, id)
		case s[id.end] == ' ' || s[id.end] == '\t':
			named = append(named, id)
		}
	}
	for i := from; i < to; i++ {
		switch c := s[i]; {
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case depth == 0 && strings.IndexByte(seps, c) >= 0:
			segment(i)
			start = i + 1
		}
	}
	segment(to)

	if len(named) == 0 {
		return
	}
	for _, sp := range named {
		blank(b, sp.start, sp.end)
	}
	if !braces {
		for _, sp := range bare {
			blank(b, sp.start, sp.end)
		}
	}
}

// closing returns the index of the bracket matching s[open], or len(s)
// when it is unbalanced. Quoted text is skipped.
func closing(s string, open int) int {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(s)
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n') {
		i++
	}
	return i
}

func prevNonSpace(s string, i int) byte {
	for i--; i >= 0; i-- {
		if c := s[i]; c != ' ' && c != '\t' && c != '\n' {
			return c
		}
	}
	return 0
}

func blank(b []byte, from, to int) {
	for i := from; i < to && i < len(b); i++ {
		b[i] = ' '
	}
}

var builtins = map[scanner.Language]map[string]bool{
	scanner.Python: set(
		"int", "float", "str", "bool", "bytes", "bytearray", "complex", "None", "object", "type",
		"list", "dict", "set", "frozenset", "tuple", "range", "memoryview",
		"typing", "Any", "Optional", "Union", "List", "Dict", "Set", "FrozenSet", "Tuple", "Type",
		"Sequence", "MutableSequence", "Iterable", "Iterator", "Mapping", "MutableMapping",
		"Collection", "Callable", "ClassVar", "Final", "Literal", "Self", "Generic", "TypeVar",
		"Awaitable", "Coroutine", "Generator", "AsyncIterator", "AsyncGenerator", "NoReturn",
		"Annotated", "Protocol", "DefaultDict", "OrderedDict", "Deque", "Counter",
	),
	scanner.TypeScript: set(
		"string", "number", "boolean", "any", "unknown", "void", "never", "null", "undefined",
		"object", "symbol", "bigint", "true", "false", "this", "keyof", "typeof", "readonly",
		"infer", "extends", "is", "in", "Array", "ReadonlyArray", "Promise", "Map", "Set",
		"WeakMap", "WeakSet", "ReadonlyMap", "ReadonlySet", "Record", "Partial", "Required",
		"Readonly", "Pick", "Omit", "Exclude", "Extract", "NonNullable", "ReturnType",
		"Parameters", "InstanceType", "Date", "Error", "Function", "Object", "String", "Number",
		"Boolean", "RegExp", "Iterable", "Iterator", "AsyncIterable",
	),
	scanner.Go: set(
		"bool", "string", "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16",
		"uint32", "uint64", "uintptr", "byte", "rune", "float32", "float64", "complex64",
		"complex128", "error", "any", "comparable", "map", "chan", "func", "struct", "interface",
	),
}

func init() {
	builtins[scanner.JavaScript] = builtins[scanner.TypeScript]
}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// ignorable reports whether an unresolved reference is a language builtin
// or a type parameter rather than a missing type.
func ignorable(ref string, lang scanner.Language) bool {
	if len(ref) == 1 && ref[0] >= 'A' && ref[0] <= 'Z' {
		return true
	}
	b := builtins[lang]
	if b[ref] {
		return true
	}
	if lang == scanner.Python {
		for _, prefix := range []string{"typing.", "collections.abc.", "collections.", "typing_extensions."} {
			if strings.HasPrefix(ref, prefix) && b[ref[strings.LastIndex(ref, ".")+1:]] {
				return true
			}
		}
	}
	return false
}

var pythonCollections = set(
	"List", "list", "Set", "set", "FrozenSet", "frozenset", "Sequence", "MutableSequence",
	"Iterable", "Iterator", "Collection", "Tuple", "tuple", "Dict", "dict", "Mapping",
	"MutableMapping", "DefaultDict", "OrderedDict", "Deque", "deque", "Counter",
)

var esCollections = set(
	"Array", "ReadonlyArray", "Set", "ReadonlySet", "Map", "ReadonlyMap", "WeakMap", "WeakSet",
	"Record", "Iterable",
)

// Multiplicity markers on the target side of an attribute relationship.
const (
	cardOne  = "1"
	cardOpt  = "0..1"
	cardMany = "0..*"
)

// cardinality derives the target multiplicity from an attribute annotation.
func cardinality(annotation string, lang scanner.Language) string {
	t := strings.TrimSpace(annotation)
	if t == "" {
		return cardOne
	}
	switch lang {
	case scanner.Go:
		switch {
		case strings.HasPrefix(t, "[") || strings.HasPrefix(t, "map[") || strings.HasPrefix(t, "..."):
			return cardMany
		case strings.HasPrefix(t, "*"):
			return cardOpt
		}
	case scanner.TypeScript, scanner.JavaScript:
		for _, ref := range typeRefs(t, lang) {
			if esCollections[ref] {
				return cardMany
			}
		}
		if strings.Contains(t, "[]") {
			return cardMany
		}
		if strings.Contains(t, "null") || strings.Contains(t, "undefined") {
			return cardOpt
		}
	case scanner.Python:
		for _, ref := range typeRefs(t, lang) {
			if pythonCollections[ref[strings.LastIndex(ref, ".")+1:]] {
				return cardMany
			}
		}
		if strings.HasPrefix(t, "Optional") || strings.HasPrefix(t, "typing.Optional") || strings.Contains(t, "None") {
			return cardOpt
		}
	}
	return cardOne
}

// cardRank orders multiplicities so the widest one wins when several
// attributes point at the same target.
func cardRank(c string) int {
	switch c {
	case cardMany:
		return 2
	case cardOpt:
		return 1
	}
	return 0
}
