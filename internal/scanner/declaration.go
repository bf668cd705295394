package scanner

import (
	"strings"

	"umlizer/internal/graph"
)

// Language identifies a source language the scanner understands.
type Language string

const (
	Python     Language = "python"
	TypeScript Language = "typescript"
	JavaScript Language = "javascript"
	Go         Language = "go"
)

// ParseLanguage maps a user supplied name to a Language.
func ParseLanguage(name string) (Language, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "python", "py":
		return Python, true
	case "typescript", "ts":
		return TypeScript, true
	case "javascript", "js":
		return JavaScript, true
	case "go", "golang":
		return Go, true
	}
	return "", false
}

// Declaration is the raw, unresolved description of one type as read from
// a single file. Go methods declared apart from their type arrive as a
// Declaration with Receiver set and only Methods filled in.
type Declaration struct {
	Language Language
	File     string // slash separated, relative to the scan root
	FileHash string
	Module   string
	Name     string
	Kind     graph.Kind
	Abstract bool
	Bases    []string
	Fields   []Field
	Methods  []graph.Method
	Imports  []Import
	Line     int
	Receiver string
}

// QualifiedName is the module-qualified identity of the declared type.
func (d Declaration) QualifiedName() string {
	name := d.Name
	if d.Receiver != "" {
		name = d.Receiver
	}
	if d.Module == "" {
		return name
	}
	return d.Module + "." + name
}

// Field is an attribute plus whether the declaring type constructs the
// value itself.
type Field struct {
	graph.Attribute
	Owned bool
}

// Import is a name made visible to a file.
type Import struct {
	Module string
	Name   string // imported member, "*" for wildcards, empty for module imports
	Alias  string
}

// Local returns the identifier the import binds in the importing file.
func (i Import) Local() string {
	if i.Alias != "" {
		return i.Alias
	}
	if i.Name != "" && i.Name != "*" {
		return i.Name
	}
	return i.Module
}

func (d *Declaration) addField(f Field) {
	for i := range d.Fields {
		if d.Fields[i].Name != f.Name {
			continue
		}
		if d.Fields[i].Type == "" {
			d.Fields[i].Type = f.Type
		}
		d.Fields[i].Owned = d.Fields[i].Owned || f.Owned
		return
	}
	d.Fields = append(d.Fields, f)
}

func (d *Declaration) addMethod(m graph.Method) {
	for _, existing := range d.Methods {
		if existing.Name == m.Name {
			return
		}
	}
	d.Methods = append(d.Methods, m)
}
