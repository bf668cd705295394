package graph

// Kind classifies a TypeNode.
type Kind string

const (
	KindClass     Kind = "class"
	KindInterface Kind = "interface"
	KindEnum      Kind = "enum"
	KindExternal  Kind = "external" // placeholder for an unresolved reference
)

// RelationKind classifies an Edge.
type RelationKind string

const (
	RelationInheritance RelationKind = "inheritance"
	RelationComposition RelationKind = "composition"
	RelationAssociation RelationKind = "association"
	RelationDependency  RelationKind = "dependency"
)

// RelationKinds lists every relationship kind in rendering order.
var RelationKinds = []RelationKind{
	RelationInheritance,
	RelationComposition,
	RelationAssociation,
	RelationDependency,
}

// Strength orders relation kinds; structural relations outrank dependencies.
func (k RelationKind) Strength() int {
	switch k {
	case RelationInheritance:
		return 4
	case RelationComposition:
		return 3
	case RelationAssociation:
		return 2
	case RelationDependency:
		return 1
	}
	return 0
}

// Visibility is the UML visibility marker of a member.
type Visibility string

const (
	Public    Visibility = "+"
	Protected Visibility = "#"
	Private   Visibility = "-"
	Package   Visibility = "~"
)

// Attribute is a field of a type.
type Attribute struct {
	Name       string     `json:"name"`
	Type       string     `json:"type,omitempty"`
	Visibility Visibility `json:"visibility"`
	Static     bool       `json:"static,omitempty"`
}

// Parameter is a single method parameter.
type Parameter struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Method is an operation of a type.
type Method struct {
	Name       string      `json:"name"`
	Parameters []Parameter `json:"parameters,omitempty"`
	ReturnType string      `json:"return_type,omitempty"`
	Visibility Visibility  `json:"visibility"`
	Static     bool        `json:"static,omitempty"`
	Abstract   bool        `json:"abstract,omitempty"`
}

// TypeNode represents a class, interface or enum in the model.
type TypeNode struct {
	QualifiedName string      `json:"qualified_name"`
	Name          string      `json:"name"`
	Module        string      `json:"module,omitempty"`
	Kind          Kind        `json:"kind"`
	Abstract      bool        `json:"abstract,omitempty"`
	Attributes    []Attribute `json:"attributes,omitempty"`
	Methods       []Method    `json:"methods,omitempty"`
	FilePath      string      `json:"file_path,omitempty"`
	Line          int         `json:"line,omitempty"`
}

// Cardinality annotates both ends of a relationship. Empty strings mean
// the end is unspecified.
type Cardinality struct {
	Source string `json:"source,omitempty"`
	Target string `json:"target,omitempty"`
}

// Edge represents a relationship between two nodes.
type Edge struct {
	Source      string       `json:"source"`
	Target      string       `json:"target"`
	Kind        RelationKind `json:"kind"`
	Cardinality *Cardinality `json:"cardinality,omitempty"`
	Label       string       `json:"label,omitempty"`
}

func (n TypeNode) clone() TypeNode {
	out := n
	out.Attributes = append([]Attribute(nil), n.Attributes...)
	out.Methods = make([]Method, len(n.Methods))
	for i, m := range n.Methods {
		m.Parameters = append([]Parameter(nil), m.Parameters...)
		out.Methods[i] = m
	}
	if len(n.Methods) == 0 {
		out.Methods = nil
	}
	return out
}

func (e Edge) clone() Edge {
	if e.Cardinality != nil {
		c := *e.Cardinality
		e.Cardinality = &c
	}
	return e
}
