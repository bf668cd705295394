package graph

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"umlizer/util"
)

// DiagramModel is the immutable graph produced for one invocation.
// Accessors return copies; the model itself never changes after NewModel.
type DiagramModel struct {
	nodes             []TypeNode
	edges             []Edge
	index             map[string]int
	sourceFingerprint string
	fingerprint       string
}

// NewModel validates and freezes a set of nodes and edges. Node identities
// must be unique, every edge must connect known nodes and inheritance
// edges must not form a cycle.
func NewModel(nodes []TypeNode, edges []Edge, sourceFingerprint string) (*DiagramModel, error) {
	m := &DiagramModel{
		nodes:             make([]TypeNode, 0, len(nodes)),
		edges:             make([]Edge, 0, len(edges)),
		index:             make(map[string]int, len(nodes)),
		sourceFingerprint: sourceFingerprint,
	}

	for _, n := range nodes {
		m.nodes = append(m.nodes, n.clone())
	}
	sort.SliceStable(m.nodes, func(i, j int) bool {
		return m.nodes[i].QualifiedName < m.nodes[j].QualifiedName
	})
	for i, n := range m.nodes {
		if n.QualifiedName == "" {
			return nil, fmt.Errorf("node %q has no qualified name", n.Name)
		}
		if _, dup := m.index[n.QualifiedName]; dup {
			return nil, fmt.Errorf("duplicate node identity %q", n.QualifiedName)
		}
		m.index[n.QualifiedName] = i
	}

	for _, e := range edges {
		if _, ok := m.index[e.Source]; !ok {
			return nil, fmt.Errorf("edge %s -> %s: unknown source", e.Source, e.Target)
		}
		if _, ok := m.index[e.Target]; !ok {
			return nil, fmt.Errorf("edge %s -> %s: unknown target", e.Source, e.Target)
		}
		m.edges = append(m.edges, e.clone())
	}
	sort.SliceStable(m.edges, func(i, j int) bool {
		return edgeLess(m.edges[i], m.edges[j])
	})

	if cycle := FindInheritanceCycle(m.edges); cycle != nil {
		return nil, fmt.Errorf("inheritance cycle: %s", strings.Join(cycle, " -> "))
	}

	m.fingerprint = m.computeFingerprint()
	return m, nil
}

func edgeLess(a, b Edge) bool {
	if a.Source != b.Source {
		return a.Source < b.Source
	}
	if a.Target != b.Target {
		return a.Target < b.Target
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.Label < b.Label
}

// Nodes returns the nodes ordered by qualified name.
func (m *DiagramModel) Nodes() []TypeNode {
	out := make([]TypeNode, len(m.nodes))
	for i, n := range m.nodes {
		out[i] = n.clone()
	}
	return out
}

// Edges returns the edges in canonical order.
func (m *DiagramModel) Edges() []Edge {
	out := make([]Edge, len(m.edges))
	for i, e := range m.edges {
		out[i] = e.clone()
	}
	return out
}

// Node looks up a node by qualified name.
func (m *DiagramModel) Node(qualifiedName string) (TypeNode, bool) {
	i, ok := m.index[qualifiedName]
	if !ok {
		return TypeNode{}, false
	}
	return m.nodes[i].clone(), true
}

// EdgesOfKind returns the edges of one relationship kind.
func (m *DiagramModel) EdgesOfKind(kind RelationKind) []Edge {
	var out []Edge
	for _, e := range m.edges {
		if e.Kind == kind {
			out = append(out, e.clone())
		}
	}
	return out
}

// SourceFingerprint is the hash of the scanned inputs the model was built from.
func (m *DiagramModel) SourceFingerprint() string { return m.sourceFingerprint }

// Fingerprint is a deterministic hash of the model structure. Source
// locations are excluded so moving a declaration does not change it.
func (m *DiagramModel) Fingerprint() string { return m.fingerprint }

func (m *DiagramModel) computeFingerprint() string {
	var parts []string
	for _, n := range m.nodes {
		parts = append(parts, "node", n.QualifiedName, n.Name, n.Module, string(n.Kind), strconv.FormatBool(n.Abstract))
		for _, a := range n.Attributes {
			parts = append(parts, "attr", a.Name, a.Type, string(a.Visibility), strconv.FormatBool(a.Static))
		}
		for _, mt := range n.Methods {
			parts = append(parts, "method", mt.Name, mt.ReturnType, string(mt.Visibility),
				strconv.FormatBool(mt.Static), strconv.FormatBool(mt.Abstract))
			for _, p := range mt.Parameters {
				parts = append(parts, "param", p.Name, p.Type)
			}
		}
	}
	for _, e := range m.edges {
		parts = append(parts, "edge", e.Source, e.Target, string(e.Kind), e.Label)
		if e.Cardinality != nil {
			parts = append(parts, "card", e.Cardinality.Source, e.Cardinality.Target)
		}
	}
	return util.Fingerprint(parts...)
}

type modelJSON struct {
	Fingerprint       string     `json:"fingerprint"`
	SourceFingerprint string     `json:"source_fingerprint"`
	Nodes             []TypeNode `json:"nodes"`
	Edges             []Edge     `json:"edges"`
}

// MarshalJSON renders the model with its fingerprints.
func (m *DiagramModel) MarshalJSON() ([]byte, error) {
	return json.Marshal(modelJSON{
		Fingerprint:       m.fingerprint,
		SourceFingerprint: m.sourceFingerprint,
		Nodes:             m.Nodes(),
		Edges:             m.Edges(),
	})
}
