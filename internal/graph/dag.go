package graph

import "sort"

// InheritanceIndex tracks inheritance edges and answers reachability
// queries so cycles can be rejected before they are added.
type InheritanceIndex struct {
	parents map[string][]string
}

func NewInheritanceIndex() *InheritanceIndex {
	return &InheritanceIndex{parents: make(map[string][]string)}
}

// Reaches reports whether to is reachable from from by following
// child -> parent edges. A node reaches itself.
func (x *InheritanceIndex) Reaches(from, to string) bool {
	seen := map[string]bool{}
	stack := []string{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == to {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		stack = append(stack, x.parents[cur]...)
	}
	return false
}

// Add records child -> parent unless it would close a cycle. It returns
// false when the edge was rejected.
func (x *InheritanceIndex) Add(child, parent string) bool {
	if x.Reaches(parent, child) {
		return false
	}
	x.parents[child] = append(x.parents[child], parent)
	return true
}

// FindInheritanceCycle returns one cycle among the inheritance edges, or
// nil when they form a DAG.
func FindInheritanceCycle(edges []Edge) []string {
	parents := make(map[string][]string)
	for _, e := range edges {
		if e.Kind == RelationInheritance {
			parents[e.Source] = append(parents[e.Source], e.Target)
		}
	}
	keys := make([]string, 0, len(parents))
	for k := range parents {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int)
	var path []string
	var cycle []string

	var visit func(n string) bool
	visit = func(n string) bool {
		color[n] = grey
		path = append(path, n)
		for _, p := range parents[n] {
			switch color[p] {
			case grey:
				for i, q := range path {
					if q == p {
						cycle = append(append([]string{}, path[i:]...), p)
						break
					}
				}
				return true
			case white:
				if visit(p) {
					return true
				}
			}
		}
		path = path[:len(path)-1]
		color[n] = black
		return false
	}

	for _, k := range keys {
		if color[k] == white && visit(k) {
			return cycle
		}
	}
	return nil
}
