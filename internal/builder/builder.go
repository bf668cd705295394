package builder

import (
	"errors"
	"fmt"
	"iter"
	"sort"
	"strings"

	"umlizer/internal/graph"
	"umlizer/internal/logger"
	"umlizer/internal/scanner"
	"umlizer/util"
)

// member is a field or method together with the scope it was declared in.
// Go methods can live in a different file than their type.
type member struct {
	scope  scope
	lang   scanner.Language
	field  *scanner.Field
	method *graph.Method
}

type entry struct {
	node    graph.TypeNode
	lang    scanner.Language
	scope   scope
	bases   []string
	members []member
}

type edgeKey struct {
	source, target string
	kind           graph.RelationKind
}

type build struct {
	report  *Report
	entries []*entry
	byQN    map[string]*entry
	res     *resolver

	placeholders map[string]graph.TypeNode
	edges        map[edgeKey]*graph.Edge
	labels       map[edgeKey][]string
	warned       map[string]bool
}

// Build drains a declaration sequence into a DiagramModel. Scan errors in
// the sequence are collected into the Report; any other error aborts the
// build. The result does not depend on the order declarations arrive in.
func Build(decls iter.Seq2[scanner.Declaration, error]) (*graph.DiagramModel, *Report, error) {
	b := &build{
		report:       &Report{},
		byQN:         make(map[string]*entry),
		placeholders: make(map[string]graph.TypeNode),
		edges:        make(map[edgeKey]*graph.Edge),
		labels:       make(map[edgeKey][]string),
		warned:       make(map[string]bool),
	}

	var all []scanner.Declaration
	files := make(map[string]string)
	for d, err := range decls {
		if err != nil {
			var serr *scanner.ScanError
			if errors.As(err, &serr) {
				b.report.ScanErrors = append(b.report.ScanErrors, serr)
				continue
			}
			return nil, b.report, err
		}
		all = append(all, d)
		files[d.File] = d.FileHash
	}
	b.report.Files = len(files)
	b.report.Declarations = len(all)

	sortDeclarations(all)
	b.collect(all)

	names := make([]string, 0, len(b.entries))
	for _, e := range b.entries {
		names = append(names, e.node.QualifiedName)
	}
	b.res = newResolver(names)

	b.inheritance()
	for _, e := range b.entries {
		b.attributes(e)
	}
	for _, e := range b.entries {
		b.dependencies(e)
	}

	model, err := graph.NewModel(b.nodes(), b.edgeList(), sourceFingerprint(files))
	if err != nil {
		return nil, b.report, fmt.Errorf("build model: %w", err)
	}
	logger.ForComponent("builder").Debug("model built",
		"nodes", len(model.Nodes()),
		"edges", len(model.Edges()),
		"warnings", len(b.report.Warnings),
		"scan_errors", len(b.report.ScanErrors),
	)
	return model, b.report, nil
}

func sortDeclarations(all []scanner.Declaration) {
	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if qa, qb := a.QualifiedName(), b.QualifiedName(); qa != qb {
			return qa < qb
		}
		if (a.Receiver == "") != (b.Receiver == "") {
			return a.Receiver == ""
		}
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})
}

func sourceFingerprint(files map[string]string) string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	parts := make([]string, 0, 2*len(paths))
	for _, p := range paths {
		parts = append(parts, p, files[p])
	}
	return util.Fingerprint(parts...)
}

// collect turns declarations into entries, merging Go method sets into
// their receiver type and keeping the first of any duplicate identity.
func (b *build) collect(all []scanner.Declaration) {
	for _, d := range all {
		qn := d.QualifiedName()
		sc := scope{module: d.Module, imports: d.Imports}
		e, exists := b.byQN[qn]

		if d.Receiver != "" {
			if !exists {
				kind := graph.KindClass
				if len(d.Fields) > 0 {
					kind = graph.KindEnum
				}
				e = &entry{
					node: graph.TypeNode{
						QualifiedName: qn,
						Name:          d.Receiver,
						Module:        d.Module,
						Kind:          kind,
						FilePath:      d.File,
						Line:          d.Line,
					},
					lang:  d.Language,
					scope: sc,
				}
				b.add(e)
			}
			for i := range d.Fields {
				e.addField(d.Fields[i], sc, d.Language)
			}
			for i := range d.Methods {
				e.addMethod(d.Methods[i], sc, d.Language)
			}
			continue
		}

		if exists {
			b.warn(ResolutionWarning{Kind: WarnDuplicate, Source: qn, File: d.File, Line: d.Line})
			continue
		}
		e = &entry{
			node: graph.TypeNode{
				QualifiedName: qn,
				Name:          d.Name,
				Module:        d.Module,
				Kind:          d.Kind,
				Abstract:      d.Abstract,
				FilePath:      d.File,
				Line:          d.Line,
			},
			lang:  d.Language,
			scope: sc,
			bases: d.Bases,
		}
		for i := range d.Fields {
			e.addField(d.Fields[i], sc, d.Language)
		}
		for i := range d.Methods {
			e.addMethod(d.Methods[i], sc, d.Language)
		}
		b.add(e)
	}
	b.settleGoEnums()
}

// settleGoEnums resolves Go enum candidates once every file of the package
// has contributed its constants. A named type without constants is not an
// enum: it stays as a class when it has methods and is dropped otherwise.
func (b *build) settleGoEnums() {
	kept := b.entries[:0]
	for _, e := range b.entries {
		if e.lang != scanner.Go || e.node.Kind != graph.KindEnum || len(e.node.Attributes) > 0 {
			kept = append(kept, e)
			continue
		}
		if len(e.node.Methods) == 0 {
			delete(b.byQN, e.node.QualifiedName)
			continue
		}
		e.node.Kind = graph.KindClass
		kept = append(kept, e)
	}
	b.entries = kept
}

func (b *build) add(e *entry) {
	b.entries = append(b.entries, e)
	b.byQN[e.node.QualifiedName] = e
}

func (e *entry) addField(f scanner.Field, sc scope, lang scanner.Language) {
	for _, existing := range e.node.Attributes {
		if existing.Name == f.Name {
			return
		}
	}
	e.node.Attributes = append(e.node.Attributes, f.Attribute)
	e.members = append(e.members, member{scope: sc, lang: lang, field: &f})
}

func (e *entry) addMethod(m graph.Method, sc scope, lang scanner.Language) {
	for _, existing := range e.node.Methods {
		if existing.Name == m.Name {
			return
		}
	}
	e.node.Methods = append(e.node.Methods, m)
	e.members = append(e.members, member{scope: sc, lang: lang, method: &m})
}

func (b *build) inheritance() {
	idx := graph.NewInheritanceIndex()
	for _, e := range b.entries {
		src := e.node.QualifiedName
		for _, base := range e.bases {
			target, ok := b.reference(e, e.scope, e.lang, base, src)
			if !ok {
				continue
			}
			if _, external := b.placeholders[target]; external {
				b.addEdge(graph.Edge{Source: src, Target: target, Kind: graph.RelationDependency}, "")
				continue
			}
			if !idx.Add(src, target) {
				b.warn(ResolutionWarning{Kind: WarnCycle, Source: src, Reference: target, File: e.node.FilePath, Line: e.node.Line})
				continue
			}
			b.addEdge(graph.Edge{Source: src, Target: target, Kind: graph.RelationInheritance}, "")
		}
	}
}

// attributes turns fields into composition (owned) or association edges.
func (b *build) attributes(e *entry) {
	src := e.node.QualifiedName
	for _, m := range e.members {
		if m.field == nil {
			continue
		}
		f := m.field
		card := cardinality(f.Type, m.lang)
		for _, ref := range typeRefs(f.Type, m.lang) {
			target, ok := b.reference(e, m.scope, m.lang, ref, "")
			if !ok {
				continue
			}
			if _, external := b.placeholders[target]; external {
				b.addEdge(graph.Edge{Source: src, Target: target, Kind: graph.RelationDependency}, "")
				continue
			}
			edge := graph.Edge{Source: src, Target: target, Kind: graph.RelationAssociation, Cardinality: &graph.Cardinality{Target: card}}
			if f.Owned {
				edge.Kind = graph.RelationComposition
				edge.Cardinality.Source = cardOne
			}
			b.addEdge(edge, f.Name)
		}
	}
}

// dependencies adds method parameter and return types that no structural
// relationship already covers.
func (b *build) dependencies(e *entry) {
	src := e.node.QualifiedName
	for _, m := range e.members {
		if m.method == nil {
			continue
		}
		annotations := []string{m.method.ReturnType}
		for _, p := range m.method.Parameters {
			annotations = append(annotations, p.Type)
		}
		for _, a := range annotations {
			for _, ref := range typeRefs(a, m.lang) {
				target, ok := b.reference(e, m.scope, m.lang, ref, "")
				if !ok || target == src || b.structural(src, target) {
					continue
				}
				b.addEdge(graph.Edge{Source: src, Target: target, Kind: graph.RelationDependency}, "")
			}
		}
	}
}

func (b *build) structural(src, target string) bool {
	for _, kind := range []graph.RelationKind{graph.RelationInheritance, graph.RelationComposition, graph.RelationAssociation} {
		if _, ok := b.edges[edgeKey{src, target, kind}]; ok {
			return true
		}
	}
	return false
}

// reference resolves ref for entry e. Unresolved references that are not
// builtins become external placeholders; ok is false when the reference
// should be dropped.
func (b *build) reference(e *entry, sc scope, lang scanner.Language, ref, exclude string) (string, bool) {
	target, status, candidates := b.res.resolve(ref, sc, exclude)
	if status == resolved {
		return target, true
	}
	if status == missing && ignorable(ref, lang) {
		return "", false
	}

	w := ResolutionWarning{
		Kind:       WarnUnresolved,
		Source:     e.node.QualifiedName,
		Reference:  ref,
		Candidates: candidates,
		File:       e.node.FilePath,
		Line:       e.node.Line,
	}
	if status == ambiguous {
		w.Kind = WarnAmbiguous
	}
	b.warn(w)
	return b.placeholder(canonical(ref, sc)), true
}

func (b *build) placeholder(name string) string {
	id := name
	if _, real := b.byQN[id]; real {
		id = "external." + name
	}
	if _, ok := b.placeholders[id]; !ok {
		module := ""
		if i := strings.LastIndex(name, "."); i >= 0 {
			module = name[:i]
		}
		b.placeholders[id] = graph.TypeNode{
			QualifiedName: id,
			Name:          name,
			Module:        module,
			Kind:          graph.KindExternal,
		}
	}
	return id
}

func (b *build) warn(w ResolutionWarning) {
	key := string(w.Kind) + "\x00" + w.Source + "\x00" + w.Reference
	if b.warned[key] {
		return
	}
	b.warned[key] = true
	b.report.Warnings = append(b.report.Warnings, w)
}

// addEdge records an edge once per (source, target, kind). Attribute edges
// gather the attribute names into the label and keep the widest target
// multiplicity.
func (b *build) addEdge(e graph.Edge, attribute string) {
	key := edgeKey{e.Source, e.Target, e.Kind}
	existing, ok := b.edges[key]
	if !ok {
		b.edges[key] = &e
		existing = &e
	} else if e.Cardinality != nil && existing.Cardinality != nil &&
		cardRank(e.Cardinality.Target) > cardRank(existing.Cardinality.Target) {
		existing.Cardinality.Target = e.Cardinality.Target
	}
	if attribute == "" {
		return
	}
	for _, l := range b.labels[key] {
		if l == attribute {
			return
		}
	}
	b.labels[key] = append(b.labels[key], attribute)
	existing.Label = strings.Join(b.labels[key], ", ")
}

func (b *build) nodes() []graph.TypeNode {
	out := make([]graph.TypeNode, 0, len(b.entries)+len(b.placeholders))
	for _, e := range b.entries {
		out = append(out, e.node)
	}
	for _, p := range b.placeholders {
		out = append(out, p)
	}
	return out
}

func (b *build) edgeList() []graph.Edge {
	out := make([]graph.Edge, 0, len(b.edges))
	for _, e := range b.edges {
		out = append(out, *e)
	}
	return out
}
