package builder

import (
	"sort"
	"strings"

	"umlizer/internal/scanner"
)

type resolveStatus int

const (
	resolved resolveStatus = iota
	missing
	ambiguous
)

// scope is what a reference can see: the module and imports of the file it
// was written in.
type scope struct {
	module  string
	imports []scanner.Import
}

// resolver answers qualified-name lookups against the declared types.
type resolver struct {
	known  map[string]bool
	sorted []string
}

func newResolver(names []string) *resolver {
	r := &resolver{known: make(map[string]bool, len(names))}
	for _, n := range names {
		if !r.known[n] {
			r.known[n] = true
			r.sorted = append(r.sorted, n)
		}
	}
	sort.Strings(r.sorted)
	return r
}

// lookup matches a candidate name exactly or on a dot boundary in either
// direction, so "models.User" finds "app.models.User" and
// "github.com.acme.app.models.User" finds "app.models.User".
func (r *resolver) lookup(candidate, exclude string) (string, resolveStatus, []string) {
	if candidate == "" {
		return "", missing, nil
	}
	if candidate != exclude && r.known[candidate] {
		return candidate, resolved, nil
	}
	var matches []string
	for _, qn := range r.sorted {
		if qn == exclude {
			continue
		}
		if strings.HasSuffix(qn, "."+candidate) || strings.HasSuffix(candidate, "."+qn) {
			matches = append(matches, qn)
		}
	}
	switch len(matches) {
	case 0:
		return "", missing, nil
	case 1:
		return matches[0], resolved, nil
	}
	return "", ambiguous, matches
}

// resolve walks the lookup order for one reference: import alias for
// dotted names, same module, file imports, then a unique match anywhere.
// exclude keeps a type from resolving a reference to itself.
func (r *resolver) resolve(ref string, sc scope, exclude string) (string, resolveStatus, []string) {
	head, rest, dotted := strings.Cut(ref, ".")
	var firstAmbiguous []string

	try := func(candidate string) (string, bool) {
		qn, status, cands := r.lookup(candidate, exclude)
		switch status {
		case resolved:
			return qn, true
		case ambiguous:
			if firstAmbiguous == nil {
				firstAmbiguous = cands
			}
		}
		return "", false
	}

	if dotted {
		for _, imp := range sc.imports {
			if imp.Local() != head {
				continue
			}
			base := imp.Module
			if imp.Name != "" && imp.Name != "*" {
				base = join(imp.Module, imp.Name)
			}
			if qn, ok := try(join(base, rest)); ok {
				return qn, resolved, nil
			}
		}
	}

	if candidate := join(sc.module, ref); candidate != exclude && r.known[candidate] {
		return candidate, resolved, nil
	}

	for _, imp := range sc.imports {
		switch {
		case imp.Name == "*":
			if qn, ok := try(join(imp.Module, ref)); ok {
				return qn, resolved, nil
			}
		case imp.Name != "" && imp.Local() == head:
			target := join(imp.Module, imp.Name)
			if dotted {
				target = join(target, rest)
			}
			if qn, ok := try(target); ok {
				return qn, resolved, nil
			}
		}
	}

	if firstAmbiguous != nil {
		return "", ambiguous, firstAmbiguous
	}
	return r.lookup(ref, exclude)
}

func join(module, name string) string {
	if module == "" {
		return name
	}
	if name == "" {
		return module
	}
	return module + "." + name
}

// canonical names an unresolved reference by what the file imported it as,
// so every file referring to the same external type shares one placeholder.
func canonical(ref string, sc scope) string {
	head, rest, dotted := strings.Cut(ref, ".")
	for _, imp := range sc.imports {
		if imp.Name == "*" || imp.Local() != head {
			continue
		}
		base := imp.Module
		if imp.Name != "" {
			base = join(imp.Module, imp.Name)
		}
		if dotted {
			return join(base, rest)
		}
		return base
	}
	return ref
}
