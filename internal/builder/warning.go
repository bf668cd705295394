package builder

import (
	"fmt"
	"strings"

	"umlizer/internal/scanner"
)

type WarningKind string

const (
	WarnUnresolved WarningKind = "unresolved"
	WarnAmbiguous  WarningKind = "ambiguous"
	WarnCycle      WarningKind = "cycle"
	WarnDuplicate  WarningKind = "duplicate"
)

// ResolutionWarning describes a reference or declaration the builder could
// not place in the model exactly as written. Warnings never fail a build.
type ResolutionWarning struct {
	Kind       WarningKind `json:"kind"`
	Source     string      `json:"source"`
	Reference  string      `json:"reference,omitempty"`
	Candidates []string    `json:"candidates,omitempty"`
	File       string      `json:"file,omitempty"`
	Line       int         `json:"line,omitempty"`
}

func (w ResolutionWarning) String() string {
	var b strings.Builder
	switch w.Kind {
	case WarnUnresolved:
		fmt.Fprintf(&b, "unresolved reference %q in %s", w.Reference, w.Source)
	case WarnAmbiguous:
		fmt.Fprintf(&b, "ambiguous reference %q in %s (candidates: %s)", w.Reference, w.Source, strings.Join(w.Candidates, ", "))
	case WarnCycle:
		fmt.Fprintf(&b, "inheritance %s -> %s dropped: it would close a cycle", w.Source, w.Reference)
	case WarnDuplicate:
		fmt.Fprintf(&b, "duplicate declaration of %s ignored", w.Source)
	default:
		fmt.Fprintf(&b, "%s: %s %s", w.Kind, w.Source, w.Reference)
	}
	if w.File != "" {
		fmt.Fprintf(&b, " (%s:%d)", w.File, w.Line)
	}
	return b.String()
}

// Report collects what a build observed besides the model itself.
type Report struct {
	Files        int                  `json:"files"`
	Declarations int                  `json:"declarations"`
	ScanErrors   []*scanner.ScanError `json:"-"`
	Warnings     []ResolutionWarning  `json:"warnings,omitempty"`
}

// Unresolved counts the warnings that produced placeholder nodes.
func (r *Report) Unresolved() int {
	n := 0
	for _, w := range r.Warnings {
		if w.Kind == WarnUnresolved || w.Kind == WarnAmbiguous {
			n++
		}
	}
	return n
}
