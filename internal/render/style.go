package render

import (
	"fmt"
	"regexp"
	"sort"

	"umlizer/internal/graph"
	"umlizer/util"
)

type Shape string

const (
	ShapeRecord  Shape = "record"
	ShapeMrecord Shape = "Mrecord"
	ShapeTable   Shape = "table" // HTML-like label
)

type LineStyle string

const (
	LineSolid  LineStyle = "solid"
	LineDashed LineStyle = "dashed"
	LineDotted LineStyle = "dotted"
)

type Palette string

const (
	PaletteClassic Palette = "classic"
	PaletteMono    Palette = "mono"
	PaletteDark    Palette = "dark"
)

// Arrow describes how one relationship kind is drawn. Head sits at the
// target end, Tail at the source end.
type Arrow struct {
	Head string    `yaml:"head" json:"head,omitempty"`
	Tail string    `yaml:"tail" json:"tail,omitempty"`
	Line LineStyle `yaml:"line" json:"line,omitempty"`
}

// Style is the visual configuration of a diagram. Zero fields fall back to
// DefaultStyle.
type Style struct {
	Shape        Shape                        `yaml:"shape" json:"shape,omitempty"`
	Arrows       map[graph.RelationKind]Arrow `yaml:"arrows" json:"arrows,omitempty"`
	Palette      Palette                      `yaml:"palette" json:"palette,omitempty"`
	RankDir      string                       `yaml:"rankdir" json:"rankdir,omitempty"`
	ShowExternal bool                         `yaml:"show_external" json:"show_external"`
	Font         string                       `yaml:"font" json:"font,omitempty"`
}

var defaultArrows = map[graph.RelationKind]Arrow{
	graph.RelationInheritance: {Head: "empty", Tail: "none", Line: LineSolid},
	graph.RelationComposition: {Head: "vee", Tail: "diamond", Line: LineSolid},
	graph.RelationAssociation: {Head: "vee", Tail: "none", Line: LineSolid},
	graph.RelationDependency:  {Head: "vee", Tail: "none", Line: LineDashed},
}

func DefaultStyle() Style {
	arrows := make(map[graph.RelationKind]Arrow, len(defaultArrows))
	for k, v := range defaultArrows {
		arrows[k] = v
	}
	return Style{
		Shape:        ShapeRecord,
		Arrows:       arrows,
		Palette:      PaletteClassic,
		RankDir:      "BT",
		ShowExternal: true,
		Font:         "Helvetica",
	}
}

// arrowRe accepts Graphviz arrow names: up to four primitive shapes, each
// with optional o/l/r modifiers, plus the legacy aliases.
var arrowRe = regexp.MustCompile(`^(?:(?:o?[lr]?(?:box|crow|curve|icurve|diamond|dot|inv|none|normal|tee|vee)){1,4}|empty|invempty|ediamond|odiamond|open|halfopen|invdot|invodot|odot)$`)

// Validate reports the first setting Graphviz would not understand.
func (s Style) Validate() error {
	switch s.Shape {
	case "", ShapeRecord, ShapeMrecord, ShapeTable:
	default:
		return fmt.Errorf("unknown shape %q (want record, Mrecord or table)", s.Shape)
	}
	switch s.Palette {
	case "", PaletteClassic, PaletteMono, PaletteDark:
	default:
		return fmt.Errorf("unknown palette %q (want classic, mono or dark)", s.Palette)
	}
	switch s.RankDir {
	case "", "BT", "TB", "LR", "RL":
	default:
		return fmt.Errorf("unknown rankdir %q (want BT, TB, LR or RL)", s.RankDir)
	}
	for kind, a := range s.Arrows {
		if kind.Strength() == 0 {
			return fmt.Errorf("unknown relationship kind %q in arrows", kind)
		}
		for _, name := range []string{a.Head, a.Tail} {
			if name != "" && !arrowRe.MatchString(name) {
				return fmt.Errorf("%s: unknown arrow shape %q", kind, name)
			}
		}
		switch a.Line {
		case "", LineSolid, LineDashed, LineDotted:
		default:
			return fmt.Errorf("%s: unknown line style %q", kind, a.Line)
		}
	}
	return nil
}

// withDefaults fills every unset field from DefaultStyle.
func (s Style) withDefaults() Style {
	d := DefaultStyle()
	if s.Shape == "" {
		s.Shape = d.Shape
	}
	if s.Palette == "" {
		s.Palette = d.Palette
	}
	if s.RankDir == "" {
		s.RankDir = d.RankDir
	}
	if s.Font == "" {
		s.Font = d.Font
	}
	arrows := d.Arrows
	for kind, a := range s.Arrows {
		base := arrows[kind]
		if a.Head != "" {
			base.Head = a.Head
		}
		if a.Tail != "" {
			base.Tail = a.Tail
		}
		if a.Line != "" {
			base.Line = a.Line
		}
		arrows[kind] = base
	}
	s.Arrows = arrows
	return s
}

// Fingerprint hashes the effective style so cached renders are invalidated
// when any visual setting changes.
func (s Style) Fingerprint() string {
	s = s.withDefaults()
	parts := []string{string(s.Shape), string(s.Palette), s.RankDir, s.Font, fmt.Sprint(s.ShowExternal)}
	kinds := make([]string, 0, len(s.Arrows))
	for k := range s.Arrows {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		a := s.Arrows[graph.RelationKind(k)]
		parts = append(parts, k, a.Head, a.Tail, string(a.Line))
	}
	return util.Fingerprint(parts...)
}

type colors struct {
	background string
	fill       string
	line       string
	text       string
	edge       string
	external   string
}

func paletteColors(p Palette) colors {
	switch p {
	case PaletteMono:
		return colors{background: "white", fill: "white", line: "black", text: "black", edge: "black", external: "white"}
	case PaletteDark:
		return colors{background: "#1e1e1e", fill: "#2d2d30", line: "#cccccc", text: "#eeeeee", edge: "#aaaaaa", external: "#3c3c3c"}
	}
	return colors{background: "white", fill: "#fffde7", line: "#37474f", text: "black", edge: "#37474f", external: "#eeeeee"}
}
