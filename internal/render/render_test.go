package render

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umlizer/internal/graph"
)

func sampleModel(t *testing.T) *graph.DiagramModel {
	t.Helper()
	nodes := []graph.TypeNode{
		{QualifiedName: "shop.Base", Name: "Base", Module: "shop", Kind: graph.KindClass, Abstract: true},
		{QualifiedName: "shop.Order", Name: "Order", Module: "shop", Kind: graph.KindClass,
			Attributes: []graph.Attribute{
				{Name: "lines", Type: "List[Line]", Visibility: graph.Public},
				{Name: "count", Type: "int", Visibility: graph.Private, Static: true},
			},
			Methods: []graph.Method{
				{Name: "add", Parameters: []graph.Parameter{{Name: "line", Type: "Line"}}, ReturnType: "None", Visibility: graph.Public},
			}},
		{QualifiedName: "shop.Line", Name: "Line", Module: "shop", Kind: graph.KindClass},
		{QualifiedName: "shop.Priced", Name: "Priced", Module: "shop", Kind: graph.KindInterface},
		{QualifiedName: "datetime.datetime", Name: "datetime.datetime", Kind: graph.KindExternal},
	}
	edges := []graph.Edge{
		{Source: "shop.Order", Target: "shop.Base", Kind: graph.RelationInheritance},
		{Source: "shop.Order", Target: "shop.Line", Kind: graph.RelationComposition,
			Cardinality: &graph.Cardinality{Source: "1", Target: "0..*"}, Label: "lines"},
		{Source: "shop.Order", Target: "datetime.datetime", Kind: graph.RelationDependency},
	}
	m, err := graph.NewModel(nodes, edges, "src")
	require.NoError(t, err)
	return m
}

func TestDotGenerator(t *testing.T) {
	out, err := (&DotGenerator{Style: DefaultStyle()}).Generate(sampleModel(t))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "digraph \"classes\" {\n"))
	assert.Contains(t, out, "rankdir=BT")
	assert.Contains(t, out, "shape=record")
	assert.Contains(t, out, `"shop.Order" [label="{Order|+ lines: List[Line]\l- count: int \{static\}\l|+ add(line: Line): None\l}"];`)
	assert.Contains(t, out, `"shop.Base" [label="{«abstract»\nBase||}"];`)
	assert.Contains(t, out, `"shop.Priced" [label="{«interface»\nPriced||}"];`)
	assert.Contains(t, out, `"shop.Order" -> "shop.Base" [dir=both, arrowhead=empty, arrowtail=none, style=solid];`)
	assert.Contains(t, out, `"shop.Order" -> "shop.Line" [dir=both, arrowhead=vee, arrowtail=diamond, style=solid, label="lines", taillabel="1", headlabel="0..*"];`)
	assert.Contains(t, out, `"datetime.datetime" [label="datetime.datetime", shape=box`)
	assert.Contains(t, out, `style=dashed`)
}

func TestDotGeneratorIsDeterministic(t *testing.T) {
	g := &DotGenerator{Style: DefaultStyle()}
	a, err := g.Generate(sampleModel(t))
	require.NoError(t, err)
	b, err := g.Generate(sampleModel(t))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDotGeneratorStyleOptions(t *testing.T) {
	style := DefaultStyle()
	style.Shape = ShapeTable
	style.Palette = PaletteDark
	style.RankDir = "LR"
	style.ShowExternal = false
	style.Arrows = map[graph.RelationKind]Arrow{graph.RelationDependency: {Line: LineDotted}}

	out, err := (&DotGenerator{Style: style}).Generate(sampleModel(t))
	require.NoError(t, err)

	assert.Contains(t, out, "rankdir=LR")
	assert.Contains(t, out, "shape=plain")
	assert.Contains(t, out, `bgcolor="#1e1e1e"`)
	assert.Contains(t, out, "<b>Order</b>")
	assert.Contains(t, out, "+ lines: List[Line]<br/>- count: int {static}")
	assert.Contains(t, out, "<i>«interface»</i>")
	assert.NotContains(t, out, "datetime")
}

func TestEscapesRecordLabels(t *testing.T) {
	n := graph.TypeNode{Name: "Box", Attributes: []graph.Attribute{{Name: "items", Type: "Map<string, Set<T>>", Visibility: graph.Public}}}
	assert.Equal(t, `{Box|+ items: Map\<string, Set\<T\>\>\l|}`, recordLabel(n))
}

func TestMermaidGenerator(t *testing.T) {
	out, err := (&MermaidGenerator{Style: DefaultStyle()}).Generate(sampleModel(t))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "classDiagram\n  direction BT\n"))
	assert.Contains(t, out, "  class shop_Order[\"Order\"] {\n")
	assert.Contains(t, out, "    +lines : List~Line~\n")
	assert.Contains(t, out, "    -count : int$\n")
	assert.Contains(t, out, "    +add(line Line) None\n")
	assert.Contains(t, out, "    <<interface>>\n")
	assert.Contains(t, out, "  shop_Order --|> shop_Base\n")
	assert.Contains(t, out, "  shop_Order \"1\" *-- \"0..*\" shop_Line : lines\n")
	assert.Contains(t, out, "  shop_Order ..> datetime_datetime\n")
}

func TestStyleValidate(t *testing.T) {
	tests := []struct {
		name  string
		style Style
		ok    bool
	}{
		{"default", DefaultStyle(), true},
		{"zero", Style{}, true},
		{"shape", Style{Shape: "circle"}, false},
		{"palette", Style{Palette: "neon"}, false},
		{"rankdir", Style{RankDir: "UP"}, false},
		{"arrow ok", Style{Arrows: map[graph.RelationKind]Arrow{graph.RelationDependency: {Head: "onormal", Tail: "odiamond"}}}, true},
		{"arrow combo", Style{Arrows: map[graph.RelationKind]Arrow{graph.RelationAssociation: {Head: "veevee"}}}, true},
		{"arrow bad", Style{Arrows: map[graph.RelationKind]Arrow{graph.RelationDependency: {Head: "arrow"}}}, false},
		{"line bad", Style{Arrows: map[graph.RelationKind]Arrow{graph.RelationDependency: {Line: "wavy"}}}, false},
		{"kind bad", Style{Arrows: map[graph.RelationKind]Arrow{"aggregation": {}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.style.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestStyleFingerprint(t *testing.T) {
	assert.Equal(t, DefaultStyle().Fingerprint(), Style{ShowExternal: true}.Fingerprint())

	dark := DefaultStyle()
	dark.Palette = PaletteDark
	assert.NotEqual(t, DefaultStyle().Fingerprint(), dark.Fingerprint())

	dotted := DefaultStyle()
	dotted.Arrows[graph.RelationDependency] = Arrow{Line: LineDotted}
	assert.NotEqual(t, DefaultStyle().Fingerprint(), dotted.Fingerprint())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" SVG ")
	require.NoError(t, err)
	assert.Equal(t, FormatSVG, f)
	f, err = ParseFormat("mmd")
	require.NoError(t, err)
	assert.Equal(t, FormatMermaid, f)
	_, err = ParseFormat("gif")
	assert.Error(t, err)
}

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, "classes.svg", OutputPath("", FormatSVG))
	assert.Equal(t, "out/diagram.png", OutputPath("out/diagram", FormatPNG))
	assert.Equal(t, "out/diagram.svg", OutputPath("out/diagram.svg", FormatPNG))
	assert.Equal(t, filepath.Join(dir, "classes.mmd"), OutputPath(dir, FormatMermaid))
}

type fakeEngine struct {
	calls  int
	dot    string
	output string
	err    error
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Render(_ context.Context, dot []byte, _ Format, output string) error {
	f.calls++
	f.dot = string(dot)
	f.output = output
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(output, []byte("<svg/>"), 0o644)
}

func TestRendererUsesEngineForImages(t *testing.T) {
	engine := &fakeEngine{}
	out := filepath.Join(t.TempDir(), "nested", "dir", "classes.svg")

	err := NewRenderer(engine, DefaultStyle()).Render(context.Background(), sampleModel(t), FormatSVG, out)
	require.NoError(t, err)
	assert.Equal(t, 1, engine.calls)
	assert.Equal(t, out, engine.output)
	assert.Contains(t, engine.dot, "digraph")
	assert.FileExists(t, out)
}

func TestRendererWritesTextualFormats(t *testing.T) {
	engine := &fakeEngine{}
	r := NewRenderer(engine, DefaultStyle())
	dir := t.TempDir()

	for _, f := range []Format{FormatDOT, FormatMermaid, FormatJSON} {
		out := filepath.Join(dir, "classes"+f.Extension())
		require.NoError(t, r.Render(context.Background(), sampleModel(t), f, out))
		assert.FileExists(t, out)
	}
	assert.Zero(t, engine.calls)

	raw, err := os.ReadFile(filepath.Join(dir, "classes.json"))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Len(t, doc["nodes"], 5)
}

func TestRendererWrapsEngineErrors(t *testing.T) {
	boom := errors.New("boom")
	err := NewRenderer(&fakeEngine{err: boom}, DefaultStyle()).
		Render(context.Background(), sampleModel(t), FormatPNG, filepath.Join(t.TempDir(), "x.png"))

	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "fake", rerr.Engine)
	assert.Equal(t, FormatPNG, rerr.Format)
}

func TestRendererRejectsInvalidStyle(t *testing.T) {
	err := NewRenderer(&fakeEngine{}, Style{Shape: "hexagon"}).
		Render(context.Background(), sampleModel(t), FormatDOT, filepath.Join(t.TempDir(), "x.dot"))
	var rerr *RenderError
	assert.ErrorAs(t, err, &rerr)
}

func TestExecEngineUnavailable(t *testing.T) {
	e := &ExecEngine{Path: filepath.Join(t.TempDir(), "no-such-dot")}
	assert.False(t, e.Available())

	err := e.Render(context.Background(), []byte("digraph {}"), FormatSVG, filepath.Join(t.TempDir(), "x.svg"))
	assert.ErrorIs(t, err, ErrEngineUnavailable)
	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.NotEmpty(t, rerr.Msg)
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "fake-dot")
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+body), 0o755))
	return p
}

func TestExecEngineRunsBinary(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	out := filepath.Join(t.TempDir(), "x.svg")
	e := &ExecEngine{Path: writeScript(t, "cat > \"$3\"\n")}
	require.NoError(t, e.Render(context.Background(), []byte("digraph {}"), FormatSVG, out))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "digraph {}", string(got))
}

func TestExecEngineReportsStderr(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	e := &ExecEngine{Path: writeScript(t, "cat >/dev/null\necho 'Error: syntax error in line 1' >&2\nexit 1\n")}
	err := e.Render(context.Background(), []byte("digraph {"), FormatSVG, filepath.Join(t.TempDir(), "x.svg"))

	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "Error: syntax error in line 1", rerr.Msg)
	assert.NotErrorIs(t, err, ErrEngineUnavailable)
}
