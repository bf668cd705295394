package render

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"umlizer/internal/graph"
	"umlizer/internal/logger"
)

type Format string

const (
	FormatSVG     Format = "svg"
	FormatPNG     Format = "png"
	FormatPDF     Format = "pdf"
	FormatDOT     Format = "dot"
	FormatMermaid Format = "mermaid"
	FormatJSON    Format = "json"
)

// Formats lists every supported output format.
var Formats = []Format{FormatSVG, FormatPNG, FormatPDF, FormatDOT, FormatMermaid, FormatJSON}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "gv" {
		return FormatDOT, nil
	}
	if f == "mmd" {
		return FormatMermaid, nil
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// Extension is the file extension written for the format, dot included.
func (f Format) Extension() string {
	if f == FormatMermaid {
		return ".mmd"
	}
	return "." + string(f)
}

// Textual formats are produced without the layout engine.
func (f Format) Textual() bool {
	return f == FormatDOT || f == FormatMermaid || f == FormatJSON
}

// OutputPath applies the default name and appends the format extension
// when the path has none.
func OutputPath(output string, format Format) string {
	if output == "" {
		return "classes" + format.Extension()
	}
	if strings.HasSuffix(output, string(filepath.Separator)) || strings.HasSuffix(output, "/") {
		return filepath.Join(output, "classes"+format.Extension())
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return filepath.Join(output, "classes"+format.Extension())
	}
	if filepath.Ext(output) == "" {
		return output + format.Extension()
	}
	return output
}

// Renderer writes a model to disk in one of the supported formats.
type Renderer struct {
	engine Engine
	style  Style
	logger *slog.Logger
}

func NewRenderer(engine Engine, style Style) *Renderer {
	if engine == nil {
		engine = &ExecEngine{}
	}
	return &Renderer{engine: engine, style: style, logger: logger.ForComponent("render")}
}

func (r *Renderer) Style() Style { return r.style }

// Describe returns the textual description of the model for a textual
// format; image formats describe as DOT.
func (r *Renderer) Describe(m *graph.DiagramModel, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(m, "", "  ")
	case FormatMermaid:
		s, err := (&MermaidGenerator{Style: r.style}).Generate(m)
		return []byte(s), err
	}
	s, err := (&DotGenerator{Style: r.style}).Generate(m)
	return []byte(s), err
}

// Render writes the diagram to output, creating parent directories. Every
// failure is returned as a *RenderError.
func (r *Renderer) Render(ctx context.Context, m *graph.DiagramModel, format Format, output string) error {
	desc, err := r.Describe(m, format)
	if err != nil {
		return &RenderError{Output: output, Format: format, Err: err}
	}
	if dir := filepath.Dir(output); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &RenderError{Output: output, Format: format, Err: err}
		}
	}

	if format.Textual() {
		if err := os.WriteFile(output, desc, 0o644); err != nil {
			return &RenderError{Output: output, Format: format, Err: err}
		}
		r.logger.Debug("wrote description", "output", output, "format", format, "bytes", len(desc))
		return nil
	}

	if err := r.engine.Render(ctx, desc, format, output); err != nil {
		var rerr *RenderError
		if errors.As(err, &rerr) {
			return err
		}
		return &RenderError{Output: output, Format: format, Engine: r.engine.Name(), Err: err}
	}
	r.logger.Debug("rendered diagram", "output", output, "format", format, "engine", r.engine.Name())
	return nil
}
