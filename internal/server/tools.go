package server

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"umlizer/internal/builder"
	"umlizer/internal/pipeline"
	"umlizer/internal/render"
	"umlizer/internal/scanner"
	"umlizer/util"
)

// Arguments structs

type ClassDiagramArgs struct {
	SourcePath string   `json:"source_path" jsonschema:"Absolute path of the source tree or file to diagram"`
	Output     string   `json:"output,omitempty" jsonschema:"Output file; the format extension is appended when missing"`
	Format     string   `json:"format,omitempty" jsonschema:"One of svg, png, pdf, dot, mermaid or json"`
	Include    []string `json:"include,omitempty" jsonschema:"Doublestar globs relative to the source root to include"`
	Exclude    []string `json:"exclude,omitempty" jsonschema:"Doublestar globs relative to the source root to skip, added to the defaults"`
	Languages  []string `json:"languages,omitempty" jsonschema:"Restrict scanning to python, typescript, javascript or go"`
	Strict     bool     `json:"strict,omitempty" jsonschema:"Fail on the first unreadable or unparsable file"`
	NoCache    bool     `json:"no_cache,omitempty" jsonschema:"Render even if the cached output is current"`
}

type DescribeModelArgs struct {
	SourcePath string   `json:"source_path" jsonschema:"Absolute path of the source tree or file to describe"`
	Format     string   `json:"format,omitempty" jsonschema:"One of json (default), mermaid or dot"`
	Include    []string `json:"include,omitempty" jsonschema:"Doublestar globs relative to the source root to include"`
	Exclude    []string `json:"exclude,omitempty" jsonschema:"Doublestar globs relative to the source root to skip, added to the defaults"`
	Languages  []string `json:"languages,omitempty" jsonschema:"Restrict scanning to python, typescript, javascript or go"`
}

type diagramResult struct {
	Output       string                      `json:"output_path"`
	URI          string                      `json:"uri"`
	Format       render.Format               `json:"format"`
	CacheHit     bool                        `json:"cache_hit"`
	Nodes        int                         `json:"nodes"`
	Edges        int                         `json:"edges"`
	Files        int                         `json:"files"`
	DurationMS   int64                       `json:"duration_ms"`
	ScanErrors   []string                    `json:"scan_errors,omitempty"`
	Warnings     []builder.ResolutionWarning `json:"warnings,omitempty"`
	Placeholders int                         `json:"unresolved"`
}

func (s *Server) scanOptions(include, exclude, languages []string, strict bool) (scanner.Options, error) {
	opts, err := s.cfg.ScanOptions()
	if err != nil {
		return opts, err
	}
	if len(include) > 0 {
		opts.Include = include
	}
	opts.Exclude = append(append([]string(nil), opts.Exclude...), exclude...)
	if len(languages) > 0 {
		opts.Languages = nil
		for _, name := range languages {
			lang, ok := scanner.ParseLanguage(name)
			if !ok {
				return opts, fmt.Errorf("unknown language %q", name)
			}
			opts.Languages = append(opts.Languages, lang)
		}
	}
	opts.Strict = opts.Strict || strict
	return opts, nil
}

func sourcePath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("source_path is required")
	}
	return filepath.Abs(p)
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "class_diagram",
		Description: "Renders a UML class diagram of a source tree and reports what was scanned",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ClassDiagramArgs) (*mcp.CallToolResult, any, error) {
		src, err := sourcePath(args.SourcePath)
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		formatName := args.Format
		if formatName == "" {
			formatName = s.cfg.Format
		}
		format, err := render.ParseFormat(formatName)
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		scanOpts, err := s.scanOptions(args.Include, args.Exclude, args.Languages, args.Strict)
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		output := args.Output
		if output == "" {
			output = s.cfg.Output
		}

		res, err := s.pipeline.Run(ctx, pipeline.Options{
			Source:  src,
			Output:  output,
			Format:  format,
			Scan:    scanOpts,
			NoCache: args.NoCache,
		})
		if err != nil {
			return errorResult(fmt.Sprintf("Diagram failed: %v", err)), nil, nil
		}

		abs, err := filepath.Abs(res.Output)
		if err != nil {
			abs = res.Output
		}
		out := diagramResult{
			Output:       abs,
			URI:          util.PathToURI(abs),
			Format:       res.Format,
			CacheHit:     res.CacheHit,
			Nodes:        len(res.Model.Nodes()),
			Edges:        len(res.Model.Edges()),
			Files:        res.Report.Files,
			DurationMS:   res.Duration.Milliseconds(),
			Warnings:     res.Report.Warnings,
			Placeholders: res.Report.Unresolved(),
		}
		for _, se := range res.Report.ScanErrors {
			out.ScanErrors = append(out.ScanErrors, se.Error())
		}

		jsonBytes, _ := json.MarshalIndent(out, "", "  ")
		return textResult(string(jsonBytes)), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "describe_model",
		Description: "Returns the class model of a source tree as JSON, Mermaid or DOT without rendering an image",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args DescribeModelArgs) (*mcp.CallToolResult, any, error) {
		src, err := sourcePath(args.SourcePath)
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		format := render.FormatJSON
		if args.Format != "" {
			if format, err = render.ParseFormat(args.Format); err != nil {
				return errorResult(err.Error()), nil, nil
			}
			if !format.Textual() {
				return errorResult(fmt.Sprintf("format %s is not textual; use json, mermaid or dot", format)), nil, nil
			}
		}
		scanOpts, err := s.scanOptions(args.Include, args.Exclude, args.Languages, false)
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}

		m, _, err := s.pipeline.Model(ctx, src, scanOpts)
		if err != nil {
			return errorResult(fmt.Sprintf("Scan failed: %v", err)), nil, nil
		}
		desc, err := s.renderer.Describe(m, format)
		if err != nil {
			return errorResult(fmt.Sprintf("Describe failed: %v", err)), nil, nil
		}
		return textResult(string(desc)), nil, nil
	})
}
