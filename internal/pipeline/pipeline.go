// Package pipeline runs one scan, build and render invocation, skipping the
// render when the cache shows the output is current.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"umlizer/internal/builder"
	"umlizer/internal/graph"
	"umlizer/internal/logger"
	"umlizer/internal/render"
	"umlizer/internal/scanner"
	"umlizer/util"
)

// Renderer writes a model to an output file.
type Renderer interface {
	Render(ctx context.Context, m *graph.DiagramModel, format render.Format, output string) error
	Style() render.Style
}

// Cache records the fingerprint of the last render per output path.
type Cache interface {
	Lookup(ctx context.Context, output, fingerprint string) (bool, error)
	Store(ctx context.Context, output, fingerprint, format string) error
}

type Options struct {
	Source string
	Output string
	Format render.Format
	Scan   scanner.Options
	// NoCache forces a render and leaves the cache untouched.
	NoCache bool
	// Debounce is the quiet period watch mode waits for before re-running.
	Debounce time.Duration
}

type Result struct {
	Model       *graph.DiagramModel
	Report      *builder.Report
	Output      string
	Format      render.Format
	Fingerprint string
	CacheHit    bool
	Duration    time.Duration
}

type Pipeline struct {
	renderer Renderer
	cache    Cache
	logger   *slog.Logger
}

// New wires a pipeline. cache may be nil, in which case every run renders.
func New(renderer Renderer, cache Cache) *Pipeline {
	return &Pipeline{renderer: renderer, cache: cache, logger: logger.ForComponent("pipeline")}
}

// RenderKey combines the model fingerprint with everything else that
// changes the rendered bytes.
func RenderKey(m *graph.DiagramModel, format render.Format, style render.Style) string {
	return util.Fingerprint(m.Fingerprint(), string(format), style.Fingerprint())
}

// Model scans source and builds the diagram model without rendering. In
// strict mode the first scan error is returned alongside the partial result.
func (p *Pipeline) Model(ctx context.Context, source string, opts scanner.Options) (*graph.DiagramModel, *builder.Report, error) {
	seq, err := scanner.New(opts).Scan(ctx, source)
	if err != nil {
		return nil, nil, err
	}
	m, report, err := builder.Build(seq)
	if err != nil {
		return nil, nil, err
	}
	if opts.Strict && len(report.ScanErrors) > 0 {
		return m, report, report.ScanErrors[0]
	}
	return m, report, nil
}

// Run performs one invocation. Scan failures are *scanner.ScanError and
// render failures are *render.RenderError.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	format := opts.Format
	if format == "" {
		format = render.FormatSVG
	}

	m, report, err := p.Model(ctx, opts.Source, opts.Scan)
	res := &Result{Model: m, Report: report, Format: format}
	if err != nil {
		return res, err
	}

	res.Output = render.OutputPath(opts.Output, format)
	res.Fingerprint = RenderKey(m, format, p.renderer.Style())
	useCache := p.cache != nil && !opts.NoCache

	if useCache {
		hit, err := p.cache.Lookup(ctx, res.Output, res.Fingerprint)
		if err != nil {
			p.logger.Warn("cache lookup failed", "output", res.Output, "error", err)
		}
		if hit {
			res.CacheHit = true
			res.Duration = time.Since(start)
			p.logger.Info("output up to date", "output", res.Output)
			return res, nil
		}
	}

	if err := p.renderer.Render(ctx, m, format, res.Output); err != nil {
		return res, err
	}

	if useCache {
		if err := p.cache.Store(ctx, res.Output, res.Fingerprint, string(format)); err != nil {
			p.logger.Warn("cache store failed", "output", res.Output, "error", err)
		}
	}
	res.Duration = time.Since(start)
	p.logger.Info("rendered", "output", res.Output, "format", format,
		"nodes", len(m.Nodes()), "edges", len(m.Edges()), "duration", res.Duration)
	return res, nil
}
