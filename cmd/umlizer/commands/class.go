package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"umlizer/internal/cache"
	"umlizer/internal/config"
	"umlizer/internal/logger"
	"umlizer/internal/pipeline"
	"umlizer/internal/render"
)

type diagramFlags struct {
	output       string
	format       string
	strict       bool
	include      []string
	exclude      []string
	languages    []string
	engine       string
	noCache      bool
	noGitignore  bool
	hideExternal bool
	watch        bool
}

func addDiagramFlags(cmd *cobra.Command, f *diagramFlags) {
	fl := cmd.Flags()
	fl.StringVarP(&f.output, "output", "o", "", "Output file (default: classes.<format>)")
	fl.StringVarP(&f.format, "format", "f", "", "Output format: svg, png, pdf, dot, mermaid or json (default: svg)")
	fl.BoolVar(&f.strict, "strict", false, "Fail on the first unreadable or unparsable file")
	fl.StringSliceVar(&f.include, "include", nil, "Glob of files to include, relative to the source root (repeatable)")
	fl.StringSliceVar(&f.exclude, "exclude", nil, "Glob of files to skip, added to the defaults (repeatable)")
	fl.StringSliceVar(&f.languages, "lang", nil, "Only scan these languages: python, typescript, javascript, go")
	fl.StringVar(&f.engine, "engine", "", "Graphviz-compatible layout binary (default: dot)")
	fl.BoolVar(&f.noCache, "no-cache", false, "Render even if the cached output is current")
	fl.BoolVar(&f.noGitignore, "no-gitignore", false, "Do not honor .gitignore files")
	fl.BoolVar(&f.hideExternal, "hide-external", false, "Leave unresolved placeholder types out of the diagram")
	fl.BoolVarP(&f.watch, "watch", "w", false, "Re-render whenever a source file changes")
}

func newClassCmd(g *globalFlags) *cobra.Command {
	f := &diagramFlags{}
	cmd := &cobra.Command{
		Use:   "class <source-path>",
		Short: "Render a class diagram (same as the root command)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagram(cmd, g, f, args[0])
		},
	}
	addDiagramFlags(cmd, f)
	return cmd
}

// apply overlays the flags the user actually set onto cfg.
func (f *diagramFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fl := cmd.Flags()
	if fl.Changed("output") {
		cfg.Output = f.output
	}
	if fl.Changed("format") {
		cfg.Format = f.format
	}
	if f.strict {
		cfg.Strict = true
	}
	if fl.Changed("include") {
		cfg.Include = f.include
	}
	cfg.Exclude = append(cfg.Exclude, f.exclude...)
	if fl.Changed("lang") {
		cfg.Languages = f.languages
	}
	if fl.Changed("engine") {
		cfg.Engine = f.engine
	}
	if f.noCache {
		cfg.Cache.Enabled = false
	}
	if f.noGitignore {
		cfg.Gitignore = false
	}
	if f.hideExternal {
		cfg.Style.ShowExternal = false
	}
}

func runDiagram(cmd *cobra.Command, g *globalFlags, f *diagramFlags, source string) error {
	cfg, err := loadConfig(cmd, g, source)
	if err != nil {
		return err
	}
	f.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	format, err := render.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	scanOpts, err := cfg.ScanOptions()
	if err != nil {
		return err
	}

	renderer := render.NewRenderer(&render.ExecEngine{Path: cfg.Engine}, cfg.Style)
	var store pipeline.Cache
	if cfg.Cache.Enabled {
		c, err := openCache(cfg)
		if err != nil {
			logger.Warn("render cache unavailable", "error", err)
		} else {
			defer c.Close()
			store = c
		}
	}

	p := pipeline.New(renderer, store)
	opts := pipeline.Options{
		Source: source,
		Output: cfg.Output,
		Format: format,
		Scan:   scanOpts,
	}

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	if f.watch {
		fmt.Fprintf(out, "watching %s (ctrl-c to stop)\n", source)
		return p.Watch(cmd.Context(), opts, func(res *pipeline.Result, err error) {
			if err != nil {
				fmt.Fprintf(errOut, "%s %v\n", color.RedString("error:"), err)
			}
			printSummary(out, errOut, res, err, g.verbose)
		})
	}

	res, err := p.Run(cmd.Context(), opts)
	printSummary(out, errOut, res, err, g.verbose)
	return err
}

func openCache(cfg *config.Config) (*cache.Cache, error) {
	path, err := cfg.CachePath()
	if err != nil {
		return nil, err
	}
	return cache.Open(path)
}

// printSummary reports the outcome of one run. Scan errors and warnings go
// to errOut so stdout stays a clean record of what was written.
func printSummary(out, errOut io.Writer, res *pipeline.Result, runErr error, verbose bool) {
	if res == nil || res.Report == nil {
		return
	}
	rep := res.Report

	if n := len(rep.ScanErrors); n > 0 {
		color.New(color.FgYellow).Fprintf(errOut, "%d file(s) could not be scanned:\n", n)
		for _, se := range rep.ScanErrors {
			fmt.Fprintf(errOut, "  %v\n", se)
		}
	}
	if n := len(rep.Warnings); n > 0 {
		if verbose {
			for _, w := range rep.Warnings {
				color.New(color.FgYellow).Fprintf(errOut, "warning: ")
				fmt.Fprintln(errOut, w.String())
			}
		} else {
			color.New(color.FgYellow).Fprintf(errOut, "%d resolution warning(s), %d unresolved reference(s); use -v to list them\n",
				n, rep.Unresolved())
		}
	}

	if runErr != nil || res.Model == nil || res.Output == "" {
		return
	}
	classes, relations := len(res.Model.Nodes()), len(res.Model.Edges())
	if res.CacheHit {
		fmt.Fprintf(out, "%s %s (%d types, %d relationships)\n",
			color.CyanString("up to date:"), res.Output, classes, relations)
		return
	}
	fmt.Fprintf(out, "%s %s (%d types, %d relationships from %d files) in %s\n",
		color.GreenString("wrote"), res.Output, classes, relations, rep.Files, res.Duration.Round(time.Millisecond))
}
