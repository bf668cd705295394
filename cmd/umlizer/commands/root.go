package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"umlizer/internal/config"
	"umlizer/internal/logger"
	"umlizer/internal/render"
	"umlizer/internal/scanner"
)

// Exit codes.
const (
	ExitOK     = 0
	ExitUsage  = 1
	ExitScan   = 2
	ExitRender = 3
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configFile string
	logLevel   string
	logFormat  string
	verbose    bool
}

// NewRootCmd builds the command tree. The root command itself renders a
// diagram, so `umlizer <src>` and `umlizer class <src>` are equivalent.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}
	f := &diagramFlags{}

	rootCmd := &cobra.Command{
		Use:   "umlizer <source-path>",
		Short: "Render UML class diagrams from source code",
		Long: `umlizer scans Python, TypeScript, JavaScript and Go sources, builds a class
model with inheritance, composition, association and dependency relationships,
and renders it with Graphviz. Renders are skipped when the cached output is
already current.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagram(cmd, g, f, args[0])
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.configFile, "config", "", "Config file (default: <source-path>/"+config.FileName+")")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.StringVar(&g.logFormat, "log-format", "", "Log format: text or json")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Verbose output (debug logging and every warning)")

	addDiagramFlags(rootCmd, f)
	rootCmd.AddCommand(newClassCmd(g))
	rootCmd.AddCommand(newMCPCmd(g))
	rootCmd.AddCommand(newCacheCmd(g))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, NewRootCmd(), os.Args[1:])
}

func run(ctx context.Context, cmd *cobra.Command, args []string) int {
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", color.RedString("error:"), err)
	return exitCode(err)
}

func exitCode(err error) int {
	var serr *scanner.ScanError
	if errors.As(err, &serr) {
		return ExitScan
	}
	var rerr *render.RenderError
	if errors.As(err, &rerr) {
		return ExitRender
	}
	return ExitUsage
}

// loadConfig reads the configuration for root and applies the persistent
// flags, then initializes logging.
func loadConfig(cmd *cobra.Command, g *globalFlags, root string) (*config.Config, error) {
	cfg, err := config.Load(root, g.configFile)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = g.logLevel
	} else if g.verbose {
		cfg.Log.Level = "debug"
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = g.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	lc, err := cfg.LoggerConfig()
	if err != nil {
		return nil, err
	}
	lc.Output = cmd.ErrOrStderr()
	logger.Init(lc)
	return cfg, nil
}
