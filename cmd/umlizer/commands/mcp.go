package commands

import (
	"os"

	"github.com/spf13/cobra"

	"umlizer/internal/logger"
	"umlizer/internal/pipeline"
	"umlizer/internal/render"
	"umlizer/internal/server"
)

func newMCPCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve class_diagram and describe_model as MCP tools over stdio",
		Long: `Runs a Model Context Protocol server on stdin/stdout. Defaults for tool
arguments come from the configuration of the working directory. Logs go to
stderr so the protocol stream stays clean.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd, g, wd)
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

			srv := server.New(pipeline.New(renderer, store), renderer, cfg, Version)
			return srv.Run(cmd.Context())
		},
	}
}
