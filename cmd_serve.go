package main

import (
	"github.com/spf13/cobra"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/history"
	"github.com/hiroki-yamauchi/notebook-health-analyzer/mcpserver"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the analyzer as an MCP server over stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout exposing the
analyze_notebook tool, and notebook_history when history.enabled is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := a.engine()
			if err != nil {
				return err
			}

			var store *history.Store
			if a.cfg.History.Enabled {
				if store, err = a.openHistory(); err != nil {
					return err
				}
				defer store.Close()
			}

			mcpserver.Version = version
			s := mcpserver.New(engine, store, a.lggr)
			a.lggr.Infow("serving MCP over stdio", "history", store != nil)
			return mcpserver.ServeStdio(s)
		},
	}
}
