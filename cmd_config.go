package main

import (
	"github.com/spf13/cobra"

	"github.com/hiroki-yamauchi/notebook-health-analyzer/config"
)

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Print the configuration after defaults, the --config file and NBHEALTH_*
environment variables are applied. The output is a valid config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return config.Dump(cmd.OutOrStdout(), a.cfg)
		},
	}
}
