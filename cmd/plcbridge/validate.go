package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration without starting the gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts.ConfigPath)
			if err != nil {
				return err
			}
			period, mode, err := cfg.Snapshot().Cadence()
			if err != nil {
				return err
			}
			for _, w := range cfg.Warnings() {
				fmt.Fprintf(cmd.OutOrStdout(), "warning: %s\n", w)
			}
			nodes := 0
			for _, src := range cfg.Sources {
				nodes += len(src.Nodes)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config %s looks good: %d source(s), %d node(s), cycle every %s (%s)\n",
				rootOpts.ConfigPath, len(cfg.Sources), nodes, period, mode)
			return nil
		},
	}
}
