package main

import (
	"github.com/spf13/cobra"
)

const defaultConfigPath = "./data/config.yaml"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand creates the root command. Invoked without a subcommand it
// starts the gateway when the configuration has autostart set.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "plcbridge",
		Short: "OPC UA to SQL data-acquisition gateway",
		Long: `plcbridge polls named variables from OPC UA controllers and stores every
reading, tagged with its source and timestamp, in a MySQL or Postgres table.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.ConfigPath)
			if err != nil {
				return err
			}
			if !cfg.Autostart {
				return cmd.Help()
			}
			return runGateway(cmd, cfg, opts, false)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", defaultConfigPath, "path to the configuration file")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewStatsCommand())
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewSourceCommand(opts))
	cmd.AddCommand(NewNodeCommand(opts))

	return cmd
}
