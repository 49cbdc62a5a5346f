package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ghalamif/plcbridge"
	"github.com/ghalamif/plcbridge/internal/app/config"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the gateway",
		Long: `Start the gateway using the configuration file.

The gateway cycles until interrupted. SIGHUP reloads sources and cadence from
the configuration file; database settings take effect on restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts.ConfigPath)
			if err != nil {
				return err
			}
			return runGateway(cmd, cfg, rootOpts, once)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "perform a single cycle and exit")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func runGateway(cmd *cobra.Command, cfg *config.Config, opts *RootOptions, once bool) error {
	printBanner(cmd.ErrOrStderr())

	gw, err := plcbridge.NewGateway(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if once {
		report, err := gw.RunOnce(ctx)
		printReport(cmd, report)
		return err
	}

	go reloadOnHangup(ctx, cmd, gw, opts.ConfigPath)
	return gw.Run(ctx)
}

func reloadOnHangup(ctx context.Context, cmd *cobra.Command, gw *plcbridge.Gateway, path string) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			cfg, err := loadConfig(path)
			if err == nil {
				err = gw.Reload(cfg)
			}
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "reload rejected: %v\n", err)
			}
		}
	}
}

func printReport(cmd *cobra.Command, report plcbridge.CycleReport) {
	w := cmd.OutOrStdout()
	for _, src := range report.Sources {
		if src.ConnectErr != nil {
			fmt.Fprintf(w, "%-16s unreachable: %v\n", src.Source, src.ConnectErr)
			continue
		}
		fmt.Fprintf(w, "%-16s recorded=%d failed=%d dropped=%d\n", src.Source, src.Recorded, src.Failed(), src.Dropped)
		for _, n := range src.Nodes {
			if !n.OK() {
				fmt.Fprintf(w, "  %-14s %v\n", n.Node.Name, n.Err)
			}
		}
	}
	fmt.Fprintf(w, "cycle took %s, %d reading(s) recorded\n", report.Duration, report.Recorded())
}
