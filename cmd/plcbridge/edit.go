package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ghalamif/plcbridge/internal/app/config"
	"github.com/ghalamif/plcbridge/internal/app/importer"
)

// editConfig loads (or starts) the document, applies fn and saves the result.
func editConfig(path string, fn func(*config.Config) error) error {
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	if err := fn(cfg); err != nil {
		return err
	}
	return cfg.Save(path)
}

func sourceOf(cfg *config.Config, name string) (*config.SourceConfig, error) {
	src, ok := cfg.Source(name)
	if !ok {
		return nil, fmt.Errorf("source %q not found", name)
	}
	return src, nil
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Append nodes to a source from a CSV file with name,nodeid,type columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editConfig(rootOpts.ConfigPath, func(cfg *config.Config) error {
				src, err := sourceOf(cfg, source)
				if err != nil {
					return err
				}
				res, err := importer.ImportFile(args[0], src)
				if err != nil {
					return err
				}
				if len(res.Added) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no new nodes found")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d node(s) imported into %s, %d row(s) skipped\n", len(res.Added), src.Name, res.Skipped)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "source receiving the nodes")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

// NewSourceCommand creates the source command group.
func NewSourceCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "source",
		Short: "Add, remove or list sources",
	}

	var (
		url      string
		interval time.Duration
	)
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editConfig(rootOpts.ConfigPath, func(cfg *config.Config) error {
				return cfg.AddSource(config.SourceConfig{
					Name:         args[0],
					URL:          url,
					ScanInterval: config.Interval(interval),
				})
			})
		},
	}
	add.Flags().StringVar(&url, "url", "", "controller endpoint, e.g. opc.tcp://192.168.0.10:4840")
	add.Flags().DurationVar(&interval, "scan-interval", time.Second, "scan interval")
	_ = add.MarkFlagRequired("url")

	remove := &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a source and its nodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editConfig(rootOpts.ConfigPath, func(cfg *config.Config) error {
				return cfg.RemoveSource(args[0])
			})
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List sources and their nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(rootOpts.ConfigPath)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(cfg.Sources) == 0 {
				fmt.Fprintln(w, "no sources configured")
				return nil
			}
			for _, src := range cfg.Sources {
				fmt.Fprintf(w, "%s  %s  every %s\n", src.Name, src.URL, src.ScanInterval)
				for _, n := range src.Nodes {
					fmt.Fprintf(w, "  - %s  %s  %s\n", n.Name, n.NodeID, n.Type)
				}
			}
			return nil
		},
	}

	cmd.AddCommand(add, remove, list)
	return cmd
}

// NewNodeCommand creates the node command group.
func NewNodeCommand(rootOpts *RootOptions) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "node",
		Short: "Add or remove nodes of a source",
	}
	cmd.PersistentFlags().StringVarP(&source, "source", "s", "", "source owning the node")
	_ = cmd.MarkPersistentFlagRequired("source")

	var (
		nodeID   string
		nodeType string
	)
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editConfig(rootOpts.ConfigPath, func(cfg *config.Config) error {
				src, err := sourceOf(cfg, source)
				if err != nil {
					return err
				}
				return src.AddNode(config.NodeConfig{Name: args[0], NodeID: nodeID, Type: nodeType})
			})
		},
	}
	add.Flags().StringVar(&nodeID, "nodeid", "", "node address, e.g. ns=2;s=Temperature")
	add.Flags().StringVar(&nodeType, "type", "REAL", "declared type: INT, REAL or BOOL")
	_ = add.MarkFlagRequired("nodeid")

	remove := &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editConfig(rootOpts.ConfigPath, func(cfg *config.Config) error {
				src, err := sourceOf(cfg, source)
				if err != nil {
					return err
				}
				return src.RemoveNode(args[0])
			})
		},
	}

	cmd.AddCommand(add, remove)
	return cmd
}
