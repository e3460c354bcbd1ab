// Package main is the entry point for the marktree command.
package main

import (
	"fmt"
	"os"

	"github.com/CageChen/marktree/internal/config"
	"github.com/spf13/cobra"
)

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
	path       string
}

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd builds the marktree command tree.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "marktree",
		Short: "Arrange markdown documents into a virtual folder tree",
		Long: `marktree scans one or more document sources and presents them as a
virtual folder tree that can be reorganised without touching the files.
The layout is saved between runs.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to the config file")
	root.PersistentFlags().StringVarP(&flags.path, "path", "p", "", "serve a single directory instead of the configured sources")

	root.AddCommand(
		NewServeCmd(flags),
		NewTreeCmd(flags),
		NewSortModesCmd(),
	)
	return root
}

// loadConfig loads the configuration and applies the shared flags. With no
// configured sources the working directory is used.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.path != "" {
		if err := cfg.UseSingleSource(flags.path); err != nil {
			return nil, fmt.Errorf("resolve --path: %w", err)
		}
	}
	if len(cfg.Sources) == 0 {
		if err := cfg.UseSingleSource("."); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
