package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/CageChen/marktree/internal/library"
	"github.com/CageChen/marktree/internal/logging"
	"github.com/CageChen/marktree/internal/selector"
	"github.com/CageChen/marktree/internal/source"
	"github.com/CageChen/marktree/internal/store"
	"github.com/CageChen/marktree/internal/vfs"
	"github.com/spf13/cobra"
)

// NewTreeCmd builds the tree subcommand, which prints the arranged tree.
func NewTreeCmd(flags *rootFlags) *cobra.Command {
	var sortMode string
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the virtual document tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if sortMode != "" {
				if cfg.SortMode, err = vfs.ParseSortMode(sortMode); err != nil {
					return err
				}
			}

			logger := logging.Must(cfg.Logging())
			var st *store.Store
			if cfg.StatePath != "" {
				st = store.New(cfg.StatePath, logger)
			}
			lib, err := library.Open(cmd.Context(), library.Options{
				Locations: cfg.Sources,
				Scanner:   cfg.Scanner(logger),
				Store:     st,
				SortMode:  cfg.SortMode,
				QuickMove: cfg.QuickMove,
				Logger:    logger,
			})
			if err != nil {
				return err
			}
			defer lib.Close()
			return printTree(cmd.OutOrStdout(), lib)
		},
	}
	cmd.Flags().StringVar(&sortMode, "sort", "", "sort mode (see sort-modes)")
	return cmd
}

func printTree(w io.Writer, lib *library.Library) error {
	if err := lib.Do(func(sel *library.Selector) error {
		sel.ExpandAll()
		return nil
	}); err != nil {
		return err
	}
	return lib.Render(func(_ *library.Selector, row selector.Row[source.Document]) {
		name := row.Node.Name()
		if _, ok := row.Node.(*vfs.Folder[source.Document]); ok {
			name += "/"
		}
		if row.Node.IsLocked() {
			name += " (locked)"
		}
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", row.Depth), name)
	})
}

// NewSortModesCmd builds the sort-modes subcommand.
func NewSortModesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sort-modes",
		Short: "List the available sort modes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, mode := range vfs.SortModes() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", mode, mode.Name(), mode.Description())
			}
			return tw.Flush()
		},
	}
}
