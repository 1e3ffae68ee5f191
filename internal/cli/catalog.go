package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/cartridge/internal/catalog"
)

// CatalogOptions holds flags for the catalog command.
type CatalogOptions struct {
	*RootOptions
	Query string
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "catalog <path>",
		Short: "List the events cartridges accept",
		Long: `List every event of every statechart as a dot path
(cartridge.statechart.event) with the states it can be sent from.

Examples:
  cartridge catalog ./cartridges
  cartridge catalog ./cartridges --query jump
  cartridge catalog ./cartridges --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "case-insensitive substring filter")
	return cmd
}

func runCatalog(opts *CatalogOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	loaded, err := loadValid(opts.RootOptions, path, f)
	if err != nil {
		return err
	}

	events := catalog.Build(loaded.Cartridges).Search(opts.Query)
	return f.Success(events, func(w io.Writer) {
		if len(events) == 0 {
			fmt.Fprintln(w, "No events found.")
			return
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PATH\tFROM\tTO")
		for _, ev := range events {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", ev.Path, strings.Join(ev.FromStates, ","), ev.ToState)
		}
		tw.Flush()
	})
}
