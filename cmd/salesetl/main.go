// Command salesetl extracts the sales data sources, cleans them and loads
// the results into PostgreSQL.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time
var Version = "dev"

type rootOptions struct {
	configPath string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "salesetl",
		Short: "Sales data ingress",
		Long: `salesetl extracts users, card details, stores, products, orders and date
events from their sources, cleans them and replaces the matching tables in
the PostgreSQL warehouse.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: ./salesetl.yaml)")

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newListTablesCmd(opts))
	cmd.AddCommand(newScheduleCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "salesetl %s\n", Version)
		},
	}
}
