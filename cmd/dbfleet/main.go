package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "dbfleet",
		Short: "dbfleet manages a cluster of database connection pools",
	}

	root.PersistentFlags().StringP("config", "c", "dbfleet.yaml", "path to the cluster config file")

	root.AddCommand(newServeCommand())
	root.AddCommand(newStatsCommand())
	root.AddCommand(newQueryCommand())
	root.AddCommand(newDescribeCommand())

	return root
}
