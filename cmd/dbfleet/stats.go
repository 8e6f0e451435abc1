package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "add every configured node and print a single cluster snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")

			logger := zap.NewNop()
			cluster, _, tp, err := buildCluster(path, logger)
			if err != nil {
				return err
			}
			defer tp.Shutdown(context.Background())
			defer cluster.End(true)

			stats := cluster.Stats()
			fmt.Printf("live nodes:      %d\n", stats.LiveNodes)
			fmt.Printf("queue depth:     %d\n", stats.QueueDepth)
			fmt.Printf("pending requests: %d\n", stats.Requests)
			for pool, n := range stats.IdleByPool {
				fmt.Printf("idle[%s]:        %d\n", pool, n)
			}
			return nil
		},
	}
}
