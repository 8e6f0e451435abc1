package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gfx.cafe/gfx/dbfleet/lib/driver"
)

func newQueryCommand() *cobra.Command {
	var pool string

	cmd := &cobra.Command{
		Use:   "query [sql]",
		Short: "add every configured node, run one statement against a pool, and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")

			cluster, _, tp, err := buildCluster(path, zap.NewNop())
			if err != nil {
				return err
			}
			defer tp.Shutdown(context.Background())
			defer cluster.End(true)

			ctx := &driver.QueryContext{Pool: pool, AST: args[0]}
			if err := cluster.Query(ctx); err != nil {
				return err
			}

			fmt.Println(ctx.Result)
			return nil
		},
	}

	cmd.Flags().StringVar(&pool, "pool", "read", "pool to run the statement against")
	return cmd
}

func newDescribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe [name...]",
		Short: "add every configured node and print schema for the given object names",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")

			cluster, _, tp, err := buildCluster(path, zap.NewNop())
			if err != nil {
				return err
			}
			defer tp.Shutdown(context.Background())
			defer cluster.End(true)

			desc, err := cluster.Describe(args)
			if err != nil {
				return err
			}

			for name, table := range desc.Tables {
				fmt.Printf("%s: %v\n", name, table.Columns)
			}
			return nil
		},
	}
}
