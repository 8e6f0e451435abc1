package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand() *cobra.Command {
	var endNow bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the cluster, serving /metrics until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")

			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer logger.Sync()

			cluster, file, tp, err := buildCluster(path, logger)
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tp.Shutdown(ctx)
			}()

			stop := make(chan struct{})
			go pollStats(cluster, 5*time.Second, stop)

			var srv *http.Server
			if file.Metrics.Enabled {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.Handler())
				srv = &http.Server{Addr: file.Metrics.Addr, Handler: mux}
				go func() {
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						logger.Error("metrics server stopped", zap.Error(err))
					}
				}()
				logger.Info("serving metrics", zap.String("addr", file.Metrics.Addr))
			}

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig

			logger.Info("shutting down", zap.Bool("end_now", endNow))
			close(stop)

			if srv != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(ctx)
			}

			return cluster.End(endNow)
		},
	}

	cmd.Flags().BoolVar(&endNow, "force", false, "abort pending requests instead of draining them on shutdown")

	return cmd
}
