package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielpatrickdp/baler/go-codec/internal/codec"
	"github.com/danielpatrickdp/baler/go-codec/internal/metrics"
	"github.com/danielpatrickdp/baler/go-codec/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

// #region serve
func serveCmd(opts *options) *cobra.Command {
	var grpcAddr, metricsAddr, version string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a model version over gRPC with Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			set := metrics.New(reg)
			l, err := pipeline.Load(s.store, s.cfg.ModelName, version, set.Codec)
			if err != nil {
				return err
			}

			lis, err := net.Listen("tcp", grpcAddr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", grpcAddr, err)
			}
			g := grpc.NewServer()
			codec.NewServer(l, s.cfg.CompressionRatio, s.logger).Register(g)

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
			hs := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			eg, ctx := errgroup.WithContext(ctx)
			eg.Go(func() error { return g.Serve(lis) })
			eg.Go(func() error {
				if err := hs.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			eg.Go(func() error {
				<-ctx.Done()
				g.GracefulStop()
				shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return hs.Shutdown(shutdown)
			})

			s.logger.Info("serving", "version", l.Version.VersionID, "model", l.Version.Arch.Name,
				"grpc", lis.Addr().String(), "metrics", metricsAddr)
			return eg.Wait()
		},
	}
	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "localhost:50051", "gRPC listen address")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "localhost:9090", "Prometheus /metrics listen address")
	cmd.Flags().StringVar(&version, "version", "", "model version (default the active one)")
	return cmd
}

// #endregion serve
