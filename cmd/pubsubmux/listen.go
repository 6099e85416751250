package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/pubsubmux/pkg/httpserver"
	"github.com/dmitrymomot/pubsubmux/pkg/pubsubmux"
)

func listenCmd(g *globals) *cobra.Command {
	var (
		metricsAddr string
		shutdown    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "listen CHANNEL [CHANNEL...]",
		Short: "Subscribe to channels and print every message until interrupted",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			m, err := pubsubmux.NewFromConfig(ctx, g.cfg,
				pubsubmux.WithLogger(g.log),
				pubsubmux.WithMetrics(reg),
			)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, channel := range args {
				_, err := m.Subscribe(channel, func(payload string) {
					fmt.Fprintf(out, "%s\t%s\n", channel, payload)
				})
				if err != nil {
					return errors.Join(err, m.Close())
				}
			}
			g.log.InfoContext(ctx, "listening", "channels", m.Channels())

			eg, gctx := errgroup.WithContext(ctx)
			if metricsAddr != "" {
				srv := httpserver.New(
					httpserver.WithAddr(metricsAddr),
					httpserver.WithShutdownTimeout(shutdown),
					httpserver.WithLogger(g.log.With("component", "metrics")),
				)
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
				mux.Handle("/healthz", httpserver.HealthCheckHandler(g.log, m.Healthcheck))
				eg.Go(func() error { return srv.Run(gctx, mux) })
			}

			<-gctx.Done()

			sctx, cancel := context.WithTimeout(context.Background(), shutdown)
			defer cancel()
			return errors.Join(eg.Wait(), m.Shutdown(sctx))
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	cmd.Flags().DurationVar(&shutdown, "shutdown-timeout", 5*time.Second, "how long to wait for a clean shutdown")
	return cmd
}
