// Package httpserver runs the auxiliary HTTP endpoints of the CLI (metrics
// and health checks) with graceful shutdown and slog logging.
//
//	srv := httpserver.New(
//	    httpserver.WithAddr(":9090"),
//	    httpserver.WithLogger(log),
//	)
//
//	mux := http.NewServeMux()
//	mux.Handle("/metrics", promhttp.Handler())
//	mux.Handle("/healthz", httpserver.HealthCheckHandler(log, manager.Healthcheck))
//
//	// Blocks until ctx is done or SIGINT/SIGTERM arrives.
//	if err := srv.Run(ctx, mux); err != nil {
//	    return err
//	}
//
// A failure to listen is returned wrapped in ErrStart, a failed graceful
// shutdown in ErrShutdown.
package httpserver
