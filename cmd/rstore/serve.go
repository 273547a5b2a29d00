package main

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/rstore/internal/errors"
	"github.com/vango-dev/rstore/pkg/inspect"
	"github.com/vango-dev/rstore/pkg/lifecycle"
	"github.com/vango-dev/rstore/pkg/observe"
	"github.com/vango-dev/rstore/pkg/store"
)

const shutdownTimeout = 5 * time.Second

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the store with the HTTP inspector",
		Long: `Run the store and serve the inspector over HTTP.

The store is seeded from the config's data section, restored from the
configured snapshot, and flushed back when the process receives SIGINT
or SIGTERM.

Routes:
  GET  /slots              Snapshot of every set slot
  GET  /slots/{name}       Current value of one slot
  PUT  /slots/{name}       Write a JSON value
  GET  /slots/{name}/watch Websocket stream of changes
  POST /flush              Write the snapshot now
  GET  /metrics            Prometheus metrics

Examples:
  rstore serve
  rstore serve --addr :7070
  rstore serve -c deploy/rstore.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")

	return cmd
}

func runServe(cmd *cobra.Command, addr string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Inspector.Addr = addr
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return errors.New("E122").WithDetail("Invalid --addr " + addr).Wrap(err)
		}
	}

	logger := newLogger(cfg.Log, os.Stderr)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	mode, err := cfg.Mode()
	if err != nil {
		return errors.FromError(err, "E202")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	obs := observe.New(observe.WithRegistry(reg))

	hooks := lifecycle.NewHooks()
	adapter, closeBackend, err := newAdapter(ctx, cfg, mode, hooks, logger, obs)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeBackend(); err != nil {
			logger.Warn("backend close failed", "error", err)
		}
	}()

	opts := []store.Option{
		store.WithLogger(logger),
		store.WithObserver(obs),
		store.WithPersistence(adapter),
	}
	if cfg.StrictNames {
		opts = append(opts, store.WithStrictNames())
	}
	s := store.New(opts...)

	boot, err := cfg.Bootstrap()
	if err != nil {
		return errors.FromError(err, "E200")
	}
	if err := s.Initialize(ctx, boot); err != nil {
		return errors.FromError(err, "E220")
	}

	inspOpts := []inspect.Option{
		inspect.WithLogger(logger),
		inspect.WithAllowedOrigins(cfg.Inspector.AllowedOrigins...),
	}
	if cfg.MetricsEnabled() {
		inspOpts = append(inspOpts, inspect.WithGatherer(reg))
	}
	insp := inspect.New(s, inspOpts...)

	srv := &http.Server{
		Addr:              cfg.Inspector.Addr,
		Handler:           insp,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Registered after Initialize so the snapshot flush runs first.
	stopping := make(chan struct{})
	hooks.OnTerminate(func() { close(stopping) })
	stop := lifecycle.NotifySignals(ctx, hooks)
	defer stop()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()

	printBanner(cmd)
	success(cmd, "Serving %d slots on http://%s", s.Len(), cfg.Inspector.Addr)
	info(cmd, "Persistence: %s", mode)
	if cfg.StrictNames {
		info(cmd, "Strict names enabled")
	}

	select {
	case <-stopping:
	case err := <-serveErr:
		if !stderrors.Is(err, http.ErrServerClosed) {
			hooks.Terminate()
			return errors.New("E142").Wrap(err)
		}
	}

	warn(cmd, "Shutting down")
	insp.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.New("E142").WithDetail("Graceful shutdown did not finish").Wrap(err)
	}
	return nil
}
