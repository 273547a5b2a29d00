package main

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/rstore/internal/config"
	"github.com/vango-dev/rstore/internal/errors"
	"github.com/vango-dev/rstore/pkg/lifecycle"
	"github.com/vango-dev/rstore/pkg/persist"
	"github.com/vango-dev/rstore/pkg/storage"
)

// loadConfig loads the file named by --config, or the nearest config file
// from the working directory, and validates it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the CLI logger from the log section.
func newLogger(lc config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// backendFor opens the storage backend of mode.
func backendFor(ctx context.Context, cfg *config.Config, mode persist.Mode, logger *slog.Logger) (storage.Backend, error) {
	b, err := storage.Open(ctx, cfg.StorageFor(mode), logger)
	if err != nil {
		return nil, errors.New("E220").
			WithDetail("Could not open the " + mode.String() + " backend").
			Wrap(err)
	}
	return b, nil
}

// newAdapter opens the backend of mode and builds an adapter over it.
// Mode none opens nothing. The returned close func releases the backend.
func newAdapter(ctx context.Context, cfg *config.Config, mode persist.Mode, lc lifecycle.Lifecycle, logger *slog.Logger, obs persist.Observer) (*persist.Adapter, func() error, error) {
	opts := []persist.Option{
		persist.WithKey(cfg.Key),
		persist.WithFlushTimeout(cfg.FlushTimeoutDuration()),
		persist.WithLifecycle(lc),
		persist.WithLogger(logger),
	}
	if obs != nil {
		opts = append(opts, persist.WithObserver(obs))
	}

	closeFn := func() error { return nil }
	switch mode {
	case persist.Local, persist.Session:
		b, err := backendFor(ctx, cfg, mode, logger)
		if err != nil {
			return nil, nil, err
		}
		if mode == persist.Local {
			opts = append(opts, persist.WithLocal(b))
		} else {
			opts = append(opts, persist.WithSession(b))
		}
		closeFn = b.Close
	}
	return persist.New(opts...), closeFn, nil
}

// persistedMode resolves --mode against the config and rejects none.
func persistedMode(cmd *cobra.Command, cfg *config.Config) (persist.Mode, error) {
	name, _ := cmd.Flags().GetString("mode")
	if name == "" {
		name = cfg.Persist
	}
	mode, err := persist.ParseMode(name)
	if err != nil {
		return persist.None, errors.FromError(err, "E202")
	}
	if mode == persist.None {
		return persist.None, errors.New("E141").
			WithSuggestion("Pass --mode local or --mode session, or set persist in the config")
	}
	return mode, nil
}
