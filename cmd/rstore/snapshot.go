package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/rstore/internal/errors"
	"github.com/vango-dev/rstore/pkg/value"
)

func snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect or remove the persisted snapshot",
		Long: `Inspect or remove the snapshot stored under the configured key.

The backend is the one configured for the persistence mode. Use --mode
to read the other backend.`,
	}

	cmd.PersistentFlags().String("mode", "", "Persistence mode to read (local or session; default from config)")
	cmd.AddCommand(snapshotShowCmd(), snapshotClearCmd())

	return cmd
}

func snapshotShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the persisted snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotShow(cmd)
		},
	}
}

func runSnapshotShow(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	mode, err := persistedMode(cmd, cfg)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log, os.Stderr)
	b, err := backendFor(cmd.Context(), cfg, mode, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	data, err := b.Get(cmd.Context(), cfg.Key)
	if err != nil {
		return errors.New("E220").Wrap(err)
	}
	if len(data) == 0 {
		warn(cmd, "No snapshot stored under %q (%s)", cfg.Key, mode)
		return nil
	}

	out, err := formatSnapshot(data)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

// formatSnapshot checks that data is a snapshot object and indents it.
func formatSnapshot(data []byte) (string, error) {
	doc, err := value.Parse(data)
	if err != nil {
		return "", errors.New("E221").Wrap(err)
	}
	if doc.Kind() != value.KindObject {
		return "", errors.New("E221").WithDetail("Snapshot is " + doc.Kind().String() + ", not an object")
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return "", errors.New("E221").Wrap(err)
	}
	return buf.String(), nil
}

func snapshotClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the persisted snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotClear(cmd)
		},
	}
}

func runSnapshotClear(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	mode, err := persistedMode(cmd, cfg)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log, os.Stderr)
	b, err := backendFor(cmd.Context(), cfg, mode, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.Remove(cmd.Context(), cfg.Key); err != nil {
		return errors.New("E220").Wrap(err)
	}
	success(cmd, "Removed snapshot %q (%s)", cfg.Key, mode)
	return nil
}
