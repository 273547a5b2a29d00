package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/rstore/internal/config"
	"github.com/vango-dev/rstore/internal/errors"
)

func initCmd() *cobra.Command {
	var (
		useYAML bool
		persist string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a starter config file",
		Long: `Write a starter rstore.json (or rstore.yaml with --yaml) with default
settings and an example slot.

Examples:
  rstore init
  rstore init --yaml --persist local ./deploy`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(cmd, dir, useYAML, persist, force)
		},
	}

	cmd.Flags().BoolVar(&useYAML, "yaml", false, "Write rstore.yaml instead of rstore.json")
	cmd.Flags().StringVar(&persist, "persist", "none", "Persistence mode (none, local, session)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, useYAML bool, persist string, force bool) error {
	name := config.ConfigFileName
	if useYAML {
		name = config.YAMLConfigFileName
	}
	path := filepath.Join(dir, name)

	if !force && config.Exists(dir) {
		return errors.Newf(errors.CategoryCLI, "a config file already exists in %s", dir).
			WithSuggestion("Pass --force to overwrite it")
	}

	cfg := config.New()
	cfg.Persist = persist
	cfg.Data = map[string]any{"greeting": "hello"}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Newf(errors.CategoryCLI, "cannot create %s", dir).Wrap(err)
	}
	if err := cfg.SaveTo(path); err != nil {
		return err
	}

	success(cmd, "Wrote %s", path)
	info(cmd, "Run 'rstore serve' to start the store")
	return nil
}
