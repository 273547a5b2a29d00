package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/rstore/internal/errors"
)

func validateCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the config file",
		Long: `Load and validate the config file without starting anything.

Checks the persistence mode, storage drivers, inspector address, log
settings and the shape of the data section.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print errors as JSON")

	return cmd
}

func runValidate(cmd *cobra.Command, asJSON bool) error {
	err := validateConfig(cmd)
	if err == nil {
		return nil
	}
	if !asJSON {
		return err
	}

	// JSON output goes to stdout; the exit status still reports failure.
	fmt.Fprintln(cmd.OutOrStdout(), errors.FromError(err, "E120").FormatJSON())
	return errSilent
}

func validateConfig(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	boot, err := cfg.Bootstrap()
	if err != nil {
		return errors.FromError(err, "E200")
	}

	success(cmd, "%s is valid", cfg.Path())
	info(cmd, "Slots:       %d", len(boot.Data))
	info(cmd, "Persistence: %s", boot.Persist)
	return nil
}
