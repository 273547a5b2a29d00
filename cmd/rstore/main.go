package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/rstore/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┬─┐┌─┐┌┬┐┌─┐┬─┐┌─┐
  ├┬┘└─┐ │ │ │├┬┘├┤
  ┴└─└─┘ ┴ └─┘┴└─└─┘
`

// errSilent fails a command whose output already reported the problem.
var errSilent = stderrors.New("silent failure")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !stderrors.Is(err, errSilent) {
			errors.PrintError(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var noColor bool

	rootCmd := &cobra.Command{
		Use:   "rstore",
		Short: "Reactive key/value store with snapshot persistence",
		Long: `rstore runs a reactive key/value store and inspects its snapshots.

Slots are seeded from rstore.json (or rstore.yaml), optionally restored
from a local or session snapshot, and written back when the process
terminates.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor || os.Getenv("NO_COLOR") != "" {
				errors.DisableColors()
			}
		},
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default: nearest rstore.json or rstore.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		initCmd(),
		serveCmd(),
		snapshotCmd(),
		validateCmd(),
		versionCmd(),
	)
	return rootCmd
}

// printBanner prints the ASCII art banner.
func printBanner(cmd *cobra.Command) {
	fmt.Fprint(cmd.OutOrStdout(), banner)
}

// success prints a success message.
func success(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", errors.Success("✓"), fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", errors.Warning("⚠"), fmt.Sprintf(format, args...))
}
