package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/apkscan/internal/config"
)

// NewRootCmd creates the root command for apkscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apkscan",
		Short: "Triage tool for Android application packages",
		Long: `apkscan is a triage tool for Android application packages (APKs).

Packages are loaded into a local repository, selected, and scanned. A scan
extracts every application, activity, service, receiver and provider the
manifest declares, and can decompile the package to measure obfuscation and
search the sources for hard-coded credentials.

Typical workflow:
  apkscan load -d ./samples
  apkscan list
  apkscan select 1,2
  apkscan scan --all`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write log output as JSON")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output (also honors NO_COLOR)")
	cmd.PersistentFlags().String("data-dir", config.XDGDataDir(),
		"Directory holding the package repository and decompiled sources")
	cmd.PersistentFlags().String("session-file", config.SessionPath(),
		"File holding the current package selection")

	// Add subcommands
	cmd.AddCommand(NewLoadCmd())
	cmd.AddCommand(NewListCmd())
	cmd.AddCommand(NewSelectCmd())
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewShowCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
