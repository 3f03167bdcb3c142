// Package cli wires the monitor's commands together. Each command lives
// in its own file with a cobra command var and a plain function holding
// the logic, so the logic stays testable without cobra in the loop.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// configFlag holds the --config persistent flag value.
var configFlag string

// rootCmd is the base command; running it bare prints help.
var rootCmd = &cobra.Command{
	Use:   "xrplmon",
	Short: "Monitor a rippled node's health and alert on trouble",
	Long: `xrplmon polls a rippled node over its websocket RPC, records health
snapshots, raises alerts when metrics cross thresholds, and serves the
collected history over an HTTP API.

Examples:
  xrplmon init
  xrplmon serve
  xrplmon status`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to config file")
}

// Config returns the value of the --config flag.
func Config() string {
	return configFlag
}

// Execute runs the root command and exits non-zero on error. Errors from
// the internal errors package already carry formatting and a suggestion.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
