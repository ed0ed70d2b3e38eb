// Package cmd contains the CLI commands for alertctl.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// Used for flags
	serverURL string
	output    string
	timeout   time.Duration
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "alertctl",
	Short: "alertctl - command line client for alertd",
	Long: `alertctl talks to a running alertd over its HTTP API.

Examples:
  # Submit a metric sample
  alertctl submit error_count 12 --tag env=prod

  # List firing alerts
  alertctl alerts

  # Resolve an alert
  alertctl resolve high-error-rate-1772366400000`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	defaultServer := os.Getenv("ALERTD_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}

	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", defaultServer, "alertd base URL (env ALERTD_SERVER)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
}

// GetOutput returns the output format.
func GetOutput() string {
	return output
}

func newClient() *Client {
	return NewClient(serverURL, timeout)
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// truncate shortens s to n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-2]) + ".."
}
