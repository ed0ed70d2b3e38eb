package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/alertd/internal/alerting"
)

var (
	alertsHistory bool
	alertsLimit   int
	submitTags    []string
)

var submitCmd = &cobra.Command{
	Use:   "submit <metric> <value>",
	Short: "Submit a metric sample",
	Long: `Submit a metric sample for rule evaluation.

Example:
  alertctl submit cpu_usage 93.5 --tag host=api-1 --tag env=prod`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", args[1], err)
		}
		tags, err := parseTags(submitTags)
		if err != nil {
			return err
		}

		ctx, cancel := requestContext(cmd)
		defer cancel()
		alerts, err := newClient().SubmitMetric(ctx, args[0], value, tags)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if GetOutput() == "json" {
			return printJSON(out, alerts)
		}
		if len(alerts) == 0 {
			fmt.Fprintln(out, "Accepted, no alerts triggered.")
			return nil
		}
		printAlerts(out, alerts)
		return nil
	},
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List firing alerts, or all alerts with --history",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		client := newClient()
		var (
			alerts []*alerting.Alert
			err    error
		)
		if alertsHistory {
			alerts, err = client.AlertHistory(ctx, alertsLimit)
		} else {
			alerts, err = client.ActiveAlerts(ctx)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if GetOutput() == "json" {
			return printJSON(out, alerts)
		}
		if len(alerts) == 0 {
			fmt.Fprintln(out, "No alerts found.")
			return nil
		}
		printAlerts(out, alerts)
		return nil
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <alert-id>",
	Short: "Resolve a firing alert",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		alert, err := newClient().ResolveAlert(ctx, args[0])
		if err != nil {
			return err
		}
		if GetOutput() == "json" {
			return printJSON(cmd.OutOrStdout(), alert)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Alert %s resolved.\n", args[0])
		return nil
	},
}

func init() {
	submitCmd.Flags().StringArrayVarP(&submitTags, "tag", "t", nil, "tag as key=value (repeatable)")
	alertsCmd.Flags().BoolVar(&alertsHistory, "history", false, "include resolved alerts")
	alertsCmd.Flags().IntVarP(&alertsLimit, "limit", "n", 100, "maximum alerts with --history")

	rootCmd.AddCommand(submitCmd, alertsCmd, resolveCmd)
}

func parseTags(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	tags := make(map[string]string, len(raw))
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid tag %q, want key=value", kv)
		}
		tags[k] = v
	}
	return tags, nil
}

func printAlerts(w io.Writer, alerts []*alerting.Alert) {
	fmt.Fprintf(w, "\n%-40s  %-9s  %-8s  %-20s  %s\n", "ID", "SEVERITY", "STATUS", "TIME", "MESSAGE")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for _, a := range alerts {
		fmt.Fprintf(w, "%-40s  %-9s  %-8s  %-20s  %s\n",
			truncate(a.ID, 40),
			a.Severity,
			a.Status,
			a.Timestamp.Local().Format("2006-01-02 15:04:05"),
			truncate(a.Message, 60),
		)
	}
	fmt.Fprintf(w, "\nTotal: %d alert(s)\n", len(alerts))
}
