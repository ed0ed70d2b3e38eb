package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Alert rule commands",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List alert rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		rules, err := newClient().Rules(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if GetOutput() == "json" {
			return printJSON(out, rules)
		}
		if len(rules) == 0 {
			fmt.Fprintln(out, "No rules found.")
			return nil
		}
		fmt.Fprintf(out, "\n%-28s  %-9s  %-34s  %-8s  %s\n", "ID", "SEVERITY", "CONDITION", "ENABLED", "CHANNELS")
		fmt.Fprintln(out, strings.Repeat("-", 110))
		for _, r := range rules {
			cond := fmt.Sprintf("%s %s %g", r.Condition.Metric, r.Condition.Operator.Symbol(), r.Condition.Threshold)
			fmt.Fprintf(out, "%-28s  %-9s  %-34s  %-8t  %s\n",
				truncate(r.ID, 28), r.Severity, truncate(cond, 34), r.Enabled, strings.Join(r.Channels, ","))
		}
		fmt.Fprintf(out, "\nTotal: %d rule(s)\n", len(rules))
		return nil
	},
}

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "Notification channel commands",
}

var channelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notification channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()

		channels, err := newClient().Channels(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if GetOutput() == "json" {
			return printJSON(out, channels)
		}
		if len(channels) == 0 {
			fmt.Fprintln(out, "No channels found.")
			return nil
		}
		fmt.Fprintf(out, "\n%-24s  %-24s  %-10s  %s\n", "ID", "NAME", "TYPE", "ENABLED")
		fmt.Fprintln(out, strings.Repeat("-", 70))
		for _, ch := range channels {
			fmt.Fprintf(out, "%-24s  %-24s  %-10s  %t\n", truncate(ch.ID, 24), truncate(ch.Name, 24), ch.Type, ch.Enabled)
		}
		fmt.Fprintf(out, "\nTotal: %d channel(s)\n", len(channels))
		return nil
	},
}

func init() {
	rulesCmd.AddCommand(rulesListCmd)
	channelsCmd.AddCommand(channelsListCmd)
	rootCmd.AddCommand(rulesCmd, channelsCmd)
}

func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}
