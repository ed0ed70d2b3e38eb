package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/good-yellow-bee/alertd/internal/alerting"
	"github.com/good-yellow-bee/alertd/internal/logging"
	"github.com/good-yellow-bee/alertd/pkg/config"
)

var (
	configFile string
	httpAddr   string
	logLevel   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "alertd",
	Short: "alertd - alert evaluation and notification dispatch service",
	Long: `alertd evaluates submitted metrics against alert rules, tracks the
resulting alerts and delivers notifications to Slack, email, webhooks,
PagerDuty and Discord.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the alert service (default)",
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := config.GetBuildInfo()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "alertd %s\n", info.Version)
		fmt.Fprintf(out, "  commit: %s\n", info.Commit)
		fmt.Fprintf(out, "  built:  %s\n", info.BuildTime)
		fmt.Fprintf(out, "  go:     %s %s/%s\n", info.GoVersion, info.OS, info.Arch)
	},
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Rule file utilities",
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a rules file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, err := alerting.LoadRulesFromFile(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d valid rule(s)\n", args[0], len(rules))
		for _, r := range rules {
			state := "enabled"
			if !r.Enabled {
				state = "disabled"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  %-28s %-9s %s %s %g (%s)\n",
				r.ID, r.Severity, r.Condition.Metric, r.Condition.Operator.Symbol(), r.Condition.Threshold, state)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every HTTP request")

	rulesCmd.AddCommand(rulesValidateCmd)
	rootCmd.AddCommand(serveCmd, versionCmd, rulesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if configFile != "" {
		cfg, err = LoadConfig(configFile)
	} else {
		cfg, err = LoadConfigFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// Override with CLI flags
	if httpAddr != "" {
		cfg.Server.HTTPAddress = httpAddr
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	cfg.Verbose = verbose

	return cfg, cfg.Validate()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	info := config.GetBuildInfo()
	logger.Info("starting alertd", zap.String("version", info.Version), zap.String("commit", info.Commit))

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		return fmt.Errorf("run server: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
