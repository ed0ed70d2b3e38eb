package alerting

// Default channel ids used by the built-in rules. They match the channels
// registered by notifier.DefaultChannels.
const (
	ChannelSlack     = "slack-alerts"
	ChannelEmail     = "email-alerts"
	ChannelWebhook   = "webhook-alerts"
	ChannelPagerDuty = "pagerduty-oncall"
	ChannelDiscord   = "discord-alerts"
)

// DefaultRules returns the built-in PropertyLend platform rules.
func DefaultRules() []*Rule {
	return []*Rule{
		{
			ID:          "high-error-rate",
			Name:        "High Error Rate",
			Description: "More than 10 application errors reported",
			Severity:    SeverityCritical,
			Condition: Condition{
				Metric:            "error_count",
				Operator:          OpGreaterThan,
				Threshold:         10,
				TimeWindowSeconds: 300,
			},
			Channels: []string{ChannelSlack, ChannelEmail, ChannelPagerDuty},
			Enabled:  true,
			Tags:     map[string]string{"team": "platform"},
		},
		{
			ID:          "high-cpu-usage",
			Name:        "High CPU Usage",
			Description: "CPU usage above 90% on two consecutive samples",
			Severity:    SeverityWarning,
			Condition: Condition{
				Metric:            "cpu_usage",
				Operator:          OpGreaterThan,
				Threshold:         90,
				TimeWindowSeconds: 120,
				ConsecutiveCount:  2,
			},
			Channels: []string{ChannelSlack},
			Enabled:  true,
			Tags:     map[string]string{"team": "infrastructure"},
		},
		{
			ID:          "high-memory-usage",
			Name:        "High Memory Usage",
			Description: "Memory usage above 85% on three consecutive samples",
			Severity:    SeverityWarning,
			Condition: Condition{
				Metric:            "memory_usage",
				Operator:          OpGreaterThan,
				Threshold:         85,
				TimeWindowSeconds: 300,
				ConsecutiveCount:  3,
			},
			Channels: []string{ChannelSlack},
			Enabled:  true,
			Tags:     map[string]string{"team": "infrastructure"},
		},
		{
			ID:          "slow-response-time",
			Name:        "Slow Response Time",
			Description: "API response time above 2000ms",
			Severity:    SeverityWarning,
			Condition: Condition{
				Metric:            "response_time_ms",
				Operator:          OpGreaterThan,
				Threshold:         2000,
				TimeWindowSeconds: 300,
				ConsecutiveCount:  3,
			},
			Channels: []string{ChannelSlack, ChannelDiscord},
			Enabled:  true,
			Tags:     map[string]string{"team": "platform"},
		},
		{
			ID:          "system-health-critical",
			Name:        "System Health Critical",
			Description: "Health check reports the system as down",
			Severity:    SeverityEmergency,
			Condition: Condition{
				Metric:            "system_health",
				Operator:          OpEqual,
				Threshold:         0,
				TimeWindowSeconds: 120,
				ConsecutiveCount:  2,
			},
			Channels: []string{ChannelSlack, ChannelEmail, ChannelPagerDuty, ChannelWebhook, ChannelDiscord},
			Enabled:  true,
			Tags:     map[string]string{"team": "platform"},
		},
		{
			ID:          "failed-transactions",
			Name:        "Failed Transactions",
			Description: "More than 5 failed on-chain transactions",
			Severity:    SeverityCritical,
			Condition: Condition{
				Metric:            "failed_transactions",
				Operator:          OpGreaterThan,
				Threshold:         5,
				TimeWindowSeconds: 600,
			},
			Channels: []string{ChannelSlack, ChannelPagerDuty, ChannelWebhook},
			Enabled:  true,
			Tags:     map[string]string{"team": "blockchain"},
		},
		{
			ID:          "low-pool-liquidity",
			Name:        "Low Pool Liquidity",
			Description: "Lending pool utilization-adjusted liquidity below 10%",
			Severity:    SeverityCritical,
			Condition: Condition{
				Metric:            "pool_liquidity_ratio",
				Operator:          OpLessThan,
				Threshold:         0.1,
				TimeWindowSeconds: 900,
				ConsecutiveCount:  2,
			},
			Channels: []string{ChannelSlack, ChannelEmail, ChannelWebhook},
			Enabled:  true,
			Tags:     map[string]string{"team": "lending"},
		},
		{
			ID:          "oracle-price-stale",
			Name:        "Oracle Price Stale",
			Description: "Property valuation oracle not updated for over an hour",
			Severity:    SeverityInfo,
			Condition: Condition{
				Metric:            "oracle_update_age_seconds",
				Operator:          OpGreaterOrEqual,
				Threshold:         3600,
				TimeWindowSeconds: 3600,
			},
			Channels: []string{ChannelSlack},
			Enabled:  true,
			Tags:     map[string]string{"team": "blockchain"},
		},
	}
}
