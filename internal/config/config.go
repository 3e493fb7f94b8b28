package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all costwatch configuration.
type Config struct {
	AWS     AWSConfig     `mapstructure:"aws"`
	Cost    CostConfig    `mapstructure:"cost"`
	Budget  BudgetConfig  `mapstructure:"budget"`
	Email   EmailConfig   `mapstructure:"email"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Alerts  AlertsConfig  `mapstructure:"alerts"`
	History HistoryConfig `mapstructure:"history"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// AWSConfig defines AWS client settings.
type AWSConfig struct {
	Region string `mapstructure:"region"`
}

// CostConfig defines what cost data is queried.
type CostConfig struct {
	Metric      string `mapstructure:"metric"`
	TopServices int    `mapstructure:"top_services"`
	TrendDays   int    `mapstructure:"trend_days"`
	CreditDays  int    `mapstructure:"credit_days"`
}

// BudgetConfig defines budget alerting settings. ParamName is the SSM
// parameter holding the budget ceiling; empty disables budgeting.
type BudgetConfig struct {
	ParamName           string    `mapstructure:"param_name"`
	AlertStateParam     string    `mapstructure:"alert_state_param"`
	Thresholds          []float64 `mapstructure:"thresholds"`
	AnomalyThresholdPct float64   `mapstructure:"anomaly_threshold_pct"`
}

// EmailConfig defines the report email envelope.
type EmailConfig struct {
	SubjectPrefix string   `mapstructure:"subject_prefix"`
	Sender        string   `mapstructure:"sender"`
	Recipients    []string `mapstructure:"recipients"`
}

// ArchiveConfig defines S3 archival settings.
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Bucket  string `mapstructure:"bucket"`
}

// AlertsConfig defines alert fan-out integrations.
type AlertsConfig struct {
	Slack   SlackConfig   `mapstructure:"slack"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Secret  string `mapstructure:"secret"`
}

// HistoryConfig defines the local run journal. An empty path disables it.
type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".costwatch"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults mirror the historical Lambda environment.
	v.SetDefault("cost.metric", "UnblendedCost")
	v.SetDefault("cost.top_services", 10)
	v.SetDefault("cost.trend_days", 7)
	v.SetDefault("cost.credit_days", 14)
	v.SetDefault("budget.alert_state_param", "/costwatch/last-alert-month")
	v.SetDefault("budget.thresholds", []float64{50, 75, 90, 100})
	v.SetDefault("budget.anomaly_threshold_pct", 30)
	v.SetDefault("email.subject_prefix", "AWS Cost Alert")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("alerts.slack.channel", "#cloud-costs")

	// Environment variables
	v.SetEnvPrefix("COSTWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.normalize()
	return &cfg, nil
}

// normalize clamps bad numeric settings back to their defaults rather than
// failing the run.
func (c *Config) normalize() {
	if c.Cost.TopServices <= 0 {
		c.Cost.TopServices = 10
	}
	if c.Cost.TrendDays <= 0 {
		c.Cost.TrendDays = 7
	}
	if c.Cost.CreditDays <= 0 {
		c.Cost.CreditDays = 14
	}
	if c.Budget.AnomalyThresholdPct <= 0 {
		c.Budget.AnomalyThresholdPct = 30
	}
}

// ThresholdSet returns the budget thresholds as an ascending, de-duplicated
// decimal set. Non-positive entries are dropped; an empty result falls back
// to the defaults.
func (b BudgetConfig) ThresholdSet() []decimal.Decimal {
	seen := make(map[string]bool, len(b.Thresholds))
	var out []decimal.Decimal
	for _, t := range b.Thresholds {
		d := decimal.NewFromFloat(t)
		if !d.IsPositive() || seen[d.String()] {
			continue
		}
		seen[d.String()] = true
		out = append(out, d)
	}
	if len(out) == 0 {
		for _, t := range []int64{50, 75, 90, 100} {
			out = append(out, decimal.NewFromInt(t))
		}
		return out
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LessThan(out[j]) })
	return out
}

// AnomalyThreshold returns the anomaly threshold as a decimal percentage.
func (b BudgetConfig) AnomalyThreshold() decimal.Decimal {
	return decimal.NewFromFloat(b.AnomalyThresholdPct)
}
