// Package cli implements the costwatch command line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	ce "github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/spf13/cobra"

	"github.com/yapay-ai/costwatch/internal/archive"
	"github.com/yapay-ai/costwatch/internal/config"
	"github.com/yapay-ai/costwatch/internal/costexplorer"
	"github.com/yapay-ai/costwatch/internal/history"
	"github.com/yapay-ai/costwatch/internal/mailer"
	"github.com/yapay-ai/costwatch/internal/paramstore"
	"github.com/yapay-ai/costwatch/internal/report"
	"github.com/yapay-ai/costwatch/pkg/alerts"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	cfgFile    string
	policyFile string
)

var rootCmd = &cobra.Command{
	Use:   "costwatch",
	Short: "costwatch - AWS cost reporting and budget alerting",
	Long: `costwatch queries AWS Cost Explorer and emails a daily cost report:
month-to-date spend, top services, credits, forecast, and week-over-week
comparison, with budget threshold and anomaly alerts.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.costwatch/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&policyFile, "policy", "", "budget policy file (overrides SSM budget)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// buildRunner wires the AWS clients and supporting pieces into a Runner.
// The returned closer releases the run journal when one is configured.
func buildRunner(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*report.Runner, func(), error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.AWS.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWS.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("load aws config: %w", err)
	}

	deps := report.Deps{
		Billing: costexplorer.New(ce.NewFromConfig(awsCfg), logger),
		Params:  paramstore.New(ssm.NewFromConfig(awsCfg), logger),
		Mailer:  mailer.New(ses.NewFromConfig(awsCfg)),
		Config:  cfg,
		Logger:  logger,
	}

	if cfg.Archive.Enabled {
		deps.Archiver = archive.New(s3.NewFromConfig(awsCfg), cfg.Archive.Bucket, logger)
	}

	if cfg.Alerts.Slack.Enabled {
		deps.Notifiers = append(deps.Notifiers, alerts.NewSlackNotifier(cfg.Alerts.Slack.WebhookURL, cfg.Alerts.Slack.Channel))
	}
	if cfg.Alerts.Webhook.Enabled {
		deps.Notifiers = append(deps.Notifiers, alerts.NewWebhookNotifier(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret))
	}

	if policyFile != "" {
		policy, err := config.LoadPolicy(policyFile)
		if err != nil {
			return nil, nil, err
		}
		deps.Policy = policy
	}

	closer := func() {}
	if cfg.History.Path != "" {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			logger.Warn("run journal unavailable", "path", cfg.History.Path, "error", err)
		} else {
			deps.Journal = store
			closer = func() { store.Close() }
		}
	}

	return report.NewRunner(deps), closer, nil
}
