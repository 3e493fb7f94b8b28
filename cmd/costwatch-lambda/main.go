// Lambda entrypoint. The scheduler event selects the flow: {"flow":"monitor"}
// runs the threshold monitor, anything else runs the full daily report. The
// response mirrors an API Gateway proxy result with a JSON string body.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	ce "github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/yapay-ai/costwatch/internal/archive"
	"github.com/yapay-ai/costwatch/internal/config"
	"github.com/yapay-ai/costwatch/internal/costexplorer"
	"github.com/yapay-ai/costwatch/internal/mailer"
	"github.com/yapay-ai/costwatch/internal/paramstore"
	"github.com/yapay-ai/costwatch/internal/report"
	"github.com/yapay-ai/costwatch/pkg/alerts"
)

type event struct {
	Flow string `json:"flow"`
}

type response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

func main() {
	runner, err := buildRunner(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "init: %v\n", err)
		os.Exit(1)
	}

	lambda.Start(func(ctx context.Context, ev event) (response, error) {
		var resp report.Response
		if ev.Flow == "monitor" {
			resp = runner.Monitor(ctx)
		} else {
			resp = runner.Run(ctx)
		}

		body, err := json.Marshal(resp.Body)
		if err != nil {
			return response{}, fmt.Errorf("marshal response: %w", err)
		}
		return response{StatusCode: resp.StatusCode, Body: string(body)}, nil
	})
}

func buildRunner(ctx context.Context) (*report.Runner, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := setupLogger(cfg)

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.AWS.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWS.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
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

	return report.NewRunner(deps), nil
}

func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
