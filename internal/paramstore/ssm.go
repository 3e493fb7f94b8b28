// Package paramstore reads the budget amount and the alert-state marker from
// SSM Parameter Store. Absent or malformed values are reported as absent, not
// as errors; only the marker write can fail loudly.
package paramstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/shopspring/decimal"
)

// API is the subset of the SSM service used by Client.
type API interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

// Client wraps parameter reads and the alert-marker write.
type Client struct {
	api    API
	logger *slog.Logger
}

// New creates a Client over the given API.
func New(api API, logger *slog.Logger) *Client {
	return &Client{api: api, logger: logger}
}

// BudgetAmount reads the budget ceiling from the named parameter. A missing
// name disables budgeting; a read failure or non-numeric value is logged and
// treated as absent.
func (c *Client) BudgetAmount(ctx context.Context, name string) (decimal.Decimal, bool) {
	if name == "" {
		return decimal.Decimal{}, false
	}
	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(false),
	})
	if err != nil {
		c.logger.Error("ssm read failed", "parameter", name, "error", err)
		return decimal.Decimal{}, false
	}
	raw := aws.ToString(out.Parameter.Value)
	if raw == "" {
		return decimal.Decimal{}, false
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		c.logger.Error("ssm parameter is not a number", "parameter", name, "value", raw)
		return decimal.Decimal{}, false
	}
	return amount, true
}

// AlertState reads the year-month tag of the last sent threshold alert.
// Absent on any read failure; a missing marker just means no alert was sent.
func (c *Client) AlertState(ctx context.Context, name string) (string, bool) {
	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(false),
	})
	if err != nil {
		return "", false
	}
	tag := aws.ToString(out.Parameter.Value)
	return tag, tag != ""
}

// SetAlertState overwrites the alert-state marker with the given year-month
// tag. Called only after a successful notification send.
func (c *Client) SetAlertState(ctx context.Context, name, tag string) error {
	_, err := c.api.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(name),
		Value:     aws.String(tag),
		Type:      types.ParameterTypeString,
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("write alert state %s: %w", name, err)
	}
	return nil
}
