package report

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yapay-ai/costwatch/internal/costexplorer"
	"github.com/yapay-ai/costwatch/internal/history"
	"github.com/yapay-ai/costwatch/internal/mailer"
	"github.com/yapay-ai/costwatch/pkg/alerts"
	"github.com/yapay-ai/costwatch/pkg/credits"
	"github.com/yapay-ai/costwatch/pkg/model"
)

// Billing is the cost-query surface the assembler consumes.
type Billing interface {
	MonthlyDailyBreakdown(ctx context.Context, today time.Time, metric string, trendDays int) (costexplorer.Breakdown, error)
	MonthToDate(ctx context.Context, today time.Time, metric string) (model.CostResult, error)
	ServiceBreakdown(ctx context.Context, today time.Time, metric string, maxServices int) (model.ServiceBreakdown, error)
	CreditUsage(ctx context.Context, today time.Time, metric string) (model.CreditUsage, error)
	CreditDailyHistory(ctx context.Context, today time.Time, metric string, days int) ([]model.Money, error)
	Forecast(ctx context.Context, today time.Time, metric string) (model.CostResult, error)
	WeekOverWeek(ctx context.Context, today time.Time, metric string) (model.WeekOverWeek, error)
}

// ParamStore reads the budget and alert-state parameters.
type ParamStore interface {
	BudgetAmount(ctx context.Context, name string) (decimal.Decimal, bool)
	AlertState(ctx context.Context, name string) (string, bool)
	SetAlertState(ctx context.Context, name, tag string) error
}

// Mailer sends the rendered email.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) (string, error)
}

// Archiver stores the raw report payload.
type Archiver interface {
	Store(ctx context.Context, reportDate time.Time, payload any) (string, error)
}

// Journal records completed runs locally.
type Journal interface {
	Record(ctx context.Context, r *history.RunRecord) error
}

// FiredAlert pairs an alert with its kind for JSON archival.
type FiredAlert struct {
	Kind  alerts.Kind  `json:"kind"`
	Alert alerts.Alert `json:"detail"`
}

// Report is the assembled cost report for one day. Absent sections are nil;
// rendering degrades gracefully around them.
type Report struct {
	Date           time.Time               `json:"date"`
	Metric         string                  `json:"metric"`
	MonthToDate    model.CostResult        `json:"month_to_date"`
	PreviousDay    model.CostResult        `json:"previous_day"`
	Forecast       *model.CostResult       `json:"forecast,omitempty"`
	DailyCosts     []model.DailyCost       `json:"daily_costs,omitempty"`
	Services       *model.ServiceBreakdown `json:"service_breakdown,omitempty"`
	Credits        *model.CreditUsage      `json:"credit_info,omitempty"`
	WeekOverWeek   *model.WeekOverWeek     `json:"week_over_week,omitempty"`
	CreditEstimate *credits.Estimate       `json:"credit_estimate,omitempty"`
	BudgetAmount   *model.Money            `json:"budget_amount,omitempty"`
	Alerts         []FiredAlert            `json:"alerts"`
}

// Summary is the machine-readable result of a report run.
type Summary struct {
	Status       string `json:"status"`
	RunID        string `json:"run_id"`
	Timestamp    string `json:"timestamp"`
	Metric       string `json:"metric"`
	Gross        string `json:"gross,omitempty"`
	Net          string `json:"net,omitempty"`
	BudgetAmount string `json:"budget_amount,omitempty"`
	AlertsFired  int    `json:"alerts_fired"`
	SESMessageID string `json:"ses_message_id,omitempty"`
	EmailError   string `json:"email_error,omitempty"`
	ArchiveKey   string `json:"archive_key,omitempty"`
	Error        string `json:"error,omitempty"`
}

// MonitorSummary is the machine-readable result of a monitor run.
type MonitorSummary struct {
	Status       string `json:"status"`
	RunID        string `json:"run_id"`
	Timestamp    string `json:"timestamp"`
	Alert        bool   `json:"alert"`
	Reason       string `json:"reason,omitempty"`
	Gross        string `json:"gross,omitempty"`
	Net          string `json:"net,omitempty"`
	Threshold    string `json:"threshold,omitempty"`
	SESMessageID string `json:"ses_message_id,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Response is the HTTP-200-shaped invocation result. Partial failures
// (email, archive) stay inside the body; only a failed primary cost fetch
// produces a non-200 status code.
type Response struct {
	StatusCode int `json:"statusCode"`
	Body       any `json:"body"`
}

const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusError   = "error"
)
