package alerts

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yapay-ai/costwatch/pkg/model"
)

// Kind identifies an alert variant.
type Kind string

const (
	KindBudgetThreshold Kind = "BUDGET_THRESHOLD"
	KindDailyAnomaly    Kind = "DAILY_ANOMALY"
)

// Alert is a fact emitted by one evaluation. There are exactly two variants:
// BudgetThresholdAlert and DailyAnomalyAlert. Alerts are created fresh each
// evaluation and never persisted.
type Alert interface {
	Kind() Kind

	// Summary is a one-line human rendering used by notifiers and the
	// plain-text email body.
	Summary() string
}

// BudgetThresholdAlert fires when net month-to-date spend crosses a
// configured percentage of the budget.
type BudgetThresholdAlert struct {
	ThresholdPercent decimal.Decimal `json:"threshold_percent"`
	PercentUsed      decimal.Decimal `json:"percent_used"`
}

func (BudgetThresholdAlert) Kind() Kind { return KindBudgetThreshold }

func (a BudgetThresholdAlert) Summary() string {
	return "Budget at " + a.PercentUsed.StringFixed(1) + "% (threshold " + a.ThresholdPercent.StringFixed(1) + "%)"
}

// DailyAnomalyAlert fires when the latest day's spend exceeds the trailing
// average by more than the configured percentage. Only above-average spikes
// are flagged; spend drops are not anomalies.
type DailyAnomalyAlert struct {
	Date               time.Time       `json:"date"`
	Amount             model.Money     `json:"amount"`
	Average            model.Money     `json:"average"`
	PercentOverAverage decimal.Decimal `json:"percent_over_average"`
	ThresholdPercent   decimal.Decimal `json:"threshold_percent"`
}

func (DailyAnomalyAlert) Kind() Kind { return KindDailyAnomaly }

func (a DailyAnomalyAlert) Summary() string {
	return "Daily anomaly: " + a.PercentOverAverage.StringFixed(1) + "% above average"
}

// BudgetConfig is the externally supplied budget. Amount is nil when no
// budget is configured; budgeting is opt-in.
type BudgetConfig struct {
	Amount     *model.Money
	Thresholds []decimal.Decimal
}

// Notifier delivers fired alerts to an external system.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers an alert. Implementations must be safe for concurrent use.
	Send(ctx context.Context, alert Alert) error
}
