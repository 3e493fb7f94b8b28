package alerts

import (
	"github.com/shopspring/decimal"

	"github.com/yapay-ai/costwatch/pkg/model"
)

var hundred = decimal.NewFromInt(100)

// CheckBudgetThresholds returns one BudgetThresholdAlert per crossed
// threshold, in ascending threshold order. It is a pure function: no I/O and
// no memory of prior calls. Suppression of repeat alerts is the caller's job.
//
// No alerts fire when the budget is absent or non-positive, or when net
// spend (gross minus credits) is non-positive.
func CheckBudgetThresholds(mtdGross, creditsUsed model.Money, budget BudgetConfig) []Alert {
	if budget.Amount == nil || !budget.Amount.IsPositive() {
		return nil
	}
	net := mtdGross.Sub(creditsUsed)
	if !net.IsPositive() {
		return nil
	}
	percentUsed := net.Amount.Div(budget.Amount.Amount).Mul(hundred)

	var fired []Alert
	for _, t := range budget.Thresholds {
		if percentUsed.GreaterThanOrEqual(t) {
			fired = append(fired, BudgetThresholdAlert{
				ThresholdPercent: t,
				PercentUsed:      percentUsed,
			})
		}
	}
	return fired
}

// CheckDailyAnomaly flags the latest day if it deviates above the trailing
// average by at least thresholdPercent. The input must be chronological with
// the latest day last. Fewer than 2 points, or a zero average, yields no
// signal; malformed data is never an error here.
func CheckDailyAnomaly(daily []model.DailyCost, thresholdPercent decimal.Decimal) (DailyAnomalyAlert, bool) {
	if len(daily) < 2 {
		return DailyAnomalyAlert{}, false
	}
	latest := daily[len(daily)-1]
	history := daily[:len(daily)-1]

	sum := decimal.Zero
	for _, d := range history {
		sum = sum.Add(d.Amount.Amount)
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(history))))
	if avg.IsZero() {
		return DailyAnomalyAlert{}, false
	}

	percentOver := latest.Amount.Amount.Sub(avg).Div(avg).Mul(hundred)
	if percentOver.LessThan(thresholdPercent) {
		return DailyAnomalyAlert{}, false
	}

	return DailyAnomalyAlert{
		Date:               latest.Date,
		Amount:             latest.Amount,
		Average:            model.NewMoney(avg, latest.Amount.Unit),
		PercentOverAverage: percentOver,
		ThresholdPercent:   thresholdPercent,
	}, true
}
