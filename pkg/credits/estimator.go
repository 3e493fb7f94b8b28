// Package credits projects end-of-month credit consumption from recent
// daily burn.
package credits

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/yapay-ai/costwatch/pkg/model"
	"github.com/yapay-ai/costwatch/pkg/period"
)

// Estimate is a flat linear projection of credit usage to month end.
type Estimate struct {
	AvgDailyBurn            model.Money `json:"avg_daily_burn"`
	CreditsUsedSoFar        model.Money `json:"credits_used_so_far"`
	ProjectedMonthlyCredits model.Money `json:"projected_monthly_credits"`
	DaysElapsed             int         `json:"days_elapsed"`
	DaysRemaining           int         `json:"days_remaining"`
}

// EstimateBurn projects monthly credit usage from the trailing daily history.
// There is no estimate when credits used so far is non-positive, the history
// is empty, or the average daily burn is non-positive. Deterministic and
// pure; days elapsed is floored at 1 so DaysElapsed + DaysRemaining always
// equals the number of days in the month.
func EstimateBurn(creditsUsed model.Money, dailyHistory []model.Money, today time.Time) (Estimate, bool) {
	if !creditsUsed.IsPositive() || len(dailyHistory) == 0 {
		return Estimate{}, false
	}

	sum := decimal.Zero
	for _, d := range dailyHistory {
		sum = sum.Add(d.Amount)
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(dailyHistory))))
	if !avg.IsPositive() {
		return Estimate{}, false
	}

	daysInMonth := period.DaysInMonth(today)
	daysElapsed := period.DaysElapsed(today)
	if daysElapsed < 1 {
		daysElapsed = 1
	}

	unit := creditsUsed.Unit
	return Estimate{
		AvgDailyBurn:            model.NewMoney(avg, unit),
		CreditsUsedSoFar:        creditsUsed,
		ProjectedMonthlyCredits: model.NewMoney(avg.Mul(decimal.NewFromInt(int64(daysInMonth))), unit),
		DaysElapsed:             daysElapsed,
		DaysRemaining:           daysInMonth - daysElapsed,
	}, true
}
