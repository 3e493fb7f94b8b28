// Package costexplorer wraps the AWS Cost Explorer API behind the small set
// of queries the report needs. Every zero-length date range is detected
// before a request is issued and resolves to a zero result.
package costexplorer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	ce "github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/shopspring/decimal"

	"github.com/yapay-ai/costwatch/pkg/model"
	"github.com/yapay-ai/costwatch/pkg/period"
)

const dateLayout = "2006-01-02"

// API is the subset of the Cost Explorer service used by Client. Tests
// substitute a function-field mock.
type API interface {
	GetCostAndUsage(ctx context.Context, params *ce.GetCostAndUsageInput, optFns ...func(*ce.Options)) (*ce.GetCostAndUsageOutput, error)
	GetCostForecast(ctx context.Context, params *ce.GetCostForecastInput, optFns ...func(*ce.Options)) (*ce.GetCostForecastOutput, error)
}

// Client issues cost queries and normalizes responses into model types.
type Client struct {
	api    API
	logger *slog.Logger
}

// New creates a Client over the given API.
func New(api API, logger *slog.Logger) *Client {
	return &Client{api: api, logger: logger}
}

// Record types carrying credits and discounts; excluded from spend queries
// and selected by credit queries.
var (
	excludeRecordTypes = types.Expression{
		Not: &types.Expression{
			Dimensions: &types.DimensionValues{
				Key:    types.DimensionRecordType,
				Values: []string{"Credit", "Refund", "Enterprise Discount Program Discount"},
			},
		},
	}
	creditFilter = types.Expression{
		Dimensions: &types.DimensionValues{
			Key:    types.DimensionRecordType,
			Values: []string{"Credit", "Enterprise Discount Program Discount"},
		},
	}
)

var forecastMetrics = map[string]types.Metric{
	"UnblendedCost":    types.MetricUnblendedCost,
	"BlendedCost":      types.MetricBlendedCost,
	"AmortizedCost":    types.MetricAmortizedCost,
	"NetAmortizedCost": types.MetricNetAmortizedCost,
	"NetUnblendedCost": types.MetricNetUnblendedCost,
}

// Breakdown is the result of the combined daily-granularity month query:
// month-to-date total, the most recent complete day, and the trailing trend
// window, all from a single API call.
type Breakdown struct {
	MonthToDate model.CostResult
	PreviousDay model.CostResult
	DailyCosts  []model.DailyCost
}

// MonthlyDailyBreakdown queries the current month at daily granularity and
// derives the MTD total, previous day, and last trendDays of daily spend.
func (c *Client) MonthlyDailyBreakdown(ctx context.Context, today time.Time, metric string, trendDays int) (Breakdown, error) {
	start, end := period.MonthPeriod(today)
	if start.Equal(end) {
		zero := model.CostResult{Start: start, End: end, Amount: model.ZeroMoney("USD")}
		return Breakdown{MonthToDate: zero, PreviousDay: zero}, nil
	}

	out, err := c.api.GetCostAndUsage(ctx, &ce.GetCostAndUsageInput{
		TimePeriod:  interval(start, end),
		Granularity: types.GranularityDaily,
		Metrics:     []string{metric},
		Filter:      &excludeRecordTypes,
	})
	if err != nil {
		return Breakdown{}, fmt.Errorf("daily breakdown: %w", err)
	}

	var days []model.DailyCost
	total := decimal.Zero
	unit := ""
	for _, entry := range out.ResultsByTime {
		info := entry.Total[metric]
		amount, ok := c.parseAmount(info.Amount)
		if info.Unit != nil && *info.Unit != "" {
			unit = reconcile(unit, *info.Unit)
		}
		if !ok {
			continue
		}
		total = total.Add(amount)
		date, derr := time.Parse(dateLayout, aws.ToString(entry.TimePeriod.Start))
		if derr != nil {
			c.logger.Warn("invalid result date", "value", aws.ToString(entry.TimePeriod.Start))
			continue
		}
		days = append(days, model.DailyCost{Date: date, Amount: model.NewMoney(amount, unit)})
	}

	prev := model.CostResult{Start: start, End: end, Amount: model.ZeroMoney(orUSD(unit))}
	if len(days) > 0 {
		last := days[len(days)-1]
		prev = model.CostResult{Start: last.Date, End: end, Amount: last.Amount}
	}
	trend := days
	if len(days) > trendDays {
		trend = days[len(days)-trendDays:]
	}

	return Breakdown{
		MonthToDate: model.CostResult{Start: start, End: end, Amount: model.NewMoney(total, orUSD(unit))},
		PreviousDay: prev,
		DailyCosts:  trend,
	}, nil
}

// MonthToDate is the standalone MTD query used by the threshold monitor.
func (c *Client) MonthToDate(ctx context.Context, today time.Time, metric string) (model.CostResult, error) {
	start, end := period.MonthPeriod(today)
	if start.Equal(end) {
		return model.CostResult{Start: start, End: end, Amount: model.ZeroMoney("USD")}, nil
	}

	out, err := c.api.GetCostAndUsage(ctx, &ce.GetCostAndUsageInput{
		TimePeriod:  interval(start, end),
		Granularity: types.GranularityMonthly,
		Metrics:     []string{metric},
		Filter:      &excludeRecordTypes,
	})
	if err != nil {
		return model.CostResult{}, fmt.Errorf("month to date: %w", err)
	}

	amount := c.sumResults(out.ResultsByTime, metric)
	return model.CostResult{Start: start, End: end, Amount: amount}, nil
}

// CreditUsage returns the absolute value of credits and discounts applied
// this month.
func (c *Client) CreditUsage(ctx context.Context, today time.Time, metric string) (model.CreditUsage, error) {
	start, end := period.MonthPeriod(today)
	if start.Equal(end) {
		return model.CreditUsage{Used: model.ZeroMoney("USD")}, nil
	}

	out, err := c.api.GetCostAndUsage(ctx, &ce.GetCostAndUsageInput{
		TimePeriod:  interval(start, end),
		Granularity: types.GranularityMonthly,
		Metrics:     []string{metric},
		Filter:      &creditFilter,
	})
	if err != nil {
		return model.CreditUsage{}, fmt.Errorf("credit usage: %w", err)
	}

	return model.CreditUsage{Used: c.sumResults(out.ResultsByTime, metric).Abs()}, nil
}

// CreditDailyHistory returns per-day credit amounts (absolute values) for
// the trailing window, used to compute the burn rate.
func (c *Client) CreditDailyHistory(ctx context.Context, today time.Time, metric string, days int) ([]model.Money, error) {
	end := period.DateOf(today)
	start := end.AddDate(0, 0, -days)

	out, err := c.api.GetCostAndUsage(ctx, &ce.GetCostAndUsageInput{
		TimePeriod:  interval(start, end),
		Granularity: types.GranularityDaily,
		Metrics:     []string{metric},
		Filter:      &creditFilter,
	})
	if err != nil {
		return nil, fmt.Errorf("credit daily history: %w", err)
	}

	var history []model.Money
	for _, entry := range out.ResultsByTime {
		info := entry.Total[metric]
		amount, ok := c.parseAmount(info.Amount)
		if !ok {
			continue
		}
		history = append(history, model.NewMoney(amount.Abs(), orUSD(aws.ToString(info.Unit))))
	}
	return history, nil
}

// Forecast returns the provider's spend projection from today to month end.
func (c *Client) Forecast(ctx context.Context, today time.Time, metric string) (model.CostResult, error) {
	start := period.DateOf(today)
	end := period.MonthEnd(today)

	forecastMetric, ok := forecastMetrics[metric]
	if !ok {
		forecastMetric = types.MetricUnblendedCost
	}

	out, err := c.api.GetCostForecast(ctx, &ce.GetCostForecastInput{
		TimePeriod:  interval(start, end),
		Metric:      forecastMetric,
		Granularity: types.GranularityMonthly,
	})
	if err != nil {
		return model.CostResult{}, fmt.Errorf("forecast: %w", err)
	}

	result := model.CostResult{Start: start, End: end}
	if out.Total != nil {
		if amount, ok := c.parseAmount(out.Total.Amount); ok {
			result.Amount = model.NewMoney(amount, aws.ToString(out.Total.Unit))
		}
	}
	return result, nil
}

// WeekOverWeek compares this week's spend (Monday through today) against the
// same elapsed days of last week. On a Monday there is no data for this week
// yet and both sides are zero without any query.
func (c *Client) WeekOverWeek(ctx context.Context, today time.Time, metric string) (model.WeekOverWeek, error) {
	thisStart, thisEnd, lastStart, lastEnd := period.WeekWindows(today)
	if thisStart.Equal(thisEnd) {
		return model.WeekOverWeek{ThisWeek: model.ZeroMoney("USD"), LastWeek: model.ZeroMoney("USD")}, nil
	}

	thisWeek, err := c.rangeTotal(ctx, thisStart, thisEnd, metric)
	if err != nil {
		return model.WeekOverWeek{}, fmt.Errorf("week over week: %w", err)
	}

	if lastStart.Equal(lastEnd) {
		return model.WeekOverWeek{ThisWeek: thisWeek, LastWeek: model.ZeroMoney(orUSD(thisWeek.Unit))}, nil
	}

	lastWeek, err := c.rangeTotal(ctx, lastStart, lastEnd, metric)
	if err != nil {
		return model.WeekOverWeek{}, fmt.Errorf("week over week: %w", err)
	}

	wow := model.WeekOverWeek{ThisWeek: thisWeek, LastWeek: lastWeek}
	if lastWeek.IsPositive() {
		change := thisWeek.Amount.Sub(lastWeek.Amount).Div(lastWeek.Amount).Mul(decimal.NewFromInt(100))
		wow.ChangePercent = &change
	}
	return wow, nil
}

// ServiceBreakdown returns the top services by spend this month, excluding
// credits, sorted descending with ties in original API order.
func (c *Client) ServiceBreakdown(ctx context.Context, today time.Time, metric string, maxServices int) (model.ServiceBreakdown, error) {
	start, end := period.MonthPeriod(today)
	if start.Equal(end) {
		return model.ServiceBreakdown{Total: model.ZeroMoney("USD")}, nil
	}

	var groups []types.Group
	var token *string
	for {
		out, err := c.api.GetCostAndUsage(ctx, &ce.GetCostAndUsageInput{
			TimePeriod:  interval(start, end),
			Granularity: types.GranularityMonthly,
			Metrics:     []string{metric},
			GroupBy: []types.GroupDefinition{
				{Type: types.GroupDefinitionTypeDimension, Key: aws.String("SERVICE")},
			},
			Filter:        &excludeRecordTypes,
			NextPageToken: token,
		})
		if err != nil {
			return model.ServiceBreakdown{}, fmt.Errorf("service breakdown: %w", err)
		}
		if len(out.ResultsByTime) > 0 {
			groups = append(groups, out.ResultsByTime[0].Groups...)
		}
		token = out.NextPageToken
		if token == nil {
			break
		}
	}

	var services []model.ServiceCost
	total := decimal.Zero
	unit := ""
	for _, g := range groups {
		name := "Unknown"
		if len(g.Keys) > 0 {
			name = g.Keys[0]
		}
		info := g.Metrics[metric]
		amount, ok := c.parseAmount(info.Amount)
		if !ok {
			continue
		}
		unit = reconcile(unit, aws.ToString(info.Unit))
		total = total.Add(amount)
		services = append(services, model.ServiceCost{Service: name, Amount: model.NewMoney(amount, unit)})
	}

	// Stable sort keeps the API's tie order.
	sortServicesDesc(services)
	if len(services) > maxServices {
		services = services[:maxServices]
	}
	for i := range services {
		if total.IsPositive() {
			services[i].PercentOfTotal = services[i].Amount.Amount.Div(total).Mul(decimal.NewFromInt(100))
		} else {
			services[i].PercentOfTotal = decimal.Zero
		}
	}

	return model.ServiceBreakdown{Total: model.NewMoney(total, orUSD(unit)), Services: services}, nil
}

func (c *Client) rangeTotal(ctx context.Context, start, end time.Time, metric string) (model.Money, error) {
	out, err := c.api.GetCostAndUsage(ctx, &ce.GetCostAndUsageInput{
		TimePeriod:  interval(start, end),
		Granularity: types.GranularityMonthly,
		Metrics:     []string{metric},
		Filter:      &excludeRecordTypes,
	})
	if err != nil {
		return model.Money{}, err
	}
	return c.sumResults(out.ResultsByTime, metric), nil
}

// sumResults totals the metric across result periods, discarding malformed
// amounts with a warning.
func (c *Client) sumResults(results []types.ResultByTime, metric string) model.Money {
	total := decimal.Zero
	unit := ""
	for _, entry := range results {
		info := entry.Total[metric]
		amount, ok := c.parseAmount(info.Amount)
		unit = reconcile(unit, aws.ToString(info.Unit))
		if ok {
			total = total.Add(amount)
		}
	}
	return model.NewMoney(total, orUSD(unit))
}

func (c *Client) parseAmount(raw *string) (decimal.Decimal, bool) {
	if raw == nil {
		return decimal.Decimal{}, false
	}
	amount, err := decimal.NewFromString(*raw)
	if err != nil {
		c.logger.Warn("invalid cost amount", "value", *raw)
		return decimal.Decimal{}, false
	}
	return amount, true
}

func interval(start, end time.Time) *types.DateInterval {
	return &types.DateInterval{
		Start: aws.String(start.Format(dateLayout)),
		End:   aws.String(end.Format(dateLayout)),
	}
}

func sortServicesDesc(services []model.ServiceCost) {
	sort.SliceStable(services, func(i, j int) bool {
		return services[i].Amount.Amount.GreaterThan(services[j].Amount.Amount)
	})
}

func reconcile(current, next string) string {
	if current != "" {
		return current
	}
	return next
}

func orUSD(unit string) string {
	if unit == "" {
		return "USD"
	}
	return unit
}
