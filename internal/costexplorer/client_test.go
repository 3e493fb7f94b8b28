package costexplorer_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	ce "github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yapay-ai/costwatch/internal/costexplorer"
)

type mockAPI struct {
	getCostAndUsage func(ctx context.Context, params *ce.GetCostAndUsageInput) (*ce.GetCostAndUsageOutput, error)
	getCostForecast func(ctx context.Context, params *ce.GetCostForecastInput) (*ce.GetCostForecastOutput, error)
}

func (m *mockAPI) GetCostAndUsage(ctx context.Context, params *ce.GetCostAndUsageInput, _ ...func(*ce.Options)) (*ce.GetCostAndUsageOutput, error) {
	return m.getCostAndUsage(ctx, params)
}

func (m *mockAPI) GetCostForecast(ctx context.Context, params *ce.GetCostForecastInput, _ ...func(*ce.Options)) (*ce.GetCostForecastOutput, error) {
	return m.getCostForecast(ctx, params)
}

func newClient(t *testing.T, api *mockAPI) *costexplorer.Client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return costexplorer.New(api, logger)
}

func failingAPI(t *testing.T) *mockAPI {
	t.Helper()
	return &mockAPI{
		getCostAndUsage: func(context.Context, *ce.GetCostAndUsageInput) (*ce.GetCostAndUsageOutput, error) {
			t.Fatal("unexpected GetCostAndUsage call")
			return nil, nil
		},
		getCostForecast: func(context.Context, *ce.GetCostForecastInput) (*ce.GetCostForecastOutput, error) {
			t.Fatal("unexpected GetCostForecast call")
			return nil, nil
		},
	}
}

func dayResult(date, amount string) types.ResultByTime {
	next, _ := time.Parse("2006-01-02", date)
	return types.ResultByTime{
		TimePeriod: &types.DateInterval{
			Start: aws.String(date),
			End:   aws.String(next.AddDate(0, 0, 1).Format("2006-01-02")),
		},
		Total: map[string]types.MetricValue{
			"UnblendedCost": {Amount: aws.String(amount), Unit: aws.String("USD")},
		},
	}
}

var aug10 = time.Date(2026, time.August, 10, 0, 0, 0, 0, time.UTC)

func TestMonthlyDailyBreakdown(t *testing.T) {
	var captured *ce.GetCostAndUsageInput
	api := &mockAPI{
		getCostAndUsage: func(_ context.Context, params *ce.GetCostAndUsageInput) (*ce.GetCostAndUsageOutput, error) {
			captured = params
			return &ce.GetCostAndUsageOutput{
				ResultsByTime: []types.ResultByTime{
					dayResult("2026-08-01", "10"),
					dayResult("2026-08-02", "20"),
					dayResult("2026-08-03", "30"),
					dayResult("2026-08-04", "40"),
				},
			}, nil
		},
	}

	b, err := newClient(t, api).MonthlyDailyBreakdown(context.Background(), time.Date(2026, time.August, 5, 0, 0, 0, 0, time.UTC), "UnblendedCost", 2)
	require.NoError(t, err)

	assert.Equal(t, types.GranularityDaily, captured.Granularity)
	assert.Equal(t, "2026-08-01", aws.ToString(captured.TimePeriod.Start))
	assert.Equal(t, "2026-08-05", aws.ToString(captured.TimePeriod.End))
	require.NotNil(t, captured.Filter.Not, "spend queries exclude credit record types")

	assert.True(t, b.MonthToDate.Amount.Amount.Equal(decimal.NewFromInt(100)))
	assert.True(t, b.PreviousDay.Amount.Amount.Equal(decimal.NewFromInt(40)))

	// Trend trimmed to the last trendDays.
	require.Len(t, b.DailyCosts, 2)
	assert.Equal(t, "2026-08-03", b.DailyCosts[0].Date.Format("2006-01-02"))
	assert.Equal(t, "2026-08-04", b.DailyCosts[1].Date.Format("2006-01-02"))
}

func TestMonthlyDailyBreakdown_SkipsMalformedAmounts(t *testing.T) {
	api := &mockAPI{
		getCostAndUsage: func(context.Context, *ce.GetCostAndUsageInput) (*ce.GetCostAndUsageOutput, error) {
			return &ce.GetCostAndUsageOutput{
				ResultsByTime: []types.ResultByTime{
					dayResult("2026-08-01", "10"),
					dayResult("2026-08-02", "garbage"),
					dayResult("2026-08-03", "5"),
				},
			}, nil
		},
	}

	b, err := newClient(t, api).MonthlyDailyBreakdown(context.Background(), aug10, "UnblendedCost", 7)
	require.NoError(t, err)
	assert.True(t, b.MonthToDate.Amount.Amount.Equal(decimal.NewFromInt(15)))
	assert.Len(t, b.DailyCosts, 2)
}

func TestMonthToDate_FirstOfMonth(t *testing.T) {
	// No elapsed days: zero result without any API call.
	first := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	mtd, err := newClient(t, failingAPI(t)).MonthToDate(context.Background(), first, "UnblendedCost")
	require.NoError(t, err)
	assert.True(t, mtd.Amount.Amount.IsZero())
	assert.Equal(t, "USD", mtd.Amount.Unit)
}

func TestCreditUsage_AbsoluteValue(t *testing.T) {
	var captured *ce.GetCostAndUsageInput
	api := &mockAPI{
		getCostAndUsage: func(_ context.Context, params *ce.GetCostAndUsageInput) (*ce.GetCostAndUsageOutput, error) {
			captured = params
			return &ce.GetCostAndUsageOutput{
				ResultsByTime: []types.ResultByTime{dayResult("2026-08-01", "-42.5")},
			}, nil
		},
	}

	cu, err := newClient(t, api).CreditUsage(context.Background(), aug10, "UnblendedCost")
	require.NoError(t, err)

	// Credit queries select credit record types directly, no Not wrapper.
	require.NotNil(t, captured.Filter.Dimensions)
	assert.Equal(t, types.DimensionRecordType, captured.Filter.Dimensions.Key)
	assert.Contains(t, captured.Filter.Dimensions.Values, "Credit")

	assert.True(t, cu.Used.Amount.Equal(decimal.RequireFromString("42.5")))
}

func TestWeekOverWeek(t *testing.T) {
	calls := 0
	api := &mockAPI{
		getCostAndUsage: func(_ context.Context, params *ce.GetCostAndUsageInput) (*ce.GetCostAndUsageOutput, error) {
			calls++
			amount := "150" // this week
			if calls == 2 {
				amount = "100" // last week
			}
			return &ce.GetCostAndUsageOutput{
				ResultsByTime: []types.ResultByTime{dayResult(aws.ToString(params.TimePeriod.Start), amount)},
			}, nil
		},
	}

	// 2026-08-23 is a Sunday.
	wow, err := newClient(t, api).WeekOverWeek(context.Background(), time.Date(2026, time.August, 23, 0, 0, 0, 0, time.UTC), "UnblendedCost")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.NotNil(t, wow.ChangePercent)
	assert.True(t, wow.ChangePercent.Equal(decimal.NewFromInt(50)))
}

func TestWeekOverWeek_Monday(t *testing.T) {
	// Monday: zero-length window, no queries, both sides zero.
	monday := time.Date(2026, time.August, 17, 0, 0, 0, 0, time.UTC)
	wow, err := newClient(t, failingAPI(t)).WeekOverWeek(context.Background(), monday, "UnblendedCost")
	require.NoError(t, err)
	assert.True(t, wow.ThisWeek.Amount.IsZero())
	assert.True(t, wow.LastWeek.Amount.IsZero())
	assert.Nil(t, wow.ChangePercent)
}

func TestWeekOverWeek_ZeroLastWeek(t *testing.T) {
	api := &mockAPI{
		getCostAndUsage: func(_ context.Context, params *ce.GetCostAndUsageInput) (*ce.GetCostAndUsageOutput, error) {
			return &ce.GetCostAndUsageOutput{
				ResultsByTime: []types.ResultByTime{dayResult(aws.ToString(params.TimePeriod.Start), "0")},
			}, nil
		},
	}

	wow, err := newClient(t, api).WeekOverWeek(context.Background(), time.Date(2026, time.August, 23, 0, 0, 0, 0, time.UTC), "UnblendedCost")
	require.NoError(t, err)
	assert.Nil(t, wow.ChangePercent, "no percent when last week is zero")
}

func serviceGroup(name, amount string) types.Group {
	return types.Group{
		Keys: []string{name},
		Metrics: map[string]types.MetricValue{
			"UnblendedCost": {Amount: aws.String(amount), Unit: aws.String("USD")},
		},
	}
}

func TestServiceBreakdown(t *testing.T) {
	api := &mockAPI{
		getCostAndUsage: func(_ context.Context, params *ce.GetCostAndUsageInput) (*ce.GetCostAndUsageOutput, error) {
			if params.NextPageToken == nil {
				return &ce.GetCostAndUsageOutput{
					ResultsByTime: []types.ResultByTime{{
						Groups: []types.Group{
							serviceGroup("Amazon EC2", "60"),
							serviceGroup("Amazon S3", "10"),
						},
					}},
					NextPageToken: aws.String("page2"),
				}, nil
			}
			return &ce.GetCostAndUsageOutput{
				ResultsByTime: []types.ResultByTime{{
					Groups: []types.Group{serviceGroup("Amazon RDS", "30")},
				}},
			}, nil
		},
	}

	sb, err := newClient(t, api).ServiceBreakdown(context.Background(), aug10, "UnblendedCost", 2)
	require.NoError(t, err)

	// Total covers all services across pages even though the list is capped.
	assert.True(t, sb.Total.Amount.Equal(decimal.NewFromInt(100)))

	require.Len(t, sb.Services, 2)
	assert.Equal(t, "Amazon EC2", sb.Services[0].Service)
	assert.Equal(t, "Amazon RDS", sb.Services[1].Service)
	assert.True(t, sb.Services[0].PercentOfTotal.Equal(decimal.NewFromInt(60)))
	assert.True(t, sb.Services[1].PercentOfTotal.Equal(decimal.NewFromInt(30)))
}

func TestForecast(t *testing.T) {
	var captured *ce.GetCostForecastInput
	api := &mockAPI{
		getCostForecast: func(_ context.Context, params *ce.GetCostForecastInput) (*ce.GetCostForecastOutput, error) {
			captured = params
			return &ce.GetCostForecastOutput{
				Total: &types.MetricValue{Amount: aws.String("310.75"), Unit: aws.String("USD")},
			}, nil
		},
	}

	fc, err := newClient(t, api).Forecast(context.Background(), aug10, "UnblendedCost")
	require.NoError(t, err)

	assert.Equal(t, types.MetricUnblendedCost, captured.Metric)
	assert.Equal(t, "2026-08-10", aws.ToString(captured.TimePeriod.Start))
	assert.Equal(t, "2026-09-01", aws.ToString(captured.TimePeriod.End))
	assert.True(t, fc.Amount.Amount.Equal(decimal.RequireFromString("310.75")))
}

func TestForecast_UnknownMetricFallsBack(t *testing.T) {
	var captured *ce.GetCostForecastInput
	api := &mockAPI{
		getCostForecast: func(_ context.Context, params *ce.GetCostForecastInput) (*ce.GetCostForecastOutput, error) {
			captured = params
			return &ce.GetCostForecastOutput{}, nil
		},
	}

	_, err := newClient(t, api).Forecast(context.Background(), aug10, "UsageQuantity")
	require.NoError(t, err)
	assert.Equal(t, types.MetricUnblendedCost, captured.Metric)
}
