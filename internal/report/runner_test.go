package report_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yapay-ai/costwatch/internal/config"
	"github.com/yapay-ai/costwatch/internal/costexplorer"
	"github.com/yapay-ai/costwatch/internal/history"
	"github.com/yapay-ai/costwatch/internal/mailer"
	"github.com/yapay-ai/costwatch/internal/report"
	"github.com/yapay-ai/costwatch/pkg/alerts"
	"github.com/yapay-ai/costwatch/pkg/model"
)

var reportDay = time.Date(2026, time.August, 23, 9, 0, 0, 0, time.UTC)

func usd(amount int64) model.Money {
	return model.NewMoney(decimal.NewFromInt(amount), "USD")
}

type fakeBilling struct {
	breakdown    costexplorer.Breakdown
	breakdownErr error
	mtd          model.CostResult
	mtdErr       error
	services     model.ServiceBreakdown
	servicesErr  error
	credits      model.CreditUsage
	creditsErr   error
	history      []model.Money
	historyErr   error
	forecast     model.CostResult
	forecastErr  error
	wow          model.WeekOverWeek
	wowErr       error
}

func (f *fakeBilling) MonthlyDailyBreakdown(context.Context, time.Time, string, int) (costexplorer.Breakdown, error) {
	return f.breakdown, f.breakdownErr
}

func (f *fakeBilling) MonthToDate(context.Context, time.Time, string) (model.CostResult, error) {
	return f.mtd, f.mtdErr
}

func (f *fakeBilling) ServiceBreakdown(context.Context, time.Time, string, int) (model.ServiceBreakdown, error) {
	return f.services, f.servicesErr
}

func (f *fakeBilling) CreditUsage(context.Context, time.Time, string) (model.CreditUsage, error) {
	return f.credits, f.creditsErr
}

func (f *fakeBilling) CreditDailyHistory(context.Context, time.Time, string, int) ([]model.Money, error) {
	return f.history, f.historyErr
}

func (f *fakeBilling) Forecast(context.Context, time.Time, string) (model.CostResult, error) {
	return f.forecast, f.forecastErr
}

func (f *fakeBilling) WeekOverWeek(context.Context, time.Time, string) (model.WeekOverWeek, error) {
	return f.wow, f.wowErr
}

type fakeParams struct {
	budget    decimal.Decimal
	budgetOK  bool
	state     string
	stateOK   bool
	setErr    error
	setCalls  []string
	setValues []string
}

func (f *fakeParams) BudgetAmount(context.Context, string) (decimal.Decimal, bool) {
	return f.budget, f.budgetOK
}

func (f *fakeParams) AlertState(context.Context, string) (string, bool) {
	return f.state, f.stateOK
}

func (f *fakeParams) SetAlertState(_ context.Context, name, tag string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.setCalls = append(f.setCalls, name)
	f.setValues = append(f.setValues, tag)
	return nil
}

type fakeMailer struct {
	sent []mailer.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "msg-1", nil
}

type fakeArchiver struct {
	payloads []any
	err      error
}

func (f *fakeArchiver) Store(_ context.Context, reportDate time.Time, payload any) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.payloads = append(f.payloads, payload)
	return "reports/" + reportDate.Format("2006-01-02") + ".json", nil
}

type fakeJournal struct {
	records []*history.RunRecord
}

func (f *fakeJournal) Record(_ context.Context, r *history.RunRecord) error {
	f.records = append(f.records, r)
	return nil
}

type fakeNotifier struct {
	name string
	sent []alerts.Alert
	err  error
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Send(_ context.Context, alert alerts.Alert) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, alert)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Cost: config.CostConfig{Metric: "UnblendedCost", TopServices: 10, TrendDays: 7, CreditDays: 14},
		Budget: config.BudgetConfig{
			ParamName:           "/costwatch/budget",
			AlertStateParam:     "/costwatch/last-alert-month",
			Thresholds:          []float64{50, 75, 90, 100},
			AnomalyThresholdPct: 30,
		},
		Email: config.EmailConfig{
			SubjectPrefix: "AWS Cost Alert",
			Sender:        "billing@example.com",
			Recipients:    []string{"team@example.com"},
		},
		Archive: config.ArchiveConfig{Enabled: true, Bucket: "cost-reports"},
	}
}

// healthyBilling returns a billing fake where every section succeeds. Gross
// MTD 320, credits 20, so a budget of 250 puts net spend at 120%.
func healthyBilling() *fakeBilling {
	start := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	daily := []model.DailyCost{
		{Date: reportDay.AddDate(0, 0, -3), Amount: usd(10)},
		{Date: reportDay.AddDate(0, 0, -2), Amount: usd(10)},
		{Date: reportDay.AddDate(0, 0, -1), Amount: usd(40)},
	}
	change := decimal.NewFromInt(25)
	return &fakeBilling{
		breakdown: costexplorer.Breakdown{
			MonthToDate: model.CostResult{Start: start, End: reportDay, Amount: usd(320)},
			PreviousDay: model.CostResult{Start: reportDay.AddDate(0, 0, -1), End: reportDay, Amount: usd(40)},
			DailyCosts:  daily,
		},
		mtd:      model.CostResult{Start: start, End: reportDay, Amount: usd(320)},
		services: model.ServiceBreakdown{Total: usd(320), Services: []model.ServiceCost{{Service: "Amazon EC2", Amount: usd(200), PercentOfTotal: decimal.NewFromInt(62)}}},
		credits:  model.CreditUsage{Used: usd(20)},
		history:  []model.Money{usd(2), usd(2)},
		forecast: model.CostResult{Start: reportDay, End: reportDay.AddDate(0, 0, 8), Amount: usd(450)},
		wow:      model.WeekOverWeek{ThisWeek: usd(100), LastWeek: usd(80), ChangePercent: &change},
	}
}

func newTestRunner(t *testing.T, deps report.Deps) *report.Runner {
	t.Helper()
	if deps.Config == nil {
		deps.Config = testConfig()
	}
	deps.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	deps.Now = func() time.Time { return reportDay }
	return report.NewRunner(deps)
}

func TestRun_Success(t *testing.T) {
	billing := healthyBilling()
	params := &fakeParams{budget: decimal.NewFromInt(250), budgetOK: true}
	mail := &fakeMailer{}
	arch := &fakeArchiver{}
	journal := &fakeJournal{}

	runner := newTestRunner(t, report.Deps{
		Billing: billing, Params: params, Mailer: mail, Archiver: arch, Journal: journal,
	})
	resp := runner.Run(context.Background())

	assert.Equal(t, 200, resp.StatusCode)
	summary, ok := resp.Body.(report.Summary)
	require.True(t, ok)
	assert.Equal(t, report.StatusOK, summary.Status)
	assert.Equal(t, "$320.00", summary.Gross)
	assert.Equal(t, "$300.00", summary.Net)
	assert.Equal(t, "$250.00", summary.BudgetAmount)
	assert.Equal(t, "msg-1", summary.SESMessageID)
	assert.Equal(t, "reports/2026-08-23.json", summary.ArchiveKey)

	// Net 300 of 250 is 120%: all four thresholds plus the daily anomaly
	// (latest 40 vs trailing average 10).
	assert.Equal(t, 5, summary.AlertsFired)

	require.Len(t, mail.sent, 1)
	assert.Contains(t, mail.sent[0].Subject, "AWS Cost Alert")
	require.Len(t, arch.payloads, 1)
	require.Len(t, journal.records, 1)
	assert.Equal(t, "report", journal.records[0].Flow)
	assert.Equal(t, report.StatusOK, journal.records[0].Status)
}

func TestRun_PrimaryFetchFails(t *testing.T) {
	billing := healthyBilling()
	billing.breakdownErr = errors.New("ThrottlingException")
	mail := &fakeMailer{}
	journal := &fakeJournal{}

	runner := newTestRunner(t, report.Deps{Billing: billing, Mailer: mail, Journal: journal})
	resp := runner.Run(context.Background())

	assert.Equal(t, 500, resp.StatusCode)
	summary := resp.Body.(report.Summary)
	assert.Equal(t, report.StatusError, summary.Status)
	assert.Contains(t, summary.Error, "ThrottlingException")
	assert.Empty(t, mail.sent, "no email without cost data")
	require.Len(t, journal.records, 1)
	assert.Equal(t, report.StatusError, journal.records[0].Status)
}

func TestRun_SecondarySectionsDegrade(t *testing.T) {
	billing := healthyBilling()
	billing.servicesErr = errors.New("unavailable")
	billing.forecastErr = errors.New("unavailable")
	billing.wowErr = errors.New("unavailable")
	billing.creditsErr = errors.New("unavailable")
	mail := &fakeMailer{}

	runner := newTestRunner(t, report.Deps{Billing: billing, Mailer: mail})
	resp := runner.Run(context.Background())

	assert.Equal(t, 200, resp.StatusCode)
	summary := resp.Body.(report.Summary)
	assert.Equal(t, report.StatusOK, summary.Status)
	require.Len(t, mail.sent, 1)
	assert.Contains(t, mail.sent[0].Text, "Projected month end: N/A")
	assert.NotContains(t, mail.sent[0].Text, "Top services")
}

func TestRun_EmailFailureIsPartial(t *testing.T) {
	billing := healthyBilling()
	mail := &fakeMailer{err: errors.New("MessageRejected")}
	arch := &fakeArchiver{}

	runner := newTestRunner(t, report.Deps{Billing: billing, Mailer: mail, Archiver: arch})
	resp := runner.Run(context.Background())

	assert.Equal(t, 200, resp.StatusCode, "email failure never fails the invocation")
	summary := resp.Body.(report.Summary)
	assert.Equal(t, report.StatusPartial, summary.Status)
	assert.Contains(t, summary.EmailError, "MessageRejected")
	assert.Len(t, arch.payloads, 1, "archive still runs after a failed send")
}

func TestRun_ArchiveFailureIsLoggedOnly(t *testing.T) {
	billing := healthyBilling()
	mail := &fakeMailer{}
	arch := &fakeArchiver{err: errors.New("AccessDenied")}

	runner := newTestRunner(t, report.Deps{Billing: billing, Mailer: mail, Archiver: arch})
	resp := runner.Run(context.Background())

	summary := resp.Body.(report.Summary)
	assert.Equal(t, report.StatusOK, summary.Status)
	assert.Empty(t, summary.ArchiveKey)
}

func TestRun_NoBudget(t *testing.T) {
	billing := healthyBilling()
	params := &fakeParams{}
	mail := &fakeMailer{}

	runner := newTestRunner(t, report.Deps{Billing: billing, Params: params, Mailer: mail})
	resp := runner.Run(context.Background())

	summary := resp.Body.(report.Summary)
	assert.Empty(t, summary.BudgetAmount)
	// Only the daily anomaly can fire without a budget.
	assert.Equal(t, 1, summary.AlertsFired)
}

func TestRun_PolicyOverridesParameterStore(t *testing.T) {
	billing := healthyBilling()
	params := &fakeParams{budget: decimal.NewFromInt(1000), budgetOK: true}
	mail := &fakeMailer{}

	runner := newTestRunner(t, report.Deps{
		Billing: billing, Params: params, Mailer: mail,
		Policy: &config.Policy{BudgetAmount: "250"},
	})
	resp := runner.Run(context.Background())

	summary := resp.Body.(report.Summary)
	assert.Equal(t, "$250.00", summary.BudgetAmount)
	assert.Equal(t, 5, summary.AlertsFired, "alerts evaluate against the policy budget")
}

func TestRun_NotifierFanOut(t *testing.T) {
	billing := healthyBilling()
	params := &fakeParams{budget: decimal.NewFromInt(250), budgetOK: true}
	mail := &fakeMailer{}
	good := &fakeNotifier{name: "slack"}
	bad := &fakeNotifier{name: "webhook", err: errors.New("connection refused")}

	runner := newTestRunner(t, report.Deps{
		Billing: billing, Params: params, Mailer: mail,
		Notifiers: []alerts.Notifier{good, bad},
	})
	resp := runner.Run(context.Background())

	assert.Equal(t, 200, resp.StatusCode)
	summary := resp.Body.(report.Summary)
	assert.Equal(t, report.StatusOK, summary.Status, "notifier failure never fails the run")
	assert.Len(t, good.sent, 5)
}
