// Package report assembles the daily cost report: it fans out the cost
// queries, evaluates alerts, renders and sends the email, and archives the
// payload. Only the primary month-to-date fetch is fatal; every other
// section degrades to absent.
package report

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yapay-ai/costwatch/internal/config"
	"github.com/yapay-ai/costwatch/internal/history"
	"github.com/yapay-ai/costwatch/pkg/alerts"
	"github.com/yapay-ai/costwatch/pkg/credits"
	"github.com/yapay-ai/costwatch/pkg/model"
)

// Deps carries everything a Runner needs. Journal, Archiver, Params, and
// Policy may be nil; the corresponding steps are skipped.
type Deps struct {
	Billing   Billing
	Params    ParamStore
	Mailer    Mailer
	Archiver  Archiver
	Journal   Journal
	Notifiers []alerts.Notifier
	Config    *config.Config
	Policy    *config.Policy
	Logger    *slog.Logger
	Now       func() time.Time
}

// Runner executes report and monitor flows.
type Runner struct {
	deps Deps
}

// NewRunner creates a Runner. A nil Now defaults to time.Now.
func NewRunner(deps Deps) *Runner {
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Runner{deps: deps}
}

// Run executes the full report flow for the current date and returns an
// HTTP-200-shaped response. The status code is 500 only when the primary
// month-to-date query fails.
func (r *Runner) Run(ctx context.Context) Response {
	d := r.deps
	cfg := d.Config
	runID := uuid.New().String()
	now := d.Now()
	log := d.Logger.With("run_id", runID, "flow", "report")

	log.Info("report run started", "date", now.Format("2006-01-02"), "metric", cfg.Cost.Metric)

	breakdown, err := d.Billing.MonthlyDailyBreakdown(ctx, now, cfg.Cost.Metric, cfg.Cost.TrendDays)
	if err != nil {
		log.Error("month-to-date query failed", "error", err)
		summary := Summary{
			Status:    StatusError,
			RunID:     runID,
			Timestamp: now.Format(time.RFC3339),
			Metric:    cfg.Cost.Metric,
			Error:     err.Error(),
		}
		r.journal(ctx, runID, now, "report", summary)
		return Response{StatusCode: 500, Body: summary}
	}

	rep := Report{
		Date:        now,
		Metric:      cfg.Cost.Metric,
		MonthToDate: breakdown.MonthToDate,
		PreviousDay: breakdown.PreviousDay,
		DailyCosts:  breakdown.DailyCosts,
	}

	// Secondary sections. Each failure is logged and leaves the section nil.
	if services, err := d.Billing.ServiceBreakdown(ctx, now, cfg.Cost.Metric, cfg.Cost.TopServices); err != nil {
		log.Warn("service breakdown unavailable", "error", err)
	} else {
		rep.Services = &services
	}

	var creditsUsed model.Money
	if cu, err := d.Billing.CreditUsage(ctx, now, cfg.Cost.Metric); err != nil {
		log.Warn("credit usage unavailable", "error", err)
	} else {
		rep.Credits = &cu
		creditsUsed = cu.Used
	}

	if fc, err := d.Billing.Forecast(ctx, now, cfg.Cost.Metric); err != nil {
		log.Warn("forecast unavailable", "error", err)
	} else {
		rep.Forecast = &fc
	}

	if wow, err := d.Billing.WeekOverWeek(ctx, now, cfg.Cost.Metric); err != nil {
		log.Warn("week-over-week unavailable", "error", err)
	} else {
		rep.WeekOverWeek = &wow
	}

	if rep.Credits != nil && rep.Credits.Used.IsPositive() {
		hist, err := d.Billing.CreditDailyHistory(ctx, now, cfg.Cost.Metric, cfg.Cost.CreditDays)
		if err != nil {
			log.Warn("credit history unavailable", "error", err)
		} else if est, ok := credits.EstimateBurn(rep.Credits.Used, hist, now); ok {
			rep.CreditEstimate = &est
		}
	}

	budget := r.resolveBudget(ctx, log)
	rep.BudgetAmount = budget.Amount

	for _, a := range alerts.CheckBudgetThresholds(breakdown.MonthToDate.Amount, creditsUsed, budget) {
		rep.Alerts = append(rep.Alerts, FiredAlert{Kind: a.Kind(), Alert: a})
	}
	if anomaly, ok := alerts.CheckDailyAnomaly(breakdown.DailyCosts, r.anomalyThreshold()); ok {
		rep.Alerts = append(rep.Alerts, FiredAlert{Kind: anomaly.Kind(), Alert: anomaly})
	}
	if rep.Alerts == nil {
		rep.Alerts = []FiredAlert{}
	}

	r.notify(ctx, log, rep.Alerts)

	net := breakdown.MonthToDate.Amount.Sub(creditsUsed)
	summary := Summary{
		Status:      StatusOK,
		RunID:       runID,
		Timestamp:   now.Format(time.RFC3339),
		Metric:      cfg.Cost.Metric,
		Gross:       breakdown.MonthToDate.Amount.String(),
		Net:         net.String(),
		AlertsFired: len(rep.Alerts),
	}
	if budget.Amount != nil {
		summary.BudgetAmount = budget.Amount.String()
	}

	msg := BuildEmail(rep, cfg.Email)
	if messageID, err := d.Mailer.Send(ctx, msg); err != nil {
		log.Error("email send failed", "error", err)
		summary.Status = StatusPartial
		summary.EmailError = err.Error()
	} else {
		log.Info("report email sent", "message_id", messageID, "recipients", len(cfg.Email.Recipients))
		summary.SESMessageID = messageID
	}

	if cfg.Archive.Enabled && d.Archiver != nil {
		key, err := d.Archiver.Store(ctx, now, rep)
		if err != nil {
			log.Warn("archive failed", "error", err)
		} else {
			summary.ArchiveKey = key
		}
	}

	r.journal(ctx, runID, now, "report", summary)
	log.Info("report run finished", "status", summary.Status, "alerts_fired", summary.AlertsFired)
	return Response{StatusCode: 200, Body: summary}
}

// resolveBudget prefers the policy file, then the SSM parameter. The absent
// budget is a valid state: budgeting is opt-in.
func (r *Runner) resolveBudget(ctx context.Context, log *slog.Logger) alerts.BudgetConfig {
	d := r.deps
	budget := alerts.BudgetConfig{Thresholds: d.Config.Budget.ThresholdSet()}

	if d.Policy != nil {
		if len(d.Policy.Thresholds) > 0 {
			budget.Thresholds = config.BudgetConfig{Thresholds: d.Policy.Thresholds}.ThresholdSet()
		}
		if amount, ok := d.Policy.Budget(); ok {
			m := model.NewMoney(amount, "USD")
			budget.Amount = &m
			return budget
		}
	}

	name := d.Config.Budget.ParamName
	if name == "" || d.Params == nil {
		return budget
	}
	amount, ok := d.Params.BudgetAmount(ctx, name)
	if !ok {
		log.Info("no budget parameter", "param", name)
		return budget
	}
	m := model.NewMoney(amount, "USD")
	budget.Amount = &m
	return budget
}

func (r *Runner) anomalyThreshold() decimal.Decimal {
	if p := r.deps.Policy; p != nil && p.AnomalyThresholdPct > 0 {
		return decimal.NewFromFloat(p.AnomalyThresholdPct)
	}
	return r.deps.Config.Budget.AnomalyThreshold()
}

// notify fans alerts out to the configured notifiers. Delivery failures are
// logged and never fail the run.
func (r *Runner) notify(ctx context.Context, log *slog.Logger, fired []FiredAlert) {
	for _, n := range r.deps.Notifiers {
		for _, fa := range fired {
			if err := n.Send(ctx, fa.Alert); err != nil {
				log.Warn("alert delivery failed", "notifier", n.Name(), "kind", fa.Kind, "error", err)
			}
		}
	}
}

func (r *Runner) journal(ctx context.Context, runID string, now time.Time, flow string, s Summary) {
	if r.deps.Journal == nil {
		return
	}
	rec := &history.RunRecord{
		ID:           runID,
		RunAt:        now,
		ReportDate:   now.Format("2006-01-02"),
		Flow:         flow,
		Metric:       s.Metric,
		Gross:        s.Gross,
		Net:          s.Net,
		AlertsFired:  s.AlertsFired,
		EmailMessage: s.SESMessageID,
		EmailError:   s.EmailError,
		ArchiveKey:   s.ArchiveKey,
		Status:       s.Status,
	}
	if err := r.deps.Journal.Record(ctx, rec); err != nil {
		r.deps.Logger.Warn("journal write failed", "error", err)
	}
}
