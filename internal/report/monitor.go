package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yapay-ai/costwatch/internal/mailer"
	"github.com/yapay-ai/costwatch/pkg/model"
)

const monthTagLayout = "2006-01"

// Monitor executes the lightweight threshold check: one month-to-date query
// compared against the budget ceiling, with a once-per-month breach email.
// The suppression marker is written only after the email actually sends, so
// a failed send retries on the next invocation.
func (r *Runner) Monitor(ctx context.Context) Response {
	d := r.deps
	cfg := d.Config
	runID := uuid.New().String()
	now := d.Now()
	log := d.Logger.With("run_id", runID, "flow", "monitor")

	summary := MonitorSummary{
		Status:    StatusOK,
		RunID:     runID,
		Timestamp: now.Format(time.RFC3339),
	}

	budget := r.resolveBudget(ctx, log)
	if budget.Amount == nil {
		summary.Reason = "no threshold configured"
		log.Info("monitor skipped", "reason", summary.Reason)
		r.journalMonitor(ctx, runID, now, summary)
		return Response{StatusCode: 200, Body: summary}
	}
	summary.Threshold = budget.Amount.String()

	monthTag := now.Format(monthTagLayout)
	if d.Params != nil && cfg.Budget.AlertStateParam != "" {
		if state, ok := d.Params.AlertState(ctx, cfg.Budget.AlertStateParam); ok && state == monthTag {
			summary.Reason = "already alerted this month"
			log.Info("monitor suppressed", "month", monthTag)
			r.journalMonitor(ctx, runID, now, summary)
			return Response{StatusCode: 200, Body: summary}
		}
	}

	mtd, err := d.Billing.MonthToDate(ctx, now, cfg.Cost.Metric)
	if err != nil {
		log.Error("month-to-date query failed", "error", err)
		summary.Status = StatusError
		summary.Error = err.Error()
		r.journalMonitor(ctx, runID, now, summary)
		return Response{StatusCode: 500, Body: summary}
	}
	summary.Gross = mtd.Amount.String()

	if !mtd.Amount.Amount.GreaterThan(budget.Amount.Amount) {
		log.Info("spend under threshold", "gross", summary.Gross, "threshold", summary.Threshold)
		r.journalMonitor(ctx, runID, now, summary)
		return Response{StatusCode: 200, Body: summary}
	}

	summary.Alert = true
	log.Warn("spend over threshold", "gross", summary.Gross, "threshold", summary.Threshold)

	// Credits are context only; the threshold compares gross spend.
	net := mtd.Amount
	if cu, err := d.Billing.CreditUsage(ctx, now, cfg.Cost.Metric); err != nil {
		log.Warn("credit usage unavailable", "error", err)
	} else {
		net = mtd.Amount.Sub(cu.Used)
	}
	summary.Net = net.String()

	msg := buildBreachEmail(now, mtd.Amount, net, *budget.Amount, cfg.Email.SubjectPrefix)
	msg.Sender = cfg.Email.Sender
	msg.Recipients = cfg.Email.Recipients

	messageID, err := d.Mailer.Send(ctx, msg)
	if err != nil {
		log.Error("breach email failed", "error", err)
		summary.Status = StatusPartial
		summary.Error = err.Error()
		r.journalMonitor(ctx, runID, now, summary)
		return Response{StatusCode: 200, Body: summary}
	}
	summary.SESMessageID = messageID

	if d.Params != nil && cfg.Budget.AlertStateParam != "" {
		if err := d.Params.SetAlertState(ctx, cfg.Budget.AlertStateParam, monthTag); err != nil {
			log.Warn("alert marker write failed", "error", err)
		}
	}

	r.journalMonitor(ctx, runID, now, summary)
	return Response{StatusCode: 200, Body: summary}
}

func buildBreachEmail(now time.Time, gross, net, budget model.Money, subjectPrefix string) mailer.Message {
	date := now.Format("2006-01-02")
	subject := fmt.Sprintf("%s: monthly spend over %s", subjectPrefix, budget.String())

	text := fmt.Sprintf(
		"AWS spend crossed the monthly threshold on %s.\n\n"+
			"Month to date: %s\nNet after credits: %s\nThreshold: %s\n\n"+
			"This alert fires at most once per calendar month.\n",
		date, gross.String(), net.String(), budget.String())

	html := fmt.Sprintf(`<html><body style="font-family: Arial, sans-serif; color: #232f3e;">
<h2 style="color: #d13212;">AWS spend over threshold</h2>
<p>Monthly spend crossed the configured threshold on %s.</p>
<table style="border-collapse: collapse;">
<tr><td style="padding: 4px 12px 4px 0;">Month to date</td><td><strong>%s</strong></td></tr>
<tr><td style="padding: 4px 12px 4px 0;">Net after credits</td><td>%s</td></tr>
<tr><td style="padding: 4px 12px 4px 0;">Threshold</td><td>%s</td></tr>
</table>
<p style="color: #687078; font-size: 12px;">This alert fires at most once per calendar month.</p>
</body></html>`, date, gross.String(), net.String(), budget.String())

	return mailer.Message{Subject: subject, Text: text, HTML: html}
}

func (r *Runner) journalMonitor(ctx context.Context, runID string, now time.Time, s MonitorSummary) {
	alerts := 0
	if s.Alert {
		alerts = 1
	}
	r.journal(ctx, runID, now, "monitor", Summary{
		Status:       s.Status,
		Metric:       r.deps.Config.Cost.Metric,
		Gross:        s.Gross,
		Net:          s.Net,
		AlertsFired:  alerts,
		SESMessageID: s.SESMessageID,
		EmailError:   s.Error,
	})
}
