package report

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yapay-ai/costwatch/internal/config"
	"github.com/yapay-ai/costwatch/internal/mailer"
	"github.com/yapay-ai/costwatch/pkg/model"
)

// View structs hold pre-formatted strings so the template stays free of
// money arithmetic. Nil section pointers render as omitted sections.
type emailView struct {
	Date                 string
	Metric               string
	MonthToDate          string
	PreviousDay          string
	MonthEnd             string
	Credits              string
	Net                  string
	MonthEndAfterCredits string
	BudgetLine           string
	WeekOverWeek  *wowView
	Estimate      *estimateView
	Trend         []trendBar
	Services      []serviceRow
	ServicesTotal string
	Alerts        []alertRow
}

type wowView struct {
	ThisWeek string
	LastWeek string
	Change   string
}

type estimateView struct {
	AvgDailyBurn string
	UsedSoFar    string
	Projected    string
	DaysLeft     int
}

type trendBar struct {
	Label  string
	Amount string
	Height int
}

type serviceRow struct {
	Name    string
	Amount  string
	Percent string
	Width   int
}

type alertRow struct {
	Kind    string
	Summary string
}

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #232f3e; max-width: 680px; margin: 0 auto;">
  <h2 style="border-bottom: 2px solid #ff9900; padding-bottom: 8px;">AWS Cost Report &mdash; {{.Date}}</h2>

  {{if .Alerts}}
  <div style="background: #fdf2f2; border-left: 4px solid #d13212; padding: 10px 14px; margin: 12px 0;">
    {{range .Alerts}}<p style="margin: 4px 0;"><strong>{{.Kind}}</strong>: {{.Summary}}</p>{{end}}
  </div>
  {{end}}

  <table style="width: 100%; border-collapse: collapse; margin: 12px 0;">
    <tr><td style="padding: 6px 0;">Month to date ({{.Metric}})</td><td style="text-align: right; font-weight: bold;">{{.MonthToDate}}</td></tr>
    <tr><td style="padding: 6px 0;">Previous day</td><td style="text-align: right;">{{.PreviousDay}}</td></tr>
    <tr><td style="padding: 6px 0;">Projected month end</td><td style="text-align: right;">{{.MonthEnd}}</td></tr>
    {{if .Credits}}<tr><td style="padding: 6px 0;">Credits applied</td><td style="text-align: right;">-{{.Credits}}</td></tr>
    <tr><td style="padding: 6px 0;">Net after credits</td><td style="text-align: right; font-weight: bold;">{{.Net}}</td></tr>{{end}}
    {{if .MonthEndAfterCredits}}<tr><td style="padding: 6px 0;">Month end after credits</td><td style="text-align: right;">{{.MonthEndAfterCredits}}</td></tr>{{end}}
    {{if .BudgetLine}}<tr><td style="padding: 6px 0;">Budget</td><td style="text-align: right;">{{.BudgetLine}}</td></tr>{{end}}
  </table>

  {{if .WeekOverWeek}}
  <h3 style="margin-bottom: 4px;">Week over week</h3>
  <p style="margin: 4px 0;">This week {{.WeekOverWeek.ThisWeek}} vs last week {{.WeekOverWeek.LastWeek}}{{if .WeekOverWeek.Change}} ({{.WeekOverWeek.Change}}){{end}}</p>
  {{end}}

  {{if .Estimate}}
  <h3 style="margin-bottom: 4px;">Credit burn</h3>
  <p style="margin: 4px 0;">Burning {{.Estimate.AvgDailyBurn}}/day, {{.Estimate.UsedSoFar}} used so far, projected {{.Estimate.Projected}} this month ({{.Estimate.DaysLeft}} days remaining)</p>
  {{end}}

  {{if .Trend}}
  <h3 style="margin-bottom: 4px;">Daily trend</h3>
  <table style="border-collapse: collapse;"><tr>
    {{range .Trend}}<td style="vertical-align: bottom; text-align: center; padding: 0 4px;">
      <div style="font-size: 10px;">{{.Amount}}</div>
      <div style="background: #ff9900; width: 36px; height: {{.Height}}px;"></div>
      <div style="font-size: 10px;">{{.Label}}</div>
    </td>{{end}}
  </tr></table>
  {{end}}

  {{if .Services}}
  <h3 style="margin-bottom: 4px;">Top services ({{.ServicesTotal}})</h3>
  <table style="width: 100%; border-collapse: collapse;">
    {{range .Services}}<tr>
      <td style="padding: 3px 0; width: 45%;">{{.Name}}</td>
      <td style="padding: 3px 8px; width: 30%;"><div style="background: #527fff; height: 10px; width: {{.Width}}%;"></div></td>
      <td style="text-align: right; white-space: nowrap;">{{.Amount}} ({{.Percent}})</td>
    </tr>{{end}}
  </table>
  {{end}}
</body>
</html>
`))

// BuildEmail renders the report into a ready-to-send message.
func BuildEmail(rep Report, email config.EmailConfig) mailer.Message {
	view := buildView(rep)

	subject := fmt.Sprintf("Daily AWS Cost Report - %s", view.Date)
	if len(rep.Alerts) > 0 {
		subject = fmt.Sprintf("%s: %s", email.SubjectPrefix, subject)
	}

	var html strings.Builder
	if err := htmlTemplate.Execute(&html, view); err != nil {
		// The template is static and the view is plain strings; this only
		// trips on a template bug, in which case the text body still goes out.
		html.Reset()
	}

	return mailer.Message{
		Subject:    subject,
		HTML:       html.String(),
		Text:       buildText(view),
		Sender:     email.Sender,
		Recipients: email.Recipients,
	}
}

func buildView(rep Report) emailView {
	view := emailView{
		Date:        rep.Date.Format("2006-01-02"),
		Metric:      rep.Metric,
		MonthToDate: rep.MonthToDate.Amount.String(),
		PreviousDay: rep.PreviousDay.Amount.String(),
	}

	// Projected month end is MTD plus the remaining-days forecast; without a
	// forecast the projection is unknown, not zero.
	view.MonthEnd = "N/A"
	if rep.Forecast != nil {
		monthEnd := rep.MonthToDate.Amount.Add(rep.Forecast.Amount)
		view.MonthEnd = monthEnd.String()
		if rep.Credits != nil && rep.Credits.Used.IsPositive() {
			view.MonthEndAfterCredits = monthEnd.Sub(rep.Credits.Used).String()
		}
	}
	if rep.Credits != nil && rep.Credits.Used.IsPositive() {
		view.Credits = rep.Credits.Used.String()
		view.Net = rep.MonthToDate.Amount.Sub(rep.Credits.Used).String()
	}
	if rep.BudgetAmount != nil {
		net := rep.MonthToDate.Amount
		if rep.Credits != nil {
			net = net.Sub(rep.Credits.Used)
		}
		view.BudgetLine = fmt.Sprintf("%s of %s (%s)", net.String(), rep.BudgetAmount.String(),
			percentOf(net, *rep.BudgetAmount))
	}

	if rep.WeekOverWeek != nil {
		w := &wowView{
			ThisWeek: rep.WeekOverWeek.ThisWeek.String(),
			LastWeek: rep.WeekOverWeek.LastWeek.String(),
		}
		if rep.WeekOverWeek.ChangePercent != nil {
			w.Change = signedPercent(*rep.WeekOverWeek.ChangePercent)
		}
		view.WeekOverWeek = w
	}

	if rep.CreditEstimate != nil {
		view.Estimate = &estimateView{
			AvgDailyBurn: rep.CreditEstimate.AvgDailyBurn.String(),
			UsedSoFar:    rep.CreditEstimate.CreditsUsedSoFar.String(),
			Projected:    rep.CreditEstimate.ProjectedMonthlyCredits.String(),
			DaysLeft:     rep.CreditEstimate.DaysRemaining,
		}
	}

	view.Trend = buildTrend(rep.DailyCosts)

	if rep.Services != nil && len(rep.Services.Services) > 0 {
		view.ServicesTotal = rep.Services.Total.String()
		for _, s := range rep.Services.Services {
			view.Services = append(view.Services, serviceRow{
				Name:    s.Service,
				Amount:  s.Amount.String(),
				Percent: s.PercentOfTotal.StringFixed(1) + "%",
				Width:   clampPercent(s.PercentOfTotal),
			})
		}
	}

	for _, fa := range rep.Alerts {
		view.Alerts = append(view.Alerts, alertRow{Kind: string(fa.Kind), Summary: fa.Alert.Summary()})
	}
	return view
}

// buildTrend scales bar heights against the window maximum; 70px tall at the
// max, never shorter than 3px so zero-spend days stay visible.
func buildTrend(daily []model.DailyCost) []trendBar {
	if len(daily) == 0 {
		return nil
	}
	max := decimal.Zero
	for _, d := range daily {
		if d.Amount.Amount.GreaterThan(max) {
			max = d.Amount.Amount
		}
	}

	bars := make([]trendBar, 0, len(daily))
	for _, d := range daily {
		height := 3
		if max.IsPositive() {
			h := d.Amount.Amount.Div(max).Mul(decimal.NewFromInt(70)).IntPart()
			if h > 3 {
				height = int(h)
			}
		}
		bars = append(bars, trendBar{
			Label:  d.Date.Format("01/02"),
			Amount: d.Amount.String(),
			Height: height,
		})
	}
	return bars
}

func buildText(v emailView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "AWS Cost Report - %s\n\n", v.Date)

	for _, a := range v.Alerts {
		fmt.Fprintf(&b, "ALERT [%s] %s\n", a.Kind, a.Summary)
	}
	if len(v.Alerts) > 0 {
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Month to date (%s): %s\n", v.Metric, v.MonthToDate)
	fmt.Fprintf(&b, "Previous day: %s\n", v.PreviousDay)
	fmt.Fprintf(&b, "Projected month end: %s\n", v.MonthEnd)
	if v.Credits != "" {
		fmt.Fprintf(&b, "Credits applied: -%s\n", v.Credits)
		fmt.Fprintf(&b, "Net after credits: %s\n", v.Net)
	}
	if v.MonthEndAfterCredits != "" {
		fmt.Fprintf(&b, "Month end after credits: %s\n", v.MonthEndAfterCredits)
	}
	if v.BudgetLine != "" {
		fmt.Fprintf(&b, "Budget: %s\n", v.BudgetLine)
	}

	if v.WeekOverWeek != nil {
		fmt.Fprintf(&b, "\nWeek over week: this week %s vs last week %s", v.WeekOverWeek.ThisWeek, v.WeekOverWeek.LastWeek)
		if v.WeekOverWeek.Change != "" {
			fmt.Fprintf(&b, " (%s)", v.WeekOverWeek.Change)
		}
		b.WriteString("\n")
	}

	if v.Estimate != nil {
		fmt.Fprintf(&b, "\nCredit burn: %s/day, %s used, projected %s this month (%d days remaining)\n",
			v.Estimate.AvgDailyBurn, v.Estimate.UsedSoFar, v.Estimate.Projected, v.Estimate.DaysLeft)
	}

	if len(v.Trend) > 0 {
		b.WriteString("\nDaily trend:\n")
		for _, t := range v.Trend {
			fmt.Fprintf(&b, "  %s  %s\n", t.Label, t.Amount)
		}
	}

	if len(v.Services) > 0 {
		fmt.Fprintf(&b, "\nTop services (%s):\n", v.ServicesTotal)
		for _, s := range v.Services {
			fmt.Fprintf(&b, "  %-40s %s (%s)\n", s.Name, s.Amount, s.Percent)
		}
	}
	return b.String()
}

func percentOf(amount, total model.Money) string {
	if !total.IsPositive() {
		return "n/a"
	}
	return amount.Amount.Div(total.Amount).Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
}

func signedPercent(p decimal.Decimal) string {
	if p.IsNegative() {
		return p.StringFixed(1) + "%"
	}
	return "+" + p.StringFixed(1) + "%"
}

// clampPercent bounds a bar width to 0..100 for the HTML layout.
func clampPercent(p decimal.Decimal) int {
	w := int(p.IntPart())
	if w < 0 {
		return 0
	}
	if w > 100 {
		return 100
	}
	return w
}
