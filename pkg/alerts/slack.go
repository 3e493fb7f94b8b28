package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SlackNotifier sends fired cost alerts to a Slack webhook.
type SlackNotifier struct {
	webhookURL string
	channel    string
	client     *http.Client
}

// NewSlackNotifier creates a Slack webhook notifier.
func NewSlackNotifier(webhookURL, channel string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		channel:    channel,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *SlackNotifier) Name() string { return "slack" }

func (s *SlackNotifier) Send(ctx context.Context, alert Alert) error {
	payload := slackPayload{
		Channel: s.channel,
		Attachments: []slackAttachment{
			{
				Color:  slackColor(alert),
				Title:  fmt.Sprintf("AWS Cost Alert: %s", alert.Kind()),
				Fields: slackFields(alert),
				Footer: "costwatch",
				Ts:     time.Now().Unix(),
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}
	return nil
}

func slackColor(alert Alert) string {
	switch a := alert.(type) {
	case BudgetThresholdAlert:
		if a.PercentUsed.GreaterThanOrEqual(hundred) {
			return "#cc0000" // dark red, budget exceeded
		}
		return "#ff9900" // orange
	case DailyAnomalyAlert:
		return "#ff0000" // red
	default:
		return "#36a64f"
	}
}

func slackFields(alert Alert) []slackField {
	switch a := alert.(type) {
	case BudgetThresholdAlert:
		return []slackField{
			{Title: "Threshold", Value: a.ThresholdPercent.StringFixed(0) + "%", Short: true},
			{Title: "Budget Used", Value: a.PercentUsed.StringFixed(1) + "%", Short: true},
		}
	case DailyAnomalyAlert:
		return []slackField{
			{Title: "Date", Value: a.Date.Format("2006-01-02"), Short: true},
			{Title: "Spend", Value: a.Amount.String(), Short: true},
			{Title: "Trailing Average", Value: a.Average.String(), Short: true},
			{Title: "Over Average", Value: a.PercentOverAverage.StringFixed(1) + "%", Short: true},
		}
	default:
		return []slackField{{Title: "Alert", Value: alert.Summary()}}
	}
}

type slackPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer"`
	Ts     int64        `json:"ts"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}
