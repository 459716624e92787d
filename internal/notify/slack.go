package notify

import (
	"context"
	"fmt"
	"time"

	"markethealth/internal/components/telemetry"
	"markethealth/internal/health"

	"github.com/slack-go/slack"
)

const report_notify_slack = "notify.slack"

// Slack posts health transitions to an incoming webhook.
type Slack struct {
	webhookUrl string
	service    string
	tel        telemetry.API
	timeout    time.Duration
}

func NewSlack(webhookUrl, service string, tel telemetry.API) Slack {
	return Slack{
		webhookUrl: webhookUrl,
		service:    service,
		tel:        telemetry.NewScopedAPI("notify", tel),
		timeout:    10 * time.Second,
	}
}

func icon(state health.State) string {
	switch state {
	case health.Healthy:
		return ":large_green_circle:"
	case health.Degraded:
		return ":large_yellow_circle:"
	default:
		return ":red_circle:"
	}
}

// Message renders a transition as slack markdown.
func (s Slack) Message(tr health.Transition) *slack.WebhookMessage {
	text := fmt.Sprintf(
		"%s *%s* is now *%s* (was %s)",
		icon(tr.To), s.service, tr.To, tr.From,
	)
	if tr.Err != nil {
		text += fmt.Sprintf("\n```%s```", tr.Err.Error())
	}
	return &slack.WebhookMessage{
		Text: text,
		Blocks: &slack.Blocks{
			BlockSet: []slack.Block{
				slack.NewSectionBlock(
					slack.NewTextBlockObject(slack.MarkdownType, text, false, false),
					nil,
					nil,
				),
				slack.NewContextBlock(
					"",
					slack.NewTextBlockObject(slack.MarkdownType, tr.At.Format(time.RFC1123), false, false),
				),
			},
		},
	}
}

func (s Slack) Notify(ctx context.Context, tr health.Transition) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := slack.PostWebhookContext(ctx, s.webhookUrl, s.Message(tr))
	if err != nil {
		s.tel.ReportWarning(report_notify_slack, err)
		return err
	}
	return nil
}

// Listener adapts the notifier to health.Tracker.OnTransition.
func (s Slack) Listener(ctx context.Context) func(health.Transition) {
	return func(tr health.Transition) {
		s.Notify(ctx, tr)
	}
}
