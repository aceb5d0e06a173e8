package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/slack-go/slack"

	"github.com/flowctl/flowctl/internal/ports"
)

// webhookPoster matches slack.PostWebhookContext's signature, narrowed so
// tests can substitute a fake without reaching the network.
type webhookPoster func(ctx context.Context, url string, msg *slack.WebhookMessage) error

// SlackSink posts a message to an incoming Slack webhook named by
// config.Params["webhook_url"].
type SlackSink struct {
	post webhookPoster
}

// NewSlackSink builds a SlackSink posting through the real
// slack-go/slack client.
func NewSlackSink() *SlackSink {
	return &SlackSink{post: slack.PostWebhookContext}
}

func (s *SlackSink) Name() string { return "slack" }

func (s *SlackSink) Send(ctx context.Context, config ports.SinkConfig, notifyCtx ports.NotifyContext) ports.NotifyResult {
	start := time.Now()
	result := ports.NotifyResult{Service: s.Name()}

	url, _ := config.Params["webhook_url"].(string)
	if url == "" {
		result.Error = "slack sink requires a \"webhook_url\" param"
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}

	text := notifyCtx.Message
	if text == "" {
		text = fmt.Sprintf("%s: %s (%s)", notifyCtx.Event, notifyCtx.PipelineName, notifyCtx.ExecutionID)
	}

	err := s.post(ctx, url, &slack.WebhookMessage{Text: text})
	result.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Success = true
	return result
}

var _ ports.NotifierSink = (*SlackSink)(nil)
