package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/flowctl/flowctl/internal/ports"
)

// WebhookSink POSTs a JSON envelope describing the event to a URL taken
// from config.Params["url"].
type WebhookSink struct {
	client *http.Client
}

// NewWebhookSink builds a WebhookSink. A nil client falls back to
// http.DefaultClient.
func NewWebhookSink(client *http.Client) *WebhookSink {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookSink{client: client}
}

func (s *WebhookSink) Name() string { return "webhook" }

type webhookPayload struct {
	Event        string                 `json:"event"`
	PipelineName string                 `json:"pipeline_name"`
	ExecutionID  string                 `json:"execution_id"`
	TaskID       string                 `json:"task_id,omitempty"`
	Message      string                 `json:"message"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

func (s *WebhookSink) Send(ctx context.Context, config ports.SinkConfig, notifyCtx ports.NotifyContext) ports.NotifyResult {
	start := time.Now()
	result := ports.NotifyResult{Service: s.Name()}

	url, _ := config.Params["url"].(string)
	if url == "" {
		result.Error = "webhook sink requires a \"url\" param"
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}

	body, err := json.Marshal(webhookPayload{
		Event:        string(notifyCtx.Event),
		PipelineName: notifyCtx.PipelineName,
		ExecutionID:  notifyCtx.ExecutionID,
		TaskID:       notifyCtx.TaskID,
		Message:      notifyCtx.Message,
		Metadata:     notifyCtx.Metadata,
	})
	if err != nil {
		result.Error = err.Error()
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		result.Error = err.Error()
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	result.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		result.Error = fmt.Sprintf("webhook responded with status %d", resp.StatusCode)
		return result
	}
	result.Success = true
	return result
}

var _ ports.NotifierSink = (*WebhookSink)(nil)
