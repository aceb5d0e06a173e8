package pipeline

// TriggerType identifies how a Pipeline run was (or may be) initiated.
type TriggerType string

const (
	TriggerCron    TriggerType = "cron"
	TriggerWebhook TriggerType = "webhook"
	TriggerManual  TriggerType = "manual"
)

// CronConfig carries the fields of a cron trigger.
type CronConfig struct {
	Expression string
	Timezone   string
}

// WebhookConfig carries the fields of a webhook trigger.
type WebhookConfig struct {
	Path   string
	Method string
	Secret string
}

// Trigger is a tagged variant over {cron, webhook, manual}. Only Cron is
// honored by the Scheduler; Webhook and Manual are accepted by the parser
// and recorded on PipelineRun.Trigger but never armed as timers.
type Trigger struct {
	Type    TriggerType
	Cron    *CronConfig
	Webhook *WebhookConfig
}

// ManualTrigger returns the trigger recorded for a directly invoked run.
func ManualTrigger() Trigger {
	return Trigger{Type: TriggerManual}
}
