package config

import (
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	instanceOnce sync.Once
	instance     *validator.Validate
)

// validatorInstance returns a process-wide *validator.Validate with the
// orchestrator's custom tag validators registered exactly once.
func validatorInstance() *validator.Validate {
	instanceOnce.Do(func() {
		instance = validator.New()
		_ = instance.RegisterValidation("cron5", validateCron5)
		_ = instance.RegisterValidation("retrydelay", validateRetryDelay)
	})
	return instance
}

// validateCron5 enforces that a cron expression tokenizes into exactly
// five whitespace-separated fields (minute, hour, day-of-month, month,
// day-of-week).
func validateCron5(fl validator.FieldLevel) bool {
	fields := strings.Fields(fl.Field().String())
	return len(fields) == 5
}

// validateRetryDelay enforces that a retry delay is non-negative.
func validateRetryDelay(fl validator.FieldLevel) bool {
	return fl.Field().Int() >= 0
}

type cronTriggerShape struct {
	Expression string `validate:"required,cron5"`
	Timezone   string
}

type webhookTriggerShape struct {
	Path   string `validate:"required"`
	Method string `validate:"omitempty,oneof=GET POST PUT"`
}

type retryDelayShape struct {
	Delay int64 `validate:"retrydelay"`
}
