package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskQuotationExpire moves quotations past their validity date to EXPIRED.
	TaskQuotationExpire = "quotations:expire"
	// DefaultQuotationSweepCron runs shortly after midnight UTC.
	DefaultQuotationSweepCron = "5 0 * * *"
)

// QuotationExpirePayload optionally pins the sweep to a calendar day
// (YYYY-MM-DD). An empty day means today.
type QuotationExpirePayload struct {
	Day string `json:"day,omitempty"`
}

// NewQuotationExpireTask constructs the sweep task.
func NewQuotationExpireTask(payload QuotationExpirePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskQuotationExpire, data, asynq.Queue(QueueDefault)), nil
}
