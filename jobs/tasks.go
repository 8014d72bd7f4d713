package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskEnsureSystemAccounts makes sure every listed tenant has receivable
	// and payable accounts for its currencies.
	TaskEnsureSystemAccounts = "ledger:system-accounts.ensure"
)

// EnsureTarget names one tenant and the currencies it trades in. An empty
// currency list ensures the base (currency-less) accounts.
type EnsureTarget struct {
	TenantID   int64    `json:"tenant_id" yaml:"id"`
	Currencies []string `json:"currencies" yaml:"currencies"`
}

// EnsureSystemAccountsPayload is the task body of TaskEnsureSystemAccounts.
type EnsureSystemAccountsPayload struct {
	Targets []EnsureTarget `json:"targets"`
	// Source records who asked for the run (cron, cli, api).
	Source string `json:"source,omitempty"`
}

// NewEnsureSystemAccountsTask constructs the Asynq task.
func NewEnsureSystemAccountsTask(payload EnsureSystemAccountsPayload) (*asynq.Task, error) {
	if len(payload.Targets) == 0 {
		return nil, fmt.Errorf("jobs: ensure system accounts: no targets")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEnsureSystemAccounts, data,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(5),
		asynq.Timeout(5*time.Minute),
	), nil
}
