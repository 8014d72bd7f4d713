package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/odyssey-ledger/internal/jobs"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger/accounts"
)

type ensureCall struct {
	tenant   accounts.TenantID
	kind     accounts.AccountType
	currency string
}

type stubEnsurer struct {
	mu    sync.Mutex
	calls []ensureCall
	fail  map[accounts.TenantID]error
}

func (s *stubEnsurer) record(tenant accounts.TenantID, kind accounts.AccountType, code string) (accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[tenant]; err != nil {
		return accounts.Account{}, err
	}
	s.calls = append(s.calls, ensureCall{tenant: tenant, kind: kind, currency: code})
	return accounts.Account{TenantID: tenant, AccountType: kind, CurrencyCode: code}, nil
}

func (s *stubEnsurer) FindOrCreateReceivable(_ context.Context, tenant accounts.TenantID, code string, _ *accounts.Attributes) (accounts.Account, error) {
	return s.record(tenant, accounts.TypeReceivable, code)
}

func (s *stubEnsurer) FindOrCreatePayable(_ context.Context, tenant accounts.TenantID, code string, _ *accounts.Attributes) (accounts.Account, error) {
	return s.record(tenant, accounts.TypePayable, code)
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if matchLabels(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matchLabels(metric *dto.Metric, labels map[string]string) bool {
	for _, pair := range metric.GetLabel() {
		if want, ok := labels[pair.GetName()]; ok && want != pair.GetValue() {
			return false
		}
	}
	return true
}

func TestEnsureSystemAccountsJob(t *testing.T) {
	store := &stubEnsurer{}
	reg := prometheus.NewRegistry()
	job := NewEnsureSystemAccountsJob(store, nil, jobmetrics.NewMetrics(reg))

	task, err := NewEnsureSystemAccountsTask(EnsureSystemAccountsPayload{
		Targets: []EnsureTarget{
			{TenantID: 1, Currencies: []string{"USD", "IDR"}},
			{TenantID: 2},
		},
		Source: "test",
	})
	require.NoError(t, err)
	require.Equal(t, TaskEnsureSystemAccounts, task.Type())

	require.NoError(t, job.Handle(context.Background(), task))

	assert.Len(t, store.calls, 6)
	assert.Contains(t, store.calls, ensureCall{tenant: 2, kind: accounts.TypeReceivable, currency: ""})
	assert.Contains(t, store.calls, ensureCall{tenant: 1, kind: accounts.TypePayable, currency: "IDR"})

	assert.Equal(t, 3.0, counterValue(t, reg, "odyssey_jobs_system_accounts_ensured_total", map[string]string{"type": "accounts-receivable"}))
	assert.Equal(t, 3.0, counterValue(t, reg, "odyssey_jobs_system_accounts_ensured_total", map[string]string{"type": "accounts-payable"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "odyssey_jobs_total", map[string]string{"job": TaskEnsureSystemAccounts, "status": "success"}))
}

func TestEnsureSystemAccountsJobFailure(t *testing.T) {
	boom := errors.New("database unavailable")
	store := &stubEnsurer{fail: map[accounts.TenantID]error{9: boom}}
	reg := prometheus.NewRegistry()
	job := NewEnsureSystemAccountsJob(store, nil, jobmetrics.NewMetrics(reg))
	job.Parallelism = 1

	task, err := NewEnsureSystemAccountsTask(EnsureSystemAccountsPayload{Targets: []EnsureTarget{{TenantID: 9, Currencies: []string{"USD"}}}})
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1.0, counterValue(t, reg, "odyssey_jobs_failures_total", map[string]string{"job": TaskEnsureSystemAccounts}))
}

func TestEnsureSystemAccountsJobRejectsBadPayload(t *testing.T) {
	reg := prometheus.NewRegistry()
	job := NewEnsureSystemAccountsJob(&stubEnsurer{}, nil, jobmetrics.NewMetrics(reg))

	err := job.Handle(context.Background(), asynq.NewTask(TaskEnsureSystemAccounts, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
	assert.Equal(t, 1.0, counterValue(t, reg, "odyssey_jobs_total", map[string]string{"job": TaskEnsureSystemAccounts, "status": "skipped"}))

	_, err = job.Ensure(context.Background(), []EnsureTarget{{TenantID: 0}})
	require.Error(t, err)
}

func TestNewEnsureSystemAccountsTaskRequiresTargets(t *testing.T) {
	_, err := NewEnsureSystemAccountsTask(EnsureSystemAccountsPayload{})
	require.Error(t, err)
}

type recordingEnqueuer struct {
	tasks []*asynq.Task
}

func (r *recordingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{Type: task.Type(), Queue: QueueDefault}, nil
}

func (r *recordingEnqueuer) Close() error { return nil }

func TestClientEnqueueEnsureSystemAccounts(t *testing.T) {
	enq := &recordingEnqueuer{}
	client := NewClientWith(enq)

	info, err := client.EnqueueEnsureSystemAccounts(context.Background(), EnsureSystemAccountsPayload{
		Targets: []EnsureTarget{{TenantID: 3, Currencies: []string{"EUR"}}},
		Source:  "cli",
	})
	require.NoError(t, err)
	assert.Equal(t, TaskEnsureSystemAccounts, info.Type)
	require.Len(t, enq.tasks, 1)

	var payload EnsureSystemAccountsPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &payload))
	assert.Equal(t, "cli", payload.Source)
	assert.Equal(t, int64(3), payload.Targets[0].TenantID)
	require.NoError(t, client.Close())
}
