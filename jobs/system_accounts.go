package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/odyssey-erp/odyssey-ledger/internal/jobs"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger/accounts"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// SystemAccountEnsurer is the slice of the account store the job needs.
type SystemAccountEnsurer interface {
	FindOrCreateReceivable(ctx context.Context, tenant accounts.TenantID, currencyCode string, attrs *accounts.Attributes) (accounts.Account, error)
	FindOrCreatePayable(ctx context.Context, tenant accounts.TenantID, currencyCode string, attrs *accounts.Attributes) (accounts.Account, error)
}

// EnsureResult counts the system accounts a run confirmed.
type EnsureResult struct {
	Receivable int
	Payable    int
}

// EnsureSystemAccountsJob provisions receivable/payable accounts per tenant
// and currency.
type EnsureSystemAccountsJob struct {
	Accounts SystemAccountEnsurer
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	// Parallelism bounds concurrent tenants. Zero means 4.
	Parallelism int
}

// NewEnsureSystemAccountsJob wires dependencies for the handler.
func NewEnsureSystemAccountsJob(store SystemAccountEnsurer, logger *slog.Logger, metrics *jobmetrics.Metrics) *EnsureSystemAccountsJob {
	return &EnsureSystemAccountsJob{Accounts: store, Logger: logger, Metrics: metrics}
}

// Handle processes TaskEnsureSystemAccounts tasks. A malformed payload is
// not retried.
func (j *EnsureSystemAccountsJob) Handle(ctx context.Context, task *asynq.Task) (err error) {
	if j == nil || j.Accounts == nil {
		return errors.New("ensure system accounts: dependencies not configured")
	}
	tracker := j.metrics().Track(TaskEnsureSystemAccounts)
	defer func() {
		err = tracker.End(err)
	}()

	var payload EnsureSystemAccountsPayload
	if uerr := json.Unmarshal(task.Payload(), &payload); uerr != nil {
		return fmt.Errorf("ensure system accounts: decode payload: %v: %w", uerr, asynq.SkipRetry)
	}
	tracker.Targets(len(payload.Targets))

	start := time.Now()
	res, err := j.Ensure(ctx, payload.Targets)
	if err != nil {
		j.log().Error("ensure system accounts", slog.String("source", payload.Source), slog.Any("error", err))
		return err
	}
	j.log().Info("system accounts ensured",
		slog.String("source", payload.Source),
		slog.Int("tenants", len(payload.Targets)),
		slog.Int("receivable", res.Receivable),
		slog.Int("payable", res.Payable),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Ensure runs find-or-create for every target. Tenants are processed
// concurrently; the first failure cancels the rest.
func (j *EnsureSystemAccountsJob) Ensure(ctx context.Context, targets []EnsureTarget) (EnsureResult, error) {
	for _, target := range targets {
		if target.TenantID <= 0 {
			return EnsureResult{}, fmt.Errorf("ensure system accounts: invalid tenant id %d", target.TenantID)
		}
	}

	var receivable, payable atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.parallelism())
	for _, target := range targets {
		g.Go(func() error {
			tenant := accounts.TenantID(target.TenantID)
			currencies := target.Currencies
			if len(currencies) == 0 {
				currencies = []string{""}
			}
			for _, code := range currencies {
				if _, err := j.Accounts.FindOrCreateReceivable(gctx, tenant, code, nil); err != nil {
					return fmt.Errorf("tenant %d receivable %q: %w", target.TenantID, code, err)
				}
				receivable.Add(1)
				if _, err := j.Accounts.FindOrCreatePayable(gctx, tenant, code, nil); err != nil {
					return fmt.Errorf("tenant %d payable %q: %w", target.TenantID, code, err)
				}
				payable.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()

	res := EnsureResult{Receivable: int(receivable.Load()), Payable: int(payable.Load())}
	j.metrics().AddEnsured(string(accounts.TypeReceivable), res.Receivable)
	j.metrics().AddEnsured(string(accounts.TypePayable), res.Payable)
	return res, err
}

func (j *EnsureSystemAccountsJob) parallelism() int {
	if j.Parallelism > 0 {
		return j.Parallelism
	}
	return 4
}

func (j *EnsureSystemAccountsJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *EnsureSystemAccountsJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskEnsureSystemAccounts))
	}
	return slog.Default().With(slog.String("job", TaskEnsureSystemAccounts))
}
