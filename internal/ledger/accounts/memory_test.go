package accounts

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// memoryRepo mirrors the postgres repository's unique keys in memory.
type memoryRepo struct {
	mu       sync.Mutex
	accounts map[int64]Account
	nextID   int64
	inTx     bool

	// onSystemMiss runs after FindSystem misses, outside the lock.
	onSystemMiss func()

	findSystemCalls int
	insertCalls     int
	setActiveCalls  int
	listCalls       int
	failWith        error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{accounts: make(map[int64]Account)}
}

func (r *memoryRepo) seed(acc Account) Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	acc.ID = r.nextID
	if acc.Slug == "" {
		acc.Slug = "seed-" + decimal.NewFromInt(acc.ID).String()
	}
	r.accounts[acc.ID] = acc
	return acc
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	r.mu.Lock()
	snapshot := make(map[int64]Account, len(r.accounts))
	for id, acc := range r.accounts {
		snapshot[id] = acc
	}
	nextID := r.nextID
	r.inTx = true
	r.mu.Unlock()

	err := fn(r)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.inTx = false
	if err != nil {
		r.accounts = snapshot
		r.nextID = nextID
	}
	return err
}

func (r *memoryRepo) FindSystem(ctx context.Context, tenant TenantID, filter SystemFilter) (Account, error) {
	r.mu.Lock()
	r.findSystemCalls++
	if r.failWith != nil {
		r.mu.Unlock()
		return Account{}, r.failWith
	}
	var matches []Account
	for _, acc := range r.accounts {
		if acc.TenantID != tenant || acc.AccountType != filter.AccountType {
			continue
		}
		if filter.MatchCurrency && acc.CurrencyCode != filter.CurrencyCode {
			continue
		}
		matches = append(matches, acc)
	}
	hook := r.onSystemMiss
	r.mu.Unlock()

	if len(matches) == 0 {
		if hook != nil {
			hook()
		}
		return Account{}, ErrNotFound
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches[0], nil
}

func (r *memoryRepo) InsertSystem(ctx context.Context, tenant TenantID, acc Account) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.TenantID == tenant && existing.AccountType == acc.AccountType && existing.CurrencyCode == acc.CurrencyCode {
			return Account{}, ErrConflict
		}
	}
	return r.insertLocked(tenant, acc)
}

func (r *memoryRepo) Insert(ctx context.Context, tenant TenantID, acc Account) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(tenant, acc)
}

func (r *memoryRepo) insertLocked(tenant TenantID, acc Account) (Account, error) {
	r.insertCalls++
	if r.failWith != nil {
		return Account{}, r.failWith
	}
	for _, existing := range r.accounts {
		if existing.TenantID == tenant && existing.Slug == acc.Slug {
			return Account{}, ErrDuplicate
		}
	}
	r.nextID++
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	acc.ID = r.nextID
	acc.TenantID = tenant
	acc.Amount = decimal.Zero
	acc.CreatedAt = now
	acc.UpdatedAt = now
	r.accounts[acc.ID] = acc
	return acc, nil
}

func (r *memoryRepo) Get(ctx context.Context, tenant TenantID, id int64) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok || acc.TenantID != tenant {
		return Account{}, ErrNotFound
	}
	return acc, nil
}

func (r *memoryRepo) GetBySlug(ctx context.Context, tenant TenantID, slug string) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return Account{}, r.failWith
	}
	for _, acc := range r.accounts {
		if acc.TenantID == tenant && acc.Slug == slug {
			return acc, nil
		}
	}
	return Account{}, ErrNotFound
}

func (r *memoryRepo) List(ctx context.Context, tenant TenantID, filter ListFilter) ([]Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	var out []Account
	for _, acc := range r.accounts {
		if acc.TenantID != tenant {
			continue
		}
		if filter.AccountType != "" && acc.AccountType != filter.AccountType {
			continue
		}
		if filter.CurrencyCode != "" && acc.CurrencyCode != filter.CurrencyCode {
			continue
		}
		if filter.Active != nil && acc.Active != *filter.Active {
			continue
		}
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepo) IncrementAmount(ctx context.Context, tenant TenantID, id int64, delta decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	acc, ok := r.accounts[id]
	if !ok || acc.TenantID != tenant {
		return ErrNotFound
	}
	acc.Amount = acc.Amount.Add(delta)
	r.accounts[id] = acc
	return nil
}

func (r *memoryRepo) SetActive(ctx context.Context, tenant TenantID, ids []int64, active bool) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setActiveCalls++
	if r.failWith != nil {
		return 0, r.failWith
	}
	var n int64
	for _, id := range ids {
		acc, ok := r.accounts[id]
		if !ok || acc.TenantID != tenant {
			continue
		}
		acc.Active = active
		r.accounts[id] = acc
		n++
	}
	return n, nil
}

// countingCache records invalidations per tenant.
type countingCache struct {
	nopCache
	mu          sync.Mutex
	invalidated map[int64]int
	err         error
}

func newCountingCache() *countingCache {
	return &countingCache{invalidated: make(map[int64]int)}
}

func (c *countingCache) Invalidate(ctx context.Context, tenantID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated[tenantID]++
	return c.err
}

func (c *countingCache) count(tenantID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidated[tenantID]
}

var errStorage = errors.New("connection reset by peer")
