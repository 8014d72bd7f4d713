package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger/currency"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger/slug"
	"github.com/odyssey-erp/odyssey-ledger/internal/observability"
)

// Cache is the derived-view cache the store invalidates after writes.
type Cache interface {
	Invalidate(ctx context.Context, tenantID int64) error
	Key(ctx context.Context, tenantID int64, parts ...string) (string, error)
	FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error
}

// Namer renders system account display names.
type Namer interface {
	SystemAccountName(kind, currencyCode string) string
}

// StoreConfig wires Store dependencies. Only Repo is required.
type StoreConfig struct {
	Repo      Repository
	Cache     Cache
	Namer     Namer
	Metrics   *observability.Ledger
	Logger    *slog.Logger
	Validator *validator.Validate
}

// Store owns ledger accounts: system account find-or-create, atomic balance
// adjustment and bulk status toggling. It holds no mutable state besides the
// pending invalidations of a transaction-bound copy.
type Store struct {
	repo     Repository
	cache    Cache
	namer    Namer
	metrics  *observability.Ledger
	logger   *slog.Logger
	validate *validator.Validate
	graphs   *singleflight.Group

	// pending is non-nil on transaction-bound stores; invalidations queue
	// here until commit.
	pending *[]TenantID
}

// NewStore constructs a Store.
func NewStore(cfg StoreConfig) *Store {
	s := &Store{
		repo:     cfg.Repo,
		cache:    cfg.Cache,
		namer:    cfg.Namer,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		validate: cfg.Validator,
		graphs:   &singleflight.Group{},
	}
	if s.cache == nil {
		s.cache = nopCache{}
	}
	if s.namer == nil {
		s.namer = plainNamer{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.validate == nil {
		s.validate = validator.New()
	}
	return s
}

// WithTx runs fn with a store bound to a single transaction. Cache
// invalidations raised inside fn are emitted only after commit; a rollback
// drops them. Nested calls reuse the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(*Store) error) error {
	if s.pending != nil {
		return fn(s)
	}
	var pending []TenantID
	err := s.repo.WithTx(ctx, func(repo Repository) error {
		bound := *s
		bound.repo = repo
		bound.pending = &pending
		return fn(&bound)
	})
	if err != nil {
		return err
	}
	for _, tenant := range pending {
		s.invalidate(ctx, tenant)
	}
	return nil
}

// FindOrCreateReceivable returns the tenant's accounts-receivable account for
// currencyCode, creating it when absent. attrs only apply on creation.
func (s *Store) FindOrCreateReceivable(ctx context.Context, tenant TenantID, currencyCode string, attrs *Attributes) (Account, error) {
	return s.findOrCreateSystem(ctx, tenant, TypeReceivable, currencyCode, attrs)
}

// FindOrCreatePayable is FindOrCreateReceivable for accounts-payable.
func (s *Store) FindOrCreatePayable(ctx context.Context, tenant TenantID, currencyCode string, attrs *Attributes) (Account, error) {
	return s.findOrCreateSystem(ctx, tenant, TypePayable, currencyCode, attrs)
}

func (s *Store) findOrCreateSystem(ctx context.Context, tenant TenantID, accountType AccountType, currencyCode string, attrs *Attributes) (Account, error) {
	code, err := currency.Normalize(currencyCode)
	if err != nil {
		return Account{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	// An empty code means "no currency filter" on lookup.
	found, err := s.repo.FindSystem(ctx, tenant, SystemFilter{AccountType: accountType, CurrencyCode: code, MatchCurrency: code != ""})
	if err == nil {
		s.metrics.SystemAccount(string(accountType), "found")
		return found, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Account{}, fmt.Errorf("accounts: find %s: %w", accountType, err)
	}

	candidate, err := s.systemCandidate(tenant, accountType, code, attrs)
	if err != nil {
		return Account{}, err
	}

	created, err := s.repo.InsertSystem(ctx, tenant, candidate)
	switch {
	case err == nil:
		s.metrics.SystemAccount(string(accountType), "created")
		s.metrics.Mutation("create_system", nil)
		s.logger.Info("accounts: system account created",
			slog.Int64("tenant_id", int64(tenant)),
			slog.String("type", string(accountType)),
			slog.String("currency", code),
			slog.Int64("id", created.ID))
		s.invalidate(ctx, tenant)
		return created, nil
	case errors.Is(err, ErrConflict):
		// Lost the insert race; the winner's row is the answer.
		s.metrics.SystemAccount(string(accountType), "conflict")
		winner, ferr := s.repo.FindSystem(ctx, tenant, SystemFilter{AccountType: accountType, CurrencyCode: code, MatchCurrency: true})
		if ferr != nil {
			return Account{}, fmt.Errorf("accounts: re-read %s after conflict: %w: %w", accountType, ErrConflict, ferr)
		}
		return winner, nil
	default:
		s.metrics.Mutation("create_system", err)
		return Account{}, fmt.Errorf("accounts: create %s: %w", accountType, err)
	}
}

// systemCandidate applies computed defaults, then caller attributes, then the
// explicit type and currency.
func (s *Store) systemCandidate(tenant TenantID, accountType AccountType, code string, attrs *Attributes) (Account, error) {
	if attrs != nil {
		if err := s.validate.Struct(attrs); err != nil {
			return Account{}, fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}
	acc := Account{
		Name:   s.namer.SystemAccountName(string(accountType), code),
		Slug:   slug.Join(string(accountType), code),
		Active: true,
	}
	attrs.applyTo(&acc)
	acc.TenantID = tenant
	acc.AccountType = accountType
	acc.CurrencyCode = code
	if acc.Name == "" {
		return Account{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	if !slug.IsSlug(acc.Slug) {
		return Account{}, fmt.Errorf("%w: invalid slug %q", ErrValidation, acc.Slug)
	}
	return acc, nil
}

// AdjustBalance applies amount += delta atomically in storage. A missing
// account yields ErrNotFound. Every successful call invalidates the tenant
// cache once, zero deltas included.
func (s *Store) AdjustBalance(ctx context.Context, tenant TenantID, id int64, delta decimal.Decimal) error {
	err := s.repo.IncrementAmount(ctx, tenant, id, delta)
	s.metrics.Mutation("adjust_balance", err)
	if err != nil {
		return fmt.Errorf("accounts: adjust balance of %d: %w", id, err)
	}
	s.invalidate(ctx, tenant)
	return nil
}

// SetActiveBulk sets active on every listed account and returns how many rows
// matched. Unknown ids are ignored. An empty list is a no-op.
func (s *Store) SetActiveBulk(ctx context.Context, tenant TenantID, ids []int64, active bool) (int64, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.repo.SetActive(ctx, tenant, ids, active)
	s.metrics.Mutation(statusOp(active), err)
	if err != nil {
		return 0, fmt.Errorf("accounts: %s %d accounts: %w", statusOp(active), len(ids), err)
	}
	s.invalidate(ctx, tenant)
	return n, nil
}

// Activate marks one account active.
func (s *Store) Activate(ctx context.Context, tenant TenantID, id int64) error {
	return s.setActiveOne(ctx, tenant, id, true)
}

// Inactivate marks one account inactive.
func (s *Store) Inactivate(ctx context.Context, tenant TenantID, id int64) error {
	return s.setActiveOne(ctx, tenant, id, false)
}

func (s *Store) setActiveOne(ctx context.Context, tenant TenantID, id int64, active bool) error {
	n, err := s.SetActiveBulk(ctx, tenant, []int64{id}, active)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("accounts: %s %d: %w", statusOp(active), id, ErrNotFound)
	}
	return nil
}

// FindBySlug looks an account up by slug. A miss returns ok=false, not an error.
func (s *Store) FindBySlug(ctx context.Context, tenant TenantID, accountSlug string) (Account, bool, error) {
	acc, err := s.repo.GetBySlug(ctx, tenant, accountSlug)
	if errors.Is(err, ErrNotFound) {
		return Account{}, false, nil
	}
	if err != nil {
		return Account{}, false, fmt.Errorf("accounts: find by slug: %w", err)
	}
	return acc, true, nil
}

// Get returns one account or ErrNotFound.
func (s *Store) Get(ctx context.Context, tenant TenantID, id int64) (Account, error) {
	acc, err := s.repo.Get(ctx, tenant, id)
	if err != nil {
		return Account{}, fmt.Errorf("accounts: get %d: %w", id, err)
	}
	return acc, nil
}

// List returns the tenant's accounts ordered by id.
func (s *Store) List(ctx context.Context, tenant TenantID, filter ListFilter) ([]Account, error) {
	if filter.CurrencyCode != "" {
		code, err := currency.Normalize(filter.CurrencyCode)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		filter.CurrencyCode = code
	}
	accs, err := s.repo.List(ctx, tenant, filter)
	if err != nil {
		return nil, fmt.Errorf("accounts: list: %w", err)
	}
	return accs, nil
}

// Create persists a user-defined account. The slug is derived from the name
// when empty; only a caller-supplied slug can be rejected as invalid.
func (s *Store) Create(ctx context.Context, tenant TenantID, in CreateInput) (Account, error) {
	if err := s.validate.Struct(in); err != nil {
		return Account{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	code, err := currency.Normalize(in.CurrencyCode)
	if err != nil {
		return Account{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	acc := Account{
		TenantID:     tenant,
		Name:         in.Name,
		Slug:         in.Slug,
		Code:         in.Code,
		AccountType:  in.AccountType,
		CurrencyCode: code,
		ParentID:     in.ParentID,
		Description:  in.Description,
		Active:       true,
	}
	if in.Active != nil {
		acc.Active = *in.Active
	}
	if acc.Slug == "" {
		acc.Slug = slug.Derive(string(in.AccountType), in.Name)
	} else if !slug.IsSlug(acc.Slug) {
		return Account{}, fmt.Errorf("%w: invalid slug %q", ErrValidation, acc.Slug)
	}

	created, err := s.repo.Insert(ctx, tenant, acc)
	s.metrics.Mutation("create", err)
	if err != nil {
		return Account{}, fmt.Errorf("accounts: create %q: %w", acc.Slug, err)
	}
	s.invalidate(ctx, tenant)
	return created, nil
}

// DependencyGraph returns the tenant's parent/child graph. Outside a
// transaction it is served from the versioned cache and concurrent fills for
// the same key share one load.
func (s *Store) DependencyGraph(ctx context.Context, tenant TenantID) (Graph, error) {
	load := func(ctx context.Context) (Graph, error) {
		accs, err := s.repo.List(ctx, tenant, ListFilter{})
		if err != nil {
			return Graph{}, fmt.Errorf("accounts: load graph: %w", err)
		}
		return BuildGraph(accs)
	}
	if s.pending != nil {
		return load(ctx)
	}

	key, err := s.cache.Key(ctx, int64(tenant), "graph")
	if err != nil {
		s.logger.Warn("accounts: graph cache key", slog.Int64("tenant_id", int64(tenant)), slog.Any("error", err))
		return load(ctx)
	}
	v, err, _ := s.graphs.Do(key, func() (any, error) {
		var g Graph
		err := s.cache.FetchJSON(ctx, key, &g, func(ctx context.Context) (any, error) {
			return load(ctx)
		})
		return g, err
	})
	if err != nil {
		return Graph{}, err
	}
	return v.(Graph), nil
}

func (s *Store) invalidate(ctx context.Context, tenant TenantID) {
	if s.pending != nil {
		*s.pending = append(*s.pending, tenant)
		return
	}
	err := s.cache.Invalidate(ctx, int64(tenant))
	s.metrics.Invalidation(err)
	if err != nil {
		s.logger.Warn("accounts: cache invalidation failed",
			slog.Int64("tenant_id", int64(tenant)),
			slog.Any("error", err))
	}
}

func statusOp(active bool) string {
	if active {
		return "activate"
	}
	return "inactivate"
}

func uniqueIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

type nopCache struct{}

func (nopCache) Invalidate(context.Context, int64) error { return nil }

func (nopCache) Key(_ context.Context, tenantID int64, parts ...string) (string, error) {
	return fmt.Sprintf("accounts:%d:%v", tenantID, parts), nil
}

func (nopCache) FetchJSON(ctx context.Context, _ string, dest any, loader func(context.Context) (any, error)) error {
	v, err := loader(ctx)
	if err != nil {
		return err
	}
	g, ok := v.(Graph)
	d, okDest := dest.(*Graph)
	if !ok || !okDest {
		return fmt.Errorf("accounts: nop cache only serves graphs, got %T", v)
	}
	*d = g
	return nil
}

type plainNamer struct{}

func (plainNamer) SystemAccountName(kind, currencyCode string) string {
	if currencyCode == "" {
		return kind
	}
	return kind + " (" + currencyCode + ")"
}
