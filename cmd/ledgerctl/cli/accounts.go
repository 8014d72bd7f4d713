package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/ledger/accounts"
)

// Exit codes shared by the account commands.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitUsage    = 2
	ExitNotFound = 4
)

// AccountStore is the part of the ledger account store the CLI drives.
type AccountStore interface {
	FindOrCreateReceivable(ctx context.Context, tenant accounts.TenantID, currencyCode string, attrs *accounts.Attributes) (accounts.Account, error)
	FindOrCreatePayable(ctx context.Context, tenant accounts.TenantID, currencyCode string, attrs *accounts.Attributes) (accounts.Account, error)
	AdjustBalance(ctx context.Context, tenant accounts.TenantID, id int64, delta decimal.Decimal) error
	SetActiveBulk(ctx context.Context, tenant accounts.TenantID, ids []int64, active bool) (int64, error)
	FindBySlug(ctx context.Context, tenant accounts.TenantID, slug string) (accounts.Account, bool, error)
}

// AccountsCLI offers operator helpers around the account store.
type AccountsCLI struct {
	store AccountStore
}

// NewAccountsCLI wraps store.
func NewAccountsCLI(store AccountStore) (*AccountsCLI, error) {
	if store == nil {
		return nil, errors.New("accounts cli: store required")
	}
	return &AccountsCLI{store: store}, nil
}

// Output selects where and how results are printed.
type Output struct {
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

func (o *Output) defaults() {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
}

// EnsureOptions configures the ensure command.
type EnsureOptions struct {
	Output
	TenantID   int64
	Currencies []string
}

// EnsureSummary is the JSON shape of the ensure command.
type EnsureSummary struct {
	TenantID int64              `json:"tenant_id"`
	Accounts []accounts.Account `json:"accounts"`
}

// EnsureCommand makes sure the tenant has receivable and payable accounts for
// each currency.
func (c *AccountsCLI) EnsureCommand(ctx context.Context, opts EnsureOptions) int {
	opts.defaults()
	if opts.TenantID <= 0 {
		_, _ = fmt.Fprintln(opts.Stderr, "ensure: --tenant is required and must be positive")
		return ExitUsage
	}
	currencies := opts.Currencies
	if len(currencies) == 0 {
		currencies = []string{""}
	}
	tenant := accounts.TenantID(opts.TenantID)
	summary := EnsureSummary{TenantID: opts.TenantID}
	for _, code := range currencies {
		ar, err := c.store.FindOrCreateReceivable(ctx, tenant, strings.TrimSpace(code), nil)
		if err != nil {
			return fail(opts.Stderr, "ensure", err)
		}
		ap, err := c.store.FindOrCreatePayable(ctx, tenant, strings.TrimSpace(code), nil)
		if err != nil {
			return fail(opts.Stderr, "ensure", err)
		}
		summary.Accounts = append(summary.Accounts, ar, ap)
	}
	if opts.JSONOutput {
		return encode(opts.Output, "ensure", summary)
	}
	for _, acc := range summary.Accounts {
		_, _ = fmt.Fprintf(opts.Stdout, "%-6d %-22s %-4s %s\n", acc.ID, acc.AccountType, currencyLabel(acc.CurrencyCode), acc.Slug)
	}
	return ExitOK
}

// AdjustOptions configures the adjust command.
type AdjustOptions struct {
	Output
	TenantID  int64
	AccountID int64
	Delta     string
}

// AdjustCommand applies a signed delta to one account balance.
func (c *AccountsCLI) AdjustCommand(ctx context.Context, opts AdjustOptions) int {
	opts.defaults()
	if opts.TenantID <= 0 || opts.AccountID <= 0 {
		_, _ = fmt.Fprintln(opts.Stderr, "adjust: --tenant and --account are required and must be positive")
		return ExitUsage
	}
	delta, err := decimal.NewFromString(strings.TrimSpace(opts.Delta))
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "adjust: invalid delta %q\n", opts.Delta)
		return ExitUsage
	}
	if err := c.store.AdjustBalance(ctx, accounts.TenantID(opts.TenantID), opts.AccountID, delta); err != nil {
		return fail(opts.Stderr, "adjust", err)
	}
	if opts.JSONOutput {
		return encode(opts.Output, "adjust", map[string]any{"account_id": opts.AccountID, "delta": delta})
	}
	_, _ = fmt.Fprintf(opts.Stdout, "account %d adjusted by %s\n", opts.AccountID, delta.String())
	return ExitOK
}

// StatusOptions configures the activate and inactivate commands.
type StatusOptions struct {
	Output
	TenantID int64
	IDs      []int64
	Active   bool
}

// StatusCommand toggles the active flag of the listed accounts.
func (c *AccountsCLI) StatusCommand(ctx context.Context, opts StatusOptions) int {
	opts.defaults()
	verb := "inactivate"
	if opts.Active {
		verb = "activate"
	}
	if opts.TenantID <= 0 {
		_, _ = fmt.Fprintf(opts.Stderr, "%s: --tenant is required and must be positive\n", verb)
		return ExitUsage
	}
	n, err := c.store.SetActiveBulk(ctx, accounts.TenantID(opts.TenantID), opts.IDs, opts.Active)
	if err != nil {
		return fail(opts.Stderr, verb, err)
	}
	if opts.JSONOutput {
		return encode(opts.Output, verb, map[string]int64{"affected": n})
	}
	_, _ = fmt.Fprintf(opts.Stdout, "%s: %d of %d accounts updated\n", verb, n, len(opts.IDs))
	return ExitOK
}

// ShowOptions configures the show command.
type ShowOptions struct {
	Output
	TenantID int64
	Slug     string
}

// ShowCommand prints the account with the given slug.
func (c *AccountsCLI) ShowCommand(ctx context.Context, opts ShowOptions) int {
	opts.defaults()
	if opts.TenantID <= 0 || opts.Slug == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "show: --tenant and a slug are required")
		return ExitUsage
	}
	acc, ok, err := c.store.FindBySlug(ctx, accounts.TenantID(opts.TenantID), opts.Slug)
	if err != nil {
		return fail(opts.Stderr, "show", err)
	}
	if !ok {
		_, _ = fmt.Fprintf(opts.Stderr, "show: no account %q for tenant %d\n", opts.Slug, opts.TenantID)
		return ExitNotFound
	}
	if opts.JSONOutput {
		return encode(opts.Output, "show", acc)
	}
	_, _ = fmt.Fprintf(opts.Stdout, "id:       %d\nname:     %s\ntype:     %s\ncurrency: %s\nactive:   %t\namount:   %s\n",
		acc.ID, acc.Name, acc.AccountType, currencyLabel(acc.CurrencyCode), acc.Active, acc.Amount.StringFixed(2))
	return ExitOK
}

func currencyLabel(code string) string {
	if code == "" {
		return "-"
	}
	return code
}

func fail(stderr io.Writer, cmd string, err error) int {
	_, _ = fmt.Fprintf(stderr, "%s: %v\n", cmd, err)
	switch {
	case errors.Is(err, accounts.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, accounts.ErrValidation):
		return ExitUsage
	default:
		return ExitFailure
	}
}

func encode(out Output, cmd string, v any) int {
	if err := json.NewEncoder(out.Stdout).Encode(v); err != nil {
		_, _ = fmt.Fprintf(out.Stderr, "%s: encode json: %v\n", cmd, err)
		return ExitFailure
	}
	return ExitOK
}
