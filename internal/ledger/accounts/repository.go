package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

// Repository is the storage capability the Store composes. Lookups report a
// miss as ErrNotFound; the Store decides whether that is an error.
type Repository interface {
	// WithTx runs fn against a repository bound to one transaction. When the
	// receiver is already transaction-bound fn runs on it directly.
	WithTx(ctx context.Context, fn func(Repository) error) error
	FindSystem(ctx context.Context, tenant TenantID, filter SystemFilter) (Account, error)
	// InsertSystem returns ErrConflict when the system-account key is taken.
	InsertSystem(ctx context.Context, tenant TenantID, acc Account) (Account, error)
	Insert(ctx context.Context, tenant TenantID, acc Account) (Account, error)
	Get(ctx context.Context, tenant TenantID, id int64) (Account, error)
	GetBySlug(ctx context.Context, tenant TenantID, slug string) (Account, error)
	List(ctx context.Context, tenant TenantID, filter ListFilter) ([]Account, error)
	// IncrementAmount applies amount = amount + delta in one statement.
	IncrementAmount(ctx context.Context, tenant TenantID, id int64, delta decimal.Decimal) error
	SetActive(ctx context.Context, tenant TenantID, ids []int64, active bool) (int64, error)
}

const (
	accountColumns = `id, tenant_id, name, slug, code, account_type, currency_code, parent_id, description, active, amount::text, created_at, updated_at`

	// systemKeyConstraint is the partial unique index guarding system accounts.
	systemKeyConstraint = "accounts_system_key"
)

type repository struct {
	db   db.DBTX
	pool db.TxBeginner
}

// NewRepository returns a pgx-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(Repository) error) error {
	if r.pool == nil {
		return fn(r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&repository{db: tx})
	})
}

func (r *repository) FindSystem(ctx context.Context, tenant TenantID, filter SystemFilter) (Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE tenant_id = $1 AND account_type = $2`
	args := []any{int64(tenant), string(filter.AccountType)}
	if filter.MatchCurrency {
		query += ` AND currency_code = $3`
		args = append(args, filter.CurrencyCode)
	}
	query += ` ORDER BY id LIMIT 1`
	return scanOne(r.db.QueryRow(ctx, query, args...))
}

func (r *repository) InsertSystem(ctx context.Context, tenant TenantID, acc Account) (Account, error) {
	query := `INSERT INTO accounts (tenant_id, name, slug, code, account_type, currency_code, parent_id, description, active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (tenant_id, account_type, currency_code) WHERE account_type IN ('accounts-receivable', 'accounts-payable') DO NOTHING
RETURNING ` + accountColumns
	created, err := scanOne(r.db.QueryRow(ctx, query, insertArgs(tenant, acc)...))
	if errors.Is(err, ErrNotFound) {
		return Account{}, ErrConflict
	}
	return created, mapWriteErr(err)
}

func (r *repository) Insert(ctx context.Context, tenant TenantID, acc Account) (Account, error) {
	query := `INSERT INTO accounts (tenant_id, name, slug, code, account_type, currency_code, parent_id, description, active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + accountColumns
	created, err := scanOne(r.db.QueryRow(ctx, query, insertArgs(tenant, acc)...))
	return created, mapWriteErr(err)
}

func (r *repository) Get(ctx context.Context, tenant TenantID, id int64) (Account, error) {
	return scanOne(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE tenant_id = $1 AND id = $2`, int64(tenant), id))
}

func (r *repository) GetBySlug(ctx context.Context, tenant TenantID, slug string) (Account, error) {
	return scanOne(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE tenant_id = $1 AND slug = $2`, int64(tenant), slug))
}

func (r *repository) List(ctx context.Context, tenant TenantID, filter ListFilter) ([]Account, error) {
	conditions := []string{"tenant_id = $1"}
	args := []any{int64(tenant)}
	argPos := 2

	if filter.AccountType != "" {
		conditions = append(conditions, fmt.Sprintf("account_type = $%d", argPos))
		args = append(args, string(filter.AccountType))
		argPos++
	}
	if filter.CurrencyCode != "" {
		conditions = append(conditions, fmt.Sprintf("currency_code = $%d", argPos))
		args = append(args, filter.CurrencyCode)
		argPos++
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", argPos))
		args = append(args, *filter.Active)
		argPos++
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY id`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1)
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		args = append(args, filter.Limit, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

func (r *repository) IncrementAmount(ctx context.Context, tenant TenantID, id int64, delta decimal.Decimal) error {
	tag, err := r.db.Exec(ctx, `UPDATE accounts SET amount = amount + $3::numeric, updated_at = NOW() WHERE tenant_id = $1 AND id = $2`,
		int64(tenant), id, delta.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SetActive(ctx context.Context, tenant TenantID, ids []int64, active bool) (int64, error) {
	tag, err := r.db.Exec(ctx, `UPDATE accounts SET active = $3, updated_at = NOW() WHERE tenant_id = $1 AND id = ANY($2)`,
		int64(tenant), ids, active)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func insertArgs(tenant TenantID, acc Account) []any {
	return []any{
		int64(tenant),
		acc.Name,
		acc.Slug,
		acc.Code,
		string(acc.AccountType),
		acc.CurrencyCode,
		acc.ParentID,
		acc.Description,
		acc.Active,
	}
}

func mapWriteErr(err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err, systemKeyConstraint):
		return fmt.Errorf("%w: system account already exists: %w", ErrDuplicate, err)
	case db.IsUniqueViolation(err, ""):
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	default:
		return err
	}
}

func scanOne(row pgx.Row) (Account, error) {
	acc, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	return acc, err
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		acc         Account
		tenant      int64
		accountType string
		amount      string
	)
	err := row.Scan(
		&acc.ID, &tenant, &acc.Name, &acc.Slug, &acc.Code, &accountType, &acc.CurrencyCode,
		&acc.ParentID, &acc.Description, &acc.Active, &amount, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		return Account{}, err
	}
	acc.TenantID = TenantID(tenant)
	acc.AccountType = AccountType(accountType)
	acc.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return Account{}, fmt.Errorf("accounts: parse amount %q: %w", amount, err)
	}
	return acc, nil
}
