package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/odyssey-erp/odyssey-ledger/internal/app"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger/accounts"
)

type seedAccount struct {
	code   string
	name   string
	typ    accounts.AccountType
	parent string
}

// Chart of accounts for demo tenants. Parents precede their children.
var chart = []seedAccount{
	{"1000", "Aset", "asset", ""},
	{"1100", "Kas dan Bank", "asset", "1000"},
	{"1110", "Kas", "asset", "1100"},
	{"1120", "Bank BCA", "asset", "1100"},
	{"1200", "Piutang", "asset", "1000"},
	{"2000", "Kewajiban", "liability", ""},
	{"2100", "Hutang Lancar", "liability", "2000"},
	{"2120", "Hutang Pajak", "liability", "2100"},
	{"3000", "Ekuitas", "equity", ""},
	{"4000", "Pendapatan", "income", ""},
	{"5000", "Beban", "expense", ""},
	{"5210", "Beban Gaji", "expense", "5000"},
}

func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := app.NewLogger(cfg, "ledger-seed")

	backends, err := app.OpenBackends(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("open backends: %v", err)
	}
	defer backends.Close()

	fmt.Println("→ Migrating schema...")
	if err := accounts.Migrate(ctx, backends.Pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	store, err := backends.AccountStore(cfg, nil)
	if err != nil {
		log.Fatalf("account store: %v", err)
	}

	tenants, err := parseTenants(getenv("SEED_TENANTS", "1,2"))
	if err != nil {
		log.Fatalf("parse SEED_TENANTS: %v", err)
	}
	currencies := strings.Split(getenv("SEED_CURRENCIES", "IDR,USD"), ",")

	for _, tenant := range tenants {
		fmt.Printf("→ Seeding tenant %d chart of accounts...\n", tenant)
		if err := seedChart(ctx, store, tenant); err != nil {
			log.Fatalf("seed chart: %v", err)
		}
		fmt.Printf("→ Ensuring tenant %d system accounts...\n", tenant)
		if err := seedSystemAccounts(ctx, store, tenant, currencies); err != nil {
			log.Fatalf("seed system accounts: %v", err)
		}
	}
	fmt.Println("✓ Seed complete")
}

// seedChart inserts the chart in one transaction. Rerunning it keeps the
// accounts already present.
func seedChart(ctx context.Context, store *accounts.Store, tenant accounts.TenantID) error {
	return store.WithTx(ctx, func(tx *accounts.Store) error {
		ids := make(map[string]int64, len(chart))
		for _, row := range chart {
			in := accounts.CreateInput{
				Name:        row.name,
				Slug:        "coa-" + row.code,
				Code:        row.code,
				AccountType: row.typ,
			}
			if row.parent != "" {
				parentID, ok := ids[row.parent]
				if !ok {
					return fmt.Errorf("account %s: parent %s not seeded", row.code, row.parent)
				}
				in.ParentID = &parentID
			}
			acc, found, err := tx.FindBySlug(ctx, tenant, in.Slug)
			if err != nil {
				return err
			}
			if !found {
				if acc, err = tx.Create(ctx, tenant, in); err != nil {
					return fmt.Errorf("account %s: %w", row.code, err)
				}
			}
			ids[row.code] = acc.ID
		}
		return nil
	})
}

func seedSystemAccounts(ctx context.Context, store *accounts.Store, tenant accounts.TenantID, currencies []string) error {
	for _, code := range currencies {
		code = strings.TrimSpace(code)
		if _, err := store.FindOrCreateReceivable(ctx, tenant, code, nil); err != nil {
			return err
		}
		if _, err := store.FindOrCreatePayable(ctx, tenant, code, nil); err != nil {
			return err
		}
	}
	return nil
}

func parseTenants(raw string) ([]accounts.TenantID, error) {
	var out []accounts.TenantID
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid tenant %q", part)
		}
		out = append(out, accounts.TenantID(id))
	}
	return out, nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
