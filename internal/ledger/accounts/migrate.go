package accounts

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies the embedded schema files in name order. Every statement is
// idempotent so reruns are safe.
func Migrate(ctx context.Context, conn db.DBTX) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("accounts: list migrations: %w", err)
	}
	sort.Strings(names)
	for _, name := range names {
		body, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("accounts: read %s: %w", name, err)
		}
		if _, err := conn.Exec(ctx, string(body)); err != nil {
			return fmt.Errorf("accounts: apply %s: %w", name, err)
		}
	}
	return nil
}
