package main

import (
	"testing"

	"github.com/odyssey-erp/odyssey-ledger/internal/app"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	t.Setenv("ODYSSEY_TEST_MODE", "1")
	app.RefreshTestMode()

	main()
}
