package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/odyssey-erp/odyssey-ledger/cmd/ledgerctl/cli"
	"github.com/odyssey-erp/odyssey-ledger/internal/app"
	"github.com/odyssey-erp/odyssey-ledger/internal/ledger/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(cli.ExitFailure)
	}
	logger := app.NewLogger(cfg, "ledgerctl")

	env := cli.Env{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Accounts: func(ctx context.Context) (cli.AccountStore, func(), error) {
			backends, err := app.OpenBackends(ctx, cfg, logger)
			if err != nil {
				return nil, nil, err
			}
			store, err := backends.AccountStore(cfg, observability.NewMetrics().Ledger())
			if err != nil {
				backends.Close()
				return nil, nil, err
			}
			return store, backends.Close, nil
		},
		Jobs: func() (*cli.JobsCLI, error) {
			return cli.NewJobsCLI(cfg.RedisAddr), nil
		},
		Migrate: func(ctx context.Context) error {
			backends, err := app.OpenBackends(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer backends.Close()
			return accounts.Migrate(ctx, backends.Pool)
		},
	}

	root := cli.NewRootCommand(env)
	err = root.ExecuteContext(ctx)
	var exitErr *cli.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		logger.Debug("ledgerctl failed", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "ledgerctl: %v\n", err)
	}
	os.Exit(cli.ExitCode(err))
}
