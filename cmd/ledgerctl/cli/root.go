package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-ledger/jobs"
)

// Env carries the lazily opened dependencies of the commands.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer
	// Accounts opens the account store. The returned func releases it.
	Accounts func(ctx context.Context) (AccountStore, func(), error)
	Jobs     func() (*JobsCLI, error)
	Migrate  func(ctx context.Context) error
}

// ExitError carries a non-zero exit code out of Execute.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return "exit status " + strconv.Itoa(e.Code)
}

// ExitCode maps an Execute error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

func exit(code int) error {
	if code == ExitOK {
		return nil
	}
	return &ExitError{Code: code}
}

// NewRootCommand builds the ledgerctl command tree.
func NewRootCommand(env Env) *cobra.Command {
	var (
		tenantID   int64
		jsonOutput bool
	)
	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operate ledger accounts",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(env.Stdout)
	root.SetErr(env.Stderr)
	root.PersistentFlags().Int64Var(&tenantID, "tenant", 0, "tenant id")
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON")

	output := func(cmd *cobra.Command) Output {
		return Output{JSONOutput: jsonOutput, Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()}
	}
	withAccounts := func(cmd *cobra.Command, run func(*AccountsCLI) int) error {
		if env.Accounts == nil {
			return errors.New("account store not configured")
		}
		store, release, err := env.Accounts(cmd.Context())
		if err != nil {
			return err
		}
		if release != nil {
			defer release()
		}
		c, err := NewAccountsCLI(store)
		if err != nil {
			return err
		}
		return exit(run(c))
	}

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply the account schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if env.Migrate == nil {
				return errors.New("migrations not configured")
			}
			if err := env.Migrate(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	})

	var currencies []string
	ensure := &cobra.Command{
		Use:   "ensure",
		Short: "Find or create the receivable and payable accounts of a tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAccounts(cmd, func(c *AccountsCLI) int {
				return c.EnsureCommand(cmd.Context(), EnsureOptions{Output: output(cmd), TenantID: tenantID, Currencies: currencies})
			})
		},
	}
	ensure.Flags().StringSliceVar(&currencies, "currency", nil, "currency codes (repeatable); empty ensures the base accounts")
	root.AddCommand(ensure)

	var accountID int64
	adjust := &cobra.Command{
		Use:   "adjust DELTA",
		Short: "Add a signed delta to an account balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAccounts(cmd, func(c *AccountsCLI) int {
				return c.AdjustCommand(cmd.Context(), AdjustOptions{Output: output(cmd), TenantID: tenantID, AccountID: accountID, Delta: args[0]})
			})
		},
	}
	adjust.Flags().Int64Var(&accountID, "account", 0, "account id")
	root.AddCommand(adjust)

	for _, active := range []bool{true, false} {
		use := "inactivate"
		if active {
			use = "activate"
		}
		root.AddCommand(&cobra.Command{
			Use:   use + " ID...",
			Short: "Set the active flag on accounts",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ids, err := parseIDs(args)
				if err != nil {
					return exit(usage(cmd, use, err))
				}
				return withAccounts(cmd, func(c *AccountsCLI) int {
					return c.StatusCommand(cmd.Context(), StatusOptions{Output: output(cmd), TenantID: tenantID, IDs: ids, Active: active})
				})
			},
		})
	}

	root.AddCommand(&cobra.Command{
		Use:   "show SLUG",
		Short: "Print an account by slug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAccounts(cmd, func(c *AccountsCLI) int {
				return c.ShowCommand(cmd.Context(), ShowOptions{Output: output(cmd), TenantID: tenantID, Slug: args[0]})
			})
		},
	})

	var enqueueCurrencies []string
	enqueue := &cobra.Command{
		Use:   "enqueue",
		Short: "Queue a background ensure run for a tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if tenantID <= 0 {
				return exit(usage(cmd, "enqueue", errors.New("--tenant is required and must be positive")))
			}
			if env.Jobs == nil {
				return errors.New("job client not configured")
			}
			jc, err := env.Jobs()
			if err != nil {
				return err
			}
			defer func() { _ = jc.Close() }()
			info, err := jc.EnqueueEnsure(cmd.Context(), []jobs.EnsureTarget{{TenantID: tenantID, Currencies: enqueueCurrencies}})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
	enqueue.Flags().StringSliceVar(&enqueueCurrencies, "currency", nil, "currency codes (repeatable)")
	root.AddCommand(enqueue)

	root.AddCommand(&cobra.Command{
		Use:   "queue",
		Short: "Show job queue statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if env.Jobs == nil {
				return errors.New("job client not configured")
			}
			jc, err := env.Jobs()
			if err != nil {
				return err
			}
			defer func() { _ = jc.Close() }()
			stats, err := jc.InspectQueue()
			if err != nil {
				return err
			}
			printQueueStats(cmd.OutOrStdout(), stats)
			return nil
		},
	})

	return root
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("invalid account id %q", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func usage(cmd *cobra.Command, name string, err error) int {
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", name, err)
	return ExitUsage
}
