package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/klokku/salesbudget/pkg/budgetclient"
	"github.com/klokku/salesbudget/pkg/form"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type options struct {
	server   string
	session  string
	currency string
	timeout  time.Duration
	verbose  bool
}

// NewRootCommand builds the budgetctl command tree. Every command talks to the server at
// --server; pass the printed session id back with --session to keep working on the same budget.
func NewRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "budgetctl",
		Short:         "Command line client of the sales budget service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	root.PersistentFlags().StringVar(&opts.server, "server", "http://localhost:8181", "Budget service address")
	root.PersistentFlags().StringVar(&opts.session, "session", "", "Session id to continue; a new session is started when empty")
	root.PersistentFlags().StringVar(&opts.currency, "currency", "", "Currency of entered prices (defaults to the reference currency)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", budgetclient.DefaultTimeout, "HTTP timeout")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging")

	root.AddCommand(
		newStateCommand(opts),
		newAddCommand(opts),
		newUpdateCommand(opts),
		newDeleteCommand(opts),
		newRecalcCommand(opts),
		newClearCommand(opts),
		newAddClientCommand(opts),
		newAddProductCommand(opts),
		newLoadMastersCommand(opts),
		newLoadBudgetCommand(opts),
		newExportCommand(opts),
		newMastersTemplateCommand(),
		newRatesCommand(opts),
		newAuditCommand(opts),
	)
	return root
}

func Execute() error {
	return NewRootCommand().Execute()
}

func (o *options) client() *budgetclient.Client {
	c := budgetclient.New(o.server, o.timeout)
	c.SetSessionId(o.session)
	return c
}

// withClient runs fn and prints the session id the server answered with.
func (o *options) withClient(cmd *cobra.Command, fn func(ctx context.Context, c *budgetclient.Client) error) error {
	c := o.client()
	err := fn(cmd.Context(), c)
	if id := c.SessionId(); id != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "session: %s\n", id)
	}
	return err
}

// withStore is withClient for commands driving a form store. The session state is loaded
// first when load is set.
func (o *options) withStore(cmd *cobra.Command, load bool, fn func(ctx context.Context, store *form.Store) error) error {
	return o.withClient(cmd, func(ctx context.Context, c *budgetclient.Client) error {
		store := form.NewStore(c)
		if load {
			if err := store.Load(ctx); err != nil {
				return err
			}
		}
		return fn(ctx, store)
	})
}
