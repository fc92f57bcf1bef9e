package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klokku/salesbudget/pkg/budgetclient"
	"github.com/klokku/salesbudget/pkg/entry"
	"github.com/klokku/salesbudget/pkg/form"
	"github.com/klokku/salesbudget/pkg/masterdata"
	"github.com/klokku/salesbudget/pkg/spreadsheet"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newAddClientCommand(opts *options) *cobra.Command {
	var businessUnit string
	cmd := &cobra.Command{
		Use:   "add-client <name>",
		Short: "Add a client to the session's master data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, false, func(ctx context.Context, store *form.Store) error {
				if err := store.AddClient(ctx, args[0], businessUnit); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d clients\n", len(store.Masters().Clients))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&businessUnit, "business-unit", "", "Business unit the client belongs to (blank for all)")
	return cmd
}

func newAddProductCommand(opts *options) *cobra.Command {
	var (
		product       masterdata.Product
		unitPrice, gm float64
	)
	cmd := &cobra.Command{
		Use:   "add-product <name>",
		Short: "Add a product to the session's master data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			product.Name = args[0]
			if cmd.Flags().Changed("pmt") {
				product.DefaultUnitPrice = masterdata.Float(unitPrice)
			}
			if cmd.Flags().Changed("gm") {
				product.DefaultMargin = masterdata.Float(gm)
			}
			return opts.withStore(cmd, false, func(ctx context.Context, store *form.Store) error {
				if err := store.AddProduct(ctx, product); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d products\n", len(store.Masters().Products))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&product.Category, "category", "", "Product category")
	cmd.Flags().StringVar(&product.BusinessUnit, "business-unit", "", "Business unit the product belongs to (blank for all)")
	cmd.Flags().Float64Var(&unitPrice, "pmt", 0, "Default price per metric ton")
	cmd.Flags().Float64Var(&gm, "gm", 0, "Default gross margin percent")
	return cmd
}

func newLoadMastersCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "load-masters <file.xlsx>",
		Short: "Replace the session's clients and products from a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()
			return opts.withStore(cmd, false, func(ctx context.Context, store *form.Store) error {
				if err := store.UploadMasters(ctx, filepath.Base(args[0]), file); err != nil {
					return err
				}
				m := store.Masters()
				fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d clients and %d products\n", len(m.Clients), len(m.Products))
				return nil
			})
		},
	}
}

func newLoadBudgetCommand(opts *options) *cobra.Command {
	var sheet string
	cmd := &cobra.Command{
		Use:   "load-budget <file.xlsx>",
		Short: "Replace the session's entries from a budget workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()
			return opts.withStore(cmd, false, func(ctx context.Context, store *form.Store) error {
				if err := store.UploadBudget(ctx, filepath.Base(args[0]), file, sheet); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d entries\n", len(store.Entries()))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", entry.DefaultBudgetSheet, "Sheet holding the budget")
	return cmd
}

func newExportCommand(opts *options) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export [file.xlsx]",
		Short: "Download the session's budget as a workbook",
		Long:  "Download the session's budget as a workbook. Without a file name the server's name is used inside --dir.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, false, func(ctx context.Context, store *form.Store) error {
				var buf bytes.Buffer
				name, err := store.Export(ctx, &buf)
				if err != nil {
					return err
				}
				if name == "" {
					name = "budget.xlsx"
				}
				path := filepath.Join(dir, name)
				if len(args) == 1 {
					path = args[0]
				}
				if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory for the exported workbook")
	return cmd
}

func newMastersTemplateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "masters-template <file.xlsx>",
		Short: "Write a masters workbook with the default clients and products",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Create(args[0])
			if err != nil {
				return err
			}
			if err := spreadsheet.WriteMasters(file, masterdata.DefaultMasters()); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}
			log.Debugf("masters template written to %s", args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", args[0])
			return nil
		},
	}
}

func newRatesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rates",
		Short: "Show the exchange rates used for conversion",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withClient(cmd, func(ctx context.Context, c *budgetclient.Client) error {
				rates, err := c.Rates(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Reference currency: %s\n", rates.ReferenceCurrency)
				for _, code := range rates.Currencies {
					fmt.Fprintf(out, "  %-5s %10.4f per %s\n", code, rates.Rates[code], rates.ReferenceCurrency)
				}
				return nil
			})
		},
	}
}

func newAuditCommand(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the session's recent changes, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withClient(cmd, func(ctx context.Context, c *budgetclient.Client) error {
				records, err := c.Audit(ctx, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No changes recorded.")
					return nil
				}
				fmt.Fprintf(out, "%-20s %-14s %6s  %s\n", "TIME", "ACTION", "COUNT", "DETAIL")
				for _, r := range records {
					fmt.Fprintf(out, "%-20s %-14s %6d  %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"), r.Action, r.Count, r.Detail)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of records (server default when 0)")
	return cmd
}
