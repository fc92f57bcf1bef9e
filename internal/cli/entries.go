package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/klokku/salesbudget/pkg/calculator"
	"github.com/klokku/salesbudget/pkg/entry"
	"github.com/klokku/salesbudget/pkg/form"
	"github.com/spf13/cobra"
)

func newStateCommand(opts *options) *cobra.Command {
	var filter entry.Filter
	cmd := &cobra.Command{
		Use:   "state",
		Short: "List the session's entries and totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, true, func(ctx context.Context, store *form.Store) error {
				store.SetFilter(filter)
				printEntries(cmd.OutOrStdout(), store.Filtered(), store.Rates().Reference())
				printSummary(cmd.OutOrStdout(), store.Summary(), store.Rates().Reference())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&filter.BusinessUnit, "business-unit", "", "Only entries of this business unit")
	cmd.Flags().StringVar(&filter.Section, "section", "", "Only entries of this section")
	cmd.Flags().StringVar(&filter.Client, "client", "", "Only entries of this client")
	cmd.Flags().StringVar(&filter.Product, "product", "", "Only entries of this product")
	cmd.Flags().StringVar(&filter.Search, "search", "", "Case-insensitive match on client and product")
	return cmd
}

// add
type addFlags struct {
	draft      calculator.EntryDraft
	unitPrices []float64
	quantities map[string]string
	booked     []string
	dryRun     bool
}

func newAddCommand(opts *options) *cobra.Command {
	f := &addFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add one entry per month with a quantity",
		Example: `  budgetctl add --section Trading --client "Cedar Trading Co" --product Sugar \
    --qty Jan=100 --qty May=40 --pmt 700,700,720,720 --gm 9.5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := f.toDraft()
			if err != nil {
				return err
			}
			return opts.withStore(cmd, true, func(ctx context.Context, store *form.Store) error {
				draft.Currency = opts.currency
				if draft.Currency == "" {
					draft.Currency = store.Rates().Reference()
				}
				draft = store.SelectProduct(draft)
				result, warnings := store.Preview(draft)

				out := cmd.OutOrStdout()
				printPreview(out, draft, result, store.Rates().Reference())
				if f.dryRun {
					for _, w := range warnings {
						fmt.Fprintf(out, "warning: %s\n", w)
					}
					return nil
				}

				report, err := store.Submit(ctx, draft)
				var validationErr *form.ValidationError
				if errors.As(err, &validationErr) {
					for _, w := range validationErr.Warnings {
						fmt.Fprintf(out, "warning: %s\n", w)
					}
					return err
				}
				fmt.Fprintln(out, report)
				return err
			})
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.draft.BusinessUnit, "business-unit", "", "Business unit")
	fl.StringVar(&f.draft.Section, "section", "", "Section; Broker and Mining budget a profit per ton")
	fl.StringVar(&f.draft.Client, "client", "", "Client name")
	fl.StringVar(&f.draft.Product, "product", "", "Product name")
	fl.StringVar(&f.draft.Sector, "sector", "", "Sector")
	fl.Float64SliceVar(&f.unitPrices, "pmt", nil, "Price per metric ton, one value for the year or four for Q1..Q4")
	fl.Float64Var(&f.draft.MarginPercent, "gm", 0, "Gross margin percent")
	fl.Float64Var(&f.draft.ProfitPerTon, "ppt", 0, "Profit per ton (Broker and Mining)")
	fl.StringToStringVar(&f.quantities, "qty", nil, "Quantity in metric tons per month, e.g. Jan=100")
	fl.StringSliceVar(&f.booked, "booked", nil, "Months already booked, e.g. Jan,Feb")
	fl.BoolVar(&f.dryRun, "dry-run", false, "Only print the preview and warnings")
	_ = cmd.MarkFlagRequired("section")
	_ = cmd.MarkFlagRequired("client")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}

func (f *addFlags) toDraft() (calculator.EntryDraft, error) {
	draft := f.draft
	switch len(f.unitPrices) {
	case 0:
	case 1:
		draft.UnitPrices = [4]float64{f.unitPrices[0], f.unitPrices[0], f.unitPrices[0], f.unitPrices[0]}
	case 4:
		copy(draft.UnitPrices[:], f.unitPrices)
	default:
		return draft, fmt.Errorf("--pmt takes 1 or 4 values, got %d", len(f.unitPrices))
	}
	for month, qty := range f.quantities {
		m, err := monthFlag(month)
		if err != nil {
			return draft, err
		}
		draft.Quantities[m-1] = calculator.ParseNumber(qty)
	}
	for _, month := range f.booked {
		m, err := monthFlag(month)
		if err != nil {
			return draft, err
		}
		draft.Booked[m-1] = true
	}
	return draft, nil
}

// monthFlag is stricter than calculator.MonthNumber: a typo must not land in January.
func monthFlag(value string) (int, error) {
	v := strings.TrimSpace(value)
	for i, name := range calculator.MonthNames {
		if strings.EqualFold(v, name) {
			return i + 1, nil
		}
	}
	if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 12 {
		return n, nil
	}
	return 0, fmt.Errorf("unknown month %q", value)
}

func newUpdateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "update <entry-id> <field> <value>",
		Short: "Change one field of an entry",
		Long:  "Change one field of an entry. Editable fields: " + strings.Join(entry.EditableFields, ", ") + ".",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, false, func(ctx context.Context, store *form.Store) error {
				if err := store.UpdateCell(ctx, args[0], args[1], args[2]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %s of %s\n", args[1], args[0])
				return nil
			})
		},
	}
}

func newDeleteCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <entry-id>...",
		Short: "Delete entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, false, func(ctx context.Context, store *form.Store) error {
				if err := store.DeleteSelected(ctx, args); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d entries left\n", len(store.Entries()))
				return nil
			})
		},
	}
}

func newRecalcCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "recalc",
		Short: "Recompute Sales and GP of every entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd, false, func(ctx context.Context, store *form.Store) error {
				if err := store.Recalculate(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recalculated %d entries\n", len(store.Entries()))
				return nil
			})
		},
	}
}

func newClearCommand(opts *options) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every entry of the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear the budget without --yes")
			}
			return opts.withStore(cmd, false, func(ctx context.Context, store *form.Store) error {
				if err := store.Clear(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Budget cleared")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm")
	return cmd
}
