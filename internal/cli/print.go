package cli

import (
	"fmt"
	"io"

	"github.com/klokku/salesbudget/pkg/calculator"
	"github.com/klokku/salesbudget/pkg/entry"
)

func printEntries(out io.Writer, entries []entry.BudgetEntry, currency string) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No entries.")
		return
	}
	fmt.Fprintf(out, "%-36s %-24s %-20s %-4s %10s %14s %14s\n",
		"ID", "CLIENT", "PRODUCT", "MON", "QTY (MT)", "SALES ("+currency+")", "GP ("+currency+")")
	for _, e := range entries {
		fmt.Fprintf(out, "%-36s %-24s %-20s %-4s %10.2f %14.2f %14.2f\n",
			e.Id, truncate(e.Client, 24), truncate(e.Product, 20), calculator.MonthName(e.Month), e.Quantity, e.Sales, e.GrossProfit)
	}
}

func printSummary(out io.Writer, s entry.Summary, currency string) {
	fmt.Fprintf(out, "%d entries, Sales %.2f %s, GP %.2f %s, avg GM %.2f%%\n",
		s.Count, s.Sales, currency, s.GrossProfit, currency, s.AvgMargin)
}

func printPreview(out io.Writer, draft calculator.EntryDraft, result calculator.Result, reference string) {
	fmt.Fprintf(out, "%s / %s (%s)\n", draft.Client, draft.Product, draft.Category)
	fmt.Fprintf(out, "%-6s %14s %14s\n", "", "SALES ("+reference+")", "GP ("+reference+")")
	for q, f := range result.Quarters {
		fmt.Fprintf(out, "%-6s %14.2f %14.2f\n", fmt.Sprintf("Q%d", q+1), f.Sales, f.GrossProfit)
	}
	fmt.Fprintf(out, "%-6s %14.2f %14.2f\n", "Total", result.Total.Sales, result.Total.GrossProfit)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-2] + ".."
}
