package spreadsheet

import (
	"fmt"
	"io"

	"github.com/klokku/salesbudget/pkg/calculator"
	"github.com/klokku/salesbudget/pkg/entry"
	"github.com/xuri/excelize/v2"
)

// WriteBudget renders entries as a single-sheet workbook in the narrow layout.
func WriteBudget(w io.Writer, entries []entry.BudgetEntry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), BudgetSheet); err != nil {
		return fmt.Errorf("set sheet name: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#333333"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("create amount style: %w", err)
	}

	header := make([]any, len(BudgetHeader))
	for i, h := range BudgetHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(BudgetSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(BudgetHeader))
	if err := f.SetCellStyle(BudgetSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, e := range entries {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{
			e.BusinessUnit,
			e.Section,
			e.Client,
			e.Category,
			e.Product,
			calculator.MonthName(e.Month),
			e.Quantity,
			e.UnitPrice,
			e.MarginPercent,
			e.ProfitPerTon,
			e.Sales,
			e.GrossProfit,
			e.Sector,
			entry.BookedLabel(e.Booked),
		}
		if err := f.SetSheetRow(BudgetSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if len(entries) > 0 {
		// Qty through GP
		if err := f.SetCellStyle(BudgetSheet, "G2", fmt.Sprintf("L%d", len(entries)+1), amountStyle); err != nil {
			return fmt.Errorf("style amounts: %w", err)
		}
	}

	widths := map[string]float64{"A": 14, "B": 10, "C": 26, "D": 16, "E": 22, "M": 14}
	for col, width := range widths {
		if err := f.SetColWidth(BudgetSheet, col, col, width); err != nil {
			return fmt.Errorf("set col width %s: %w", col, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
