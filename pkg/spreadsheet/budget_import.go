package spreadsheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/klokku/salesbudget/pkg/calculator"
	"github.com/klokku/salesbudget/pkg/entry"
	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// ReadBudget parses the named sheet of a budget workbook. Sheets with Qty_<Mon> (MT) or
// PMT_Q<n> (JOD) columns are read as one row per line with monthly quantities and are
// split into one entry per month with a positive quantity; any other sheet is read as one
// entry per row.
func ReadBudget(r io.Reader, sheet string) ([]entry.BudgetEntry, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if strings.TrimSpace(sheet) == "" {
		sheet = BudgetSheet
	}
	t, err := readTable(f, sheet)
	if err != nil {
		return nil, err
	}
	if isWide(t) {
		log.Debugf("reading sheet %s in wide layout", sheet)
		return readWide(t), nil
	}
	if err := t.require(sheet, colClient, colProduct); err != nil {
		return nil, err
	}
	return readNarrow(t), nil
}

func quantityColumn(month int) string {
	return fmt.Sprintf("Qty_%s (MT)", calculator.MonthNames[month-1])
}

func unitPriceColumn(quarter int) string {
	return fmt.Sprintf("PMT_Q%d (JOD)", quarter)
}

func isWide(t *table) bool {
	return t.has(quantityColumn(1)) || t.has(unitPriceColumn(1))
}

func readNarrow(t *table) []entry.BudgetEntry {
	entries := make([]entry.BudgetEntry, 0, len(t.rows))
	for _, row := range t.rows {
		e := baseEntry(t, row)
		e.Month = calculator.MonthNumber(t.get(row, colMonth))
		e.Quantity = calculator.ParseNumber(t.get(row, colQuantity))
		e.UnitPrice = calculator.ParseNumber(t.get(row, colUnitPrice))
		entries = append(entries, e)
	}
	return entries
}

func readWide(t *table) []entry.BudgetEntry {
	var entries []entry.BudgetEntry
	for _, row := range t.rows {
		base := baseEntry(t, row)
		for month := 1; month <= 12; month++ {
			qty := calculator.ParseNumber(t.get(row, quantityColumn(month)))
			if qty <= 0 {
				continue
			}
			e := base
			e.Month = month
			e.Quantity = qty
			e.UnitPrice = calculator.ParseNumber(t.get(row, unitPriceColumn(calculator.QuarterOf(month))))
			entries = append(entries, e)
		}
	}
	return entries
}

// baseEntry reads the columns both layouts share.
func baseEntry(t *table, row []string) entry.BudgetEntry {
	return entry.BudgetEntry{
		BusinessUnit:  t.get(row, colBusinessUnit),
		Section:       t.get(row, colSection),
		Client:        t.get(row, colClient),
		Category:      t.get(row, colCategory),
		Product:       t.get(row, colProduct),
		MarginPercent: calculator.ParseNumber(t.get(row, colMargin)),
		ProfitPerTon:  calculator.ParseNumber(t.get(row, colProfitPerTon)),
		Sector:        t.get(row, colSector),
		Booked:        entry.ParseBooked(t.get(row, colBooked)),
		Currency:      strings.ToUpper(t.get(row, colCurrency)),
	}
}
