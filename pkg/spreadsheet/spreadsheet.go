package spreadsheet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

var ErrSheetNotFound = errors.New("sheet not found")
var ErrMissingColumn = errors.New("missing column")

const (
	BudgetSheet   = "Budget"
	ClientsSheet  = "Clients"
	ProductsSheet = "Products"
)

const (
	colBusinessUnit = "Business Unit"
	colSection      = "Section"
	colClient       = "Client"
	colCategory     = "Category"
	colProduct      = "Product"
	colMonth        = "Month"
	colQuantity     = "Qty (MT)"
	colUnitPrice    = "PMT (JOD)"
	colMargin       = "GP %"
	colProfitPerTon = "Profit/Ton (JOD)"
	colSales        = "Sales (JOD)"
	colGrossProfit  = "GP (JOD)"
	colSector       = "Sector"
	colBooked       = "Booked"
	colCurrency     = "Currency"
	colDefaultPMT   = "Default_PMT"
	colDefaultGM    = "Default_GM%"
)

// BudgetHeader is the column order of an exported budget sheet.
var BudgetHeader = []string{
	colBusinessUnit, colSection, colClient, colCategory, colProduct, colMonth,
	colQuantity, colUnitPrice, colMargin, colProfitPerTon, colSales, colGrossProfit,
	colSector, colBooked,
}

// table is a sheet read as a header row plus data rows, with columns looked up by name.
type table struct {
	columns map[string]int
	rows    [][]string
}

func readTable(f *excelize.File, sheet string) (*table, error) {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, sheet)
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	t := &table{columns: map[string]int{}}
	if len(rows) == 0 {
		return t, nil
	}
	for i, h := range rows[0] {
		name := strings.ToLower(strings.TrimSpace(h))
		if _, dup := t.columns[name]; name != "" && !dup {
			t.columns[name] = i
		}
	}
	for _, row := range rows[1:] {
		if !blank(row) {
			t.rows = append(t.rows, row)
		}
	}
	return t, nil
}

func (t *table) has(column string) bool {
	_, ok := t.columns[strings.ToLower(column)]
	return ok
}

func (t *table) require(sheet string, columns ...string) error {
	var missing []string
	for _, c := range columns {
		if !t.has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w in sheet %s: %s", ErrMissingColumn, sheet, strings.Join(missing, ", "))
	}
	return nil
}

// get returns the trimmed cell of row under column, or "" when the column or cell is absent.
func (t *table) get(row []string, column string) string {
	i, ok := t.columns[strings.ToLower(column)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
