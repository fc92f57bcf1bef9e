package spreadsheet

import (
	"fmt"
	"io"

	"github.com/klokku/salesbudget/pkg/calculator"
	"github.com/klokku/salesbudget/pkg/masterdata"
	"github.com/xuri/excelize/v2"
)

// ReadMasters parses a workbook with a Clients sheet (Client, optional Business Unit) and a
// Products sheet (Product, Category, Default_PMT, Default_GM%, optional Business Unit).
func ReadMasters(r io.Reader) (masterdata.Masters, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return masterdata.Masters{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	clients, err := readTable(f, ClientsSheet)
	if err != nil {
		return masterdata.Masters{}, err
	}
	if err := clients.require(ClientsSheet, colClient); err != nil {
		return masterdata.Masters{}, err
	}
	products, err := readTable(f, ProductsSheet)
	if err != nil {
		return masterdata.Masters{}, err
	}
	if err := products.require(ProductsSheet, colProduct); err != nil {
		return masterdata.Masters{}, err
	}

	masters := masterdata.Masters{
		Clients:  make([]masterdata.Client, 0, len(clients.rows)),
		Products: make([]masterdata.Product, 0, len(products.rows)),
	}
	for _, row := range clients.rows {
		name := clients.get(row, colClient)
		if name == "" {
			continue
		}
		masters.Clients = append(masters.Clients, masterdata.Client{
			Name:         name,
			BusinessUnit: clients.get(row, colBusinessUnit),
		})
	}
	for _, row := range products.rows {
		name := products.get(row, colProduct)
		if name == "" {
			continue
		}
		masters.Products = append(masters.Products, masterdata.Product{
			Name:             name,
			Category:         products.get(row, colCategory),
			BusinessUnit:     products.get(row, colBusinessUnit),
			DefaultUnitPrice: calculator.ParseOptionalNumber(products.get(row, colDefaultPMT)),
			DefaultMargin:    calculator.ParseOptionalNumber(products.get(row, colDefaultGM)),
		})
	}
	return masters, nil
}

// WriteMasters renders masters in the layout ReadMasters accepts.
func WriteMasters(w io.Writer, masters masterdata.Masters) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ClientsSheet); err != nil {
		return fmt.Errorf("set sheet name: %w", err)
	}
	if _, err := f.NewSheet(ProductsSheet); err != nil {
		return fmt.Errorf("create products sheet: %w", err)
	}

	rows := [][]any{{colClient, colBusinessUnit}}
	for _, c := range masters.Clients {
		rows = append(rows, []any{c.Name, c.BusinessUnit})
	}
	if err := writeRows(f, ClientsSheet, rows); err != nil {
		return err
	}

	rows = [][]any{{colProduct, colCategory, colDefaultPMT, colDefaultGM, colBusinessUnit}}
	for _, p := range masters.Products {
		rows = append(rows, []any{p.Name, p.Category, optional(p.DefaultUnitPrice), optional(p.DefaultMargin), p.BusinessUnit})
	}
	if err := writeRows(f, ProductsSheet, rows); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func optional(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
