package entry

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/klokku/salesbudget/pkg/calculator"
	"github.com/klokku/salesbudget/pkg/masterdata"
)

var ErrEntryNotFound = errors.New("entry not found")
var ErrInvalidEntry = errors.New("invalid entry")
var ErrUnknownField = errors.New("unknown field")

// BudgetEntry is one persisted month of a client/product budget. Monetary values are in the
// reference currency; Currency records what the user entered them in.
type BudgetEntry struct {
	Id            string
	BusinessUnit  string
	Section       string
	Client        string
	Category      string
	Product       string
	Month         int
	Quantity      float64
	UnitPrice     float64
	MarginPercent float64
	ProfitPerTon  float64
	Sales         float64
	GrossProfit   float64
	Sector        string
	Booked        bool
	Currency      string
	CreatedAt     time.Time
}

func (e BudgetEntry) IsProfitMode() bool {
	return calculator.IsProfitMode(e.Section)
}

// Recalculated returns the entry with the inactive branch zeroed, the category taken from idx
// when the product is known there, and Sales and GP derived again from the raw inputs.
func (e BudgetEntry) Recalculated(idx *masterdata.Index) BudgetEntry {
	if e.Month < 1 || e.Month > 12 {
		e.Month = 1
	}
	if e.IsProfitMode() {
		e.UnitPrice = 0
		e.MarginPercent = 0
	} else {
		e.ProfitPerTon = 0
	}
	if idx != nil {
		if category, ok := idx.Category(e.Product); ok {
			e.Category = category
		}
	}
	if strings.TrimSpace(e.Category) == "" {
		e.Category = masterdata.UnknownCategory
	}
	figures := calculator.ComputeLine(e.Section, e.Quantity, e.UnitPrice, e.MarginPercent, e.ProfitPerTon)
	e.Sales = figures.Sales
	e.GrossProfit = figures.GrossProfit
	return e
}

// Validate checks the raw inputs of a single row before it is stored.
func (e BudgetEntry) Validate() error {
	var problems []string
	if e.Quantity == 0 {
		problems = append(problems, "Qty (MT) cannot be 0.")
	}
	if e.IsProfitMode() {
		if e.ProfitPerTon == 0 {
			problems = append(problems, "Profit per ton cannot be 0.")
		}
	} else {
		if e.UnitPrice == 0 {
			problems = append(problems, "PMT (JOD) cannot be 0.")
		}
		if e.MarginPercent == 0 {
			problems = append(problems, "GM % cannot be 0.")
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidEntry, strings.Join(problems, " "))
	}
	return nil
}

// FromMonthLine builds the entry submitted for one expanded month of a draft.
func FromMonthLine(draft calculator.EntryDraft, line calculator.MonthLine) BudgetEntry {
	return BudgetEntry{
		BusinessUnit:  draft.BusinessUnit,
		Section:       draft.Section,
		Client:        draft.Client,
		Category:      draft.Category,
		Product:       draft.Product,
		Month:         line.Month,
		Quantity:      line.Quantity,
		UnitPrice:     line.UnitPrice,
		MarginPercent: line.MarginPercent,
		ProfitPerTon:  line.ProfitPerTon,
		Sales:         line.Sales,
		GrossProfit:   line.GrossProfit,
		Sector:        draft.Sector,
		Booked:        line.Booked,
		Currency:      strings.ToUpper(strings.TrimSpace(draft.Currency)),
	}
}

// ParseBooked accepts Yes/No as well as the usual boolean spellings.
func ParseBooked(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "y", "true", "1", "x":
		return true
	default:
		return false
	}
}

func BookedLabel(booked bool) string {
	if booked {
		return "Yes"
	}
	return "No"
}
