package calculator

// Figures are expressed in the reference currency.
type Figures struct {
	Sales       float64
	GrossProfit float64
}

type Result struct {
	Quarters [4]Figures
	Total    Figures
}

// MonthLine is one month of a draft as it is persisted: a budget entry in the making.
type MonthLine struct {
	Month         int
	Quantity      float64
	UnitPrice     float64
	MarginPercent float64
	ProfitPerTon  float64
	Booked        bool
	Figures
}

// Compute derives quarterly and annual Sales and Gross Profit for a draft. It has no side effects;
// identical inputs always give identical results.
func Compute(draft EntryDraft, rates ExchangeRateTable) Result {
	var result Result
	profitMode := draft.IsProfitMode()
	margin := finite(draft.MarginPercent)
	profitPerTon := rates.ToReference(draft.ProfitPerTon, draft.Currency)

	for q := 0; q < 4; q++ {
		qty := draft.QuarterQuantity(q)
		var figures Figures
		if profitMode {
			figures.GrossProfit = qty * profitPerTon
		} else {
			figures.Sales = qty * rates.ToReference(draft.UnitPrices[q], draft.Currency)
			figures.GrossProfit = figures.Sales * (margin / 100)
		}
		result.Quarters[q] = figures
		result.Total.Sales += figures.Sales
		result.Total.GrossProfit += figures.GrossProfit
	}
	return result
}

// ComputeLine derives the figures of a single persisted row. Unit price and profit per ton must
// already be in the reference currency.
func ComputeLine(section string, quantity, unitPrice, marginPercent, profitPerTon float64) Figures {
	qty := finite(quantity)
	if IsProfitMode(section) {
		return Figures{GrossProfit: qty * finite(profitPerTon)}
	}
	sales := qty * finite(unitPrice)
	return Figures{Sales: sales, GrossProfit: sales * (finite(marginPercent) / 100)}
}

// Expand splits a draft into one line per month with a non-zero quantity, with every monetary
// value converted to the reference currency and the inactive branch zeroed.
func Expand(draft EntryDraft, rates ExchangeRateTable) []MonthLine {
	d := draft.Normalize()
	profitPerTon := rates.ToReference(d.ProfitPerTon, d.Currency)

	var lines []MonthLine
	for m, qty := range d.Quantities {
		if qty == 0 {
			continue
		}
		unitPrice := rates.ToReference(d.UnitPrices[m/3], d.Currency)
		lines = append(lines, MonthLine{
			Month:         m + 1,
			Quantity:      qty,
			UnitPrice:     unitPrice,
			MarginPercent: d.MarginPercent,
			ProfitPerTon:  profitPerTon,
			Booked:        d.Booked[m],
			Figures:       ComputeLine(d.Section, qty, unitPrice, d.MarginPercent, profitPerTon),
		})
	}
	return lines
}
