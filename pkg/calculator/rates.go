package calculator

import (
	"math"
	"sort"
	"strings"
)

const DefaultReferenceCurrency = "JOD"

// ExchangeRateTable maps a currency code to the number of its units worth one unit of the
// reference currency. The zero value is a table holding only the default reference currency.
type ExchangeRateTable struct {
	reference string
	rates     map[string]float64
}

func NewExchangeRateTable(reference string, rates map[string]float64) ExchangeRateTable {
	ref := normalizeCode(reference)
	if ref == "" {
		ref = DefaultReferenceCurrency
	}
	table := ExchangeRateTable{reference: ref, rates: make(map[string]float64, len(rates)+1)}
	for code, rate := range rates {
		table.rates[normalizeCode(code)] = rate
	}
	table.rates[ref] = 1
	return table
}

func (t ExchangeRateTable) Reference() string {
	if t.reference == "" {
		return DefaultReferenceCurrency
	}
	return t.reference
}

// Rate returns the usable rate for currency. Blank or unknown codes and rates that are zero,
// negative or not finite resolve to 1, i.e. the value is taken as already being in the
// reference currency.
func (t ExchangeRateTable) Rate(currency string) float64 {
	code := normalizeCode(currency)
	if code == "" {
		return 1
	}
	rate, ok := t.rates[code]
	if !ok || math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
		return 1
	}
	return rate
}

func (t ExchangeRateTable) ToReference(value float64, currency string) float64 {
	return finite(value) / t.Rate(currency)
}

// FromReference converts a reference currency value into currency.
func (t ExchangeRateTable) FromReference(value float64, currency string) float64 {
	return finite(value) * t.Rate(currency)
}

// Currencies lists the codes in the table, reference currency first.
func (t ExchangeRateTable) Currencies() []string {
	codes := make([]string, 0, len(t.rates))
	for code := range t.rates {
		if code != t.Reference() {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return append([]string{t.Reference()}, codes...)
}

// Rates returns a copy of the table contents.
func (t ExchangeRateTable) Rates() map[string]float64 {
	out := make(map[string]float64, len(t.rates)+1)
	for code, rate := range t.rates {
		out[code] = rate
	}
	out[t.Reference()] = 1
	return out
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
