package entry

import "strings"

// Filter narrows a list of entries. Blank fields and "All" match everything; Search matches
// case-insensitively anywhere in "client product".
type Filter struct {
	BusinessUnit string
	Section      string
	Client       string
	Product      string
	Search       string
}

func (f Filter) Matches(e BudgetEntry) bool {
	if !matchesExact(f.BusinessUnit, e.BusinessUnit) ||
		!matchesExact(f.Section, e.Section) ||
		!matchesExact(f.Client, e.Client) ||
		!matchesExact(f.Product, e.Product) {
		return false
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(e.Client+" "+e.Product), search)
}

func (f Filter) Apply(entries []BudgetEntry) []BudgetEntry {
	out := make([]BudgetEntry, 0, len(entries))
	for _, e := range entries {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

func matchesExact(want, got string) bool {
	want = strings.TrimSpace(want)
	return want == "" || want == "All" || want == got
}

type Summary struct {
	Count       int
	Sales       float64
	GrossProfit float64
	// AvgMargin is GP / Sales * 100, or 0 without sales.
	AvgMargin float64
}

func Summarize(entries []BudgetEntry) Summary {
	s := Summary{Count: len(entries)}
	for _, e := range entries {
		s.Sales += e.Sales
		s.GrossProfit += e.GrossProfit
	}
	if s.Sales != 0 {
		s.AvgMargin = s.GrossProfit / s.Sales * 100
	}
	return s
}
