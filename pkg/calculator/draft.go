package calculator

import (
	"math"
	"strconv"
	"strings"
)

// Sections that budget gross profit directly from a profit-per-ton figure instead of PMT and GM %.
const (
	SectionBroker = "Broker"
	SectionMining = "Mining"
)

var MonthNames = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// EntryDraft is the transient content of the add-entry form. Monetary inputs are expressed in
// Currency and converted to the reference currency only when computed.
type EntryDraft struct {
	BusinessUnit string
	Section      string
	Client       string
	Product      string
	Category     string
	Sector       string
	// UnitPrices holds the PMT for Q1..Q4.
	UnitPrices    [4]float64
	MarginPercent float64
	ProfitPerTon  float64
	Currency      string
	// Quantities holds metric tons for Jan..Dec. Zero means blank.
	Quantities [12]float64
	Booked     [12]bool
}

func IsProfitMode(section string) bool {
	s := strings.TrimSpace(section)
	return strings.EqualFold(s, SectionBroker) || strings.EqualFold(s, SectionMining)
}

func (d EntryDraft) IsProfitMode() bool {
	return IsProfitMode(d.Section)
}

// Normalize returns a copy with non-finite numbers coerced to 0 and the inputs of the inactive
// calculation branch zeroed.
func (d EntryDraft) Normalize() EntryDraft {
	n := d
	for q := range n.UnitPrices {
		n.UnitPrices[q] = finite(n.UnitPrices[q])
	}
	for m := range n.Quantities {
		n.Quantities[m] = finite(n.Quantities[m])
	}
	n.MarginPercent = finite(n.MarginPercent)
	n.ProfitPerTon = finite(n.ProfitPerTon)

	if n.IsProfitMode() {
		n.UnitPrices = [4]float64{}
		n.MarginPercent = 0
	} else {
		n.ProfitPerTon = 0
	}
	return n
}

// QuarterQuantity sums the quantities of the three months of quarter q (0-based).
func (d EntryDraft) QuarterQuantity(q int) float64 {
	sum := 0.0
	for m := q * 3; m < q*3+3; m++ {
		sum += finite(d.Quantities[m])
	}
	return sum
}

func (d EntryDraft) HasQuantity() bool {
	for _, qty := range d.Quantities {
		if finite(qty) != 0 {
			return true
		}
	}
	return false
}

// QuarterOf returns the 1-based quarter of a 1-based month.
func QuarterOf(month int) int {
	if month < 1 || month > 12 {
		return 1
	}
	return (month-1)/3 + 1
}

func MonthName(month int) string {
	if month < 1 || month > 12 {
		return "-"
	}
	return MonthNames[month-1]
}

// MonthNumber resolves "Jan", "january", "3" or " 12 " to a month number. Anything that cannot be
// resolved falls back to January.
func MonthNumber(value string) int {
	v := strings.TrimSpace(value)
	if n, err := strconv.Atoi(v); err == nil {
		if n >= 1 && n <= 12 {
			return n
		}
		return 1
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		n := int(f)
		if float64(n) == f && n >= 1 && n <= 12 {
			return n
		}
		return 1
	}
	if len(v) >= 3 {
		prefix := strings.ToLower(v[:3])
		for i, name := range MonthNames {
			if strings.ToLower(name) == prefix {
				return i + 1
			}
		}
	}
	return 1
}

// ParseNumber converts a raw form or spreadsheet value to a number. Thousands separators, the
// "JOD" label and percent signs are ignored and "(12.5)" reads as -12.5. Blank or unparsable
// input, NaN and infinities become 0.
func ParseNumber(raw string) float64 {
	v, ok := parseNumber(raw)
	if !ok {
		return 0
	}
	return v
}

// ParseOptionalNumber is ParseNumber that reports unparsable input as nil instead of 0.
func ParseOptionalNumber(raw string) *float64 {
	v, ok := parseNumber(raw)
	if !ok {
		return nil
	}
	return &v
}

func parseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "JOD", "")
	s = strings.ReplaceAll(s, "%", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
