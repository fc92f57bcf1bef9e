package calculator

import "fmt"

const (
	MsgNoQuantity        = "At least one month must have a quantity."
	MsgZeroMargin        = "Annual GM % cannot be 0."
	MsgZeroProfitPerTon  = "Profit per ton cannot be 0."
	msgZeroUnitPriceTmpl = "PMT for Q%d (covering %s) cannot be 0."
)

// Validate lists the reasons a draft cannot be submitted, without duplicates and in the order
// they were found. An empty result means the draft may be submitted.
func Validate(draft EntryDraft) []string {
	d := draft.Normalize()
	w := warnings{}
	if !d.HasQuantity() {
		w.add(MsgNoQuantity)
		return w.list
	}

	profitMode := d.IsProfitMode()
	for m, qty := range d.Quantities {
		if qty == 0 {
			continue
		}
		if profitMode {
			if d.ProfitPerTon == 0 {
				w.add(MsgZeroProfitPerTon)
			}
			continue
		}
		if d.UnitPrices[m/3] == 0 {
			w.add(fmt.Sprintf(msgZeroUnitPriceTmpl, m/3+1, MonthNames[m]))
		}
		if d.MarginPercent == 0 {
			w.add(MsgZeroMargin)
		}
	}
	return w.list
}

type warnings struct {
	seen map[string]struct{}
	list []string
}

func (w *warnings) add(msg string) {
	if w.seen == nil {
		w.seen = map[string]struct{}{}
	}
	if _, ok := w.seen[msg]; ok {
		return
	}
	w.seen[msg] = struct{}{}
	w.list = append(w.list, msg)
}
