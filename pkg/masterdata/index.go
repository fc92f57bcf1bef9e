package masterdata

import (
	"strings"

	"github.com/klokku/salesbudget/pkg/calculator"
)

// UnknownCategory is used for products the index has no category for.
const UnknownCategory = "Unknown"

// Index holds the lookups derived from one set of master data. It is rebuilt wholesale by
// Reindex and is not safe for concurrent mutation.
type Index struct {
	clients  []Client
	products []Product

	categories   map[string]string
	unitPrices   map[string]float64
	margins      map[string]float64
	productNames map[string]struct{}
}

func NewIndex(masters Masters) *Index {
	idx := &Index{}
	idx.Reindex(masters)
	return idx
}

// Reindex replaces every lookup with ones built from masters. Products without a name are
// skipped and unusable defaults are left out of their lookup.
func (idx *Index) Reindex(masters Masters) {
	idx.clients = append([]Client(nil), masters.Clients...)
	idx.products = append([]Product(nil), masters.Products...)
	idx.categories = make(map[string]string, len(masters.Products))
	idx.unitPrices = make(map[string]float64, len(masters.Products))
	idx.margins = make(map[string]float64, len(masters.Products))
	idx.productNames = make(map[string]struct{}, len(masters.Products))

	for _, p := range masters.Products {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		idx.productNames[name] = struct{}{}
		if category := strings.TrimSpace(p.Category); category != "" {
			idx.categories[name] = category
		}
		if usable(p.DefaultUnitPrice) {
			idx.unitPrices[name] = *p.DefaultUnitPrice
		}
		if usable(p.DefaultMargin) {
			idx.margins[name] = *p.DefaultMargin
		}
	}
}

func (idx *Index) HasProduct(product string) bool {
	_, ok := idx.productNames[strings.TrimSpace(product)]
	return ok
}

func (idx *Index) Category(product string) (string, bool) {
	c, ok := idx.categories[strings.TrimSpace(product)]
	return c, ok
}

func (idx *Index) DefaultUnitPrice(product string) (float64, bool) {
	v, ok := idx.unitPrices[strings.TrimSpace(product)]
	return v, ok
}

func (idx *Index) DefaultMargin(product string) (float64, bool) {
	v, ok := idx.margins[strings.TrimSpace(product)]
	return v, ok
}

func (idx *Index) Clients() []Client {
	return append([]Client(nil), idx.clients...)
}

func (idx *Index) Products() []Product {
	return append([]Product(nil), idx.products...)
}

// ClientsFor lists the clients offered for businessUnit. A blank business unit offers all of them.
func (idx *Index) ClientsFor(businessUnit string) []Client {
	var out []Client
	for _, c := range idx.clients {
		if inBusinessUnit(c.BusinessUnit, businessUnit) {
			out = append(out, c)
		}
	}
	return out
}

func (idx *Index) ProductsFor(businessUnit string) []Product {
	var out []Product
	for _, p := range idx.products {
		if strings.TrimSpace(p.Name) != "" && inBusinessUnit(p.BusinessUnit, businessUnit) {
			out = append(out, p)
		}
	}
	return out
}

// ApplyDefaults fills the category and any blank unit price or margin of draft from the
// product's master data. Default prices are held in the reference currency and converted
// into draft.Currency.
func (idx *Index) ApplyDefaults(draft *calculator.EntryDraft, rates calculator.ExchangeRateTable) {
	if category, ok := idx.Category(draft.Product); ok {
		draft.Category = category
	} else {
		draft.Category = UnknownCategory
	}
	if price, ok := idx.DefaultUnitPrice(draft.Product); ok {
		price = rates.FromReference(price, draft.Currency)
		for q := range draft.UnitPrices {
			if draft.UnitPrices[q] == 0 {
				draft.UnitPrices[q] = price
			}
		}
	}
	if margin, ok := idx.DefaultMargin(draft.Product); ok && draft.MarginPercent == 0 {
		draft.MarginPercent = margin
	}
}

func inBusinessUnit(owner, wanted string) bool {
	wanted = strings.TrimSpace(wanted)
	owner = strings.TrimSpace(owner)
	if wanted == "" || wanted == All {
		return true
	}
	return owner == "" || owner == All || owner == wanted
}
