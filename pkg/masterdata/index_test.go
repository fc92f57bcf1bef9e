package masterdata

import (
	"math"
	"testing"

	"github.com/klokku/salesbudget/pkg/calculator"
	"github.com/stretchr/testify/assert"
)

func sampleMasters() Masters {
	return Masters{
		Clients: []Client{
			{Name: "ACME Mining Corp", BusinessUnit: "Mining"},
			{Name: "Cedar Trading Co", BusinessUnit: "Trading"},
			{Name: "Eagle Logistics", BusinessUnit: All},
			{Name: "Fresh Produce Inc."},
		},
		Products: []Product{
			{Name: "Iron Ore 62%", Category: "Iron Ore", BusinessUnit: "Mining", DefaultUnitPrice: Float(120.5), DefaultMargin: Float(8.5)},
			{Name: "Sugar", Category: "Commodities", BusinessUnit: "Trading", DefaultUnitPrice: Float(720)},
			{Name: "Flour", Category: "Milling", BusinessUnit: All, DefaultUnitPrice: Float(math.NaN()), DefaultMargin: Float(10)},
			{Name: "", Category: "Ghost", DefaultUnitPrice: Float(1)},
		},
	}
}

func TestIndex_Reindex(t *testing.T) {
	t.Run("should build lookups from products", func(t *testing.T) {
		// when
		idx := NewIndex(sampleMasters())

		// then
		category, ok := idx.Category("Iron Ore 62%")
		assert.True(t, ok)
		assert.Equal(t, "Iron Ore", category)
		price, ok := idx.DefaultUnitPrice("Sugar")
		assert.True(t, ok)
		assert.Equal(t, 720.0, price)
		margin, ok := idx.DefaultMargin("Flour")
		assert.True(t, ok)
		assert.Equal(t, 10.0, margin)
	})

	t.Run("should omit unusable defaults instead of storing a sentinel", func(t *testing.T) {
		// when
		idx := NewIndex(sampleMasters())

		// then
		_, ok := idx.DefaultUnitPrice("Flour")
		assert.False(t, ok)
		_, ok = idx.DefaultMargin("Sugar")
		assert.False(t, ok)
	})

	t.Run("should skip products without a name", func(t *testing.T) {
		// when
		idx := NewIndex(sampleMasters())

		// then
		_, ok := idx.Category("")
		assert.False(t, ok)
		assert.False(t, idx.HasProduct(""))
		assert.Len(t, idx.ProductsFor(""), 3)
	})

	t.Run("should be idempotent and replace previous lookups", func(t *testing.T) {
		// given
		idx := NewIndex(sampleMasters())
		idx.Reindex(sampleMasters())
		first, _ := idx.Category("Sugar")

		// when
		idx.Reindex(Masters{Products: []Product{{Name: "Kraft Paper", Category: "Packaging"}}})

		// then
		assert.Equal(t, "Commodities", first)
		_, ok := idx.Category("Sugar")
		assert.False(t, ok)
		assert.True(t, idx.HasProduct("Kraft Paper"))
		assert.Empty(t, idx.Clients())
	})
}

func TestIndex_BusinessUnitScoping(t *testing.T) {
	idx := NewIndex(sampleMasters())

	t.Run("should offer matching and wildcard clients", func(t *testing.T) {
		clients := idx.ClientsFor("Trading")
		names := make([]string, 0, len(clients))
		for _, c := range clients {
			names = append(names, c.Name)
		}
		assert.Equal(t, []string{"Cedar Trading Co", "Eagle Logistics", "Fresh Produce Inc."}, names)
	})

	t.Run("should offer matching and wildcard products", func(t *testing.T) {
		products := idx.ProductsFor("Mining")
		assert.Len(t, products, 2)
		assert.Equal(t, "Iron Ore 62%", products[0].Name)
		assert.Equal(t, "Flour", products[1].Name)
	})

	t.Run("should keep the full lists", func(t *testing.T) {
		assert.Len(t, idx.Clients(), 4)
		assert.Len(t, idx.Products(), 4)
		assert.Len(t, idx.ClientsFor(""), 4)
	})
}

func TestIndex_ApplyDefaults(t *testing.T) {
	idx := NewIndex(sampleMasters())
	rates := calculator.NewExchangeRateTable("JOD", map[string]float64{"USD": 1.41})

	t.Run("should fill blank prices and margin", func(t *testing.T) {
		// given
		draft := calculator.EntryDraft{Product: "Iron Ore 62%", UnitPrices: [4]float64{0, 130, 0, 0}}

		// when
		idx.ApplyDefaults(&draft, rates)

		// then
		assert.Equal(t, "Iron Ore", draft.Category)
		assert.Equal(t, [4]float64{120.5, 130, 120.5, 120.5}, draft.UnitPrices)
		assert.Equal(t, 8.5, draft.MarginPercent)
	})

	t.Run("should convert default prices into the draft currency", func(t *testing.T) {
		// given
		draft := calculator.EntryDraft{Product: "Sugar", Currency: "USD"}

		// when
		idx.ApplyDefaults(&draft, rates)

		// then
		assert.InDelta(t, 720*1.41, draft.UnitPrices[0], 1e-9)
		assert.InDelta(t, 720, rates.ToReference(draft.UnitPrices[3], draft.Currency), 1e-9)
	})

	t.Run("should keep entered margin", func(t *testing.T) {
		draft := calculator.EntryDraft{Product: "Iron Ore 62%", MarginPercent: 3}
		idx.ApplyDefaults(&draft, rates)
		assert.Equal(t, 3.0, draft.MarginPercent)
	})

	t.Run("should fall back to unknown category", func(t *testing.T) {
		draft := calculator.EntryDraft{Product: "Copper"}
		idx.ApplyDefaults(&draft, rates)
		assert.Equal(t, UnknownCategory, draft.Category)
		assert.Equal(t, [4]float64{}, draft.UnitPrices)
	})
}

func TestDefaultMasters(t *testing.T) {
	masters := DefaultMasters()
	assert.Len(t, masters.Clients, 9)
	assert.Len(t, masters.Products, 12)

	idx := NewIndex(masters)
	price, ok := idx.DefaultUnitPrice("Coking Coal")
	assert.True(t, ok)
	assert.Equal(t, 210.75, price)
}
