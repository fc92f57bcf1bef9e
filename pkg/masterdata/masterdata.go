package masterdata

import "math"

// All is the business unit value that makes a client or product available to every business unit.
const All = "All"

type Client struct {
	Name         string
	BusinessUnit string
}

type Product struct {
	Name         string
	Category     string
	BusinessUnit string
	// DefaultUnitPrice and DefaultMargin are nil when the product has no usable default.
	DefaultUnitPrice *float64
	DefaultMargin    *float64
}

type Masters struct {
	Clients  []Client
	Products []Product
}

func Float(v float64) *float64 {
	return &v
}

func usable(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

// DefaultMasters is the demo master data every new session starts with.
func DefaultMasters() Masters {
	clients := []string{
		"ACME Mining Corp", "Apex Steel Industries", "BlueWater Ports Ltd",
		"Cedar Trading Co", "Delta Manufacturing", "Eagle Logistics",
		"Global Petrochem", "Quantum Energy", "Fresh Produce Inc.",
	}
	masters := Masters{}
	for _, name := range clients {
		masters.Clients = append(masters.Clients, Client{Name: name, BusinessUnit: All})
	}

	products := []struct {
		name, category string
		pmt, margin    float64
	}{
		{"Iron Ore 62%", "Iron Ore", 120.50, 8.5},
		{"HBI Premium", "DRI/HBI", 350.00, 12.0},
		{"Coking Coal", "Coal", 210.75, 10.2},
		{"Rebar ASTM A615", "Long Steel", 650.00, 15.5},
		{"Crude Palm Oil", "Vegetable Oils", 950.00, 12.5},
		{"Soybean Oil", "Vegetable Oils", 1100.00, 11.0},
		{"Caustic Soda", "Chlor-Alkali", 450.00, 22.0},
		{"Sulfuric Acid", "Acids", 300.00, 18.5},
		{"Kraft Paper", "Packaging", 880.00, 15.0},
		{"Corrugated Boxes", "Packaging", 1200.00, 20.0},
		{"Flour", "Milling", 550.00, 10.0},
		{"Sugar", "Commodities", 720.00, 9.5},
	}
	for _, p := range products {
		masters.Products = append(masters.Products, Product{
			Name:             p.name,
			Category:         p.category,
			BusinessUnit:     All,
			DefaultUnitPrice: Float(p.pmt),
			DefaultMargin:    Float(p.margin),
		})
	}
	return masters
}
