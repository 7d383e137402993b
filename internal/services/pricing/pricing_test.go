package pricing

import (
	"math"
	"testing"

	"menusim/internal/models"
)

const tolerance = 1e-6

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestToExclusive(t *testing.T) {
	tests := []struct {
		name     string
		price    float64
		rate     float64
		expected float64
	}{
		{"default rate", 1192.5, models.DefaultTaxRate, 1000},
		{"zero rate", 500, 0, 500},
		{"zero price", 0, models.DefaultTaxRate, 0},
		{"negative price passes through", -119.25, models.DefaultTaxRate, -100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToExclusive(tt.price, tt.rate)
			if !approx(got, tt.expected, tolerance) {
				t.Errorf("ToExclusive(%v, %v) = %v, want %v", tt.price, tt.rate, got, tt.expected)
			}
			if back := ToInclusive(got, tt.rate); !approx(back, tt.price, tolerance) {
				t.Errorf("ToInclusive(%v) = %v, want %v", got, back, tt.price)
			}
		})
	}
}

func TestInitializeFromMargin(t *testing.T) {
	p := models.Product{PriceInclusive: 1000, Quantity: 10, MarginPct: 50}
	InitializeFromMargin(&p, models.DefaultTaxRate)

	wantExcl := 1000 / 1.1925
	checks := []struct {
		name     string
		got      float64
		expected float64
	}{
		{"PriceExclusive", p.PriceExclusive, wantExcl},
		{"UnitCost", p.UnitCost, wantExcl * 0.5},
		{"Revenue", p.Revenue, wantExcl * 10},
		{"RevenueInclusive", p.RevenueInclusive, 10000},
		{"MarginValue", p.MarginValue, wantExcl * 10 * 0.5},
		{"MarginValueInclusive", p.MarginValueInclusive, 5000},
	}

	for _, c := range checks {
		t.Run(c.name, func(t *testing.T) {
			if !approx(c.got, c.expected, tolerance) {
				t.Errorf("%s = %v, want %v", c.name, c.got, c.expected)
			}
		})
	}
}

func TestRecomputeFromPriceEdit(t *testing.T) {
	t.Run("unit cost is held fixed", func(t *testing.T) {
		p := models.Product{PriceInclusive: 1000, Quantity: 4, MarginPct: 50}
		InitializeFromMargin(&p, models.DefaultTaxRate)
		cost := p.UnitCost

		RecomputeFromPriceEdit(&p, 1500, models.DefaultTaxRate)

		if p.UnitCost != cost {
			t.Errorf("UnitCost changed from %v to %v", cost, p.UnitCost)
		}
		wantMargin := (1 - cost/(1500/1.1925)) * 100
		if !approx(p.MarginPct, wantMargin, tolerance) {
			t.Errorf("MarginPct = %v, want %v", p.MarginPct, wantMargin)
		}
		if !approx(p.RevenueInclusive, 6000, tolerance) {
			t.Errorf("RevenueInclusive = %v, want 6000", p.RevenueInclusive)
		}
		if !approx(p.MarginValueInclusive, 6000*wantMargin/100, tolerance) {
			t.Errorf("MarginValueInclusive = %v", p.MarginValueInclusive)
		}
	})

	t.Run("cost stays consistent with price and margin", func(t *testing.T) {
		p := models.Product{PriceInclusive: 2000, Quantity: 3, MarginPct: 30}
		InitializeFromMargin(&p, models.DefaultTaxRate)
		RecomputeFromPriceEdit(&p, 2500, models.DefaultTaxRate)

		derived := p.PriceExclusive * (1 - p.MarginPct/100)
		if !approx(derived, p.UnitCost, tolerance) {
			t.Errorf("HT*(1-margin) = %v, UnitCost = %v", derived, p.UnitCost)
		}
	})

	t.Run("idempotent under repeated identical edits", func(t *testing.T) {
		p := models.Product{PriceInclusive: 800, Quantity: 7, MarginPct: 42}
		InitializeFromMargin(&p, models.DefaultTaxRate)

		RecomputeFromPriceEdit(&p, 950, models.DefaultTaxRate)
		first := p
		RecomputeFromPriceEdit(&p, 950, models.DefaultTaxRate)

		if !approx(first.MarginPct, p.MarginPct, tolerance) {
			t.Errorf("MarginPct drifted: %v then %v", first.MarginPct, p.MarginPct)
		}
		if first.UnitCost != p.UnitCost {
			t.Errorf("UnitCost drifted: %v then %v", first.UnitCost, p.UnitCost)
		}
	})

	t.Run("unchanged price keeps the loaded margin", func(t *testing.T) {
		p := models.Product{PriceInclusive: 1200, Quantity: 2, MarginPct: 37.5}
		InitializeFromMargin(&p, models.DefaultTaxRate)
		RecomputeFromPriceEdit(&p, 1200, models.DefaultTaxRate)

		if !approx(p.MarginPct, 37.5, tolerance) {
			t.Errorf("MarginPct = %v, want 37.5", p.MarginPct)
		}
	})

	t.Run("zero price yields zero margin", func(t *testing.T) {
		p := models.Product{PriceInclusive: 1000, Quantity: 1, MarginPct: 40}
		InitializeFromMargin(&p, models.DefaultTaxRate)
		RecomputeFromPriceEdit(&p, 0, models.DefaultTaxRate)

		if p.MarginPct != 0 {
			t.Errorf("MarginPct = %v, want 0", p.MarginPct)
		}
		if p.RevenueInclusive != 0 {
			t.Errorf("RevenueInclusive = %v, want 0", p.RevenueInclusive)
		}
	})

	t.Run("price below cost gives negative margin", func(t *testing.T) {
		p := models.Product{PriceInclusive: 1000, Quantity: 1, MarginPct: 20}
		InitializeFromMargin(&p, models.DefaultTaxRate)
		RecomputeFromPriceEdit(&p, 500, models.DefaultTaxRate)

		if p.MarginPct >= 0 {
			t.Errorf("MarginPct = %v, want negative", p.MarginPct)
		}
	})
}

func TestApplyPriceEdits(t *testing.T) {
	products := []models.Product{
		{ID: "a", PriceInclusive: 1000, Quantity: 10, MarginPct: 50},
		{ID: "b", PriceInclusive: 500, Quantity: 5, MarginPct: 25},
	}
	for i := range products {
		InitializeFromMargin(&products[i], models.DefaultTaxRate)
	}

	edited := ApplyPriceEdits(products, map[string]float64{"a": 1200, "missing": 1}, models.DefaultTaxRate)

	if products[0].PriceInclusive != 1000 {
		t.Errorf("source product was mutated: price = %v", products[0].PriceInclusive)
	}
	if edited[0].PriceInclusive != 1200 {
		t.Errorf("edited price = %v, want 1200", edited[0].PriceInclusive)
	}
	if edited[0].UnitCost != products[0].UnitCost {
		t.Errorf("edited UnitCost = %v, want %v", edited[0].UnitCost, products[0].UnitCost)
	}
	if edited[1] != products[1] {
		t.Errorf("unedited product changed: %+v", edited[1])
	}
}
