package optimizer

import (
	"errors"
	"math"
	"testing"

	"menusim/internal/models"
	"menusim/internal/services/costs"
	"menusim/internal/services/pricing"
)

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func defaultFactors() models.BandFactors {
	return models.BandFactors{VeryLow: 0.9, Low: 1.5, Mid: 2.0, High: 2.5}
}

func product(id string, price float64, qty int, margin float64) models.Product {
	p := models.Product{ID: id, Category: "Grill", Name: id, PriceInclusive: price, Quantity: qty, MarginPct: margin}
	pricing.InitializeFromMargin(&p, models.DefaultTaxRate)
	return p
}

func settings(mode models.OptimizationMode, f models.BandFactors) *models.Settings {
	s := models.DefaultSettings()
	s.Mode = mode
	s.Factors = f
	return s
}

func TestBandFactor(t *testing.T) {
	f := defaultFactors()
	tests := []struct {
		margin   float64
		expected float64
	}{
		{-10, f.VeryLow},
		{15, f.VeryLow},
		{19.999, f.VeryLow},
		{20, f.Low},
		{34.9, f.Low},
		{35, f.Mid},
		{49.99, f.Mid},
		{50, f.High},
		{80, f.High},
	}

	for _, tt := range tests {
		if got := BandFactor(tt.margin, f); got != tt.expected {
			t.Errorf("BandFactor(%v) = %v, want %v", tt.margin, got, tt.expected)
		}
	}
}

func TestProjectBalancedSingleProduct(t *testing.T) {
	products := []models.Product{product("a", 1000, 10, 50)}

	res, err := Project(products, settings(models.ModeBalanced, defaultFactors()), Inputs{})
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	p := res.Products[0]

	if p.OptimizedQuantity != 25 {
		t.Errorf("OptimizedQuantity = %d, want 25", p.OptimizedQuantity)
	}
	if p.OptimizedRevenue != 25000 {
		t.Errorf("OptimizedRevenue = %v, want 25000", p.OptimizedRevenue)
	}
	if p.QuantityVariation != 15 {
		t.Errorf("QuantityVariation = %d, want 15", p.QuantityVariation)
	}
	if !approx(p.OptimizedMarginValue, 12500, 1e-9) {
		t.Errorf("OptimizedMarginValue = %v, want 12500", p.OptimizedMarginValue)
	}
	if !approx(p.IncrementalCost, 15*p.UnitCost, 1e-9) {
		t.Errorf("IncrementalCost = %v, want %v", p.IncrementalCost, 15*p.UnitCost)
	}
	if p.IncrementalRevenue != 15000 {
		t.Errorf("IncrementalRevenue = %v, want 15000", p.IncrementalRevenue)
	}
	if products[0].OptimizedQuantity != 0 {
		t.Error("input products were modified")
	}
}

func TestProjectBalancedBands(t *testing.T) {
	products := []models.Product{
		product("very-low", 1000, 10, 15),
		product("low", 1000, 10, 25),
		product("mid", 1000, 10, 40),
		product("edge", 1000, 10, 50),
	}

	res, err := Project(products, settings(models.ModeBalanced, defaultFactors()), Inputs{})
	if err != nil {
		t.Fatalf("Project: %v", err)
	}

	want := []int{9, 15, 20, 25}
	for i, p := range res.Products {
		if p.OptimizedQuantity != want[i] {
			t.Errorf("%s: OptimizedQuantity = %d, want %d", p.ID, p.OptimizedQuantity, want[i])
		}
	}
}

func TestProjectWeighted(t *testing.T) {
	products := []models.Product{
		product("premium", 1000, 10, 60), // score 60 (max)
		product("half", 500, 10, 60),     // score 30
		product("mid", 1000, 10, 40),
	}

	res, err := Project(products, settings(models.ModeWeighted, defaultFactors()), Inputs{})
	if err != nil {
		t.Fatalf("Project: %v", err)
	}

	if !approx(res.Products[0].Multiplier, 3.0, 1e-9) {
		t.Errorf("premium multiplier = %v, want 3.0 (1.2x high)", res.Products[0].Multiplier)
	}
	if !approx(res.Products[1].Multiplier, 2.5, 1e-9) {
		t.Errorf("half multiplier = %v, want 2.5", res.Products[1].Multiplier)
	}
	if res.Products[2].Multiplier != 2.0 {
		t.Errorf("mid multiplier = %v, want mid factor 2.0", res.Products[2].Multiplier)
	}
	if res.Products[0].OptimizedQuantity != 30 {
		t.Errorf("premium quantity = %d, want 30", res.Products[0].OptimizedQuantity)
	}
}

func TestProjectWeightedZeroScore(t *testing.T) {
	products := []models.Product{product("free", 0, 10, 60)}

	res, err := Project(products, settings(models.ModeWeighted, defaultFactors()), Inputs{})
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	m := res.Products[0].Multiplier
	if math.IsNaN(m) || !approx(m, 2.0, 1e-9) {
		t.Errorf("multiplier = %v, want 0.8x high = 2.0", m)
	}
}

func TestUniformMultiplier(t *testing.T) {
	tests := []struct {
		name      string
		breakeven float64
		revenue   float64
		expected  float64
	}{
		{"scaled ratio", 2000, 1000, 1.6},
		{"floor", 1000, 1000, 1.1},
		{"ceiling", 100000, 1000, 4.0},
		{"zero revenue", 2000, 0, 1.1},
		{"negative revenue", 2000, -5, 1.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UniformMultiplier(tt.breakeven, tt.revenue)
			if !approx(got, tt.expected, 1e-9) {
				t.Errorf("UniformMultiplier(%v, %v) = %v, want %v", tt.breakeven, tt.revenue, got, tt.expected)
			}
		})
	}

	t.Run("always within bounds", func(t *testing.T) {
		for _, b := range []float64{1, 10, 999, 12345, 1e6, 1e9} {
			for _, r := range []float64{1, 7, 1000, 1e5, 1e8} {
				m := UniformMultiplier(b, r)
				if m < UniformFloor || m > UniformCeil {
					t.Errorf("UniformMultiplier(%v, %v) = %v out of [1.1, 4.0]", b, r, m)
				}
			}
		}
	})
}

func TestProjectUniform(t *testing.T) {
	products := []models.Product{
		product("good", 1000, 10, 40),
		product("loss", 1000, 10, -5),
	}

	res, err := Project(products, settings(models.ModeUniform, defaultFactors()), Inputs{Breakeven: 2000, CurrentRevenue: 1000})
	if err != nil {
		t.Fatalf("Project: %v", err)
	}

	if !approx(res.UniformMultiplier, 1.6, 1e-9) {
		t.Errorf("UniformMultiplier = %v, want 1.6", res.UniformMultiplier)
	}
	if res.Products[0].OptimizedQuantity != 16 {
		t.Errorf("good quantity = %d, want 16", res.Products[0].OptimizedQuantity)
	}
	if res.Products[1].Multiplier != 0.9 {
		t.Errorf("loss multiplier = %v, want very-low factor 0.9", res.Products[1].Multiplier)
	}
}

func TestProjectStopsLossMakingProducts(t *testing.T) {
	f := defaultFactors()
	f.VeryLow = 0

	for _, mode := range []models.OptimizationMode{models.ModeBalanced, models.ModeWeighted, models.ModeUniform} {
		t.Run(string(mode), func(t *testing.T) {
			products := []models.Product{
				product("loss", 1000, 12, -3),
				product("ok", 1000, 12, 60),
			}
			res, err := Project(products, settings(mode, f), Inputs{Breakeven: 5000, CurrentRevenue: 1000})
			if err != nil {
				t.Fatalf("Project: %v", err)
			}
			if res.Products[0].OptimizedQuantity != 0 {
				t.Errorf("loss quantity = %d, want 0", res.Products[0].OptimizedQuantity)
			}
			if res.Products[0].QuantityVariation != -12 {
				t.Errorf("loss variation = %d, want -12", res.Products[0].QuantityVariation)
			}
			if res.Products[1].OptimizedQuantity == 0 {
				t.Error("profitable product was stopped")
			}
		})
	}
}

func TestProjectRoundsHalfToEven(t *testing.T) {
	f := models.BandFactors{VeryLow: 1.5, Low: 1.5, Mid: 1.5, High: 1.5}
	products := []models.Product{
		product("a", 100, 7, 10), // 10.5 -> 10
		product("b", 100, 5, 10), // 7.5 -> 8
		product("c", 100, 3, 10), // 4.5 -> 4
	}

	res, err := Project(products, settings(models.ModeBalanced, f), Inputs{})
	if err != nil {
		t.Fatalf("Project: %v", err)
	}

	want := []int{10, 8, 4}
	for i, p := range res.Products {
		if p.OptimizedQuantity != want[i] {
			t.Errorf("%s: OptimizedQuantity = %d, want %d", p.ID, p.OptimizedQuantity, want[i])
		}
	}
}

func TestProjectUnknownMode(t *testing.T) {
	_, err := Project(nil, settings("aggressive", defaultFactors()), Inputs{})
	if !errors.Is(err, costs.ErrInvalidConfiguration) {
		t.Errorf("err = %v, want ErrInvalidConfiguration", err)
	}
}
