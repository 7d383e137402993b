package metrics

import (
	"math"
	"testing"

	"menusim/internal/models"
)

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestAggregateCategories(t *testing.T) {
	ps := models.NewProductSet([]models.Product{
		{Category: "Grill", Name: "A", RevenueInclusive: 1000, MarginValueInclusive: 500, OptimizedRevenue: 2000, OptimizedMarginValue: 1000},
		{Category: "Drinks", Name: "C", RevenueInclusive: 400, MarginValueInclusive: 300, OptimizedRevenue: 800, OptimizedMarginValue: 600},
		{Category: "Grill", Name: "B", RevenueInclusive: 2000, MarginValueInclusive: 200, OptimizedRevenue: 2000, OptimizedMarginValue: 200},
	})

	svc := New()
	cats := svc.AggregateCategories(ps)

	if len(cats) != 2 {
		t.Fatalf("got %d categories, want 2", len(cats))
	}
	grill := cats[0]
	if grill.Category != "Grill" {
		t.Fatalf("first category = %q, want Grill (highest optimized revenue)", grill.Category)
	}
	if grill.Revenue != 3000 || grill.MarginValue != 700 {
		t.Errorf("Grill totals = %v / %v, want 3000 / 700", grill.Revenue, grill.MarginValue)
	}
	if !approx(grill.MarginPct, 23.333333, 1e-5) {
		t.Errorf("Grill MarginPct = %v, want 23.33", grill.MarginPct)
	}
	if !approx(grill.OptimizedMarginPct, 30, 1e-9) {
		t.Errorf("Grill OptimizedMarginPct = %v, want 30", grill.OptimizedMarginPct)
	}
	if !approx(grill.RevenueVariationPct, 33.333333, 1e-5) {
		t.Errorf("Grill RevenueVariationPct = %v, want 33.33", grill.RevenueVariationPct)
	}
	if !approx(grill.MarginVariationPts, 30-70.0/3, 1e-9) {
		t.Errorf("Grill MarginVariationPts = %v", grill.MarginVariationPts)
	}
	if grill.ProductCount != 2 {
		t.Errorf("Grill ProductCount = %d, want 2", grill.ProductCount)
	}
}

func TestAggregateCategoriesZeroRevenue(t *testing.T) {
	ps := models.NewProductSet([]models.Product{
		{Category: "Services", Name: "Delivery"},
	})

	cats := New().AggregateCategories(ps)
	if cats[0].MarginPct != 0 || cats[0].OptimizedMarginPct != 0 {
		t.Errorf("zero revenue category has pcts %v / %v, want 0", cats[0].MarginPct, cats[0].OptimizedMarginPct)
	}
	if math.IsNaN(cats[0].RevenueVariationPct) {
		t.Error("RevenueVariationPct is NaN")
	}
}

func TestCompare(t *testing.T) {
	svc := New()

	t.Run("reached", func(t *testing.T) {
		c := svc.Compare(models.FinancialSummary{Revenue: 1000}, models.FinancialSummary{Revenue: 2500}, 2000)
		if !c.ObjectiveReached || c.BreakevenGap != 500 || c.RevenueChangePct != 150 {
			t.Errorf("Compare() = %+v", c)
		}
		if c.Advice != "" {
			t.Errorf("unexpected advice %q", c.Advice)
		}
	})

	t.Run("not reached", func(t *testing.T) {
		c := svc.Compare(models.FinancialSummary{Revenue: 1000}, models.FinancialSummary{Revenue: 1500}, 2000)
		if c.ObjectiveReached || c.BreakevenGap != -500 {
			t.Errorf("Compare() = %+v", c)
		}
		if c.Advice == "" {
			t.Error("expected advice when the objective is missed")
		}
	})
}

func TestDetailTable(t *testing.T) {
	ps := models.NewProductSet([]models.Product{
		{Category: "Grill", Name: "Low", OptimizedMarginValue: 10},
		{Category: "Beer", Name: "X", OptimizedMarginValue: 5},
		{Category: "Grill", Name: "High", OptimizedMarginValue: 90},
	})
	svc := New()

	rows := svc.DetailTable(ps, "")
	names := []string{rows[0].Name, rows[1].Name, rows[2].Name}
	want := []string{"X", "High", "Low"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("order = %v, want %v", names, want)
		}
	}

	grill := svc.DetailTable(ps, "grill")
	if len(grill) != 2 {
		t.Errorf("filtered rows = %d, want 2", len(grill))
	}
}

func TestPercentChange(t *testing.T) {
	svc := New()
	tests := []struct {
		current, previous, expected float64
	}{
		{150, 100, 50},
		{50, 100, -50},
		{0, 0, 0},
		{10, 0, 100},
		{-50, -100, 50},
	}
	for _, tt := range tests {
		if got := svc.PercentChange(tt.current, tt.previous); got != tt.expected {
			t.Errorf("PercentChange(%v, %v) = %v, want %v", tt.current, tt.previous, got, tt.expected)
		}
	}
}
