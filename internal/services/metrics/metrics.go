package metrics

import (
	"fmt"
	"math"
	"sort"

	"menusim/internal/models"
)

// Service provides metric calculation functionality
type Service struct{}

// New creates a new metrics service
func New() *Service {
	return &Service{}
}

// AggregateCategories rolls projected products up per category and compares
// current and optimized figures. Categories are ordered by optimized revenue,
// highest first.
func (s *Service) AggregateCategories(ps *models.ProductSet) []models.CategoryAggregate {
	groups := ps.GroupByCategory()
	result := make([]models.CategoryAggregate, 0, len(groups))

	for _, cat := range ps.Categories() {
		agg := models.CategoryAggregate{Category: cat}
		for _, p := range groups[cat].Products {
			agg.Revenue += p.RevenueInclusive
			agg.RevenueExclusive += p.Revenue
			agg.MarginValue += p.MarginValueInclusive
			agg.MarginValueExclusive += p.MarginValue
			agg.OptimizedRevenue += p.OptimizedRevenue
			agg.OptimizedMarginValue += p.OptimizedMarginValue
			agg.ProductCount++
		}

		agg.MarginPct = MarginPct(agg.MarginValue, agg.Revenue)
		agg.OptimizedMarginPct = MarginPct(agg.OptimizedMarginValue, agg.OptimizedRevenue)
		agg.RevenueVariationPct = s.PercentChange(agg.OptimizedRevenue, agg.Revenue)
		agg.MarginVariationPts = agg.OptimizedMarginPct - agg.MarginPct

		result = append(result, agg)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].OptimizedRevenue > result[j].OptimizedRevenue
	})

	return result
}

// MarginPct returns margin/revenue*100, or 0 when revenue is 0
func MarginPct(margin, revenue float64) float64 {
	if revenue == 0 {
		return 0
	}
	return (margin / revenue) * 100
}

// Compare relates optimized figures to current ones and to the breakeven
func (s *Service) Compare(current, optimized models.FinancialSummary, breakeven float64) models.Comparison {
	c := models.Comparison{
		RevenueChangePct: s.PercentChange(optimized.Revenue, current.Revenue),
		BreakevenGap:     optimized.Revenue - breakeven,
		ObjectiveReached: optimized.Revenue >= breakeven,
	}

	if c.ObjectiveReached {
		c.Message = fmt.Sprintf("Objective reached: optimized revenue (%.0f) exceeds the breakeven threshold (%.0f)",
			optimized.Revenue, breakeven)
	} else {
		c.Message = fmt.Sprintf("Objective not reached: %.0f still missing to reach the breakeven threshold",
			breakeven-optimized.Revenue)
		c.Advice = "Raise product prices or reduce projected fixed costs"
	}

	return c
}

// DetailTable returns projected products for the detail view, optionally
// restricted to one category, sorted by category then optimized margin value.
func (s *Service) DetailTable(ps *models.ProductSet, category string) []models.Product {
	rows := ps.FilterByCategory(category).Products
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Category != rows[j].Category {
			return rows[i].Category < rows[j].Category
		}
		return rows[i].OptimizedMarginValue > rows[j].OptimizedMarginValue
	})
	return rows
}

// PercentChange calculates the percentage change between two values
func (s *Service) PercentChange(current, previous float64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return ((current - previous) / math.Abs(previous)) * 100
}
