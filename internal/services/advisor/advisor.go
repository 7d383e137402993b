// Package advisor turns a projection into recommendations: products to push,
// products to reprice, the procurement calendar and the spend breakdown.
package advisor

import (
	"sort"

	"menusim/internal/models"
	"menusim/internal/services/classifier"
	"menusim/internal/services/pricing"
)

const (
	// PriorityCount is the length of the "prioritize" list
	PriorityCount = 5

	// Products below ReviewMarginPct that sold more than ReviewMinQuantity
	// units are flagged for a price review targeting ReviewTargetMarginPct.
	ReviewMarginPct       = 20.0
	ReviewMinQuantity     = 5
	ReviewTargetMarginPct = 35.0

	// TrainingBudget is the fixed week 2 budget
	TrainingBudget = 10000.0
	// Shares of the incremental spend for the two restocking weeks
	FirstRestockShare  = 0.4
	SecondRestockShare = 0.6
)

// Prioritize ranks products by margin gain, highest first, and keeps the first n
func Prioritize(ps *models.ProductSet, n int) []models.PriorityItem {
	top := ps.Top(n, (*models.Product).MarginGain)

	items := make([]models.PriorityItem, 0, top.Len())
	for _, p := range top.Products {
		items = append(items, models.PriorityItem{
			Product:         p,
			MarginGain:      p.MarginGain(),
			RevenueGain:     p.RevenueGain(),
			IncrementalCost: p.IncrementalCost,
		})
	}
	return items
}

// ReviewList flags low-margin products that still sell and suggests the
// tax-inclusive price that would bring them to the review target margin
func ReviewList(ps *models.ProductSet, rate float64) []models.ReviewItem {
	var items []models.ReviewItem
	for _, p := range ps.Products {
		if p.MarginPct >= ReviewMarginPct || p.Quantity <= ReviewMinQuantity {
			continue
		}
		excl, incl := SuggestPrice(p.UnitCost, ReviewTargetMarginPct, rate)
		items = append(items, models.ReviewItem{
			Product:                 p,
			TargetMarginPct:         ReviewTargetMarginPct,
			SuggestedPriceExclusive: excl,
			SuggestedPriceInclusive: incl,
			PriceIncrease:           incl - p.PriceInclusive,
		})
	}
	return items
}

// SuggestPrice returns the prices reaching targetMarginPct for a unit cost:
// HT = cost / (1 - target), TTC = HT * (1 + rate)
func SuggestPrice(unitCost, targetMarginPct, rate float64) (exclusive, inclusive float64) {
	exclusive = unitCost / (1 - targetMarginPct/100)
	return exclusive, pricing.ToInclusive(exclusive, rate)
}

// Calendar splits the incremental spend over the four implementation weeks
func Calendar(totalSpend float64) []models.BudgetWeek {
	return []models.BudgetWeek{
		{Week: 1, Actions: "Price review and menu update", Minimal: true},
		{Week: 2, Actions: "Staff training and first promotions", Budget: TrainingBudget},
		{Week: 3, Actions: "First major restock", Budget: totalSpend * FirstRestockShare},
		{Week: 4, Actions: "Happy hours launch and second restock", Budget: totalSpend * SecondRestockShare},
	}
}

// SupplierBreakdown sums incremental spend per supplier type, largest first
func SupplierBreakdown(ps *models.ProductSet) []models.SupplierSpend {
	totals := make(map[classifier.SupplierType]float64)
	var order []classifier.SupplierType
	var total float64

	for _, p := range ps.Products {
		s := classifier.SupplierFor(p.Category)
		if _, ok := totals[s]; !ok {
			order = append(order, s)
		}
		totals[s] += p.IncrementalCost
		total += p.IncrementalCost
	}

	result := make([]models.SupplierSpend, 0, len(order))
	for _, s := range order {
		result = append(result, models.SupplierSpend{
			Supplier: string(s),
			Spend:    totals[s],
			Share:    share(totals[s], total),
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Spend > result[j].Spend
	})
	return result
}

// FilterSpend keeps products of category (all when empty) whose incremental
// spend is at least minSpend, largest spend first
func FilterSpend(ps *models.ProductSet, category string, minSpend float64) *models.SpendTable {
	filtered := ps.FilterByCategory(category).FilterByMinSpend(minSpend)
	sorted := filtered.Top(-1, func(p *models.Product) float64 { return p.IncrementalCost })

	table := &models.SpendTable{
		Category: category,
		MinSpend: minSpend,
		Products: sorted.Products,
		Total:    sorted.SumIncrementalCost(),
	}
	table.ShareOfAll = share(table.Total, ps.SumIncrementalCost())
	return table
}

// share returns part/whole*100, or 0 when whole is 0
func share(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}
