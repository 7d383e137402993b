// Package pricing converts menu prices between tax bases and keeps each
// product's derived figures consistent with its price, margin and cost.
package pricing

import (
	"log"

	"menusim/internal/models"
)

// ToExclusive removes consumption tax from a tax-inclusive price
// HT = TTC / (1 + rate)
func ToExclusive(priceInclusive, rate float64) float64 {
	return priceInclusive / (1 + rate)
}

// ToInclusive adds consumption tax to a tax-exclusive price
func ToInclusive(priceExclusive, rate float64) float64 {
	return priceExclusive * (1 + rate)
}

// InitializeFromMargin derives every dependent field from price, quantity and
// margin percentage. Margin is the input here; unit cost is derived from it.
func InitializeFromMargin(p *models.Product, rate float64) {
	p.PriceExclusive = ToExclusive(p.PriceInclusive, rate)
	p.UnitCost = p.PriceExclusive * (1 - p.MarginPct/100)
	refreshTotals(p)
}

// RecomputeFromPriceEdit applies a new tax-inclusive price. Unit cost is held
// fixed and margin percentage is re-derived from it:
// margin = (1 - cost / HT) * 100, or 0 when HT <= 0.
func RecomputeFromPriceEdit(p *models.Product, priceInclusive, rate float64) {
	p.PriceInclusive = priceInclusive
	p.PriceExclusive = ToExclusive(priceInclusive, rate)

	if p.PriceExclusive > 0 {
		p.MarginPct = (1 - p.UnitCost/p.PriceExclusive) * 100
	} else {
		p.MarginPct = 0
	}

	refreshTotals(p)
}

// refreshTotals rebuilds revenue and margin value on both tax bases
func refreshTotals(p *models.Product) {
	qty := float64(p.Quantity)
	p.Revenue = p.PriceExclusive * qty
	p.RevenueInclusive = p.PriceInclusive * qty
	p.MarginValue = p.Revenue * (p.MarginPct / 100)
	p.MarginValueInclusive = p.RevenueInclusive * (p.MarginPct / 100)
}

// ApplyPriceEdits returns a copy of products with the edited tax-inclusive
// prices applied. Edits for unknown IDs are logged and ignored; products
// without an edit are returned unchanged.
func ApplyPriceEdits(products []models.Product, edits map[string]float64, rate float64) []models.Product {
	result := make([]models.Product, len(products))
	copy(result, products)

	if len(edits) == 0 {
		return result
	}

	matched := 0
	for i := range result {
		price, ok := edits[result[i].ID]
		if !ok {
			continue
		}
		RecomputeFromPriceEdit(&result[i], price, rate)
		matched++
	}

	if matched < len(edits) {
		log.Printf("Ignored %d price edit(s) for unknown products", len(edits)-matched)
	}

	return result
}
