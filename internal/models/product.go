package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Product is one menu item with its current figures and, once projected,
// its optimized figures.
type Product struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Name     string `json:"name"`

	PriceInclusive float64 `json:"price_inclusive"`
	PriceExclusive float64 `json:"price_exclusive"` // derived
	MarginPct      float64 `json:"margin_pct"`
	Quantity       int     `json:"quantity"`
	UnitCost       float64 `json:"unit_cost"` // derived

	// Current figures, tax-exclusive and tax-inclusive
	Revenue              float64 `json:"revenue"`
	RevenueInclusive     float64 `json:"revenue_inclusive"`
	MarginValue          float64 `json:"margin_value"`
	MarginValueInclusive float64 `json:"margin_value_inclusive"`

	// Projection (set by the optimizer)
	Multiplier           float64 `json:"multiplier"`
	OptimizedQuantity    int     `json:"optimized_quantity"`
	OptimizedRevenue     float64 `json:"optimized_revenue"` // tax-inclusive
	OptimizedMarginValue float64 `json:"optimized_margin_value"`
	QuantityVariation    int     `json:"quantity_variation"`
	IncrementalCost      float64 `json:"incremental_cost"`
	IncrementalRevenue   float64 `json:"incremental_revenue"`
}

// ComputeID derives a stable identifier from category and name so price
// edits can target a product across reloads.
func (p *Product) ComputeID() string {
	cat := strings.ToLower(strings.TrimSpace(p.Category))
	name := strings.ToLower(strings.TrimSpace(p.Name))

	hash := sha256.Sum256([]byte(fmt.Sprintf("%s|%s", cat, name)))
	return hex.EncodeToString(hash[:6])
}

// MarginGain is the optimized margin value less the current tax-exclusive
// margin value.
func (p *Product) MarginGain() float64 {
	return p.OptimizedMarginValue - p.MarginValue
}

// RevenueGain is the revenue won by the projection.
func (p *Product) RevenueGain() float64 {
	return p.OptimizedRevenue - p.RevenueInclusive
}

// VariationPct returns the quantity variation relative to the current quantity,
// or 0 when nothing was sold.
func (p *Product) VariationPct() float64 {
	if p.Quantity == 0 {
		return 0
	}
	return float64(p.QuantityVariation) / float64(p.Quantity) * 100
}

// ProductSet wraps a slice with filtering/aggregation methods
type ProductSet struct {
	Products []Product
}

// NewProductSet creates a new ProductSet from a slice
func NewProductSet(products []Product) *ProductSet {
	return &ProductSet{Products: products}
}

// Len returns the number of products
func (ps *ProductSet) Len() int {
	return len(ps.Products)
}

// Copy returns a deep copy so callers can edit prices without touching the source.
func (ps *ProductSet) Copy() *ProductSet {
	products := make([]Product, len(ps.Products))
	copy(products, ps.Products)
	return &ProductSet{Products: products}
}

// FilterByCategory returns products matching the category (case-insensitive).
// An empty category returns a copy of the whole set.
func (ps *ProductSet) FilterByCategory(category string) *ProductSet {
	if category == "" {
		return ps.Copy()
	}
	result := &ProductSet{}
	for _, p := range ps.Products {
		if strings.EqualFold(p.Category, category) {
			result.Products = append(result.Products, p)
		}
	}
	return result
}

// FilterByMinSpend returns products whose incremental cost is at least min.
func (ps *ProductSet) FilterByMinSpend(min float64) *ProductSet {
	result := &ProductSet{}
	for _, p := range ps.Products {
		if p.IncrementalCost >= min {
			result.Products = append(result.Products, p)
		}
	}
	return result
}

// Categories returns the distinct categories in first-seen order.
func (ps *ProductSet) Categories() []string {
	seen := make(map[string]bool)
	var cats []string
	for _, p := range ps.Products {
		if !seen[p.Category] {
			seen[p.Category] = true
			cats = append(cats, p.Category)
		}
	}
	return cats
}

// SortedCategories returns the distinct categories alphabetically.
func (ps *ProductSet) SortedCategories() []string {
	cats := ps.Categories()
	sort.Strings(cats)
	return cats
}

// GroupByCategory groups products by category
func (ps *ProductSet) GroupByCategory() map[string]*ProductSet {
	result := make(map[string]*ProductSet)
	for _, p := range ps.Products {
		if result[p.Category] == nil {
			result[p.Category] = &ProductSet{}
		}
		result[p.Category].Products = append(result[p.Category].Products, p)
	}
	return result
}

// Top returns at most n products ordered by key descending. Ties keep input order.
func (ps *ProductSet) Top(n int, key func(*Product) float64) *ProductSet {
	sorted := ps.Copy()
	sort.SliceStable(sorted.Products, func(i, j int) bool {
		return key(&sorted.Products[i]) > key(&sorted.Products[j])
	})
	if n >= 0 && len(sorted.Products) > n {
		sorted.Products = sorted.Products[:n]
	}
	return sorted
}

// SumRevenueInclusive returns total current tax-inclusive revenue.
func (ps *ProductSet) SumRevenueInclusive() float64 {
	var sum float64
	for _, p := range ps.Products {
		sum += p.RevenueInclusive
	}
	return sum
}

// SumMarginInclusive returns total current tax-inclusive margin value.
func (ps *ProductSet) SumMarginInclusive() float64 {
	var sum float64
	for _, p := range ps.Products {
		sum += p.MarginValueInclusive
	}
	return sum
}

// SumOptimizedRevenue returns total optimized revenue.
func (ps *ProductSet) SumOptimizedRevenue() float64 {
	var sum float64
	for _, p := range ps.Products {
		sum += p.OptimizedRevenue
	}
	return sum
}

// SumOptimizedMargin returns total optimized margin value.
func (ps *ProductSet) SumOptimizedMargin() float64 {
	var sum float64
	for _, p := range ps.Products {
		sum += p.OptimizedMarginValue
	}
	return sum
}

// SumIncrementalCost returns the total additional procurement spend.
func (ps *ProductSet) SumIncrementalCost() float64 {
	var sum float64
	for _, p := range ps.Products {
		sum += p.IncrementalCost
	}
	return sum
}

// Find returns the product with the given ID, or nil.
func (ps *ProductSet) Find(id string) *Product {
	for i := range ps.Products {
		if ps.Products[i].ID == id {
			return &ps.Products[i]
		}
	}
	return nil
}
