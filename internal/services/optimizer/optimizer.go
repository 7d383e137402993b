// Package optimizer projects per-product sales volumes under one of three
// strategies and derives the optimized revenue, margin and spend.
package optimizer

import (
	"fmt"
	"math"

	"menusim/internal/models"
	"menusim/internal/services/costs"
)

// Uniform multiplier bounds
const (
	UniformFloor = 1.1
	UniformCeil  = 4.0
	// uniformDamping scales the required revenue ratio before clamping
	uniformDamping = 0.8
)

// Margin band boundaries, in percent
const (
	bandLow  = 20.0
	bandMid  = 35.0
	bandHigh = 50.0
)

// Inputs carries the session-level figures a strategy may need
type Inputs struct {
	Breakeven      float64
	CurrentRevenue float64 // tax-inclusive
}

// Result is the projection of one run
type Result struct {
	Products          []models.Product
	UniformMultiplier float64 // set only in uniform mode
}

// strategy assigns a multiplier to every product of a copy of the input
type strategy func(products []models.Product, f models.BandFactors, in Inputs) []models.Product

var strategies = map[models.OptimizationMode]strategy{
	models.ModeBalanced: balanced,
	models.ModeWeighted: weighted,
	models.ModeUniform:  uniform,
}

// Project applies the configured strategy and fills the projection fields of
// a copy of products. The input slice is not modified.
func Project(products []models.Product, s *models.Settings, in Inputs) (*Result, error) {
	run, ok := strategies[s.Mode]
	if !ok {
		return nil, fmt.Errorf("%w: unknown optimization mode %q", costs.ErrInvalidConfiguration, s.Mode)
	}

	projected := run(products, s.Factors, in)

	for i := range projected {
		p := &projected[i]
		// Stop selling loss-making products when the very-low factor is 0,
		// whatever the strategy.
		if p.MarginPct < 0 && s.Factors.VeryLow == 0 {
			p.Multiplier = 0
		}
		finalize(p)
	}

	result := &Result{Products: projected}
	if s.Mode == models.ModeUniform {
		result.UniformMultiplier = UniformMultiplier(in.Breakeven, in.CurrentRevenue)
	}
	return result, nil
}

// finalize derives the optimized figures from the multiplier.
// Quantities are rounded half-to-even.
func finalize(p *models.Product) {
	p.OptimizedQuantity = int(math.RoundToEven(float64(p.Quantity) * p.Multiplier))
	p.OptimizedRevenue = float64(p.OptimizedQuantity) * p.PriceInclusive
	p.OptimizedMarginValue = p.OptimizedRevenue * (p.MarginPct / 100)

	p.QuantityVariation = p.OptimizedQuantity - p.Quantity
	p.IncrementalCost = float64(p.QuantityVariation) * p.UnitCost
	p.IncrementalRevenue = float64(p.QuantityVariation) * p.PriceInclusive
}

// BandFactor returns the factor for a margin percentage.
// <20 very low, <35 low, <50 mid, otherwise high (50 exactly is high).
func BandFactor(marginPct float64, f models.BandFactors) float64 {
	switch {
	case marginPct < bandLow:
		return f.VeryLow
	case marginPct < bandMid:
		return f.Low
	case marginPct < bandHigh:
		return f.Mid
	default:
		return f.High
	}
}

// UniformMultiplier returns clamp(breakeven/currentRevenue * 0.8, 1.1, 4.0).
// A non-positive current revenue gives a ratio of 0, hence the floor.
func UniformMultiplier(breakeven, currentRevenue float64) float64 {
	var ratio float64
	if currentRevenue > 0 {
		ratio = breakeven / currentRevenue
	}
	return math.Min(UniformCeil, math.Max(UniformFloor, ratio*uniformDamping))
}

// Score ranks premium products: margin% * tax-inclusive price / 1000
func Score(p *models.Product) float64 {
	return p.MarginPct * p.PriceInclusive / 1000
}

func balanced(products []models.Product, f models.BandFactors, _ Inputs) []models.Product {
	result := make([]models.Product, len(products))
	copy(result, products)
	for i := range result {
		result[i].Multiplier = BandFactor(result[i].MarginPct, f)
	}
	return result
}

// weighted bands like balanced below 50%; above it the high factor is scaled
// between 0.8x and 1.2x by the product's share of the best score.
func weighted(products []models.Product, f models.BandFactors, _ Inputs) []models.Product {
	result := make([]models.Product, len(products))
	copy(result, products)

	maxScore := math.Inf(-1)
	for i := range result {
		maxScore = math.Max(maxScore, Score(&result[i]))
	}

	for i := range result {
		p := &result[i]
		if p.MarginPct < bandHigh {
			p.Multiplier = BandFactor(p.MarginPct, f)
			continue
		}
		var share float64
		if maxScore > 0 {
			share = Score(p) / maxScore
		}
		p.Multiplier = f.High * (0.8 + 0.4*share)
	}
	return result
}

// uniform applies one multiplier to every product except loss-making ones,
// which keep the very-low factor.
func uniform(products []models.Product, f models.BandFactors, in Inputs) []models.Product {
	result := make([]models.Product, len(products))
	copy(result, products)

	m := UniformMultiplier(in.Breakeven, in.CurrentRevenue)
	for i := range result {
		if result[i].MarginPct < 0 {
			result[i].Multiplier = f.VeryLow
		} else {
			result[i].Multiplier = m
		}
	}
	return result
}
