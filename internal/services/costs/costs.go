// Package costs aggregates fixed and variable charges and derives the
// revenue threshold needed to reach the target gross margin.
package costs

import (
	"errors"
	"fmt"

	"menusim/internal/models"
)

// ErrInvalidConfiguration is returned when the session configuration cannot
// produce defined figures (for example a 0% target margin).
var ErrInvalidConfiguration = errors.New("invalid configuration")

// FixedTotals holds the current and projected monthly fixed costs
type FixedTotals struct {
	Current   float64 `json:"current"`
	Projected float64 `json:"projected"`
	Replaced  float64 `json:"replaced"`
	Added     float64 `json:"added"`
}

// Aggregate sums fixed-cost lines.
// current   = current + replaced lines
// projected = current + projected lines - replaced lines
func Aggregate(lines []models.CostLine) FixedTotals {
	var totals FixedTotals
	for _, l := range lines {
		switch l.Kind {
		case models.CostProjected:
			totals.Added += l.Amount
		case models.CostReplaced:
			totals.Replaced += l.Amount
			totals.Current += l.Amount
		default:
			totals.Current += l.Amount
		}
	}
	totals.Projected = totals.Current + totals.Added - totals.Replaced
	return totals
}

// GroupTotals sums lines per group, separately for current and projected scope
func GroupTotals(lines []models.CostLine) (current, projected map[string]float64) {
	current = make(map[string]float64)
	projected = make(map[string]float64)
	for _, l := range lines {
		group := l.Group
		if group == "" {
			group = "other"
		}
		switch l.Kind {
		case models.CostProjected:
			projected[group] += l.Amount
		case models.CostReplaced:
			current[group] += l.Amount
		default:
			current[group] += l.Amount
			projected[group] += l.Amount
		}
	}
	return current, projected
}

// Charges returns the total charges: cost of goods sold + fixed + variable
func Charges(materialCost, fixed, variable float64) float64 {
	return materialCost + fixed + variable
}

// NetResult returns revenue minus charges. Negative results are valid.
func NetResult(revenue, charges float64) float64 {
	return revenue - charges
}

// Breakeven returns the revenue needed to cover projected fixed and variable
// costs at the target gross margin:
// breakeven = (projectedFixed + variable) / (target / 100)
func Breakeven(projectedFixed, variable, targetMarginPct float64) (float64, error) {
	if targetMarginPct == 0 {
		return 0, fmt.Errorf("%w: target margin must not be 0%%", ErrInvalidConfiguration)
	}
	return (projectedFixed + variable) / (targetMarginPct / 100), nil
}

// Summarize builds a financial summary from revenue and margin totals
func Summarize(revenue, margin, fixed, variable float64) models.FinancialSummary {
	material := revenue - margin
	charges := Charges(material, fixed, variable)
	net := NetResult(revenue, charges)

	return models.FinancialSummary{
		Revenue:        revenue,
		GrossMargin:    margin,
		GrossMarginPct: percentOf(margin, revenue),
		MaterialCost:   material,
		FixedCosts:     fixed,
		VariableCosts:  variable,
		TotalCharges:   charges,
		NetResult:      net,
		NetResultPct:   percentOf(net, revenue),
	}
}

// percentOf returns part/whole*100, or 0 when whole is not positive
func percentOf(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return (part / whole) * 100
}
