// Package simulation runs one full recalculation pass: price edits, session
// figures, breakeven, volume projection and every derived summary.
package simulation

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"menusim/internal/models"
	"menusim/internal/services/advisor"
	"menusim/internal/services/costs"
	"menusim/internal/services/metrics"
	"menusim/internal/services/optimizer"
	"menusim/internal/services/pricing"
)

// TopCount is the length of the top quantity and top spend lists
const TopCount = 15

// Validate checks the settings before a run
func Validate(s *models.Settings) error {
	if s == nil {
		return fmt.Errorf("%w: no settings", costs.ErrInvalidConfiguration)
	}
	if s.TaxRate < 0 {
		return fmt.Errorf("%w: tax rate must not be negative", costs.ErrInvalidConfiguration)
	}
	if !s.Mode.Valid() {
		return fmt.Errorf("%w: unknown optimization mode %q", costs.ErrInvalidConfiguration, s.Mode)
	}
	f := s.Factors
	if f.VeryLow < 0 || f.Low < 0 || f.Mid < 0 || f.High < 0 {
		return fmt.Errorf("%w: band factors must not be negative", costs.ErrInvalidConfiguration)
	}
	if s.TargetMarginPct == 0 {
		return fmt.Errorf("%w: target margin must not be 0%%", costs.ErrInvalidConfiguration)
	}
	return nil
}

// Run computes a full report for products under settings. products must have
// been initialized from margin at settings.TaxRate; neither argument is
// modified.
func Run(products []models.Product, s *models.Settings) (*models.Report, error) {
	if err := Validate(s); err != nil {
		return nil, err
	}

	edited := pricing.ApplyPriceEdits(products, s.PriceEdits, s.TaxRate)
	current := models.NewProductSet(edited)
	fixed := costs.Aggregate(s.FixedCosts)

	currentRevenue := current.SumRevenueInclusive()
	breakeven, err := costs.Breakeven(fixed.Projected, s.VariableCosts, s.TargetMarginPct)
	if err != nil {
		return nil, err
	}

	projection, err := optimizer.Project(edited, s, optimizer.Inputs{
		Breakeven:      breakeven,
		CurrentRevenue: currentRevenue,
	})
	if err != nil {
		return nil, err
	}
	projected := models.NewProductSet(projection.Products)

	svc := metrics.New()
	report := &models.Report{
		ID:                  uuid.NewString(),
		GeneratedAt:         time.Now(),
		Settings:            s.Clone(),
		FixedCostsCurrent:   fixed.Current,
		FixedCostsProjected: fixed.Projected,
		Breakeven:           breakeven,
		UniformMultiplier:   projection.UniformMultiplier,
		Current:             costs.Summarize(currentRevenue, current.SumMarginInclusive(), fixed.Current, s.VariableCosts),
		Optimized:           costs.Summarize(projected.SumOptimizedRevenue(), projected.SumOptimizedMargin(), fixed.Projected, s.VariableCosts),
		Categories:          svc.AggregateCategories(projected),
		IncrementalSpend:    projected.SumIncrementalCost(),
		Suppliers:           advisor.SupplierBreakdown(projected),
	}

	report.Comparison = svc.Compare(report.Current, report.Optimized, breakeven)
	report.Declared = models.DeclaredFigures{
		Revenue:           s.DeclaredRevenue,
		RevenueDelta:      report.Current.Revenue - s.DeclaredRevenue,
		MaterialCost:      s.DeclaredMaterialCost,
		MaterialCostDelta: report.Current.MaterialCost - s.DeclaredMaterialCost,
	}

	if s.ShowDetails {
		report.Products = svc.DetailTable(projected, s.CategoryFilter)
		report.TopQuantities = projected.Top(TopCount, func(p *models.Product) float64 {
			return float64(p.OptimizedQuantity)
		}).Products
	}

	report.Recommendations = models.Recommendations{
		Prioritize: advisor.Prioritize(projected, advisor.PriorityCount),
		Review:     advisor.ReviewList(projected, s.TaxRate),
	}

	if s.ShowSpend {
		report.TopSpend = projected.Top(TopCount, func(p *models.Product) float64 {
			return p.IncrementalCost
		}).Products
		report.Spend = advisor.FilterSpend(projected, s.CategoryFilter, s.MinSpend)
	}

	report.Plan, err = advisor.ActionPlan(projected, report.Recommendations)
	if err != nil {
		return nil, err
	}

	return report, nil
}
