package models

import "time"

// FinancialSummary holds the session-level figures for one side of the
// comparison (current or optimized)
type FinancialSummary struct {
	Revenue        float64 `json:"revenue"` // tax-inclusive
	GrossMargin    float64 `json:"gross_margin"`
	GrossMarginPct float64 `json:"gross_margin_pct"`
	MaterialCost   float64 `json:"material_cost"`
	FixedCosts     float64 `json:"fixed_costs"`
	VariableCosts  float64 `json:"variable_costs"`
	TotalCharges   float64 `json:"total_charges"`
	NetResult      float64 `json:"net_result"`
	NetResultPct   float64 `json:"net_result_pct"`
}

// Comparison relates the optimized summary to the current one and to the breakeven
type Comparison struct {
	RevenueChangePct float64 `json:"revenue_change_pct"`
	BreakevenGap     float64 `json:"breakeven_gap"` // optimized revenue - breakeven
	ObjectiveReached bool    `json:"objective_reached"`
	Message          string  `json:"message"`
	Advice           string  `json:"advice,omitempty"`
}

// DeclaredFigures compares the operator's typed-in figures with computed ones
type DeclaredFigures struct {
	Revenue           float64 `json:"revenue"`
	RevenueDelta      float64 `json:"revenue_delta"`
	MaterialCost      float64 `json:"material_cost"`
	MaterialCostDelta float64 `json:"material_cost_delta"`
}

// CategoryAggregate compares one category's current and optimized figures
type CategoryAggregate struct {
	Category             string  `json:"category"`
	Revenue              float64 `json:"revenue"` // tax-inclusive
	RevenueExclusive     float64 `json:"revenue_exclusive"`
	MarginValue          float64 `json:"margin_value"` // tax-inclusive
	MarginValueExclusive float64 `json:"margin_value_exclusive"`
	MarginPct            float64 `json:"margin_pct"`
	OptimizedRevenue     float64 `json:"optimized_revenue"`
	OptimizedMarginValue float64 `json:"optimized_margin_value"`
	OptimizedMarginPct   float64 `json:"optimized_margin_pct"`
	RevenueVariationPct  float64 `json:"revenue_variation_pct"`
	MarginVariationPts   float64 `json:"margin_variation_pts"` // percentage points
	ProductCount         int     `json:"product_count"`
}

// PriorityItem is a product worth pushing
type PriorityItem struct {
	Product         Product `json:"product"`
	MarginGain      float64 `json:"margin_gain"`
	RevenueGain     float64 `json:"revenue_gain"`
	IncrementalCost float64 `json:"incremental_cost"`
}

// ReviewItem is an underperforming product with a revised price suggestion
type ReviewItem struct {
	Product                 Product `json:"product"`
	TargetMarginPct         float64 `json:"target_margin_pct"`
	SuggestedPriceExclusive float64 `json:"suggested_price_exclusive"`
	SuggestedPriceInclusive float64 `json:"suggested_price_inclusive"`
	PriceIncrease           float64 `json:"price_increase"` // vs current tax-inclusive price
}

// Recommendations groups the ranked recommendation lists
type Recommendations struct {
	Prioritize []PriorityItem `json:"prioritize"`
	Review     []ReviewItem   `json:"review"`
}

// BudgetWeek is one row of the implementation calendar
type BudgetWeek struct {
	Week    int     `json:"week"`
	Actions string  `json:"actions"`
	Budget  float64 `json:"budget"`
	Minimal bool    `json:"minimal,omitempty"`
}

// SupplierSpend is the incremental spend attributed to one supplier type
type SupplierSpend struct {
	Supplier string  `json:"supplier"`
	Spend    float64 `json:"spend"`
	Share    float64 `json:"share_pct"`
}

// SpendTable is the incremental spend table after category/threshold filtering
type SpendTable struct {
	Category   string    `json:"category,omitempty"`
	MinSpend   float64   `json:"min_spend"`
	Products   []Product `json:"products"`
	Total      float64   `json:"total"`
	ShareOfAll float64   `json:"share_of_all_pct"`
}

// ActionPlan is the recommended plan in Markdown and rendered HTML
type ActionPlan struct {
	Actions  []string     `json:"actions"`
	Calendar []BudgetWeek `json:"calendar"`
	Markdown string       `json:"markdown"`
	HTML     string       `json:"html"`
}

// Report is everything one simulation run produces
type Report struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	Settings    *Settings `json:"settings"`

	FixedCostsCurrent   float64 `json:"fixed_costs_current"`
	FixedCostsProjected float64 `json:"fixed_costs_projected"`
	Breakeven           float64 `json:"breakeven"`
	UniformMultiplier   float64 `json:"uniform_multiplier,omitempty"`

	Current    FinancialSummary `json:"current"`
	Optimized  FinancialSummary `json:"optimized"`
	Comparison Comparison       `json:"comparison"`
	Declared   DeclaredFigures  `json:"declared"`

	Categories      []CategoryAggregate `json:"categories"`
	Products        []Product           `json:"products,omitempty"` // only when ShowDetails
	TopQuantities   []Product           `json:"top_quantities,omitempty"`
	Recommendations Recommendations     `json:"recommendations"`

	IncrementalSpend float64         `json:"incremental_spend"`
	TopSpend         []Product       `json:"top_spend,omitempty"` // only when ShowSpend
	Spend            *SpendTable     `json:"spend,omitempty"`
	Suppliers        []SupplierSpend `json:"suppliers"`
	Plan             ActionPlan      `json:"plan"`
}
