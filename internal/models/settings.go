package models

// DefaultTaxRate is the consumption tax applied to menu prices (19.25%).
const DefaultTaxRate = 0.1925

// Currency labels every amount in reports and exports
const Currency = "FCFA"

// OptimizationMode selects the volume projection strategy
type OptimizationMode string

const (
	ModeBalanced OptimizationMode = "balanced"
	ModeWeighted OptimizationMode = "weighted"
	ModeUniform  OptimizationMode = "uniform"
)

// Modes lists the optimization modes in display order
func Modes() []OptimizationMode {
	return []OptimizationMode{ModeBalanced, ModeWeighted, ModeUniform}
}

// Valid reports whether m is one of the known modes
func (m OptimizationMode) Valid() bool {
	switch m {
	case ModeBalanced, ModeWeighted, ModeUniform:
		return true
	}
	return false
}

// Label returns a human-readable name for the mode
func (m OptimizationMode) Label() string {
	switch m {
	case ModeBalanced:
		return "Balanced"
	case ModeWeighted:
		return "Maximize profitable products"
	case ModeUniform:
		return "Uniform increase"
	}
	return string(m)
}

// CostKind classifies a fixed-cost line
type CostKind string

const (
	// CostCurrent is paid today and still paid after the projection
	CostCurrent CostKind = "current"
	// CostProjected is a new cost that only exists in the projection
	CostProjected CostKind = "projected"
	// CostReplaced is paid today but replaced by projected lines
	CostReplaced CostKind = "replaced"
)

// CostLine is a named monthly fixed cost
type CostLine struct {
	Name   string   `json:"name" toml:"name" yaml:"name"`
	Group  string   `json:"group,omitempty" toml:"group" yaml:"group"` // staff, overhead, ...
	Amount float64  `json:"amount" toml:"amount" yaml:"amount"`
	Kind   CostKind `json:"kind" toml:"kind" yaml:"kind"`
}

// BandFactors are the volume multipliers per margin band
type BandFactors struct {
	VeryLow float64 `json:"very_low" toml:"very_low" yaml:"very_low"` // margin < 20%, 0 stops selling
	Low     float64 `json:"low" toml:"low" yaml:"low"`                // 20-35%
	Mid     float64 `json:"mid" toml:"mid" yaml:"mid"`                // 35-50%
	High    float64 `json:"high" toml:"high" yaml:"high"`             // >= 50%
}

// Settings is the full session configuration. It is treated as an immutable
// value: every computation receives it explicitly.
type Settings struct {
	TaxRate         float64 `json:"tax_rate" toml:"tax_rate" yaml:"tax_rate"`
	TargetMarginPct float64 `json:"target_margin_pct" toml:"target_margin_pct" yaml:"target_margin_pct"`

	// Reference figures typed in by the operator, reported beside computed ones
	DeclaredRevenue      float64 `json:"declared_revenue" toml:"declared_revenue" yaml:"declared_revenue"`
	DeclaredMaterialCost float64 `json:"declared_material_cost" toml:"declared_material_cost" yaml:"declared_material_cost"`

	VariableCosts float64    `json:"variable_costs" toml:"variable_costs" yaml:"variable_costs"`
	FixedCosts    []CostLine `json:"fixed_costs" toml:"fixed_costs" yaml:"fixed_costs"`

	Mode    OptimizationMode `json:"mode" toml:"mode" yaml:"mode"`
	Factors BandFactors      `json:"factors" toml:"factors" yaml:"factors"`

	// Tax-inclusive prices keyed by product ID
	PriceEdits map[string]float64 `json:"price_edits,omitempty" toml:"-" yaml:"-"`

	// Display
	ShowDetails    bool    `json:"show_details" toml:"show_details" yaml:"show_details"`
	ShowSpend      bool    `json:"show_spend" toml:"show_spend" yaml:"show_spend"`
	CategoryFilter string  `json:"category_filter,omitempty" toml:"-" yaml:"-"`
	MinSpend       float64 `json:"min_spend" toml:"min_spend" yaml:"min_spend"`
}

// DefaultSettings returns the restaurant's reference configuration
func DefaultSettings() *Settings {
	return &Settings{
		TaxRate:              DefaultTaxRate,
		TargetMarginPct:      50,
		DeclaredRevenue:      1976150,
		DeclaredMaterialCost: 1321893,
		VariableCosts:        27540,
		FixedCosts: []CostLine{
			{Name: "Manager salary", Group: "staff", Amount: 200000, Kind: CostCurrent},
			{Name: "Waitress salary", Group: "staff", Amount: 40000, Kind: CostReplaced},
			{Name: "Electricity", Group: "overhead", Amount: 67593, Kind: CostCurrent},
			{Name: "TV subscription", Group: "overhead", Amount: 54000, Kind: CostCurrent},
			{Name: "Transport", Group: "overhead", Amount: 50000, Kind: CostCurrent},
			{Name: "Internet box top-up", Group: "overhead", Amount: 30000, Kind: CostCurrent},
			{Name: "Receipt books", Group: "overhead", Amount: 2050, Kind: CostCurrent},
			{Name: "Toothpicks", Group: "overhead", Amount: 100, Kind: CostCurrent},
			{Name: "Packaging", Group: "overhead", Amount: 100, Kind: CostCurrent},
			{Name: "Waitress 1", Group: "staff", Amount: 60000, Kind: CostProjected},
			{Name: "Waitress 2", Group: "staff", Amount: 60000, Kind: CostProjected},
			{Name: "Rent", Group: "premises", Amount: 400000, Kind: CostProjected},
			{Name: "ERP (2 users)", Group: "overhead", Amount: 90000, Kind: CostProjected},
			{Name: "Website + email", Group: "overhead", Amount: 40000, Kind: CostProjected},
		},
		Mode: ModeBalanced,
		Factors: BandFactors{
			VeryLow: 0.9,
			Low:     1.5,
			Mid:     2.0,
			High:    2.5,
		},
		PriceEdits: map[string]float64{},
		MinSpend:   5000,
	}
}

// Clone returns a copy that shares nothing mutable with s
func (s *Settings) Clone() *Settings {
	c := *s
	c.FixedCosts = make([]CostLine, len(s.FixedCosts))
	copy(c.FixedCosts, s.FixedCosts)
	c.PriceEdits = make(map[string]float64, len(s.PriceEdits))
	for k, v := range s.PriceEdits {
		c.PriceEdits[k] = v
	}
	return &c
}
