package simulation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"menusim/internal/models"
)

// ErrInvalidInput marks request values that could not be parsed
var ErrInvalidInput = errors.New("invalid input")

// maxBodyBytes caps JSON settings bodies
const maxBodyBytes = 1 << 20

// floatFields are the numeric form fields and the setting each one writes
var floatFields = []struct {
	key string
	set func(*models.Settings, float64)
}{
	{"tax_rate", func(s *models.Settings, v float64) { s.TaxRate = v }},
	{"target_margin", func(s *models.Settings, v float64) { s.TargetMarginPct = v }},
	{"declared_revenue", func(s *models.Settings, v float64) { s.DeclaredRevenue = v }},
	{"declared_material_cost", func(s *models.Settings, v float64) { s.DeclaredMaterialCost = v }},
	{"variable_costs", func(s *models.Settings, v float64) { s.VariableCosts = v }},
	{"factor_very_low", func(s *models.Settings, v float64) { s.Factors.VeryLow = v }},
	{"factor_low", func(s *models.Settings, v float64) { s.Factors.Low = v }},
	{"factor_mid", func(s *models.Settings, v float64) { s.Factors.Mid = v }},
	{"factor_high", func(s *models.Settings, v float64) { s.Factors.High = v }},
	{"min_spend", func(s *models.Settings, v float64) { s.MinSpend = v }},
}

// ParseSettings overlays the request on a copy of base. A JSON body decodes
// over the copy; otherwise query and form values override single fields:
// price[<id>] sets a price edit and cost[<index>] a fixed-cost amount.
func ParseSettings(r *http.Request, base *models.Settings) (*models.Settings, error) {
	s := base.Clone()

	if r.Method == http.MethodPost && strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(s); err != nil {
			return nil, fmt.Errorf("%w: settings body: %v", ErrInvalidInput, err)
		}
		if s.PriceEdits == nil {
			s.PriceEdits = map[string]float64{}
		}
		return s, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	for _, f := range floatFields {
		if r.Form.Get(f.key) == "" {
			continue
		}
		v, err := parseFormFloat(r, f.key)
		if err != nil {
			return nil, err
		}
		f.set(s, v)
	}

	if mode := r.Form.Get("mode"); mode != "" {
		s.Mode = models.OptimizationMode(mode)
	}
	if _, ok := r.Form["category"]; ok {
		s.CategoryFilter = strings.TrimSpace(r.Form.Get("category"))
	}
	s.ShowDetails = parseFormBool(r, "show_details", s.ShowDetails)
	s.ShowSpend = parseFormBool(r, "show_spend", s.ShowSpend)

	for key := range r.Form {
		switch {
		case strings.HasPrefix(key, "price[") && strings.HasSuffix(key, "]"):
			id := key[len("price[") : len(key)-1]
			if r.Form.Get(key) == "" {
				continue
			}
			v, err := parseFormFloat(r, key)
			if err != nil {
				return nil, err
			}
			s.PriceEdits[id] = v

		case strings.HasPrefix(key, "cost[") && strings.HasSuffix(key, "]"):
			idx, err := strconv.Atoi(key[len("cost[") : len(key)-1])
			if err != nil || idx < 0 || idx >= len(s.FixedCosts) {
				return nil, fmt.Errorf("%w: unknown cost line %s", ErrInvalidInput, key)
			}
			v, err := parseFormFloat(r, key)
			if err != nil {
				return nil, err
			}
			s.FixedCosts[idx].Amount = v
		}
	}

	return s, nil
}

// parseFormFloat parses a float64 from form data. Spaces used as thousands
// separators are accepted.
func parseFormFloat(r *http.Request, key string) (float64, error) {
	v := strings.ReplaceAll(strings.TrimSpace(r.Form.Get(key)), " ", "")
	if v == "" {
		return 0, nil
	}
	val, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidInput, key)
	}
	return val, nil
}

// parseFormBool reads a checkbox or boolean value, keeping def when absent.
// The last value wins so a hidden "0" can precede the checkbox.
func parseFormBool(r *http.Request, key string, def bool) bool {
	v, ok := r.Form[key]
	if !ok || len(v) == 0 {
		return def
	}
	switch strings.ToLower(v[len(v)-1]) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
