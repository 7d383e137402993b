package classifier

import (
	"sort"
	"strings"
)

// SupplierType is the kind of supplier a menu category is bought from
type SupplierType string

const (
	BeverageDistributor SupplierType = "Beverage distributor"
	MeatSupplier        SupplierType = "Butcher / meat supplier"
	FoodSupplier        SupplierType = "Food supplier"
	NotApplicable       SupplierType = "Not applicable"
	Unclassified        SupplierType = "Unclassified"
)

// CategorySuppliers maps the restaurant's menu categories (lowercase) to
// their supplier type
var CategorySuppliers = map[string]SupplierType{
	"bières":                  BeverageDistributor,
	"grillades":               MeatSupplier,
	"plats chauds":            FoodSupplier,
	"accompagnements":         FoodSupplier,
	"boissons gazeuses":       BeverageDistributor,
	"eau minérale et gazeuse": BeverageDistributor,
	"alcool mix":              BeverageDistributor,
	"liqueur":                 BeverageDistributor,
	"services":                NotApplicable,
}

// Keyword fallbacks for categories missing from the table (lowercase).
// Checked in this order: services, beverages, meat, food.
var ServiceKeywords = []string{
	"service", "delivery", "livraison", "corkage",
}

var BeverageKeywords = []string{
	"beer", "bière", "biere", "drink", "boisson",
	"eau", "water", "soda", "juice", "jus",
	"wine", "vin", "liqueur", "alcool", "alcohol",
	"cocktail", "spirit", "whisky",
}

var MeatKeywords = []string{
	"grill", "meat", "viande", "brochette",
	"poulet", "chicken", "poisson", "fish", "porc", "boeuf",
}

var FoodKeywords = []string{
	"plat", "dish", "side", "accompagnement", "dessert",
	"starter", "entrée", "entree", "food", "snack", "salad", "salade",
}

// SupplierFor returns the supplier type for a menu category
func SupplierFor(category string) SupplierType {
	catLower := strings.ToLower(strings.TrimSpace(category))
	if catLower == "" {
		return Unclassified
	}

	if s, ok := CategorySuppliers[catLower]; ok {
		return s
	}

	switch {
	case containsAny(catLower, ServiceKeywords):
		return NotApplicable
	case containsAny(catLower, BeverageKeywords):
		return BeverageDistributor
	case containsAny(catLower, MeatKeywords):
		return MeatSupplier
	case containsAny(catLower, FoodKeywords):
		return FoodSupplier
	}

	return Unclassified
}

// GroupCategories maps every supplier type to its categories, sorted
func GroupCategories(categories []string) map[SupplierType][]string {
	result := make(map[SupplierType][]string)
	for _, c := range categories {
		s := SupplierFor(c)
		result[s] = append(result[s], c)
	}
	for s := range result {
		sort.Strings(result[s])
	}
	return result
}

// containsAny checks if text contains any of the keywords
func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
