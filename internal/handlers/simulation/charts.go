package simulation

import (
	"menusim/internal/models"
)

// chartBuilders maps a chart type to the function building it from a report
var chartBuilders = map[string]func(*models.Report) models.ChartResponse{
	"category-revenue": buildCategoryRevenueChart,
	"category-margin":  buildCategoryMarginChart,
	"top-quantities":   buildTopQuantitiesChart,
	"top-spend":        buildTopSpendChart,
	"suppliers":        buildSupplierChart,
}

func buildCategoryRevenueChart(r *models.Report) models.ChartResponse {
	labels := make([]string, 0, len(r.Categories))
	current := make([]float64, 0, len(r.Categories))
	optimized := make([]float64, 0, len(r.Categories))
	for _, c := range r.Categories {
		labels = append(labels, c.Category)
		current = append(current, c.Revenue)
		optimized = append(optimized, c.OptimizedRevenue)
	}

	return models.ChartResponse{
		Data: []models.ChartData{
			{Type: "bar", X: labels, Y: current, Name: "Current"},
			{Type: "bar", X: labels, Y: optimized, Name: "Optimized"},
		},
		Layout: models.ChartLayout{
			Title:      "Revenue by category",
			YAxisTitle: models.Currency,
			BarMode:    "group",
			ShowLegend: true,
		},
	}
}

// buildCategoryMarginChart draws the target margin as a dashed line across all categories
func buildCategoryMarginChart(r *models.Report) models.ChartResponse {
	labels := make([]string, 0, len(r.Categories))
	current := make([]float64, 0, len(r.Categories))
	optimized := make([]float64, 0, len(r.Categories))
	for _, c := range r.Categories {
		labels = append(labels, c.Category)
		current = append(current, c.MarginPct)
		optimized = append(optimized, c.OptimizedMarginPct)
	}

	var target float64
	if r.Settings != nil {
		target = r.Settings.TargetMarginPct
	}

	return models.ChartResponse{
		Data: []models.ChartData{
			{Type: "bar", X: labels, Y: current, Name: "Current"},
			{Type: "bar", X: labels, Y: optimized, Name: "Optimized"},
		},
		Layout: models.ChartLayout{
			Title:      "Margin % by category",
			YAxisTitle: "%",
			BarMode:    "group",
			ShowLegend: true,
			Shapes: []models.ChartShape{{
				Type: "line",
				X0:   -0.5,
				X1:   float64(len(labels)) - 0.5,
				Y0:   target,
				Y1:   target,
				Dash: "dash",
			}},
		},
	}
}

func buildTopQuantitiesChart(r *models.Report) models.ChartResponse {
	names := make([]string, 0, len(r.TopQuantities))
	current := make([]int, 0, len(r.TopQuantities))
	optimized := make([]int, 0, len(r.TopQuantities))
	for _, p := range r.TopQuantities {
		names = append(names, p.Name)
		current = append(current, p.Quantity)
		optimized = append(optimized, p.OptimizedQuantity)
	}

	return models.ChartResponse{
		Data: []models.ChartData{
			{Type: "bar", X: names, Y: current, Name: "Current"},
			{Type: "bar", X: names, Y: optimized, Name: "Optimized"},
		},
		Layout: models.ChartLayout{
			Title:      "Top products by optimized quantity",
			YAxisTitle: "Units",
			BarMode:    "group",
			ShowLegend: true,
		},
	}
}

func buildTopSpendChart(r *models.Report) models.ChartResponse {
	names := make([]string, 0, len(r.TopSpend))
	spend := make([]float64, 0, len(r.TopSpend))
	for _, p := range r.TopSpend {
		names = append(names, p.Name)
		spend = append(spend, p.IncrementalCost)
	}

	return models.ChartResponse{
		Data: []models.ChartData{
			{Type: "bar", X: names, Y: spend, Name: "Incremental spend"},
		},
		Layout: models.ChartLayout{
			Title:      "Top products by incremental spend",
			YAxisTitle: models.Currency,
		},
	}
}

func buildSupplierChart(r *models.Report) models.ChartResponse {
	labels := make([]string, 0, len(r.Suppliers))
	values := make([]float64, 0, len(r.Suppliers))
	for _, s := range r.Suppliers {
		if s.Spend <= 0 {
			continue
		}
		labels = append(labels, s.Supplier)
		values = append(values, s.Spend)
	}

	return models.ChartResponse{
		Data: []models.ChartData{
			{Type: "pie", Labels: labels, Values: values, Hole: 0.4},
		},
		Layout: models.ChartLayout{
			Title:      "Incremental spend by supplier",
			ShowLegend: true,
		},
	}
}
