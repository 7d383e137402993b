// Package export writes simulation reports as XLSX workbooks.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"menusim/internal/models"
	"menusim/internal/services/storage"
)

// Sheet names, in workbook order
const (
	SheetSummary         = "Summary"
	SheetProducts        = "Products"
	SheetCategories      = "Categories"
	SheetRecommendations = "Recommendations"
	SheetBudget          = "Budget"
)

// ContentType is the MIME type of the workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Exporter builds report workbooks
type Exporter struct{}

// NewExporter creates an exporter
func NewExporter() *Exporter {
	return &Exporter{}
}

// FileName is the workbook name for a report
func FileName(r *models.Report) string {
	return fmt.Sprintf("menusim-report-%s.xlsx", r.ID)
}

// Export builds the workbook for a report. The caller closes the file.
func (e *Exporter) Export(r *models.Report) (*excelize.File, error) {
	if r == nil {
		return nil, errors.New("no report to export")
	}

	f := excelize.NewFile()
	f.SetSheetName(f.GetSheetName(0), SheetSummary)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		f.Close()
		return nil, err
	}

	sheets := []struct {
		name string
		rows [][]interface{}
	}{
		{SheetSummary, summaryRows(r)},
		{SheetProducts, productRows(r)},
		{SheetCategories, categoryRows(r)},
		{SheetRecommendations, recommendationRows(r)},
		{SheetBudget, budgetRows(r)},
	}

	for _, sh := range sheets {
		if sh.name != SheetSummary {
			if _, err := f.NewSheet(sh.name); err != nil {
				f.Close()
				return nil, fmt.Errorf("creating sheet %s: %w", sh.name, err)
			}
		}
		if err := writeRows(f, sh.name, sh.rows); err != nil {
			f.Close()
			return nil, err
		}
		f.SetRowStyle(sh.name, 1, 1, headerStyle)
		f.SetColWidth(sh.name, "A", "B", 28)
		f.SetColWidth(sh.name, "C", "N", 16)
	}

	return f, nil
}

// Write streams the report workbook to w
func (e *Exporter) Write(r *models.Report, w io.Writer) error {
	f, err := e.Export(r)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// Save writes the report workbook into dir through store, so it is encrypted
// when the data directory is. It returns the written path.
func (e *Exporter) Save(store *storage.Storage, dir string, r *models.Report) (string, error) {
	var buf bytes.Buffer
	if err := e.Write(r, &buf); err != nil {
		return "", err
	}

	path := filepath.Join(dir, FileName(r))
	if err := store.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return "", fmt.Errorf("saving %s: %w", FileName(r), err)
	}

	log.Printf("Exported report %s to %s", r.ID, path)
	return path, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func summaryRows(r *models.Report) [][]interface{} {
	cur, opt := r.Current, r.Optimized
	rows := [][]interface{}{
		{"Indicator", "Current", "Optimized"},
		{"Revenue (" + models.Currency + ", incl. tax)", cur.Revenue, opt.Revenue},
		{"Gross margin", cur.GrossMargin, opt.GrossMargin},
		{"Gross margin %", cur.GrossMarginPct, opt.GrossMarginPct},
		{"Material cost", cur.MaterialCost, opt.MaterialCost},
		{"Fixed costs", cur.FixedCosts, opt.FixedCosts},
		{"Variable costs", cur.VariableCosts, opt.VariableCosts},
		{"Total charges", cur.TotalCharges, opt.TotalCharges},
		{"Net result", cur.NetResult, opt.NetResult},
		{"Net result %", cur.NetResultPct, opt.NetResultPct},
		{},
		{"Breakeven", r.Breakeven},
		{"Gap to breakeven", r.Comparison.BreakevenGap},
		{"Revenue change %", r.Comparison.RevenueChangePct},
		{"Objective reached", r.Comparison.ObjectiveReached},
		{"Message", r.Comparison.Message},
	}
	if r.Comparison.Advice != "" {
		rows = append(rows, []interface{}{"Advice", r.Comparison.Advice})
	}
	if r.UniformMultiplier > 0 {
		rows = append(rows, []interface{}{"Uniform multiplier", r.UniformMultiplier})
	}
	rows = append(rows,
		[]interface{}{},
		[]interface{}{"Declared revenue", r.Declared.Revenue, r.Declared.RevenueDelta},
		[]interface{}{"Declared material cost", r.Declared.MaterialCost, r.Declared.MaterialCostDelta},
		[]interface{}{"Incremental spend", r.IncrementalSpend},
	)
	if r.Settings != nil {
		rows = append(rows,
			[]interface{}{},
			[]interface{}{"Tax rate", r.Settings.TaxRate},
			[]interface{}{"Target margin %", r.Settings.TargetMarginPct},
			[]interface{}{"Optimization mode", r.Settings.Mode.Label()},
		)
	}
	rows = append(rows, []interface{}{"Generated", r.GeneratedAt.Format("2006-01-02 15:04")})
	return rows
}

func productRows(r *models.Report) [][]interface{} {
	rows := [][]interface{}{{
		"Category", "Product", "Price (incl.)", "Margin %", "Unit cost", "Quantity",
		"Multiplier", "Optimized quantity", "Variation", "Variation %",
		"Optimized revenue", "Optimized margin", "Incremental cost",
	}}
	for _, p := range r.Products {
		rows = append(rows, []interface{}{
			p.Category, p.Name, p.PriceInclusive, p.MarginPct, p.UnitCost, p.Quantity,
			p.Multiplier, p.OptimizedQuantity, p.QuantityVariation, p.VariationPct(),
			p.OptimizedRevenue, p.OptimizedMarginValue, p.IncrementalCost,
		})
	}
	return rows
}

func categoryRows(r *models.Report) [][]interface{} {
	rows := [][]interface{}{{
		"Category", "Products", "Revenue", "Margin", "Margin %",
		"Optimized revenue", "Optimized margin", "Optimized margin %",
		"Revenue variation %", "Margin variation (pts)",
	}}
	for _, c := range r.Categories {
		rows = append(rows, []interface{}{
			c.Category, c.ProductCount, c.Revenue, c.MarginValue, c.MarginPct,
			c.OptimizedRevenue, c.OptimizedMarginValue, c.OptimizedMarginPct,
			c.RevenueVariationPct, c.MarginVariationPts,
		})
	}
	return rows
}

func recommendationRows(r *models.Report) [][]interface{} {
	rows := [][]interface{}{{"Prioritize", "Category", "Margin gain", "Revenue gain", "Incremental cost"}}
	for _, item := range r.Recommendations.Prioritize {
		rows = append(rows, []interface{}{
			item.Product.Name, item.Product.Category, item.MarginGain, item.RevenueGain, item.IncrementalCost,
		})
	}

	rows = append(rows,
		[]interface{}{},
		[]interface{}{"Review", "Category", "Margin %", "Price (incl.)", "Suggested price (incl.)", "Increase"},
	)
	for _, item := range r.Recommendations.Review {
		rows = append(rows, []interface{}{
			item.Product.Name, item.Product.Category, item.Product.MarginPct,
			item.Product.PriceInclusive, item.SuggestedPriceInclusive, item.PriceIncrease,
		})
	}
	return rows
}

func budgetRows(r *models.Report) [][]interface{} {
	rows := [][]interface{}{{"Week", "Actions", "Budget"}}
	for _, w := range r.Plan.Calendar {
		rows = append(rows, []interface{}{w.Week, w.Actions, w.Budget})
	}

	rows = append(rows, []interface{}{}, []interface{}{"Supplier", "Spend", "Share %"})
	for _, s := range r.Suppliers {
		rows = append(rows, []interface{}{s.Supplier, s.Spend, s.Share})
	}
	return rows
}
