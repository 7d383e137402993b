// Package simulation serves the dashboard, the simulation API, chart data
// and report exports.
package simulation

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"menusim/internal/config"
	apphttp "menusim/internal/http"
	"menusim/internal/models"
	"menusim/internal/services/costs"
	"menusim/internal/services/dataloader"
	"menusim/internal/services/export"
	simsvc "menusim/internal/services/simulation"
	"menusim/internal/services/storage"
	"menusim/internal/templates"
)

var (
	loader   *dataloader.DataLoader
	renderer *templates.Renderer
	store    *storage.Storage
	cfg      *config.Config
	exporter = export.NewExporter()
)

// Initialize sets up the simulation package with required dependencies
func Initialize(l *dataloader.DataLoader, r *templates.Renderer, s *storage.Storage, c *config.Config) {
	loader = l
	renderer = r
	store = s
	cfg = c
}

// RegisterRoutes registers all simulation routes
func RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", handleDashboard)
	r.Post("/dashboard/results", handleResults)
	r.Get("/dashboard/charts/data/{chartType}", handleChartData)
	r.Get("/dashboard/action-plan", handleActionPlan)

	r.Get("/api/simulation", handleSimulation)
	r.Post("/api/simulation", handleSimulation)
	r.Get("/api/products", handleProducts)
	r.Get("/api/settings/defaults", handleDefaults)

	r.Get("/export/report.xlsx", handleExport)
	r.Post("/export/save", handleExportSave)
}

// runReport parses the request settings and runs the simulation. full forces
// the detail and spend sections on, for charts and exports.
func runReport(r *http.Request, full bool) (*models.Report, error) {
	s, err := ParseSettings(r, cfg.SessionDefaults())
	if err != nil {
		return nil, err
	}
	if full {
		s.ShowDetails = true
		s.ShowSpend = true
	}

	products, err := loader.LoadProducts(s.TaxRate)
	if err != nil {
		return nil, err
	}

	return simsvc.Run(products, s)
}

// statusFor maps a run error to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, costs.ErrInvalidConfiguration):
		return http.StatusUnprocessableEntity
	case errors.Is(err, dataloader.ErrDataUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, storage.ErrLocked):
		return http.StatusLocked
	}
	return http.StatusInternalServerError
}

// renderError renders an HTML error fragment for HTMX requests
func renderError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	fragment := fmt.Sprintf(`<div class="p-4 bg-red-50 dark:bg-red-900/30 border border-red-200 dark:border-red-800 rounded-lg">
		<div class="flex items-center">
			<svg class="w-5 h-5 text-red-500 dark:text-red-400 mr-2" fill="none" stroke="currentColor" viewBox="0 0 24 24">
				<path stroke-linecap="round" stroke-linejoin="round" stroke-width="2" d="M12 8v4m0 4h.01M21 12a9 9 0 11-18 0 9 9 0 0118 0z"></path>
			</svg>
			<span class="text-red-700 dark:text-red-300 font-medium">Error</span>
		</div>
		<p class="mt-2 text-sm text-red-600 dark:text-red-400">%s</p>
	</div>`, html.EscapeString(message))
	w.Write([]byte(fragment))
}

// pageData assembles the values the dashboard templates read
func pageData(report *models.Report, err error) map[string]interface{} {
	data := map[string]interface{}{
		"Title":     "Menu Simulation",
		"ActiveTab": "dashboard",
		"Report":    report,
		"Modes":     models.Modes(),
		"Currency":  models.Currency,
	}
	if report != nil {
		data["Settings"] = report.Settings
	} else {
		data["Settings"] = cfg.SessionDefaults()
	}
	if info, infoErr := loader.FileInfo(); infoErr == nil {
		data["File"] = info
	}
	if products, loadErr := loader.LoadProducts(cfg.Session.TaxRate); loadErr == nil {
		data["Categories"] = models.NewProductSet(products).SortedCategories()
	}
	if err != nil {
		data["Error"] = err.Error()
		data["Unavailable"] = errors.Is(err, dataloader.ErrDataUnavailable)
	}
	return data
}

func handleDashboard(w http.ResponseWriter, r *http.Request) {
	var notice string
	report, err := runReport(r, false)
	if err != nil {
		log.Printf("Error running simulation: %v", err)
		notice = err.Error()
	}
	apphttp.RenderPage(w, renderer, pageData(report, err), "Menu Simulation", notice)
}

func handleResults(w http.ResponseWriter, r *http.Request) {
	report, err := runReport(r, false)
	if err != nil {
		renderError(w, err.Error(), statusFor(err))
		return
	}
	apphttp.RenderPartial(w, renderer, "results", pageData(report, nil), "")
}

func handleChartData(w http.ResponseWriter, r *http.Request) {
	chartType := chi.URLParam(r, "chartType")
	build, ok := chartBuilders[chartType]
	if !ok {
		apphttp.JSONError(w, "Unknown chart type", http.StatusBadRequest)
		return
	}

	report, err := runReport(r, true)
	if err != nil {
		apphttp.JSONError(w, err.Error(), statusFor(err))
		return
	}

	apphttp.WriteJSON(w, http.StatusOK, build(report))
}

func handleActionPlan(w http.ResponseWriter, r *http.Request) {
	report, err := runReport(r, false)
	if err != nil {
		renderError(w, err.Error(), statusFor(err))
		return
	}

	apphttp.RenderPartial(w, renderer, "action-plan", map[string]interface{}{
		"Plan":   report.Plan,
		"Report": report,
	}, report.Plan.HTML)
}

func handleSimulation(w http.ResponseWriter, r *http.Request) {
	report, err := runReport(r, false)
	if err != nil {
		apphttp.JSONError(w, err.Error(), statusFor(err))
		return
	}
	apphttp.WriteJSON(w, http.StatusOK, report)
}

func handleProducts(w http.ResponseWriter, r *http.Request) {
	s, err := ParseSettings(r, cfg.SessionDefaults())
	if err != nil {
		apphttp.JSONError(w, err.Error(), statusFor(err))
		return
	}

	products, err := loader.LoadProducts(s.TaxRate)
	if err != nil {
		apphttp.JSONError(w, err.Error(), statusFor(err))
		return
	}
	info, _ := loader.FileInfo()

	ps := models.NewProductSet(products)
	if s.CategoryFilter != "" {
		ps = ps.FilterByCategory(s.CategoryFilter)
	}

	apphttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"file":       info,
		"categories": models.NewProductSet(products).SortedCategories(),
		"products":   ps.Products,
	})
}

func handleDefaults(w http.ResponseWriter, r *http.Request) {
	apphttp.WriteJSON(w, http.StatusOK, cfg.SessionDefaults())
}

func handleExport(w http.ResponseWriter, r *http.Request) {
	report, err := runReport(r, true)
	if err != nil {
		apphttp.JSONError(w, err.Error(), statusFor(err))
		return
	}

	var buf bytes.Buffer
	if err := exporter.Write(report, &buf); err != nil {
		apphttp.JSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", export.FileName(report)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}

func handleExportSave(w http.ResponseWriter, r *http.Request) {
	report, err := runReport(r, true)
	if err != nil {
		apphttp.JSONError(w, err.Error(), statusFor(err))
		return
	}

	path, err := exporter.Save(store, cfg.ExportDirectory, report)
	if err != nil {
		apphttp.JSONError(w, err.Error(), statusFor(err))
		return
	}

	apphttp.WriteJSON(w, http.StatusCreated, map[string]string{
		"id":   report.ID,
		"path": path,
	})
}
