package simulation

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"menusim/internal/config"
	"menusim/internal/models"
	"menusim/internal/services/dataloader"
	"menusim/internal/services/export"
	"menusim/internal/services/storage"
	"menusim/internal/templates"
	"menusim/internal/testutil"
)

// setupTestServer wires the handlers to a copy of the sample sales sheet
// and returns the server with its data directory.
func setupTestServer(t *testing.T) (*testutil.TestServer, string) {
	t.Helper()

	dataDir := testutil.CopyTestData(t)
	testutil.SetTestEnv(t, dataDir)

	c, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load() error: %v", err)
	}
	s, err := storage.New(c.DataDirectory)
	if err != nil {
		t.Fatalf("storage.New() error: %v", err)
	}
	r, err := templates.New(c.TemplatesDirectory, false)
	if err != nil {
		t.Fatalf("templates.New() error: %v", err)
	}

	Initialize(dataloader.New(s, c.DataFile), r, s, c)

	router := chi.NewRouter()
	RegisterRoutes(router)
	return testutil.NewTestServer(t, router), dataDir
}

func TestDashboard(t *testing.T) {
	ts, _ := setupTestServer(t)

	testutil.AssertResponse(t, ts.GET("/dashboard")).
		StatusOK().
		ContentTypeHTML().
		ContainsAll("Menu Simulation", "FCFA", "Bières").
		HasElement("settings-form").
		HasElement("summary").
		HasElement("recommendations").
		HasElement("action-plan").
		NotContains("data-unavailable")
}

func TestDashboardDataUnavailable(t *testing.T) {
	ts, dataDir := setupTestServer(t)

	if err := os.Remove(filepath.Join(dataDir, "sales.csv")); err != nil {
		t.Fatal(err)
	}

	testutil.AssertResponse(t, ts.GET("/dashboard")).
		StatusOK().
		ContentTypeHTML().
		HasElement("data-unavailable").
		Contains("Sales data unavailable")

	testutil.AssertResponse(t, ts.GET("/api/simulation")).
		Status(http.StatusServiceUnavailable).
		ContentTypeJSON().
		JSONError("data unavailable")
}

func TestResultsPartial(t *testing.T) {
	ts, _ := setupTestServer(t)

	form := url.Values{
		"mode":         {"weighted"},
		"show_details": {"0", "1"},
		"show_spend":   {"0", "1"},
	}
	body := testutil.AssertResponse(t, ts.POSTForm("/dashboard/results", form)).
		StatusOK().
		ContentTypeHTML().
		HasElement("summary").
		HasElement("details").
		HasElement("spend").
		NotContains("<html").
		Body()

	if !strings.Contains(body, "Poulet DG") {
		t.Error("expected product details to list Poulet DG")
	}
}

func TestResultsErrors(t *testing.T) {
	ts, _ := setupTestServer(t)

	tests := []struct {
		name   string
		form   url.Values
		status int
	}{
		{"bad number", url.Values{"tax_rate": {"abc"}}, http.StatusBadRequest},
		{"zero target margin", url.Values{"target_margin": {"0"}}, http.StatusUnprocessableEntity},
		{"unknown mode", url.Values{"mode": {"random"}}, http.StatusUnprocessableEntity},
		{"unknown cost line", url.Values{"cost[99]": {"1000"}}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertResponse(t, ts.POSTForm("/dashboard/results", tt.form)).
				Status(tt.status).
				ContentTypeHTML().
				Contains("Error")
		})
	}
}

func TestSimulationAPI(t *testing.T) {
	ts, _ := setupTestServer(t)

	t.Run("GET defaults", func(t *testing.T) {
		var report models.Report
		testutil.AssertResponse(t, ts.GET("/api/simulation")).
			StatusOK().
			ContentTypeJSON().
			JSON(&report)

		if report.ID == "" {
			t.Error("expected a report ID")
		}
		if report.FixedCostsCurrent != 443843 || report.FixedCostsProjected != 1053843 {
			t.Errorf("fixed costs = %v / %v, want 443843 / 1053843",
				report.FixedCostsCurrent, report.FixedCostsProjected)
		}
		if report.Breakeven != 2162766 {
			t.Errorf("breakeven = %v, want 2162766", report.Breakeven)
		}
		if len(report.Categories) == 0 {
			t.Error("expected category aggregates")
		}
		if report.Products != nil {
			t.Error("product details should be omitted by default")
		}
	})

	t.Run("GET with query", func(t *testing.T) {
		var report models.Report
		testutil.AssertResponse(t, ts.GETWithQuery("/api/simulation", url.Values{
			"mode":         {"uniform"},
			"show_details": {"true"},
		})).StatusOK().JSON(&report)

		if report.Settings.Mode != models.ModeUniform {
			t.Errorf("mode = %q, want uniform", report.Settings.Mode)
		}
		if len(report.Products) != 22 {
			t.Errorf("got %d products, want 22", len(report.Products))
		}
		if report.UniformMultiplier <= 0 {
			t.Error("expected a uniform multiplier")
		}
	})

	t.Run("POST JSON", func(t *testing.T) {
		settings := models.DefaultSettings()
		settings.TargetMarginPct = 40
		settings.ShowSpend = true

		var report models.Report
		testutil.AssertResponse(t, ts.POSTJSON("/api/simulation", settings)).
			StatusOK().
			JSON(&report)

		if report.Settings.TargetMarginPct != 40 {
			t.Errorf("target margin = %v, want 40", report.Settings.TargetMarginPct)
		}
		if report.Spend == nil {
			t.Error("expected the spend table")
		}
	})

	t.Run("POST JSON unknown field", func(t *testing.T) {
		testutil.AssertResponse(t, ts.POSTJSON("/api/simulation", map[string]interface{}{"bogus": 1})).
			Status(http.StatusBadRequest).
			JSONError("invalid input")
	})

	t.Run("zero target margin", func(t *testing.T) {
		testutil.AssertResponse(t, ts.GETWithQuery("/api/simulation", url.Values{"target_margin": {"0"}})).
			Status(http.StatusUnprocessableEntity).
			JSONError("target margin")
	})

	t.Run("negative tax", func(t *testing.T) {
		testutil.AssertResponse(t, ts.GETWithQuery("/api/simulation", url.Values{"tax_rate": {"-0.1"}})).
			Status(http.StatusUnprocessableEntity).
			JSONError("tax rate")
	})
}

func TestPriceEdit(t *testing.T) {
	ts, _ := setupTestServer(t)

	var listing struct {
		Products []models.Product `json:"products"`
	}
	testutil.AssertResponse(t, ts.GET("/api/products")).StatusOK().JSON(&listing)
	if len(listing.Products) == 0 {
		t.Fatal("expected products")
	}
	target := listing.Products[0]

	var report models.Report
	testutil.AssertResponse(t, ts.GETWithQuery("/api/simulation", url.Values{
		"price[" + target.ID + "]": {"5000"},
		"show_details":             {"1"},
	})).StatusOK().JSON(&report)

	for _, p := range report.Products {
		if p.ID != target.ID {
			continue
		}
		if p.PriceInclusive != 5000 {
			t.Errorf("edited price = %v, want 5000", p.PriceInclusive)
		}
		return
	}
	t.Errorf("product %s missing from report", target.ID)
}

func TestChartData(t *testing.T) {
	ts, _ := setupTestServer(t)

	for chartType := range chartBuilders {
		t.Run(chartType, func(t *testing.T) {
			var chart models.ChartResponse
			testutil.AssertResponse(t, ts.GET("/dashboard/charts/data/"+chartType)).
				StatusOK().
				ContentTypeJSON().
				JSON(&chart)

			if len(chart.Data) == 0 {
				t.Error("expected at least one trace")
			}
			if chart.Layout.Title == "" {
				t.Error("expected a title")
			}
		})
	}

	t.Run("unknown", func(t *testing.T) {
		testutil.AssertResponse(t, ts.GET("/dashboard/charts/data/nope")).
			Status(http.StatusBadRequest).
			JSONError("Unknown chart type")
	})
}

func TestActionPlan(t *testing.T) {
	ts, _ := setupTestServer(t)

	testutil.AssertResponse(t, ts.GET("/dashboard/action-plan")).
		StatusOK().
		ContentTypeHTML().
		HasElement("action-plan").
		Contains("FCFA")
}

func TestProducts(t *testing.T) {
	ts, _ := setupTestServer(t)

	var all struct {
		File       models.FileInfo  `json:"file"`
		Categories []string         `json:"categories"`
		Products   []models.Product `json:"products"`
	}
	testutil.AssertResponse(t, ts.GET("/api/products")).StatusOK().JSON(&all)

	if all.File.Name != "sales.csv" || all.File.Products != 22 {
		t.Errorf("file info = %+v", all.File)
	}
	if len(all.Products) != 22 {
		t.Errorf("got %d products, want 22", len(all.Products))
	}

	var filtered struct {
		Categories []string         `json:"categories"`
		Products   []models.Product `json:"products"`
	}
	testutil.AssertResponse(t, ts.GETWithQuery("/api/products", url.Values{"category": {"Grillades"}})).
		StatusOK().
		JSON(&filtered)

	if len(filtered.Products) == 0 {
		t.Fatal("expected grilled products")
	}
	for _, p := range filtered.Products {
		if p.Category != "Grillades" {
			t.Errorf("product %s in category %s", p.Name, p.Category)
		}
	}
	if len(filtered.Categories) != len(all.Categories) {
		t.Error("category list should not be filtered")
	}
}

func TestDefaults(t *testing.T) {
	ts, _ := setupTestServer(t)

	var s models.Settings
	testutil.AssertResponse(t, ts.GET("/api/settings/defaults")).StatusOK().JSON(&s)

	want := models.DefaultSettings()
	if s.TaxRate != want.TaxRate || s.TargetMarginPct != want.TargetMarginPct {
		t.Errorf("defaults = %v/%v, want %v/%v", s.TaxRate, s.TargetMarginPct, want.TaxRate, want.TargetMarginPct)
	}
	if len(s.FixedCosts) != len(want.FixedCosts) {
		t.Errorf("got %d cost lines, want %d", len(s.FixedCosts), len(want.FixedCosts))
	}
}

func TestExport(t *testing.T) {
	ts, dataDir := setupTestServer(t)

	t.Run("download", func(t *testing.T) {
		body := testutil.AssertResponse(t, ts.GET("/export/report.xlsx")).
			StatusOK().
			ContentType(export.ContentType).
			Header("Content-Disposition", "menusim-report-").
			Body()

		if !strings.HasPrefix(body, "PK") {
			t.Error("expected a zip-based workbook")
		}
	})

	t.Run("save", func(t *testing.T) {
		var saved struct {
			ID   string `json:"id"`
			Path string `json:"path"`
		}
		testutil.AssertResponse(t, ts.POST("/export/save", "application/x-www-form-urlencoded", nil)).
			Status(http.StatusCreated).
			JSON(&saved)

		if saved.ID == "" {
			t.Fatal("expected a report ID")
		}
		if !strings.HasPrefix(saved.Path, filepath.Join(dataDir, "exports")) {
			t.Errorf("path = %q, want under the exports directory", saved.Path)
		}
		if _, err := os.Stat(saved.Path); err != nil {
			t.Errorf("saved report missing: %v", err)
		}
	})

	t.Run("save twice keeps both", func(t *testing.T) {
		var first, second struct {
			ID   string `json:"id"`
			Path string `json:"path"`
		}
		testutil.AssertResponse(t, ts.POST("/export/save", "application/x-www-form-urlencoded", nil)).
			Status(http.StatusCreated).
			JSON(&first)
		testutil.AssertResponse(t, ts.POST("/export/save", "application/x-www-form-urlencoded", nil)).
			Status(http.StatusCreated).
			JSON(&second)

		if first.ID == second.ID || first.Path == second.Path {
			t.Errorf("saves share id %q / path %q", first.ID, first.Path)
		}
		for _, path := range []string{first.Path, second.Path} {
			if _, err := os.Stat(path); err != nil {
				t.Errorf("saved report missing: %v", err)
			}
		}
	})
}

// TestSimulationRecomputes checks that identical requests each get a fresh run
func TestSimulationRecomputes(t *testing.T) {
	ts, _ := setupTestServer(t)

	var first, second models.Report
	testutil.AssertResponse(t, ts.GET("/api/simulation")).StatusOK().JSON(&first)
	testutil.AssertResponse(t, ts.GET("/api/simulation")).StatusOK().JSON(&second)

	if first.ID == second.ID {
		t.Errorf("both runs returned report %s", first.ID)
	}
	if second.GeneratedAt.Before(first.GeneratedAt) {
		t.Errorf("second run generated at %v, before %v", second.GeneratedAt, first.GeneratedAt)
	}
	if first.Breakeven != second.Breakeven {
		t.Errorf("breakeven changed between runs: %v / %v", first.Breakeven, second.Breakeven)
	}
}
