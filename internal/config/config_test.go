package config

import (
	"os"
	"path/filepath"
	"testing"

	"menusim/internal/models"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.ListenAddr)
	}
	if cfg.DataFile != "sales.csv" {
		t.Errorf("DataFile = %q, want sales.csv", cfg.DataFile)
	}
	if cfg.Session.TaxRate != models.DefaultTaxRate || cfg.Session.Mode != models.ModeBalanced {
		t.Errorf("Session = %+v, want the default settings", cfg.Session)
	}
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "menusim.toml")
	content := `
listen_addr = ":9090"
data_dir = "kitchen"
data_file = "april.xlsx"

[session]
tax_rate = 0.18
target_margin_pct = 40.0
mode = "weighted"

[session.factors]
very_low = 0.0
low = 1.2
mid = 1.8
high = 3.0

[[session.fixed_costs]]
name = "Rent"
amount = 300000.0
kind = "current"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MENUSIM_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want :9090", cfg.ListenAddr)
	}
	if cfg.DataDirectory != filepath.Join(dir, "kitchen") {
		t.Errorf("DataDirectory = %q, want it relative to the config file", cfg.DataDirectory)
	}
	if cfg.DataPath() != filepath.Join(dir, "kitchen", "april.xlsx") {
		t.Errorf("DataPath() = %q", cfg.DataPath())
	}

	s := cfg.Session
	if s.TaxRate != 0.18 || s.TargetMarginPct != 40 || s.Mode != models.ModeWeighted {
		t.Errorf("session = %v / %v / %v", s.TaxRate, s.TargetMarginPct, s.Mode)
	}
	if s.Factors.VeryLow != 0 || s.Factors.High != 3 {
		t.Errorf("factors = %+v", s.Factors)
	}
	if len(s.FixedCosts) != 1 || s.FixedCosts[0].Amount != 300000 {
		t.Errorf("fixed costs = %+v", s.FixedCosts)
	}
	// Keys absent from the file keep their defaults
	if s.VariableCosts != 27540 || s.MinSpend != 5000 {
		t.Errorf("defaults lost: variable %v, min spend %v", s.VariableCosts, s.MinSpend)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "menusim.yaml")
	content := `listen_addr: ":7070"
data_dir: store
session:
  mode: uniform
  declared_revenue: 2500000
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MENUSIM_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ListenAddr != ":7070" || cfg.Session.Mode != models.ModeUniform || cfg.Session.DeclaredRevenue != 2500000 {
		t.Errorf("cfg = %s / %s / %v", cfg.ListenAddr, cfg.Session.Mode, cfg.Session.DeclaredRevenue)
	}
	if cfg.Session.TargetMarginPct != 50 {
		t.Errorf("TargetMarginPct = %v, want default 50", cfg.Session.TargetMarginPct)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("MENUSIM_CONFIG", "")
	t.Setenv("MENUSIM_LISTEN_ADDR", ":6060")
	t.Setenv("MENUSIM_DEBUG", "1")
	t.Setenv("MENUSIM_DATA_DIR", filepath.Join(dir, "store"))
	t.Setenv("MENUSIM_DATA_FILE", "may.csv")
	t.Setenv("MENUSIM_PASSPHRASE", "kitchen-passphrase")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.ListenAddr != ":6060" || !cfg.Debug {
		t.Errorf("server = %q / %v", cfg.ListenAddr, cfg.Debug)
	}
	if cfg.DataPath() != filepath.Join(dir, "store", "may.csv") {
		t.Errorf("DataPath() = %q", cfg.DataPath())
	}
	if cfg.ExportDirectory != filepath.Join(dir, "store", "exports") {
		t.Errorf("ExportDirectory = %q", cfg.ExportDirectory)
	}
	if cfg.Passphrase != "kitchen-passphrase" {
		t.Errorf("Passphrase not read from the environment")
	}
	if _, err := os.Stat(cfg.ExportDirectory); err != nil {
		t.Errorf("export directory not created: %v", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("MENUSIM_CONFIG", "")
	t.Setenv("MENUSIM_DATA_FILE", "")
	os.Unsetenv("MENUSIM_DATA_FILE")

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("MENUSIM_DATA_FILE=from-dotenv.csv\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DataFile != "from-dotenv.csv" {
		t.Errorf("DataFile = %q, want from-dotenv.csv", cfg.DataFile)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv("MENUSIM_CONFIG", filepath.Join(t.TempDir(), "absent.toml"))
	if _, err := Load(); err == nil {
		t.Error("expected an error for a missing explicit config file")
	}
}

func TestSessionDefaultsIsACopy(t *testing.T) {
	cfg := DefaultConfig()
	s := cfg.SessionDefaults()
	s.FixedCosts[0].Amount = 1
	s.PriceEdits["x"] = 1

	if cfg.Session.FixedCosts[0].Amount == 1 || len(cfg.Session.PriceEdits) != 0 {
		t.Error("SessionDefaults() shares state with the config")
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restoring working directory: %v", err)
		}
	})
}
