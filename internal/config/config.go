package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v2"

	"menusim/internal/models"
)

// DefaultConfigFile is read from the working directory when MENUSIM_CONFIG is unset
const DefaultConfigFile = "config.toml"

// Config holds application configuration
type Config struct {
	// Server settings
	ListenAddr string `toml:"listen_addr" yaml:"listen_addr"`
	Debug      bool   `toml:"debug" yaml:"debug"`

	// Directories
	DataDirectory string `toml:"data_dir" yaml:"data_dir"`
	// ExportDirectory defaults to DataDirectory/exports
	ExportDirectory    string `toml:"export_dir" yaml:"export_dir"`
	TemplatesDirectory string `toml:"templates_dir" yaml:"templates_dir"`

	// DataFile is the sales sheet, relative to DataDirectory unless absolute
	DataFile string `toml:"data_file" yaml:"data_file"`

	// Passphrase unlocks an encrypted data directory at startup. Environment only.
	Passphrase string `toml:"-" yaml:"-"`

	// Session holds the defaults every simulation starts from
	Session models.Settings `toml:"session" yaml:"session"`

	// ConfigFile is the file the configuration was read from, if any
	ConfigFile string `toml:"-" yaml:"-"`
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	return &Config{
		ListenAddr:         ":8080",
		Debug:              false,
		DataDirectory:      filepath.Join(wd, "data"),
		TemplatesDirectory: filepath.Join(wd, "web", "templates"),
		DataFile:           "sales.csv",
		Session:            *models.DefaultSettings(),
	}
}

// Load builds the configuration from defaults, an optional .env file, an
// optional TOML or YAML config file, then MENUSIM_* environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: could not read .env: %v", err)
	}

	cfg := DefaultConfig()

	path := os.Getenv("MENUSIM_CONFIG")
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	if err := cfg.readFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg.applyEnv()
	if cfg.ExportDirectory == "" {
		cfg.ExportDirectory = filepath.Join(cfg.DataDirectory, "exports")
	}
	cfg.ensureDirectories()

	return cfg, nil
}

// readFile decodes a TOML (default) or YAML config file over cfg
func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = toml.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	// Relative directories in the file are relative to the file itself
	base := filepath.Dir(path)
	for _, dir := range []*string{&c.DataDirectory, &c.ExportDirectory, &c.TemplatesDirectory} {
		if *dir != "" && !filepath.IsAbs(*dir) {
			*dir = filepath.Join(base, *dir)
		}
	}

	c.ConfigFile = path
	log.Printf("Loaded configuration from %s", path)
	return nil
}

// applyEnv applies MENUSIM_* environment overrides
func (c *Config) applyEnv() {
	if addr := os.Getenv("MENUSIM_LISTEN_ADDR"); addr != "" {
		c.ListenAddr = addr
	}
	if debug := os.Getenv("MENUSIM_DEBUG"); debug == "true" || debug == "1" {
		c.Debug = true
	}
	if dataDir := os.Getenv("MENUSIM_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
	if dataFile := os.Getenv("MENUSIM_DATA_FILE"); dataFile != "" {
		c.DataFile = dataFile
	}
	if templatesDir := os.Getenv("MENUSIM_TEMPLATES_DIR"); templatesDir != "" {
		c.TemplatesDirectory = templatesDir
	}
	if passphrase := os.Getenv("MENUSIM_PASSPHRASE"); passphrase != "" {
		c.Passphrase = passphrase
	}
}

// ensureDirectories creates required directories if they don't exist
func (c *Config) ensureDirectories() {
	for _, dir := range []string{c.DataDirectory, c.ExportDirectory} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Printf("Warning: could not create directory %s: %v", dir, err)
		}
	}
}

// DataPath returns the sales sheet path
func (c *Config) DataPath() string {
	if filepath.IsAbs(c.DataFile) {
		return c.DataFile
	}
	return filepath.Join(c.DataDirectory, c.DataFile)
}

// SessionDefaults returns a fresh copy of the session defaults
func (c *Config) SessionDefaults() *models.Settings {
	return c.Session.Clone()
}
