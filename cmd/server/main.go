package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"menusim/internal/config"
	"menusim/internal/handlers/files"
	"menusim/internal/handlers/simulation"
	"menusim/internal/services/dataloader"
	"menusim/internal/services/storage"
	"menusim/internal/templates"
	"menusim/internal/version"
)

var (
	cfg      *config.Config
	store    *storage.Storage
	loader   *dataloader.DataLoader
	renderer *templates.Renderer
)

func main() {
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	info := version.Get()
	if *showVersion {
		fmt.Println(info)
		return
	}
	log.Printf("Starting %s", info)
	if warning := info.Check(); warning != "" {
		log.Println(warning)
	}

	c, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}
	log.Printf("Data directory: %s", c.DataDirectory)
	log.Printf("Sales sheet: %s", c.DataPath())

	if err := SetupDependencies(c); err != nil {
		log.Fatalf("Error setting up: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("Server starting on %s", cfg.ListenAddr)
	log.Fatal(srv.ListenAndServe())
}

// SetupDependencies opens the data directory, unlocking it with the
// configured passphrase, and initializes the handler packages
func SetupDependencies(c *config.Config) error {
	cfg = c

	var err error
	store, err = storage.New(cfg.DataDirectory)
	if err != nil {
		return err
	}

	if store.IsEncrypted() {
		switch {
		case cfg.Passphrase != "":
			if err := store.Unlock(cfg.Passphrase); err != nil {
				return fmt.Errorf("unlocking data directory: %w", err)
			}
			log.Println("Data directory unlocked")
		default:
			log.Println("Data directory is encrypted and locked; POST /api/unlock to unlock")
		}
	}

	loader = dataloader.New(store, cfg.DataFile)

	renderer, err = templates.New(cfg.TemplatesDirectory, cfg.Debug)
	if err != nil {
		log.Printf("Warning: could not load templates: %v", err)
		renderer = nil
	}

	simulation.Initialize(loader, renderer, store, cfg)
	files.Initialize(loader, store, cfg)
	return nil
}

// SetupRouter builds the HTTP routes
func SetupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusTemporaryRedirect)
	})

	simulation.RegisterRoutes(r)
	files.RegisterRoutes(r)

	return r
}
