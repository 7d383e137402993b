// Package files manages the data directory: sales sheet uploads and
// selection, backups, encryption unlock and static assets.
package files

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"menusim/internal/config"
	apphttp "menusim/internal/http"
	"menusim/internal/models"
	"menusim/internal/services/dataloader"
	"menusim/internal/services/storage"
	"menusim/internal/version"
)

const (
	maxUploadBytes  = 10 << 20
	maxRestoreBytes = 50 << 20

	plotlyURL = "https://cdn.plot.ly/plotly-2.35.2.min.js"
)

// sheetExtensions are the sales sheet formats accepted on upload and restore
var sheetExtensions = []string{".csv", ".xlsx"}

var (
	loader *dataloader.DataLoader
	store  *storage.Storage
	cfg    *config.Config
)

// Initialize sets up the files package with required dependencies
func Initialize(l *dataloader.DataLoader, s *storage.Storage, c *config.Config) {
	loader = l
	store = s
	cfg = c
}

// RegisterRoutes registers all file management routes
func RegisterRoutes(r chi.Router) {
	r.Get("/api/health", HandleHealth)
	r.Get("/api/files", handleList)
	r.Post("/api/files/upload", handleUpload)
	r.Post("/api/files/select", handleSelect)
	r.Delete("/api/files/{filename}", handleDelete)

	r.Get("/api/backup", HandleBackup)
	r.Post("/api/restore", HandleRestore)

	r.Post("/api/unlock", handleUnlock)
	r.Post("/api/lock", handleLock)

	r.Get("/static/plotly.min.js", HandlePlotly)
}

// statusFor maps a storage or loading error to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrLocked):
		return http.StatusLocked
	case errors.Is(err, storage.ErrWrongPassphrase):
		return http.StatusUnauthorized
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, dataloader.ErrDataUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if !store.IsUnlocked() {
		status = "locked"
	}

	apphttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    status,
		"version":   version.Get(),
		"encrypted": store.IsEncrypted(),
		"data_file": loader.DataFile(),
		"config":    cfg.ConfigFile,
	})
}

// listFiles describes the sales sheets of the data directory
func listFiles() ([]models.DataFile, error) {
	paths, err := store.List()
	if err != nil {
		return nil, err
	}

	current := filepath.Base(loader.DataFile())
	files := make([]models.DataFile, 0, len(paths))
	for _, p := range paths {
		name := filepath.Base(p)
		if !validSheetName(name) {
			continue
		}
		info, err := store.Stat(p)
		if err != nil {
			continue
		}
		files = append(files, models.DataFile{
			Name:      name,
			Size:      info.Size(),
			Modified:  info.ModTime(),
			Encrypted: store.IsFileEncrypted(p),
			Current:   name == current,
		})
	}
	return files, nil
}

// writeListing responds with the file list and the state of the current sheet
func writeListing(w http.ResponseWriter, status int) {
	files, err := listFiles()
	if err != nil {
		apphttp.JSONError(w, "Error reading data directory", http.StatusInternalServerError)
		return
	}

	body := map[string]interface{}{
		"files":     files,
		"data_file": loader.DataFile(),
	}
	if info, err := loader.FileInfo(); err != nil {
		body["error"] = err.Error()
	} else {
		body["current"] = info
	}
	apphttp.WriteJSON(w, status, body)
}

func handleList(w http.ResponseWriter, r *http.Request) {
	writeListing(w, http.StatusOK)
}

// validSheetName reports whether name is a plain file name with a sheet extension
func validSheetName(name string) bool {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range sheetExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		apphttp.JSONError(w, "File too large", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		apphttp.JSONError(w, "Error reading file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !validSheetName(name) {
		apphttp.JSONError(w, "Only CSV and XLSX files are allowed", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		apphttp.JSONError(w, "Error reading file", http.StatusInternalServerError)
		return
	}

	// Reject sheets the simulation could not read
	products, err := dataloader.Parse(name, data)
	if err != nil {
		apphttp.JSONError(w, fmt.Sprintf("Invalid sales sheet: %v", err), http.StatusBadRequest)
		return
	}

	if err := store.WriteFile(name, data, 0644); err != nil {
		apphttp.JSONError(w, fmt.Sprintf("Error saving file: %v", err), statusFor(err))
		return
	}
	log.Printf("Uploaded file: %s (%d products)", name, len(products))

	if r.FormValue("activate") != "0" {
		loader.SetDataFile(name)
	}
	writeListing(w, http.StatusCreated)
}

func handleSelect(w http.ResponseWriter, r *http.Request) {
	name := r.FormValue("name")
	if !validSheetName(name) {
		apphttp.JSONError(w, "Invalid filename", http.StatusBadRequest)
		return
	}

	data, err := store.ReadFile(name)
	if err != nil {
		apphttp.JSONError(w, fmt.Sprintf("Error reading %s: %v", name, err), statusFor(err))
		return
	}
	if _, err := dataloader.Parse(name, data); err != nil {
		apphttp.JSONError(w, fmt.Sprintf("Invalid sales sheet: %v", err), http.StatusBadRequest)
		return
	}

	loader.SetDataFile(name)
	writeListing(w, http.StatusOK)
}

func handleDelete(w http.ResponseWriter, r *http.Request) {
	// URL-decode the filename (handles %20 for spaces, etc.)
	name, err := url.PathUnescape(chi.URLParam(r, "filename"))
	if err != nil {
		apphttp.JSONError(w, "Invalid filename encoding", http.StatusBadRequest)
		return
	}
	if !validSheetName(name) {
		apphttp.JSONError(w, "Invalid filename", http.StatusBadRequest)
		return
	}
	if name == filepath.Base(loader.DataFile()) {
		apphttp.JSONError(w, "Cannot delete the sales sheet in use", http.StatusConflict)
		return
	}

	if _, err := store.Stat(name); err != nil {
		apphttp.JSONError(w, "File not found", http.StatusNotFound)
		return
	}
	if err := store.Remove(name); err != nil {
		apphttp.JSONError(w, "Error deleting file", http.StatusInternalServerError)
		return
	}

	log.Printf("Deleted file: %s", name)
	writeListing(w, http.StatusOK)
}

// isControlFile reports whether a file belongs to the storage layer itself
func isControlFile(name string) bool {
	return strings.HasPrefix(filepath.Base(name), ".") || strings.HasSuffix(name, ".tmp")
}

// HandleBackup streams a zip of the data directory. Encrypted files are
// decrypted so the archive can be restored anywhere.
func HandleBackup(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	baseDir := store.BaseDir()
	count := 0
	err := filepath.WalkDir(baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != baseDir && d.Name() == "cache" {
				return filepath.SkipDir
			}
			return nil
		}
		if isControlFile(path) {
			return nil
		}

		relPath, err := filepath.Rel(baseDir, path)
		if err != nil {
			return err
		}
		data, err := store.ReadFile(path)
		if err != nil {
			return err
		}

		f, err := zw.Create(filepath.ToSlash(relPath))
		if err != nil {
			return err
		}
		if _, err := f.Write(data); err != nil {
			return err
		}
		count++
		return nil
	})
	if err == nil {
		err = zw.Close()
	}
	if err != nil {
		log.Printf("Error creating backup: %v", err)
		apphttp.JSONError(w, fmt.Sprintf("Error creating backup: %v", err), statusFor(err))
		return
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("menusim_backup_%s.zip", timestamp)
	log.Printf("Backup %s: %d files", filename, count)

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Write(buf.Bytes())
}

// HandleRestore extracts the sales sheets and reports of an uploaded backup
// into the data directory, re-encrypting them when encryption is on
func HandleRestore(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxRestoreBytes); err != nil {
		apphttp.JSONError(w, "File too large", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		apphttp.JSONError(w, "Error reading file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".zip") {
		apphttp.JSONError(w, "Only ZIP backup files are allowed", http.StatusBadRequest)
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		apphttp.JSONError(w, "Error reading file", http.StatusInternalServerError)
		return
	}

	zipReader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		apphttp.JSONError(w, "Invalid ZIP file", http.StatusBadRequest)
		return
	}

	restored, err := restoreArchive(zipReader)
	if err != nil {
		apphttp.JSONError(w, err.Error(), statusFor(err))
		return
	}
	if len(restored) == 0 {
		apphttp.JSONError(w, "No sales sheets or reports found in backup", http.StatusBadRequest)
		return
	}

	log.Printf("Restore complete: %d files restored", len(restored))
	apphttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"restored": restored,
	})
}

// restoreArchive writes the archive's sensitive files under the data
// directory. Entries outside it are skipped.
func restoreArchive(zr *zip.Reader) ([]string, error) {
	var restored []string
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}

		name := filepath.FromSlash(zf.Name)
		if !filepath.IsLocal(name) || isControlFile(name) || !isRestorable(name) {
			continue
		}

		rc, err := zf.Open()
		if err != nil {
			log.Printf("Error opening zip entry %s: %v", zf.Name, err)
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			log.Printf("Error reading zip entry %s: %v", zf.Name, err)
			continue
		}

		if err := store.WriteFile(name, data, 0644); err != nil {
			if errors.Is(err, storage.ErrLocked) {
				return restored, err
			}
			log.Printf("Error writing file %s: %v", name, err)
			continue
		}
		restored = append(restored, filepath.ToSlash(name))
		log.Printf("Restored file: %s", name)
	}
	return restored, nil
}

func isRestorable(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range storage.SensitiveExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// passphraseFrom reads the passphrase from a JSON body or a form field
func passphraseFrom(r *http.Request) string {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Passphrase string `json:"passphrase"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&body); err != nil {
			return ""
		}
		return body.Passphrase
	}
	return r.FormValue("passphrase")
}

func handleUnlock(w http.ResponseWriter, r *http.Request) {
	if !store.IsEncrypted() {
		apphttp.JSONError(w, storage.ErrNotEncrypted.Error(), http.StatusBadRequest)
		return
	}

	passphrase := passphraseFrom(r)
	if passphrase == "" {
		apphttp.JSONError(w, "Passphrase required", http.StatusBadRequest)
		return
	}

	if err := store.Unlock(passphrase); err != nil {
		apphttp.JSONError(w, err.Error(), statusFor(err))
		return
	}

	log.Println("Storage unlocked")
	apphttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "unlocked"})
}

func handleLock(w http.ResponseWriter, r *http.Request) {
	store.Lock()
	log.Println("Storage locked")
	apphttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "locked"})
}

// HandlePlotly serves plotly.js from a cache under the data directory,
// fetching it from the CDN on first use
func HandlePlotly(w http.ResponseWriter, r *http.Request) {
	cachePath := filepath.Join(store.BaseDir(), "cache", "plotly.min.js")

	if data, err := os.ReadFile(cachePath); err == nil {
		writeScript(w, data)
		return
	}

	log.Println("Fetching plotly.min.js from CDN...")
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(plotlyURL)
	if err != nil {
		http.Error(w, "Failed to fetch plotly: "+err.Error(), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		http.Error(w, "CDN returned status: "+resp.Status, http.StatusBadGateway)
		return
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		http.Error(w, "Failed to read plotly response: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
		log.Printf("Warning: could not create cache directory: %v", err)
	}
	if err := os.WriteFile(cachePath, data, 0644); err != nil {
		log.Printf("Warning: could not cache plotly.min.js: %v", err)
	} else {
		log.Println("Cached plotly.min.js for future requests")
	}

	writeScript(w, data)
}

func writeScript(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=31536000") // 1 year
	w.Write(data)
}
