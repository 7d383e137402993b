package dataloader

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"menusim/internal/models"
	"menusim/internal/services/pricing"
	"menusim/internal/services/storage"
)

// ErrDataUnavailable is returned when the sales file is missing, locked or
// has no usable rows
var ErrDataUnavailable = errors.New("sales data unavailable")

// memoLimit caps the number of distinct file contents kept in memory
const memoLimit = 8

// DataLoader reads the per-product sales sheet. Parsed rows are memoized by
// content hash; tax-dependent figures are derived again on every load.
type DataLoader struct {
	dataFile string
	store    *storage.Storage

	mu   sync.RWMutex
	memo map[string]memoEntry
	last string
}

type memoEntry struct {
	products []models.Product
	info     models.FileInfo
}

// columnMappings maps the sales sheet headers (lowercase) to our standard names
var columnMappings = map[string][]string{
	"Category": {
		"catégorie", "categorie", "category", "famille", "rayon",
	},
	"Product": {
		"produit", "product", "article", "name", "nom", "item",
	},
	"Price": {
		"prix unitaire (fcfa)", "prix unitaire", "prix ttc", "prix",
		"price", "unit price", "price (fcfa)", "selling price",
	},
	"Margin": {
		"marge (%)", "marge", "marge %", "taux de marge",
		"margin (%)", "margin", "margin %", "margin pct",
	},
	"Quantity": {
		"quantité avril", "quantité", "quantite", "qté", "qte",
		"quantity", "qty", "units sold",
	},
}

// quantityPrefixes match period-named quantity columns ("Quantité Mai")
var quantityPrefixes = []string{"quantité ", "quantite ", "quantity "}

var requiredColumns = []string{"Category", "Product", "Price", "Margin", "Quantity"}

// New creates a DataLoader for dataFile, read through store
func New(store *storage.Storage, dataFile string) *DataLoader {
	return &DataLoader{
		dataFile: dataFile,
		store:    store,
		memo:     make(map[string]memoEntry),
	}
}

// DataFile returns the sales sheet currently read
func (dl *DataLoader) DataFile() string {
	dl.mu.RLock()
	defer dl.mu.RUnlock()
	return dl.dataFile
}

// SetDataFile switches to another sales sheet, relative to the store's base
// directory unless absolute
func (dl *DataLoader) SetDataFile(name string) {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	dl.dataFile = name
	log.Printf("Sales sheet set to %s", name)
}

// normalizeColumnName maps a sheet header to our standard name
func normalizeColumnName(col string) string {
	col = strings.TrimSpace(col)
	lower := strings.ToLower(col)
	for standard, variants := range columnMappings {
		for _, variant := range variants {
			if lower == variant {
				return standard
			}
		}
	}
	for _, prefix := range quantityPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return "Quantity"
		}
	}
	return col
}

// buildColumnIndex creates a normalized column index from the header row
func buildColumnIndex(header []string) map[string]int {
	colIndex := make(map[string]int)
	for i, col := range header {
		normalized := normalizeColumnName(strings.TrimPrefix(col, "\ufeff"))
		if _, exists := colIndex[normalized]; !exists {
			colIndex[normalized] = i
		}
	}
	return colIndex
}

// LoadProducts returns the products of the data file with their derived
// figures initialized from margin at the given tax rate. The returned slice
// is the caller's to modify.
func (dl *DataLoader) LoadProducts(rate float64) ([]models.Product, error) {
	raw, err := dl.loadRaw()
	if err != nil {
		return nil, err
	}

	products := make([]models.Product, len(raw))
	copy(products, raw)
	for i := range products {
		pricing.InitializeFromMargin(&products[i], rate)
	}
	return products, nil
}

// FileInfo describes the last file loaded
func (dl *DataLoader) FileInfo() (models.FileInfo, error) {
	if _, err := dl.loadRaw(); err != nil {
		return models.FileInfo{}, err
	}
	dl.mu.RLock()
	defer dl.mu.RUnlock()
	return dl.memo[dl.last].info, nil
}

// loadRaw reads the file and returns its parsed rows, from the memo when the
// content has not changed
func (dl *DataLoader) loadRaw() ([]models.Product, error) {
	dataFile := dl.DataFile()
	if dataFile == "" {
		return nil, fmt.Errorf("%w: no data file configured", ErrDataUnavailable)
	}

	data, err := dl.store.ReadFile(dataFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	dl.mu.Lock()
	cached, ok := dl.memo[hash]
	if ok {
		dl.last = hash
	}
	dl.mu.Unlock()
	if ok {
		return cached.products, nil
	}

	products, err := Parse(dataFile, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDataUnavailable, filepath.Base(dataFile), err)
	}

	log.Printf("Loaded %d products from %s", len(products), filepath.Base(dataFile))

	entry := memoEntry{
		products: products,
		info: models.FileInfo{
			Name:     filepath.Base(dataFile),
			Path:     dl.store.Path(dataFile),
			Size:     int64(len(data)),
			Format:   detectFormat(dataFile, data),
			Products: len(products),
			Hash:     hash,
		},
	}

	dl.mu.Lock()
	if len(dl.memo) >= memoLimit {
		dl.memo = make(map[string]memoEntry)
	}
	dl.memo[hash] = entry
	dl.last = hash
	dl.mu.Unlock()

	return products, nil
}

// detectFormat picks the parser from the extension, falling back to the zip
// signature xlsx files start with
func detectFormat(name string, data []byte) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return "xlsx"
	case ".csv":
		return "csv"
	}
	if bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		return "xlsx"
	}
	return "csv"
}

// Parse reads a sales sheet in the format given by its name or content
func Parse(name string, data []byte) ([]models.Product, error) {
	if detectFormat(name, data) == "xlsx" {
		return ParseXLSX(bytes.NewReader(data))
	}
	return ParseCSV(bytes.NewReader(data))
}

// ParseCSV reads products from a CSV sales sheet. Comma and semicolon
// separators are accepted.
func ParseCSV(r io.Reader) ([]models.Product, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	if sniffSemicolon(data) {
		reader.Comma = ';'
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	return parseRows(rows)
}

// ParseXLSX reads products from the first sheet of a workbook
func ParseXLSX(r io.Reader) ([]models.Product, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	return parseRows(rows)
}

// parseRows turns a header row plus data rows into raw products. Rows that
// cannot be parsed are logged and skipped; duplicates keep the first row.
func parseRows(rows [][]string) ([]models.Product, error) {
	if len(rows) == 0 {
		return nil, errors.New("empty sheet")
	}

	colIndex := buildColumnIndex(rows[0])
	for _, col := range requiredColumns {
		if _, ok := colIndex[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s (tried: %v)", col, columnMappings[col])
		}
	}

	field := func(record []string, col string) string {
		idx := colIndex[col]
		if idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var products []models.Product
	seen := make(map[string]bool)

	for i, record := range rows[1:] {
		lineNum := i + 2
		if isBlank(record) {
			continue
		}

		p := models.Product{
			Category: field(record, "Category"),
			Name:     field(record, "Product"),
		}
		if p.Name == "" {
			log.Printf("Warning: missing product name on line %d", lineNum)
			continue
		}

		price, err := parseNumber(field(record, "Price"))
		if err != nil {
			log.Printf("Warning: could not parse price '%s' on line %d", field(record, "Price"), lineNum)
			continue
		}
		margin, err := parseNumber(field(record, "Margin"))
		if err != nil {
			log.Printf("Warning: could not parse margin '%s' on line %d", field(record, "Margin"), lineNum)
			continue
		}
		qty, err := parseNumber(field(record, "Quantity"))
		if err != nil {
			log.Printf("Warning: could not parse quantity '%s' on line %d", field(record, "Quantity"), lineNum)
			continue
		}

		p.PriceInclusive = price
		p.MarginPct = margin
		p.Quantity = int(math.Round(qty))
		p.ID = p.ComputeID()

		if seen[p.ID] {
			log.Printf("Warning: duplicate product %s / %s on line %d skipped", p.Category, p.Name, lineNum)
			continue
		}
		seen[p.ID] = true
		products = append(products, p)
	}

	if len(products) == 0 {
		return nil, errors.New("no valid product rows")
	}
	return products, nil
}

// parseNumber parses amounts such as "1 500", "1,500", "12,5" or "30%".
// An empty cell reads as 0.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	for _, cut := range []string{"FCFA", "fcfa", "%", " ", "\u00a0", "\u202f"} {
		s = strings.ReplaceAll(s, cut, "")
	}
	if s == "" {
		return 0, nil
	}

	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			s = strings.ReplaceAll(s, ",", "")
		} else if i := strings.LastIndex(s, ","); len(s)-i-1 == 3 && strings.Trim(s[:i], "-") != "0" {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	}

	return strconv.ParseFloat(s, 64)
}

// sniffSemicolon reports whether the header line uses ';' as separator
func sniffSemicolon(data []byte) bool {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	return bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(","))
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
