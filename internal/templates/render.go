package templates

import (
	"bufio"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"menusim/internal/models"
	"menusim/internal/services/advisor"
)

var (
	lineNumberRe   = regexp.MustCompile(`:(\d+):`)
	templateCallRe = regexp.MustCompile(`\{\{\s*template\s+"([^"]+)"`)
)

// Renderer handles template rendering
type Renderer struct {
	templates *template.Template
	debug     bool
	baseDir   string
}

// New creates a new template renderer
func New(templateDir string, debug bool) (*Renderer, error) {
	r := &Renderer{
		debug:   debug,
		baseDir: templateDir,
	}

	if err := r.loadTemplates(); err != nil {
		return nil, err
	}

	return r, nil
}

// getFuncMap returns the template function map
func getFuncMap() template.FuncMap {
	return template.FuncMap{
		"formatMoney":    advisor.Money,
		"formatNumber":   FormatNumber,
		"formatPercent":  formatPercent,
		"formatSigned":   formatSigned,
		"plain":          plainNumber,
		"formatDateTime": formatDateTime,
		"add":            add,
		"dict":           dict,
		"json":           jsonMarshal,
		"safeHTML":       safeHTML,
		"colorClass":     colorClass,
		"modeLabel":      func(m models.OptimizationMode) string { return m.Label() },
		"currency":       func() string { return models.Currency },
		"now":            time.Now,
	}
}

// loadTemplates parses all templates with strict validation
func (r *Renderer) loadTemplates() error {
	tmpl := template.New("").Funcs(getFuncMap())

	var templateFiles []string
	for _, subdir := range []string{"layouts", "pages", "partials", "components"} {
		subPattern := filepath.Join(r.baseDir, subdir, "*.html")
		matches, err := filepath.Glob(subPattern)
		if err != nil {
			return fmt.Errorf("error globbing %s: %w", subPattern, err)
		}
		templateFiles = append(templateFiles, matches...)
	}

	if len(templateFiles) == 0 {
		return fmt.Errorf("no template files found in %s", r.baseDir)
	}

	// Parse each template file individually for better error reporting
	var parseErrors []string
	for _, file := range templateFiles {
		content, err := os.ReadFile(file)
		if err != nil {
			parseErrors = append(parseErrors, fmt.Sprintf("  %s: failed to read: %v", file, err))
			continue
		}

		if _, err := tmpl.New(filepath.Base(file)).Parse(string(content)); err != nil {
			parseErrors = append(parseErrors, formatTemplateError(file, string(content), err))
		}
	}

	if len(parseErrors) > 0 {
		logBlock("TEMPLATE PARSING ERRORS", parseErrors)
		return fmt.Errorf("template parsing failed with %d error(s)", len(parseErrors))
	}

	if err := validateTemplateReferences(tmpl, templateFiles); err != nil {
		return err
	}

	r.templates = tmpl
	log.Printf("Templates loaded successfully: %d files", len(templateFiles))
	return nil
}

func logBlock(title string, lines []string) {
	rule := strings.Repeat("=", 60)
	log.Print(rule)
	log.Print(title)
	log.Print(rule)
	for _, l := range lines {
		log.Print(l)
	}
	log.Print(rule)
}

// formatTemplateError formats a template error with file context
func formatTemplateError(file, content string, err error) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n  File: %s\n", file)

	errStr := err.Error()
	lineNum := extractLineNumber(errStr)
	if lineNum <= 0 {
		fmt.Fprintf(&sb, "  Error: %s\n", errStr)
		return sb.String()
	}

	fmt.Fprintf(&sb, "  Line: %d\n  Error: %s\n  Context:\n", lineNum, errStr)

	lines := strings.Split(content, "\n")
	start := max(lineNum-3, 0)
	end := min(lineNum+2, len(lines))
	for i := start; i < end; i++ {
		marker := "   "
		if i+1 == lineNum {
			marker = ">>>"
		}
		fmt.Fprintf(&sb, "    %s %4d | %s\n", marker, i+1, lines[i])
	}

	return sb.String()
}

// extractLineNumber pulls the ":LINE:" part out of a template error
func extractLineNumber(errStr string) int {
	matches := lineNumberRe.FindStringSubmatch(errStr)
	if len(matches) < 2 {
		return 0
	}
	n, _ := strconv.Atoi(matches[1])
	return n
}

// validateTemplateReferences checks that all {{template "name"}} calls reference defined templates
func validateTemplateReferences(tmpl *template.Template, files []string) error {
	defined := make(map[string]bool)
	for _, t := range tmpl.Templates() {
		if t.Name() != "" {
			defined[t.Name()] = true
		}
	}

	var refErrors []string
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			continue
		}

		scanner := bufio.NewScanner(strings.NewReader(string(content)))
		lineNum := 0
		for scanner.Scan() {
			lineNum++
			line := scanner.Text()
			for _, match := range templateCallRe.FindAllStringSubmatch(line, -1) {
				if !defined[match[1]] {
					refErrors = append(refErrors, fmt.Sprintf(
						"  %s:%d: undefined template %q\n    Line: %s",
						file, lineNum, match[1], strings.TrimSpace(line),
					))
				}
			}
		}
	}

	if len(refErrors) > 0 {
		for name := range defined {
			if !strings.HasSuffix(name, ".html") {
				refErrors = append(refErrors, "  defined: "+name)
			}
		}
		logBlock("UNDEFINED TEMPLATE REFERENCES", refErrors)
		return fmt.Errorf("found %d undefined template reference(s)", len(refErrors))
	}

	return nil
}

// Reload reloads templates (useful for development)
func (r *Renderer) Reload() error {
	return r.loadTemplates()
}

// Render renders a full page with the base layout
func (r *Renderer) Render(w http.ResponseWriter, name string, data interface{}) error {
	return r.execute(w, name, data, "template")
}

// RenderPartial renders a partial template (no base layout)
func (r *Renderer) RenderPartial(w http.ResponseWriter, name string, data interface{}) error {
	return r.execute(w, name, data, "partial")
}

func (r *Renderer) execute(w http.ResponseWriter, name string, data interface{}, kind string) error {
	// In debug mode, reload templates on each request
	if r.debug {
		if err := r.loadTemplates(); err != nil {
			log.Printf("Error reloading templates: %v", err)
		}
	}

	// Render into a buffer so a failing template does not leave half a page
	var buf strings.Builder
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.Printf("Error rendering %s %s: %v", kind, name, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := io.WriteString(w, buf.String())
	return err
}

// RenderToString renders a template to a string
func (r *Renderer) RenderToString(name string, data interface{}) (string, error) {
	var buf strings.Builder
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Template functions

// FormatNumber renders a count with thousands separators
func FormatNumber(v interface{}) string {
	return humanize.Comma(int64(math.Round(toFloat(v))))
}

// plainNumber renders a number for an input value, without exponent
func plainNumber(v interface{}) string {
	return strconv.FormatFloat(toFloat(v), 'f', -1, 64)
}

func formatPercent(v float64) string {
	return humanize.FormatFloat("#,###.#", v) + "%"
}

// formatSigned prefixes positive values with "+", used for variations
func formatSigned(v float64) string {
	if v > 0 {
		return fmt.Sprintf("+%.1f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006 3:04 PM")
}

func add(a, b interface{}) interface{} {
	// If both are ints, return int to preserve type for comparisons
	if ai, ok := a.(int); ok {
		if bi, ok := b.(int); ok {
			return ai + bi
		}
	}
	return toFloat(a) + toFloat(b)
}

func toFloat(v interface{}) float64 {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case float64:
		return val
	case float32:
		return float64(val)
	default:
		return 0
	}
}

// dict creates a map from key-value pairs
func dict(values ...interface{}) map[string]interface{} {
	if len(values)%2 != 0 {
		return nil
	}
	result := make(map[string]interface{})
	for i := 0; i < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			continue
		}
		result[key] = values[i+1]
	}
	return result
}

func jsonMarshal(v interface{}) template.JS {
	data, err := json.Marshal(v)
	if err != nil {
		return template.JS("null")
	}
	return template.JS(data)
}

func safeHTML(s string) template.HTML {
	return template.HTML(s)
}

func colorClass(v float64) string {
	if v > 0 {
		return "text-green-600 dark:text-green-400"
	} else if v < 0 {
		return "text-red-600 dark:text-red-400"
	}
	return "text-gray-600 dark:text-gray-400"
}
