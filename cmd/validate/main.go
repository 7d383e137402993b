// Package main provides a CLI tool for validating a running menusim server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const formType = "application/x-www-form-urlencoded"

type endpoint struct {
	path        string
	method      string
	form        string // url-encoded request body for POST
	status      int    // expected status, 200 when zero
	contentType string
	contains    []string
}

var endpoints = []endpoint{
	// Pages
	{path: "/dashboard", method: "GET", contentType: "text/html", contains: []string{"Menu Simulation", "settings-form"}},

	// Dashboard partials
	{path: "/dashboard/results", method: "POST", form: "mode=weighted&show_details=1", contentType: "text/html", contains: []string{`id="summary"`, `id="details"`}},
	{path: "/dashboard/results", method: "POST", form: "target_margin=0", status: http.StatusUnprocessableEntity, contentType: "text/html"},
	{path: "/dashboard/action-plan", method: "GET", contentType: "text/html", contains: []string{"action-plan"}},
	{path: "/dashboard/charts/data/category-revenue", method: "GET", contentType: "application/json"},
	{path: "/dashboard/charts/data/category-margin", method: "GET", contentType: "application/json"},
	{path: "/dashboard/charts/data/top-quantities", method: "GET", contentType: "application/json"},
	{path: "/dashboard/charts/data/top-spend", method: "GET", contentType: "application/json"},
	{path: "/dashboard/charts/data/suppliers", method: "GET", contentType: "application/json"},
	{path: "/dashboard/charts/data/unknown", method: "GET", status: http.StatusBadRequest, contentType: "application/json"},

	// Simulation API
	{path: "/api/simulation", method: "GET", contentType: "application/json", contains: []string{`"breakeven"`}},
	{path: "/api/simulation?mode=uniform", method: "GET", contentType: "application/json", contains: []string{`"uniform_multiplier"`}},
	{path: "/api/simulation?tax_rate=abc", method: "GET", status: http.StatusBadRequest, contentType: "application/json"},
	{path: "/api/products", method: "GET", contentType: "application/json", contains: []string{`"categories"`}},
	{path: "/api/settings/defaults", method: "GET", contentType: "application/json", contains: []string{`"tax_rate"`}},

	// Export
	{path: "/export/report.xlsx", method: "GET", contentType: "spreadsheetml"},

	// Files
	{path: "/api/files", method: "GET", contentType: "application/json", contains: []string{`"files"`}},
	{path: "/api/health", method: "GET", contentType: "application/json", contains: []string{`"status":"ok"`}},
}

type result struct {
	endpoint endpoint
	status   int
	duration time.Duration
	size     int
	err      error
}

func main() {
	url := flag.String("url", "http://localhost:8080", "Base URL of the server to validate")
	verbose := flag.Bool("v", false, "Verbose output")
	timeout := flag.Int("timeout", 10, "Request timeout in seconds")
	flag.Parse()

	client := &http.Client{
		Timeout: time.Duration(*timeout) * time.Second,
	}

	fmt.Printf("Validating server at %s\n", *url)
	fmt.Printf("Testing %d endpoints...\n\n", len(endpoints))

	var passed, failed int
	for _, ep := range endpoints {
		r := validateEndpoint(client, *url, ep)

		if r.err != nil {
			failed++
			fmt.Printf("FAIL %s %s\n", ep.method, ep.path)
			fmt.Printf("     Error: %v\n", r.err)
			continue
		}

		passed++
		if *verbose {
			fmt.Printf("PASS %s %s %d (%v, %s)\n", ep.method, ep.path, r.status, r.duration, humanize.Bytes(uint64(r.size)))
		}
	}

	fmt.Printf("\n========================================\n")
	fmt.Printf("Results: %d passed, %d failed\n", passed, failed)

	if failed > 0 {
		os.Exit(1)
	}
}

func validateEndpoint(client *http.Client, baseURL string, ep endpoint) result {
	start := time.Now()

	var body io.Reader
	if ep.form != "" {
		body = strings.NewReader(ep.form)
	}
	req, err := http.NewRequest(ep.method, baseURL+ep.path, body)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("failed to create request: %w", err)}
	}
	if ep.form != "" {
		req.Header.Set("Content-Type", formType)
	}

	resp, err := client.Do(req)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("failed to read body: %w", err)}
	}

	r := result{
		endpoint: ep,
		status:   resp.StatusCode,
		duration: time.Since(start),
		size:     len(data),
	}

	want := ep.status
	if want == 0 {
		want = http.StatusOK
	}
	if r.status != want {
		r.err = fmt.Errorf("status %d (expected %d)", r.status, want)
		return r
	}

	// Validate content type
	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, ep.contentType) {
		r.err = fmt.Errorf("wrong content type: got %q, expected %q", ct, ep.contentType)
		return r
	}

	// Validate JSON if expected
	if ep.contentType == "application/json" {
		var js interface{}
		if err := json.Unmarshal(data, &js); err != nil {
			r.err = fmt.Errorf("invalid JSON: %w", err)
			return r
		}
	}

	// Validate required content
	for _, needle := range ep.contains {
		if !strings.Contains(string(data), needle) {
			r.err = fmt.Errorf("missing expected content: %q", needle)
			return r
		}
	}

	return r
}
