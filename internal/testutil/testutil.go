// Package testutil provides testing utilities for the menu simulator.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// TestServer wraps httptest.Server with convenience methods
type TestServer struct {
	Server  *httptest.Server
	BaseURL string
	t       *testing.T
}

// ProjectRoot returns the root directory of the project.
// It works by finding the go.mod file.
func ProjectRoot() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		panic("could not get caller info")
	}

	// Start from this file's directory and walk up
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			panic("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// TestDataDir returns the path to the testdata directory
func TestDataDir() string {
	return filepath.Join(ProjectRoot(), "testdata")
}

// TemplatesDir returns the path to the HTML templates
func TemplatesDir() string {
	return filepath.Join(ProjectRoot(), "web", "templates")
}

// CopyTestData copies the sample sales sheet into a fresh data directory
// so tests can write, encrypt or delete files freely.
func CopyTestData(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	data, err := os.ReadFile(filepath.Join(TestDataDir(), "sales.csv"))
	if err != nil {
		t.Fatalf("reading sample sales sheet: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sales.csv"), data, 0644); err != nil {
		t.Fatalf("copying sample sales sheet: %v", err)
	}
	return dir
}

// TestConfig returns MENUSIM_* variables pointing at dataDir
func TestConfig(dataDir string) map[string]string {
	return map[string]string{
		"MENUSIM_DATA_DIR":      dataDir,
		"MENUSIM_DATA_FILE":     "sales.csv",
		"MENUSIM_TEMPLATES_DIR": TemplatesDir(),
		"MENUSIM_DEBUG":         "false",
		"MENUSIM_LISTEN_ADDR":   ":0", // Random port
	}
}

// SetTestEnv points the configuration at dataDir for the rest of the test
func SetTestEnv(t *testing.T, dataDir string) {
	t.Helper()

	t.Setenv("MENUSIM_CONFIG", "")
	for k, v := range TestConfig(dataDir) {
		t.Setenv(k, v)
	}
}

// NewTestServer creates a new test server using the application's router.
func NewTestServer(t *testing.T, router http.Handler) *TestServer {
	t.Helper()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &TestServer{
		Server:  server,
		BaseURL: server.URL,
		t:       t,
	}
}

// GET performs a GET request to the given path
func (ts *TestServer) GET(path string) *http.Response {
	ts.t.Helper()

	resp, err := http.Get(ts.BaseURL + path)
	if err != nil {
		ts.t.Fatalf("GET %s failed: %v", path, err)
	}
	return resp
}

// GETWithQuery performs a GET request with query parameters
func (ts *TestServer) GETWithQuery(path string, query url.Values) *http.Response {
	ts.t.Helper()

	target := ts.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	resp, err := http.Get(target)
	if err != nil {
		ts.t.Fatalf("GET %s failed: %v", path, err)
	}
	return resp
}

// POST performs a POST request to the given path
func (ts *TestServer) POST(path string, contentType string, body io.Reader) *http.Response {
	ts.t.Helper()

	resp, err := http.Post(ts.BaseURL+path, contentType, body)
	if err != nil {
		ts.t.Fatalf("POST %s failed: %v", path, err)
	}
	return resp
}

// POSTForm posts url-encoded form values
func (ts *TestServer) POSTForm(path string, form url.Values) *http.Response {
	ts.t.Helper()
	return ts.POST(path, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
}

// POSTJSON posts v encoded as JSON
func (ts *TestServer) POSTJSON(path string, v interface{}) *http.Response {
	ts.t.Helper()

	body, err := json.Marshal(v)
	if err != nil {
		ts.t.Fatalf("encoding request body: %v", err)
	}
	return ts.POST(path, "application/json", strings.NewReader(string(body)))
}

// POSTFile uploads content as a multipart file field, with extra form fields
func (ts *TestServer) POSTFile(path, field, filename string, content []byte, fields url.Values) *http.Response {
	ts.t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, vs := range fields {
		for _, v := range vs {
			mw.WriteField(k, v)
		}
	}
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		ts.t.Fatalf("creating form file: %v", err)
	}
	fw.Write(content)
	if err := mw.Close(); err != nil {
		ts.t.Fatalf("closing multipart body: %v", err)
	}
	return ts.POST(path, mw.FormDataContentType(), &body)
}

// DELETE performs a DELETE request to the given path
func (ts *TestServer) DELETE(path string) *http.Response {
	ts.t.Helper()

	req, err := http.NewRequest(http.MethodDelete, ts.BaseURL+path, nil)
	if err != nil {
		ts.t.Fatalf("creating DELETE %s: %v", path, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		ts.t.Fatalf("DELETE %s failed: %v", path, err)
	}
	return resp
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	ts.Server.Close()
}

// ReadBody reads and returns the response body as a string
func ReadBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	return string(body)
}
