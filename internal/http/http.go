// Package http holds the response helpers shared by the handler packages.
package http

import (
	"encoding/json"
	"html"
	"log"
	"net/http"

	"menusim/internal/templates"
)

// RenderPage renders the base layout. Without templates it writes a bare page
// titled title with notice as its only paragraph.
func RenderPage(w http.ResponseWriter, renderer *templates.Renderer, data map[string]interface{}, title, notice string) {
	if renderer != nil {
		renderer.Render(w, "base", data)
		return
	}

	if notice == "" {
		notice = "Templates not loaded. Check configuration."
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte("<html><body><h1>" + html.EscapeString(title) + "</h1><p>" +
		html.EscapeString(notice) + "</p></body></html>"))
}

// RenderPartial renders a partial template. Without templates it writes
// fallback, which must already be safe HTML.
func RenderPartial(w http.ResponseWriter, renderer *templates.Renderer, partialName string, data map[string]interface{}, fallback string) {
	if renderer != nil {
		renderer.RenderPartial(w, partialName, data)
		return
	}

	if fallback == "" {
		fallback = "<div><!-- Partial " + html.EscapeString(partialName) + " not loaded --></div>"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(fallback))
}

// WriteJSON encodes v as the response body
func WriteJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// JSONError sends {"error": message} with the given status
func JSONError(w http.ResponseWriter, message string, statusCode int) {
	log.Printf("Error: %s (status %d)", message, statusCode)
	WriteJSON(w, statusCode, map[string]string{"error": message})
}
