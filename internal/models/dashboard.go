package models

import "time"

// ChartData represents data for a Plotly chart
type ChartData struct {
	Type   string      `json:"type"`             // bar, pie
	X      interface{} `json:"x,omitempty"`      // x-axis values
	Y      interface{} `json:"y,omitempty"`      // y-axis values
	Labels []string    `json:"labels,omitempty"` // for pie charts
	Values []float64   `json:"values,omitempty"` // for pie charts
	Name   string      `json:"name,omitempty"`   // series name
	Hole   float64     `json:"hole,omitempty"`
}

// ChartShape is a reference line drawn over a chart
type ChartShape struct {
	Type string  `json:"type"` // line
	X0   float64 `json:"x0"`
	Y0   float64 `json:"y0"`
	X1   float64 `json:"x1"`
	Y1   float64 `json:"y1"`
	Dash string  `json:"dash,omitempty"`
}

// ChartResponse wraps chart data with layout options
type ChartResponse struct {
	Data   []ChartData `json:"data"`
	Layout ChartLayout `json:"layout,omitempty"`
}

// ChartLayout defines Plotly layout options
type ChartLayout struct {
	Title      string       `json:"title,omitempty"`
	XAxisTitle string       `json:"xaxis_title,omitempty"`
	YAxisTitle string       `json:"yaxis_title,omitempty"`
	BarMode    string       `json:"barmode,omitempty"` // group, stack
	ShowLegend bool         `json:"showlegend,omitempty"`
	Shapes     []ChartShape `json:"shapes,omitempty"`
}

// FileInfo describes the loaded input file
type FileInfo struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Format   string `json:"format"` // csv, xlsx
	Products int    `json:"products"`
	Hash     string `json:"hash"`
}

// DataFile is one entry of the data directory listing
type DataFile struct {
	Name      string    `json:"name"` // relative to the data directory
	Size      int64     `json:"size"`
	Modified  time.Time `json:"modified"`
	Encrypted bool      `json:"encrypted"`
	Current   bool      `json:"current"` // the sales sheet being simulated
}
