// Package model defines the canonical data types used throughout duckline.
// These types are the single source of truth for raw rows, built series,
// aligned composites and the result envelope that every command returns.
package model

import (
	"encoding/json"
	"math"
	"sort"
	"time"
)

// ─── Input ────────────────────────────────────────────────────────────────────

// RawRecord is one untyped row as produced by a source decoder: a CSV row
// keyed by header name, or a flattened JSON point object. It is consumed
// immediately by the row parser and never retained.
type RawRecord map[string]string

// ─── Series Types ─────────────────────────────────────────────────────────────

// Point is a single day-resolution data point.
// Value is the primary metric; Aux carries secondary metrics that share the
// same date (for example likes and replies riding along with impressions).
type Point struct {
	Date  time.Time          `json:"date"`
	Value float64            `json:"value"`
	Aux   map[string]float64 `json:"aux,omitempty"`
}

// pointJSON is the wire form of Point. JSON has no NaN, so a missing value
// travels as null.
type pointJSON struct {
	Date  time.Time          `json:"date"`
	Value *float64           `json:"value"`
	Aux   map[string]float64 `json:"aux,omitempty"`
}

// MarshalJSON writes NaN values as null.
func (p Point) MarshalJSON() ([]byte, error) {
	w := pointJSON{Date: p.Date, Aux: p.Aux}
	if !math.IsNaN(p.Value) {
		v := p.Value
		w.Value = &v
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads null values back as NaN.
func (p *Point) UnmarshalJSON(data []byte) error {
	var w pointJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	p.Date, p.Aux, p.Value = w.Date, w.Aux, math.NaN()
	if w.Value != nil {
		p.Value = *w.Value
	}
	return nil
}

// AuxValue returns the named auxiliary value, or 0 when absent.
func (p Point) AuxValue(name string) float64 {
	return p.Aux[name]
}

// Series is an ascending, day-unique sequence of points for one metric.
// A Series is built once per load and treated as read-only afterwards;
// every filter returns a new slice header rather than mutating in place.
type Series []Point

// Len returns the number of points.
func (s Series) Len() int { return len(s) }

// First returns the earliest point. Callers must check Len first.
func (s Series) First() Point { return s[0] }

// Last returns the latest point. Callers must check Len first.
func (s Series) Last() Point { return s[len(s)-1] }

// IsSorted reports whether dates are non-decreasing.
func (s Series) IsSorted() bool {
	return sort.SliceIsSorted(s, func(i, j int) bool { return s[i].Date.Before(s[j].Date) })
}

// AuxNames returns the sorted union of auxiliary field names in s.
func (s Series) AuxNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, p := range s {
		for k := range p.Aux {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	sort.Strings(names)
	return names
}

// NamedSeries bundles a series with the dataset name it was built from.
type NamedSeries struct {
	Name   string `json:"name"`
	Points Series `json:"points"`
}

// CompositeRecord is one day's values across several aligned series.
// Values holds exactly one entry per merged key; missing counterparts are 0.
type CompositeRecord struct {
	Date   time.Time          `json:"date"`
	Values map[string]float64 `json:"values"`
}

// Composite bundles aligned records with the ordered key list that produced
// them, so renderers can lay out columns deterministically.
type Composite struct {
	Keys    []string          `json:"keys"`
	Records []CompositeRecord `json:"records"`
}

// Nearest is the answer to a point lookup for one series.
type Nearest struct {
	Series string    `json:"series"`
	Query  time.Time `json:"query"`
	Point  Point     `json:"point"`
}

// ─── Result Envelope ─────────────────────────────────────────────────────────

// ResultStats carries timing and row accounting for a command result.
type ResultStats struct {
	CacheHit   bool  `json:"cache_hit"`
	DurationMs int64 `json:"duration_ms"`
	Items      int   `json:"items"`
	Rejected   int   `json:"rejected,omitempty"`
}

// Result is the uniform envelope returned by every command.
// The Data field holds the typed payload; Kind identifies what is in it.
// Renderers switch on Kind to format output appropriately.
type Result struct {
	Kind        string      `json:"kind"`
	GeneratedAt time.Time   `json:"generated_at"`
	Command     string      `json:"command"`
	Data        interface{} `json:"data"`
	Warnings    []string    `json:"warnings,omitempty"`
	Stats       ResultStats `json:"stats"`
}

// Kind constants for Result.Kind.
const (
	KindSeries    = "series"
	KindComposite = "composite"
	KindNearest   = "nearest"
	KindDatasets  = "datasets"
	KindSummary   = "summary"
	KindTable     = "table"
)

// Table is a pre-tabulated payload for listings that have no richer type
// (store contents, cache stats, resolved config).
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// DatasetInfo describes one catalog dataset for listings.
type DatasetInfo struct {
	Name       string   `json:"name"`
	Title      string   `json:"title"`
	Format     string   `json:"format"`
	Location   string   `json:"location"`
	DateColumn string   `json:"date_column"`
	Duplicates string   `json:"duplicates"`
	Metrics    []string `json:"metrics"`
	Points     int      `json:"points,omitempty"`
}
