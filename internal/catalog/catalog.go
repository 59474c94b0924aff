// Package catalog describes the datasets duckline knows how to load:
// where each file lives, how it is encoded and which columns play which
// role. Catalogs are YAML documents; a built-in catalog covers the five
// data files behind the site's charts.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/yellowduckie/duckline/internal/series"
)

// Format is the wire encoding of a dataset file.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Extract selects how a JSON point field is reduced to one number.
type Extract string

const (
	ExtractScalar Extract = "scalar"
	ExtractIndex0 Extract = "index0"
)

// Metric maps one source column to one named value.
type Metric struct {
	Name    string  `yaml:"name"`
	Column  string  `yaml:"column,omitempty"`
	Missing string  `yaml:"missing,omitempty"`
	Extract Extract `yaml:"extract,omitempty"`
}

// Dataset is one loadable file and the field roles used to build it.
type Dataset struct {
	Name       string   `yaml:"name"`
	Title      string   `yaml:"title,omitempty"`
	Location   string   `yaml:"location"`
	Format     Format   `yaml:"format"`
	DateColumn string   `yaml:"date_column"`
	Duplicates string   `yaml:"duplicates,omitempty"`
	Metrics    []Metric `yaml:"metrics"`
}

// Primary returns the name of the dataset's primary metric.
func (d Dataset) Primary() string {
	if len(d.Metrics) == 0 {
		return d.Name
	}
	return d.Metrics[0].Name
}

// SeriesConfig converts the dataset's field roles into a builder config.
// Unset policies fall back to zero-fill and first-wins.
func (d Dataset) SeriesConfig() series.Config {
	cfg := series.Config{
		DateColumn: d.DateColumn,
		Duplicates: series.DuplicatePolicy(d.Duplicates),
	}
	if cfg.Duplicates == "" {
		cfg.Duplicates = series.DuplicateFirst
	}
	for _, m := range d.Metrics {
		missing := series.MissingPolicy(m.Missing)
		if missing == "" {
			missing = series.MissingZero
		}
		cfg.Metrics = append(cfg.Metrics, series.Field{Name: m.Name, Column: m.Column, Missing: missing})
	}
	return cfg
}

// Extracts maps column names to their JSON extraction mode.
func (d Dataset) Extracts() map[string]Extract {
	out := make(map[string]Extract, len(d.Metrics))
	for _, m := range d.Metrics {
		if m.Column == "" {
			continue
		}
		e := m.Extract
		if e == "" {
			e = ExtractScalar
		}
		out[m.Column] = e
	}
	return out
}

// Validate checks one dataset definition.
func (d Dataset) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("dataset name is required")
	}
	if strings.TrimSpace(d.Location) == "" {
		return fmt.Errorf("dataset %q: location is required", d.Name)
	}
	switch d.Format {
	case FormatCSV, FormatJSON:
	default:
		return fmt.Errorf("dataset %q: unknown format %q (use csv or json)", d.Name, d.Format)
	}
	for _, m := range d.Metrics {
		switch m.Extract {
		case "", ExtractScalar, ExtractIndex0:
		default:
			return fmt.Errorf("dataset %q: metric %q: unknown extract %q (use scalar or index0)", d.Name, m.Name, m.Extract)
		}
	}
	if err := d.SeriesConfig().Validate(); err != nil {
		return fmt.Errorf("dataset %q: %w", d.Name, err)
	}
	return nil
}

// Catalog is an ordered set of datasets.
type Catalog struct {
	Datasets []Dataset `yaml:"datasets"`
}

// Get returns the dataset with the given name.
func (c *Catalog) Get(name string) (Dataset, bool) {
	return lo.Find(c.Datasets, func(d Dataset) bool { return d.Name == name })
}

// Lookup resolves several names, failing on the first unknown one.
// An empty list selects every dataset.
func (c *Catalog) Lookup(names ...string) ([]Dataset, error) {
	if len(names) == 0 {
		return append([]Dataset(nil), c.Datasets...), nil
	}
	out := make([]Dataset, 0, len(names))
	for _, n := range lo.Uniq(names) {
		d, ok := c.Get(n)
		if !ok {
			return nil, fmt.Errorf("unknown dataset %q (known: %s)", n, strings.Join(c.Names(), ", "))
		}
		out = append(out, d)
	}
	return out, nil
}

// Names returns dataset names in catalog order.
func (c *Catalog) Names() []string {
	return lo.Map(c.Datasets, func(d Dataset, _ int) string { return d.Name })
}

// Validate checks every dataset and rejects duplicate names.
func (c *Catalog) Validate() error {
	if len(c.Datasets) == 0 {
		return errors.New("catalog has no datasets")
	}
	counts := lo.CountValuesBy(c.Datasets, func(d Dataset) string { return d.Name })
	dups := lo.Keys(lo.PickBy(counts, func(_ string, n int) bool { return n > 1 }))
	if len(dups) > 0 {
		sort.Strings(dups)
		return fmt.Errorf("duplicate dataset names: %s", strings.Join(dups, ", "))
	}
	for _, d := range c.Datasets {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads a catalog file. An empty path returns the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Marshal encodes the catalog as YAML.
func (c *Catalog) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
