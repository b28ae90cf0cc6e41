// Package dataset holds the catalogue of INE tables the pipeline knows how to
// fetch and process.
package dataset

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"fjacquet/ine-csv/internal/aggregate"
	"fjacquet/ine-csv/internal/etlerror"
	"fjacquet/ine-csv/internal/ine"
	"fjacquet/ine-csv/internal/labelparser"
	"fjacquet/ine-csv/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed datasets.yaml
var embeddedCatalogue []byte

// Where the observation year is read from.
const (
	YearFromAnyo          = "anyo"
	YearFromNombrePeriodo = "nombre_periodo"
)

// FilePrefix is prepended to dataset names to build file names.
const FilePrefix = "ine_"

// NationalTotalMarker identifies series that aggregate the whole country.
// They are always dropped at fetch time.
const NationalTotalMarker = "Total Nacional"

// SeriesFilter selects the series of a table worth keeping. Empty lists
// accept everything.
type SeriesFilter struct {
	IncludePrefixes []string `yaml:"include_prefixes,omitempty"`
	IncludeContains []string `yaml:"include_contains,omitempty"`
	ExcludeContains []string `yaml:"exclude_contains,omitempty"`
}

// Keep reports whether a series named name passes the filter.
func (f SeriesFilter) Keep(name string) bool {
	if strings.Contains(name, NationalTotalMarker) {
		return false
	}
	if len(f.IncludePrefixes) > 0 && !anyMatch(f.IncludePrefixes, name, strings.HasPrefix) {
		return false
	}
	if len(f.IncludeContains) > 0 && !anyMatch(f.IncludeContains, name, strings.Contains) {
		return false
	}
	return !anyMatch(f.ExcludeContains, name, strings.Contains)
}

func anyMatch(patterns []string, s string, match func(string, string) bool) bool {
	for _, p := range patterns {
		if match(s, p) {
			return true
		}
	}
	return false
}

// Dataset declares one INE table and how to reshape it.
type Dataset struct {
	Name           string              `yaml:"name"`
	Description    string              `yaml:"description,omitempty"`
	Function       ine.Function        `yaml:"function,omitempty"`
	Input          string              `yaml:"input"`
	Params         ine.Params          `yaml:"params"`
	File           string              `yaml:"file,omitempty"`
	YearSource     string              `yaml:"year_source,omitempty"`
	CaptureQuarter bool                `yaml:"capture_quarter,omitempty"`
	Filter         SeriesFilter        `yaml:"filter,omitempty"`
	Grammar        labelparser.Grammar `yaml:"grammar"`
	Aggregation    *aggregate.Rule     `yaml:"aggregation,omitempty"`
	ValueColumn    string              `yaml:"value_column,omitempty"`

	parser *labelparser.Parser
}

// FileName is the base name shared by the intermediate and processed files.
func (d *Dataset) FileName() string {
	if d.File != "" {
		return d.File
	}
	return FilePrefix + d.Name
}

// ExtractionFile is the intermediate CSV name.
func (d *Dataset) ExtractionFile() string {
	return d.FileName() + ".csv"
}

// ProcessedFile is the final CSV name.
func (d *Dataset) ProcessedFile() string {
	return d.FileName() + "_processed.csv"
}

// KeyColumns returns the output key columns after the year: the region
// first, then the remaining grammar attributes in declaration order.
func (d *Dataset) KeyColumns() []string {
	cols := []string{models.RegionColumn}
	for _, name := range d.Grammar.Names() {
		if name != models.RegionColumn {
			cols = append(cols, name)
		}
	}
	return cols
}

// Header returns the processed file header.
func (d *Dataset) Header() []string {
	return models.Header(d.KeyColumns(), d.ValueColumn)
}

// Parser returns the compiled label grammar.
func (d *Dataset) Parser() *labelparser.Parser {
	return d.parser
}

func (d *Dataset) prepare() error {
	if d.Name == "" {
		return fmt.Errorf("dataset without a name")
	}
	if d.Function == "" {
		d.Function = ine.DatosTabla
	}
	if d.Function != ine.DatosTabla && d.Function != ine.DatosSerie {
		return fmt.Errorf("dataset %s: function %s does not return series", d.Name, d.Function)
	}
	if strings.TrimSpace(d.Input) == "" {
		return fmt.Errorf("dataset %s: input is required", d.Name)
	}
	if err := d.Params.Validate(); err != nil {
		return fmt.Errorf("dataset %s: %w", d.Name, err)
	}
	switch d.YearSource {
	case "":
		d.YearSource = YearFromAnyo
	case YearFromAnyo, YearFromNombrePeriodo:
	default:
		return fmt.Errorf("dataset %s: unknown year_source %q", d.Name, d.YearSource)
	}
	if d.ValueColumn == "" {
		d.ValueColumn = "value"
	}

	hasRegion := false
	for _, name := range d.Grammar.Names() {
		if name == models.RegionColumn {
			hasRegion = true
		}
		if name == models.YearColumn || name == d.ValueColumn {
			return fmt.Errorf("dataset %s: attribute %q collides with an output column", d.Name, name)
		}
	}
	if !hasRegion {
		return fmt.Errorf("dataset %s: grammar must produce %s", d.Name, models.RegionColumn)
	}

	parser, err := labelparser.Compile(d.Grammar)
	if err != nil {
		return fmt.Errorf("dataset %s: %w", d.Name, err)
	}
	d.parser = parser

	if d.Aggregation != nil {
		if err := d.Aggregation.Validate(); err != nil {
			return fmt.Errorf("dataset %s: %w", d.Name, err)
		}
		if d.Aggregation.Over == aggregate.OverQuarter && !d.CaptureQuarter {
			return fmt.Errorf("dataset %s: aggregation over quarter needs capture_quarter", d.Name)
		}
	}
	return nil
}

// Registry is the loaded catalogue, read-only after construction.
type Registry struct {
	datasets map[string]*Dataset
}

type catalogue struct {
	Datasets []*Dataset `yaml:"datasets"`
}

// Default loads the embedded catalogue.
func Default() (*Registry, error) {
	return Load(embeddedCatalogue)
}

// LoadFile loads a catalogue from disk.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading dataset catalogue: %w", err)
	}
	return Load(data)
}

// Load parses and validates a YAML catalogue.
func Load(data []byte) (*Registry, error) {
	var c catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("error parsing dataset catalogue: %w", err)
	}
	if len(c.Datasets) == 0 {
		return nil, fmt.Errorf("dataset catalogue is empty")
	}

	r := &Registry{datasets: make(map[string]*Dataset, len(c.Datasets))}
	files := make(map[string]string)
	for _, d := range c.Datasets {
		if err := d.prepare(); err != nil {
			return nil, err
		}
		if _, dup := r.datasets[d.Name]; dup {
			return nil, fmt.Errorf("dataset %s declared twice", d.Name)
		}
		if other, clash := files[d.FileName()]; clash {
			return nil, fmt.Errorf("datasets %s and %s write the same file", other, d.Name)
		}
		files[d.FileName()] = d.Name
		r.datasets[d.Name] = d
	}
	return r, nil
}

// Get returns the named dataset or an error wrapping ErrUnknownDataset.
func (r *Registry) Get(name string) (*Dataset, error) {
	d, ok := r.datasets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", etlerror.ErrUnknownDataset, name)
	}
	return d, nil
}

// Names returns all dataset names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.datasets))
	for name := range r.datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select resolves names to datasets, in the given order. No names means the
// whole catalogue.
func (r *Registry) Select(names []string) ([]*Dataset, error) {
	if len(names) == 0 {
		names = r.Names()
	}
	out := make([]*Dataset, 0, len(names))
	for _, name := range names {
		d, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
