// Package models provides the data structures shared by the fetch and process stages.
package models

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// RegionColumn is the attribute name every dataset uses for the autonomous community.
const RegionColumn = "comunidad_autonoma"

// YearColumn is the first column of every processed file.
const YearColumn = "year"

// RawObservation is one data point of one series, as flattened by the fetcher.
// Quarter is empty unless the dataset captures sub-annual periods.
type RawObservation struct {
	SeriesID   string
	SeriesName string
	Year       int
	Value      decimal.Decimal
	Quarter    string
}

// Attributes maps attribute names (comunidad_autonoma, sexo, ...) to values
// extracted from a series label.
type Attributes map[string]string

// Clone returns an independent copy.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// ProcessedRecord is one row of a final output file.
type ProcessedRecord struct {
	Year       int
	Attributes Attributes
	Value      decimal.Decimal
}

// Region returns the record's autonomous community.
func (r ProcessedRecord) Region() string {
	return r.Attributes[RegionColumn]
}

// Key returns the record's key tuple: the year followed by the values of
// keyColumns in order.
func (r ProcessedRecord) Key(keyColumns []string) []string {
	key := make([]string, 0, len(keyColumns)+1)
	key = append(key, strconv.Itoa(r.Year))
	for _, col := range keyColumns {
		key = append(key, r.Attributes[col])
	}
	return key
}

// Row renders the record as CSV fields: key tuple then the value.
func (r ProcessedRecord) Row(keyColumns []string) []string {
	return append(r.Key(keyColumns), r.Value.String())
}

// Header builds the output header for the given key columns and value column.
func Header(keyColumns []string, valueColumn string) []string {
	header := make([]string, 0, len(keyColumns)+2)
	header = append(header, YearColumn)
	header = append(header, keyColumns...)
	return append(header, valueColumn)
}
