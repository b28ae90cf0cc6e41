// Package etlerror defines the error taxonomy shared by the fetch and process stages.
package etlerror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoData is returned when a fetch yields no observations after filtering.
	ErrNoData = errors.New("no observations in response")

	// ErrUnknownDataset is returned when a dataset name is not in the catalogue.
	ErrUnknownDataset = errors.New("unknown dataset")
)

// FetchError represents a transport failure or a non-success HTTP status.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError represents an API response whose shape is not what we expect.
type ParseError struct {
	Source string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", e.Source, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// LabelParseMismatch describes a series label that did not fit its dataset grammar.
// It is never fatal: the row is excluded and the mismatch counted.
type LabelParseMismatch struct {
	Dataset string
	Label   string
}

func (e *LabelParseMismatch) Error() string {
	return fmt.Sprintf("%s: label does not match grammar: %q", e.Dataset, e.Label)
}

// UnknownRegionError lists region names that have no entry in the mapping table.
type UnknownRegionError struct {
	Names []string
}

func (e *UnknownRegionError) Error() string {
	return fmt.Sprintf("unknown region name(s): %s", strings.Join(quoteAll(e.Names), ", "))
}

// MissingInputFileError is returned when the intermediate file is absent.
type MissingInputFileError struct {
	Path string
	Err  error
}

func (e *MissingInputFileError) Error() string {
	return fmt.Sprintf("input file not found: %s (run fetch first)", e.Path)
}

func (e *MissingInputFileError) Unwrap() error {
	return e.Err
}

// DuplicateKeyError is returned when two processed records share a key tuple.
type DuplicateKeyError struct {
	Dataset string
	Key     []string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s: duplicate key (%s)", e.Dataset, strings.Join(e.Key, ", "))
}

// ValidationError represents an invalid parameter or configuration value.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s=%q: %s", e.Field, e.Value, e.Reason)
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = fmt.Sprintf("%q", n)
	}
	return out
}
