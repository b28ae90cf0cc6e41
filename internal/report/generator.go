// Package report renders a run summary as a machine-readable document.
package report

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"path/filepath"
	"strings"

	"fjacquet/ine-csv/internal/fileutils"
	"fjacquet/ine-csv/internal/logging"
	"fjacquet/ine-csv/internal/pipeline"

	"gopkg.in/yaml.v3"
)

// Supported report formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatXML  = "xml"
)

// Generator renders run summaries in various formats.
type Generator struct {
	logger logging.Logger
}

// NewGenerator creates a new instance of Generator.
func NewGenerator(logger logging.Logger) *Generator {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Generator{logger: logger.WithField("component", "report")}
}

// xmlSummary gives the XML document a stable root element.
type xmlSummary struct {
	XMLName xml.Name `xml:"run_summary"`
	*pipeline.RunSummary
}

// Generate renders summary in the specified format (json, yaml or xml).
func (g *Generator) Generate(summary *pipeline.RunSummary, format string) ([]byte, error) {
	if summary == nil {
		return nil, fmt.Errorf("no run summary to report")
	}
	switch strings.ToLower(format) {
	case FormatJSON:
		return g.generateJSON(summary)
	case FormatYAML, "yml":
		return g.generateYAML(summary)
	case FormatXML:
		return g.generateXML(summary)
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}

func (g *Generator) generateJSON(summary *pipeline.RunSummary) ([]byte, error) {
	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		g.logger.WithError(err).Error("Failed to marshal JSON report")
		return nil, fmt.Errorf("failed to marshal JSON report: %w", err)
	}
	return append(out, '\n'), nil
}

func (g *Generator) generateYAML(summary *pipeline.RunSummary) ([]byte, error) {
	out, err := yaml.Marshal(summary)
	if err != nil {
		g.logger.WithError(err).Error("Failed to marshal YAML report")
		return nil, fmt.Errorf("failed to marshal YAML report: %w", err)
	}
	return out, nil
}

func (g *Generator) generateXML(summary *pipeline.RunSummary) ([]byte, error) {
	out, err := xml.MarshalIndent(xmlSummary{RunSummary: summary}, "", "  ")
	if err != nil {
		g.logger.WithError(err).Error("Failed to marshal XML report")
		return nil, fmt.Errorf("failed to marshal XML report: %w", err)
	}
	return []byte(xml.Header + string(out) + "\n"), nil
}

// FormatFromPath picks a report format from the file extension, defaulting to JSON.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".xml":
		return FormatXML
	default:
		return FormatJSON
	}
}

// WriteFile renders summary in the format implied by path and writes it atomically.
func (g *Generator) WriteFile(summary *pipeline.RunSummary, path string) error {
	data, err := g.Generate(summary, FormatFromPath(path))
	if err != nil {
		return err
	}
	if err := fileutils.EnsureDirectoryExists(filepath.Dir(path)); err != nil {
		return err
	}
	if err := fileutils.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	g.logger.Info("Wrote run report", logging.F(logging.FieldOutputFile, path))
	return nil
}
