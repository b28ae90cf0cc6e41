// Package container provides dependency injection for the ine-csv application.
// It centralizes the creation and wiring of all application dependencies,
// making them explicit and testable.
package container

import (
	"fmt"

	"fjacquet/ine-csv/internal/config"
	"fjacquet/ine-csv/internal/csvio"
	"fjacquet/ine-csv/internal/dataset"
	"fjacquet/ine-csv/internal/export"
	"fjacquet/ine-csv/internal/ine"
	"fjacquet/ine-csv/internal/logging"
	"fjacquet/ine-csv/internal/metrics"
	"fjacquet/ine-csv/internal/pipeline"
	"fjacquet/ine-csv/internal/region"
	"fjacquet/ine-csv/internal/report"
)

// Container holds all application dependencies and provides methods to access them.
//
// Container is immutable after creation - all fields are private and can only
// be accessed through getter methods.
type Container struct {
	logger   logging.Logger
	config   *config.Config
	client   *ine.Client
	store    *csvio.Store
	datasets *dataset.Registry
	regions  *region.Normalizer
	metrics  *metrics.Metrics
	reports  *report.Generator
	exporter *export.Exporter
}

// NewContainer creates and wires all application dependencies.
// The logger is built from the log section of cfg.
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	return NewContainerWithLogger(cfg, logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format))
}

// NewContainerWithLogger wires dependencies around an existing logger.
func NewContainerWithLogger(cfg *config.Config, logger logging.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}

	datasets, err := loadDatasets(cfg.Datasets.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset catalogue: %w", err)
	}
	regions, err := loadRegions(cfg.Regions.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load region table: %w", err)
	}

	store := csvio.NewStore(cfg.CSV.DelimiterRune(), logger)

	logger.Debug("Container initialized",
		logging.F("datasets_count", len(datasets.Names())),
		logging.F("regions_count", len(regions.Canonical())),
		logging.F("strict_regions", cfg.Processing.StrictRegions))

	return &Container{
		logger:   logger,
		config:   cfg,
		client:   ine.NewClient(cfg.INE.BaseURL, cfg.INE.Language, cfg.INE.Timeout(), logger),
		store:    store,
		datasets: datasets,
		regions:  regions,
		metrics:  metrics.New(),
		reports:  report.NewGenerator(logger),
		exporter: export.NewExporter(store, logger),
	}, nil
}

func loadDatasets(file string) (*dataset.Registry, error) {
	if file != "" {
		return dataset.LoadFile(file)
	}
	return dataset.Default()
}

func loadRegions(file string) (*region.Normalizer, error) {
	if file != "" {
		return region.LoadFile(file)
	}
	return region.Default()
}

// NewRunner builds a pipeline runner over the configured directories.
// Metrics are recorded unless opts supply another recorder.
func (c *Container) NewRunner(opts ...pipeline.Option) *pipeline.Runner {
	fetcher := pipeline.NewFetcher(c.client, c.store, c.config.Paths.ExtractionDir, c.logger)
	transformer := pipeline.NewTransformer(
		c.store,
		c.regions,
		c.config.Paths.ExtractionDir,
		c.config.Paths.ProcessedDir,
		c.config.Processing.StrictRegions,
		c.logger,
	)
	all := append([]pipeline.Option{pipeline.WithRecorder(c.metrics)}, opts...)
	return pipeline.NewRunner(fetcher, transformer, c.logger, all...)
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetClient returns the API client.
func (c *Container) GetClient() *ine.Client {
	return c.client
}

// GetStore returns the CSV store.
func (c *Container) GetStore() *csvio.Store {
	return c.store
}

// GetDatasets returns the dataset catalogue.
func (c *Container) GetDatasets() *dataset.Registry {
	return c.datasets
}

// GetRegions returns the region normalizer.
func (c *Container) GetRegions() *region.Normalizer {
	return c.regions
}

// GetMetrics returns the run metrics.
func (c *Container) GetMetrics() *metrics.Metrics {
	return c.metrics
}

// GetReportGenerator returns the run report generator.
func (c *Container) GetReportGenerator() *report.Generator {
	return c.reports
}

// GetExporter returns the workbook exporter.
func (c *Container) GetExporter() *export.Exporter {
	return c.exporter
}

// Close performs cleanup of container resources.
func (c *Container) Close() error {
	c.logger.Debug("Container closed")
	return nil
}
