// Package metrics exposes run outcomes as Prometheus metrics written to a
// node_exporter textfile.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ine_csv"

// Metrics holds the counters and gauges of one run on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	SeriesKept        *prometheus.CounterVec
	Observations      *prometheus.CounterVec
	RowsRead          *prometheus.CounterVec
	LabelMismatches   *prometheus.CounterVec
	NationalExcluded  *prometheus.CounterVec
	UnknownRegionRows *prometheus.CounterVec
	PartialGroups     *prometheus.CounterVec
	RecordsWritten    *prometheus.CounterVec
	Failures          *prometheus.CounterVec
	StageDuration     *prometheus.GaugeVec
	LastSuccess       *prometheus.GaugeVec

	now func() time.Time
}

// New creates Metrics registered on a fresh registry, so several instances
// can coexist in tests.
func New() *Metrics {
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	}

	m := &Metrics{
		registry:          prometheus.NewRegistry(),
		SeriesKept:        counter("series_kept_total", "Series kept after filtering.", "dataset"),
		Observations:      counter("observations_total", "Raw observations written to the intermediate file.", "dataset"),
		RowsRead:          counter("rows_read_total", "Intermediate rows read by the process stage.", "dataset"),
		LabelMismatches:   counter("label_mismatches_total", "Rows excluded because their label did not match the grammar.", "dataset"),
		NationalExcluded:  counter("national_rows_excluded_total", "Rows excluded as national aggregates.", "dataset"),
		UnknownRegionRows: counter("unknown_region_rows_total", "Rows excluded because their region is not mapped.", "dataset"),
		PartialGroups:     counter("partial_groups_total", "Aggregation groups with fewer values than expected.", "dataset"),
		RecordsWritten:    counter("records_written_total", "Records written to the processed file.", "dataset"),
		Failures:          counter("failures_total", "Dataset stage failures.", "dataset", "stage"),
		StageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of the last successful stage run.",
		}, []string{"dataset", "stage"}),
		LastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful stage run.",
		}, []string{"dataset", "stage"}),
		now: time.Now,
	}

	m.registry.MustRegister(
		m.SeriesKept,
		m.Observations,
		m.RowsRead,
		m.LabelMismatches,
		m.NationalExcluded,
		m.UnknownRegionRows,
		m.PartialGroups,
		m.RecordsWritten,
		m.Failures,
		m.StageDuration,
		m.LastSuccess,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordFetch records a successful fetch.
func (m *Metrics) RecordFetch(dataset string, seriesKept, observations int, duration time.Duration) {
	m.SeriesKept.WithLabelValues(dataset).Add(float64(seriesKept))
	m.Observations.WithLabelValues(dataset).Add(float64(observations))
	m.success(dataset, "fetch", duration)
}

// RecordTransform records a successful process stage.
func (m *Metrics) RecordTransform(dataset string, rowsRead, mismatches, nationalExcluded, unknownRows, partialGroups, written int, duration time.Duration) {
	m.RowsRead.WithLabelValues(dataset).Add(float64(rowsRead))
	m.LabelMismatches.WithLabelValues(dataset).Add(float64(mismatches))
	m.NationalExcluded.WithLabelValues(dataset).Add(float64(nationalExcluded))
	m.UnknownRegionRows.WithLabelValues(dataset).Add(float64(unknownRows))
	m.PartialGroups.WithLabelValues(dataset).Add(float64(partialGroups))
	m.RecordsWritten.WithLabelValues(dataset).Add(float64(written))
	m.success(dataset, "process", duration)
}

// RecordFailure counts a failed stage.
func (m *Metrics) RecordFailure(dataset, stage string) {
	m.Failures.WithLabelValues(dataset, stage).Inc()
}

func (m *Metrics) success(dataset, stage string, duration time.Duration) {
	m.StageDuration.WithLabelValues(dataset, stage).Set(duration.Seconds())
	m.LastSuccess.WithLabelValues(dataset, stage).Set(float64(m.now().Unix()))
}

// WriteTextfile writes every metric in text exposition format. The file is
// replaced atomically, as the textfile collector expects.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("error writing metrics file: %w", err)
	}
	return nil
}
