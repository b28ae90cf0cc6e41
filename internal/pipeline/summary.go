package pipeline

import (
	"time"

	"fjacquet/ine-csv/internal/models"

	"github.com/montanaflynn/stats"
)

// Stage names a pipeline step.
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageProcess Stage = "process"
)

// maxMismatchSamples caps how many unparsed labels a summary keeps.
const maxMismatchSamples = 5

// FetchStats describes one fetch of one dataset.
type FetchStats struct {
	URL          string `json:"url" yaml:"url"`
	SeriesSeen   int    `json:"series_seen" yaml:"series_seen"`
	SeriesKept   int    `json:"series_kept" yaml:"series_kept"`
	NullValues   int    `json:"null_values" yaml:"null_values"`
	Observations int    `json:"observations" yaml:"observations"`
	OutputFile   string `json:"output_file" yaml:"output_file"`
	DurationMS   int64  `json:"duration_ms" yaml:"duration_ms"`
}

// TransformStats describes one processing of one dataset.
type TransformStats struct {
	InputFile         string      `json:"input_file" yaml:"input_file"`
	OutputFile        string      `json:"output_file" yaml:"output_file"`
	RowsRead          int         `json:"rows_read" yaml:"rows_read"`
	LabelMismatches   int         `json:"label_mismatches" yaml:"label_mismatches"`
	MismatchSamples   []string    `json:"mismatch_samples,omitempty" yaml:"mismatch_samples,omitempty"`
	NationalExcluded  int         `json:"national_excluded" yaml:"national_excluded"`
	UnknownRegions    []string    `json:"unknown_regions,omitempty" yaml:"unknown_regions,omitempty"`
	UnknownRegionRows int         `json:"unknown_region_rows" yaml:"unknown_region_rows"`
	PartialGroups     int         `json:"partial_groups" yaml:"partial_groups"`
	RecordsWritten    int         `json:"records_written" yaml:"records_written"`
	LatestYear        int         `json:"latest_year,omitempty" yaml:"latest_year,omitempty"`
	Latest            *ValueStats `json:"latest,omitempty" yaml:"latest,omitempty"`
	DurationMS        int64       `json:"duration_ms" yaml:"duration_ms"`
}

// ValueStats summarizes the values of one year.
type ValueStats struct {
	Count int     `json:"count" yaml:"count"`
	Min   float64 `json:"min" yaml:"min"`
	Max   float64 `json:"max" yaml:"max"`
	Mean  float64 `json:"mean" yaml:"mean"`
}

// DatasetSummary is the outcome of all stages for one dataset.
type DatasetSummary struct {
	Dataset     string          `json:"dataset" yaml:"dataset"`
	Fetch       *FetchStats     `json:"fetch,omitempty" yaml:"fetch,omitempty"`
	Transform   *TransformStats `json:"transform,omitempty" yaml:"transform,omitempty"`
	FailedStage Stage           `json:"failed_stage,omitempty" yaml:"failed_stage,omitempty"`
	Error       string          `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMS  int64           `json:"duration_ms" yaml:"duration_ms"`
}

// Succeeded reports whether every requested stage completed.
func (s DatasetSummary) Succeeded() bool {
	return s.Error == ""
}

// RunSummary collects the outcome of one CLI invocation.
type RunSummary struct {
	RunID      string           `json:"run_id" yaml:"run_id"`
	StartedAt  time.Time        `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time        `json:"finished_at" yaml:"finished_at"`
	DurationMS int64            `json:"duration_ms" yaml:"duration_ms"`
	Stages     []Stage          `json:"stages" yaml:"stages"`
	Datasets   []DatasetSummary `json:"datasets" yaml:"datasets"`
	Failed     int              `json:"failed" yaml:"failed"`
}

// latestYearStats returns the most recent year and its value statistics.
func latestYearStats(records []models.ProcessedRecord) (int, *ValueStats) {
	if len(records) == 0 {
		return 0, nil
	}
	latest := records[0].Year
	for _, r := range records {
		if r.Year > latest {
			latest = r.Year
		}
	}

	var data stats.Float64Data
	for _, r := range records {
		if r.Year == latest {
			data = append(data, r.Value.InexactFloat64())
		}
	}
	return latest, describe(data)
}

func describe(data stats.Float64Data) *ValueStats {
	min, err := data.Min()
	if err != nil {
		return nil
	}
	max, _ := data.Max()
	mean, _ := data.Mean()
	mean, _ = stats.Round(mean, 2)
	return &ValueStats{Count: data.Len(), Min: min, Max: max, Mean: mean}
}

func millis(d time.Duration) int64 {
	return d.Milliseconds()
}
