package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fjacquet/ine-csv/internal/dataset"
	"fjacquet/ine-csv/internal/logging"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Recorder receives per-dataset outcomes, typically to export metrics.
type Recorder interface {
	RecordFetch(dataset string, seriesKept, observations int, duration time.Duration)
	RecordTransform(dataset string, rowsRead, mismatches, nationalExcluded, unknownRows, partialGroups, written int, duration time.Duration)
	RecordFailure(dataset string, stage string)
}

type nopRecorder struct{}

func (nopRecorder) RecordFetch(string, int, int, time.Duration) {}
func (nopRecorder) RecordTransform(string, int, int, int, int, int, int, time.Duration) {}
func (nopRecorder) RecordFailure(string, string) {}

// Runner executes stages over a list of datasets, one at a time.
type Runner struct {
	fetcher     *Fetcher
	transformer *Transformer
	clock       clockwork.Clock
	recorder    Recorder
	runID       string
	logger      logging.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock sets the time source for the runner and its stages.
func WithClock(c clockwork.Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithRecorder sets where outcomes are reported.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithRunID fixes the run id instead of generating one.
func WithRunID(id string) Option {
	return func(r *Runner) { r.runID = id }
}

// NewRunner wires the stages. Either stage may be nil when the caller never
// requests it.
func NewRunner(fetcher *Fetcher, transformer *Transformer, logger logging.Logger, opts ...Option) *Runner {
	r := &Runner{
		fetcher:     fetcher,
		transformer: transformer,
		clock:       clockwork.NewRealClock(),
		recorder:    nopRecorder{},
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.runID == "" {
		r.runID = uuid.NewString()
	}
	if r.fetcher != nil {
		r.fetcher.SetClock(r.clock)
	}
	if r.transformer != nil {
		r.transformer.SetClock(r.clock)
	}
	return r
}

// RunID identifies this runner's invocation in logs and reports.
func (r *Runner) RunID() string {
	return r.runID
}

// Run executes stages for every dataset. A failing dataset skips its later
// stages but does not stop the others; the returned error joins every
// failure. Cancellation stops the run before the next dataset.
func (r *Runner) Run(ctx context.Context, datasets []*dataset.Dataset, stages ...Stage) (*RunSummary, error) {
	if len(stages) == 0 {
		stages = []Stage{StageFetch, StageProcess}
	}
	for _, s := range stages {
		if err := r.checkStage(s); err != nil {
			return nil, err
		}
	}

	log := r.logger.WithField(logging.FieldRunID, r.runID)
	summary := &RunSummary{RunID: r.runID, StartedAt: r.clock.Now().UTC(), Stages: stages}
	log.Info("Starting run",
		logging.F(logging.FieldCount, len(datasets)),
		logging.F(logging.FieldStage, stages))

	var errs []error
	for _, d := range datasets {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		ds := r.runDataset(ctx, log, d, stages)
		summary.Datasets = append(summary.Datasets, ds.summary)
		if ds.err != nil {
			summary.Failed++
			errs = append(errs, fmt.Errorf("%s: %w", d.Name, ds.err))
		}
	}

	summary.FinishedAt = r.clock.Now().UTC()
	summary.DurationMS = millis(summary.FinishedAt.Sub(summary.StartedAt))
	log.Info("Run finished",
		logging.F(logging.FieldCount, len(summary.Datasets)),
		logging.F("failed", summary.Failed),
		logging.F(logging.FieldDuration, summary.DurationMS))

	return summary, errors.Join(errs...)
}

type datasetOutcome struct {
	summary DatasetSummary
	err     error
}

func (r *Runner) runDataset(ctx context.Context, log logging.Logger, d *dataset.Dataset, stages []Stage) datasetOutcome {
	start := r.clock.Now()
	out := datasetOutcome{summary: DatasetSummary{Dataset: d.Name}}

	for _, stage := range stages {
		var err error
		switch stage {
		case StageFetch:
			var st *FetchStats
			st, err = r.fetcher.Fetch(ctx, d)
			if err == nil {
				out.summary.Fetch = st
				r.recorder.RecordFetch(d.Name, st.SeriesKept, st.Observations, time.Duration(st.DurationMS)*time.Millisecond)
			}
		case StageProcess:
			var st *TransformStats
			st, err = r.transformer.Transform(d)
			if err == nil {
				out.summary.Transform = st
				r.recorder.RecordTransform(d.Name, st.RowsRead, st.LabelMismatches, st.NationalExcluded,
					st.UnknownRegionRows, st.PartialGroups, st.RecordsWritten, time.Duration(st.DurationMS)*time.Millisecond)
			}
		}
		if err != nil {
			out.err = err
			out.summary.FailedStage = stage
			out.summary.Error = err.Error()
			r.recorder.RecordFailure(d.Name, string(stage))
			log.WithError(err).Error("Dataset failed",
				logging.F(logging.FieldDataset, d.Name),
				logging.F(logging.FieldStage, string(stage)))
			break
		}
	}

	out.summary.DurationMS = millis(r.clock.Since(start))
	return out
}

func (r *Runner) checkStage(s Stage) error {
	switch s {
	case StageFetch:
		if r.fetcher == nil {
			return fmt.Errorf("stage %s requested without a fetcher", s)
		}
	case StageProcess:
		if r.transformer == nil {
			return fmt.Errorf("stage %s requested without a transformer", s)
		}
	default:
		return fmt.Errorf("unknown stage %q", s)
	}
	return nil
}
