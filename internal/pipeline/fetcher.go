package pipeline

import (
	"context"
	"path/filepath"

	"fjacquet/ine-csv/internal/csvio"
	"fjacquet/ine-csv/internal/dataset"
	"fjacquet/ine-csv/internal/ine"
	"fjacquet/ine-csv/internal/logging"

	"github.com/jonboulle/clockwork"
)

// SeriesSource is the part of the API client the fetcher needs.
type SeriesSource interface {
	URL(fn ine.Function, input string, params ine.Params) (string, error)
	FetchSeries(ctx context.Context, fn ine.Function, input string, params ine.Params) ([]ine.Series, error)
}

// Fetcher downloads a dataset and writes its intermediate file.
type Fetcher struct {
	source SeriesSource
	store  *csvio.Store
	dir    string
	clock  clockwork.Clock
	logger logging.Logger
}

// NewFetcher creates a Fetcher writing into dir.
func NewFetcher(source SeriesSource, store *csvio.Store, dir string, logger logging.Logger) *Fetcher {
	return &Fetcher{
		source: source,
		store:  store,
		dir:    dir,
		clock:  clockwork.NewRealClock(),
		logger: logger,
	}
}

// SetClock swaps the time source used for durations.
func (f *Fetcher) SetClock(c clockwork.Clock) {
	f.clock = c
}

// OutputPath returns where the intermediate file of d is written.
func (f *Fetcher) OutputPath(d *dataset.Dataset) string {
	return filepath.Join(f.dir, d.ExtractionFile())
}

// Fetch performs the single request for d, flattens the response and
// replaces the intermediate file. Nothing is written unless the whole
// response parsed.
func (f *Fetcher) Fetch(ctx context.Context, d *dataset.Dataset) (*FetchStats, error) {
	start := f.clock.Now()
	log := f.logger.WithFields(
		logging.F(logging.FieldDataset, d.Name),
		logging.F(logging.FieldTableID, d.Input),
		logging.F(logging.FieldStage, string(StageFetch)),
	)

	source, err := f.source.URL(d.Function, d.Input, d.Params)
	if err != nil {
		return nil, err
	}
	log.Info("Downloading table", logging.F(logging.FieldURL, source))

	series, err := f.source.FetchSeries(ctx, d.Function, d.Input, d.Params)
	if err != nil {
		return nil, err
	}

	observations, st, err := Flatten(d, series, source)
	if err != nil {
		return nil, err
	}

	st.OutputFile = f.OutputPath(d)
	if err := f.store.WriteObservations(st.OutputFile, observations, d.CaptureQuarter); err != nil {
		return nil, err
	}

	st.DurationMS = millis(f.clock.Since(start))
	log.Info("Fetched table",
		logging.F("series_seen", st.SeriesSeen),
		logging.F("series_kept", st.SeriesKept),
		logging.F(logging.FieldCount, st.Observations),
		logging.F(logging.FieldOutputFile, st.OutputFile),
		logging.F(logging.FieldDuration, st.DurationMS))
	return &st, nil
}
