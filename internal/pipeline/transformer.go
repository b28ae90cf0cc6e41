package pipeline

import (
	"path/filepath"
	"sort"

	"fjacquet/ine-csv/internal/aggregate"
	"fjacquet/ine-csv/internal/csvio"
	"fjacquet/ine-csv/internal/dataset"
	"fjacquet/ine-csv/internal/etlerror"
	"fjacquet/ine-csv/internal/logging"
	"fjacquet/ine-csv/internal/models"
	"fjacquet/ine-csv/internal/region"

	"github.com/jonboulle/clockwork"
)

// Transformer turns an intermediate file into the processed file.
type Transformer struct {
	store         *csvio.Store
	regions       *region.Normalizer
	inputDir      string
	outputDir     string
	strictRegions bool
	clock         clockwork.Clock
	logger        logging.Logger
}

// NewTransformer creates a Transformer. With strictRegions an unmapped
// region name aborts the dataset; otherwise its rows are dropped and counted.
func NewTransformer(store *csvio.Store, regions *region.Normalizer, inputDir, outputDir string, strictRegions bool, logger logging.Logger) *Transformer {
	return &Transformer{
		store:         store,
		regions:       regions,
		inputDir:      inputDir,
		outputDir:     outputDir,
		strictRegions: strictRegions,
		clock:         clockwork.NewRealClock(),
		logger:        logger,
	}
}

// SetClock swaps the time source used for durations.
func (t *Transformer) SetClock(c clockwork.Clock) {
	t.clock = c
}

// InputPath returns the intermediate file of d.
func (t *Transformer) InputPath(d *dataset.Dataset) string {
	return filepath.Join(t.inputDir, d.ExtractionFile())
}

// OutputPath returns the processed file of d.
func (t *Transformer) OutputPath(d *dataset.Dataset) string {
	return filepath.Join(t.outputDir, d.ProcessedFile())
}

// Transform reads, parses, normalizes, aggregates and writes one dataset.
// The output is written only once every row has been handled.
func (t *Transformer) Transform(d *dataset.Dataset) (*TransformStats, error) {
	start := t.clock.Now()
	st := &TransformStats{InputFile: t.InputPath(d), OutputFile: t.OutputPath(d)}
	log := t.logger.WithFields(
		logging.F(logging.FieldDataset, d.Name),
		logging.F(logging.FieldStage, string(StageProcess)),
	)

	observations, err := t.store.ReadObservations(st.InputFile)
	if err != nil {
		return nil, err
	}
	st.RowsRead = len(observations)
	log.Info("Processing raw observations",
		logging.F(logging.FieldInputFile, st.InputFile),
		logging.F(logging.FieldCount, st.RowsRead))

	parser := d.Parser()
	unknown := make(map[string]bool)
	rows := make([]aggregate.Row, 0, len(observations))

	for _, obs := range observations {
		attrs, ok := parser.Parse(obs.SeriesName)
		if !ok {
			st.LabelMismatches++
			if len(st.MismatchSamples) < maxMismatchSamples && !contains(st.MismatchSamples, obs.SeriesName) {
				st.MismatchSamples = append(st.MismatchSamples, obs.SeriesName)
			}
			log.WithError(&etlerror.LabelParseMismatch{Dataset: d.Name, Label: obs.SeriesName}).
				Debug("Excluding row with unparsed label")
			continue
		}

		raw := attrs[models.RegionColumn]
		if t.regions.IsNationalAggregate(raw) {
			st.NationalExcluded++
			continue
		}
		canonical, err := t.regions.Normalize(raw)
		if err != nil {
			unknown[raw] = true
			st.UnknownRegionRows++
			continue
		}
		attrs[models.RegionColumn] = canonical

		rows = append(rows, aggregate.Row{
			Year:       obs.Year,
			Attributes: attrs,
			Value:      obs.Value,
			Period:     obs.Quarter,
		})
	}

	if len(unknown) > 0 {
		st.UnknownRegions = sortedKeys(unknown)
		if t.strictRegions {
			return nil, &etlerror.UnknownRegionError{Names: st.UnknownRegions}
		}
		log.Warn("Excluded rows with unmapped regions",
			logging.F(logging.FieldCount, st.UnknownRegionRows),
			logging.F(logging.FieldRegion, st.UnknownRegions))
	}
	if st.LabelMismatches > 0 {
		log.Warn("Excluded rows whose label did not match the grammar",
			logging.F(logging.FieldCount, st.LabelMismatches),
			logging.F(logging.FieldLabel, st.MismatchSamples))
	}

	keyColumns := d.KeyColumns()
	result, err := aggregate.Aggregate(d.Name, rows, keyColumns, d.Aggregation)
	if err != nil {
		return nil, err
	}
	st.PartialGroups = result.PartialGroups
	if st.PartialGroups > 0 {
		log.Info("Averaged incomplete groups", logging.F(logging.FieldCount, st.PartialGroups))
	}
	if len(result.Records) == 0 {
		log.Warn("No records left after processing")
	}

	table := csvio.Table{Header: d.Header(), Rows: make([][]string, 0, len(result.Records))}
	for _, rec := range result.Records {
		table.Rows = append(table.Rows, rec.Row(keyColumns))
	}
	if err := t.store.WriteTable(st.OutputFile, table); err != nil {
		return nil, err
	}

	st.RecordsWritten = len(result.Records)
	st.LatestYear, st.Latest = latestYearStats(result.Records)
	st.DurationMS = millis(t.clock.Since(start))

	log.Info("Processed dataset",
		logging.F(logging.FieldCount, st.RecordsWritten),
		logging.F(logging.FieldOutputFile, st.OutputFile),
		logging.F("label_mismatches", st.LabelMismatches),
		logging.F("national_excluded", st.NationalExcluded),
		logging.F(logging.FieldDuration, st.DurationMS))
	return st, nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
