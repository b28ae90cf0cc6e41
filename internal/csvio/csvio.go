// Package csvio reads and writes the intermediate and processed CSV files.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"fjacquet/ine-csv/internal/etlerror"
	"fjacquet/ine-csv/internal/fileutils"
	"fjacquet/ine-csv/internal/logging"
	"fjacquet/ine-csv/internal/models"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

const filePerm = 0644

// observationRow is the intermediate file layout for annual datasets.
type observationRow struct {
	SeriesID   string `csv:"series_id"`
	SeriesName string `csv:"series_name"`
	Year       int    `csv:"year"`
	Value      string `csv:"value"`
}

// quarterObservationRow adds the sub-annual period column.
type quarterObservationRow struct {
	SeriesID   string `csv:"series_id"`
	SeriesName string `csv:"series_name"`
	Year       int    `csv:"year"`
	Value      string `csv:"value"`
	Quarter    string `csv:"quarter"`
}

// Table is a header plus string rows, the shape of a processed file.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the index of name in the header, or -1.
func (t Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Store reads and writes CSV files with a fixed delimiter.
type Store struct {
	delimiter rune
	logger    logging.Logger
}

// NewStore creates a Store. A zero delimiter means comma.
func NewStore(delimiter rune, logger logging.Logger) *Store {
	if delimiter == 0 {
		delimiter = ','
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Store{delimiter: delimiter, logger: logger}
}

// Delimiter returns the configured field separator.
func (s *Store) Delimiter() rune {
	return s.delimiter
}

func (s *Store) newWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = s.delimiter
	return cw
}

func (s *Store) newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = s.delimiter
	return cr
}

// WriteObservations replaces the intermediate file at path. The quarter
// column is written only when withQuarter is set.
func (s *Store) WriteObservations(path string, observations []models.RawObservation, withQuarter bool) error {
	s.logger.Info("Writing raw observations",
		logging.F(logging.FieldOutputFile, path),
		logging.F(logging.FieldCount, len(observations)))

	var rows interface{}
	if withQuarter {
		out := make([]quarterObservationRow, len(observations))
		for i, o := range observations {
			out[i] = quarterObservationRow{o.SeriesID, o.SeriesName, o.Year, o.Value.String(), o.Quarter}
		}
		rows = &out
	} else {
		out := make([]observationRow, len(observations))
		for i, o := range observations {
			out[i] = observationRow{o.SeriesID, o.SeriesName, o.Year, o.Value.String()}
		}
		rows = &out
	}

	err := fileutils.WriteAtomic(path, filePerm, func(w io.Writer) error {
		return gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(s.newWriter(w)))
	})
	if err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	return nil
}

// ReadObservations loads an intermediate file. A missing file yields a
// MissingInputFileError, a malformed one a ParseError.
func (s *Store) ReadObservations(path string) ([]models.RawObservation, error) {
	s.logger.Debug("Reading raw observations", logging.F(logging.FieldInputFile, path))

	file, err := open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			s.logger.WithError(err).Warn("Failed to close file")
		}
	}()

	var rows []quarterObservationRow
	if err := gocsv.UnmarshalCSV(s.newReader(file), &rows); err != nil {
		return nil, &etlerror.ParseError{Source: path, Reason: "malformed intermediate file", Err: err}
	}

	observations := make([]models.RawObservation, 0, len(rows))
	for i, r := range rows {
		value, err := decimal.NewFromString(r.Value)
		if err != nil {
			return nil, &etlerror.ParseError{Source: path, Reason: fmt.Sprintf("row %d: invalid value %q", i+2, r.Value), Err: err}
		}
		observations = append(observations, models.RawObservation{
			SeriesID:   r.SeriesID,
			SeriesName: r.SeriesName,
			Year:       r.Year,
			Value:      value,
			Quarter:    r.Quarter,
		})
	}

	s.logger.Debug("Read raw observations", logging.F(logging.FieldCount, len(observations)))
	return observations, nil
}

// WriteTable replaces the file at path with header and rows.
func (s *Store) WriteTable(path string, table Table) error {
	s.logger.Info("Writing processed records",
		logging.F(logging.FieldOutputFile, path),
		logging.F(logging.FieldCount, len(table.Rows)))

	err := fileutils.WriteAtomic(path, filePerm, func(w io.Writer) error {
		writer := gocsv.NewSafeCSVWriter(s.newWriter(w))
		if err := writer.Write(table.Header); err != nil {
			return err
		}
		for _, row := range table.Rows {
			if err := writer.Write(row); err != nil {
				return err
			}
		}
		writer.Flush()
		return writer.Error()
	})
	if err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	return nil
}

// ReadTable loads a processed file.
func (s *Store) ReadTable(path string) (Table, error) {
	file, err := open(path)
	if err != nil {
		return Table{}, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			s.logger.WithError(err).Warn("Failed to close file")
		}
	}()

	records, err := s.newReader(file).ReadAll()
	if err != nil {
		return Table{}, &etlerror.ParseError{Source: path, Reason: "malformed CSV", Err: err}
	}
	if len(records) == 0 {
		return Table{}, &etlerror.ParseError{Source: path, Reason: "file has no header"}
	}
	return Table{Header: records[0], Rows: records[1:]}, nil
}

func open(path string) (*os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &etlerror.MissingInputFileError{Path: path, Err: err}
		}
		return nil, fmt.Errorf("error opening %s: %w", path, err)
	}
	return file, nil
}
