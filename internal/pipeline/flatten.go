// Package pipeline runs the fetch and process stages for catalogued datasets.
package pipeline

import (
	"fmt"
	"regexp"
	"strconv"

	"fjacquet/ine-csv/internal/dataset"
	"fjacquet/ine-csv/internal/etlerror"
	"fjacquet/ine-csv/internal/ine"
	"fjacquet/ine-csv/internal/models"
)

var (
	leadingYear   = regexp.MustCompile(`^\s*(\d{4})`)
	quarterName   = regexp.MustCompile(`^T[1-4]$`)
	quarterSuffix = regexp.MustCompile(`(T[1-4])\s*$`)
)

// Flatten turns the series of a response into raw observations, applying
// the dataset's series filter and dropping null values. source names the
// response in errors.
func Flatten(d *dataset.Dataset, series []ine.Series, source string) ([]models.RawObservation, FetchStats, error) {
	st := FetchStats{URL: source, SeriesSeen: len(series)}
	var out []models.RawObservation

	for _, s := range series {
		if !d.Filter.Keep(s.Nombre) {
			continue
		}
		st.SeriesKept++

		for i, p := range s.Data {
			if !p.Valor.Valid {
				st.NullValues++
				continue
			}
			year, err := pointYear(d.YearSource, p)
			if err != nil {
				return nil, st, &etlerror.ParseError{
					Source: source,
					Reason: fmt.Sprintf("series %s point %d", s.COD, i),
					Err:    err,
				}
			}
			obs := models.RawObservation{
				SeriesID:   s.COD,
				SeriesName: s.Nombre,
				Year:       year,
				Value:      p.Valor.Decimal,
			}
			if d.CaptureQuarter {
				obs.Quarter = pointQuarter(p)
			}
			out = append(out, obs)
		}
	}

	st.Observations = len(out)
	if len(out) == 0 {
		return nil, st, &etlerror.FetchError{URL: source, Err: etlerror.ErrNoData}
	}
	return out, st, nil
}

func pointYear(source string, p ine.DataPoint) (int, error) {
	if source == dataset.YearFromAnyo && p.Anyo > 0 {
		return p.Anyo, nil
	}
	m := leadingYear.FindStringSubmatch(p.NombrePeriodo)
	if m == nil {
		if p.Anyo > 0 {
			return p.Anyo, nil
		}
		return 0, fmt.Errorf("no year in NombrePeriodo %q", p.NombrePeriodo)
	}
	return strconv.Atoi(m[1])
}

func pointQuarter(p ine.DataPoint) string {
	if quarterName.MatchString(p.Periodo.Nombre) {
		return p.Periodo.Nombre
	}
	if m := quarterSuffix.FindStringSubmatch(p.NombrePeriodo); m != nil {
		return m[1]
	}
	return p.Periodo.Nombre
}
