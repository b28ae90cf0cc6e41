package pipeline

import (
	"errors"
	"testing"

	"fjacquet/ine-csv/internal/dataset"
	"fjacquet/ine-csv/internal/etlerror"
	"fjacquet/ine-csv/internal/ine"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func mustDataset(t *testing.T, name string) *dataset.Dataset {
	t.Helper()
	reg, err := dataset.Default()
	require.NoError(t, err)
	d, err := reg.Get(name)
	require.NoError(t, err)
	return d
}

func TestFlatten_FiltersAndNulls(t *testing.T) {
	d := mustDataset(t, "divorcios_por_tipo")
	series := []ine.Series{
		{COD: "N", Nombre: "Total Nacional. Total. Divorcios. Total", Data: []ine.DataPoint{{Anyo: 2020, Valor: value("100")}}},
		{COD: "A", Nombre: "Total. Andalucía. Divorcios. Total", Data: []ine.DataPoint{
			{Anyo: 2020, Valor: value("10")},
			{Anyo: 2021},
		}},
	}

	obs, st, err := Flatten(d, series, "src")
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, "A", obs[0].SeriesID)
	assert.Equal(t, 2020, obs[0].Year)
	assert.Equal(t, "", obs[0].Quarter)
	assert.Equal(t, FetchStats{URL: "src", SeriesSeen: 2, SeriesKept: 1, NullValues: 1, Observations: 1}, st)
}

func TestFlatten_YearFromNombrePeriodo(t *testing.T) {
	d := mustDataset(t, "parejas_por_nacionalidad_y_tipo_union")
	series := []ine.Series{{COD: "P", Nombre: "Total. Galicia. Pareja casada. Ambos españoles", Data: []ine.DataPoint{
		{NombrePeriodo: "2019", Valor: value("3")},
		{Anyo: 1999, NombrePeriodo: "2020", Valor: value("4")},
	}}}

	obs, _, err := Flatten(d, series, "src")
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, 2019, obs[0].Year)
	assert.Equal(t, 2020, obs[1].Year)

	bad := []ine.Series{{COD: "P", Nombre: "Total. Galicia. x. y", Data: []ine.DataPoint{{NombrePeriodo: "n/a", Valor: value("3")}}}}
	_, _, err = Flatten(d, bad, "src")
	var pe *etlerror.ParseError
	assert.True(t, errors.As(err, &pe))
}

func TestFlatten_Quarters(t *testing.T) {
	d := mustDataset(t, "tasas_empleo_por_nacionalidad_sexo_ccaa")
	series := []ine.Series{{COD: "E", Nombre: "Tasa de empleo de la población. Mujeres. Galicia. Total", Data: []ine.DataPoint{
		{Anyo: 2023, Periodo: ine.Periodo{Codigo: "I", Nombre: "T1"}, Valor: value("50")},
		{Anyo: 2023, NombrePeriodo: "2023T2", Periodo: ine.Periodo{ID: 20}, Valor: value("51")},
	}}}

	obs, _, err := Flatten(d, series, "src")
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, "T1", obs[0].Quarter)
	assert.Equal(t, "T2", obs[1].Quarter)
}

func TestFlatten_NoData(t *testing.T) {
	d := mustDataset(t, "salarios_medias_percentiles")
	series := []ine.Series{{COD: "S", Nombre: "Ambos sexos. Galicia. Salario. Media", Data: []ine.DataPoint{{Anyo: 2020, Valor: value("1")}}}}

	_, st, err := Flatten(d, series, "src")
	require.Error(t, err)
	assert.True(t, errors.Is(err, etlerror.ErrNoData))

	var fe *etlerror.FetchError
	assert.True(t, errors.As(err, &fe))
	assert.Equal(t, 0, st.SeriesKept)
}
