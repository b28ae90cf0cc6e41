package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fjacquet/ine-csv/internal/aggregate"
	"fjacquet/ine-csv/internal/etlerror"
	"fjacquet/ine-csv/internal/ine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Catalogue(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"delitos_familia_sexualidad",
		"divorcios_por_tipo",
		"parejas_por_nacionalidad_y_tipo_union",
		"riesgo_pobreza_exclusion_social",
		"salarios_medias_percentiles",
		"tasas_empleo_por_nacionalidad_sexo_ccaa",
	}, r.Names())

	for _, name := range r.Names() {
		d, err := r.Get(name)
		require.NoError(t, err)
		assert.Equal(t, ine.DatosTabla, d.Function, name)
		assert.Equal(t, "A", d.Params.Tip, name)
		require.NotNil(t, d.Params.Det, name)
		assert.Equal(t, 2, *d.Params.Det, name)
		assert.NotNil(t, d.Parser(), name)
	}
}

func TestDefault_DatasetShapes(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)

	tests := []struct {
		name   string
		header []string
		file   string
	}{
		{"divorcios_por_tipo", []string{"year", "comunidad_autonoma", "tipo_divorcio", "numero_divorcios"}, "ine_divorcios_por_tipo"},
		{"parejas_por_nacionalidad_y_tipo_union", []string{"year", "comunidad_autonoma", "tipo_union", "nacionalidad", "numero_parejas"}, "ine_parejas_por_nacionalidad_y_tipo_union"},
		{"delitos_familia_sexualidad", []string{"year", "comunidad_autonoma", "tipo_delito", "numero_delitos"}, "ine_delitos_familia_sexualidad"},
		{"salarios_medias_percentiles", []string{"year", "comunidad_autonoma", "sexo", "medida", "value"}, "ine_salarios_medias_percentiles"},
		{"tasas_empleo_por_nacionalidad_sexo_ccaa", []string{"year", "comunidad_autonoma", "genero", "tasa_promedio_empleo"}, "ine_tasas_empleo_por_nacionalidad_sexo_ccaa"},
		{"riesgo_pobreza_exclusion_social", []string{"year", "comunidad_autonoma", "tasa_arope"}, "ine_riesgo_pobreza_exclusion_social"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := r.Get(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.header, d.Header())
			assert.Equal(t, tt.file+".csv", d.ExtractionFile())
			assert.Equal(t, tt.file+"_processed.csv", d.ProcessedFile())
		})
	}
}

func TestDefault_EmploymentAggregation(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)

	d, err := r.Get("tasas_empleo_por_nacionalidad_sexo_ccaa")
	require.NoError(t, err)
	require.NotNil(t, d.Aggregation)
	assert.Equal(t, aggregate.OverQuarter, d.Aggregation.Over)
	assert.Equal(t, 4, d.Aggregation.Expected)
	assert.Equal(t, int32(2), d.Aggregation.Round)
	assert.True(t, d.CaptureQuarter)

	attrs, ok := d.Parser().Parse("Tasa de empleo de la población. Hombres. Andalucía. Total. ")
	require.True(t, ok)
	assert.Equal(t, "Hombres", attrs["genero"])
	assert.Equal(t, "Andalucía", attrs["comunidad_autonoma"])
}

func TestRegistry_GetUnknown(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)

	_, err = r.Get("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, etlerror.ErrUnknownDataset))

	_, err = r.Select([]string{"divorcios_por_tipo", "nope"})
	assert.True(t, errors.Is(err, etlerror.ErrUnknownDataset))
}

func TestRegistry_Select(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)

	all, err := r.Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, 6)

	some, err := r.Select([]string{"riesgo_pobreza_exclusion_social", "divorcios_por_tipo"})
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, "riesgo_pobreza_exclusion_social", some[0].Name)
}

func TestSeriesFilter_Keep(t *testing.T) {
	salaries := SeriesFilter{
		IncludePrefixes: []string{"Mujeres.", "Hombres."},
		IncludeContains: []string{"Media", "25"},
	}
	employment := SeriesFilter{ExcludeContains: []string{"Española", "Extranjera:"}}

	tests := []struct {
		name     string
		filter   SeriesFilter
		series   string
		expected bool
	}{
		{"prefix and contains", salaries, "Mujeres. Galicia. Salario. Media", true},
		{"wrong prefix", salaries, "Ambos sexos. Galicia. Salario. Media", false},
		{"missing measure", salaries, "Mujeres. Galicia. Salario. 90", false},
		{"national total", salaries, "Mujeres. Total Nacional. Salario. Media", false},
		{"excluded", employment, "Tasa. Hombres. Galicia. Española", false},
		{"accepted", employment, "Tasa. Hombres. Galicia. Total", true},
		{"empty filter", SeriesFilter{}, "anything", true},
		{"empty filter national", SeriesFilter{}, "Total Nacional. Total", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.filter.Keep(tt.series))
		})
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "datasets: []"},
		{"no name", "datasets:\n  - input: \"1\"\n    grammar: {fields: [comunidad_autonoma]}\n"},
		{"no input", "datasets:\n  - name: a\n    grammar: {fields: [comunidad_autonoma]}\n"},
		{"no region", "datasets:\n  - name: a\n    input: \"1\"\n    grammar: {fields: [sexo]}\n"},
		{"bad year source", "datasets:\n  - name: a\n    input: \"1\"\n    year_source: fecha\n    grammar: {fields: [comunidad_autonoma]}\n"},
		{"bad params", "datasets:\n  - name: a\n    input: \"1\"\n    params: {det: 7}\n    grammar: {fields: [comunidad_autonoma]}\n"},
		{"non series function", "datasets:\n  - name: a\n    function: PERIODICIDADES\n    input: \"1\"\n    grammar: {fields: [comunidad_autonoma]}\n"},
		{"quarter without capture", "datasets:\n  - name: a\n    input: \"1\"\n    grammar: {fields: [comunidad_autonoma]}\n    aggregation: {over: quarter, method: mean, expected: 4, round: 2}\n"},
		{"duplicate", "datasets:\n  - name: a\n    input: \"1\"\n    grammar: {fields: [comunidad_autonoma]}\n  - name: a\n    input: \"2\"\n    grammar: {fields: [comunidad_autonoma]}\n"},
		{"same file", "datasets:\n  - name: a\n    file: x\n    input: \"1\"\n    grammar: {fields: [comunidad_autonoma]}\n  - name: b\n    file: x\n    input: \"2\"\n    grammar: {fields: [comunidad_autonoma]}\n"},
		{"column collision", "datasets:\n  - name: a\n    input: \"1\"\n    grammar: {fields: [comunidad_autonoma, year]}\n"},
		{"malformed", "datasets: ["},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datasets.yaml")
	content := "datasets:\n  - name: custom\n    input: \"999\"\n    grammar: {fields: [comunidad_autonoma]}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	r, err := LoadFile(path)
	require.NoError(t, err)

	d, err := r.Get("custom")
	require.NoError(t, err)
	assert.Equal(t, ine.DatosTabla, d.Function)
	assert.Equal(t, YearFromAnyo, d.YearSource)
	assert.Equal(t, "value", d.ValueColumn)
	assert.Equal(t, "ine_custom.csv", d.ExtractionFile())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefault_ParejasLabelForms(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)
	d, err := r.Get("parejas_por_nacionalidad_y_tipo_union")
	require.NoError(t, err)

	tests := map[string][3]string{
		"Total. Andalucía. Pareja casada. Ambos españoles":     {"Andalucía", "Pareja casada", "Ambos españoles"},
		"Andalucía, Total (Parejas), Total (Parejas)":          {"Andalucía", "Total (Parejas)", "Total (Parejas)"},
		"Madrid, Comunidad de, Pareja casada, Ambos españoles": {"Madrid, Comunidad de", "Pareja casada", "Ambos españoles"},
	}
	for label, want := range tests {
		attrs, ok := d.Parser().Parse(label)
		require.True(t, ok, label)
		assert.Equal(t, want[0], attrs["comunidad_autonoma"], label)
		assert.Equal(t, want[1], attrs["tipo_union"], label)
		assert.Equal(t, want[2], attrs["nacionalidad"], label)
	}
}
