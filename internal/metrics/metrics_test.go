package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exposition(t *testing.T, m *Metrics) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ine_csv.prom")
	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestMetrics_Record(t *testing.T) {
	m := New()
	m.now = func() time.Time { return time.Unix(1700000000, 0) }

	m.RecordFetch("divorcios_por_tipo", 20, 400, 1500*time.Millisecond)
	m.RecordTransform("divorcios_por_tipo", 400, 3, 20, 0, 0, 377, 200*time.Millisecond)
	m.RecordFailure("parejas", "fetch")
	m.RecordFailure("parejas", "fetch")

	out := exposition(t, m)
	assert.Contains(t, out, `ine_csv_observations_total{dataset="divorcios_por_tipo"} 400`)
	assert.Contains(t, out, `ine_csv_label_mismatches_total{dataset="divorcios_por_tipo"} 3`)
	assert.Contains(t, out, `ine_csv_records_written_total{dataset="divorcios_por_tipo"} 377`)
	assert.Contains(t, out, `ine_csv_failures_total{dataset="parejas",stage="fetch"} 2`)
	assert.Contains(t, out, `ine_csv_stage_duration_seconds{dataset="divorcios_por_tipo",stage="fetch"} 1.5`)
	assert.Contains(t, out, `ine_csv_last_success_timestamp_seconds{dataset="divorcios_por_tipo",stage="process"} 1.7e+09`)
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New()
	m.RecordFetch("riesgo", 19, 190, time.Second)

	out := exposition(t, m)
	assert.Contains(t, out, `ine_csv_observations_total{dataset="riesgo"} 190`)
	assert.Contains(t, out, "# TYPE ine_csv_series_kept_total counter")
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
	assert.NotNil(t, New().Registry())
}

func TestMetrics_WriteTextfileBadDir(t *testing.T) {
	m := New()
	err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))
	assert.Error(t, err)
}
