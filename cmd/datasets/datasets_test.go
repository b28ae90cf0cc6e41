package datasets_test

import (
	"bytes"
	"strings"
	"testing"

	"fjacquet/ine-csv/cmd/datasets"
	"fjacquet/ine-csv/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatasetsCommand_Metadata(t *testing.T) {
	assert.Equal(t, "datasets", datasets.Cmd.Use)
	assert.Contains(t, datasets.Cmd.Short, "catalogued datasets")
	assert.NotNil(t, datasets.Cmd.RunE)
}

func TestList(t *testing.T) {
	registry, err := dataset.Default()
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, datasets.List(&out, registry))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 7)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.Contains(t, out.String(), "divorcios_por_tipo")
	assert.Contains(t, out.String(), "mean over quarter")
	assert.Contains(t, out.String(), "t20/p274/serie/def/p02/02017.px")
}
