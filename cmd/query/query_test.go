package query

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fjacquet/ine-csv/internal/etlerror"
	"fjacquet/ine-csv/internal/ine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryCommand_Metadata(t *testing.T) {
	assert.Equal(t, "query FUNCTION [INPUT]", Cmd.Use)
	assert.Contains(t, Cmd.Short, "raw JSON")
	for _, name := range []string{"nult", "det", "tip", "tv", "date", "p", "g1", "g2", "g3"} {
		assert.NotNil(t, Cmd.Flags().Lookup(name), name)
	}
}

func TestParams(t *testing.T) {
	nult, det, tip = 2, -1, "A"
	t.Cleanup(func() { nult, det, tip = 0, -1, "" })

	p := params()
	assert.Equal(t, 2, p.Nult)
	assert.Nil(t, p.Det)
	assert.Equal(t, "A", p.Tip)

	det = 0
	p = params()
	require.NotNil(t, p.Det)
	assert.Equal(t, 0, *p.Det)
}

func TestParams_TableFilters(t *testing.T) {
	g1, g2, g3 = "115:29", "3:84", "18:451"
	t.Cleanup(func() { g1, g2, g3 = "", "", "" })

	p := params()
	assert.Equal(t, "115:29", p.G1)
	assert.Equal(t, "3:84", p.G2)
	assert.Equal(t, "18:451", p.G3)
	assert.Equal(t, "115:29", p.Values().Get("g1"))
	assert.Equal(t, "18:451", p.Values().Get("g3"))
}

func TestQueryCommand_TableFilterFlags(t *testing.T) {
	t.Cleanup(func() {
		g1 = ""
		_ = Cmd.Flags().Set("g1", "")
	})

	require.NoError(t, Cmd.Flags().Set("g1", "115:29"))
	assert.Equal(t, "115:29", params().G1)
}

func TestRun(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"COD":"X","Nombre":"Serie","Data":[]}]`))
	}))
	defer srv.Close()

	client := ine.NewClient(srv.URL, "ES", time.Second, nil)
	var out bytes.Buffer
	err := Run(context.Background(), client, &out, "datos_tabla", "21475", ine.Params{Nult: 1, Tip: "A"})
	require.NoError(t, err)

	assert.Equal(t, "/ES/DATOS_TABLA/21475", gotPath)
	assert.Equal(t, "nult=1&tip=A", gotQuery)
	assert.Equal(t, "[\n  {\n    \"COD\": \"X\",\n    \"Nombre\": \"Serie\",\n    \"Data\": []\n  }\n]\n", out.String())
}

func TestRun_UnknownFunction(t *testing.T) {
	var out bytes.Buffer
	err := Run(context.Background(), ine.NewClient("http://127.0.0.1:1", "ES", time.Second, nil), &out, "NOPE", "", ine.Params{})
	var validation *etlerror.ValidationError
	assert.ErrorAs(t, err, &validation)
	assert.Empty(t, out.String())
}
