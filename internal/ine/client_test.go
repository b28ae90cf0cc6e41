package ine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fjacquet/ine-csv/internal/etlerror"
	"fjacquet/ine-csv/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tableResponse = `[
	{"COD": "DIV1", "Nombre": "Total. Andalucía. Divorcios. Total", "Data": [
		{"Anyo": 2020, "NombrePeriodo": "2020", "Valor": 12000, "Secreto": false}
	]}
]`

func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "es", 5*time.Second, logging.NewMockLogger()), srv
}

func TestClient_URL(t *testing.T) {
	c := NewClient("https://servicios.ine.es/wstempus/js/", "ES", 0, nil)

	u, err := c.URL(DatosTabla, "21475", Params{Tip: "A", Det: Detail(2)})
	require.NoError(t, err)
	assert.Equal(t, "https://servicios.ine.es/wstempus/js/ES/DATOS_TABLA/21475?det=2&tip=A", u)

	u, err = c.URL(DatosTabla, "t20/p274/serie/def/p02/02017.px", Params{})
	require.NoError(t, err)
	assert.Equal(t, "https://servicios.ine.es/wstempus/js/ES/DATOS_TABLA/t20/p274/serie/def/p02/02017.px", u)

	u, err = c.URL(Periodicidades, "", Params{})
	require.NoError(t, err)
	assert.Equal(t, "https://servicios.ine.es/wstempus/js/ES/PERIODICIDADES", u)

	_, err = c.URL(DatosTabla, "", Params{})
	assert.Error(t, err)

	_, err = c.URL(DatosTabla, "1", Params{Tip: "Z"})
	assert.Error(t, err)
}

func TestClient_FetchSeries(t *testing.T) {
	var gotPath, gotQuery string
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json;charset=UTF-8")
		_, _ = w.Write([]byte(tableResponse))
	})

	series, err := c.FetchSeries(context.Background(), DatosTabla, "21475", Params{Tip: "A", Det: Detail(2)})
	require.NoError(t, err)

	assert.Equal(t, "/ES/DATOS_TABLA/21475", gotPath)
	assert.Equal(t, "det=2&tip=A", gotQuery)
	require.Len(t, series, 1)
	assert.Equal(t, "DIV1", series[0].COD)
	assert.Equal(t, "Total. Andalucía. Divorcios. Total", series[0].Nombre)
	require.Len(t, series[0].Data, 1)
	assert.Equal(t, "12000", series[0].Data[0].Valor.Decimal.String())
}

func TestClient_FetchSeries_SingleObject(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"COD": "EPA1", "Nombre": "Serie", "Data": []}`))
	})

	series, err := c.FetchSeries(context.Background(), DatosSerie, "EPA1", Params{})
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, "EPA1", series[0].COD)
}

func TestClient_TranscodesLatin1(t *testing.T) {
	// "Andalucía" with í encoded as the single ISO-8859-1 byte 0xED.
	body := []byte(`[{"COD": "X", "Nombre": "Andaluc` + "\xed" + `a", "Data": []}]`)
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=ISO-8859-1")
		_, _ = w.Write(body)
	})

	series, err := c.FetchSeries(context.Background(), DatosTabla, "1", Params{})
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, "Andalucía", series[0].Nombre)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantFetch  bool
		wantStatus int
	}{
		{"server error", http.StatusInternalServerError, "boom", true, 500},
		{"not found", http.StatusNotFound, "", true, 404},
		{"malformed json", http.StatusOK, `[{"COD": `, false, 0},
		{"empty body", http.StatusOK, "", false, 0},
		{"api status", http.StatusOK, `{"status": "El Id de la tabla no existe"}`, false, 0},
		{"wrong shape", http.StatusOK, `"hello"`, false, 0},
		{"wrong field types", http.StatusOK, `[{"COD": 1, "Data": "x"}]`, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.FetchSeries(context.Background(), DatosTabla, "1", Params{})
			require.Error(t, err)

			if tt.wantFetch {
				var fe *etlerror.FetchError
				require.True(t, errors.As(err, &fe), "got %T", err)
				assert.Equal(t, tt.wantStatus, fe.StatusCode)
				return
			}
			var pe *etlerror.ParseError
			assert.True(t, errors.As(err, &pe), "got %T: %v", err, err)
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := NewClient(srv.URL, "ES", time.Second, nil)
	srv.Close()

	_, err := c.Query(context.Background(), DatosTabla, "1", Params{})
	var fe *etlerror.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 0, fe.StatusCode)
}

func TestClient_ValidationBeforeRequest(t *testing.T) {
	called := false
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := c.Query(context.Background(), DatosTabla, "1", Params{Det: Detail(9)})
	require.Error(t, err)
	var verr *etlerror.ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = c.FetchSeries(context.Background(), Periodicidades, "", Params{})
	assert.True(t, errors.As(err, &verr))

	assert.False(t, called, "no request may be sent for invalid parameters")
}

func TestClient_QueryReturnsRawJSON(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/EN/PERIODICIDADES", r.URL.Path)
		_, _ = w.Write([]byte("  [{\"Id\": 1, \"Nombre\": \"Diaria\"}]\n"))
	})
	c.language = "EN"

	raw, err := c.Query(context.Background(), Periodicidades, "", Params{})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"Id": 1, "Nombre": "Diaria"}]`, string(raw))
}
