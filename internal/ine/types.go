package ine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Series is one time series of a table.
type Series struct {
	COD    string      `json:"COD"`
	Nombre string      `json:"Nombre"`
	Data   []DataPoint `json:"Data"`
}

// DataPoint is one observation of a series. Valor is invalid when the API
// reports null.
type DataPoint struct {
	Anyo          int                 `json:"Anyo"`
	Fecha         Fecha               `json:"Fecha"`
	NombrePeriodo string              `json:"NombrePeriodo"`
	Periodo       Periodo             `json:"Periodo"`
	Valor         decimal.NullDecimal `json:"Valor"`
	Secreto       bool                `json:"Secreto"`
}

// Periodo describes the sub-annual period of a point. With det>=1 the API
// sends an object, with det=0 only the numeric id.
type Periodo struct {
	ID     int
	Codigo string
	Nombre string
}

// UnmarshalJSON accepts an object, a number or a string.
func (p *Periodo) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '{':
		var obj struct {
			ID     int    `json:"Id"`
			Codigo string `json:"Codigo"`
			Nombre string `json:"Nombre"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*p = Periodo{ID: obj.ID, Codigo: obj.Codigo, Nombre: obj.Nombre}
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Periodo{Nombre: s}
		return nil
	default:
		id, err := strconv.Atoi(string(data))
		if err != nil {
			return fmt.Errorf("periodo: unexpected value %s", data)
		}
		*p = Periodo{ID: id}
		return nil
	}
}

// Fecha is the reference date of a point. The API sends epoch milliseconds,
// older endpoints an ISO timestamp.
type Fecha struct {
	time.Time
}

// UnmarshalJSON accepts epoch milliseconds or an RFC 3339 string.
func (f *Fecha) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.000-07:00", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				f.Time = t
				return nil
			}
		}
		return fmt.Errorf("fecha: unrecognized date %q", s)
	}
	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("fecha: unexpected value %s", data)
	}
	f.Time = time.UnixMilli(ms).UTC()
	return nil
}
