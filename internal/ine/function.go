// Package ine is a small client for the INE Tempus3 JSON API
// (https://servicios.ine.es/wstempus/js).
package ine

import (
	"fmt"
	"strings"

	"fjacquet/ine-csv/internal/etlerror"
)

// Function is an API operation, the path segment after the language.
type Function string

const (
	DatosTabla                  Function = "DATOS_TABLA"
	DatosSerie                  Function = "DATOS_SERIE"
	DatosMetadataOperacion      Function = "DATOS_METADATAOPERACION"
	Periodicidades              Function = "PERIODICIDADES"
	Publicaciones               Function = "PUBLICACIONES"
	PublicacionesOperacion      Function = "PUBLICACIONES_OPERACION"
	PublicacionFechaPublicacion Function = "PUBLICACIONFECHA_PUBLICACION"
	Clasificaciones             Function = "CLASIFICACIONES"
	ClasificacionesOperacion    Function = "CLASIFICACIONES_OPERACION"
	ValoresHijos                Function = "VALORES_HIJOS"
)

var functions = []Function{
	DatosTabla,
	DatosSerie,
	DatosMetadataOperacion,
	Periodicidades,
	Publicaciones,
	PublicacionesOperacion,
	PublicacionFechaPublicacion,
	Clasificaciones,
	ClasificacionesOperacion,
	ValoresHijos,
}

// Functions lists every recognized function.
func Functions() []Function {
	out := make([]Function, len(functions))
	copy(out, functions)
	return out
}

// ParseFunction resolves a function name, ignoring case.
func ParseFunction(name string) (Function, error) {
	upper := Function(strings.ToUpper(strings.TrimSpace(name)))
	for _, f := range functions {
		if f == upper {
			return f, nil
		}
	}
	return "", &etlerror.ValidationError{Field: "function", Value: name, Reason: "not a recognized API function"}
}

// RequiresInput reports whether the function needs an identifier after it.
func (f Function) RequiresInput() bool {
	switch f {
	case Periodicidades, Publicaciones, Clasificaciones:
		return false
	default:
		return true
	}
}

// ReturnsSeries reports whether the function's payload is series data.
func (f Function) ReturnsSeries() bool {
	return f == DatosTabla || f == DatosSerie
}

func (f Function) validate(input string) error {
	if _, err := ParseFunction(string(f)); err != nil {
		return err
	}
	if f.RequiresInput() && strings.TrimSpace(input) == "" {
		return &etlerror.ValidationError{Field: "input", Value: input, Reason: fmt.Sprintf("%s requires an identifier", f)}
	}
	return nil
}
