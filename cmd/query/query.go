// Package query sends a raw request to the INE API
package query

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"fjacquet/ine-csv/cmd/root"
	"fjacquet/ine-csv/internal/ine"

	"github.com/spf13/cobra"
)

// Querier is the part of the API client the command needs.
type Querier interface {
	Query(ctx context.Context, fn ine.Function, input string, params ine.Params) (json.RawMessage, error)
}

var (
	nult   int
	det    int
	tip    string
	tv     []string
	date   string
	period string
	g1     string
	g2     string
	g3     string
)

// Cmd represents the query command
var Cmd = &cobra.Command{
	Use:   "query FUNCTION [INPUT]",
	Short: "Query the INE API and print the raw JSON",
	Long: `Query the INE API and print the raw JSON response, indented.

Useful to explore tables, series and classifications before adding a dataset
to the catalogue. FUNCTION is one of the API functions, e.g. DATOS_TABLA,
DATOS_SERIE, PERIODICIDADES or VALORES_HIJOS.

Example:
  ine-csv query DATOS_TABLA 21475 --nult 2 --tip A
  ine-csv query DATOS_SERIE IPC251856 --date 20230101:20231231
  ine-csv query DATOS_TABLA 4247 --g1 115:29 --g2 3:84`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := root.GetContainer()
		if c == nil {
			return fmt.Errorf("application not initialized")
		}
		input := ""
		if len(args) > 1 {
			input = args[1]
		}
		return Run(cmd.Context(), c.GetClient(), cmd.OutOrStdout(), args[0], input, params())
	},
}

func init() {
	Cmd.Flags().IntVar(&nult, "nult", 0, "Only the last N periods")
	Cmd.Flags().IntVar(&det, "det", -1, "Detail level 0, 1 or 2")
	Cmd.Flags().StringVar(&tip, "tip", "", "Output flavour: A, M or AM")
	Cmd.Flags().StringArrayVar(&tv, "tv", nil, "Filter variable_id:value_id (repeatable)")
	Cmd.Flags().StringVar(&date, "date", "", "Period range YYYYMMDD:YYYYMMDD (end optional)")
	Cmd.Flags().StringVar(&period, "p", "", "Periodicity id")
	Cmd.Flags().StringVar(&g1, "g1", "", "Table filter variable_id:value_id")
	Cmd.Flags().StringVar(&g2, "g2", "", "Second table filter variable_id:value_id")
	Cmd.Flags().StringVar(&g3, "g3", "", "Third table filter variable_id:value_id")
}

func params() ine.Params {
	p := ine.Params{Nult: nult, Tip: tip, TV: tv, Date: date, P: period, G1: g1, G2: g2, G3: g3}
	if det >= 0 {
		p.Det = ine.Detail(det)
	}
	return p
}

// Run sends one request and writes the indented response to out.
func Run(ctx context.Context, q Querier, out io.Writer, function, input string, params ine.Params) error {
	fn, err := ine.ParseFunction(function)
	if err != nil {
		return err
	}
	raw, err := q.Query(ctx, fn, input, params)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("failed to format response: %w", err)
	}
	buf.WriteByte('\n')
	_, err = buf.WriteTo(out)
	return err
}
