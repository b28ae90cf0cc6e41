// Package export writes processed datasets to an XLSX workbook
package export

import (
	"fmt"
	"path/filepath"

	"fjacquet/ine-csv/cmd/root"

	"github.com/spf13/cobra"
)

// DefaultWorkbook is the file name used when --output is not set.
const DefaultWorkbook = "ine_datasets.xlsx"

var output string

// Cmd represents the export command
var Cmd = &cobra.Command{
	Use:   "export [dataset...]",
	Short: "Export processed datasets to an XLSX workbook",
	Long: `Export processed datasets to an XLSX workbook with one sheet per dataset.

Each sheet carries the processed CSV header as a frozen first row. Without
arguments every catalogued dataset is exported; all of them must have been
processed first.

Example:
  ine-csv export divorcios_por_tipo riesgo_pobreza_exclusion_social -o ine.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := root.GetContainer()
		if c == nil {
			return fmt.Errorf("application not initialized")
		}
		datasets, err := c.GetDatasets().Select(args)
		if err != nil {
			return err
		}
		dir := c.GetConfig().Paths.ProcessedDir
		path := output
		if path == "" {
			path = filepath.Join(dir, DefaultWorkbook)
		}
		if err := c.GetExporter().ExportDatasets(datasets, dir, path); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d sheet(s) to %s\n", len(datasets), path)
		return err
	},
}

func init() {
	Cmd.Flags().StringVarP(&output, "output", "o", "", "Workbook path (default <processed_dir>/"+DefaultWorkbook+")")
}
