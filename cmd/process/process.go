// Package process turns extraction files into processed datasets
package process

import (
	"fjacquet/ine-csv/cmd/common"
	"fjacquet/ine-csv/internal/pipeline"

	"github.com/spf13/cobra"
)

// Cmd represents the process command
var Cmd = &cobra.Command{
	Use:   "process [dataset...]",
	Short: "Process extracted datasets into final CSV files",
	Long: `Process extracted datasets into final CSV files.

Series labels are parsed into attributes, national aggregates dropped, region
names normalized to the canonical autonomous community names and quarterly
values averaged where the dataset asks for it. The result is written to
<processed_dir>/ine_<dataset>_processed.csv. Without arguments every
catalogued dataset is processed.

Example:
  ine-csv process tasas_empleo_por_nacionalidad_sexo_ccaa`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return common.Execute(cmd, args, pipeline.StageProcess)
	},
}
