// Package fetch downloads datasets into the extraction directory
package fetch

import (
	"fjacquet/ine-csv/cmd/common"
	"fjacquet/ine-csv/internal/pipeline"

	"github.com/spf13/cobra"
)

// Cmd represents the fetch command
var Cmd = &cobra.Command{
	Use:   "fetch [dataset...]",
	Short: "Download datasets from the INE API",
	Long: `Download datasets from the INE API into the extraction directory.

One request is made per dataset. Series are filtered, null values dropped and
the observations written to <extraction_dir>/ine_<dataset>.csv, replacing any
previous file. Without arguments every catalogued dataset is fetched.

Example:
  ine-csv fetch divorcios_por_tipo --extraction-dir data/raw`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return common.Execute(cmd, args, pipeline.StageFetch)
	},
}
