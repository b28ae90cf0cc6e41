// Package run fetches and processes datasets in one go
package run

import (
	"fjacquet/ine-csv/cmd/common"
	"fjacquet/ine-csv/internal/pipeline"

	"github.com/spf13/cobra"
)

// Cmd represents the run command
var Cmd = &cobra.Command{
	Use:   "run [dataset...]",
	Short: "Fetch and process datasets",
	Long: `Fetch and process datasets.

Each dataset is fetched and then processed. A dataset that fails is reported
and skipped, the remaining datasets still run, and the command exits with
status 1. Without arguments every catalogued dataset runs.

Example:
  ine-csv run --report run.json --metrics-file ine.prom`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return common.Execute(cmd, args, pipeline.StageFetch, pipeline.StageProcess)
	},
}
