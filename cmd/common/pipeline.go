// Package common contains shared functionality for command handlers
package common

import (
	"context"
	"errors"
	"fmt"
	"io"

	"fjacquet/ine-csv/cmd/root"
	"fjacquet/ine-csv/internal/container"
	"fjacquet/ine-csv/internal/logging"
	"fjacquet/ine-csv/internal/pipeline"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Outputs names the optional files written after a run.
type Outputs struct {
	ReportFile  string
	MetricsFile string
}

// RunStages runs stages over the named datasets (every catalogued dataset
// when names is empty), writes the requested output files and prints a
// summary table to out. The returned error joins every failure.
func RunStages(ctx context.Context, c *container.Container, out io.Writer, outputs Outputs, names []string, stages ...pipeline.Stage) error {
	if c == nil {
		return fmt.Errorf("application not initialized")
	}
	datasets, err := c.GetDatasets().Select(names)
	if err != nil {
		return err
	}

	summary, runErr := c.NewRunner().Run(ctx, datasets, stages...)
	if summary == nil {
		return runErr
	}
	errs := []error{runErr}

	if outputs.ReportFile != "" {
		if err := c.GetReportGenerator().WriteFile(summary, outputs.ReportFile); err != nil {
			errs = append(errs, err)
		}
	}
	if outputs.MetricsFile != "" {
		if err := c.GetMetrics().WriteTextfile(outputs.MetricsFile); err != nil {
			errs = append(errs, err)
		} else {
			c.GetLogger().Info("Wrote metrics file", logging.F(logging.FieldOutputFile, outputs.MetricsFile))
		}
	}

	if err := PrintSummary(out, summary); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// PrintSummary writes one line per dataset.
func PrintSummary(out io.Writer, summary *pipeline.RunSummary) error {
	ok := color.New(color.FgGreen).SprintFunc()
	failed := color.New(color.FgRed, color.Bold).SprintFunc()

	table := NewTable(out, "DATASET", "OBSERVATIONS", "RECORDS", "MISMATCHES", "PARTIAL", "DURATION_MS", "STATUS")
	for _, ds := range summary.Datasets {
		observations, records, mismatches, partial := "-", "-", "-", "-"
		if ds.Fetch != nil {
			observations = fmt.Sprint(ds.Fetch.Observations)
		}
		if ds.Transform != nil {
			records = fmt.Sprint(ds.Transform.RecordsWritten)
			mismatches = fmt.Sprint(ds.Transform.LabelMismatches)
			partial = fmt.Sprint(ds.Transform.PartialGroups)
		}
		status := ok("ok")
		if !ds.Succeeded() {
			status = failed(fmt.Sprintf("failed (%s): %s", ds.FailedStage, ds.Error))
		}
		table.Append([]string{ds.Dataset, observations, records, mismatches, partial, fmt.Sprint(ds.DurationMS), status})
	}
	table.Render()

	_, err := fmt.Fprintf(out, "run %s: %d dataset(s), %d failed, %d ms\n",
		summary.RunID, len(summary.Datasets), summary.Failed, summary.DurationMS)
	return err
}

// Execute runs stages for a cobra command using the root container and flags.
func Execute(cmd *cobra.Command, args []string, stages ...pipeline.Stage) error {
	outputs := Outputs{ReportFile: root.Flags.ReportFile, MetricsFile: root.Flags.MetricsFile}
	return RunStages(cmd.Context(), root.GetContainer(), cmd.OutOrStdout(), outputs, args, stages...)
}
