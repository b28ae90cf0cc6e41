// Package datasets lists the dataset catalogue
package datasets

import (
	"fmt"
	"io"
	"strings"

	"fjacquet/ine-csv/cmd/common"
	"fjacquet/ine-csv/cmd/root"
	"fjacquet/ine-csv/internal/dataset"

	"github.com/spf13/cobra"
)

// Cmd represents the datasets command
var Cmd = &cobra.Command{
	Use:   "datasets",
	Short: "List the catalogued datasets",
	Long: `List the catalogued datasets with their source table and output layout.

The catalogue is embedded in the binary; set datasets.file in the config to
use an external one.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := root.GetContainer()
		if c == nil {
			return fmt.Errorf("application not initialized")
		}
		return List(cmd.OutOrStdout(), c.GetDatasets())
	},
}

// List writes one line per dataset.
func List(out io.Writer, registry *dataset.Registry) error {
	table := common.NewTable(out, "NAME", "FUNCTION", "INPUT", "KEY", "VALUE", "AGGREGATION")
	for _, name := range registry.Names() {
		d, err := registry.Get(name)
		if err != nil {
			return err
		}
		agg := "-"
		if d.Aggregation != nil {
			agg = fmt.Sprintf("%s over %s", d.Aggregation.Method, d.Aggregation.Over)
		}
		table.Append([]string{d.Name, string(d.Function), d.Input, strings.Join(d.KeyColumns(), ","), d.ValueColumn, agg})
	}
	table.Render()
	return nil
}
