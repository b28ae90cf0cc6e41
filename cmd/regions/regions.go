// Package regions lists and resolves autonomous community names
package regions

import (
	"errors"
	"fmt"
	"io"

	"fjacquet/ine-csv/cmd/common"
	"fjacquet/ine-csv/cmd/root"
	"fjacquet/ine-csv/internal/etlerror"
	"fjacquet/ine-csv/internal/region"

	"github.com/spf13/cobra"
)

// Cmd represents the regions command
var Cmd = &cobra.Command{
	Use:   "regions [name...]",
	Short: "List canonical region names or resolve raw names",
	Long: `List the canonical autonomous community names, or resolve the given raw
names the way the process stage does.

Example:
  ine-csv regions
  ine-csv regions "Madrid, Comunidad de" "Balears, Illes"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := root.GetContainer()
		if c == nil {
			return fmt.Errorf("application not initialized")
		}
		if len(args) == 0 {
			return List(cmd.OutOrStdout(), c.GetRegions())
		}
		return Resolve(cmd.OutOrStdout(), c.GetRegions(), args)
	},
}

// List writes the canonical regions ordered by code.
func List(out io.Writer, n *region.Normalizer) error {
	table := common.NewTable(out, "CODE", "NAME")
	for _, r := range n.Canonical() {
		table.Append([]string{r.Code, r.Name})
	}
	table.Render()
	return nil
}

// Resolve prints the canonical name of every raw name. Names that do not
// resolve are reported together in an UnknownRegionError.
func Resolve(out io.Writer, n *region.Normalizer, names []string) error {
	table := common.NewTable(out)
	var unknown []string
	for _, raw := range names {
		if n.IsNationalAggregate(raw) {
			table.Append([]string{raw, "(national aggregate)"})
			continue
		}
		canonical, err := n.Normalize(raw)
		if err != nil {
			var unknownErr *etlerror.UnknownRegionError
			if !errors.As(err, &unknownErr) {
				return err
			}
			unknown = append(unknown, raw)
			table.Append([]string{raw, "(unknown)"})
			continue
		}
		table.Append([]string{raw, canonical})
	}
	table.Render()
	if len(unknown) > 0 {
		return &etlerror.UnknownRegionError{Names: unknown}
	}
	return nil
}
