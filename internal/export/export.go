// Package export converts processed dataset files into an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"fjacquet/ine-csv/internal/csvio"
	"fjacquet/ine-csv/internal/dataset"
	"fjacquet/ine-csv/internal/fileutils"
	"fjacquet/ine-csv/internal/logging"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// maxSheetName is the longest sheet name Excel accepts.
const maxSheetName = 31

const defaultSheet = "Sheet1"

// Sheet is one worksheet of the workbook.
type Sheet struct {
	Name  string
	Table csvio.Table
}

// Exporter writes workbooks.
type Exporter struct {
	store  *csvio.Store
	logger logging.Logger
}

// NewExporter creates an Exporter reading processed files through store.
func NewExporter(store *csvio.Store, logger logging.Logger) *Exporter {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Exporter{store: store, logger: logger.WithField("component", "export")}
}

// ExportDatasets reads the processed file of every dataset from dir and
// writes one sheet per dataset to path.
func (e *Exporter) ExportDatasets(datasets []*dataset.Dataset, dir, path string) error {
	if len(datasets) == 0 {
		return fmt.Errorf("no datasets to export")
	}
	sheets := make([]Sheet, 0, len(datasets))
	for _, d := range datasets {
		input := filepath.Join(dir, d.ProcessedFile())
		table, err := e.store.ReadTable(input)
		if err != nil {
			return fmt.Errorf("%s: %w", d.Name, err)
		}
		e.logger.Debug("Loaded processed file",
			logging.F(logging.FieldDataset, d.Name),
			logging.F(logging.FieldInputFile, input),
			logging.F(logging.FieldCount, len(table.Rows)))
		sheets = append(sheets, Sheet{Name: d.Name, Table: table})
	}
	return e.Write(path, sheets)
}

// Write builds a workbook from sheets and replaces path with it.
func (e *Exporter) Write(path string, sheets []Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("no sheets to write")
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			e.logger.WithError(err).Warn("Failed to close workbook")
		}
	}()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	used := make(map[string]bool, len(sheets))
	for i, sheet := range sheets {
		name := SheetName(sheet.Name, used)
		if i == 0 {
			err = f.SetSheetName(defaultSheet, name)
		} else {
			_, err = f.NewSheet(name)
		}
		if err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", name, err)
		}
		if err := writeSheet(f, name, sheet.Table, header); err != nil {
			return fmt.Errorf("sheet %q: %w", name, err)
		}
	}
	f.SetActiveSheet(0)

	if err := fileutils.EnsureDirectoryExists(filepath.Dir(path)); err != nil {
		return err
	}
	err = fileutils.WriteAtomic(path, 0644, func(w io.Writer) error {
		_, err := f.WriteTo(w)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}

	e.logger.Info("Wrote workbook",
		logging.F(logging.FieldOutputFile, path),
		logging.F(logging.FieldCount, len(sheets)))
	return nil
}

func writeSheet(f *excelize.File, name string, table csvio.Table, headerStyle int) error {
	header := make([]interface{}, len(table.Header))
	for i, h := range table.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}
	if len(table.Header) > 0 {
		if err := f.SetRowStyle(name, 1, 1, headerStyle); err != nil {
			return err
		}
		last, err := excelize.ColumnNumberToName(len(table.Header))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(name, "A", last, 22); err != nil {
			return err
		}
	}

	for i, row := range table.Rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = cellValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &cells); err != nil {
			return err
		}
	}

	return f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// cellValue stores numeric text as a number so spreadsheets can compute on it.
func cellValue(s string) interface{} {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	if d.IsInteger() && d.Abs().LessThan(decimal.New(1, 15)) {
		return d.IntPart()
	}
	return d.InexactFloat64()
}

// SheetName makes name a valid, unused worksheet name and marks it used.
func SheetName(name string, used map[string]bool) string {
	clean := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if clean == "" {
		clean = "data"
	}
	clean = truncate(clean, maxSheetName)

	candidate := clean
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf("~%d", n)
		candidate = truncate(clean, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
