package render

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"

	"gencorr/domain/rg"

	"github.com/xuri/excelize/v2"
)

// Exporter writes the unified result table and flat grid tables as both
// xlsx (interactive inspection) and csv (automated checks)
type Exporter struct{}

// NewExporter creates an exporter
func NewExporter() *Exporter {
	return &Exporter{}
}

var resultColumns = []string{
	"subject_a", "subject_b", "rg", "se", "z", "p", "adjusted_p",
	"significance_marker", "h2_obs", "h2_obs_se", "h2_int", "h2_int_se",
	"gcov_int", "gcov_int_se",
}

var gridColumns = []string{"row_id", "col_id", "value", "marker"}

// ExportResults writes the unified result table to basePath.xlsx and
// basePath.csv, one row per retained trait-pair estimate
func (e *Exporter) ExportResults(results []rg.AnnotatedResult, basePath string) error {
	rows := make([][]string, 0, len(results)+1)
	rows = append(rows, resultColumns)
	for _, r := range results {
		rows = append(rows, []string{
			r.SubjectA, r.SubjectB,
			cell(r.Rg), cell(r.SE), cell(r.Z), cell(r.P), cell(r.AdjustedP),
			string(r.Marker),
			cell(r.H2Obs), cell(r.H2ObsSE), cell(r.H2Int), cell(r.H2IntSE),
			cell(r.GcovInt), cell(r.GcovIntSE),
		})
	}
	return e.writeBoth(rows, "results", basePath)
}

// ExportGrid writes the flattened matrix (row id, column id, value,
// significance marker) to basePath.xlsx and basePath.csv
func (e *Exporter) ExportGrid(grid []rg.GridRow, basePath string) error {
	rows := make([][]string, 0, len(grid)+1)
	rows = append(rows, gridColumns)
	for _, g := range grid {
		rows = append(rows, []string{g.RowID, g.ColID, cell(g.Value), string(g.Marker)})
	}
	return e.writeBoth(rows, "grid", basePath)
}

func (e *Exporter) writeBoth(rows [][]string, sheet, basePath string) error {
	if err := e.writeXLSX(rows, sheet, basePath+".xlsx"); err != nil {
		return err
	}
	if err := e.writeCSV(rows, basePath+".csv"); err != nil {
		return err
	}
	log.Printf("[Exporter] wrote %d rows to %s.{xlsx,csv}", len(rows)-1, basePath)
	return nil
}

func (e *Exporter) writeXLSX(rows [][]string, sheet, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	for i, row := range rows {
		ref, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		// numeric strings stay typed in the workbook
		typed := make([]interface{}, len(row))
		for j, v := range row {
			if fv, err := strconv.ParseFloat(v, 64); err == nil && i > 0 {
				typed[j] = fv
				continue
			}
			typed[j] = v
		}
		if err := f.SetSheetRow(sheet, ref, &typed); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", path, err)
	}
	return nil
}

func (e *Exporter) writeCSV(rows [][]string, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return w.Error()
}

// cell formats one numeric value; missing statistics export as blank, the
// same way the estimator's "NA" reads
func cell(v float64) string {
	if rg.IsMissing(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
