// Package manifest reads the sumstat manifest table from Excel or
// delimited text into domain entries.
package manifest

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	dm "gencorr/domain/manifest"

	"github.com/xuri/excelize/v2"
)

// Reader loads manifest rows from .xlsx, .csv or .tsv files
type Reader struct {
	filePath string
	fileType string // "xlsx", "csv" or "tsv"
}

// NewReader creates a manifest reader, picking the decoder from the
// file extension
func NewReader(filePath string) *Reader {
	fileType := "xlsx"
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv":
		fileType = "csv"
	case ".tsv", ".txt":
		fileType = "tsv"
	}
	return &Reader{filePath: filePath, fileType: fileType}
}

// Read loads and decodes the manifest into domain entries
func (r *Reader) Read() ([]dm.Entry, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("manifest file not found: %s", r.filePath)
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "xlsx":
		rows, err = r.readExcelRows()
	default:
		rows, err = r.readDelimitedRows()
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("manifest %s has no data rows", r.filePath)
	}

	entries, err := decodeEntries(rows)
	if err != nil {
		return nil, err
	}
	log.Printf("[Manifest] loaded %d entries from %s", len(entries), r.filePath)
	return entries, nil
}

func (r *Reader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("manifest workbook %s has no sheets", r.filePath)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func (r *Reader) readDelimitedRows() ([][]string, error) {
	f, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	if r.fileType == "tsv" {
		reader.Comma = '\t'
	}
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", r.filePath, err)
	}
	return rows, nil
}

// Manifest column names. The variant and file columns are optional; the
// file path falls back to the phenotype/variant/sex naming convention the
// download collaborator uses.
const (
	colDescription = "description"
	colPhenotype   = "phenotype"
	colSex         = "sex"
	colIsPrimary   = "is_primary_gwas"
	colVariant     = "variant"
	colFile        = "file"
)

func decodeEntries(rows [][]string) ([]dm.Entry, error) {
	header := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{colDescription, colPhenotype, colSex, colIsPrimary} {
		if _, ok := header[required]; !ok {
			return nil, fmt.Errorf("manifest missing required column %q", required)
		}
	}

	cell := func(row []string, col string) string {
		idx, ok := header[col]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	entries := make([]dm.Entry, 0, len(rows)-1)
	for n, row := range rows[1:] {
		desc := cell(row, colDescription)
		if desc == "" {
			continue
		}
		sex, err := dm.ParseSexStratum(cell(row, colSex))
		if err != nil {
			return nil, fmt.Errorf("manifest row %d: %w", n+2, err)
		}

		e := dm.Entry{
			Description: desc,
			Phenotype:   cell(row, colPhenotype),
			Sex:         sex,
			IsPrimary:   parseBool(cell(row, colIsPrimary)),
			Variant:     cell(row, colVariant),
			FilePath:    cell(row, colFile),
		}
		if e.FilePath == "" {
			e.FilePath = defaultFilePath(e)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "t", "1", "yes":
		return true
	}
	return false
}

// defaultFilePath reproduces the download collaborator's file naming
// convention so results can be joined even when the manifest carries no
// explicit path column
func defaultFilePath(e dm.Entry) string {
	parts := []string{e.Phenotype}
	if e.Variant != "" {
		parts = append(parts, e.Variant)
	}
	parts = append(parts, string(e.Sex), "tsv.bgz")
	return strings.Join(parts, ".")
}
