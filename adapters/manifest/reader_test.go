package manifest

import (
	"os"
	"path/filepath"
	"testing"

	dm "gencorr/domain/manifest"
)

func TestRead_CSV(t *testing.T) {
	content := `description,phenotype,sex,is_primary_gwas,variant,file
Standing height,50,both_sexes,TRUE,irnt,50_irnt.gwas.imputed_v3.both_sexes.tsv.bgz
Standing height,50,both_sexes,TRUE,raw,50_raw.gwas.imputed_v3.both_sexes.tsv.bgz
Testosterone (nmol/L),30850,female,TRUE,irnt,
`
	path := filepath.Join(t.TempDir(), "manifest.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := NewReader(path).Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	if entries[0].FilePath != "50_irnt.gwas.imputed_v3.both_sexes.tsv.bgz" {
		t.Errorf("explicit file column ignored: %s", entries[0].FilePath)
	}
	if entries[1].Variant != "raw" {
		t.Errorf("variant = %q, want raw", entries[1].Variant)
	}
	// no file column value: falls back to the naming convention
	if entries[2].FilePath != "30850.irnt.female.tsv.bgz" {
		t.Errorf("derived path = %s", entries[2].FilePath)
	}
	if entries[2].Sex != dm.StratumFemale {
		t.Errorf("sex = %s, want female", entries[2].Sex)
	}
}

func TestRead_TSVAndMissingColumn(t *testing.T) {
	content := "description\tphenotype\tsex\nHeight\t50\tboth_sexes\n"
	path := filepath.Join(t.TempDir(), "manifest.tsv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewReader(path).Read()
	if err == nil {
		t.Fatal("expected error for missing is_primary_gwas column")
	}
}

func TestRead_MissingFile(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "none.csv")).Read()
	if err == nil {
		t.Fatal("expected error for missing manifest file")
	}
}
