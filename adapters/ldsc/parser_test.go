package ldsc

import (
	"os"
	"path/filepath"
	"testing"

	"gencorr/domain/core"
)

const wellFormedLog = `*********************************
* LD Score Regression (LDSC)
*********************************
Beginning analysis...
Heritability of phenotype 1
---------------------------
Total Observed scale h2: 0.1046 (0.0087)

Summary of Genetic Correlation Results
p1 p2 rg se z p
/sumstats/50.both_sexes.tsv.bgz metrics/nucdiv.sumstats.gz 0.3417 0.0521 6.5585 5.4e-11
Analysis finished.
`

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pair.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseLog_WellFormed(t *testing.T) {
	raw, err := ParseLog(writeLog(t, wellFormedLog))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(raw.Header) != 6 || len(raw.Row) != 6 {
		t.Fatalf("expected 6 header and row tokens, got %d/%d", len(raw.Header), len(raw.Row))
	}

	fields := raw.Fields()
	want := map[string]string{
		"p1": "/sumstats/50.both_sexes.tsv.bgz",
		"p2": "metrics/nucdiv.sumstats.gz",
		"rg": "0.3417",
		"se": "0.0521",
		"z":  "6.5585",
		"p":  "5.4e-11",
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("field %s = %q, want %q", k, fields[k], v)
		}
	}
	if len(fields) != 6 {
		t.Errorf("expected exactly 6 fields, got %d", len(fields))
	}
}

func TestParseLog_MissingMarker(t *testing.T) {
	// a run that died before the summary block
	content := "Beginning analysis...\nERROR: insufficient signal\n"
	_, err := ParseLog(writeLog(t, content))
	if err == nil {
		t.Fatal("expected error for missing marker")
	}
	if !core.IsMalformedLog(err) {
		t.Errorf("expected ErrMalformedLog, got %v", err)
	}
}

func TestParseLog_TokenCountMismatch(t *testing.T) {
	content := `Summary of Genetic Correlation Results
p1 p2 rg se z p
a.tsv.bgz b.sumstats.gz 0.3 0.05 6.0
`
	_, err := ParseLog(writeLog(t, content))
	if err == nil {
		t.Fatal("expected error for 6-token header with 5-token row")
	}
	if !core.IsMalformedLog(err) {
		t.Errorf("expected ErrMalformedLog, got %v", err)
	}
}

func TestParseLog_TruncatedAfterMarker(t *testing.T) {
	content := "Summary of Genetic Correlation Results\np1 p2 rg\n"
	_, err := ParseLog(writeLog(t, content))
	if !core.IsMalformedLog(err) {
		t.Errorf("expected ErrMalformedLog for truncated log, got %v", err)
	}
}

func TestParseLog_FileMissing(t *testing.T) {
	_, err := ParseLog(filepath.Join(t.TempDir(), "nope.log"))
	if !core.IsMalformedLog(err) {
		t.Errorf("expected ErrMalformedLog for unreadable file, got %v", err)
	}
}

func TestListLogs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.log", "a.log", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	paths, err := ListLogs(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 log files, got %d", len(paths))
	}
}
