package app

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"gencorr/adapters/ldsc"
	"gencorr/domain/core"
	"gencorr/domain/manifest"
	"gencorr/domain/rg"
)

func resolvedMap() map[string]manifest.SumstatRecord {
	return map[string]manifest.SumstatRecord{
		"Standing height": {
			Identifier:  "50",
			DisplayName: "Standing height",
			FilePath:    "/sumstats/50.both_sexes.tsv.bgz",
			SexStratum:  manifest.StratumBoth,
			IsPrimary:   true,
		},
		"Testosterone (nmol/L)": {
			Identifier:  "30850",
			DisplayName: "Testosterone (nmol/L)",
			FilePath:    "/sumstats/30850.irnt.female.tsv.bgz",
			SexStratum:  manifest.StratumFemale,
			IsPrimary:   true,
		},
	}
}

func writeRunLog(t *testing.T, dir, name, p1, p2, rgTok, seTok, zTok, pTok string) {
	t.Helper()
	content := fmt.Sprintf(`Beginning analysis...
Summary of Genetic Correlation Results
p1 p2 rg se z p
%s %s %s %s %s %s
Analysis finished.
`, p1, p2, rgTok, seTok, zTok, pTok)
	if err := os.WriteFile(filepath.Join(dir, name+".log"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func assembleDir(t *testing.T, dir string) ([]rg.CorrelationResult, *AssemblyReport) {
	t.Helper()
	a := NewAssembler(resolvedMap(), AssembleConfig{MetricPrefix: "metrics/", MetricSuffix: ".sumstats.gz"})
	paths := make([]string, 0)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return a.Assemble(context.Background(), paths)
}

func TestAssemble_JoinAndNormalize(t *testing.T) {
	dir := t.TempDir()
	writeRunLog(t, dir, "height.nucdiv",
		"/sumstats/50.both_sexes.tsv.bgz", "metrics/nucdiv.sumstats.gz",
		"0.34", "0.05", "6.5", "5.4e-11")

	results, report := assembleDir(t, dir)
	if report.Retained != 1 || len(results) != 1 {
		t.Fatalf("expected 1 retained row, got %d (report %+v)", len(results), report)
	}

	r := results[0]
	if r.SubjectA != "Standing height" {
		t.Errorf("subject A = %q, want display name", r.SubjectA)
	}
	if r.SubjectB != "nucdiv" {
		t.Errorf("subject B = %q, want normalized metric code", r.SubjectB)
	}
	if r.Rg != 0.34 || r.SE != 0.05 {
		t.Errorf("numeric coercion wrong: %+v", r)
	}
	if !rg.IsMissing(r.H2Obs) {
		t.Errorf("fields absent from the log must be missing, got %v", r.H2Obs)
	}
}

func TestAssemble_MetricSubjects(t *testing.T) {
	dir := t.TempDir()
	// metric-vs-metric rows: subject A is itself a metric file with no
	// manifest entry and must normalize, not join
	writeRunLog(t, dir, "nucdiv.tajd",
		"metrics/nucdiv.sumstats.gz", "metrics/tajd.sumstats.gz",
		"0.88", "0.03", "9.1", "1e-19")
	writeRunLog(t, dir, "tajd.nucdiv",
		"metrics/tajd.sumstats.gz", "metrics/nucdiv.sumstats.gz",
		"0.91", "0.03", "8.8", "1e-18")

	a := NewAssembler(resolvedMap(), AssembleConfig{
		MetricPrefix:   "metrics/",
		MetricSuffix:   ".sumstats.gz",
		MetricSubjects: true,
	})
	paths, err := ldsc.ListLogs(dir)
	if err != nil {
		t.Fatal(err)
	}
	results, report := a.Assemble(context.Background(), paths)

	if report.DroppedJoins != 0 {
		t.Fatalf("metric subjects must not hit the trait join, dropped %d", report.DroppedJoins)
	}
	if len(results) != 2 {
		t.Fatalf("expected both metric pairs retained, got %d", len(results))
	}
	for _, r := range results {
		if r.SubjectA != "nucdiv" && r.SubjectA != "tajd" {
			t.Errorf("subject A = %q, want normalized metric code", r.SubjectA)
		}
	}
}

func TestBind_MissingJoinErrorClass(t *testing.T) {
	a := NewAssembler(resolvedMap(), AssembleConfig{MetricPrefix: "metrics/", MetricSuffix: ".sumstats.gz"})
	raw := &ldsc.RawResultLine{
		Path:   "stale.log",
		Header: []string{"p1", "p2", "rg", "se", "z", "p"},
		Row:    []string{"/sumstats/99999.old.tsv.bgz", "metrics/nucdiv.sumstats.gz", "0.1", "0.05", "2.0", "0.04"},
	}

	_, err := a.bind(raw)
	if !core.IsMissingJoin(err) {
		t.Errorf("expected ErrMissingJoin, got %v", err)
	}
}

func TestAssemble_UnknownFileDropped(t *testing.T) {
	dir := t.TempDir()
	writeRunLog(t, dir, "stale",
		"/sumstats/99999.old.tsv.bgz", "metrics/nucdiv.sumstats.gz",
		"0.1", "0.05", "2.0", "0.04")

	results, report := assembleDir(t, dir)
	if len(results) != 0 {
		t.Fatalf("row against stale input file must be dropped, got %d rows", len(results))
	}
	if report.DroppedJoins != 1 {
		t.Errorf("dropped joins = %d, want 1", report.DroppedJoins)
	}
}

func TestAssemble_NACoercedNotFatal(t *testing.T) {
	dir := t.TempDir()
	writeRunLog(t, dir, "height.na",
		"/sumstats/50.both_sexes.tsv.bgz", "metrics/nucdiv.sumstats.gz",
		"0.2", "0.1", "NA", "NA")

	results, _ := assembleDir(t, dir)
	if len(results) != 1 {
		t.Fatalf("NA tokens must coerce to missing, not drop the row: %d rows", len(results))
	}
	if !rg.IsMissing(results[0].Z) {
		t.Errorf("z should be missing, got %v", results[0].Z)
	}
}

func TestAssemble_BackfillPFromZ(t *testing.T) {
	dir := t.TempDir()
	writeRunLog(t, dir, "height.z",
		"/sumstats/50.both_sexes.tsv.bgz", "metrics/nucdiv.sumstats.gz",
		"0.2", "0.1", "1.96", "NA")

	results, _ := assembleDir(t, dir)
	if len(results) != 1 {
		t.Fatal("expected one row")
	}
	if math.Abs(results[0].P-0.05) > 0.001 {
		t.Errorf("backfilled p = %v, want ~0.05 for z=1.96", results[0].P)
	}
}

func TestAssemble_WholeGroupDiscard(t *testing.T) {
	dir := t.TempDir()
	// one reliable row and one over-cutoff row for the same subject:
	// the unreliable heritability estimate invalidates the whole group
	writeRunLog(t, dir, "testo.nucdiv",
		"/sumstats/30850.irnt.female.tsv.bgz", "metrics/nucdiv.sumstats.gz",
		"0.3", "0.05", "3.0", "0.002")
	writeRunLog(t, dir, "testo.tajd",
		"/sumstats/30850.irnt.female.tsv.bgz", "metrics/tajd.sumstats.gz",
		"0.2", "0.25", "0.8", "0.42")
	writeRunLog(t, dir, "height.nucdiv",
		"/sumstats/50.both_sexes.tsv.bgz", "metrics/nucdiv.sumstats.gz",
		"0.34", "0.05", "6.5", "5.4e-11")

	results, report := assembleDir(t, dir)

	for _, r := range results {
		if r.SubjectA == "Testosterone (nmol/L)" {
			t.Errorf("whole group should be discarded, found retained row %+v", r)
		}
		if r.SE > 0.2 || rg.IsMissing(r.Rg) {
			t.Errorf("reliability invariant violated: %+v", r)
		}
	}
	if len(results) != 1 {
		t.Fatalf("expected only the height row retained, got %d", len(results))
	}

	if len(report.DiscardedGroups) != 1 {
		t.Fatalf("expected 1 discarded group, got %d", len(report.DiscardedGroups))
	}
	d := report.DiscardedGroups[0]
	if d.Subject != "Testosterone (nmol/L)" || d.Rows != 2 {
		t.Errorf("unexpected discard record: %+v", d)
	}
	if d.MaxSE != 0.25 {
		t.Errorf("max SE = %v, want 0.25", d.MaxSE)
	}
}

func TestAssemble_MalformedLogSkipped(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "dead.log"), []byte("ERROR: no signal\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	writeRunLog(t, dir, "height.nucdiv",
		"/sumstats/50.both_sexes.tsv.bgz", "metrics/nucdiv.sumstats.gz",
		"0.34", "0.05", "6.5", "5.4e-11")

	results, report := assembleDir(t, dir)
	if len(results) != 1 {
		t.Fatalf("malformed log must not stall the batch, got %d rows", len(results))
	}
	if report.Malformed != 1 {
		t.Errorf("malformed count = %d, want 1", report.Malformed)
	}
}

func TestFilterReliableGroups_MissingRg(t *testing.T) {
	results := []rg.CorrelationResult{
		{SubjectA: "A", SubjectB: "m1", Rg: rg.Missing(), SE: 0.01},
		{SubjectA: "A", SubjectB: "m2", Rg: 0.5, SE: 0.01},
		{SubjectA: "B", SubjectB: "m1", Rg: 0.2, SE: 0.02},
	}
	kept, discards := FilterReliableGroups(results)
	if len(kept) != 1 || kept[0].SubjectA != "B" {
		t.Errorf("missing rg must discard the whole group: %+v", kept)
	}
	if len(discards) != 1 || discards[0].Subject != "A" {
		t.Errorf("unexpected discards: %+v", discards)
	}
}
