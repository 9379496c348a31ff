package app

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// WriteReport writes the markdown run report: per-configuration assembly
// counts plus SE diagnostics for every reliability-discarded group. The
// viewer renders this file as HTML.
func WriteReport(artifacts *RunArtifacts, path string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# Genetic correlation run %s\n\n", artifacts.RunID)

	names := make([]string, 0, len(artifacts.Runs))
	for name := range artifacts.Runs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		run := artifacts.Runs[name]
		r := run.Report
		fmt.Fprintf(&b, "## %s\n\n", name)
		fmt.Fprintf(&b, "- logs found: %d\n", r.LogsFound)
		fmt.Fprintf(&b, "- parsed: %d (malformed/incomplete: %d)\n", r.Parsed, r.Malformed)
		fmt.Fprintf(&b, "- rows dropped on join: %d\n", r.DroppedJoins)
		fmt.Fprintf(&b, "- rows retained after reliability filter: %d\n", r.Retained)
		if run.Matrix == nil {
			b.WriteString("- no rows assembled; configuration skipped\n\n")
		} else {
			fmt.Fprintf(&b, "- matrix: %d rows x %d columns\n\n", len(run.Matrix.RowIDs), len(run.Matrix.ColIDs))
		}

		if len(r.DiscardedGroups) > 0 {
			b.WriteString("### Discarded subject groups\n\n")
			b.WriteString("| subject | rows | max SE | median SE |\n")
			b.WriteString("|---|---|---|---|\n")
			for _, d := range r.DiscardedGroups {
				fmt.Fprintf(&b, "| %s | %d | %.4f | %.4f |\n", d.Subject, d.Rows, d.MaxSE, d.MedianSE)
			}
			b.WriteString("\n")
		}
	}

	return os.WriteFile(path, []byte(b.String()), 0o644)
}
