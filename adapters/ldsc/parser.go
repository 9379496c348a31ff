// Package ldsc parses the completed-run logs written by the external
// genetic-correlation estimator. Only the fixed summary block layout is
// supported; anything else is a malformed log.
package ldsc

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gencorr/domain/core"
)

// summaryMarker is the literal line the estimator prints before its summary
// table in every successfully completed run
const summaryMarker = "Summary of Genetic Correlation Results"

// Fixed offsets relative to the marker line. These are structural
// assumptions about the estimator's report layout, not content searches:
// the header immediately follows the marker and the single data row sits
// exactly two lines after it.
const (
	headerOffset = 1
	dataOffset   = 2
)

// RawResultLine is the unparsed summary row from one log: header tokens
// bound positionally to row tokens. Invariant: equal token counts.
type RawResultLine struct {
	Path   string
	Header []string
	Row    []string
}

// Fields binds header tokens to row tokens by position. Safe because the
// parser already rejected any shape mismatch.
func (r *RawResultLine) Fields() map[string]string {
	fields := make(map[string]string, len(r.Header))
	for i, name := range r.Header {
		fields[name] = r.Row[i]
	}
	return fields
}

// ParseLog extracts the summary line from one completed-run log. A missing
// marker means the run did not complete (e.g. insufficient signal for the
// trait) and is reported as ErrMalformedLog; callers treat that as "no
// result for this pair", not as a batch failure.
func ParseLog(path string) (*RawResultLine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.NewMalformedLogError(path, err.Error())
	}
	return parse(path, string(data))
}

func parse(path, content string) (*RawResultLine, error) {
	lines := strings.Split(content, "\n")

	markerIdx := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == summaryMarker {
			markerIdx = i
			break
		}
	}
	if markerIdx < 0 {
		return nil, core.NewMalformedLogError(path, "summary marker not found (run did not complete)")
	}
	if markerIdx+dataOffset >= len(lines) {
		return nil, core.NewMalformedLogError(path, "log truncated after summary marker")
	}

	header := strings.Fields(lines[markerIdx+headerOffset])
	row := strings.Fields(lines[markerIdx+dataOffset])

	if len(header) == 0 {
		return nil, core.NewMalformedLogError(path, "empty summary header")
	}
	if len(row) != len(header) {
		return nil, core.NewMalformedLogError(path,
			fmt.Sprintf("row has %d tokens, header has %d", len(row), len(header)))
	}

	return &RawResultLine{Path: path, Header: header, Row: row}, nil
}

// ListLogs returns every *.log file in a directory in listing order, so
// downstream assembly is deterministic.
func ListLogs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading log directory %s: %w", dir, err)
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".log") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) == 0 {
		log.Printf("[Parser] no .log files found in %s", dir)
	}
	return paths, nil
}
