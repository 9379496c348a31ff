// Package rg holds the genetic-correlation result model: typed records
// parsed from estimator logs, family-wise significance annotation, and the
// pivoted matrices the renderer consumes.
package rg

import (
	"math"
	"strconv"
)

// Missing is the canonical in-memory representation for statistics the
// estimator reports as "NA". It round-trips to blank cells on export, never
// to a parse error.
func Missing() float64 {
	return math.NaN()
}

// IsMissing reports whether a statistic is the missing value
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// maxReliableSE is the reliability cutoff: a standard error above this
// means the trait's heritability estimate is too noisy to trust, which
// invalidates every correlation estimate for that trait.
const maxReliableSE = 0.2

// CorrelationResult is one trait-pair genetic correlation estimate as
// reported by the estimator. Immutable once parsed.
type CorrelationResult struct {
	SubjectA string `json:"subject_a"` // resolved trait display name
	SubjectB string `json:"subject_b"` // normalized metric identifier

	Rg float64 `json:"rg"` // estimated correlation; the estimator can emit values slightly outside [-1,1]
	SE float64 `json:"se"`
	Z  float64 `json:"z"`
	P  float64 `json:"p"`

	// Heritability / intercept diagnostics reported alongside the estimate
	H2Obs     float64 `json:"h2_obs"`
	H2ObsSE   float64 `json:"h2_obs_se"`
	H2Int     float64 `json:"h2_int"`
	H2IntSE   float64 `json:"h2_int_se"`
	GcovInt   float64 `json:"gcov_int"`
	GcovIntSE float64 `json:"gcov_int_se"`

	SourceLog string `json:"source_log,omitempty"` // log file this row came from
}

// Reliable reports whether this single estimate passes the SE cutoff.
// Group-level discards are the assembler's job; see FilterReliableGroups.
func (c CorrelationResult) Reliable() bool {
	return !IsMissing(c.Rg) && !IsMissing(c.SE) && c.SE <= maxReliableSE
}

// Marker is the categorical significance level attached to each cell
type Marker string

const (
	MarkerNone      Marker = "none"
	MarkerNominal   Marker = "nominal"   // p < 0.05 before correction
	MarkerCorrected Marker = "corrected" // adjusted p < 0.05 after Holm
)

// Suffix returns the label suffix rendered after the rg value
func (m Marker) Suffix() string {
	switch m {
	case MarkerNominal:
		return "*"
	case MarkerCorrected:
		return "**"
	}
	return ""
}

// AnnotatedResult is a CorrelationResult enriched with family-wise
// significance and display-ordering metadata
type AnnotatedResult struct {
	CorrelationResult

	AdjustedP float64 `json:"adjusted_p"`
	Marker    Marker  `json:"significance_marker"`
	RowRank   float64 `json:"row_rank"` // max -log10(p) across the subject's rows
}

// Label renders the cell text for this result: rounded rg plus the
// significance suffix
func (a AnnotatedResult) Label() string {
	if IsMissing(a.Rg) {
		return ""
	}
	return strconv.FormatFloat(a.Rg, 'f', 2, 64) + a.Marker.Suffix()
}
