package rg

import (
	"math"
	"sort"
)

// significance threshold shared by both marker tiers
const alpha = 0.05

// HolmAdjust applies Holm's step-down correction to one family of p-values,
// returning adjusted values in the input order. Missing p-values stay
// missing and do not count toward the family size. Adjusted values are
// clamped to 1 and forced monotone non-decreasing in ascending-p order, so
// adjusted_p >= p always holds.
func HolmAdjust(ps []float64) []float64 {
	adjusted := make([]float64, len(ps))
	valid := make([]int, 0, len(ps))
	for i, p := range ps {
		adjusted[i] = Missing()
		if !IsMissing(p) {
			valid = append(valid, i)
		}
	}

	sort.Slice(valid, func(a, b int) bool { return ps[valid[a]] < ps[valid[b]] })

	m := len(valid)
	running := 0.0
	for rank, idx := range valid {
		adj := float64(m-rank) * ps[idx]
		if adj > 1 {
			adj = 1
		}
		if adj < running {
			adj = running
		}
		running = adj
		adjusted[idx] = adj
	}
	return adjusted
}

// Annotate partitions results by subject B (the metric identity), applies
// Holm correction within each partition, and attaches markers and row
// ranks. Pure: input order is preserved and the input slice is not mutated.
func Annotate(results []CorrelationResult) []AnnotatedResult {
	byMetric := make(map[string][]int)
	for i, r := range results {
		byMetric[r.SubjectB] = append(byMetric[r.SubjectB], i)
	}

	annotated := make([]AnnotatedResult, len(results))
	for i, r := range results {
		annotated[i] = AnnotatedResult{CorrelationResult: r, AdjustedP: Missing(), Marker: MarkerNone}
	}

	for _, idxs := range byMetric {
		ps := make([]float64, len(idxs))
		for k, i := range idxs {
			ps[k] = results[i].P
		}
		adj := HolmAdjust(ps)
		for k, i := range idxs {
			annotated[i].AdjustedP = adj[k]
			annotated[i].Marker = markerFor(results[i].P, adj[k])
		}
	}

	ranks := rowRanks(results)
	for i := range annotated {
		annotated[i].RowRank = ranks[annotated[i].SubjectA]
	}
	return annotated
}

func markerFor(p, adjusted float64) Marker {
	switch {
	case !IsMissing(adjusted) && adjusted < alpha:
		return MarkerCorrected
	case !IsMissing(p) && p < alpha:
		return MarkerNominal
	}
	return MarkerNone
}

// rowRanks computes each subject A's display rank: the maximum -log10(p)
// across that subject's rows. Subjects with no valid p rank lowest.
func rowRanks(results []CorrelationResult) map[string]float64 {
	ranks := make(map[string]float64)
	for _, r := range results {
		if _, ok := ranks[r.SubjectA]; !ok {
			ranks[r.SubjectA] = 0
		}
		if IsMissing(r.P) || r.P <= 0 {
			continue
		}
		if v := -math.Log10(r.P); v > ranks[r.SubjectA] {
			ranks[r.SubjectA] = v
		}
	}
	return ranks
}

// OrderBySignificance returns subject A identifiers ordered ascending by
// row rank (least significant first). The renderer reverses this for
// top-to-bottom display so the most significant trait sits at the top.
func OrderBySignificance(results []AnnotatedResult) []string {
	seen := make(map[string]float64)
	order := make([]string, 0)
	for _, r := range results {
		if _, ok := seen[r.SubjectA]; !ok {
			seen[r.SubjectA] = r.RowRank
			order = append(order, r.SubjectA)
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		if seen[order[i]] == seen[order[j]] {
			return order[i] < order[j]
		}
		return seen[order[i]] < seen[order[j]]
	})
	return order
}

// Reverse returns a reversed copy of an axis ordering
func Reverse(order []string) []string {
	out := make([]string, len(order))
	for i, v := range order {
		out[len(order)-1-i] = v
	}
	return out
}

// DistinctSubjectsB returns subject B identifiers in first-seen order
func DistinctSubjectsB(results []AnnotatedResult) []string {
	seen := make(map[string]bool)
	order := make([]string, 0)
	for _, r := range results {
		if !seen[r.SubjectB] {
			seen[r.SubjectB] = true
			order = append(order, r.SubjectB)
		}
	}
	return order
}
