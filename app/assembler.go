package app

import (
	"context"
	"log"
	"math"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"gencorr/adapters/ldsc"
	"gencorr/domain/core"
	"gencorr/domain/manifest"
	"gencorr/domain/rg"

	mstats "github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"
)

// AssembleConfig controls subject identifier normalization. The auxiliary
// metric sumstat files carry path decoration the trait files do not;
// stripping it yields the short metric codes used as join keys.
type AssembleConfig struct {
	MetricPrefix string // path prefix stripped from metric subjects, e.g. "metrics/"
	MetricSuffix string // suffix stripped from metric subjects, e.g. ".sumstats.gz"

	// MetricSubjects marks the metric-vs-metric configuration: subject A is
	// itself a metric sumstat file with no manifest entry, so it is
	// normalized like subject B instead of joined against the trait map.
	MetricSubjects bool
}

// GroupDiscard records one subject whose entire row group failed the
// reliability filter, with SE diagnostics for the run report
type GroupDiscard struct {
	Subject  string  `json:"subject"`
	Rows     int     `json:"rows"`
	MaxSE    float64 `json:"max_se"`
	MedianSE float64 `json:"median_se"`
}

// AssemblyReport summarizes what happened to every input log. Parse
// failures and dropped rows are policy outcomes, not batch failures.
type AssemblyReport struct {
	LogsFound       int            `json:"logs_found"`
	Parsed          int            `json:"parsed"`
	Malformed       int            `json:"malformed"`
	DroppedJoins    int            `json:"dropped_joins"`
	DiscardedGroups []GroupDiscard `json:"discarded_groups"`
	Retained        int            `json:"retained"`
}

// Assembler turns raw estimator logs into the filtered correlation result
// set, joining display identifiers via the resolved manifest
type Assembler struct {
	byPath map[string]manifest.SumstatRecord // resolved records keyed by file base name
	cfg    AssembleConfig
}

// NewAssembler builds an assembler over a resolved identifier map
func NewAssembler(resolved map[string]manifest.SumstatRecord, cfg AssembleConfig) *Assembler {
	byPath := make(map[string]manifest.SumstatRecord, len(resolved))
	for _, rec := range resolved {
		byPath[filepath.Base(rec.FilePath)] = rec
	}
	return &Assembler{byPath: byPath, cfg: cfg}
}

// ParseAll parses every log in parallel. Parsing independent files has no
// ordering dependency; results land in an index-addressed slice so no
// locking is needed, and grouping/filtering runs only after every parse
// completes.
func (a *Assembler) ParseAll(ctx context.Context, paths []string) ([]*ldsc.RawResultLine, int) {
	raws := make([]*ldsc.RawResultLine, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			raw, err := ldsc.ParseLog(path)
			if err != nil {
				log.Printf("[Assembler] skipping log: %v", err)
				return nil
			}
			raws[i] = raw
			return nil
		})
	}
	// per-file failures never propagate; only cancellation can error here
	if err := g.Wait(); err != nil {
		log.Printf("[Assembler] parse batch interrupted: %v", err)
	}

	parsed := raws[:0:0]
	malformed := 0
	for _, raw := range raws {
		if raw == nil {
			malformed++
			continue
		}
		parsed = append(parsed, raw)
	}
	return parsed, malformed
}

// Assemble binds, joins, normalizes and filters the parsed rows into the
// final CorrelationResult set
func (a *Assembler) Assemble(ctx context.Context, paths []string) ([]rg.CorrelationResult, *AssemblyReport) {
	raws, malformed := a.ParseAll(ctx, paths)

	report := &AssemblyReport{LogsFound: len(paths), Parsed: len(raws), Malformed: malformed}

	results := make([]rg.CorrelationResult, 0, len(raws))
	for _, raw := range raws {
		res, err := a.bind(raw)
		if err != nil {
			log.Printf("[Assembler] dropping row from %s: %v", raw.Path, err)
			report.DroppedJoins++
			continue
		}
		results = append(results, res)
	}

	kept, discards := FilterReliableGroups(results)
	report.DiscardedGroups = discards
	report.Retained = len(kept)
	return kept, report
}

// bind converts one raw summary line into a typed result. In the trait
// configuration a subject-A file path missing from the identifier map means
// the run used a stale or unexpected input file; the row is dropped with an
// ErrMissingJoin warning. In the metric configuration subject A is a metric
// file and is normalized instead of joined.
func (a *Assembler) bind(raw *ldsc.RawResultLine) (rg.CorrelationResult, error) {
	fields := raw.Fields()

	var subjectA string
	if a.cfg.MetricSubjects {
		subjectA = a.normalizeMetric(fields["p1"])
	} else {
		rec, ok := a.byPath[filepath.Base(fields["p1"])]
		if !ok {
			return rg.CorrelationResult{}, core.NewMissingJoinError(fields["p1"])
		}
		subjectA = rec.DisplayName
	}

	res := rg.CorrelationResult{
		SubjectA:  subjectA,
		SubjectB:  a.normalizeMetric(fields["p2"]),
		Rg:        coerce(fields["rg"]),
		SE:        coerce(fields["se"]),
		Z:         coerce(fields["z"]),
		P:         coerce(fields["p"]),
		H2Obs:     coerce(fields["h2_obs"]),
		H2ObsSE:   coerce(fields["h2_obs_se"]),
		H2Int:     coerce(fields["h2_int"]),
		H2IntSE:   coerce(fields["h2_int_se"]),
		GcovInt:   coerce(fields["gcov_int"]),
		GcovIntSE: coerce(fields["gcov_int_se"]),
		SourceLog: raw.Path,
	}

	// the estimator occasionally reports z without p; backfill the
	// two-sided p from the standard normal it uses itself
	if rg.IsMissing(res.P) && !rg.IsMissing(res.Z) {
		res.P = 2 * distuv.UnitNormal.Survival(math.Abs(res.Z))
	}
	return res, nil
}

// normalizeMetric strips the path decoration carried only by the auxiliary
// metric sumstat files
func (a *Assembler) normalizeMetric(p2 string) string {
	s := strings.TrimPrefix(p2, a.cfg.MetricPrefix)
	s = filepath.Base(s)
	s = strings.TrimSuffix(s, a.cfg.MetricSuffix)
	return s
}

// coerce parses one numeric token. The estimator writes literal "NA" for
// undefined statistics; that is the expected missing representation, not a
// parse failure, and any other unparseable token is treated the same way.
func coerce(token string) float64 {
	if token == "" || strings.EqualFold(token, "NA") {
		return rg.Missing()
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return rg.Missing()
	}
	return v
}

// FilterReliableGroups applies the group-level reliability filter: one row
// with se > 0.2 or a missing rg invalidates the subject's heritability
// estimate and therefore every one of its correlation estimates, so the
// entire subject-A group is discarded, not just the offending row.
func FilterReliableGroups(results []rg.CorrelationResult) ([]rg.CorrelationResult, []GroupDiscard) {
	bad := make(map[string]bool)
	seByGroup := make(map[string][]float64)
	rowsByGroup := make(map[string]int)
	for _, r := range results {
		rowsByGroup[r.SubjectA]++
		if !rg.IsMissing(r.SE) {
			seByGroup[r.SubjectA] = append(seByGroup[r.SubjectA], r.SE)
		}
		if !r.Reliable() {
			bad[r.SubjectA] = true
		}
	}

	kept := make([]rg.CorrelationResult, 0, len(results))
	for _, r := range results {
		if !bad[r.SubjectA] {
			kept = append(kept, r)
		}
	}

	discards := make([]GroupDiscard, 0, len(bad))
	for subject := range bad {
		d := GroupDiscard{Subject: subject, Rows: rowsByGroup[subject]}
		if ses := seByGroup[subject]; len(ses) > 0 {
			d.MaxSE, _ = mstats.Max(ses)
			d.MedianSE, _ = mstats.Median(ses)
		}
		discards = append(discards, d)
	}
	sort.Slice(discards, func(i, j int) bool { return discards[i].Subject < discards[j].Subject })

	if len(discards) > 0 {
		log.Printf("[Assembler] reliability filter discarded %d subject group(s)", len(discards))
	}
	return kept, discards
}
