package manifest

import (
	"log"
	"sort"

	"gencorr/domain/core"
)

// rawVariant is the manifest's label for untransformed download files.
// Transformed ("irnt") variants are preferred whenever both exist.
const rawVariant = "raw"

// Resolver maps display names to canonical sumstat records. Stratum
// overrides are data-quality policy: most traits use the both-sexes file,
// a few are only meaningful within one stratum.
type Resolver struct {
	FemaleOnly map[string]bool // traits resolved against the female stratum
	MaleOnly   map[string]bool // traits resolved against the male stratum

	// ForcedFemale relabels both-sexes entries to female before stratum
	// filtering. Used for traits where no male variant is biologically
	// meaningful but the manifest still files them under both_sexes.
	ForcedFemale map[string]bool
}

// NewResolver creates a resolver with the default stratum policy
func NewResolver() *Resolver {
	return &Resolver{
		FemaleOnly: map[string]bool{},
		MaleOnly:   map[string]bool{},
		ForcedFemale: map[string]bool{
			"Endometriosis of uterus": true,
		},
	}
}

// disambiguator is one step of the ordered narrowing chain. Steps apply in
// order until exactly one candidate remains; a step that would eliminate
// every candidate is skipped only when marked conditional.
type disambiguator struct {
	name        string
	conditional bool // only applied while >1 candidates remain
	apply       func(string, []Entry) []Entry
}

// Resolve collapses all manifest entries for one display name into a single
// SumstatRecord. Zero or multiple survivors after the full chain indicate a
// manifest data-quality problem and fail with ErrAmbiguousIdentifier.
func (r *Resolver) Resolve(displayName string, entries []Entry) (SumstatRecord, error) {
	candidates := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Description == displayName {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return SumstatRecord{}, core.NewUnknownIdentifierError(displayName)
	}

	for _, step := range r.steps() {
		if step.conditional && len(candidates) <= 1 {
			break
		}
		candidates = step.apply(displayName, candidates)
	}

	if len(candidates) != 1 {
		return SumstatRecord{}, core.NewAmbiguousIdentifierError(displayName, len(candidates))
	}

	chosen := candidates[0]
	return SumstatRecord{
		Identifier:  chosen.Phenotype,
		DisplayName: chosen.Description,
		FilePath:    chosen.FilePath,
		SexStratum:  chosen.Sex,
		IsPrimary:   chosen.IsPrimary,
	}, nil
}

// ResolveAll resolves every requested display name, returning the map used
// as the join key space for the rest of the pipeline. Any ambiguity is
// fatal: a silently mis-resolved identifier would corrupt every downstream
// join for that trait.
func (r *Resolver) ResolveAll(displayNames []string, entries []Entry) (map[string]SumstatRecord, error) {
	resolved := make(map[string]SumstatRecord, len(displayNames))
	for _, name := range displayNames {
		rec, err := r.Resolve(name, entries)
		if err != nil {
			return nil, err
		}
		resolved[name] = rec
	}
	return resolved, nil
}

// ByFilePath inverts a resolved map for joining results (keyed by the file
// path the estimator was run against) back to display names.
func ByFilePath(resolved map[string]SumstatRecord) map[string]SumstatRecord {
	byPath := make(map[string]SumstatRecord, len(resolved))
	for _, rec := range resolved {
		byPath[rec.FilePath] = rec
	}
	return byPath
}

// SortedNames returns resolved display names in deterministic order
func SortedNames(resolved map[string]SumstatRecord) []string {
	names := make([]string, 0, len(resolved))
	for name := range resolved {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// steps returns the ordered disambiguation chain. Order matters: stratum
// selection always applies, variant and primary narrowing only while the
// candidate set is still ambiguous.
func (r *Resolver) steps() []disambiguator {
	return []disambiguator{
		{name: "stratum", apply: r.filterStratum},
		{name: "drop-raw", conditional: true, apply: dropRawVariants},
		{name: "keep-primary", conditional: true, apply: keepPrimary},
	}
}

func (r *Resolver) filterStratum(displayName string, entries []Entry) []Entry {
	want := StratumBoth
	switch {
	case r.FemaleOnly[displayName] || r.ForcedFemale[displayName]:
		want = StratumFemale
	case r.MaleOnly[displayName]:
		want = StratumMale
	}

	kept := entries[:0:0]
	for _, e := range entries {
		sex := e.Sex
		if r.ForcedFemale[displayName] && sex == StratumBoth {
			log.Printf("[Resolver] relabeling %q from both_sexes to female", displayName)
			sex = StratumFemale
		}
		if sex == want {
			kept = append(kept, e)
		}
	}
	return kept
}

func dropRawVariants(_ string, entries []Entry) []Entry {
	kept := entries[:0:0]
	for _, e := range entries {
		if e.Variant != rawVariant {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		// every candidate is raw; narrowing here would erase the trait
		return entries
	}
	return kept
}

func keepPrimary(_ string, entries []Entry) []Entry {
	kept := entries[:0:0]
	for _, e := range entries {
		if e.IsPrimary {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		return entries
	}
	return kept
}
