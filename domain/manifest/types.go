package manifest

import (
	"fmt"
	"strings"
)

// SexStratum identifies which sex stratum a sumstat file was computed on
type SexStratum string

const (
	StratumFemale SexStratum = "female"
	StratumMale   SexStratum = "male"
	StratumBoth   SexStratum = "both_sexes"
)

// ParseSexStratum parses the manifest's sex column
func ParseSexStratum(s string) (SexStratum, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "female":
		return StratumFemale, nil
	case "male":
		return StratumMale, nil
	case "both_sexes", "both":
		return StratumBoth, nil
	}
	return "", fmt.Errorf("unknown sex stratum %q", s)
}

// Entry is one row of the sumstat manifest table, pre-resolution.
// Several entries can share a description (sex strata, raw vs transformed
// variants, re-runs); resolution collapses them to one SumstatRecord.
type Entry struct {
	Description string     // human-readable phenotype description
	Phenotype   string     // internal phenotype code
	Sex         SexStratum // stratum this file was computed on
	IsPrimary   bool       // manifest's is_primary_gwas flag
	Variant     string     // transform variant, e.g. "irnt" or "raw"
	FilePath    string     // sumstat file this entry points at
}

// SumstatRecord is the resolved, canonical source for one display name.
// Invariant: after resolution each display name maps to exactly one file path.
type SumstatRecord struct {
	Identifier  string     `json:"identifier"`
	DisplayName string     `json:"display_name"`
	FilePath    string     `json:"file_path"`
	SexStratum  SexStratum `json:"sex_stratum"`
	IsPrimary   bool       `json:"is_primary"`
}

// pathUnsafe matches characters that would split or mangle an artifact path
var pathUnsafe = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	" ", "_",
	"(", "",
	")", "",
	",", "",
	"'", "",
)

// SanitizeName turns a display name into a filesystem-safe token for
// naming output artifacts
func SanitizeName(displayName string) string {
	return pathUnsafe.Replace(strings.TrimSpace(displayName))
}
