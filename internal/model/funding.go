package model

import "strings"

// FundingStage buckets a raw funding-round type into the coarse lifecycle
// classes discovery filters on.
type FundingStage string

const (
	StageEarly   FundingStage = "early"
	StageLate    FundingStage = "late"
	StageUnknown FundingStage = "unknown"
)

// earlyRounds are round types kept by discovery.
var earlyRounds = map[string]bool{
	"seed":             true,
	"pre_seed":         true,
	"angel":            true,
	"grant":            true,
	"convertible_note": true,
	"series_a":         true,
}

// lateRounds are round types excluded by discovery: series B and beyond,
// private equity, any post-IPO state, debt, and secondaries.
var lateRounds = map[string]bool{
	"series_b":           true,
	"series_c":           true,
	"series_d":           true,
	"series_e":           true,
	"series_f":           true,
	"series_g":           true,
	"series_h":           true,
	"series_i":           true,
	"series_j":           true,
	"private_equity":     true,
	"post_ipo_equity":    true,
	"post_ipo_debt":      true,
	"post_ipo_secondary": true,
	"debt_financing":     true,
	"secondary_market":   true,
}

// ClassifyFundingStage maps a raw provider funding-round string to a
// FundingStage. Normalization lowercases and folds spaces and hyphens to
// underscores, so "Series A", "series-a", and "series_a" all classify
// identically. Unrecognized or empty values are StageUnknown.
func ClassifyFundingStage(raw string) FundingStage {
	norm := NormalizeFundingType(raw)
	switch {
	case norm == "":
		return StageUnknown
	case earlyRounds[norm]:
		return StageEarly
	case lateRounds[norm]:
		return StageLate
	default:
		return StageUnknown
	}
}

// NormalizeFundingType canonicalizes a raw funding-round type string.
func NormalizeFundingType(raw string) string {
	norm := strings.ToLower(strings.TrimSpace(raw))
	norm = strings.ReplaceAll(norm, " ", "_")
	norm = strings.ReplaceAll(norm, "-", "_")
	return norm
}
