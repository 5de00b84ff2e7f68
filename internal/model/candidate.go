package model

import "strings"

// CandidateSource identifies which provider discovered a candidate.
type CandidateSource string

const (
	SourceCrunchbase CandidateSource = "crunchbase"
	SourceWeb        CandidateSource = "web"
)

// DiscoverySource identifies which part of the query plan surfaced a candidate.
type DiscoverySource string

const (
	DiscoveredPrimary       DiscoverySource = "primary"
	DiscoveredAdjacentTheme DiscoverySource = "adjacent_theme"
)

// FitType classifies how a candidate relates to the thesis.
type FitType string

const (
	FitDirect   FitType = "direct"
	Fit2ndOrder FitType = "2nd_order"
	Fit3rdOrder FitType = "3rd_order"
)

// SourceRef is a single citation attached to a candidate.
type SourceRef struct {
	Type  string `json:"type"`
	URL   string `json:"url"`
	Label string `json:"label,omitempty"`
}

// Candidate is a company discovered during one research run. It is created
// once by discovery, enriched in place by the fit filter and deep analysis,
// and only ever dropped by filter thresholds, never deleted.
type Candidate struct {
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Website         string `json:"website,omitempty"`
	FoundedYear     int    `json:"founded_year,omitempty"`
	FundingTotalUSD int64  `json:"funding_total_usd,omitempty"`
	LastFundingType string `json:"last_funding_type,omitempty"`
	OperatingStatus string `json:"operating_status,omitempty"`

	// Provenance, recorded at discovery time.
	Source             CandidateSource `json:"source"`
	DiscoverySource    DiscoverySource `json:"discovery_source"`
	DiscoveredViaTheme string          `json:"discovered_via_theme,omitempty"`
	DiscoveryQuery     string          `json:"discovery_query,omitempty"`
	Sources            []SourceRef     `json:"sources,omitempty"`
	FundingStage       FundingStage    `json:"funding_stage"`

	// Web-discovered candidates carry no verified website until the
	// enrichment step resolves them against the company database.
	NeedsEnrichment bool `json:"needs_enrichment,omitempty"`
	Verified        bool `json:"verified,omitempty"`

	// Set by the fit filter.
	FitScore  int     `json:"fit_score,omitempty"`
	FitType   FitType `json:"fit_type,omitempty"`
	FitReason string  `json:"fit_reason,omitempty"`

	// Set by deep analysis.
	Writeup         string `json:"writeup,omitempty"`
	ThesisRelevance int    `json:"thesis_relevance,omitempty"`
	Recency         int    `json:"recency,omitempty"`
	FoundingTeam    int    `json:"founding_team,omitempty"`
	TotalScore      int    `json:"total_score,omitempty"`
}

// NormalizeName produces the deduplication key for a candidate name.
// Two candidates with equal normalized names are the same company within
// a run; the first-discovered record is kept.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidName reports whether a discovered name is usable as an identity:
// non-trivial and short enough to be a real company name rather than a
// sentence scraped from a page title.
func ValidName(name string) bool {
	n := len(strings.TrimSpace(name))
	return n > 1 && n < 100
}
