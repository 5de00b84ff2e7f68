package model

import "time"

// ThesisStatus represents the lifecycle state of a research run.
type ThesisStatus string

const (
	ThesisStatusPending  ThesisStatus = "pending"
	ThesisStatusRunning  ThesisStatus = "running"
	ThesisStatusComplete ThesisStatus = "complete"
	ThesisStatusFailed   ThesisStatus = "failed"
)

// Thesis is one natural-language investment hypothesis and the run it drives.
// Created when a run starts; mutated only by the orchestrator at completion
// or failure, never mid-run.
type Thesis struct {
	ID             string          `json:"id"`
	Text           string          `json:"text"`
	Status         ThesisStatus    `json:"status"`
	Summary        string          `json:"summary,omitempty"`
	PublicComps    []string        `json:"public_comps,omitempty"`
	AdjacentThemes []AdjacentTheme `json:"adjacent_themes,omitempty"`
	Stats          DiscoveryStats  `json:"stats"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// DiscoveryStats counts surviving companies by how they were discovered.
type DiscoveryStats struct {
	DirectThesis   int `json:"direct_thesis"`
	AdjacentThemes int `json:"adjacent_themes"`
}

// ThemeOrder classifies how an adjacent theme relates to the thesis.
type ThemeOrder string

const (
	// ThemeOrder2nd marks direct enablers of the thesis.
	ThemeOrder2nd ThemeOrder = "2nd"
	// ThemeOrder3rd marks downstream beneficiaries.
	ThemeOrder3rd ThemeOrder = "3rd"
	// ThemeOrderPicksShovels marks infrastructure and tooling providers.
	ThemeOrderPicksShovels ThemeOrder = "picks_shovels"
	// ThemeOrderParallel marks parallel applications of the same technology.
	ThemeOrderParallel ThemeOrder = "parallel"
)

// AdjacentTheme is a second/third-order market implication of a thesis,
// used to broaden discovery beyond literal keyword matches.
type AdjacentTheme struct {
	Theme     string     `json:"theme"`
	Order     ThemeOrder `json:"order"`
	Rationale string     `json:"rationale,omitempty"`
}

// QueryPlan is the structured research plan produced by the query planner.
// Immutable once produced; consumed by discovery and the fit filter.
type QueryPlan struct {
	PrimaryKeywords []string        `json:"primary_keywords"`
	AdjacentThemes  []AdjacentTheme `json:"adjacent_themes"`
	Categories      []string        `json:"categories,omitempty"`
	SearchQueries   []string        `json:"search_queries"`
	PublicComps     []string        `json:"public_comps,omitempty"`
	Summary         string          `json:"summary"`
}

// SourceType categorizes a thesis-level citation.
type SourceType string

const (
	SourceTypePatent     SourceType = "patent"
	SourceTypePaper      SourceType = "paper"
	SourceTypeVCResearch SourceType = "vc_research"
	SourceTypeReport     SourceType = "report"
	SourceTypeNewsletter SourceType = "newsletter"
	SourceTypeArticle    SourceType = "article"
)

// ThesisSource is a citation supporting the thesis itself, independent of
// any company. Deduplicated by normalized URL within a run.
type ThesisSource struct {
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Description string     `json:"description,omitempty"`
	Type        SourceType `json:"type"`
	Tier        int        `json:"tier"` // 1 academic/patent, 2 VC/consulting, 3 general
	Query       string     `json:"query,omitempty"`
}
