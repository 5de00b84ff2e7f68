package source

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/thesis-scout/internal/model"
	"github.com/sells-group/thesis-scout/pkg/crunchbase"
)

// earlyFundingTypes is the last_funding_type filter sent with every search,
// so the provider does the first cut of stage filtering server-side.
var earlyFundingTypes = []any{
	"seed", "pre_seed", "angel", "grant", "convertible_note", "series_a",
}

// CrunchbaseAdapter discovers candidates via Crunchbase predicate search.
type CrunchbaseAdapter struct {
	client       crunchbase.Client
	foundedAfter string // ISO date lower bound on founded_on, e.g. "2015-01-01"
}

// NewCrunchbaseAdapter creates a Crunchbase-backed adapter. A nil client
// (missing credential) yields an adapter that returns no results.
func NewCrunchbaseAdapter(client crunchbase.Client, foundedAfter string) *CrunchbaseAdapter {
	return &CrunchbaseAdapter{client: client, foundedAfter: foundedAfter}
}

// Name implements Adapter.
func (a *CrunchbaseAdapter) Name() model.CandidateSource {
	return model.SourceCrunchbase
}

// Search implements Adapter. It issues a description-scoped predicate search
// restricted to early funding rounds and recent founding dates, ordered by
// organization rank.
func (a *CrunchbaseAdapter) Search(ctx context.Context, query string, limit int) []model.Candidate {
	if a.client == nil {
		return nil
	}

	req := crunchbase.SearchRequest{
		Predicates: []crunchbase.Predicate{
			{FieldID: "description", OperatorID: "contains", Values: []any{query}},
			{FieldID: "last_funding_type", OperatorID: "includes", Values: earlyFundingTypes},
		},
		Order: &crunchbase.Order{FieldID: "rank_org", Sort: "asc"},
		Limit: limit,
	}
	if a.foundedAfter != "" {
		req.Predicates = append(req.Predicates, crunchbase.Predicate{
			FieldID: "founded_on", OperatorID: "gte", Values: []any{a.foundedAfter},
		})
	}

	orgs, err := a.client.SearchOrganizations(ctx, req)
	if err != nil {
		zap.L().Warn("crunchbase search failed, returning no results",
			zap.String("query", query),
			zap.Error(err),
		)
		return nil
	}

	candidates := make([]model.Candidate, 0, len(orgs))
	for _, org := range orgs {
		candidates = append(candidates, candidateFromOrganization(org))
	}
	return candidates
}

// candidateFromOrganization maps a provider field bundle onto a Candidate.
func candidateFromOrganization(org crunchbase.Organization) model.Candidate {
	c := model.Candidate{
		Name:            org.Name,
		Description:     org.ShortDescription,
		Website:         org.WebsiteURL,
		FoundedYear:     org.FoundedYear,
		FundingTotalUSD: org.FundingTotalUSD,
		LastFundingType: org.LastFundingType,
		OperatingStatus: org.OperatingStatus,
		Source:          model.SourceCrunchbase,
		Verified:        true,
	}
	if org.Permalink != "" {
		c.Sources = append(c.Sources, model.SourceRef{
			Type:  "crunchbase",
			URL:   "https://www.crunchbase.com/organization/" + org.Permalink,
			Label: org.Name + " on Crunchbase",
		})
	}
	return c
}

// Enrich resolves a loosely-identified company (typically web-discovered)
// into a verified Crunchbase record. It searches by name, applies the match
// guard, and fetches the full record for the accepted match. Returns nil
// when nothing passes the guard; guessing is worse than no match.
func (a *CrunchbaseAdapter) Enrich(ctx context.Context, name, contextDesc string) *model.Candidate {
	if a.client == nil || name == "" {
		return nil
	}

	orgs, err := a.client.SearchOrganizations(ctx, crunchbase.SearchRequest{
		Predicates: []crunchbase.Predicate{
			{FieldID: "identifier", OperatorID: "contains", Values: []any{name}},
		},
		Limit: 10,
	})
	if err != nil {
		zap.L().Warn("crunchbase enrich search failed",
			zap.String("name", name),
			zap.Error(err),
		)
		return nil
	}

	match := matchOrganization(orgs, name, contextDesc)
	if match == nil {
		return nil
	}

	full := match
	if match.Permalink != "" {
		if rec, err := a.client.GetOrganization(ctx, match.Permalink); err != nil {
			zap.L().Warn("crunchbase enrich lookup failed, using search record",
				zap.String("permalink", match.Permalink),
				zap.Error(err),
			)
		} else {
			full = rec
		}
	}

	c := candidateFromOrganization(*full)
	return &c
}

// minContextLen is the minimum description length before contextual keyword
// checking kicks in; shorter context carries too little signal to gate on.
const minContextLen = 20

// matchOrganization picks the search result that is actually the same
// company as the query name, or nil.
//
// Guard: the names must be equal or one must contain the other
// (case-insensitive), and when description context is available a long
// contextual word (>4 chars) must appear in the record's description.
// The second check exists specifically to reject same-named but unrelated
// companies.
func matchOrganization(orgs []crunchbase.Organization, name, contextDesc string) *crunchbase.Organization {
	queryName := model.NormalizeName(name)
	if queryName == "" {
		return nil
	}

	contextWords := longWords(contextDesc)
	useContext := len(strings.TrimSpace(contextDesc)) >= minContextLen && len(contextWords) > 0

	for i, org := range orgs {
		candName := model.NormalizeName(org.Name)
		if candName == "" {
			continue
		}
		if candName != queryName &&
			!strings.Contains(candName, queryName) &&
			!strings.Contains(queryName, candName) {
			continue
		}
		if useContext {
			desc := strings.ToLower(org.ShortDescription)
			found := false
			for _, w := range contextWords {
				if strings.Contains(desc, w) {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		return &orgs[i]
	}
	return nil
}

// longWords extracts lowercase words longer than 4 characters.
func longWords(text string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:()[]\"'")
		if len(w) > 4 {
			out = append(out, w)
		}
	}
	return out
}
