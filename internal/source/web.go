package source

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/thesis-scout/internal/model"
	"github.com/sells-group/thesis-scout/pkg/tavily"
)

// excludedDomains are aggregator, news, and social sites whose search hits
// are coverage about companies, not companies themselves.
var excludedDomains = map[string]bool{
	"techcrunch.com":      true,
	"crunchbase.com":      true,
	"pitchbook.com":       true,
	"linkedin.com":        true,
	"twitter.com":         true,
	"x.com":               true,
	"facebook.com":        true,
	"reddit.com":          true,
	"medium.com":          true,
	"substack.com":        true,
	"forbes.com":          true,
	"bloomberg.com":       true,
	"reuters.com":         true,
	"wsj.com":             true,
	"businessinsider.com": true,
	"cbinsights.com":      true,
	"wikipedia.org":       true,
	"youtube.com":         true,
	"github.com":          true,
	"producthunt.com":     true,
	"ycombinator.com":     true,
	"angel.co":            true,
	"wellfound.com":       true,
}

// titleSeparators split a result title into segments; the company name, when
// present, leads.
var titleSeparators = regexp.MustCompile(`\s+[-–|]\s+|:\s+`)

// corporateSuffix strips a trailing corporate form from an extracted name.
var corporateSuffix = regexp.MustCompile(`(?i),?\s+(inc\.?|llc\.?|ltd\.?|corp\.?|company)$`)

// WebAdapter discovers candidates via free-text web search. Results name
// companies loosely, so extracted candidates are marked for enrichment and
// carry no website: an article URL is not a company's own site.
type WebAdapter struct {
	client        tavily.Client
	freshnessDays int
}

// NewWebAdapter creates a web-search-backed adapter. A nil client (missing
// credential) yields an adapter that returns no results.
func NewWebAdapter(client tavily.Client, freshnessDays int) *WebAdapter {
	return &WebAdapter{client: client, freshnessDays: freshnessDays}
}

// Name implements Adapter.
func (a *WebAdapter) Name() model.CandidateSource {
	return model.SourceWeb
}

// Search implements Adapter.
func (a *WebAdapter) Search(ctx context.Context, query string, limit int) []model.Candidate {
	if a.client == nil {
		return nil
	}

	resp, err := a.client.Search(ctx, tavily.SearchRequest{
		Query:      query,
		MaxResults: limit,
		Days:       a.freshnessDays,
	})
	if err != nil {
		zap.L().Warn("web search failed, returning no results",
			zap.String("query", query),
			zap.Error(err),
		)
		return nil
	}

	var candidates []model.Candidate
	for _, r := range resp.Results {
		if ExcludedDomain(r.URL) {
			continue
		}
		name, ok := CompanyNameFromTitle(r.Title)
		if !ok {
			continue
		}
		candidates = append(candidates, model.Candidate{
			Name:            name,
			Description:     r.Description,
			Source:          model.SourceWeb,
			NeedsEnrichment: true,
			Sources: []model.SourceRef{
				{Type: "web", URL: r.URL, Label: r.Title},
			},
		})
	}
	return candidates
}

// SearchSources runs a web search and returns thesis-level citations
// instead of candidates: evidence supporting the thesis itself, categorized
// and tiered by the publishing domain. Same fail-to-empty contract as Search.
func (a *WebAdapter) SearchSources(ctx context.Context, query string, limit int) []model.ThesisSource {
	if a.client == nil {
		return nil
	}

	resp, err := a.client.Search(ctx, tavily.SearchRequest{
		Query:      query,
		MaxResults: limit,
		Days:       a.freshnessDays,
	})
	if err != nil {
		zap.L().Warn("source search failed, returning no results",
			zap.String("query", query),
			zap.Error(err),
		)
		return nil
	}

	var out []model.ThesisSource
	for _, r := range resp.Results {
		srcType, tier := ClassifySource(r.URL)
		out = append(out, model.ThesisSource{
			Title:       r.Title,
			URL:         r.URL,
			Description: r.Description,
			Type:        srcType,
			Tier:        tier,
			Query:       query,
		})
	}
	return out
}

// researchDomains map known publishers to a source type and quality tier.
var researchDomains = map[string]struct {
	srcType model.SourceType
	tier    int
}{
	"patents.google.com": {model.SourceTypePatent, 1},
	"arxiv.org":          {model.SourceTypePaper, 1},
	"nature.com":         {model.SourceTypePaper, 1},
	"science.org":        {model.SourceTypePaper, 1},
	"ssrn.com":           {model.SourceTypePaper, 1},
	"a16z.com":           {model.SourceTypeVCResearch, 2},
	"sequoiacap.com":     {model.SourceTypeVCResearch, 2},
	"bvp.com":            {model.SourceTypeVCResearch, 2},
	"nfx.com":            {model.SourceTypeVCResearch, 2},
	"mckinsey.com":       {model.SourceTypeReport, 2},
	"bcg.com":            {model.SourceTypeReport, 2},
	"gartner.com":        {model.SourceTypeReport, 2},
	"deloitte.com":       {model.SourceTypeReport, 2},
	"substack.com":       {model.SourceTypeNewsletter, 3},
}

// ClassifySource categorizes a citation URL into a source type and quality
// tier: 1 academic/patent, 2 VC/consulting research, 3 general coverage.
func ClassifySource(rawURL string) (model.SourceType, int) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return model.SourceTypeArticle, 3
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	if c, ok := researchDomains[host]; ok {
		return c.srcType, c.tier
	}
	if strings.HasSuffix(host, ".edu") {
		return model.SourceTypePaper, 1
	}
	parts := strings.Split(host, ".")
	if len(parts) > 2 {
		if c, ok := researchDomains[strings.Join(parts[len(parts)-2:], ".")]; ok {
			return c.srcType, c.tier
		}
	}
	return model.SourceTypeArticle, 3
}

// ExcludedDomain reports whether a result URL belongs to a known
// aggregator/news/social domain.
func ExcludedDomain(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if excludedDomains[host] {
		return true
	}
	// Match registrable domain for subdomain hits like news.ycombinator.com.
	parts := strings.Split(host, ".")
	if len(parts) > 2 {
		return excludedDomains[strings.Join(parts[len(parts)-2:], ".")]
	}
	return false
}

// CompanyNameFromTitle extracts a probable company name from a free-text
// result title: first segment before common separator punctuation, trailing
// corporate suffix stripped. Accepts only names of 3-49 characters.
func CompanyNameFromTitle(title string) (string, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", false
	}

	segments := titleSeparators.Split(title, 2)
	name := strings.TrimSpace(segments[0])
	name = corporateSuffix.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)

	if len(name) < 3 || len(name) >= 50 {
		return "", false
	}
	return name, true
}
