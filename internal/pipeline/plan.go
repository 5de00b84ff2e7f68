package pipeline

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/thesis-scout/internal/config"
	"github.com/sells-group/thesis-scout/internal/model"
	"github.com/sells-group/thesis-scout/pkg/anthropic"
)

const plannerPrompt = `You are a venture research analyst expanding an investment thesis into a research plan.

Investment thesis:
%s

Produce a research plan covering:
1. primary_keywords: 3-5 keywords for finding companies directly executing this thesis.
2. adjacent_themes: 5-8 themes capturing second-order implications. For each, classify the causal order:
   - "2nd": enablers the thesis directly creates demand for
   - "3rd": downstream beneficiaries of the second-order effects
   - "picks_shovels": infrastructure and tooling providers to companies in this space
   - "parallel": applications of the same underlying technology in other markets
   Include a one-sentence rationale per theme.
3. categories: industry categories a structured company database would file these companies under.
4. search_queries: 5-8 concrete web search queries for finding early-stage companies in this space.
5. public_comps: public-market tickers whose performance this thesis would track.
6. summary: a one-paragraph restatement of the thesis and its strongest adjacent opportunity.

Return a single JSON object:
{"primary_keywords": [...], "adjacent_themes": [{"theme": ..., "order": ..., "rationale": ...}], "categories": [...], "search_queries": [...], "public_comps": [...], "summary": ...}`

// planSchema gates the planner's output before anything downstream sees it.
const planSchema = `{
	"type": "object",
	"required": ["primary_keywords", "adjacent_themes", "search_queries", "summary"],
	"properties": {
		"primary_keywords": {"type": "array", "minItems": 1, "items": {"type": "string"}},
		"adjacent_themes": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["theme", "order"],
				"properties": {
					"theme": {"type": "string"},
					"order": {"type": "string", "enum": ["2nd", "3rd", "picks_shovels", "parallel"]},
					"rationale": {"type": "string"}
				}
			}
		},
		"categories": {"type": "array", "items": {"type": "string"}},
		"search_queries": {"type": "array", "minItems": 1, "items": {"type": "string"}},
		"public_comps": {"type": "array", "items": {"type": "string"}},
		"summary": {"type": "string"}
	}
}`

// BuildPlan expands a thesis into a QueryPlan with one model call. This is
// the only stage with no soft-fail path: the whole pipeline depends on its
// output, so an unparseable response fails the run.
func BuildPlan(ctx context.Context, llm anthropic.Client, cfg config.AnthropicConfig, thesisText string) (*model.QueryPlan, anthropic.TokenUsage, error) {
	req := anthropic.MessageRequest{
		Model:     cfg.SonnetModel,
		MaxTokens: 4096,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(plannerPrompt, thesisText)},
		},
	}
	if cfg.ThinkingBudget > 0 {
		req.ThinkingBudget = cfg.ThinkingBudget
		req.MaxTokens += cfg.ThinkingBudget
	}

	resp, err := llm.CreateMessage(ctx, req)
	if err != nil {
		return nil, anthropic.TokenUsage{}, eris.Wrap(err, "plan: create message")
	}

	var plan model.QueryPlan
	if err := decodeValidated(resp.Text(), planSchema, &plan); err != nil {
		return nil, resp.Usage, eris.Wrap(err, "plan: parse response")
	}

	zap.L().Info("query plan built",
		zap.Int("keywords", len(plan.PrimaryKeywords)),
		zap.Int("themes", len(plan.AdjacentThemes)),
		zap.Int("queries", len(plan.SearchQueries)),
	)
	resp.Usage.LogCost(cfg.SonnetModel, "plan")

	return &plan, resp.Usage, nil
}
