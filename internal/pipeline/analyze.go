package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/thesis-scout/internal/config"
	"github.com/sells-group/thesis-scout/internal/model"
	"github.com/sells-group/thesis-scout/pkg/anthropic"
)

const analysisPrompt = `You are writing investment research briefs on early-stage startups.

Investment thesis:
%s

Companies:
%s

For each company, write a 2-3 paragraph investment brief: what they do, why
they fit or fail the thesis, notable risks. Score each company on three
1-10 scales: thesis_relevance, recency (how recent and active their
traction signals are), and founding_team.

Only analyze the companies listed above, using each name exactly as
written. Do not invent companies, and do not infer what a company does
from its name alone; use the given description.

Return a single JSON object:
{"companies": [{"name": ..., "writeup": ..., "thesis_relevance": <1-10>, "recency": <1-10>, "founding_team": <1-10>, "website": "<company website if you know it, else empty string>", "founded_year": <year as integer, 0 if unknown>}]}`

// analysisSchema gates the batched briefs before anything is merged.
const analysisSchema = `{
	"type": "object",
	"required": ["companies"],
	"properties": {
		"companies": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name", "writeup", "thesis_relevance", "recency", "founding_team"],
				"properties": {
					"name": {"type": "string"},
					"writeup": {"type": "string"},
					"thesis_relevance": {"type": "integer", "minimum": 1, "maximum": 10},
					"recency": {"type": "integer", "minimum": 1, "maximum": 10},
					"founding_team": {"type": "integer", "minimum": 1, "maximum": 10},
					"website": {"type": "string"},
					"founded_year": {"type": "integer"}
				}
			}
		}
	}
}`

type analysisBrief struct {
	Name            string `json:"name"`
	Writeup         string `json:"writeup"`
	ThesisRelevance int    `json:"thesis_relevance"`
	Recency         int    `json:"recency"`
	FoundingTeam    int    `json:"founding_team"`
	Website         string `json:"website"`
	FoundedYear     int    `json:"founded_year"`
}

type analysisReport struct {
	Companies []analysisBrief `json:"companies"`
}

// AnalyzeCandidates writes investment briefs for the top N candidates by
// fit score in one batched model call. A brief naming a company outside
// the batch is dropped, never invented. An unusable response fails the
// run: past this stage there is no cheaper result to fall back to, so the
// error propagates instead of completing with nothing to show.
// Analyzed candidates come back in the order the model covered them, not
// ranked; ranking is the caller's concern.
func AnalyzeCandidates(ctx context.Context, llm anthropic.Client, cfg *config.Config, thesisText string, candidates []model.Candidate) ([]model.Candidate, anthropic.TokenUsage, error) {
	topN := cfg.Pipeline.DeepAnalysisTopN
	if topN > 0 && len(candidates) > topN {
		candidates = candidates[:topN]
	}
	if len(candidates) == 0 {
		return nil, anthropic.TokenUsage{}, nil
	}

	req := anthropic.MessageRequest{
		Model:     cfg.Anthropic.SonnetModel,
		MaxTokens: 8192,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(analysisPrompt, thesisText, analysisRoster(candidates))},
		},
	}

	resp, err := llm.CreateMessage(ctx, req)
	if err != nil {
		return nil, anthropic.TokenUsage{}, eris.Wrap(err, "analyze: create message")
	}

	var report analysisReport
	if err := decodeValidated(resp.Text(), analysisSchema, &report); err != nil {
		return nil, resp.Usage, eris.Wrap(err, "analyze: parse response")
	}

	byName := make(map[string]int, len(candidates))
	for i, c := range candidates {
		byName[model.NormalizeName(c.Name)] = i
	}

	applied := make(map[string]bool, len(report.Companies))
	var analyzed []model.Candidate
	for i := range report.Companies {
		brief := &report.Companies[i]
		key := model.NormalizeName(brief.Name)
		idx, ok := byName[key]
		if !ok {
			zap.L().Warn("analysis named an unknown company, dropping brief",
				zap.String("name", brief.Name))
			continue
		}
		if applied[key] {
			continue
		}
		applied[key] = true
		analyzed = append(analyzed, applyBrief(candidates[idx], brief))
	}

	zap.L().Info("deep analysis complete",
		zap.Int("requested", len(candidates)),
		zap.Int("analyzed", len(analyzed)),
	)
	resp.Usage.LogCost(cfg.Anthropic.SonnetModel, "analyze")

	return analyzed, resp.Usage, nil
}

// analysisRoster renders the batch with everything discovery verified, so
// the model grounds its briefs instead of guessing.
func analysisRoster(candidates []model.Candidate) string {
	var b strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c.Name)
		if c.Description != "" {
			fmt.Fprintf(&b, "   Description: %s\n", clip(c.Description, 400))
		}
		if c.Website != "" {
			fmt.Fprintf(&b, "   Website: %s\n", c.Website)
		}
		if c.LastFundingType != "" {
			fmt.Fprintf(&b, "   Last funding: %s\n", c.LastFundingType)
		}
		if c.FoundedYear > 0 {
			fmt.Fprintf(&b, "   Founded: %d\n", c.FoundedYear)
		}
	}
	return b.String()
}

// applyBrief merges the model's brief into the candidate. Scores and the
// writeup always come from the brief; identity fields only fill gaps, a
// verified provider record is never overwritten by a model assertion.
func applyBrief(c model.Candidate, brief *analysisBrief) model.Candidate {
	c.Writeup = brief.Writeup
	c.ThesisRelevance = clampScore(brief.ThesisRelevance)
	c.Recency = clampScore(brief.Recency)
	c.FoundingTeam = clampScore(brief.FoundingTeam)
	c.TotalScore = c.ThesisRelevance + c.Recency + c.FoundingTeam

	if c.Website == "" && brief.Website != "" {
		c.Website = brief.Website
	}
	if c.FoundedYear == 0 && brief.FoundedYear > 0 {
		c.FoundedYear = brief.FoundedYear
	}
	return c
}
