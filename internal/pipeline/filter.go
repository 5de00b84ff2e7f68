package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/thesis-scout/internal/config"
	"github.com/sells-group/thesis-scout/internal/model"
	"github.com/sells-group/thesis-scout/pkg/anthropic"
)

const filterPrompt = `You are screening startup candidates against an investment thesis.

Investment thesis:
%s

Candidates:
%s

For each candidate, score how well it fits the thesis on a 1-10 scale and
classify the fit:
- "direct": the company executes the thesis itself
- "2nd_order": the company benefits from demand the thesis creates
- "3rd_order": the company benefits from downstream effects

Score every candidate listed above, using its name exactly as written.
Return a single JSON object keyed by candidate name:
{"<name>": {"score": <1-10>, "fit_type": "direct|2nd_order|3rd_order", "reason": "<one sentence>"}, ...}`

type fitVerdict struct {
	Score   int    `json:"score"`
	FitType string `json:"fit_type"`
	Reason  string `json:"reason"`
}

// FilterCandidates scores every candidate against the thesis in one model
// call and keeps those at or above the configured threshold, sorted by
// score descending. The filter soft-fails: an unusable model response
// passes all candidates through unscored rather than losing the run's
// discovery work.
func FilterCandidates(ctx context.Context, llm anthropic.Client, cfg *config.Config, thesisText string, candidates []model.Candidate) ([]model.Candidate, anthropic.TokenUsage) {
	if len(candidates) == 0 {
		return candidates, anthropic.TokenUsage{}
	}

	req := anthropic.MessageRequest{
		Model:     cfg.Anthropic.HaikuModel,
		MaxTokens: 8192,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(filterPrompt, thesisText, candidateRoster(candidates))},
		},
	}

	resp, err := llm.CreateMessage(ctx, req)
	if err != nil {
		zap.L().Warn("fit filter: model call failed, passing candidates through", zap.Error(err))
		return candidates, anthropic.TokenUsage{}
	}

	raw, ok := firstJSONObject(resp.Text())
	if !ok {
		zap.L().Warn("fit filter: no JSON in response, passing candidates through")
		return candidates, resp.Usage
	}
	verdicts := map[string]fitVerdict{}
	if err := json.Unmarshal([]byte(raw), &verdicts); err != nil {
		zap.L().Warn("fit filter: unparseable response, passing candidates through", zap.Error(err))
		return candidates, resp.Usage
	}

	// Case-insensitive lookup: the model occasionally changes casing.
	byName := make(map[string]fitVerdict, len(verdicts))
	for name, v := range verdicts {
		byName[model.NormalizeName(name)] = v
	}

	var kept []model.Candidate
	for _, c := range candidates {
		v, ok := byName[model.NormalizeName(c.Name)]
		if !ok {
			// A candidate the model skipped gets a neutral score so one
			// omission cannot silently drop a discovery.
			v = fitVerdict{Score: 5}
		}
		c.FitScore = clampScore(v.Score)
		c.FitType = parseFitType(v.FitType)
		c.FitReason = v.Reason
		if c.FitScore >= cfg.Pipeline.FitThreshold {
			kept = append(kept, c)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].FitScore > kept[j].FitScore
	})

	zap.L().Info("fit filter complete",
		zap.Int("scored", len(candidates)),
		zap.Int("kept", len(kept)),
		zap.Int("threshold", cfg.Pipeline.FitThreshold),
	)
	resp.Usage.LogCost(cfg.Anthropic.HaikuModel, "filter")

	return kept, resp.Usage
}

// candidateRoster renders candidates as a numbered list for the filter
// prompt, one line each with whatever context discovery collected.
func candidateRoster(candidates []model.Candidate) string {
	var b strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s", i+1, c.Name)
		if c.Description != "" {
			fmt.Fprintf(&b, " - %s", clip(c.Description, 300))
		}
		if c.DiscoveredViaTheme != "" {
			fmt.Fprintf(&b, " (found via theme: %s)", c.DiscoveredViaTheme)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func clampScore(s int) int {
	if s < 1 {
		return 1
	}
	if s > 10 {
		return 10
	}
	return s
}

func parseFitType(s string) model.FitType {
	switch model.FitType(s) {
	case model.FitDirect, model.Fit2ndOrder, model.Fit3rdOrder:
		return model.FitType(s)
	default:
		return model.FitDirect
	}
}
