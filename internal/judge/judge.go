// Package judge implements the optional cross-response rescoring stage: a
// single LLM call scores all candidate responses jointly so quality is
// comparable across them. Every failure mode degrades to a no-op upstream.
package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/KonstantinidouCh/multi-llm-eval/internal/domain"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/llm"
)

// maxResponseChars bounds how much of each candidate response reaches the
// judge prompt; long outputs are truncated, not dropped.
const maxResponseChars = 2000

// Completer is the single call the judge needs from the provider gateway.
type Completer interface {
	Call(ctx context.Context, providerID, model, prompt string) (*llm.Completion, error)
}

type Judge struct {
	completer Completer
	provider  string
	model     string
}

func New(completer Completer, provider, model string) *Judge {
	return &Judge{
		completer: completer,
		provider:  provider,
		model:     model,
	}
}

// Rescore asks the judge model for coherence/relevance/quality scores per
// candidate and returns copies of the outcomes with those scores applied.
// The returned slice matches the input in length and order.
func (j *Judge) Rescore(ctx context.Context, query string, outcomes []domain.ModelOutcome) ([]domain.ModelOutcome, error) {
	if len(outcomes) == 0 {
		return outcomes, nil
	}

	resp, err := j.completer.Call(ctx, j.provider, j.model, j.buildPrompt(query, outcomes))
	if err != nil {
		return nil, fmt.Errorf("judge completion: %w", err)
	}

	scores, err := parseScores(resp.Text)
	if err != nil {
		return nil, fmt.Errorf("parse judge response: %w", err)
	}

	if len(scores) != len(outcomes) {
		return nil, fmt.Errorf("judge returned %d scores for %d responses", len(scores), len(outcomes))
	}

	rescored := make([]domain.ModelOutcome, len(outcomes))
	for i, out := range outcomes {
		rescored[i] = out
		if out.Metrics == nil {
			continue
		}
		m := *out.Metrics
		m.CoherenceScore = clamp01(scores[i].Coherence)
		m.RelevanceScore = clamp01(scores[i].Relevance)
		m.QualityScore = clamp01(scores[i].Quality)
		rescored[i].Metrics = &m
	}

	return rescored, nil
}

func (j *Judge) buildPrompt(query string, outcomes []domain.ModelOutcome) string {
	var sb strings.Builder

	sb.WriteString("You are an expert AI response evaluator. Compare the following candidate answers to the same question and score each one relative to the others.\n\n")
	sb.WriteString("Question: " + query + "\n\n")

	for i, out := range outcomes {
		sb.WriteString(fmt.Sprintf("Candidate %d:\n%s\n\n", i+1, truncate(out.Response, maxResponseChars)))
	}

	sb.WriteString(fmt.Sprintf(`Score every candidate on coherence, relevance and overall quality, each in [0, 1]. Scores must be comparable across candidates: the best answer on a dimension should score highest on that dimension.

Respond with JSON only, exactly %d entries in candidate order:
{"scores": [{"coherence": <float>, "relevance": <float>, "quality": <float>}, ...]}`, len(outcomes)))

	return sb.String()
}

type judgeScore struct {
	Coherence float64 `json:"coherence"`
	Relevance float64 `json:"relevance"`
	Quality   float64 `json:"quality"`
}

type judgeResponse struct {
	Scores []judgeScore `json:"scores"`
}

// parseScores extracts the JSON object from the judge output. Models that
// wrap JSON in prose or code fences are tolerated.
func parseScores(content string) ([]judgeScore, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in judge output")
	}

	var parsed judgeResponse
	if err := json.Unmarshal([]byte(content[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	if len(parsed.Scores) == 0 {
		return nil, fmt.Errorf("judge output has no scores")
	}

	return parsed.Scores, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n[truncated]"
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
