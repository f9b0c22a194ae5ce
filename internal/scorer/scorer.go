// Package scorer computes quality metrics for a single model response.
// Everything here is a pure function of its inputs: no network access, no
// shared mutable state, deterministic for identical inputs.
package scorer

import (
	"math"
	"regexp"
	"strings"

	"github.com/KonstantinidouCh/multi-llm-eval/internal/domain"
)

var (
	sentenceSplitRe = regexp.MustCompile(`[.!?]+`)
	wordRe          = regexp.MustCompile(`\b[a-z]+\b`)
)

var transitionWords = []string{
	"however", "therefore", "furthermore", "moreover", "additionally",
	"consequently", "nevertheless", "meanwhile", "subsequently", "thus",
	"hence", "accordingly", "first", "second", "finally", "in conclusion",
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "being": {}, "have": {}, "has": {}, "had": {},
	"do": {}, "does": {}, "did": {}, "will": {}, "would": {}, "could": {},
	"should": {}, "may": {}, "might": {}, "must": {}, "shall": {}, "can": {},
	"need": {}, "dare": {}, "ought": {}, "used": {}, "to": {}, "of": {},
	"in": {}, "for": {}, "on": {}, "with": {}, "at": {}, "by": {},
	"from": {}, "as": {}, "into": {}, "through": {}, "during": {},
	"before": {}, "after": {}, "above": {}, "below": {}, "between": {},
	"under": {}, "again": {}, "further": {}, "then": {}, "once": {},
	"here": {}, "there": {}, "when": {}, "where": {}, "why": {}, "how": {},
	"all": {}, "each": {}, "few": {}, "more": {}, "most": {}, "other": {},
	"some": {}, "such": {}, "no": {}, "nor": {}, "not": {}, "only": {},
	"own": {}, "same": {}, "so": {}, "than": {}, "too": {}, "very": {},
	"just": {}, "and": {}, "but": {}, "if": {}, "or": {}, "because": {},
	"until": {}, "while": {}, "this": {}, "that": {}, "these": {},
	"those": {}, "i": {}, "me": {}, "my": {}, "we": {}, "our": {},
	"you": {}, "your": {}, "he": {}, "him": {}, "his": {}, "she": {},
	"her": {}, "it": {}, "its": {}, "they": {}, "them": {}, "their": {},
	"what": {}, "which": {}, "who": {},
}

// questionIndicators maps a question word to response terms that suggest
// the answer addresses that question type.
var questionIndicators = map[string][]string{
	"what":  {"is", "are", "means", "refers"},
	"how":   {"by", "through", "using", "steps"},
	"why":   {"because", "reason", "due to", "since"},
	"when":  {"time", "date", "period", "during"},
	"where": {"location", "place", "in", "at"},
}

type Scorer struct{}

func New() *Scorer {
	return &Scorer{}
}

// Metrics fills the full metric set for one successful response: derived
// throughput, estimated cost, and the three quality scores.
func (s *Scorer) Metrics(query, response string, inputTokens, outputTokens int, latencyMs float64, provider, model string) domain.UsageMetrics {
	// Guard the throughput division: a zero-latency call reports 0.
	tokensPerSecond := 0.0
	if latencyMs > 0 {
		tokensPerSecond = float64(outputTokens) / (latencyMs / 1000.0)
	}

	coherence := s.Coherence(response)
	relevance := s.Relevance(query, response)

	return domain.UsageMetrics{
		LatencyMs:       latencyMs,
		TokensPerSecond: tokensPerSecond,
		InputTokens:     inputTokens,
		OutputTokens:    outputTokens,
		EstimatedCost:   Cost(provider, model, inputTokens, outputTokens),
		CoherenceScore:  coherence,
		RelevanceScore:  relevance,
		QualityScore:    s.Quality(query, response, coherence, relevance),
	}
}

// Coherence scores sentence structure: transition-word usage and
// sentence-length consistency.
func (s *Scorer) Coherence(text string) float64 {
	if len(strings.TrimSpace(text)) < 10 {
		return 0.0
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return 0.0
	}

	lower := strings.ToLower(text)
	transitionCount := 0
	for _, w := range transitionWords {
		if strings.Contains(lower, w) {
			transitionCount++
		}
	}

	consistency := 0.5
	if len(sentences) > 1 {
		lengths := make([]float64, len(sentences))
		for i, sent := range sentences {
			lengths[i] = float64(len(strings.Fields(sent)))
		}
		variance := stddev(lengths) / (mean(lengths) + 1)
		consistency = math.Max(0, 1-variance/5)
	}

	denom := math.Max(1, float64(len(sentences))/3)
	transitionScore := math.Min(1.0, float64(transitionCount)/denom)

	return clamp01(consistency*0.5 + transitionScore*0.3 + 0.2)
}

// Relevance scores keyword overlap with the query plus a check that the
// response addresses the question type.
func (s *Scorer) Relevance(query, response string) float64 {
	if query == "" || response == "" {
		return 0.0
	}

	queryWords := keywordSet(query)
	if len(queryWords) == 0 {
		return 0.5
	}

	responseWords := keywordSet(response)
	overlap := 0
	for w := range queryWords {
		if _, ok := responseWords[w]; ok {
			overlap++
		}
	}
	overlapRatio := float64(overlap) / float64(len(queryWords))

	lowerQuery := strings.ToLower(query)
	lowerResponse := strings.ToLower(response)
	questionTypeScore := 0.5
	for qType, indicators := range questionIndicators {
		if !strings.Contains(lowerQuery, qType) {
			continue
		}
		for _, ind := range indicators {
			if strings.Contains(lowerResponse, ind) {
				questionTypeScore = 0.8
				break
			}
		}
		if questionTypeScore == 0.8 {
			break
		}
	}

	return clamp01(overlapRatio*0.6 + questionTypeScore*0.4)
}

// Quality combines coherence and relevance with length appropriateness and
// completeness penalties. Empty or degenerate output scores 0.
func (s *Scorer) Quality(query, response string, coherence, relevance float64) float64 {
	if len(strings.TrimSpace(response)) < 10 {
		return 0.0
	}

	wordCount := len(strings.Fields(response))
	lengthScore := 1.0
	switch {
	case wordCount < 20:
		lengthScore = float64(wordCount) / 20
	case wordCount > 1000:
		lengthScore = math.Max(0.5, 1-float64(wordCount-1000)/2000)
	}

	completeness := 1.0
	trimmed := strings.TrimRight(response, " \t\n\r")
	if trimmed == "" || !strings.ContainsRune(".!?\"'", rune(trimmed[len(trimmed)-1])) {
		completeness = 0.8
	}

	return clamp01(coherence*0.3 + relevance*0.4 + lengthScore*0.15 + completeness*0.15)
}

func splitSentences(text string) []string {
	parts := sentenceSplitRe.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func keywordSet(text string) map[string]struct{} {
	words := wordRe.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if _, stop := stopwords[w]; stop || len(w) <= 2 {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}

func clamp01(x float64) float64 {
	return math.Min(1.0, math.Max(0.0, x))
}
