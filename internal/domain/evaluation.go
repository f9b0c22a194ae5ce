package domain

import "time"

// ModelSelection identifies one (provider, model) target for evaluation.
type ModelSelection struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Key returns the "provider/model" identifier used in summaries.
func (s ModelSelection) Key() string {
	return s.Provider + "/" + s.Model
}

// EvaluationRequest is the single input of one pipeline run.
type EvaluationRequest struct {
	Query      string           `json:"query"`
	Selections []ModelSelection `json:"selections"`
}

// UsageMetrics holds per-response performance and quality numbers.
// The three *_score fields are in [0, 1].
type UsageMetrics struct {
	LatencyMs       float64 `json:"latency_ms"`
	TokensPerSecond float64 `json:"tokens_per_second"`
	InputTokens     int     `json:"input_tokens"`
	OutputTokens    int     `json:"output_tokens"`
	EstimatedCost   float64 `json:"estimated_cost"`
	CoherenceScore  float64 `json:"coherence_score"`
	RelevanceScore  float64 `json:"relevance_score"`
	QualityScore    float64 `json:"quality_score"`
}

// ModelOutcome records the result of evaluating one selection. After the
// pipeline terminates exactly one of Response or Error is set, never both.
type ModelOutcome struct {
	Provider string        `json:"provider"`
	Model    string        `json:"model"`
	Response string        `json:"response,omitempty"`
	Metrics  *UsageMetrics `json:"metrics,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Key returns the "provider/model" identifier for the outcome.
func (o *ModelOutcome) Key() string {
	return o.Provider + "/" + o.Model
}

// Succeeded reports whether the selection produced a usable response.
func (o *ModelOutcome) Succeeded() bool {
	return o.Error == ""
}

// ComparisonSummary is the four-way ranking over successful outcomes.
// All fields are empty when no selection succeeded.
type ComparisonSummary struct {
	Fastest           string `json:"fastest"`
	HighestQuality    string `json:"highest_quality"`
	MostCostEffective string `json:"most_cost_effective"`
	BestOverall       string `json:"best_overall"`
}

// EvaluationResult is the terminal artifact of one pipeline run. It is
// created once at completion and never mutated afterwards.
type EvaluationResult struct {
	ID        string            `json:"id"`
	Query     string            `json:"query"`
	CreatedAt time.Time         `json:"created_at"`
	Outcomes  []ModelOutcome    `json:"outcomes"`
	Summary   ComparisonSummary `json:"comparison_summary"`
}

// StageEventKind discriminates the events the pipeline emits.
type StageEventKind string

const (
	EventStageComplete StageEventKind = "stage_complete"
	EventError         StageEventKind = "error"
	EventComplete      StageEventKind = "complete"
)

// StageEvent is one progress notification. Events are a log, not a store;
// they are never replayed or mutated after emission.
type StageEvent struct {
	Kind    StageEventKind    `json:"kind"`
	Stage   string            `json:"stage,omitempty"`
	Payload map[string]any    `json:"payload,omitempty"`
	Error   string            `json:"error,omitempty"`
	Result  *EvaluationResult `json:"result,omitempty"`
}
