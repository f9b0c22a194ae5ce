// Package pipeline runs the fixed evaluation workflow: a linear sequence of
// named stages over a shared per-run state. Stages never overlap; only the
// provider calls inside the dispatch stages run concurrently.
package pipeline

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KonstantinidouCh/multi-llm-eval/internal/domain"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/llm"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/scorer"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/summary"
)

// Stage names, in execution order.
const (
	StageValidateInput      = "validate_input"
	StageParallelEvaluation = "parallel_evaluation"
	StageRetryFailed        = "retry_failed"
	StageErrorRecovery      = "error_recovery"
	StageCalculateMetrics   = "calculate_metrics"
	StageLLMJudge           = "llm_judge"
	StageGenerateSummary    = "generate_summary"
)

// StageNames returns the fixed stage sequence.
func StageNames() []string {
	return []string{
		StageValidateInput,
		StageParallelEvaluation,
		StageRetryFailed,
		StageErrorRecovery,
		StageCalculateMetrics,
		StageLLMJudge,
		StageGenerateSummary,
	}
}

// Gateway is the provider boundary the dispatch stages call through.
type Gateway interface {
	Has(providerID string) bool
	Call(ctx context.Context, providerID, model, prompt string) (*llm.Completion, error)
}

// Judge is the optional cross-response rescoring stage. Implementations
// receive only successful outcomes and must return the same number of
// outcomes in the same order.
type Judge interface {
	Rescore(ctx context.Context, query string, outcomes []domain.ModelOutcome) ([]domain.ModelOutcome, error)
}

// Sink consumes the ordered event stream of one run.
type Sink interface {
	Emit(event domain.StageEvent)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(event domain.StageEvent)

func (f SinkFunc) Emit(event domain.StageEvent) { f(event) }

// Discard drops all events; used by the non-streaming callers.
var Discard = SinkFunc(func(domain.StageEvent) {})

// Options tune one pipeline instance.
type Options struct {
	// MaxInFlight bounds concurrent provider calls within a dispatch stage.
	MaxInFlight int
	// RetryBackoff is the delay before the single retry pass.
	RetryBackoff time.Duration
	// Weights configure the best_overall blend of the summary reducer.
	Weights summary.Weights
}

type Pipeline struct {
	gateway Gateway
	scorer  *scorer.Scorer
	judge   Judge // nil when judging is disabled
	reducer *summary.Reducer
	opts    Options
}

func New(gateway Gateway, sc *scorer.Scorer, judge Judge, opts Options) *Pipeline {
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = 5
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 500 * time.Millisecond
	}
	return &Pipeline{
		gateway: gateway,
		scorer:  sc,
		judge:   judge,
		reducer: summary.NewReducer(opts.Weights),
		opts:    opts,
	}
}

// state is the working data of one run, owned exclusively by the driver.
// During dispatch each worker writes only to its own slot.
type state struct {
	query      string
	selections []domain.ModelSelection
	outcomes   []domain.ModelOutcome
	errs       []*domain.ProviderError
	summary    domain.ComparisonSummary
}

type stage struct {
	name string
	fn   func(ctx context.Context, st *state) error
}

func (p *Pipeline) stages() []stage {
	return []stage{
		{StageValidateInput, p.validateInput},
		{StageParallelEvaluation, p.parallelEvaluation},
		{StageRetryFailed, p.retryFailed},
		{StageErrorRecovery, p.errorRecovery},
		{StageCalculateMetrics, p.calculateMetrics},
		{StageLLMJudge, p.llmJudge},
		{StageGenerateSummary, p.generateSummary},
	}
}

// Run executes the full stage sequence for one request, emitting one event
// per stage plus a terminal event. The only stage that can fail the run is
// validation; a cancelled run returns the context error without emitting a
// complete event.
func (p *Pipeline) Run(ctx context.Context, req domain.EvaluationRequest, sink Sink) (*domain.EvaluationResult, error) {
	if sink == nil {
		sink = Discard
	}

	st := &state{
		query:      strings.TrimSpace(req.Query),
		selections: req.Selections,
	}

	for _, s := range p.stages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := s.fn(ctx, st); err != nil {
			sink.Emit(domain.StageEvent{
				Kind:  domain.EventError,
				Stage: s.name,
				Error: err.Error(),
			})
			return nil, err
		}

		sink.Emit(domain.StageEvent{
			Kind:    domain.EventStageComplete,
			Stage:   s.name,
			Payload: stagePayload(s.name, st),
		})
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &domain.EvaluationResult{
		ID:        uuid.New().String(),
		Query:     st.query,
		CreatedAt: time.Now().UTC(),
		Outcomes:  st.outcomes,
		Summary:   st.summary,
	}

	sink.Emit(domain.StageEvent{
		Kind:   domain.EventComplete,
		Result: result,
	})

	return result, nil
}

func stagePayload(name string, st *state) map[string]any {
	failed := 0
	for _, e := range st.errs {
		if e != nil {
			failed++
		}
	}
	return map[string]any{
		"selections": len(st.outcomes),
		"failed":     failed,
	}
}

// validateInput rejects malformed requests and allocates the slot-per-
// selection working list. Duplicate selections collapse keeping first-
// occurrence order.
func (p *Pipeline) validateInput(ctx context.Context, st *state) error {
	var problems []string

	if st.query == "" {
		problems = append(problems, "query cannot be empty")
	}
	if len(st.selections) == 0 {
		problems = append(problems, "at least one model must be selected")
	}

	seen := make(map[string]bool, len(st.selections))
	deduped := st.selections[:0:0]
	var unknown []string
	for _, sel := range st.selections {
		if seen[sel.Key()] {
			continue
		}
		seen[sel.Key()] = true
		deduped = append(deduped, sel)

		if !p.gateway.Has(sel.Provider) && !contains(unknown, sel.Provider) {
			unknown = append(unknown, sel.Provider)
		}
	}
	if len(unknown) > 0 {
		problems = append(problems, "unknown providers: "+strings.Join(unknown, ", "))
	}

	if len(problems) > 0 {
		return &domain.ValidationError{Problems: problems}
	}

	st.selections = deduped
	st.outcomes = make([]domain.ModelOutcome, len(deduped))
	st.errs = make([]*domain.ProviderError, len(deduped))
	for i, sel := range deduped {
		st.outcomes[i] = domain.ModelOutcome{Provider: sel.Provider, Model: sel.Model}
	}

	return nil
}

// parallelEvaluation dispatches every selection; retryFailed re-dispatches
// only the failed ones after a short backoff. Both record per-slot results;
// a selection's failure never aborts the stage.
func (p *Pipeline) parallelEvaluation(ctx context.Context, st *state) error {
	p.dispatch(ctx, st, func(int) bool { return true })
	return nil
}

func (p *Pipeline) retryFailed(ctx context.Context, st *state) error {
	anyFailed := false
	for _, e := range st.errs {
		if e != nil {
			anyFailed = true
			break
		}
	}
	if !anyFailed {
		return nil
	}

	select {
	case <-time.After(p.opts.RetryBackoff):
	case <-ctx.Done():
		return nil
	}

	p.dispatch(ctx, st, func(i int) bool { return st.errs[i] != nil })
	return nil
}

// errorRecovery marks selections still failing after retry as permanently
// failed with a user-safe message. Runs unconditionally so the event
// sequence stays uniform.
func (p *Pipeline) errorRecovery(ctx context.Context, st *state) error {
	for i := range st.outcomes {
		if st.errs[i] == nil {
			continue
		}
		log.Printf("Selection %s failed permanently: %v", st.outcomes[i].Key(), st.errs[i])
		st.outcomes[i].Error = st.errs[i].UserMessage()
		st.outcomes[i].Response = ""
		st.outcomes[i].Metrics = nil
	}
	return nil
}

// calculateMetrics fills the full metric set for every successful outcome.
func (p *Pipeline) calculateMetrics(ctx context.Context, st *state) error {
	for i := range st.outcomes {
		out := &st.outcomes[i]
		if !out.Succeeded() || out.Metrics == nil {
			continue
		}

		m := p.scorer.Metrics(
			st.query,
			out.Response,
			out.Metrics.InputTokens,
			out.Metrics.OutputTokens,
			out.Metrics.LatencyMs,
			out.Provider,
			out.Model,
		)
		out.Metrics = &m
	}
	return nil
}

// llmJudge cross-rescores the successful outcomes jointly. Any judge
// failure degrades to a no-op; the stage-5 scores stand.
func (p *Pipeline) llmJudge(ctx context.Context, st *state) error {
	if p.judge == nil {
		return nil
	}

	var idxs []int
	var successful []domain.ModelOutcome
	for i := range st.outcomes {
		if st.outcomes[i].Succeeded() && st.outcomes[i].Metrics != nil {
			idxs = append(idxs, i)
			successful = append(successful, st.outcomes[i])
		}
	}
	if len(successful) == 0 {
		return nil
	}

	rescored, err := p.judge.Rescore(ctx, st.query, successful)
	if err != nil {
		log.Printf("Judge unavailable, keeping heuristic scores: %v", err)
		return nil
	}
	if len(rescored) != len(successful) {
		log.Printf("Judge returned %d outcomes for %d responses, ignoring", len(rescored), len(successful))
		return nil
	}

	for j, i := range idxs {
		if rescored[j].Metrics == nil {
			continue
		}
		st.outcomes[i].Metrics.CoherenceScore = clamp01(rescored[j].Metrics.CoherenceScore)
		st.outcomes[i].Metrics.RelevanceScore = clamp01(rescored[j].Metrics.RelevanceScore)
		st.outcomes[i].Metrics.QualityScore = clamp01(rescored[j].Metrics.QualityScore)
	}
	return nil
}

func (p *Pipeline) generateSummary(ctx context.Context, st *state) error {
	st.summary = p.reducer.Reduce(st.outcomes)
	return nil
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
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
