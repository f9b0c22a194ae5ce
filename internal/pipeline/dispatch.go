package pipeline

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/KonstantinidouCh/multi-llm-eval/internal/domain"
)

// dispatch runs one gateway call per included selection, bounded by the
// in-flight limit. Each worker owns exactly one slot of the working list
// and the error list, so no locking is needed. Completion order never
// leaks into result order: slot i always belongs to selection i.
func (p *Pipeline) dispatch(ctx context.Context, st *state, include func(i int) bool) {
	g := new(errgroup.Group)
	g.SetLimit(p.opts.MaxInFlight)

	for i := range st.outcomes {
		if !include(i) {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		i := i
		g.Go(func() error {
			out := &st.outcomes[i]

			res, err := p.gateway.Call(ctx, out.Provider, out.Model, st.query)
			if err != nil {
				var pe *domain.ProviderError
				if !errors.As(err, &pe) {
					pe = &domain.ProviderError{Kind: domain.ErrKindUnknown, Message: err.Error()}
				}
				st.errs[i] = pe
				out.Response = ""
				out.Metrics = nil
				return nil
			}

			st.errs[i] = nil
			out.Response = res.Text
			// Raw usage counters; derived metrics and scores are filled in
			// by the calculate_metrics stage.
			out.Metrics = &domain.UsageMetrics{
				LatencyMs:    float64(res.Latency.Microseconds()) / 1000.0,
				InputTokens:  res.InputTokens,
				OutputTokens: res.OutputTokens,
			}
			return nil
		})
	}

	// Workers never return errors; Wait only joins them.
	_ = g.Wait()
}
