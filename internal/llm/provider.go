package llm

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/KonstantinidouCh/multi-llm-eval/internal/config"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/domain"
)

// Completion is the raw outcome of one provider call.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
	Latency      time.Duration
}

// Provider is one vendor-specific completion client.
type Provider interface {
	ID() string
	Name() string
	Models() []string
	Available(ctx context.Context) bool
	Complete(ctx context.Context, model, prompt string) (*Completion, error)
}

// ProviderInfo describes a registered provider for the listing endpoint.
type ProviderInfo struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Models  []string `json:"models"`
	Enabled bool     `json:"enabled"`
}

// Gateway resolves provider ids to clients and enforces the per-call
// timeout. Every failure it returns is a *domain.ProviderError.
type Gateway struct {
	providers map[string]Provider
	timeout   time.Duration
}

// NewGateway builds a gateway from configuration. At least one provider
// must be configured.
func NewGateway(cfg *config.ProvidersConfig) (*Gateway, error) {
	g := &Gateway{
		providers: make(map[string]Provider),
		timeout:   cfg.CallTimeout,
	}

	if cfg.OllamaBaseURL != "" {
		g.Register(NewOllamaProvider(cfg.OllamaBaseURL))
	}

	if cfg.GroqAPIKey != "" {
		g.Register(NewGroqProvider(cfg.GroqAPIKey))
	}

	if cfg.OpenAIAPIKey != "" {
		g.Register(NewOpenAIProvider(cfg.OpenAIAPIKey))
	}

	if len(g.providers) == 0 {
		return nil, fmt.Errorf("no LLM providers configured")
	}

	return g, nil
}

// Register adds or replaces a provider.
func (g *Gateway) Register(p Provider) {
	g.providers[p.ID()] = p
}

// Has reports whether a provider id is registered.
func (g *Gateway) Has(providerID string) bool {
	_, ok := g.providers[providerID]
	return ok
}

// Call dispatches one completion with the gateway timeout applied.
func (g *Gateway) Call(ctx context.Context, providerID, model, prompt string) (*Completion, error) {
	p, ok := g.providers[providerID]
	if !ok {
		return nil, &domain.ProviderError{
			Kind:    domain.ErrKindUnknown,
			Message: "provider " + providerID + " not configured",
		}
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	res, err := p.Complete(ctx, model, prompt)
	if err != nil {
		return nil, Classify(err)
	}

	return res, nil
}

// List describes all registered providers, probing availability.
func (g *Gateway) List(ctx context.Context) []ProviderInfo {
	infos := make([]ProviderInfo, 0, len(g.providers))
	for _, p := range g.providers {
		infos = append(infos, ProviderInfo{
			ID:      p.ID(),
			Name:    p.Name(),
			Models:  p.Models(),
			Enabled: p.Available(ctx),
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}
