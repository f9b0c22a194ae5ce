package llm

import (
	"context"
	"errors"
	"net"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/KonstantinidouCh/multi-llm-eval/internal/domain"
)

// Classify maps an arbitrary provider failure onto the error taxonomy.
// Errors that are already classified pass through unchanged.
func Classify(err error) *domain.ProviderError {
	var pe *domain.ProviderError
	if errors.As(err, &pe) {
		return pe
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.ProviderError{Kind: domain.ErrKindTimeout, Message: err.Error()}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &domain.ProviderError{
			Kind:    kindForStatus(apiErr.HTTPStatusCode),
			Message: apiErr.Message,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &domain.ProviderError{Kind: domain.ErrKindTimeout, Message: err.Error()}
	}

	return &domain.ProviderError{Kind: domain.ErrKindUnknown, Message: err.Error()}
}

func kindForStatus(status int) domain.ProviderErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.ErrKindAuthFailed
	case status == http.StatusTooManyRequests:
		return domain.ErrKindRateLimited
	case status >= 500:
		return domain.ErrKindUpstream
	case status >= 400:
		return domain.ErrKindUpstream
	default:
		return domain.ErrKindUnknown
	}
}
