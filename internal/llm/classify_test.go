package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/KonstantinidouCh/multi-llm-eval/internal/domain"
)

func TestClassifyPassesThroughProviderError(t *testing.T) {
	orig := &domain.ProviderError{Kind: domain.ErrKindRateLimited, Message: "429"}

	got := Classify(fmt.Errorf("call failed: %w", orig))
	require.Same(t, orig, got)
}

func TestClassifyDeadlineExceeded(t *testing.T) {
	got := Classify(context.DeadlineExceeded)
	require.Equal(t, domain.ErrKindTimeout, got.Kind)
}

func TestClassifyAPIErrorStatuses(t *testing.T) {
	cases := []struct {
		status int
		want   domain.ProviderErrorKind
	}{
		{401, domain.ErrKindAuthFailed},
		{403, domain.ErrKindAuthFailed},
		{429, domain.ErrKindRateLimited},
		{500, domain.ErrKindUpstream},
		{503, domain.ErrKindUpstream},
		{400, domain.ErrKindUpstream},
	}

	for _, tc := range cases {
		apiErr := &openai.APIError{HTTPStatusCode: tc.status, Message: "api error"}
		got := Classify(fmt.Errorf("call failed: %w", apiErr))
		require.Equal(t, tc.want, got.Kind, "status %d", tc.status)
	}
}

func TestClassifyUnknown(t *testing.T) {
	got := Classify(errors.New("something odd"))
	require.Equal(t, domain.ErrKindUnknown, got.Kind)
	require.Equal(t, "something odd", got.Message)
}
