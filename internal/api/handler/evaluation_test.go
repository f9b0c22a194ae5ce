package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/KonstantinidouCh/multi-llm-eval/internal/domain"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/llm"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/pipeline"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/scorer"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/storage"
)

type stubGateway struct{}

func (stubGateway) Has(providerID string) bool {
	return providerID == "groq" || providerID == "ollama"
}

func (stubGateway) Call(ctx context.Context, providerID, model, prompt string) (*llm.Completion, error) {
	if providerID == "groq" {
		return nil, &domain.ProviderError{Kind: domain.ErrKindAuthFailed, Message: "401"}
	}
	return &llm.Completion{
		Text:         "Go is a compiled language. It is designed for building network services. Therefore it suits backend work.",
		InputTokens:  10,
		OutputTokens: 20,
		Latency:      120 * time.Millisecond,
	}, nil
}

func testServer(t *testing.T) (*gin.Engine, *storage.MemoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pl := pipeline.New(stubGateway{}, scorer.New(), nil, pipeline.Options{RetryBackoff: time.Millisecond})
	repo := storage.NewMemoryRepo()
	h := NewEvaluationHandler(pl, repo, nil)

	r := gin.New()
	r.POST("/api/evaluate", h.Evaluate)
	r.POST("/api/evaluate/stream", h.EvaluateStream)
	r.GET("/api/history", h.History)
	r.GET("/api/evaluations/:id", h.GetByID)
	return r, repo
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func evaluateBody() domain.EvaluationRequest {
	return domain.EvaluationRequest{
		Query: "What is Go?",
		Selections: []domain.ModelSelection{
			{Provider: "ollama", Model: "mistral"},
			{Provider: "groq", Model: "llama3-8b-8192"},
		},
	}
}

func TestEvaluateReturnsResultAndPersists(t *testing.T) {
	r, repo := testServer(t)

	w := postJSON(t, r, "/api/evaluate", evaluateBody())
	require.Equal(t, http.StatusOK, w.Code)

	var result domain.EvaluationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.NotEmpty(t, result.ID)
	require.Len(t, result.Outcomes, 2)

	require.True(t, result.Outcomes[0].Succeeded())
	require.False(t, result.Outcomes[1].Succeeded())
	require.Equal(t, "provider authentication failed", result.Outcomes[1].Error)
	require.Equal(t, "ollama/mistral", result.Summary.BestOverall)

	stored, err := repo.Get(context.Background(), result.ID)
	require.NoError(t, err)
	require.Equal(t, result.Query, stored.Query)
}

func TestEvaluateRejectsInvalidRequest(t *testing.T) {
	r, _ := testServer(t)

	w := postJSON(t, r, "/api/evaluate", domain.EvaluationRequest{Query: ""})
	require.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvaluateStreamEmitsFramedEvents(t *testing.T) {
	r, _ := testServer(t)

	w := postJSON(t, r, "/api/evaluate/stream", evaluateBody())
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/x-ndjson", w.Header().Get("Content-Type"))

	frames := strings.Split(strings.TrimRight(w.Body.String(), "\n"), "\n\n")
	require.Len(t, frames, len(pipeline.StageNames())+1)

	for i, frame := range frames {
		require.NotContains(t, frame, "\n", "frame %d must be a single line", i)

		var event domain.StageEvent
		require.NoError(t, json.Unmarshal([]byte(frame), &event))

		if i < len(pipeline.StageNames()) {
			require.Equal(t, domain.EventStageComplete, event.Kind)
			require.Equal(t, pipeline.StageNames()[i], event.Stage)
		} else {
			require.Equal(t, domain.EventComplete, event.Kind)
			require.NotNil(t, event.Result)
		}
	}
}

func TestEvaluateStreamValidationError(t *testing.T) {
	r, _ := testServer(t)

	w := postJSON(t, r, "/api/evaluate/stream", domain.EvaluationRequest{
		Query:      "",
		Selections: []domain.ModelSelection{{Provider: "ollama", Model: "mistral"}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	frames := strings.Split(strings.TrimRight(w.Body.String(), "\n"), "\n\n")
	require.Len(t, frames, 1)

	var event domain.StageEvent
	require.NoError(t, json.Unmarshal([]byte(frames[0]), &event))
	require.Equal(t, domain.EventError, event.Kind)
}

func TestHistoryListsNewestFirst(t *testing.T) {
	r, repo := testServer(t)
	ctx := context.Background()

	for _, id := range []string{"id-0", "id-1"} {
		require.NoError(t, repo.Save(ctx, &domain.EvaluationResult{ID: id, Query: "q", CreatedAt: time.Now().UTC()}))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/history?limit=1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var results []domain.EvaluationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Len(t, results, 1)
	require.Equal(t, "id-1", results[0].ID)
}

func TestHistoryEmpty(t *testing.T) {
	r, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, "[]", w.Body.String())
}

func TestGetByID(t *testing.T) {
	r, repo := testServer(t)
	require.NoError(t, repo.Save(context.Background(), &domain.EvaluationResult{ID: "id-1", Query: "q"}))

	req := httptest.NewRequest(http.MethodGet, "/api/evaluations/id-1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/evaluations/missing", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}
