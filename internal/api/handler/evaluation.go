package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/KonstantinidouCh/multi-llm-eval/internal/domain"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/pipeline"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/queue"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/storage"
)

type EvaluationHandler struct {
	pipeline *pipeline.Pipeline
	repo     storage.Repository
	queue    *queue.RedisQueue
}

func NewEvaluationHandler(pl *pipeline.Pipeline, repo storage.Repository, q *queue.RedisQueue) *EvaluationHandler {
	return &EvaluationHandler{pipeline: pl, repo: repo, queue: q}
}

// Evaluate runs the pipeline synchronously and returns the final result.
func (h *EvaluationHandler) Evaluate(c *gin.Context) {
	var req domain.EvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.pipeline.Run(c.Request.Context(), req, pipeline.Discard)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		// Client went away or the run was cancelled.
		c.Status(http.StatusInternalServerError)
		return
	}

	// A persistence failure must not erase a computed result.
	if err := h.repo.Save(c.Request.Context(), result); err != nil {
		log.Printf("Failed to persist evaluation %s: %v", result.ID, err)
	}

	c.JSON(http.StatusOK, result)
}

// EvaluateStream runs the pipeline and streams each stage event as a
// single-line JSON object, events separated by a blank line.
func (h *EvaluationHandler) EvaluateStream(c *gin.Context) {
	var req domain.EvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	c.Writer.Header().Set("Content-Type", "application/x-ndjson")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)

	sink := newStreamSink(c.Writer)

	result, err := h.pipeline.Run(c.Request.Context(), req, sink)
	if err != nil {
		// Validation failures already produced the terminal error event;
		// cancellations end the stream without a complete event.
		return
	}

	if err := h.repo.Save(c.Request.Context(), result); err != nil {
		log.Printf("Failed to persist evaluation %s: %v", result.ID, err)
	}
}

// EvaluateAsync enqueues the request and returns the id the eventual
// result will be stored under.
func (h *EvaluationHandler) EvaluateAsync(c *gin.Context) {
	var req domain.EvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	// Cheap pre-checks; full validation happens in the worker's run.
	if strings.TrimSpace(req.Query) == "" || len(req.Selections) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query and selections are required"})
		return
	}

	id := uuid.New().String()
	if err := h.queue.Publish(c.Request.Context(), id, &req); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue evaluation"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"id": id, "status": "queued"})
}

// History lists persisted evaluations, newest first.
func (h *EvaluationHandler) History(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	results, err := h.repo.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list evaluations"})
		return
	}

	if results == nil {
		results = []*domain.EvaluationResult{}
	}
	c.JSON(http.StatusOK, results)
}

func (h *EvaluationHandler) GetByID(c *gin.Context) {
	result, err := h.repo.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "evaluation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve evaluation"})
		return
	}

	c.JSON(http.StatusOK, result)
}
