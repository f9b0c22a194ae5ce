package api

import (
	"github.com/gin-gonic/gin"

	"github.com/KonstantinidouCh/multi-llm-eval/internal/api/handler"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/llm"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/pipeline"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/queue"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/storage"
)

type Router struct {
	engine *gin.Engine
}

// NewRouter wires the HTTP surface. The queue is optional; when nil the
// async submission endpoint is not registered.
func NewRouter(pl *pipeline.Pipeline, gateway *llm.Gateway, repo storage.Repository, q *queue.RedisQueue) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	evalHandler := handler.NewEvaluationHandler(pl, repo, q)
	providerHandler := handler.NewProviderHandler(gateway)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	{
		api.GET("/providers", providerHandler.List)

		api.POST("/evaluate", evalHandler.Evaluate)
		api.POST("/evaluate/stream", evalHandler.EvaluateStream)
		if q != nil {
			api.POST("/evaluate/async", evalHandler.EvaluateAsync)
		}

		api.GET("/history", evalHandler.History)
		api.GET("/evaluations/:id", evalHandler.GetByID)
	}

	return &Router{engine: engine}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
