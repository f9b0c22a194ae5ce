package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KonstantinidouCh/multi-llm-eval/internal/api"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/config"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/judge"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/llm"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/pipeline"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/queue"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/scorer"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/storage"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/summary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gateway, err := llm.NewGateway(&cfg.Providers)
	if err != nil {
		log.Fatalf("Failed to initialize provider gateway: %v", err)
	}

	var repo storage.Repository
	if cfg.Database.Enabled() {
		db, err := storage.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		repo = storage.NewEvaluationRepo(db)
		log.Println("Using PostgreSQL history store")
	} else {
		repo = storage.NewMemoryRepo()
		log.Println("No database configured, using in-memory history store")
	}

	var q *queue.RedisQueue
	if cfg.Redis.Enabled() {
		q, err = queue.NewRedisQueue(&cfg.Redis, &cfg.Worker)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer q.Close()
		log.Println("Async submission queue enabled")
	} else {
		log.Println("No Redis configured, async submission disabled")
	}

	var jd pipeline.Judge
	if cfg.Pipeline.JudgeEnabled {
		jd = judge.New(gateway, cfg.Pipeline.JudgeProvider, cfg.Pipeline.JudgeModel)
		log.Printf("Judge enabled: %s/%s", cfg.Pipeline.JudgeProvider, cfg.Pipeline.JudgeModel)
	}

	pl := pipeline.New(gateway, scorer.New(), jd, pipeline.Options{
		MaxInFlight:  cfg.Pipeline.MaxInFlight,
		RetryBackoff: cfg.Pipeline.RetryBackoff,
		Weights: summary.Weights{
			Quality: cfg.Pipeline.WeightQuality,
			Speed:   cfg.Pipeline.WeightSpeed,
			Cost:    cfg.Pipeline.WeightCost,
		},
	})

	router := api.NewRouter(pl, gateway, repo, q)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
		os.Exit(1)
	}

	log.Println("Server stopped")
}
