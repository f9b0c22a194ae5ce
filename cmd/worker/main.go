package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/KonstantinidouCh/multi-llm-eval/internal/config"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/judge"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/llm"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/pipeline"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/queue"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/scorer"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/storage"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/summary"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := cfg.Redis.Validate(); err != nil {
		log.Fatalf("Worker requires Redis: %v", err)
	}
	if !cfg.Database.Enabled() {
		log.Fatal("Worker requires a database. Set DATABASE_URL or DB_HOST environment variable")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	repo := storage.NewEvaluationRepo(db)

	q, err := queue.NewRedisQueue(&cfg.Redis, &cfg.Worker)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer q.Close()

	gateway, err := llm.NewGateway(&cfg.Providers)
	if err != nil {
		log.Fatalf("Failed to initialize provider gateway: %v", err)
	}

	var jd pipeline.Judge
	if cfg.Pipeline.JudgeEnabled {
		jd = judge.New(gateway, cfg.Pipeline.JudgeProvider, cfg.Pipeline.JudgeModel)
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

	w := worker.New(q, repo, pl, cfg.Worker.Concurrency, cfg.Worker.BatchSize)

	if err := w.Start(ctx); err != nil {
		log.Fatalf("Worker error: %v", err)
	}

	log.Println("Worker stopped")
}
