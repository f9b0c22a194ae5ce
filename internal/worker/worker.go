// Package worker drains the submission queue: each message is one full
// pipeline run with a discarded event stream, persisted on completion.
package worker

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/KonstantinidouCh/multi-llm-eval/internal/domain"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/pipeline"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/queue"
	"github.com/KonstantinidouCh/multi-llm-eval/internal/storage"
)

type Worker struct {
	queue       *queue.RedisQueue
	repo        storage.Repository
	pipeline    *pipeline.Pipeline
	concurrency int
	batchSize   int
}

func New(q *queue.RedisQueue, repo storage.Repository, pl *pipeline.Pipeline, concurrency, batchSize int) *Worker {
	if concurrency <= 0 {
		concurrency = 4
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Worker{
		queue:       q,
		repo:        repo,
		pipeline:    pl,
		concurrency: concurrency,
		batchSize:   batchSize,
	}
}

func (w *Worker) Start(ctx context.Context) error {
	log.Printf("Starting worker with concurrency=%d, batchSize=%d", w.concurrency, w.batchSize)

	jobs := make(chan queue.Message, w.concurrency*2)
	var wg sync.WaitGroup

	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processJobs(ctx, workerID, jobs)
		}(i)
	}

	go func() {
		defer close(jobs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				messages, err := w.queue.Consume(ctx, int64(w.batchSize), 5*time.Second)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Printf("Error consuming messages: %v", err)
					time.Sleep(time.Second)
					continue
				}

				for _, msg := range messages {
					select {
					case jobs <- msg:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	wg.Wait()
	return nil
}

func (w *Worker) processJobs(ctx context.Context, workerID int, jobs <-chan queue.Message) {
	for msg := range jobs {
		if err := w.processRequest(ctx, msg); err != nil {
			log.Printf("Worker %d: error processing %s: %v", workerID, msg.EvaluationID, err)

			// Malformed requests will never succeed; drop them.
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				continue
			}
		}

		if err := w.queue.Ack(ctx, msg.ID); err != nil {
			log.Printf("Worker %d: error acking %s: %v", workerID, msg.ID, err)
		}
	}
}

func (w *Worker) processRequest(ctx context.Context, msg queue.Message) error {
	log.Printf("Processing evaluation: %s", msg.EvaluationID)

	result, err := w.pipeline.Run(ctx, *msg.Request, pipeline.Discard)
	if err != nil {
		return err
	}

	// The id was issued at submission time so clients can poll for it.
	if msg.EvaluationID != "" {
		result.ID = msg.EvaluationID
	}

	if err := w.repo.Save(ctx, result); err != nil {
		return err
	}

	log.Printf("Completed evaluation %s: %d outcomes, best_overall=%s",
		result.ID, len(result.Outcomes), result.Summary.BestOverall)

	return nil
}
