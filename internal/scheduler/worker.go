package scheduler

import (
	"context"
	"fmt"

	"battbot_backend/platform/config"
	"battbot_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// ConversationProcessor runs one conversation turn. A nil return consumes the
// task; an error makes asynq retry it.
type ConversationProcessor interface {
	ProcessMessage(ctx context.Context, conversationID string) error
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor ConversationProcessor
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, processor ConversationProcessor, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		processor: processor,
		log:       log,
	}

	mux.HandleFunc(TaskConversationProcess, w.handleConversationProcess)

	return w, nil
}

func (w *Worker) handleConversationProcess(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseConversationProcessPayload(task)
	if err != nil {
		// A payload that never parses will never parse on retry either.
		w.log.Error("conversation task payload", "error", err)
		return nil
	}
	if payload.ConversationID == "" {
		w.log.Error("conversation task missing conversation id")
		return nil
	}

	return w.processor.ProcessMessage(ctx, payload.ConversationID)
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
