package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stemworks/api/internal/pipeline"
)

const TaskTypeProcessStems = "stems:process"

type taskPayload struct {
	UploadID string `json:"uploadId"`
}

// AsynqScheduler enqueues processing tasks on the work queue. ProcessIn
// carries the pipeline's processing delay so the worker picks the task up
// once the delay elapses.
type AsynqScheduler struct {
	client *asynq.Client
	queue  string
}

func NewAsynqScheduler(client *asynq.Client, queue string) *AsynqScheduler {
	return &AsynqScheduler{client: client, queue: queue}
}

func (s *AsynqScheduler) Schedule(_ context.Context, uploadID string, delay time.Duration) error {
	data, err := json.Marshal(taskPayload{UploadID: uploadID})
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	task := asynq.NewTask(TaskTypeProcessStems, data)
	_, err = s.client.Enqueue(task,
		asynq.Queue(s.queue),
		asynq.ProcessIn(delay),
		asynq.MaxRetry(3),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// StemsWorker drives upload processing from the work queue.
type StemsWorker struct {
	pipeline *pipeline.Pipeline
}

func NewStemsWorker(p *pipeline.Pipeline) *StemsWorker {
	return &StemsWorker{pipeline: p}
}

// ProcessTask handles one stems:process task.
func (w *StemsWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload taskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %v: %w", err, asynq.SkipRetry)
	}

	log.Printf("Processing upload: %s", payload.UploadID)

	if err := w.pipeline.ProcessUpload(ctx, payload.UploadID); err != nil {
		if pipeline.IsNotFound(err) {
			// The registry entry is gone; retrying cannot help.
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	return nil
}
