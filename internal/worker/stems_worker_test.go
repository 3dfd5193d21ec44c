package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stemworks/api/internal/eventbus"
	"github.com/stemworks/api/internal/model"
	"github.com/stemworks/api/internal/pipeline"
	"github.com/stemworks/api/internal/registry"
)

type noopScheduler struct {
	mu  sync.Mutex
	ids []string
}

func (s *noopScheduler) Schedule(_ context.Context, uploadID string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, uploadID)
	return nil
}

func newWorkerFixture(t *testing.T) (*StemsWorker, *pipeline.Pipeline) {
	t.Helper()

	p := pipeline.New(registry.NewMemoryStore(), eventbus.New(), &noopScheduler{}, pipeline.Config{
		ProcessingDelay: time.Millisecond,
		SampleURI:       "https://cdn.stemworks.io/samples/preview.mp3",
	})
	return NewStemsWorker(p), p
}

func processTask(t *testing.T, uploadID string) *asynq.Task {
	t.Helper()

	data, err := json.Marshal(taskPayload{UploadID: uploadID})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	return asynq.NewTask(TaskTypeProcessStems, data)
}

func TestProcessTask_CompletesUpload(t *testing.T) {
	w, p := newWorkerFixture(t)

	resp, err := p.SubmitUpload(context.Background(), &model.SubmitUploadRequest{
		ArtistID:       "artist-1",
		FileReferences: []string{"drums.wav", "vocals.wav"},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if err := w.ProcessTask(context.Background(), processTask(t, resp.ID)); err != nil {
		t.Fatalf("task failed: %v", err)
	}

	status, _ := p.GetStatus(context.Background(), resp.ID)
	if status.Status != model.UploadStatusComplete {
		t.Errorf("expected complete, got %s", status.Status)
	}
}

func TestProcessTask_UnknownUploadSkipsRetry(t *testing.T) {
	w, _ := newWorkerFixture(t)

	err := w.ProcessTask(context.Background(), processTask(t, "rel_missing"))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("expected SkipRetry for unknown upload, got %v", err)
	}
}

func TestProcessTask_MalformedPayloadSkipsRetry(t *testing.T) {
	w, _ := newWorkerFixture(t)

	err := w.ProcessTask(context.Background(), asynq.NewTask(TaskTypeProcessStems, []byte("not-json")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("expected SkipRetry for malformed payload, got %v", err)
	}
}
