package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/stemworks/api/internal/eventbus"
	"github.com/stemworks/api/internal/model"
	"github.com/stemworks/api/internal/registry"
)

// Scheduler defers processing of a submitted upload. The production
// implementation enqueues a task on the work queue; tests inject a
// synchronous one.
type Scheduler interface {
	Schedule(ctx context.Context, uploadID string, delay time.Duration) error
}

// Config holds pipeline tuning knobs.
type Config struct {
	// ProcessingDelay models the time the processing backend takes before an
	// upload leaves the queue.
	ProcessingDelay time.Duration
	// SampleURI is the canned playable URI substituted for file references
	// that are not http(s)/blob URIs. Development fallback policy only.
	SampleURI string
}

// Pipeline orchestrates upload acceptance, processing, stem derivation and
// status transitions. It owns the registry exclusively and announces
// transitions on the bus.
type Pipeline struct {
	store     registry.Store
	bus       *eventbus.Bus
	scheduler Scheduler
	cfg       Config
	now       func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(store registry.Store, bus *eventbus.Bus, scheduler Scheduler, cfg Config) *Pipeline {
	return &Pipeline{
		store:     store,
		bus:       bus,
		scheduler: scheduler,
		cfg:       cfg,
		now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
	}
}

// SubmitUpload accepts an ingestion job, publishes the draft snapshot and
// schedules asynchronous processing.
func (p *Pipeline) SubmitUpload(ctx context.Context, req *model.SubmitUploadRequest) (*model.SubmitUploadResponse, error) {
	if len(req.FileReferences) == 0 {
		return nil, fmt.Errorf("fileReferences must not be empty: %w", ErrValidation)
	}
	if strings.TrimSpace(req.ArtistID) == "" {
		return nil, fmt.Errorf("artistId is required: %w", ErrValidation)
	}

	now := p.now()
	job := &model.UploadJob{
		ID:             newID(PrefixUpload, now),
		ArtistID:       req.ArtistID,
		FileReferences: req.FileReferences,
		Metadata:       req.Metadata,
		Status:         model.UploadStatusQueued,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := p.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create upload: %w", err)
	}

	// Downstream listeners get a usable draft model immediately, before any
	// processing has run. Stem URIs are still the raw references here.
	p.bus.Publish(model.NewEvent(model.EventStemsUploaded, now, model.StemsUploadedPayload{
		ArtistID: job.ArtistID,
		UploadID: job.ID,
		Metadata: job.Metadata,
		Tracks:   []model.Track{p.draftTrack(job)},
	}))

	if err := p.scheduler.Schedule(ctx, job.ID, p.cfg.ProcessingDelay); err != nil {
		p.failJob(ctx, job, "failed to schedule processing")
		return nil, fmt.Errorf("failed to schedule processing: %w", err)
	}

	return &model.SubmitUploadResponse{
		ID:        job.ID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
	}, nil
}

// ProcessUpload runs the deferred processing step for one upload. It is
// driven by the scheduler, never called by collaborators directly.
//
// All transitions for one id serialize on a per-id lock, so a cancel either
// lands before this runs (the job is failed and the completion is discarded)
// or blocks until processing finishes (and then conflicts). A cancelled
// upload can never be flipped back to complete.
func (p *Pipeline) ProcessUpload(ctx context.Context, id string) error {
	lock := p.jobLock(id)
	lock.Lock()
	defer lock.Unlock()

	job, err := p.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("upload %s: %w", id, err)
	}
	if job.Status != model.UploadStatusQueued {
		// Cancelled while queued, or already picked up. Drop the pending run.
		log.Printf("Skipping processing for upload %s in status %s", id, job.Status)
		return nil
	}

	job.Status = model.UploadStatusProcessing
	job.UpdatedAt = p.now()
	if err := p.store.Update(ctx, job); err != nil {
		return fmt.Errorf("failed to mark upload %s processing: %w", id, err)
	}

	stems := make([]model.Stem, 0, len(job.FileReferences))
	for _, ref := range job.FileReferences {
		stems = append(stems, model.Stem{
			ID:   newID(PrefixStem, p.now()),
			URI:  p.resolveURI(ref),
			Type: model.InferStemType(ref),
		})
	}

	now := p.now()
	job.Stems = stems
	job.Status = model.UploadStatusComplete
	job.UpdatedAt = now
	job.CompletedAt = &now
	if err := p.store.Update(ctx, job); err != nil {
		p.failJob(ctx, job, "failed to save processed stems")
		return fmt.Errorf("failed to complete upload %s: %w", id, err)
	}

	p.bus.Publish(model.NewEvent(model.EventStemsProcessed, now, model.StemsProcessedPayload{
		ArtistID: job.ArtistID,
		UploadID: job.ID,
		Tracks: []model.Track{{
			ID:    newID(PrefixTrack, now),
			Title: job.Title(),
			Stems: stems,
		}},
	}))

	log.Printf("Upload %s processed with %d stems", id, len(stems))
	return nil
}

// GetStatus returns the lifecycle status of an upload.
func (p *Pipeline) GetStatus(ctx context.Context, id string) (*model.UploadStatusResponse, error) {
	job, err := p.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", id, err)
	}

	return &model.UploadStatusResponse{
		ID:     job.ID,
		Status: job.Status,
		Stems:  job.Stems,
		Error:  job.Error,
	}, nil
}

// Retry re-enters a failed upload at queued and re-runs processing. Any other
// status is a state conflict and leaves the job untouched.
func (p *Pipeline) Retry(ctx context.Context, id string) (*model.UploadStatusResponse, error) {
	lock := p.jobLock(id)
	lock.Lock()
	defer lock.Unlock()

	job, err := p.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", id, err)
	}
	if job.Status != model.UploadStatusFailed {
		return nil, fmt.Errorf("retry requires a failed upload, got %s: %w", job.Status, ErrStateConflict)
	}

	job.Status = model.UploadStatusQueued
	job.Error = nil
	job.Stems = nil
	job.CompletedAt = nil
	job.UpdatedAt = p.now()
	if err := p.store.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to re-queue upload %s: %w", id, err)
	}

	if err := p.scheduler.Schedule(ctx, job.ID, p.cfg.ProcessingDelay); err != nil {
		p.failJob(ctx, job, "failed to schedule processing")
		return nil, fmt.Errorf("failed to schedule processing: %w", err)
	}

	return &model.UploadStatusResponse{ID: job.ID, Status: job.Status}, nil
}

// Cancel fails an upload that has not finished yet. Terminal uploads conflict.
func (p *Pipeline) Cancel(ctx context.Context, id string) (*model.UploadStatusResponse, error) {
	lock := p.jobLock(id)
	lock.Lock()
	defer lock.Unlock()

	job, err := p.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", id, err)
	}
	if job.Status.Terminal() {
		return nil, fmt.Errorf("upload already %s: %w", job.Status, ErrStateConflict)
	}

	msg := "cancelled"
	now := p.now()
	job.Status = model.UploadStatusFailed
	job.Error = &msg
	job.UpdatedAt = now
	job.CompletedAt = &now
	if err := p.store.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to cancel upload %s: %w", id, err)
	}

	return &model.UploadStatusResponse{ID: job.ID, Status: job.Status, Error: job.Error}, nil
}

// draftTrack builds the denormalized track snapshot for the uploaded event.
func (p *Pipeline) draftTrack(job *model.UploadJob) model.Track {
	now := p.now()
	stems := make([]model.Stem, 0, len(job.FileReferences))
	for _, ref := range job.FileReferences {
		stems = append(stems, model.Stem{
			ID:   newID(PrefixStem, now),
			URI:  ref,
			Type: model.InferStemType(ref),
		})
	}
	return model.Track{
		ID:    newID(PrefixTrack, now),
		Title: job.Title(),
		Stems: stems,
	}
}

// resolveURI maps a file reference to a playable URI. References that are not
// already http(s)/blob URIs fall back to the configured sample URI.
func (p *Pipeline) resolveURI(ref string) string {
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "blob:") {
		return ref
	}
	return p.cfg.SampleURI
}

// failJob records an asynchronous failure on the job. There is no synchronous
// channel for these; callers learn of them via GetStatus.
func (p *Pipeline) failJob(ctx context.Context, job *model.UploadJob, msg string) {
	now := p.now()
	job.Status = model.UploadStatusFailed
	job.Error = &msg
	job.UpdatedAt = now
	job.CompletedAt = &now
	if err := p.store.Update(ctx, job); err != nil {
		log.Printf("Failed to mark upload %s as failed: %v", job.ID, err)
	}
}

// jobLock returns the mutex serializing transitions for one upload id.
func (p *Pipeline) jobLock(id string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	lock, ok := p.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[id] = lock
	}
	return lock
}

// IsNotFound reports whether err means the upload id is unknown, as opposed
// to a genuine processing failure recorded on the job.
func IsNotFound(err error) bool {
	return errors.Is(err, registry.ErrNotFound)
}
