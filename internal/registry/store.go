package registry

import (
	"context"
	"errors"

	"github.com/stemworks/api/internal/model"
)

// ErrNotFound is returned when no upload job exists for an id. Callers must
// not conflate it with a job in failed status.
var ErrNotFound = errors.New("upload not found")

// ErrAlreadyExists is returned when creating a job with a taken id.
var ErrAlreadyExists = errors.New("upload already exists")

// Store is the durable record of upload jobs. The ingestion pipeline is the
// only writer; other components observe jobs through published events or the
// status lookup.
type Store interface {
	Create(ctx context.Context, job *model.UploadJob) error
	Get(ctx context.Context, id string) (*model.UploadJob, error)
	Update(ctx context.Context, job *model.UploadJob) error
}
