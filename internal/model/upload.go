package model

import (
	"strings"
	"time"
)

// Upload status
type UploadStatus string

const (
	UploadStatusQueued     UploadStatus = "queued"
	UploadStatusUploading  UploadStatus = "uploading"
	UploadStatusProcessing UploadStatus = "processing"
	UploadStatusComplete   UploadStatus = "complete"
	UploadStatusFailed     UploadStatus = "failed"
)

// Terminal reports whether no further transitions are allowed from s.
// A failed upload may still be re-queued through an explicit retry.
func (s UploadStatus) Terminal() bool {
	return s == UploadStatusComplete || s == UploadStatusFailed
}

// Stem types
type StemType string

const (
	StemDrums    StemType = "drums"
	StemVocals   StemType = "vocals"
	StemBass     StemType = "bass"
	StemOriginal StemType = "original"
)

// InferStemType classifies a file reference by filename token.
// Case-insensitive substring match, first match wins: drums, vocals, bass,
// then the original/other fallback.
func InferStemType(ref string) StemType {
	lower := strings.ToLower(ref)
	switch {
	case strings.Contains(lower, "drum"):
		return StemDrums
	case strings.Contains(lower, "vocal"):
		return StemVocals
	case strings.Contains(lower, "bass"):
		return StemBass
	default:
		return StemOriginal
	}
}

// Stem is a derived audio component of an uploaded track.
type Stem struct {
	ID   string   `json:"id"`
	URI  string   `json:"uri"`
	Type StemType `json:"type"`
}

// Track groups the stems of one track inside an upload.
type Track struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Stems []Stem `json:"stems"`
}

// UploadJob tracks one ingestion unit through its lifecycle.
type UploadJob struct {
	ID             string         `json:"id"`
	ArtistID       string         `json:"artistId"`
	FileReferences []string       `json:"fileReferences"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Status         UploadStatus   `json:"status"`
	Stems          []Stem         `json:"stems,omitempty"`
	Error          *string        `json:"error,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	CompletedAt    *time.Time     `json:"completedAt,omitempty"`
}

// Title returns the release title from the caller-supplied metadata.
func (j *UploadJob) Title() string {
	if title, ok := j.Metadata["title"].(string); ok && title != "" {
		return title
	}
	return "Untitled"
}

// SubmitUploadRequest represents the request to submit an upload
type SubmitUploadRequest struct {
	ArtistID       string         `json:"artistId" validate:"required"`
	FileReferences []string       `json:"fileReferences" validate:"required,min=1,dive,required"`
	Metadata       map[string]any `json:"metadata" validate:"omitempty"`
}

// SubmitUploadResponse represents the response when an upload is accepted
type SubmitUploadResponse struct {
	ID        string       `json:"id"`
	Status    UploadStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
}

// UploadStatusResponse represents the current status of an upload job
type UploadStatusResponse struct {
	ID     string       `json:"id"`
	Status UploadStatus `json:"status"`
	Stems  []Stem       `json:"stems,omitempty"`
	Error  *string      `json:"error,omitempty"`
}
