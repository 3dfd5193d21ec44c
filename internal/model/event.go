package model

import "time"

// Event names published on the bus
const (
	EventStemsUploaded  = "stems.uploaded"
	EventStemsProcessed = "stems.processed"
	EventLicenseGranted = "license.granted"
	EventPaymentSettled = "payment.settled"
	EventCurationAdded  = "curation.added"
	EventRecommendation = "recommendation.served"
)

// KnownEventNames lists every event name the log subscribes to.
var KnownEventNames = []string{
	EventStemsUploaded,
	EventStemsProcessed,
	EventLicenseGranted,
	EventPaymentSettled,
	EventCurationAdded,
	EventRecommendation,
}

// DomainEvent is an immutable fact describing something that happened.
// OccurredAt is assigned by the producer, not by the bus.
type DomainEvent struct {
	Name       string    `json:"name"`
	Version    int       `json:"version"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// NewEvent builds a version-1 event with a producer-assigned timestamp.
func NewEvent(name string, occurredAt time.Time, payload any) DomainEvent {
	return DomainEvent{
		Name:       name,
		Version:    1,
		OccurredAt: occurredAt,
		Payload:    payload,
	}
}

// Default buckets substituted when a payload omits attribution fields.
const (
	UnknownTrackID    = "unknown"
	UnknownTrackTitle = "Unknown Track"
	UnknownBucket     = "unknown"
)

// PlayAttribution carries the grouping fields shared by licensing and
// payment payloads. Missing fields fall back to the unknown buckets via the
// accessor methods so default substitution lives in one place.
type PlayAttribution struct {
	ArtistID  string `json:"artistId"`
	TrackID   string `json:"trackId,omitempty"`
	Title     string `json:"title,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Source    string `json:"source,omitempty"`
}

// TrackKey returns the track grouping key, defaulting to the unknown bucket.
func (a PlayAttribution) TrackKey() string {
	if a.TrackID == "" {
		return UnknownTrackID
	}
	return a.TrackID
}

// TrackTitle returns the display title, defaulting to "Unknown Track".
func (a PlayAttribution) TrackTitle() string {
	if a.Title == "" {
		return UnknownTrackTitle
	}
	return a.Title
}

// SessionKey returns the session grouping key.
func (a PlayAttribution) SessionKey() string {
	if a.SessionID == "" {
		return UnknownBucket
	}
	return a.SessionID
}

// SourceKey returns the traffic-source grouping key.
func (a PlayAttribution) SourceKey() string {
	if a.Source == "" {
		return UnknownBucket
	}
	return a.Source
}

// LicenseGrantedPayload is emitted when a listener is licensed to play a track.
type LicenseGrantedPayload struct {
	PlayAttribution
}

// PaymentSettledPayload is emitted when a payment for a play settles.
type PaymentSettledPayload struct {
	PlayAttribution
	AmountUSD float64 `json:"amountUsd"`
}

// StemsUploadedPayload is the denormalized draft snapshot published at
// submission time, before any processing has run.
type StemsUploadedPayload struct {
	ArtistID string         `json:"artistId"`
	UploadID string         `json:"uploadId"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Tracks   []Track        `json:"tracks"`
}

// StemsProcessedPayload carries the finalized track/stem structures with
// playable URIs.
type StemsProcessedPayload struct {
	ArtistID string  `json:"artistId"`
	UploadID string  `json:"uploadId"`
	Tracks   []Track `json:"tracks"`
}
