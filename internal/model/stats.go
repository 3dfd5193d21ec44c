package model

import "time"

// TrackStats accumulates plays and payouts for one track.
type TrackStats struct {
	TrackID   string  `json:"trackId"`
	Title     string  `json:"title"`
	Plays     int     `json:"plays"`
	PayoutUSD float64 `json:"payoutUsd"`
}

// SessionStats accumulates plays and payouts for one listening session.
type SessionStats struct {
	SessionID string  `json:"sessionId"`
	Plays     int     `json:"plays"`
	PayoutUSD float64 `json:"payoutUsd"`
}

// SourceStats accumulates plays and payouts for one traffic source.
type SourceStats struct {
	Source    string  `json:"source"`
	Plays     int     `json:"plays"`
	PayoutUSD float64 `json:"payoutUsd"`
}

// StatsSummary totals a window of activity for one artist.
type StatsSummary struct {
	ArtistID       string  `json:"artistId"`
	Days           int     `json:"days"`
	TotalPlays     int     `json:"totalPlays"`
	TotalPayoutUSD float64 `json:"totalPayoutUsd"`
}

// ArtistStatsResponse is the stats projection for one artist and window.
type ArtistStatsResponse struct {
	Summary StatsSummary `json:"summary"`
	Tracks  []TrackStats `json:"tracks"`
}

// ExportSnapshot is the reporting snapshot attached to dashboards and
// persisted by the daily rollup.
type ExportSnapshot struct {
	ArtistID       string    `json:"artistId"`
	Days           int       `json:"days"`
	TotalPlays     int       `json:"totalPlays"`
	TotalPayoutUSD float64   `json:"totalPayoutUsd"`
	GeneratedAt    time.Time `json:"generatedAt"`
}

// ArtistDashboardResponse is the dashboard projection: stats plus session and
// source breakdowns and an export snapshot.
type ArtistDashboardResponse struct {
	Summary  StatsSummary   `json:"summary"`
	Tracks   []TrackStats   `json:"tracks"`
	Sessions []SessionStats `json:"sessions"`
	Sources  []SourceStats  `json:"sources"`
	Export   ExportSnapshot `json:"export"`
}

// RollupResult reports one daily rollup run.
type RollupResult struct {
	Status         string    `json:"status"`
	Artists        int       `json:"artists"`
	TotalPlays     int       `json:"totalPlays"`
	TotalPayoutUSD float64   `json:"totalPayoutUsd"`
	RanAt          time.Time `json:"ranAt"`
}
