package aggregator

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/stemworks/api/internal/eventlog"
	"github.com/stemworks/api/internal/model"
)

// Aggregator computes windowed projections over the event log. Every call
// recomputes from scratch; the log is the single source of truth and the
// aggregator never mutates state.
type Aggregator struct {
	log     *eventlog.Log
	exports ExportStore
	now     func() time.Time
}

func New(eventLog *eventlog.Log, exports ExportStore) *Aggregator {
	return &Aggregator{
		log:     eventLog,
		exports: exports,
		now:     time.Now,
	}
}

// ArtistStats returns play counts and payouts per track for one artist over
// the trailing window.
func (a *Aggregator) ArtistStats(artistID string, days int) *model.ArtistStatsResponse {
	acc := a.collect(artistID, days)
	return &model.ArtistStatsResponse{
		Summary: acc.summary,
		Tracks:  acc.sortedTracks(),
	}
}

// ArtistDashboard returns the stats projection plus session and source
// breakdowns and an export snapshot for external reporting.
func (a *Aggregator) ArtistDashboard(artistID string, days int) *model.ArtistDashboardResponse {
	acc := a.collect(artistID, days)
	return &model.ArtistDashboardResponse{
		Summary:  acc.summary,
		Tracks:   acc.sortedTracks(),
		Sessions: acc.sortedSessions(),
		Sources:  acc.sortedSources(),
		Export: model.ExportSnapshot{
			ArtistID:       artistID,
			Days:           days,
			TotalPlays:     acc.summary.TotalPlays,
			TotalPayoutUSD: acc.summary.TotalPayoutUSD,
			GeneratedAt:    a.now(),
		},
	}
}

// DailyRollup aggregates a 1-day window for every artist seen in it and
// persists each artist's export snapshot.
func (a *Aggregator) DailyRollup(ctx context.Context) (*model.RollupResult, error) {
	since := a.windowStart(1)
	seen := make(map[string]bool)
	for _, evt := range a.log.Query("", since) {
		if attr, ok := attributionFor(evt); ok && attr.ArtistID != "" {
			seen[attr.ArtistID] = true
		}
	}

	result := &model.RollupResult{
		Status: "completed",
		RanAt:  a.now(),
	}
	for artistID := range seen {
		acc := a.collect(artistID, 1)
		snap := model.ExportSnapshot{
			ArtistID:       artistID,
			Days:           1,
			TotalPlays:     acc.summary.TotalPlays,
			TotalPayoutUSD: acc.summary.TotalPayoutUSD,
			GeneratedAt:    result.RanAt,
		}
		if err := a.exports.SaveExport(ctx, snap); err != nil {
			return nil, fmt.Errorf("failed to persist rollup for %s: %w", artistID, err)
		}
		result.Artists++
		result.TotalPlays += snap.TotalPlays
		result.TotalPayoutUSD += snap.TotalPayoutUSD
	}

	log.Printf("Daily rollup completed for %d artists", result.Artists)
	return result, nil
}

// accumulator buckets one artist's window by track, session and source.
type accumulator struct {
	summary  model.StatsSummary
	tracks   map[string]*model.TrackStats
	sessions map[string]*model.SessionStats
	sources  map[string]*model.SourceStats
}

func (a *Aggregator) collect(artistID string, days int) *accumulator {
	acc := &accumulator{
		summary:  model.StatsSummary{ArtistID: artistID, Days: days},
		tracks:   make(map[string]*model.TrackStats),
		sessions: make(map[string]*model.SessionStats),
		sources:  make(map[string]*model.SourceStats),
	}

	since := a.windowStart(days)
	for _, evt := range a.log.Query("", since) {
		switch payload := evt.Payload.(type) {
		case model.LicenseGrantedPayload:
			if payload.ArtistID != artistID {
				continue
			}
			acc.track(payload.PlayAttribution).Plays++
			acc.session(payload.PlayAttribution).Plays++
			acc.source(payload.PlayAttribution).Plays++
			acc.summary.TotalPlays++
		case model.PaymentSettledPayload:
			if payload.ArtistID != artistID {
				continue
			}
			acc.track(payload.PlayAttribution).PayoutUSD += payload.AmountUSD
			acc.session(payload.PlayAttribution).PayoutUSD += payload.AmountUSD
			acc.source(payload.PlayAttribution).PayoutUSD += payload.AmountUSD
			acc.summary.TotalPayoutUSD += payload.AmountUSD
		}
	}
	return acc
}

// windowStart returns now − days*24h. The bound is inclusive at the lower
// edge; the log query honors that.
func (a *Aggregator) windowStart(days int) time.Time {
	return a.now().Add(-time.Duration(days) * 24 * time.Hour)
}

func (acc *accumulator) track(attr model.PlayAttribution) *model.TrackStats {
	key := attr.TrackKey()
	stats, ok := acc.tracks[key]
	if !ok {
		stats = &model.TrackStats{TrackID: key, Title: attr.TrackTitle()}
		acc.tracks[key] = stats
	}
	return stats
}

func (acc *accumulator) session(attr model.PlayAttribution) *model.SessionStats {
	key := attr.SessionKey()
	stats, ok := acc.sessions[key]
	if !ok {
		stats = &model.SessionStats{SessionID: key}
		acc.sessions[key] = stats
	}
	return stats
}

func (acc *accumulator) source(attr model.PlayAttribution) *model.SourceStats {
	key := attr.SourceKey()
	stats, ok := acc.sources[key]
	if !ok {
		stats = &model.SourceStats{Source: key}
		acc.sources[key] = stats
	}
	return stats
}

// Buckets are sorted by plays descending, then key ascending, so identical
// inputs always produce identical output.

func (acc *accumulator) sortedTracks() []model.TrackStats {
	out := make([]model.TrackStats, 0, len(acc.tracks))
	for _, stats := range acc.tracks {
		out = append(out, *stats)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Plays != out[j].Plays {
			return out[i].Plays > out[j].Plays
		}
		return out[i].TrackID < out[j].TrackID
	})
	return out
}

func (acc *accumulator) sortedSessions() []model.SessionStats {
	out := make([]model.SessionStats, 0, len(acc.sessions))
	for _, stats := range acc.sessions {
		out = append(out, *stats)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Plays != out[j].Plays {
			return out[i].Plays > out[j].Plays
		}
		return out[i].SessionID < out[j].SessionID
	})
	return out
}

func (acc *accumulator) sortedSources() []model.SourceStats {
	out := make([]model.SourceStats, 0, len(acc.sources))
	for _, stats := range acc.sources {
		out = append(out, *stats)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Plays != out[j].Plays {
			return out[i].Plays > out[j].Plays
		}
		return out[i].Source < out[j].Source
	})
	return out
}

// attributionFor extracts the grouping fields from aggregation-relevant
// events. Other event kinds stay in the log but do not feed stats.
func attributionFor(evt model.DomainEvent) (model.PlayAttribution, bool) {
	switch payload := evt.Payload.(type) {
	case model.LicenseGrantedPayload:
		return payload.PlayAttribution, true
	case model.PaymentSettledPayload:
		return payload.PlayAttribution, true
	default:
		return model.PlayAttribution{}, false
	}
}
