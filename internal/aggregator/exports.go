package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stemworks/api/internal/model"
)

// ExportStore persists rollup export snapshots for external reporting.
type ExportStore interface {
	SaveExport(ctx context.Context, snap model.ExportSnapshot) error
}

// rollupRetention bounds how long persisted rollups stay around.
const rollupRetention = 30 * 24 * time.Hour

// RedisExportStore keeps one JSON snapshot per artist and day.
type RedisExportStore struct {
	redis *redis.Client
}

func NewRedisExportStore(redisClient *redis.Client) *RedisExportStore {
	return &RedisExportStore{redis: redisClient}
}

func (s *RedisExportStore) SaveExport(ctx context.Context, snap model.ExportSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal export: %w", err)
	}
	key := fmt.Sprintf("rollup:%s:%s", snap.ArtistID, snap.GeneratedAt.Format("2006-01-02"))
	return s.redis.Set(ctx, key, data, rollupRetention).Err()
}

// MemoryExportStore collects snapshots in memory. Used in tests and when no
// redis is configured.
type MemoryExportStore struct {
	mu    sync.Mutex
	snaps []model.ExportSnapshot
}

func NewMemoryExportStore() *MemoryExportStore {
	return &MemoryExportStore{}
}

func (s *MemoryExportStore) SaveExport(_ context.Context, snap model.ExportSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, snap)
	return nil
}

// Exports returns a copy of everything saved so far.
func (s *MemoryExportStore) Exports() []model.ExportSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ExportSnapshot(nil), s.snaps...)
}
