package source

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"wattwise/internal"
	"wattwise/internal/config"
	"wattwise/internal/metrics"
	"wattwise/internal/storage"
)

const MetaLastSync = "source.last_sync"

// Fetcher downloads the current plan export.
type Fetcher interface {
	FetchExport(ctx context.Context) ([]byte, error)
}

type SyncService struct {
	db      *storage.DB
	fetcher Fetcher
	store   *SnapshotStore
}

type SyncResult struct {
	Snapshot internal.SnapshotRow
	Fresh    bool
}

func NewSyncService(db *storage.DB, cfg config.Config, m *metrics.Registry) *SyncService {
	return NewSyncServiceWith(db, NewClient(cfg, m), cfg.RawDir)
}

func NewSyncServiceWith(db *storage.DB, fetcher Fetcher, rawDir string) *SyncService {
	return &SyncService{db: db, fetcher: fetcher, store: NewSnapshotStore(db, rawDir)}
}

// Sync downloads the export and keeps it as a raw snapshot.
func (s *SyncService) Sync(ctx context.Context) (SyncResult, error) {
	blob, err := s.fetcher.FetchExport(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("fetch export: %w", err)
	}
	if len(blob) == 0 {
		return SyncResult{}, fmt.Errorf("fetch export: empty body")
	}

	snap, fresh, err := s.store.Store(ctx, internal.SourcePowerToChoose, blob)
	if err != nil {
		return SyncResult{}, fmt.Errorf("store snapshot: %w", err)
	}
	_ = s.db.SetMetadata(ctx, MetaLastSync, snap.FetchedAt)

	log.Info().Str("hash", snap.Hash).Int("bytes", snap.SizeBytes).Bool("fresh", fresh).Msg("export synced")
	return SyncResult{Snapshot: snap, Fresh: fresh}, nil
}
