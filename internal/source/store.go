package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"wattwise/internal"
	"wattwise/internal/storage"
)

// SnapshotStore keeps every distinct export on disk, named by content hash.
type SnapshotStore struct {
	db     *storage.DB
	rawDir string
}

func NewSnapshotStore(db *storage.DB, rawDir string) *SnapshotStore {
	return &SnapshotStore{db: db, rawDir: rawDir}
}

// Store writes blob under its sha256 and records it. fresh is false when the
// same content was stored before.
func (s *SnapshotStore) Store(ctx context.Context, source string, blob []byte) (snap internal.SnapshotRow, fresh bool, err error) {
	hashBytes := sha256.Sum256(blob)
	hash := hex.EncodeToString(hashBytes[:])

	if err := os.MkdirAll(s.rawDir, 0o755); err != nil {
		return internal.SnapshotRow{}, false, err
	}

	rawPath := filepath.Join(s.rawDir, hash+".csv")
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, blob, 0o644); err != nil {
			return internal.SnapshotRow{}, false, err
		}
	}

	snap = internal.SnapshotRow{
		Source:    source,
		Hash:      hash,
		RawRef:    rawPath,
		SizeBytes: len(blob),
		FetchedAt: s.db.Timestamp(),
	}
	fresh, err = s.db.InsertSnapshot(ctx, snap)
	if err != nil {
		return internal.SnapshotRow{}, false, err
	}
	return snap, fresh, nil
}
