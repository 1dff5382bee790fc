package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wattwise/internal"
	"wattwise/internal/storage"
)

type stubFetcher struct {
	blob []byte
	err  error
}

func (f stubFetcher) FetchExport(context.Context) ([]byte, error) {
	return f.blob, f.err
}

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSyncStoresSnapshotOnce(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	rawDir := filepath.Join(t.TempDir(), "raw")
	svc := NewSyncServiceWith(db, stubFetcher{blob: []byte("[idKey]\n1\n")}, rawDir)

	first, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, first.Fresh)
	assert.Equal(t, internal.SourcePowerToChoose, first.Snapshot.Source)
	assert.Len(t, first.Snapshot.Hash, 64)

	content, err := os.ReadFile(first.Snapshot.RawRef)
	require.NoError(t, err)
	assert.Equal(t, "[idKey]\n1\n", string(content))

	second, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.False(t, second.Fresh)
	assert.Equal(t, first.Snapshot.Hash, second.Snapshot.Hash)

	latest, err := db.LatestSnapshot(ctx, internal.SourcePowerToChoose)
	require.NoError(t, err)
	assert.Equal(t, first.Snapshot.Hash, latest.Hash)

	last, err := db.GetMetadata(ctx, MetaLastSync)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, second.Snapshot.FetchedAt, *last)
}

func TestSyncSurfacesFetchErrors(t *testing.T) {
	db := openTestDB(t)
	svc := NewSyncServiceWith(db, stubFetcher{err: ErrCircuitOpen}, t.TempDir())

	_, err := svc.Sync(context.Background())
	require.ErrorIs(t, err, ErrCircuitOpen)

	_, err = db.LatestSnapshot(context.Background(), internal.SourcePowerToChoose)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestSyncRejectsEmptyBody(t *testing.T) {
	db := openTestDB(t)
	svc := NewSyncServiceWith(db, stubFetcher{blob: nil}, t.TempDir())
	_, err := svc.Sync(context.Background())
	require.Error(t, err)
}
