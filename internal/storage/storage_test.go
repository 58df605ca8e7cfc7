package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clienthunter/leadwatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Store(ctx, "digests/b.json", []byte(`2`)))
	require.NoError(t, store.Store(ctx, "digests/a.json", []byte(`1`)))
	require.NoError(t, store.Store(ctx, "other.txt", []byte(`x`)))

	data, err := store.Retrieve(ctx, "digests/a.json")
	require.NoError(t, err)
	assert.Equal(t, []byte(`1`), data)

	names, err := store.List(ctx, DigestPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{"digests/a.json", "digests/b.json"}, names)

	require.NoError(t, store.Delete(ctx, "digests/a.json"))
	require.NoError(t, store.Delete(ctx, "digests/a.json"))

	_, err = store.Retrieve(ctx, "digests/a.json")
	assert.True(t, errors.Is(err, ErrNotExist))

	assert.Error(t, store.Store(ctx, "../escape.json", nil))
}

func TestSnapshotName(t *testing.T) {
	at := time.Date(2024, 5, 10, 9, 0, 0, 0, time.FixedZone("UTC+3", 3*60*60))
	assert.Equal(t, "digests/20240510T060000Z.json", SnapshotName(at))
}

func TestArchive(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	archive := NewArchive(store, 2)

	_, err = archive.Latest(ctx)
	assert.True(t, errors.Is(err, ErrNotExist))

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		report := &models.Report{
			GeneratedAt: base.AddDate(0, 0, i),
			Period:      "daily",
			Stats:       models.DashboardStats{TotalClients: i},
		}
		_, err := archive.Save(ctx, report)
		require.NoError(t, err)
	}

	names, err := store.List(ctx, DigestPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{"digests/20240502T090000Z.json", "digests/20240503T090000Z.json"}, names)

	latest, err := archive.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Stats.TotalClients)
	assert.True(t, latest.GeneratedAt.Equal(base.AddDate(0, 0, 2)))
}
