package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go-media-share/internal/model"
	"go-media-share/internal/storage"
	"go-media-share/internal/testutil"
)

func TestOrphanSweeper_Sweep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	blobs, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	media := testutil.NewMediaStore()

	for _, key := range []string{"image/kept.png", "image/orphan-a.png", "video/orphan-b.mp4"} {
		_, err := blobs.Save(ctx, key, strings.NewReader("data"), "image/png")
		require.NoError(t, err)
	}
	require.NoError(t, media.Create(ctx, model.Media{ID: "m-1", OwnerID: "u-1", FilePath: "image/kept.png", Size: 4}))

	sweeper := NewOrphanSweeper(blobs, media, time.Hour, nil)
	// every blob was written just now; only a later clock makes them old
	sweeper.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	result, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Scanned)
	assert.Equal(t, 2, result.Deleted)

	remaining, err := blobs.List(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "image/kept.png", remaining[0].Key)
}

func TestOrphanSweeper_RespectsGracePeriod(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	blobs, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	_, err = blobs.Save(ctx, "image/new.png", strings.NewReader("data"), "image/png")
	require.NoError(t, err)

	sweeper := NewOrphanSweeper(blobs, testutil.NewMediaStore(), time.Hour, nil)
	result, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Deleted)

	remaining, err := blobs.List(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestOrphanSweeper_CountsFailedDeletes(t *testing.T) {
	t.Parallel()

	old := time.Now().Add(-48 * time.Hour)
	mockStore := new(storage.MockStorage)
	mockStore.On("List", mock.Anything).Return([]storage.BlobInfo{{Key: "image/a.png", ModTime: old}}, nil)
	mockStore.On("Delete", mock.Anything, "image/a.png").Return(errors.New("permission denied"))

	sweeper := NewOrphanSweeper(mockStore, testutil.NewMediaStore(), time.Hour, nil)
	result, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.Deleted)
	mockStore.AssertExpectations(t)
}
