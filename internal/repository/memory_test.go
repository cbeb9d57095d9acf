package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLabelRepository_SetGet(t *testing.T) {
	repo := NewMemoryLabelRepository(time.Minute)
	ctx := context.Background()

	png := []byte{0x89, 0x50, 0x4E, 0x47}
	require.NoError(t, repo.SetLabel(ctx, "P0000001", 256, png))

	got, err := repo.GetLabel(ctx, "P0000001", 256)
	require.NoError(t, err)
	assert.Equal(t, png, got)

	// Другой размер — отдельная запись
	miss, err := repo.GetLabel(ctx, "P0000001", 512)
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestMemoryLabelRepository_Expiry(t *testing.T) {
	repo := NewMemoryLabelRepository(10 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, repo.SetLabel(ctx, "P0000001", 256, []byte("png")))
	time.Sleep(30 * time.Millisecond)

	got, err := repo.GetLabel(ctx, "P0000001", 256)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryLabelRepository_DeleteLabels(t *testing.T) {
	repo := NewMemoryLabelRepository(time.Minute)
	ctx := context.Background()

	require.NoError(t, repo.SetLabel(ctx, "P0000001", 256, []byte("a")))
	require.NoError(t, repo.SetLabel(ctx, "P0000001", 512, []byte("b")))
	require.NoError(t, repo.SetLabel(ctx, "P0000002", 256, []byte("c")))

	require.NoError(t, repo.DeleteLabels(ctx, "P0000001"))

	got, err := repo.GetLabel(ctx, "P0000001", 256)
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = repo.GetLabel(ctx, "P0000001", 512)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Чужие этикетки не задеты
	got, err = repo.GetLabel(ctx, "P0000002", 256)
	require.NoError(t, err)
	assert.Equal(t, []byte("c"), got)
}
