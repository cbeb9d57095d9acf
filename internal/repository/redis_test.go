package repository

import (
	"context"
	"testing"
	"time"

	"kladovka/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisRepo(t *testing.T) *RedisLabelRepository {
	t.Helper()

	mr := miniredis.RunT(t)
	client := NewRedisClient(config.RedisConfig{
		Address:  mr.Addr(),
		DB:       0,
		PoolSize: 10,
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisLabelRepository(client, time.Hour)
}

func TestRedisLabelRepository_SetGet(t *testing.T) {
	repo := setupRedisRepo(t)
	ctx := context.Background()

	png := []byte{0x89, 0x50, 0x4E, 0x47}
	require.NoError(t, repo.SetLabel(ctx, "P0000001", 256, png))

	got, err := repo.GetLabel(ctx, "P0000001", 256)
	require.NoError(t, err)
	assert.Equal(t, png, got)
}

func TestRedisLabelRepository_Miss(t *testing.T) {
	repo := setupRedisRepo(t)

	got, err := repo.GetLabel(context.Background(), "P0000009", 256)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisLabelRepository_DeleteLabels(t *testing.T) {
	repo := setupRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetLabel(ctx, "P0000001", 256, []byte("a")))
	require.NoError(t, repo.SetLabel(ctx, "P0000001", 512, []byte("b")))
	require.NoError(t, repo.SetLabel(ctx, "P0000002", 256, []byte("c")))

	require.NoError(t, repo.DeleteLabels(ctx, "P0000001"))

	got, err := repo.GetLabel(ctx, "P0000001", 256)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = repo.GetLabel(ctx, "P0000002", 256)
	require.NoError(t, err)
	assert.Equal(t, []byte("c"), got)
}

func TestRedisLabelRepository_NilClient(t *testing.T) {
	repo := NewRedisLabelRepository(nil, time.Hour)
	ctx := context.Background()

	_, err := repo.GetLabel(ctx, "P0000001", 256)
	assert.Error(t, err)
	assert.Error(t, repo.SetLabel(ctx, "P0000001", 256, []byte("a")))
	assert.Error(t, repo.DeleteLabels(ctx, "P0000001"))
}

func TestPing(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	assert.NoError(t, Ping(context.Background(), client))

	mr.Close()
	assert.Error(t, Ping(context.Background(), client))
}
