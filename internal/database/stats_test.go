package database

import (
	"context"
	"testing"

	"kladovka/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStats_Empty(t *testing.T) {
	db := setupTestDB(t)

	stats, err := db.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.ItemCount)
	assert.Equal(t, int64(0), stats.TransactionCount)
	assert.Equal(t, int64(0), stats.TotalQuantity)
	assert.Empty(t, stats.RecentActivity)
	assert.Greater(t, stats.StoreSizeBytes, int64(0))
}

func TestGetStats_Counts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateItem(ctx, &models.Item{Name: "Hammer", Quantity: 2, Location: "Garage", Category: "Tools"}, ""))
	require.NoError(t, db.CreateItem(ctx, &models.Item{Name: "Saw", Quantity: 1, Location: "Garage", Category: "Tools"}, ""))
	require.NoError(t, db.CreateItem(ctx, &models.Item{Name: "Mug", Quantity: 4, Location: "Kitchen"}, ""))

	stats, err := db.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.ItemCount)
	assert.Equal(t, int64(3), stats.TransactionCount)
	assert.Equal(t, int64(7), stats.TotalQuantity)
	assert.Equal(t, int64(2), stats.LocationCount)
	// Пустая категория не считается
	assert.Equal(t, int64(1), stats.CategoryCount)
	require.Len(t, stats.RecentActivity, 3)
	assert.Equal(t, "Mug", stats.RecentActivity[0].ItemName)
}
