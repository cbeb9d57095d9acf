package database

import (
	"context"
	"fmt"
	"os"

	"kladovka/internal/models"
)

// GetStats собирает сводку по базе для страницы статистики.
func (db *DB) GetStats(ctx context.Context) (*models.Stats, error) {
	stats := &models.Stats{}

	counts := []struct {
		query string
		dest  *int64
	}{
		{`SELECT COUNT(*) FROM items`, &stats.ItemCount},
		{`SELECT COUNT(*) FROM transactions`, &stats.TransactionCount},
		{`SELECT COALESCE(SUM(quantity), 0) FROM items`, &stats.TotalQuantity},
		{`SELECT COUNT(DISTINCT location) FROM items WHERE location IS NOT NULL AND location != ''`, &stats.LocationCount},
		{`SELECT COUNT(DISTINCT category) FROM items WHERE category IS NOT NULL AND category != ''`, &stats.CategoryCount},
	}
	for _, c := range counts {
		if err := db.conn.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to collect stats: %w", err)
		}
	}

	if info, err := os.Stat(db.path); err == nil {
		stats.StoreSizeBytes = info.Size()
	}

	recent, err := db.GetRecentActivity(ctx, models.RecentActivityLimit)
	if err != nil {
		return nil, err
	}
	stats.RecentActivity = recent

	return stats, nil
}
