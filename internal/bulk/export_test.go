package bulk

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"kladovka/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportCSV(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateItem(ctx, &models.Item{Name: "Zip Ties", Quantity: 100, Location: "Garage"}, ""))
	require.NoError(t, db.CreateItem(ctx, &models.Item{Name: "Allen Keys", Quantity: 1, Category: "Tools"}, ""))

	var buf bytes.Buffer
	require.NoError(t, ExportCSV(ctx, db, &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, exportColumns, records[0])

	// Сортировка по имени
	assert.Equal(t, "Allen Keys", records[1][1])
	assert.Equal(t, "Zip Ties", records[2][1])
	assert.Equal(t, "100", records[2][5])
}

func TestExportCSV_Empty(t *testing.T) {
	db := setupTestDB(t)

	var buf bytes.Buffer
	require.NoError(t, ExportCSV(context.Background(), db, &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1, "header only")
}

func TestExportImportRoundTrip(t *testing.T) {
	src := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, src.CreateItem(ctx, &models.Item{Name: "Ladder", Description: "6ft aluminium", Category: "Tools", Location: "Shed", Quantity: 1}, ""))
	require.NoError(t, src.CreateItem(ctx, &models.Item{Name: "Rope", Quantity: 3}, ""))

	var buf bytes.Buffer
	require.NoError(t, ExportCSV(ctx, src, &buf))

	dst := setupTestDB(t)
	result, err := Import(ctx, dst, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Added)
	assert.Equal(t, 0, result.ErrorCount)

	items, err := dst.SearchItems(ctx, models.ItemFilter{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Ladder", items[0].Name)
	assert.Equal(t, "6ft aluminium", items[0].Description)
	assert.Equal(t, "Shed", items[0].Location)
	assert.Equal(t, int64(3), items[1].Quantity)
}

func TestExportExcel(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateItem(ctx, &models.Item{Name: "Monitor", Quantity: 2, Location: "Office"}, ""))

	var buf bytes.Buffer
	require.NoError(t, ExportExcel(ctx, db, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Inventory")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "id", rows[0][0])
	assert.Equal(t, "Monitor", rows[1][1])
	assert.Equal(t, "2", rows[1][5])
}

func TestTemplate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Template(&buf))
	raw := buf.String()

	records, err := csv.NewReader(strings.NewReader(raw)).ReadAll()
	require.NoError(t, err)
	require.Greater(t, len(records), 1)
	assert.Equal(t, []string{"name", "description", "category", "location", "quantity"}, records[0])

	// Шаблон должен проходить через импорт без ошибок
	db := setupTestDB(t)
	result, err := Import(context.Background(), db, strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, len(records)-1, result.Added)
	assert.Equal(t, 0, result.ErrorCount)
}
