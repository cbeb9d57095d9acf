package database

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"kladovka/internal/config"
	"kladovka/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func setupBackupService(t *testing.T, db *DB) *BackupService {
	t.Helper()

	logger := zerolog.Nop()
	cfg := config.BackupConfig{
		Enabled:       true,
		Schedule:      "24h",
		RetentionDays: 30,
		StoragePath:   filepath.Join(t.TempDir(), "backups"),
	}
	return NewBackupService(db.Path(), cfg, &logger)
}

func TestWriteArchive_Members(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	item := &models.Item{Name: "Kettle", Quantity: 2}
	require.NoError(t, db.CreateItem(ctx, item, ""))
	_, _, err := db.ApplyStockChange(ctx, item.ID, models.ActionCheckIn, 1, "", "")
	require.NoError(t, err)

	svc := setupBackupService(t, db)

	var buf bytes.Buffer
	require.NoError(t, svc.WriteArchive(ctx, &buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	assert.True(t, names["snapshot.db"])
	assert.True(t, names["items.csv"])
	assert.True(t, names["transactions.csv"])
	assert.True(t, names["manifest.yaml"])
}

func TestWriteArchive_ManifestCounts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateItem(ctx, &models.Item{Name: "Fan", Quantity: 1}, ""))
	require.NoError(t, db.CreateItem(ctx, &models.Item{Name: "Heater", Quantity: 1}, ""))

	svc := setupBackupService(t, db)

	var buf bytes.Buffer
	require.NoError(t, svc.WriteArchive(ctx, &buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	var manifest archiveManifest
	for _, f := range zr.File {
		if f.Name != archiveManifestName {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		require.NoError(t, yaml.NewDecoder(rc).Decode(&manifest))
		rc.Close()
	}

	assert.Equal(t, int64(2), manifest.ItemCount)
	assert.Equal(t, int64(2), manifest.TransactionCount)
	assert.NotEmpty(t, manifest.CreatedAt)
}

func TestPerformBackup_WritesFile(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateItem(ctx, &models.Item{Name: "Chair"}, ""))

	svc := setupBackupService(t, db)
	require.NoError(t, svc.PerformBackup(ctx))

	entries, err := os.ReadDir(svc.config.StoragePath)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "backup_"))
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".zip"))
}

func TestRestore_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateItem(ctx, &models.Item{Name: "Original", Quantity: 5}, ""))

	svc := setupBackupService(t, db)
	var archive bytes.Buffer
	require.NoError(t, svc.WriteArchive(ctx, &archive))

	// Меняем базу после снимка
	extra := &models.Item{Name: "Extra"}
	require.NoError(t, db.CreateItem(ctx, extra, ""))
	require.NoError(t, db.Close())

	require.NoError(t, svc.Restore(ctx, bytes.NewReader(archive.Bytes())))
	require.NoError(t, db.Reconnect())
	defer db.Close()

	items, err := db.SearchItems(ctx, models.ItemFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Original", items[0].Name)

	// Предыдущее состояние сохранено рядом с базой
	entries, err := os.ReadDir(filepath.Dir(db.Path()))
	require.NoError(t, err)
	found := false
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "pre_restore_") {
			found = true
		}
	}
	assert.True(t, found, "pre-restore snapshot should exist")
}

func TestRestore_RejectsArchiveWithoutStore(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	item := &models.Item{Name: "Survivor"}
	require.NoError(t, db.CreateItem(ctx, item, ""))

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	member, err := zw.Create("readme.txt")
	require.NoError(t, err)
	_, err = member.Write([]byte("not a backup"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	svc := setupBackupService(t, db)
	err = svc.Restore(ctx, bytes.NewReader(buf.Bytes()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not contain a database snapshot")

	// Живая база не тронута
	_, err = db.GetItem(ctx, item.ID)
	assert.NoError(t, err)
}

func TestCleanupOldBackups(t *testing.T) {
	db := setupTestDB(t)
	svc := setupBackupService(t, db)
	require.NoError(t, os.MkdirAll(svc.config.StoragePath, 0o755))

	oldPath := filepath.Join(svc.config.StoragePath, "backup_old.zip")
	require.NoError(t, os.WriteFile(oldPath, []byte("old"), 0o644))
	oldTime := time.Now().AddDate(0, 0, -60)
	require.NoError(t, os.Chtimes(oldPath, oldTime, oldTime))

	freshPath := filepath.Join(svc.config.StoragePath, "backup_fresh.zip")
	require.NoError(t, os.WriteFile(freshPath, []byte("fresh"), 0o644))

	svc.CleanupOldBackups()

	assert.NoFileExists(t, oldPath)
	assert.FileExists(t, freshPath)
}
