package database

import (
	"archive/zip"
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"kladovka/internal/config"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
)

// Archive member names. Restore also accepts the legacy store name.
const (
	archiveStoreName        = "snapshot.db"
	archiveStoreNameLegacy  = "inventory.db"
	archiveItemsName        = "items.csv"
	archiveTransactionsName = "transactions.csv"
	archiveManifestName     = "manifest.yaml"
)

type BackupService struct {
	dbPath string
	config config.BackupConfig
	logger *zerolog.Logger
}

// archiveManifest is the human-readable description bundled with a backup.
type archiveManifest struct {
	CreatedAt        string   `yaml:"created_at"`
	ItemCount        int64    `yaml:"item_count"`
	TransactionCount int64    `yaml:"transaction_count"`
	Files            []string `yaml:"files"`
	Note             string   `yaml:"note"`
}

func NewBackupService(dbPath string, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	return &BackupService{
		dbPath: dbPath,
		config: cfg,
		logger: logger,
	}
}

func (s *BackupService) Start(ctx context.Context) {
	if !s.config.Enabled {
		s.logger.Info().Msg("Backup service is disabled")
		return
	}

	s.logger.Info().Str("schedule", s.config.Schedule).Msg("Backup service started")

	interval := 24 * time.Hour
	if s.config.Schedule != "" {
		if d, err := time.ParseDuration(s.config.Schedule); err == nil {
			interval = d
		} else {
			s.logger.Warn().Err(err).Str("schedule", s.config.Schedule).Msg("Failed to parse backup schedule, using default 24h")
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run first backup immediately
	if err := s.PerformBackup(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Initial backup failed")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.PerformBackup(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Scheduled backup failed")
			}
			s.CleanupOldBackups()
		}
	}
}

// PerformBackup writes a full archive into the configured storage path.
func (s *BackupService) PerformBackup(ctx context.Context) error {
	if _, err := os.Stat(s.config.StoragePath); os.IsNotExist(err) {
		if err := os.MkdirAll(s.config.StoragePath, 0o755); err != nil {
			return fmt.Errorf("failed to create backup directory: %w", err)
		}
	}

	timestamp := time.Now().Format("20060102_150405")
	backupPath := filepath.Join(s.config.StoragePath, fmt.Sprintf("backup_%s.zip", timestamp))

	out, err := os.Create(backupPath)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer out.Close()

	if err := s.WriteArchive(ctx, out); err != nil {
		os.Remove(backupPath)
		return err
	}

	s.logger.Info().Str("path", backupPath).Msg("Backup completed successfully")
	return nil
}

// WriteArchive streams a zip archive with the store snapshot, both tables as
// CSV and a manifest. Working files live in a temp dir removed on return.
func (s *BackupService) WriteArchive(ctx context.Context, w io.Writer) error {
	tmpDir, err := os.MkdirTemp("", "kladovka_backup")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	snapshotPath := filepath.Join(tmpDir, archiveStoreName)
	if err := s.snapshotStore(snapshotPath); err != nil {
		return err
	}

	conn, err := sql.Open("sqlite3", s.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open source database: %w", err)
	}
	defer conn.Close()

	itemCount, err := s.dumpItemsCSV(ctx, conn, filepath.Join(tmpDir, archiveItemsName))
	if err != nil {
		return err
	}
	txnCount, err := s.dumpTransactionsCSV(ctx, conn, filepath.Join(tmpDir, archiveTransactionsName))
	if err != nil {
		return err
	}

	manifest := archiveManifest{
		CreatedAt:        time.Now().Format(time.RFC3339),
		ItemCount:        itemCount,
		TransactionCount: txnCount,
		Files:            []string{archiveStoreName, archiveItemsName, archiveTransactionsName},
		Note:             "snapshot.db restores the full store; the CSV files are for portability",
	}
	manifestData, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, archiveManifestName), manifestData, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	zw := zip.NewWriter(w)
	members := []string{archiveStoreName, archiveItemsName, archiveTransactionsName, archiveManifestName}
	for _, name := range members {
		if err := addZipMember(zw, filepath.Join(tmpDir, name), name); err != nil {
			zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return nil
}

// Restore extracts an archive and swaps the store file in. The live store is
// snapshotted next to itself before being touched; a malformed archive or an
// archive without a recognizable store member aborts before that point.
func (s *BackupService) Restore(ctx context.Context, r io.Reader) error {
	tmpDir, err := os.MkdirTemp("", "kladovka_restore")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	uploadPath := filepath.Join(tmpDir, "upload.zip")
	upload, err := os.Create(uploadPath)
	if err != nil {
		return fmt.Errorf("failed to buffer upload: %w", err)
	}
	if _, err := io.Copy(upload, r); err != nil {
		upload.Close()
		return fmt.Errorf("failed to read archive: %w", err)
	}
	upload.Close()

	zr, err := zip.OpenReader(uploadPath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer zr.Close()

	extractedStore := ""
	for _, f := range zr.File {
		name := filepath.Base(f.Name)
		if name != archiveStoreName && name != archiveStoreNameLegacy {
			continue
		}
		dst := filepath.Join(tmpDir, archiveStoreName)
		if err := extractZipMember(f, dst); err != nil {
			return err
		}
		extractedStore = dst
		break
	}

	if extractedStore == "" {
		return fmt.Errorf("archive does not contain a database snapshot")
	}

	// Снимок текущей базы перед заменой
	if _, err := os.Stat(s.dbPath); err == nil {
		preRestorePath := filepath.Join(filepath.Dir(s.dbPath),
			fmt.Sprintf("pre_restore_%s.db", time.Now().Format("20060102_150405")))
		if err := copyFile(s.dbPath, preRestorePath); err != nil {
			return fmt.Errorf("failed to snapshot current store: %w", err)
		}
		s.logger.Info().Str("path", preRestorePath).Msg("Current store snapshotted before restore")
	}

	if err := copyFile(extractedStore, s.dbPath); err != nil {
		return fmt.Errorf("failed to replace store: %w", err)
	}

	s.logger.Info().Str("path", s.dbPath).Msg("Store restored from archive")
	return nil
}

func (s *BackupService) CleanupOldBackups() {
	if s.config.RetentionDays <= 0 {
		return
	}

	files, err := os.ReadDir(s.config.StoragePath)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read backup directory for cleanup")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -s.config.RetentionDays)

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		info, err := file.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("file", file.Name()).Msg("Deleting old backup")
			os.Remove(filepath.Join(s.config.StoragePath, file.Name()))
		}
	}
}

// snapshotStore copies the live store via VACUUM INTO for a consistent
// online snapshot, falling back to a plain file copy.
func (s *BackupService) snapshotStore(dst string) error {
	conn, err := sql.Open("sqlite3", s.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open source database: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Exec(fmt.Sprintf("VACUUM INTO '%s'", dst)); err != nil {
		s.logger.Warn().Err(err).Msg("VACUUM INTO failed, falling back to file copy")
		// Note: io.Copy is not atomic for SQLite and might result in a corrupted backup if writes occur
		return copyFile(s.dbPath, dst)
	}
	return nil
}

func (s *BackupService) dumpItemsCSV(ctx context.Context, conn *sql.DB, path string) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "name", "description", "category", "location", "quantity", "created_at", "updated_at", "qr_code"}); err != nil {
		return 0, err
	}

	rows, err := conn.QueryContext(ctx,
		`SELECT id, name, description, category, location, quantity, created_at, updated_at, qr_code
         FROM items ORDER BY created_at`)
	if err != nil {
		return 0, fmt.Errorf("failed to dump items: %w", err)
	}
	defer rows.Close()

	var count int64
	for rows.Next() {
		var id, name, description, category, location, createdAt, updatedAt, qrCode string
		var quantity int64
		if err := rows.Scan(&id, &name, &description, &category, &location, &quantity, &createdAt, &updatedAt, &qrCode); err != nil {
			return 0, fmt.Errorf("failed to scan item: %w", err)
		}
		record := []string{id, name, description, category, location, strconv.FormatInt(quantity, 10), createdAt, updatedAt, qrCode}
		if err := w.Write(record); err != nil {
			return 0, err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	w.Flush()
	return count, w.Error()
}

func (s *BackupService) dumpTransactionsCSV(ctx context.Context, conn *sql.DB, path string) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "item_id", "action", "quantity", "location", "notes", "created_at"}); err != nil {
		return 0, err
	}

	rows, err := conn.QueryContext(ctx,
		`SELECT id, item_id, action, quantity, location, notes, created_at
         FROM transactions ORDER BY created_at`)
	if err != nil {
		return 0, fmt.Errorf("failed to dump transactions: %w", err)
	}
	defer rows.Close()

	var count int64
	for rows.Next() {
		var id, quantity int64
		var itemID, action, location, notes, createdAt string
		if err := rows.Scan(&id, &itemID, &action, &quantity, &location, &notes, &createdAt); err != nil {
			return 0, fmt.Errorf("failed to scan transaction: %w", err)
		}
		record := []string{strconv.FormatInt(id, 10), itemID, action, strconv.FormatInt(quantity, 10), location, notes, createdAt}
		if err := w.Write(record); err != nil {
			return 0, err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	w.Flush()
	return count, w.Error()
}

func addZipMember(zw *zip.Writer, path, name string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer src.Close()

	dst, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func extractZipMember(f *zip.File, dst string) error {
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive member %s: %w", f.Name, err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destination.Close()

	_, err = io.Copy(destination, source)
	return err
}
