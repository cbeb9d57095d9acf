package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	_ "github.com/mattn/go-sqlite3"
)

// CodeRenderer renders the scannable code image for an item identifier.
// The database calls it inside the item-creation transaction so the stored
// image always matches the assigned identifier.
type CodeRenderer interface {
	DataURI(id string) (string, error)
}

type DB struct {
	conn   *sql.DB
	path   string
	codes  CodeRenderer
	logger *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	// Создаем директорию для БД, если её нет
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(conn); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{conn: conn, path: path, logger: logger}, nil
}

func createTables(conn *sql.DB) error {
	queries := []string{
		// Таблица позиций
		`CREATE TABLE IF NOT EXISTS items (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            description TEXT,
            category TEXT,
            location TEXT,
            quantity INTEGER NOT NULL DEFAULT 1,
            qr_code TEXT,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		// Журнал операций
		`CREATE TABLE IF NOT EXISTS transactions (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            item_id TEXT NOT NULL,
            action TEXT NOT NULL,
            quantity INTEGER NOT NULL,
            location TEXT,
            notes TEXT,
            created_at DATETIME NOT NULL
        )`,
		// Счетчик для последовательных инвентарных номеров
		`CREATE TABLE IF NOT EXISTS id_counter (
            counter INTEGER NOT NULL DEFAULT 0
        )`,

		`CREATE INDEX IF NOT EXISTS idx_items_name ON items(name)`,
		`CREATE INDEX IF NOT EXISTS idx_items_location ON items(location)`,
		`CREATE INDEX IF NOT EXISTS idx_items_category ON items(category)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_item_id ON transactions(item_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at)`,
	}

	for _, query := range queries {
		if _, err := conn.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}

	// Инициализируем счетчик, если таблица пуста
	var count int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM id_counter`).Scan(&count); err != nil {
		return fmt.Errorf("failed to check id counter: %w", err)
	}
	if count == 0 {
		if _, err := conn.Exec(`INSERT INTO id_counter (counter) VALUES (0)`); err != nil {
			return fmt.Errorf("failed to init id counter: %w", err)
		}
	}

	return nil
}

// SetCodeRenderer injects the code image renderer used on item creation.
// Items created while the renderer is nil get an empty code image.
func (db *DB) SetCodeRenderer(r CodeRenderer) {
	db.codes = r
}

// Path returns the location of the store file.
func (db *DB) Path() string {
	return db.path
}

// Reconnect reopens the underlying pool. Needed after a restore replaced
// the store file under pooled connections.
func (db *DB) Reconnect() error {
	if err := db.conn.Close(); err != nil {
		db.logger.Warn().Err(err).Msg("close stale pool")
	}

	conn, err := sql.Open("sqlite3", db.path)
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		return fmt.Errorf("failed to connect to restored database: %w", err)
	}
	if err := createTables(conn); err != nil {
		return fmt.Errorf("failed to verify restored schema: %w", err)
	}

	db.conn = conn
	db.logger.Info().Str("path", db.path).Msg("database reconnected")
	return nil
}

func (db *DB) PingContext(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.conn.Close()
}
