package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"kladovka/internal/models"

	"github.com/mattn/go-sqlite3"
)

// CreateItem assigns the next sequential identifier, renders the code image
// and inserts the item together with its initial "added" ledger row. The
// counter bump, the insert and the ledger append share one transaction, so a
// crash cannot leave the counter ahead of the items table.
func (db *DB) CreateItem(ctx context.Context, item *models.Item, notes string) error {
	if strings.TrimSpace(item.Name) == "" {
		return &ValidationError{Field: "name", Reason: "name is required"}
	}
	if item.Quantity < 0 {
		return &ValidationError{Field: "quantity", Reason: "quantity must not be negative"}
	}
	if item.Quantity == 0 {
		item.Quantity = models.DefaultQuantity
	}
	if notes == "" {
		notes = "Item added to inventory"
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var counter int64
	if err := tx.QueryRowContext(ctx, `SELECT counter FROM id_counter`).Scan(&counter); err != nil {
		return fmt.Errorf("failed to read id counter: %w", err)
	}
	counter++
	if _, err := tx.ExecContext(ctx, `UPDATE id_counter SET counter = ?`, counter); err != nil {
		return fmt.Errorf("failed to advance id counter: %w", err)
	}

	item.ID = fmt.Sprintf("%s%0*d", models.IDPrefix, models.IDDigits, counter)

	if db.codes != nil {
		qr, err := db.codes.DataURI(item.ID)
		if err != nil {
			return fmt.Errorf("failed to render code image: %w", err)
		}
		item.QRCode = qr
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO items (id, name, description, category, location, quantity, qr_code, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Description, item.Category, item.Location, item.Quantity, item.QRCode, now, now,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrConflict
		}
		return fmt.Errorf("failed to create item: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transactions (item_id, action, quantity, location, notes, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID, models.ActionAdded, item.Quantity, item.Location, notes, now,
	)
	if err != nil {
		return fmt.Errorf("failed to record creation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit item: %w", err)
	}

	item.CreatedAt = now
	item.UpdatedAt = now
	return nil
}

func (db *DB) GetItem(ctx context.Context, id string) (*models.Item, error) {
	var item models.Item
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, description, category, location, quantity, qr_code, created_at, updated_at
         FROM items WHERE id = ?`, id).Scan(
		&item.ID, &item.Name, &item.Description, &item.Category, &item.Location,
		&item.Quantity, &item.QRCode, &item.CreatedAt, &item.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &item, nil
}

// SearchItems returns items ordered by name; with a text filter an exact
// identifier match sorts before the substring matches.
func (db *DB) SearchItems(ctx context.Context, filter models.ItemFilter) ([]models.Item, error) {
	query := `SELECT id, name, description, category, location, quantity, qr_code, created_at, updated_at
              FROM items WHERE 1=1`
	var args []interface{}

	text := strings.TrimSpace(filter.Text)
	if text != "" {
		query += ` AND (id = ? OR name LIKE ? OR description LIKE ?)`
		pattern := "%" + text + "%"
		args = append(args, text, pattern, pattern)
	}
	if filter.Location != "" {
		query += ` AND location = ?`
		args = append(args, filter.Location)
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}

	if text != "" {
		query += ` ORDER BY CASE WHEN id = ? THEN 0 ELSE 1 END, name COLLATE NOCASE ASC`
		args = append(args, text)
	} else {
		query += ` ORDER BY name COLLATE NOCASE ASC`
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search items: %w", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		var item models.Item
		if err := rows.Scan(
			&item.ID, &item.Name, &item.Description, &item.Category, &item.Location,
			&item.Quantity, &item.QRCode, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateQuantityLocation overwrites quantity and location. Quantity is
// clamped to zero from below.
func (db *DB) UpdateQuantityLocation(ctx context.Context, id string, quantity int64, location string) (*models.Item, error) {
	if quantity < 0 {
		quantity = 0
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE items SET quantity = ?, location = ?, updated_at = ? WHERE id = ?`,
		quantity, location, time.Now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	return db.GetItem(ctx, id)
}

// DeleteItem removes the item and all its ledger rows in one transaction,
// ledger rows first.
func (db *DB) DeleteItem(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE item_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete transactions: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}
