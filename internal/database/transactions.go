package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"kladovka/internal/models"
)

// ApplyStockChange executes the check-in/check-out state machine: reads the
// current quantity, applies the delta (check_out clamps at zero), overwrites
// the location only when the request carries one, and appends exactly one
// ledger row — all within a single transaction.
//
// The ledger row records the literal requested delta, not the clamped one:
// a check_out of 10 against a stock of 3 leaves quantity 0 but logs 10.
// Intentional, kept from the system this one replaces.
func (db *DB) ApplyStockChange(ctx context.Context, id, action string, quantity int64, location, notes string) (int64, *models.Transaction, error) {
	if !models.ValidAction(action) {
		return 0, nil, &ValidationError{Field: "action", Reason: "must be check_in or check_out"}
	}
	if quantity <= 0 {
		return 0, nil, &ValidationError{Field: "quantity", Reason: "quantity must be positive"}
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var currentQty int64
	var currentLoc string
	err = tx.QueryRowContext(ctx, `SELECT quantity, location FROM items WHERE id = ?`, id).
		Scan(&currentQty, &currentLoc)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, ErrNotFound
	}
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read item: %w", err)
	}

	var newQty int64
	if action == models.ActionCheckIn {
		newQty = currentQty + quantity
	} else {
		newQty = currentQty - quantity
		if newQty < 0 {
			newQty = 0
		}
	}

	newLoc := currentLoc
	if location != "" {
		newLoc = location
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET quantity = ?, location = ?, updated_at = ? WHERE id = ?`,
		newQty, newLoc, now, id,
	); err != nil {
		return 0, nil, fmt.Errorf("failed to update item: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (item_id, action, quantity, location, notes, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		id, action, quantity, newLoc, notes, now,
	)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to record transaction: %w", err)
	}
	txnID, err := result.LastInsertId()
	if err != nil {
		return 0, nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, fmt.Errorf("failed to commit stock change: %w", err)
	}

	txn := &models.Transaction{
		ID:        txnID,
		ItemID:    id,
		Action:    action,
		Quantity:  quantity,
		Location:  newLoc,
		Notes:     notes,
		CreatedAt: now,
	}
	return newQty, txn, nil
}

// AppendTransaction writes a standalone ledger row.
func (db *DB) AppendTransaction(ctx context.Context, txn *models.Transaction) error {
	now := time.Now()
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO transactions (item_id, action, quantity, location, notes, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		txn.ItemID, txn.Action, txn.Quantity, txn.Location, txn.Notes, now,
	)
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	txn.ID = id
	txn.CreatedAt = now
	return nil
}

// GetHistory returns the ledger for one item, newest first.
func (db *DB) GetHistory(ctx context.Context, itemID string) ([]models.Transaction, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, item_id, action, quantity, location, notes, created_at
         FROM transactions WHERE item_id = ?
         ORDER BY created_at DESC, id DESC`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.ItemID, &t.Action, &t.Quantity, &t.Location, &t.Notes, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return txns, nil
}

// GetRecentActivity returns the newest ledger rows joined with item names.
func (db *DB) GetRecentActivity(ctx context.Context, limit int) ([]models.ActivityEntry, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT i.name, t.action, t.quantity, t.created_at
         FROM transactions t
         JOIN items i ON t.item_id = i.id
         ORDER BY t.created_at DESC, t.id DESC
         LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent activity: %w", err)
	}
	defer rows.Close()

	var entries []models.ActivityEntry
	for rows.Next() {
		var e models.ActivityEntry
		if err := rows.Scan(&e.ItemName, &e.Action, &e.Quantity, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
