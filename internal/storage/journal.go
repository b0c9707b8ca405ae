// Package storage persists the bot's order activity and halt events in
// SQLite for post-mortem review.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// OrderEvent is one journaled order action.
type OrderEvent struct {
	ID       int64
	Action   string // "placed" or "cancelled"
	Exchange string
	MarketID string
	OrderID  string
	Side     string
	Price    string
	Quantity string
	At       time.Time
}

const (
	ActionPlaced    = "placed"
	ActionCancelled = "cancelled"
)

// Journal handles persistent storage of bot activity in SQLite.
type Journal struct {
	db *sql.DB
}

// NewJournal creates a SQLite journal at dbPath with WAL mode enabled.
func NewJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;", // 2MB cache
		"PRAGMA foreign_keys=ON;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS orders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			action TEXT NOT NULL,
			exchange TEXT NOT NULL,
			market_id TEXT NOT NULL,
			order_id TEXT NOT NULL,
			side TEXT NOT NULL,
			price TEXT NOT NULL,
			quantity TEXT NOT NULL,
			at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create orders table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS halts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			exchange TEXT NOT NULL,
			reason TEXT NOT NULL,
			at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create halts table: %w", err)
	}

	return &Journal{db: db}, nil
}

// RecordOrder journals an order action.
func (j *Journal) RecordOrder(ctx context.Context, ev OrderEvent) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := j.db.ExecContext(ctx,
		"INSERT INTO orders (action, exchange, market_id, order_id, side, price, quantity, at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		ev.Action, ev.Exchange, ev.MarketID, ev.OrderID, ev.Side, ev.Price, ev.Quantity, at.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert order event: %w", err)
	}
	return nil
}

// RecordHalt journals why trading stopped.
func (j *Journal) RecordHalt(ctx context.Context, exchange, reason string) error {
	_, err := j.db.ExecContext(ctx,
		"INSERT INTO halts (exchange, reason, at) VALUES (?, ?, ?)",
		exchange, reason, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert halt: %w", err)
	}
	return nil
}

// Orders loads all journaled order events, oldest first.
func (j *Journal) Orders(ctx context.Context) ([]OrderEvent, error) {
	rows, err := j.db.QueryContext(ctx,
		"SELECT id, action, exchange, market_id, order_id, side, price, quantity, at FROM orders ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var events []OrderEvent
	for rows.Next() {
		var ev OrderEvent
		var at int64
		if err := rows.Scan(&ev.ID, &ev.Action, &ev.Exchange, &ev.MarketID,
			&ev.OrderID, &ev.Side, &ev.Price, &ev.Quantity, &at); err != nil {
			return nil, fmt.Errorf("failed to scan order event: %w", err)
		}
		ev.At = time.UnixMilli(at)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return events, nil
}

// Halts loads all journaled halts, oldest first.
func (j *Journal) Halts(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, "SELECT reason FROM halts ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query halts: %w", err)
	}
	defer rows.Close()

	var reasons []string
	for rows.Next() {
		var reason string
		if err := rows.Scan(&reason); err != nil {
			return nil, fmt.Errorf("failed to scan halt: %w", err)
		}
		reasons = append(reasons, reason)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return reasons, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}
