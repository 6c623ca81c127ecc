package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/jichang0619/aitrade/internal/domain"
)

// TradeStore persists trade history in SQLite.
type TradeStore struct {
	db *sql.DB
}

// NewTradeStore opens (or creates) the database with WAL mode enabled.
func NewTradeStore(dbPath string) (*TradeStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;", // 2MB cache
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			action TEXT NOT NULL,
			percentage INTEGER NOT NULL,
			reason TEXT NOT NULL,
			balance TEXT NOT NULL,
			price TEXT NOT NULL,
			reflection TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT ''
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create trades table: %w", err)
	}

	return &TradeStore{db: db}, nil
}

// LogTrade appends one trade record.
func (s *TradeStore) LogTrade(ctx context.Context, t domain.TradeRecord) error {
	ts := t.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (timestamp, action, percentage, reason, balance, price, reflection, status, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ts.Unix(), string(t.Action), t.Percentage, t.Reason,
		t.Balance, t.Price, t.Reflection, string(t.Status), t.Detail,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

// RecentTrades returns trades from the last N days, newest first.
func (s *TradeStore) RecentTrades(ctx context.Context, days int) ([]domain.TradeRecord, error) {
	since := time.Now().AddDate(0, 0, -days).Unix()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, action, percentage, reason, balance, price, reflection, status, detail
		FROM trades
		WHERE timestamp >= ?
		ORDER BY timestamp DESC`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []domain.TradeRecord
	for rows.Next() {
		var t domain.TradeRecord
		var ts int64
		var action, status string
		if err := rows.Scan(&t.ID, &ts, &action, &t.Percentage, &t.Reason,
			&t.Balance, &t.Price, &t.Reflection, &status, &t.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		t.Timestamp = time.Unix(ts, 0)
		t.Action = domain.Action(action)
		t.Status = domain.ExecStatus(status)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Close closes the underlying database.
func (s *TradeStore) Close() error {
	return s.db.Close()
}
