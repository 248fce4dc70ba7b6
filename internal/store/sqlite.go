package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/funtuan/government-job-backend/internal/model"
)

// Ensure SQLiteStore implements model.SubscriptionStore.
var _ model.SubscriptionStore = (*SQLiteStore)(nil)

// SQLiteStore persists subscriber configurations in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the notify_configs table exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	createTable := `CREATE TABLE IF NOT EXISTS notify_configs (
		id         TEXT PRIMARY KEY,
		token      TEXT NOT NULL,
		condition  TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating notify_configs table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Create inserts a new subscription row.
func (s *SQLiteStore) Create(ctx context.Context, sub model.Subscription) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO notify_configs (id, token, condition) VALUES (?, ?, ?)",
		sub.ID, sub.Token, string(sub.Condition),
	)
	if err != nil {
		return fmt.Errorf("creating subscription %s: %w", sub.ID, err)
	}
	return nil
}

// List returns all subscriptions. Conditions are returned raw; parsing is
// deferred to the caller so one malformed row cannot abort a whole cycle.
func (s *SQLiteStore) List(ctx context.Context) ([]model.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, token, condition FROM notify_configs")
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.Subscription
	for rows.Next() {
		var sub model.Subscription
		var condition string
		if err := rows.Scan(&sub.ID, &sub.Token, &condition); err != nil {
			return nil, fmt.Errorf("scanning subscription: %w", err)
		}
		sub.Condition = []byte(condition)
		subs = append(subs, sub)
	}

	return subs, rows.Err()
}

// Delete removes a subscription by id. Deleting an unknown id is a no-op, so
// revocation under job redelivery stays idempotent.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM notify_configs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting subscription %s: %w", id, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
