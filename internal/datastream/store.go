package datastream

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Store keeps the last subscription per session so a restart can reuse its
// stream key.
type Store interface {
	// Load returns ErrNoSubscription when nothing is saved.
	Load(ctx context.Context, sessionName string) (*Subscription, error)
	Save(ctx context.Context, sessionName string, sub *Subscription) error
	Delete(ctx context.Context, sessionName string) error
}

// SQLiteStore implements Store on the dss_subscriptions table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store on an open, migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save upserts the subscription.
func (s *SQLiteStore) Save(ctx context.Context, sessionName string, sub *Subscription) error {
	if sub == nil || sub.StreamKey == "" {
		return fmt.Errorf("saving subscription for %q: no stream key", sessionName)
	}
	query := `
		INSERT INTO dss_subscriptions
			(session_name, id, name, stream_key, subscription_type, dsns, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_name) DO UPDATE SET
			id = excluded.id,
			name = excluded.name,
			stream_key = excluded.stream_key,
			subscription_type = excluded.subscription_type,
			dsns = excluded.dsns,
			created_at = excluded.created_at`

	_, err := s.db.ExecContext(ctx, query,
		sessionName, sub.ID, sub.Name, sub.StreamKey, sub.SubscriptionType, sub.DSN,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving subscription for %q: %w", sessionName, err)
	}
	return nil
}

// Load reads the saved subscription.
func (s *SQLiteStore) Load(ctx context.Context, sessionName string) (*Subscription, error) {
	query := `
		SELECT id, name, stream_key, subscription_type, dsns, created_at
		FROM dss_subscriptions
		WHERE session_name = ?`

	var sub Subscription
	err := s.db.QueryRowContext(ctx, query, sessionName).Scan(
		&sub.ID, &sub.Name, &sub.StreamKey, &sub.SubscriptionType, &sub.DSN, &sub.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSubscription
	}
	if err != nil {
		return nil, fmt.Errorf("loading subscription for %q: %w", sessionName, err)
	}
	return &sub, nil
}

// Delete forgets the saved subscription. Deleting nothing is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, sessionName string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM dss_subscriptions WHERE session_name = ?`, sessionName); err != nil {
		return fmt.Errorf("deleting subscription for %q: %w", sessionName, err)
	}
	return nil
}
