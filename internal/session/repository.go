package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// TokenRepository persists one authorization per session name.
type TokenRepository interface {
	// Save stores auth under name, replacing any previous entry.
	Save(ctx context.Context, name string, auth *Authorization) error

	// Load returns the stored authorization.
	// Returns ErrNoSession if nothing is stored under name.
	Load(ctx context.Context, name string) (*Authorization, error)

	// Delete removes the entry. Deleting a missing entry is not an error.
	Delete(ctx context.Context, name string) error
}

// SQLiteTokenRepository implements TokenRepository on the auth_sessions table.
type SQLiteTokenRepository struct {
	db *sql.DB
}

// NewSQLiteTokenRepository creates a repository on an open, migrated database.
func NewSQLiteTokenRepository(db *sql.DB) *SQLiteTokenRepository {
	return &SQLiteTokenRepository{db: db}
}

// Save upserts the authorization.
func (r *SQLiteTokenRepository) Save(ctx context.Context, name string, auth *Authorization) error {
	if auth == nil {
		return fmt.Errorf("saving session %q: nil authorization", name)
	}
	tags, err := json.Marshal(auth.RoleTags)
	if err != nil {
		return fmt.Errorf("encoding role tags: %w", err)
	}
	if auth.RoleTags == nil {
		tags = []byte("[]")
	}

	query := `
		INSERT INTO auth_sessions
			(session_name, access_token, refresh_token, expires_in, role, role_tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_name) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_in = excluded.expires_in,
			role = excluded.role,
			role_tags = excluded.role_tags,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`

	_, err = r.db.ExecContext(ctx, query,
		name, auth.AccessToken, auth.RefreshToken, auth.ExpiresIn, auth.Role, string(tags),
		auth.CreatedAt.UTC().Format(time.RFC3339Nano), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving session %q: %w", name, err)
	}
	return nil
}

// Load reads the authorization for name.
func (r *SQLiteTokenRepository) Load(ctx context.Context, name string) (*Authorization, error) {
	query := `
		SELECT access_token, refresh_token, expires_in, role, role_tags, created_at
		FROM auth_sessions
		WHERE session_name = ?`

	var (
		auth      Authorization
		tags      string
		createdAt string
	)
	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&auth.AccessToken, &auth.RefreshToken, &auth.ExpiresIn, &auth.Role, &tags, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %q: %w", name, err)
	}

	if err := json.Unmarshal([]byte(tags), &auth.RoleTags); err != nil {
		return nil, fmt.Errorf("decoding role tags: %w", err)
	}
	if len(auth.RoleTags) == 0 {
		auth.RoleTags = nil
	}
	auth.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &auth, nil
}

// Delete removes the authorization for name.
func (r *SQLiteTokenRepository) Delete(ctx context.Context, name string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE session_name = ?`, name); err != nil {
		return fmt.Errorf("deleting session %q: %w", name, err)
	}
	return nil
}
