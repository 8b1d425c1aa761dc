// package repositories provides the persistent session store.
//
// SessionRepository implements auth.SessionStore over database/sql so tokens
// survive process restarts; the sessions table comes from the embedded
// migrations in internal/shared.
package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

// SessionRepository is the SQLite-backed [auth.SessionStore].
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Get retrieves a session by id.
func (r *SessionRepository) Get(id string) (*models.Session, error) {
	query := `
		SELECT id, access_token, refresh_token, expires_at, created_at, updated_at
		FROM sessions
		WHERE id = ?
	`

	var (
		sessionID    string
		accessToken  string
		refreshToken string
		expiresAt    time.Time
		createdAt    time.Time
		updatedAt    time.Time
	)

	err := r.db.QueryRow(query, id).Scan(&sessionID, &accessToken, &refreshToken, &expiresAt, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, shared.ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	return &models.Session{
		ID:           sessionID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}

// Set creates or overwrites a session under its id.
func (r *SessionRepository) Set(session *models.Session) error {
	if session == nil || session.ID == "" {
		return shared.ErrInvalidArgument
	}

	// Timestamps stay on locals; the caller's struct is never mutated.
	now := time.Now()
	createdAt := session.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := session.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	query := `
		INSERT INTO sessions (id, access_token, refresh_token, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query, session.ID, session.AccessToken, session.RefreshToken, session.ExpiresAt, createdAt, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	return nil
}

// Delete removes a session by id. Deleting an absent session is not an error.
func (r *SessionRepository) Delete(id string) error {
	if _, err := r.db.Exec("DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
