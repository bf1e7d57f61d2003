package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"promptsmith/pkg/core/interview"
)

// ErrNotFound is returned when no session row matches the id/owner pair.
var ErrNotFound = errors.New("session not found")

// SessionRepo handles the storage of interview sessions. History and state
// live in JSONB columns; the session row is updated as one unit after each
// completed turn.
type SessionRepo struct{}

// NewSessionRepo creates a new repository instance.
func NewSessionRepo() *SessionRepo {
	return &SessionRepo{}
}

// GetForOwner loads one session scoped to its owner.
func (r *SessionRepo) GetForOwner(ctx context.Context, id, ownerID string) (*interview.Session, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	query := `
		SELECT id, owner_id, title, model_id, output_format, history, state, created_at, updated_at
		FROM sessions
		WHERE id = $1 AND owner_id = $2
	`

	var s interview.Session
	var historyJSON, stateJSON []byte
	err := pool.QueryRow(ctx, query, id, ownerID).Scan(
		&s.ID, &s.OwnerID, &s.Title, &s.ModelID, &s.OutputFormat,
		&historyJSON, &stateJSON, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if err := json.Unmarshal(historyJSON, &s.History); err != nil {
		return nil, fmt.Errorf("failed to decode session history: %w", err)
	}
	if err := json.Unmarshal(stateJSON, &s.State); err != nil {
		return nil, fmt.Errorf("failed to decode session state: %w", err)
	}
	return &s, nil
}

// Create inserts a fresh session row.
func (r *SessionRepo) Create(ctx context.Context, s *interview.Session) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	historyJSON, stateJSON, err := encodeSession(s)
	if err != nil {
		return err
	}

	now := time.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	query := `
		INSERT INTO sessions (id, owner_id, title, model_id, output_format, history, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = pool.Exec(ctx, query,
		s.ID, s.OwnerID, s.Title, s.ModelID, s.OutputFormat,
		historyJSON, stateJSON, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Update writes back history and state after a completed turn.
func (r *SessionRepo) Update(ctx context.Context, s *interview.Session) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	historyJSON, stateJSON, err := encodeSession(s)
	if err != nil {
		return err
	}
	s.UpdatedAt = time.Now()

	query := `
		UPDATE sessions
		SET title = $3, model_id = $4, output_format = $5, history = $6, state = $7, updated_at = $8
		WHERE id = $1 AND owner_id = $2
	`
	tag, err := pool.Exec(ctx, query,
		s.ID, s.OwnerID, s.Title, s.ModelID, s.OutputFormat,
		historyJSON, stateJSON, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func encodeSession(s *interview.Session) ([]byte, []byte, error) {
	historyJSON, err := json.Marshal(s.History)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal history: %w", err)
	}
	stateJSON, err := json.Marshal(s.State)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	return historyJSON, stateJSON, nil
}
