package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/brewlog/internal/models"
	"github.com/julianstephens/brewlog/internal/storage"
)

// LoadQueue returns the persisted actions for a session, empty when none
func (s *Store) LoadQueue(ctx context.Context, sessionID string) ([]models.QueueAction, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT actions FROM queue_actions WHERE session_id = ?`, sessionID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load queue: %w", err)
	}

	var actions []models.QueueAction
	if err := json.Unmarshal([]byte(raw), &actions); err != nil {
		return nil, fmt.Errorf("failed to decode queue for session %s: %w", sessionID, err)
	}
	return actions, nil
}

// SaveQueue replaces the session's record. An empty queue removes it.
func (s *Store) SaveQueue(ctx context.Context, sessionID string, actions []models.QueueAction) error {
	if len(actions) == 0 {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM queue_actions WHERE session_id = ?`, sessionID); err != nil {
			return fmt.Errorf("failed to clear queue: %w", err)
		}
		return nil
	}

	raw, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("failed to encode queue: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO queue_actions (session_id, actions, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET actions = excluded.actions, updated_at = excluded.updated_at`,
		sessionID, string(raw), storage.FormatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to save queue: %w", err)
	}
	return nil
}

func (s *Store) QueueDepths(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session_id, actions FROM queue_actions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	depths := map[string]int{}
	for rows.Next() {
		var sessionID, raw string
		if err := rows.Scan(&sessionID, &raw); err != nil {
			return nil, err
		}
		var actions []json.RawMessage
		if err := json.Unmarshal([]byte(raw), &actions); err != nil {
			return nil, fmt.Errorf("failed to decode queue for session %s: %w", sessionID, err)
		}
		depths[sessionID] = len(actions)
	}
	return depths, rows.Err()
}
