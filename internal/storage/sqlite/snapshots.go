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

// LoadSnapshot returns the last session view cached on this device
func (s *Store) LoadSnapshot(ctx context.Context, sessionID string) (models.Session, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM session_snapshots WHERE session_id = ?`, sessionID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Session{}, false, nil
		}
		return models.Session{}, false, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var sess models.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return models.Session{}, false, fmt.Errorf("failed to decode snapshot for session %s: %w", sessionID, err)
	}
	return sess, true, nil
}

func (s *Store) SaveSnapshot(ctx context.Context, sess models.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session_snapshots (session_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		sess.ID, string(raw), storage.FormatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}
