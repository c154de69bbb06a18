package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/brewlog/internal/constants"
	"github.com/julianstephens/brewlog/internal/models"
	"github.com/julianstephens/brewlog/internal/storage"
)

func (s *Store) CreateSession(ctx context.Context, session models.Session) (models.Session, error) {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.Phase == "" {
		session.Phase = constants.PhasePlanning
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (`+storage.SessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		storage.SessionArgs(session)...)
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to create session: %w", err)
	}
	session.Timeline = nil
	session.MeasurementHistory = nil
	return session, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (models.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+storage.SessionColumns+` FROM sessions WHERE id = ?`, id)
	session, err := storage.ScanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Session{}, fmt.Errorf("session %s: %w", id, storage.ErrNotFound)
		}
		return models.Session{}, err
	}

	if session.Timeline, err = s.listEvents(ctx, id); err != nil {
		return models.Session{}, err
	}
	if session.MeasurementHistory, err = s.listMeasurements(ctx, id); err != nil {
		return models.Session{}, err
	}
	return session, nil
}

// ListSessions returns sessions without their history, newest first
func (s *Store) ListSessions(ctx context.Context) ([]models.Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+storage.SessionColumns+` FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		session, err := storage.ScanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (s *Store) UpdateSession(ctx context.Context, id string, patch models.SessionPatch) error {
	fields := patch.Fields()
	if len(fields) == 0 {
		return nil
	}

	sets := make([]string, 0, len(fields)+1)
	args := make([]interface{}, 0, len(fields)+2)
	for _, f := range fields {
		sets = append(sets, f.Column+" = ?")
		args = append(args, f.Value)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, storage.FormatTime(time.Now()), id)

	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return expectRow(res, "session", id)
}

func (s *Store) SetPhase(ctx context.Context, id string, phase constants.Phase, event models.TimelineEvent) (models.TimelineEvent, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.TimelineEvent{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE sessions SET phase = ?, updated_at = ? WHERE id = ?`,
		string(phase), storage.FormatTime(time.Now()), id)
	if err != nil {
		return models.TimelineEvent{}, fmt.Errorf("failed to set phase: %w", err)
	}
	if err := expectRow(res, "session", id); err != nil {
		return models.TimelineEvent{}, err
	}

	stored, err := insertEvent(ctx, tx, id, event)
	if err != nil {
		return models.TimelineEvent{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.TimelineEvent{}, fmt.Errorf("failed to commit phase change: %w", err)
	}
	return stored, nil
}

func expectRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	return nil
}
