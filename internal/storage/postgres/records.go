package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/brewlog/internal/constants"
	"github.com/julianstephens/brewlog/internal/models"
	"github.com/julianstephens/brewlog/internal/storage"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// placeholders returns "$1, $2, ... $n"
func placeholders(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = "$" + strconv.Itoa(i+1)
	}
	return strings.Join(ps, ", ")
}

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

	args := storage.SessionArgs(session)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (`+storage.SessionColumns+`) VALUES (`+placeholders(len(args))+`)`, args...)
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to create session: %w", err)
	}
	session.Timeline = nil
	session.MeasurementHistory = nil
	return session, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (models.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+storage.SessionColumns+` FROM sessions WHERE id = $1`, id)
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

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+storage.MeasurementColumns+`
		FROM measurements WHERE session_id = $1
		ORDER BY measured_at, id`, id)
	if err != nil {
		return models.Session{}, err
	}
	defer rows.Close()
	for rows.Next() {
		m, err := storage.ScanMeasurement(rows)
		if err != nil {
			return models.Session{}, err
		}
		session.MeasurementHistory = append(session.MeasurementHistory, m)
	}
	return session, rows.Err()
}

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
	fields = append(fields, models.PatchField{Column: "updated_at", Value: storage.FormatTime(time.Now())})
	return s.update(ctx, "sessions", "session", id, fields)
}

func (s *Store) SetPhase(ctx context.Context, id string, phase constants.Phase, event models.TimelineEvent) (models.TimelineEvent, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.TimelineEvent{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE sessions SET phase = $1, updated_at = $2 WHERE id = $3`,
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

func (s *Store) CreateMeasurement(ctx context.Context, sessionID string, m models.Measurement) (models.Measurement, error) {
	m.ID = uuid.New().String()
	m.SessionID = sessionID

	args := storage.MeasurementArgs(m)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO measurements (`+storage.MeasurementColumns+`) VALUES (`+placeholders(len(args))+`)`, args...)
	if err != nil {
		return models.Measurement{}, fmt.Errorf("failed to create measurement: %w", err)
	}
	return m, nil
}

func (s *Store) UpdateMeasurement(ctx context.Context, id string, patch models.MeasurementPatch) error {
	fields := patch.Fields()
	if len(fields) == 0 {
		return nil
	}
	return s.update(ctx, "measurements", "measurement", id, fields)
}

func (s *Store) DeleteMeasurement(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM measurements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete measurement: %w", err)
	}
	return expectRow(res, "measurement", id)
}

func (s *Store) AppendEvent(ctx context.Context, sessionID string, e models.TimelineEvent) (models.TimelineEvent, []models.TimelineEvent, error) {
	stored, err := insertEvent(ctx, s.db, sessionID, e)
	if err != nil {
		return models.TimelineEvent{}, nil, err
	}
	timeline, err := s.listEvents(ctx, sessionID)
	if err != nil {
		return models.TimelineEvent{}, nil, err
	}
	return stored, timeline, nil
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM timeline_events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return expectRow(res, "event", id)
}

// update writes fields to the row with id. Column names come from the
// patch allow-lists, never from user input.
func (s *Store) update(ctx context.Context, table, kind, id string, fields []models.PatchField) error {
	sets := make([]string, 0, len(fields))
	args := make([]interface{}, 0, len(fields)+1)
	for i, f := range fields {
		sets = append(sets, fmt.Sprintf("%s = $%d", f.Column, i+1))
		args = append(args, f.Value)
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d`, table, strings.Join(sets, ", "), len(args))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", kind, err)
	}
	return expectRow(res, kind, id)
}

func insertEvent(ctx context.Context, db execer, sessionID string, e models.TimelineEvent) (models.TimelineEvent, error) {
	e.ID = uuid.New().String()
	data, err := storage.EventData(e)
	if err != nil {
		return models.TimelineEvent{}, err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO timeline_events (id, session_id, type, date, title, description, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, sessionID, string(e.Type), storage.FormatTime(e.Date), e.Title, e.Description, data)
	if err != nil {
		return models.TimelineEvent{}, fmt.Errorf("failed to append event: %w", err)
	}
	return e, nil
}

func (s *Store) listEvents(ctx context.Context, sessionID string) ([]models.TimelineEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+storage.EventColumns+`
		FROM timeline_events WHERE session_id = $1
		ORDER BY date, seq`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.TimelineEvent
	for rows.Next() {
		e, err := storage.ScanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
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
