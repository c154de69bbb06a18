package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/julianstephens/brewlog/internal/models"
	"github.com/julianstephens/brewlog/internal/storage"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertEvent(ctx context.Context, db execer, sessionID string, e models.TimelineEvent) (models.TimelineEvent, error) {
	e.ID = uuid.New().String()
	data, err := storage.EventData(e)
	if err != nil {
		return models.TimelineEvent{}, err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO timeline_events (id, session_id, type, date, title, description, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, sessionID, string(e.Type), storage.FormatTime(e.Date), e.Title, e.Description, data)
	if err != nil {
		return models.TimelineEvent{}, fmt.Errorf("failed to append event: %w", err)
	}
	return e, nil
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
	res, err := s.db.ExecContext(ctx, `DELETE FROM timeline_events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return expectRow(res, "event", id)
}

func (s *Store) listEvents(ctx context.Context, sessionID string) ([]models.TimelineEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+storage.EventColumns+`
		FROM timeline_events WHERE session_id = ?
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
