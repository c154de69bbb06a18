package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/julianstephens/brewlog/internal/models"
	"github.com/julianstephens/brewlog/internal/storage"
)

func (s *Store) CreateMeasurement(ctx context.Context, sessionID string, m models.Measurement) (models.Measurement, error) {
	m.ID = uuid.New().String()
	m.SessionID = sessionID

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO measurements (`+storage.MeasurementColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		storage.MeasurementArgs(m)...)
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

	sets := make([]string, 0, len(fields))
	args := make([]interface{}, 0, len(fields)+1)
	for _, f := range fields {
		sets = append(sets, f.Column+" = ?")
		args = append(args, f.Value)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, `UPDATE measurements SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update measurement: %w", err)
	}
	return expectRow(res, "measurement", id)
}

func (s *Store) DeleteMeasurement(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM measurements WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete measurement: %w", err)
	}
	return expectRow(res, "measurement", id)
}

func (s *Store) listMeasurements(ctx context.Context, sessionID string) ([]models.Measurement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+storage.MeasurementColumns+`
		FROM measurements WHERE session_id = ?
		ORDER BY measured_at, rowid`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ms []models.Measurement
	for rows.Next() {
		m, err := storage.ScanMeasurement(rows)
		if err != nil {
			return nil, err
		}
		ms = append(ms, m)
	}
	return ms, rows.Err()
}
