package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/julianstephens/brewlog/internal/constants"
	"github.com/julianstephens/brewlog/internal/models"
)

// Column lists shared by the SQL backends. Scan order matches.
const (
	SessionColumns = `id, group_id, name, phase, status, batch_code, notes,
		measured_og, measured_fg, measured_abv, measured_volume, measured_efficiency,
		carbonation_level, target_og, completed_at, measurements, created_at, updated_at`
	MeasurementColumns = `id, session_id, measured_at, gravity, temperature, pressure, ph, volume, note, source, is_og`
	EventColumns       = `id, type, date, title, description, data`
)

// RowScanner is satisfied by *sql.Row and *sql.Rows
type RowScanner interface {
	Scan(dest ...interface{}) error
}

func ScanSession(r RowScanner) (models.Session, error) {
	var (
		s                               models.Session
		phase                           string
		batchCode, notes, completedAt   sql.NullString
		og, fg, abv, volume, efficiency sql.NullFloat64
		carbonation, targetOG           sql.NullFloat64
		measurements                    []byte
		createdAt, updatedAt            string
	)
	err := r.Scan(
		&s.ID, &s.GroupID, &s.Name, &phase, &s.Status, &batchCode, &notes,
		&og, &fg, &abv, &volume, &efficiency,
		&carbonation, &targetOG, &completedAt, &measurements, &createdAt, &updatedAt,
	)
	if err != nil {
		return models.Session{}, err
	}

	s.Phase = constants.Phase(phase)
	s.BatchCode = nullString(batchCode)
	s.Notes = nullString(notes)
	s.MeasuredOG = nullFloat(og)
	s.MeasuredFG = nullFloat(fg)
	s.MeasuredABV = nullFloat(abv)
	s.MeasuredVolume = nullFloat(volume)
	s.MeasuredEfficiency = nullFloat(efficiency)
	s.CarbonationLevel = nullFloat(carbonation)
	s.TargetOG = nullFloat(targetOG)
	if len(measurements) > 0 {
		s.Measurements = json.RawMessage(append([]byte(nil), measurements...))
	}
	if completedAt.Valid {
		t, err := ParseTime(completedAt.String)
		if err != nil {
			return models.Session{}, err
		}
		s.CompletedAt = &t
	}
	if s.CreatedAt, err = ParseTime(createdAt); err != nil {
		return models.Session{}, err
	}
	if s.UpdatedAt, err = ParseTime(updatedAt); err != nil {
		return models.Session{}, err
	}
	return s, nil
}

// SessionArgs returns insert arguments in SessionColumns order
func SessionArgs(s models.Session) []interface{} {
	var completedAt interface{}
	if s.CompletedAt != nil {
		completedAt = FormatTime(*s.CompletedAt)
	}
	var measurements interface{}
	if len(s.Measurements) > 0 {
		measurements = string(s.Measurements)
	}
	return []interface{}{
		s.ID, s.GroupID, s.Name, string(s.Phase), s.Status, NullableString(s.BatchCode), NullableString(s.Notes),
		NullableFloat(s.MeasuredOG), NullableFloat(s.MeasuredFG), NullableFloat(s.MeasuredABV),
		NullableFloat(s.MeasuredVolume), NullableFloat(s.MeasuredEfficiency),
		NullableFloat(s.CarbonationLevel), NullableFloat(s.TargetOG), completedAt, measurements,
		FormatTime(s.CreatedAt), FormatTime(s.UpdatedAt),
	}
}

func ScanMeasurement(r RowScanner) (models.Measurement, error) {
	var (
		m                                   models.Measurement
		measuredAt, source                  string
		gravity, temp, pressure, ph, volume sql.NullFloat64
		note                                sql.NullString
	)
	err := r.Scan(&m.ID, &m.SessionID, &measuredAt, &gravity, &temp, &pressure, &ph, &volume, &note, &source, &m.IsOG)
	if err != nil {
		return models.Measurement{}, err
	}
	if m.MeasuredAt, err = ParseTime(measuredAt); err != nil {
		return models.Measurement{}, err
	}
	m.Gravity = nullFloat(gravity)
	m.Temperature = nullFloat(temp)
	m.Pressure = nullFloat(pressure)
	m.PH = nullFloat(ph)
	m.Volume = nullFloat(volume)
	m.Note = nullString(note)
	m.Source = constants.MeasurementSource(source)
	return m, nil
}

// MeasurementArgs returns insert arguments in MeasurementColumns order
func MeasurementArgs(m models.Measurement) []interface{} {
	return []interface{}{
		m.ID, m.SessionID, FormatTime(m.MeasuredAt),
		NullableFloat(m.Gravity), NullableFloat(m.Temperature), NullableFloat(m.Pressure),
		NullableFloat(m.PH), NullableFloat(m.Volume), NullableString(m.Note),
		string(m.Source), m.IsOG,
	}
}

func ScanEvent(r RowScanner) (models.TimelineEvent, error) {
	var (
		e         models.TimelineEvent
		eventType string
		date      string
		data      []byte
	)
	if err := r.Scan(&e.ID, &eventType, &date, &e.Title, &e.Description, &data); err != nil {
		return models.TimelineEvent{}, err
	}
	e.Type = constants.EventType(eventType)

	var err error
	if e.Date, err = ParseTime(date); err != nil {
		return models.TimelineEvent{}, err
	}
	if e.Data, err = models.DecodeEventData(e.Type, data); err != nil {
		return models.TimelineEvent{}, err
	}
	return e, nil
}

// EventData encodes the payload column; nil payloads store NULL
func EventData(e models.TimelineEvent) (interface{}, error) {
	if e.Data == nil {
		return nil, nil
	}
	raw, err := json.Marshal(e.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", e.Type, err)
	}
	return string(raw), nil
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(constants.StoredTimeFormat)
}

func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(constants.TimestampFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func NullableFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func NullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullFloat(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func nullString(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}
