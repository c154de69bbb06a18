package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/brewlog/internal/constants"
)

// ErrValidation is wrapped by every input validation failure
var ErrValidation = errors.New("validation failed")

func validationErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Session is the root aggregate for one batch
type Session struct {
	ID                 string          `json:"id"`
	GroupID            string          `json:"group_id"`
	Name               string          `json:"name"`
	Phase              constants.Phase `json:"phase"`
	Status             string          `json:"status"`
	BatchCode          *string         `json:"batch_code,omitempty"`
	Notes              *string         `json:"notes,omitempty"`
	Timeline           []TimelineEvent `json:"timeline"`
	MeasurementHistory []Measurement   `json:"measurement_history"`
	MeasuredOG         *float64        `json:"measured_og,omitempty"`
	MeasuredFG         *float64        `json:"measured_fg,omitempty"`
	MeasuredABV        *float64        `json:"measured_abv,omitempty"`
	MeasuredVolume     *float64        `json:"measured_volume,omitempty"`
	MeasuredEfficiency *float64        `json:"measured_efficiency,omitempty"`
	CarbonationLevel   *float64        `json:"carbonation_level,omitempty"`
	TargetOG           *float64        `json:"target_og,omitempty"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
	// Measurements is auxiliary UI state (checklists, timers). It is not part
	// of the event history and carries no ordering guarantees.
	Measurements json.RawMessage `json:"measurements,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewSession builds a session in the planning phase
func NewSession(groupID, name string) Session {
	now := time.Now().UTC()
	return Session{
		ID:        uuid.New().String(),
		GroupID:   groupID,
		Name:      name,
		Phase:     constants.PhasePlanning,
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Session) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return validationErr("session id cannot be empty")
	}
	if !IsValidPhase(s.Phase) {
		return validationErr("invalid phase %q", s.Phase)
	}
	return nil
}

// Clone returns a deep copy so callers can't reach into a live snapshot
func (s Session) Clone() Session {
	out := s
	out.Timeline = append([]TimelineEvent(nil), s.Timeline...)
	out.MeasurementHistory = make([]Measurement, len(s.MeasurementHistory))
	for i, m := range s.MeasurementHistory {
		out.MeasurementHistory[i] = m.Clone()
	}
	if s.Measurements != nil {
		out.Measurements = append(json.RawMessage(nil), s.Measurements...)
	}
	out.BatchCode = cloneString(s.BatchCode)
	out.Notes = cloneString(s.Notes)
	out.MeasuredOG = cloneFloat(s.MeasuredOG)
	out.MeasuredFG = cloneFloat(s.MeasuredFG)
	out.MeasuredABV = cloneFloat(s.MeasuredABV)
	out.MeasuredVolume = cloneFloat(s.MeasuredVolume)
	out.MeasuredEfficiency = cloneFloat(s.MeasuredEfficiency)
	out.CarbonationLevel = cloneFloat(s.CarbonationLevel)
	out.TargetOG = cloneFloat(s.TargetOG)
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

// SortedTimeline returns the timeline ordered by logical date. Ties keep
// insertion order.
func (s Session) SortedTimeline() []TimelineEvent {
	events := append([]TimelineEvent(nil), s.Timeline...)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
	return events
}

// SortedMeasurements returns measurement history ordered by measured_at
func (s Session) SortedMeasurements() []Measurement {
	ms := append([]Measurement(nil), s.MeasurementHistory...)
	sort.SliceStable(ms, func(i, j int) bool {
		return ms[i].MeasuredAt.Before(ms[j].MeasuredAt)
	})
	return ms
}

// FindMeasurement returns the index of the measurement with id, or -1
func (s Session) FindMeasurement(id string) int {
	for i, m := range s.MeasurementHistory {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// FindEvent returns the index of the timeline event with id, or -1
func (s Session) FindEvent(id string) int {
	for i, e := range s.Timeline {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// IsValidPhase reports whether p is one of the five lifecycle stages
func IsValidPhase(p constants.Phase) bool {
	switch p {
	case constants.PhasePlanning, constants.PhaseBrewing, constants.PhaseFermenting,
		constants.PhaseConditioning, constants.PhaseCompleted:
		return true
	}
	return false
}

// NewTempID returns a locally generated identifier for an optimistic insert
func NewTempID() string {
	return constants.TempIDPrefix + uuid.New().String()
}

// IsTempID reports whether id was generated locally and is still unconfirmed
func IsTempID(id string) bool {
	return strings.HasPrefix(id, constants.TempIDPrefix)
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
