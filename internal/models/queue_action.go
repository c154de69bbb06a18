package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/brewlog/internal/constants"
)

// PhaseChange is the payload of a change-phase action. The status-change
// event travels with it so the audit entry is written in the same step.
type PhaseChange struct {
	From  constants.Phase `json:"from"`
	To    constants.Phase `json:"to"`
	Event TimelineEvent   `json:"event"`
}

// QueueAction is a pending mutation awaiting replay. Exactly one payload
// field is set, selected by Type.
type QueueAction struct {
	ID        string               `json:"id"`
	Type      constants.ActionType `json:"type"`
	SessionID string               `json:"session_id"`
	// TempID correlates a create with its optimistic local entry
	TempID string `json:"temp_id,omitempty"`
	// TargetID is the record an update or delete applies to
	TargetID         string            `json:"target_id,omitempty"`
	Measurement      *Measurement      `json:"measurement,omitempty"`
	MeasurementPatch *MeasurementPatch `json:"measurement_patch,omitempty"`
	Event            *TimelineEvent    `json:"event,omitempty"`
	PhaseChange      *PhaseChange      `json:"phase_change,omitempty"`
	SessionPatch     *SessionPatch     `json:"session_patch,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

func newAction(t constants.ActionType, sessionID string) QueueAction {
	return QueueAction{
		ID:        uuid.New().String(),
		Type:      t,
		SessionID: sessionID,
		CreatedAt: time.Now().UTC(),
	}
}

func NewAddMeasurementAction(sessionID string, m Measurement) QueueAction {
	a := newAction(constants.ActionAddMeasurement, sessionID)
	mc := m.Clone()
	a.TempID = m.ID
	a.Measurement = &mc
	return a
}

func NewUpdateMeasurementAction(sessionID, id string, patch MeasurementPatch) QueueAction {
	a := newAction(constants.ActionUpdateMeasurement, sessionID)
	a.TargetID = id
	a.MeasurementPatch = &patch
	return a
}

func NewDeleteMeasurementAction(sessionID, id string) QueueAction {
	a := newAction(constants.ActionDeleteMeasurement, sessionID)
	a.TargetID = id
	return a
}

func NewAddEventAction(sessionID string, e TimelineEvent) QueueAction {
	a := newAction(constants.ActionAddEvent, sessionID)
	a.TempID = e.ID
	a.Event = &e
	return a
}

func NewRemoveEventAction(sessionID, id string) QueueAction {
	a := newAction(constants.ActionRemoveEvent, sessionID)
	a.TargetID = id
	return a
}

func NewChangePhaseAction(sessionID string, from, to constants.Phase, e TimelineEvent) QueueAction {
	a := newAction(constants.ActionChangePhase, sessionID)
	a.TempID = e.ID
	a.PhaseChange = &PhaseChange{From: from, To: to, Event: e}
	return a
}

func NewUpdateSessionAction(sessionID string, patch SessionPatch) QueueAction {
	a := newAction(constants.ActionUpdateSession, sessionID)
	a.SessionPatch = &patch
	return a
}

// Validate checks that the payload matches the action type
func (a QueueAction) Validate() error {
	if a.ID == "" {
		return validationErr("queue action id cannot be empty")
	}
	if a.SessionID == "" {
		return validationErr("queue action %s has no session", a.ID)
	}
	ok := false
	switch a.Type {
	case constants.ActionAddMeasurement:
		ok = a.Measurement != nil
	case constants.ActionUpdateMeasurement:
		ok = a.TargetID != "" && a.MeasurementPatch != nil
	case constants.ActionDeleteMeasurement, constants.ActionRemoveEvent:
		ok = a.TargetID != ""
	case constants.ActionAddEvent:
		ok = a.Event != nil
	case constants.ActionChangePhase:
		ok = a.PhaseChange != nil && IsValidPhase(a.PhaseChange.To)
	case constants.ActionUpdateSession:
		ok = a.SessionPatch != nil
	default:
		return validationErr("unknown action type %q", a.Type)
	}
	if !ok {
		return validationErr("queue action %s (%s) is missing its payload", a.ID, a.Type)
	}
	return nil
}

// IsCreate reports whether the action creates a record under a temp id
func (a QueueAction) IsCreate() bool {
	return a.TempID != ""
}

// DependsOn returns the unconfirmed id the action targets, if any
func (a QueueAction) DependsOn() string {
	if IsTempID(a.TargetID) {
		return a.TargetID
	}
	return ""
}

// Rewrite replaces a temp target id with its confirmed server id
func (a QueueAction) Rewrite(resolved map[string]string) QueueAction {
	if id, ok := resolved[a.TargetID]; ok {
		a.TargetID = id
	}
	return a
}
