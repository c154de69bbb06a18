package session

import (
	"github.com/julianstephens/brewlog/internal/constants"
	"github.com/julianstephens/brewlog/internal/models"
)

// apply folds one pending action into a copy of s. Applying an action that
// is already reflected leaves s unchanged, so the queue can be replayed over
// any snapshot that may or may not include it.
func apply(s models.Session, a models.QueueAction) models.Session {
	out := s.Clone()
	switch a.Type {
	case constants.ActionAddMeasurement:
		out.MeasurementHistory = upsertMeasurement(out.MeasurementHistory, a.Measurement.Clone())
	case constants.ActionUpdateMeasurement:
		if i := out.FindMeasurement(a.TargetID); i >= 0 {
			out.MeasurementHistory[i] = a.MeasurementPatch.Apply(out.MeasurementHistory[i])
		}
	case constants.ActionDeleteMeasurement:
		out.MeasurementHistory = dropMeasurement(out.MeasurementHistory, a.TargetID)
	case constants.ActionAddEvent:
		out.Timeline = upsertEvent(out.Timeline, *a.Event)
	case constants.ActionRemoveEvent:
		out.Timeline = dropEvent(out.Timeline, a.TargetID)
	case constants.ActionChangePhase:
		out.Phase = a.PhaseChange.To
		out.Timeline = upsertEvent(out.Timeline, a.PhaseChange.Event)
	case constants.ActionUpdateSession:
		out = a.SessionPatch.Apply(out)
	}
	return out
}

func upsertMeasurement(ms []models.Measurement, m models.Measurement) []models.Measurement {
	for i := range ms {
		if ms[i].ID == m.ID {
			ms[i] = m
			return ms
		}
	}
	return append(ms, m)
}

func dropMeasurement(ms []models.Measurement, id string) []models.Measurement {
	out := ms[:0:0]
	for _, m := range ms {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}

func upsertEvent(events []models.TimelineEvent, e models.TimelineEvent) []models.TimelineEvent {
	for i := range events {
		if events[i].ID == e.ID {
			events[i] = e
			return events
		}
	}
	return append(events, e)
}

func dropEvent(events []models.TimelineEvent, id string) []models.TimelineEvent {
	out := events[:0:0]
	for _, e := range events {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}
