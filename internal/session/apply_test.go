package session

import (
	"reflect"
	"testing"
	"time"

	"github.com/julianstephens/brewlog/internal/constants"
	"github.com/julianstephens/brewlog/internal/models"
)

func TestApply_IsIdempotent(t *testing.T) {
	base := models.NewSession("club", "Mild")
	m := models.Measurement{ID: models.NewTempID(), SessionID: base.ID, MeasuredAt: time.Now().UTC(), Gravity: ptr(1.036)}
	ev := models.PhaseChangeEvent(models.NewTempID(), constants.PhasePlanning, constants.PhaseBrewing, time.Now())

	actions := []models.QueueAction{
		models.NewChangePhaseAction(base.ID, constants.PhasePlanning, constants.PhaseBrewing, ev),
		models.NewAddMeasurementAction(base.ID, m),
		models.NewUpdateMeasurementAction(base.ID, m.ID, models.MeasurementPatch{Temperature: ptr(19.5)}),
		models.NewUpdateSessionAction(base.ID, models.SessionPatch{Status: ptr("fermenting")}),
	}

	once := base
	for _, a := range actions {
		once = apply(once, a)
	}
	twice := once
	for _, a := range actions {
		twice = apply(twice, a)
	}

	if once.Phase != constants.PhaseBrewing || len(once.Timeline) != 1 || len(once.MeasurementHistory) != 1 {
		t.Fatalf("after one pass: phase %s, %d events, %d measurements", once.Phase, len(once.Timeline), len(once.MeasurementHistory))
	}
	if !approx(once.MeasurementHistory[0].Temperature, 19.5) {
		t.Errorf("patch not applied: %+v", once.MeasurementHistory[0])
	}
	if !reflect.DeepEqual(once, twice) {
		t.Error("second pass changed the snapshot")
	}
}

func TestApply_DoesNotAliasInput(t *testing.T) {
	base := models.NewSession("club", "Mild")
	base.MeasurementHistory = []models.Measurement{{ID: "m-1", Gravity: ptr(1.040)}}

	out := apply(base, models.NewDeleteMeasurementAction(base.ID, "m-1"))
	if len(out.MeasurementHistory) != 0 {
		t.Errorf("delete not applied")
	}
	if len(base.MeasurementHistory) != 1 {
		t.Errorf("input was modified")
	}
}
