package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/julianstephens/brewlog/internal/constants"
)

func TestQueueAction_Validate(t *testing.T) {
	m := Measurement{ID: NewTempID(), Gravity: ptr(1.030)}
	tests := []struct {
		name    string
		action  QueueAction
		wantErr bool
	}{
		{"add measurement", NewAddMeasurementAction("s1", m), false},
		{"delete measurement", NewDeleteMeasurementAction("s1", "m1"), false},
		{"remove event", NewRemoveEventAction("s1", "e1"), false},
		{"update session", NewUpdateSessionAction("s1", SessionPatch{Status: ptr("done")}), false},
		{"missing payload", QueueAction{ID: "a", SessionID: "s1", Type: constants.ActionAddEvent}, true},
		{"missing session", QueueAction{ID: "a", Type: constants.ActionRemoveEvent, TargetID: "e"}, true},
		{"unknown type", QueueAction{ID: "a", SessionID: "s1", Type: "explode"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.action.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Errorf("error %v does not wrap ErrValidation", err)
			}
		})
	}
}

func TestQueueAction_DependsOnAndRewrite(t *testing.T) {
	temp := NewTempID()
	a := NewDeleteMeasurementAction("s1", temp)
	if a.DependsOn() != temp {
		t.Fatalf("DependsOn() = %q, want %q", a.DependsOn(), temp)
	}

	b := a.Rewrite(map[string]string{temp: "server-7"})
	if b.TargetID != "server-7" || b.DependsOn() != "" {
		t.Errorf("rewritten action = %+v", b)
	}
	if a.TargetID != temp {
		t.Error("Rewrite mutated the original action")
	}
}

func TestQueueAction_PhaseChangeSurvivesJSON(t *testing.T) {
	e := PhaseChangeEvent(NewTempID(), constants.PhaseBrewing, constants.PhaseFermenting, time.Now())
	a := NewChangePhaseAction("s1", constants.PhaseBrewing, constants.PhaseFermenting, e)

	raw, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var got QueueAction
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.PhaseChange == nil || got.PhaseChange.To != constants.PhaseFermenting {
		t.Fatalf("PhaseChange = %+v", got.PhaseChange)
	}
	if _, ok := got.PhaseChange.Event.Data.(PhaseChangeData); !ok {
		t.Errorf("event payload = %T, want PhaseChangeData", got.PhaseChange.Event.Data)
	}
	if !got.IsCreate() || got.TempID != e.ID {
		t.Errorf("TempID = %q, want %q", got.TempID, e.ID)
	}
}
