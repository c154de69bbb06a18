package events

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/julianstephens/brewlog/internal/cli"
	"github.com/julianstephens/brewlog/internal/constants"
	"github.com/julianstephens/brewlog/internal/models"
	"github.com/julianstephens/brewlog/internal/storage/sqlite"
)

func setupTestContext(t *testing.T) *cli.Context {
	t.Helper()
	tempDir := t.TempDir()

	local := sqlite.NewStore(filepath.Join(tempDir, "local.db"))
	if err := local.Init(); err != nil {
		t.Fatalf("failed to init local store: %v", err)
	}
	remote := sqlite.NewStore(filepath.Join(tempDir, "remote.db"))
	if err := remote.Init(); err != nil {
		t.Fatalf("failed to init remote store: %v", err)
	}
	t.Cleanup(func() {
		_ = local.Close()
		_ = remote.Close()
	})

	bg := context.Background()
	s, err := remote.CreateSession(bg, models.NewSession("house", "IPA"))
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if err := local.SaveSnapshot(bg, s); err != nil {
		t.Fatalf("failed to cache session: %v", err)
	}

	return &cli.Context{Local: local, Remote: remote, SessionID: s.ID}
}

func ptr(f float64) *float64 { return &f }

func TestEventAddCmd_Input(t *testing.T) {
	tests := []struct {
		name    string
		cmd     EventAddCmd
		want    constants.EventType
		wantErr bool
	}{
		{name: "note", cmd: EventAddCmd{Type: "note", Text: "smells great"}, want: constants.EventNote},
		{name: "type is case-insensitive", cmd: EventAddCmd{Type: "NOTE", Text: "x"}, want: constants.EventNote},
		{name: "og", cmd: EventAddCmd{Type: "og-measurement", Gravity: ptr(1.062)}, want: constants.EventOGMeasurement},
		{name: "gravity in plato", cmd: EventAddCmd{Type: "gravity-measurement", Gravity: ptr(3.5), Unit: "plato"}, want: constants.EventGravityMeasurement},
		{name: "gravity without value", cmd: EventAddCmd{Type: "gravity-measurement"}, wantErr: true},
		{name: "ph", cmd: EventAddCmd{Type: "ph-measurement", Value: ptr(5.2)}, want: constants.EventPHMeasurement},
		{name: "ph without value", cmd: EventAddCmd{Type: "ph-measurement"}, wantErr: true},
		{name: "ingredient", cmd: EventAddCmd{Type: "ingredient-addition", Ingredient: "Citra", Amount: ptr(50), AmountUnit: "g", Stage: "dry-hop"}, want: constants.EventIngredientAddition},
		{name: "ingredient without name", cmd: EventAddCmd{Type: "ingredient-addition"}, wantErr: true},
		{name: "yeast harvest", cmd: EventAddCmd{Type: "yeast-harvest", Strain: "WLP001", Generation: 3}, want: constants.EventYeastHarvest},
		{name: "status change is reserved", cmd: EventAddCmd{Type: "status-change"}, wantErr: true},
		{name: "unknown type", cmd: EventAddCmd{Type: "party"}, wantErr: true},
		{name: "bad time", cmd: EventAddCmd{Type: "note", Text: "x", At: "soon"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := tt.cmd.Input()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Input() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, models.ErrValidation) {
					t.Errorf("error %v should wrap ErrValidation", err)
				}
				return
			}
			if in.Type != tt.want {
				t.Errorf("Type = %s, want %s", in.Type, tt.want)
			}
		})
	}
}

func TestEventCommands(t *testing.T) {
	ctx := setupTestContext(t)
	bg := context.Background()

	add := &EventAddCmd{Type: "note", Title: "Pitch", Text: "pitched two packs"}
	if err := add.Run(ctx); err != nil {
		t.Fatalf("EventAddCmd.Run() error = %v", err)
	}
	hop := &EventAddCmd{Type: "ingredient-addition", Ingredient: "Mosaic", Amount: ptr(30), AmountUnit: "g"}
	if err := hop.Run(ctx); err != nil {
		t.Fatalf("EventAddCmd.Run() error = %v", err)
	}

	s, err := ctx.Remote.GetSession(bg, ctx.SessionID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if len(s.Timeline) != 2 {
		t.Fatalf("timeline length = %d, want 2", len(s.Timeline))
	}

	if err := (&EventListCmd{Unit: "sg"}).Run(ctx); err != nil {
		t.Errorf("EventListCmd.Run() error = %v", err)
	}
	if err := (&EventListCmd{Type: "note", Unit: "sg"}).Run(ctx); err != nil {
		t.Errorf("EventListCmd.Run() filtered error = %v", err)
	}

	var noteID string
	for _, e := range s.Timeline {
		if e.Type == constants.EventNote {
			noteID = e.ID
		}
	}
	if err := (&EventRemoveCmd{ID: noteID}).Run(ctx); err != nil {
		t.Fatalf("EventRemoveCmd.Run() error = %v", err)
	}
	s, err = ctx.Remote.GetSession(bg, ctx.SessionID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if len(s.Timeline) != 1 || s.Timeline[0].Type != constants.EventIngredientAddition {
		t.Errorf("timeline after remove = %+v", s.Timeline)
	}
}

func TestEventAddCmd_OfflineQueues(t *testing.T) {
	ctx := setupTestContext(t)
	ctx.Offline = true

	if err := (&EventAddCmd{Type: "tasting-note", Text: "bright"}).Run(ctx); err != nil {
		t.Fatalf("offline EventAddCmd.Run() error = %v", err)
	}
	depths, err := ctx.Local.QueueDepths(context.Background())
	if err != nil {
		t.Fatalf("QueueDepths() error = %v", err)
	}
	if depths[ctx.SessionID] != 1 {
		t.Errorf("queue depth = %d, want 1", depths[ctx.SessionID])
	}
}
