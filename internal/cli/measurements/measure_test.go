package measurements

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/brewlog/internal/cli"
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
	s, err := remote.CreateSession(bg, models.NewSession("house", "Stout"))
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if err := local.SaveSnapshot(bg, s); err != nil {
		t.Fatalf("failed to cache session: %v", err)
	}

	return &cli.Context{Local: local, Remote: remote, SessionID: s.ID}
}

func ptr(f float64) *float64 { return &f }

func history(t *testing.T, ctx *cli.Context) []models.Measurement {
	t.Helper()
	s, err := ctx.Remote.GetSession(context.Background(), ctx.SessionID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	return s.MeasurementHistory
}

func TestMeasureAddCmd_Input(t *testing.T) {
	tests := []struct {
		name    string
		cmd     MeasureAddCmd
		wantSG  float64
		wantErr bool
	}{
		{name: "sg", cmd: MeasureAddCmd{Gravity: ptr(1.048), Unit: "sg"}, wantSG: 1.048},
		{name: "shorthand guessed", cmd: MeasureAddCmd{Gravity: ptr(1048)}, wantSG: 1.048},
		{name: "sg1000", cmd: MeasureAddCmd{Gravity: ptr(1012), Unit: "sg1000"}, wantSG: 1.012},
		{name: "unknown unit", cmd: MeasureAddCmd{Gravity: ptr(1.048), Unit: "furlongs"}, wantErr: true},
		{name: "bad time", cmd: MeasureAddCmd{Gravity: ptr(1.048), At: "yesterday"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := tt.cmd.Input()
			if err == nil {
				err = in.Validate()
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("Input() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, models.ErrValidation) {
					t.Errorf("error %v should wrap ErrValidation", err)
				}
				return
			}
			m := in.ToMeasurement("m1", "s1", time.Now())
			if m.Gravity == nil || math.Abs(*m.Gravity-tt.wantSG) > 1e-9 {
				t.Errorf("gravity = %v, want %v", m.Gravity, tt.wantSG)
			}
		})
	}
}

func TestMeasureAddCmd_NeedsAQuantity(t *testing.T) {
	ctx := setupTestContext(t)

	err := (&MeasureAddCmd{Note: "just a thought", Source: "manual"}).Run(ctx)
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("MeasureAddCmd.Run() error = %v, want ErrValidation", err)
	}
}

func TestMeasureCommands_Online(t *testing.T) {
	ctx := setupTestContext(t)

	og := &MeasureAddCmd{Gravity: ptr(1.060), OG: true, Source: "manual"}
	if err := og.Run(ctx); err != nil {
		t.Fatalf("MeasureAddCmd.Run() error = %v", err)
	}
	current := &MeasureAddCmd{Gravity: ptr(1.015), Temp: ptr(19.5), Note: "day 7", Source: "manual"}
	if err := current.Run(ctx); err != nil {
		t.Fatalf("MeasureAddCmd.Run() error = %v", err)
	}

	stored := history(t, ctx)
	if len(stored) != 2 {
		t.Fatalf("stored measurements = %d, want 2", len(stored))
	}
	var target string
	for _, m := range stored {
		if !m.IsOG {
			target = m.ID
		}
	}

	if err := (&MeasureUpdateCmd{ID: target}).Run(ctx); err == nil {
		t.Error("MeasureUpdateCmd.Run() with no fields should fail")
	}
	if err := (&MeasureUpdateCmd{ID: target, PH: ptr(4.3)}).Run(ctx); err != nil {
		t.Fatalf("MeasureUpdateCmd.Run() error = %v", err)
	}
	for _, m := range history(t, ctx) {
		if m.ID == target && (m.PH == nil || *m.PH != 4.3) {
			t.Errorf("PH = %v, want 4.3", m.PH)
		}
	}

	if err := (&MeasureListCmd{Unit: "plato"}).Run(ctx); err != nil {
		t.Errorf("MeasureListCmd.Run() error = %v", err)
	}

	if err := (&MeasureDeleteCmd{ID: target}).Run(ctx); err != nil {
		t.Fatalf("MeasureDeleteCmd.Run() error = %v", err)
	}
	if n := len(history(t, ctx)); n != 1 {
		t.Errorf("stored measurements after delete = %d, want 1", n)
	}
}

func TestMeasureCommands_OfflineAddThenDelete(t *testing.T) {
	ctx := setupTestContext(t)
	ctx.Offline = true

	if err := (&MeasureAddCmd{Gravity: ptr(1.050), Source: "manual"}).Run(ctx); err != nil {
		t.Fatalf("offline MeasureAddCmd.Run() error = %v", err)
	}
	if n := len(history(t, ctx)); n != 0 {
		t.Fatalf("offline add reached the store of record (%d rows)", n)
	}

	cached, ok, err := ctx.Local.LoadSnapshot(context.Background(), ctx.SessionID)
	if err != nil || !ok {
		t.Fatalf("LoadSnapshot() ok=%v err=%v", ok, err)
	}
	if len(cached.MeasurementHistory) != 1 {
		t.Fatalf("cached measurements = %d, want 1", len(cached.MeasurementHistory))
	}
	tempID := cached.MeasurementHistory[0].ID
	if !models.IsTempID(tempID) {
		t.Fatalf("offline measurement id %q is not a temp id", tempID)
	}

	// The delete targets the temp id and replays after the create
	if err := (&MeasureDeleteCmd{ID: tempID}).Run(ctx); err != nil {
		t.Fatalf("offline MeasureDeleteCmd.Run() error = %v", err)
	}

	ctx.Offline = false
	if err := (&MeasureListCmd{Unit: "sg"}).Run(ctx); err != nil {
		t.Fatalf("MeasureListCmd.Run() error = %v", err)
	}
	if n := len(history(t, ctx)); n != 0 {
		t.Errorf("stored measurements after replay = %d, want 0", n)
	}
}
