package sessions

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/julianstephens/brewlog/internal/cli"
	"github.com/julianstephens/brewlog/internal/constants"
	"github.com/julianstephens/brewlog/internal/models"
	"github.com/julianstephens/brewlog/internal/phase"
	"github.com/julianstephens/brewlog/internal/session"
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
	s, err := remote.CreateSession(bg, models.NewSession("house", "Saison"))
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if err := local.SaveSnapshot(bg, s); err != nil {
		t.Fatalf("failed to cache session: %v", err)
	}

	return &cli.Context{Local: local, Remote: remote, SessionID: s.ID}
}

func remoteSession(t *testing.T, ctx *cli.Context) models.Session {
	t.Helper()
	s, err := ctx.Remote.GetSession(context.Background(), ctx.SessionID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	return s
}

func TestSessionNewCmd(t *testing.T) {
	ctx := setupTestContext(t)
	og := 12.0

	cmd := &SessionNewCmd{Name: "Dubbel", Group: "abbey", TargetOG: &og, Unit: "plato"}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("SessionNewCmd.Run() error = %v", err)
	}

	list, err := ctx.Remote.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	var found *models.Session
	for i := range list {
		if list[i].Name == "Dubbel" {
			found = &list[i]
		}
	}
	if found == nil {
		t.Fatal("new session not stored")
	}
	if found.TargetOG == nil || *found.TargetOG < 1.04 || *found.TargetOG > 1.06 {
		t.Errorf("TargetOG = %v, want about 1.048", found.TargetOG)
	}
	if _, ok, err := ctx.Local.LoadSnapshot(context.Background(), found.ID); err != nil || !ok {
		t.Errorf("new session was not cached locally (ok=%v, err=%v)", ok, err)
	}
}

func TestSessionNewCmd_Offline(t *testing.T) {
	ctx := setupTestContext(t)
	ctx.Offline = true

	err := (&SessionNewCmd{Name: "Dubbel", Group: "abbey"}).Run(ctx)
	if !errors.Is(err, session.ErrOffline) {
		t.Errorf("SessionNewCmd.Run() error = %v, want ErrOffline", err)
	}
}

func TestSessionNewCmd_NoRemote(t *testing.T) {
	ctx := setupTestContext(t)
	ctx.Remote = nil

	err := (&SessionNewCmd{Name: "Dubbel"}).Run(ctx)
	if !errors.Is(err, cli.ErrNoRemote) {
		t.Errorf("SessionNewCmd.Run() error = %v, want ErrNoRemote", err)
	}
}

func TestSessionListAndShow(t *testing.T) {
	ctx := setupTestContext(t)

	if err := (&SessionListCmd{}).Run(ctx); err != nil {
		t.Errorf("SessionListCmd.Run() error = %v", err)
	}
	if err := (&SessionShowCmd{Unit: "sg"}).Run(ctx); err != nil {
		t.Errorf("SessionShowCmd.Run() error = %v", err)
	}
	if err := (&SessionShowCmd{Unit: "furlongs"}).Run(ctx); err == nil {
		t.Error("SessionShowCmd.Run() should reject an unknown unit")
	}
}

func TestSessionUpdateCmd(t *testing.T) {
	ctx := setupTestContext(t)

	if err := (&SessionUpdateCmd{}).Run(ctx); err == nil {
		t.Error("SessionUpdateCmd.Run() with no fields should fail")
	}

	notes := "pitched at 19C"
	if err := (&SessionUpdateCmd{Notes: &notes}).Run(ctx); err != nil {
		t.Fatalf("SessionUpdateCmd.Run() error = %v", err)
	}
	s := remoteSession(t, ctx)
	if s.Notes == nil || *s.Notes != notes {
		t.Errorf("Notes = %v, want %q", s.Notes, notes)
	}
}

func TestPhaseCommands(t *testing.T) {
	ctx := setupTestContext(t)

	if err := (&PhaseNextCmd{}).Run(ctx); err != nil {
		t.Fatalf("PhaseNextCmd.Run() error = %v", err)
	}
	if got := remoteSession(t, ctx).Phase; got != constants.PhaseBrewing {
		t.Fatalf("phase = %s, want %s", got, constants.PhaseBrewing)
	}

	if err := (&PhaseSetCmd{Phase: "fermenting"}).Run(ctx); err != nil {
		t.Fatalf("PhaseSetCmd.Run() error = %v", err)
	}
	// Rolling back is allowed
	if err := (&PhaseSetCmd{Phase: "brewing"}).Run(ctx); err != nil {
		t.Fatalf("PhaseSetCmd.Run() rollback error = %v", err)
	}

	s := remoteSession(t, ctx)
	if s.Phase != constants.PhaseBrewing {
		t.Errorf("phase = %s, want %s", s.Phase, constants.PhaseBrewing)
	}
	changes := 0
	for _, e := range s.Timeline {
		if e.Type == constants.EventStatusChange {
			changes++
		}
	}
	if changes != 3 {
		t.Errorf("status-change events = %d, want 3", changes)
	}

	if err := (&PhaseSetCmd{Phase: "brewing"}).Run(ctx); !errors.Is(err, phase.ErrUnchanged) {
		t.Errorf("PhaseSetCmd.Run() to the same phase error = %v, want ErrUnchanged", err)
	}
	if err := (&PhaseSetCmd{Phase: "bottling"}).Run(ctx); !errors.Is(err, phase.ErrUnknownPhase) {
		t.Errorf("PhaseSetCmd.Run() error = %v, want ErrUnknownPhase", err)
	}
}

func TestSyncCmd(t *testing.T) {
	ctx := setupTestContext(t)

	notes := "queued while the link was down"
	ctx.Offline = true
	if err := (&SessionUpdateCmd{Notes: &notes}).Run(ctx); err != nil {
		t.Fatalf("offline SessionUpdateCmd.Run() error = %v", err)
	}
	if err := (&QueueListCmd{}).Run(ctx); err != nil {
		t.Errorf("QueueListCmd.Run() error = %v", err)
	}
	if err := (&SyncCmd{}).Run(ctx); !errors.Is(err, session.ErrOffline) {
		t.Errorf("offline SyncCmd.Run() error = %v, want ErrOffline", err)
	}
	if s := remoteSession(t, ctx); s.Notes != nil {
		t.Fatalf("offline update reached the store of record")
	}

	ctx.Offline = false
	if err := (&SyncCmd{}).Run(ctx); err != nil {
		t.Fatalf("SyncCmd.Run() error = %v", err)
	}
	if s := remoteSession(t, ctx); s.Notes == nil || *s.Notes != notes {
		t.Errorf("Notes = %v after sync, want %q", s.Notes, notes)
	}
	depths, err := ctx.Local.QueueDepths(context.Background())
	if err != nil {
		t.Fatalf("QueueDepths() error = %v", err)
	}
	if len(depths) != 0 {
		t.Errorf("queue depths after sync = %v, want empty", depths)
	}

	ctx.SessionID = ""
	if err := (&QueueListCmd{}).Run(ctx); err != nil {
		t.Errorf("QueueListCmd.Run() without a session error = %v", err)
	}
}
