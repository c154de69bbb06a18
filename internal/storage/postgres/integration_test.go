package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/julianstephens/brewlog/internal/constants"
	"github.com/julianstephens/brewlog/internal/models"
	"github.com/julianstephens/brewlog/internal/storage"
)

// TestStore_Integration exercises the store against a real database.
// Set POSTGRES_TEST_URL to run it, e.g.
// POSTGRES_TEST_URL="postgres://brewer@localhost:5432/brewlog_test?sslmode=disable"
func TestStore_Integration(t *testing.T) {
	connStr := os.Getenv("POSTGRES_TEST_URL")
	if connStr == "" {
		t.Skip("POSTGRES_TEST_URL not set, skipping PostgreSQL integration test")
	}

	store := New(connStr)
	if err := store.Init(); err != nil {
		t.Fatalf("Failed to initialize store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	session, err := store.CreateSession(ctx, models.NewSession("integration", "Test Saison"))
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	defer store.db.Exec("DELETE FROM sessions WHERE id = $1", session.ID)

	t.Run("Measurements", func(t *testing.T) {
		g := 1.048
		m, err := store.CreateMeasurement(ctx, session.ID, models.Measurement{
			MeasuredAt: time.Now().UTC(),
			Gravity:    &g,
			Source:     constants.SourceManual,
		})
		if err != nil {
			t.Fatalf("CreateMeasurement() error = %v", err)
		}

		fg := 1.012
		if err := store.UpdateMeasurement(ctx, m.ID, models.MeasurementPatch{Gravity: &fg}); err != nil {
			t.Fatalf("UpdateMeasurement() error = %v", err)
		}

		got, err := store.GetSession(ctx, session.ID)
		if err != nil {
			t.Fatalf("GetSession() error = %v", err)
		}
		if len(got.MeasurementHistory) != 1 || *got.MeasurementHistory[0].Gravity != fg {
			t.Errorf("measurement history = %+v", got.MeasurementHistory)
		}

		if err := store.DeleteMeasurement(ctx, m.ID); err != nil {
			t.Fatalf("DeleteMeasurement() error = %v", err)
		}
		if err := store.DeleteMeasurement(ctx, m.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("second delete error = %v, want ErrNotFound", err)
		}
	})

	t.Run("Timeline", func(t *testing.T) {
		ev := models.PhaseChangeEvent("temp-x", constants.PhasePlanning, constants.PhaseBrewing, time.Now())
		stored, err := store.SetPhase(ctx, session.ID, constants.PhaseBrewing, ev)
		if err != nil {
			t.Fatalf("SetPhase() error = %v", err)
		}
		if stored.ID == ev.ID {
			t.Error("SetPhase kept the temporary id")
		}

		note := models.EventInput{Type: constants.EventNote, Data: models.NoteData{Text: "mash in"}}.ToEvent("temp-y", time.Now())
		_, timeline, err := store.AppendEvent(ctx, session.ID, note)
		if err != nil {
			t.Fatalf("AppendEvent() error = %v", err)
		}
		if len(timeline) != 2 {
			t.Fatalf("timeline length = %d, want 2", len(timeline))
		}
		if _, ok := timeline[0].Data.(models.PhaseChangeData); !ok {
			t.Errorf("first event payload = %T", timeline[0].Data)
		}
	})

	t.Run("UpdateSession", func(t *testing.T) {
		notes := "bottled"
		if err := store.UpdateSession(ctx, session.ID, models.SessionPatch{Notes: &notes}); err != nil {
			t.Fatalf("UpdateSession() error = %v", err)
		}
		got, err := store.GetSession(ctx, session.ID)
		if err != nil {
			t.Fatalf("GetSession() error = %v", err)
		}
		if got.Phase != constants.PhaseBrewing || got.Notes == nil || *got.Notes != notes {
			t.Errorf("session = %+v", got)
		}
	})
}
