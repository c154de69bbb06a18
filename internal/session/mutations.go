package session

import (
	"context"
	"fmt"

	"github.com/julianstephens/brewlog/internal/constants"
	"github.com/julianstephens/brewlog/internal/logger"
	"github.com/julianstephens/brewlog/internal/metrics"
	"github.com/julianstephens/brewlog/internal/models"
	"github.com/julianstephens/brewlog/internal/phase"
	"github.com/julianstephens/brewlog/internal/queue"
	"github.com/julianstephens/brewlog/internal/storage"
)

// AddMeasurement records a reading under a temp id and confirms it with the
// store of record, or queues it when offline. A failed online create is
// rolled back.
func (c *Context) AddMeasurement(ctx context.Context, in models.MeasurementInput) (models.Measurement, error) {
	if err := in.Validate(); err != nil {
		return models.Measurement{}, err
	}
	m := in.ToMeasurement(models.NewTempID(), c.id, c.now())
	action := models.NewAddMeasurementAction(c.id, m)
	c.stage(action)

	if !c.IsOnline() {
		return m, c.enqueue(ctx, action)
	}

	c.track(m.ID)
	saved, err := c.remote.CreateMeasurement(ctx, c.id, m)
	if err != nil {
		c.rollback(ctx, kindMeasurement, m.ID)
		c.fail(ctx, "Failed to save measurement", err)
		return models.Measurement{}, fmt.Errorf("failed to create measurement: %w", err)
	}

	c.confirm(ctx, kindMeasurement, m.ID, saved.ID, func(s models.Session) models.Session {
		if i := s.FindMeasurement(m.ID); i >= 0 {
			s.MeasurementHistory[i] = saved.Clone()
		}
		return s
	})
	return saved, nil
}

// UpdateMeasurement patches a reading in place. An online failure refetches
// the session instead of trying to invert the patch.
func (c *Context) UpdateMeasurement(ctx context.Context, id string, patch models.MeasurementPatch) error {
	patch, err := patch.Normalize()
	if err != nil {
		return err
	}
	if !c.hasMeasurement(id) {
		return fmt.Errorf("measurement %s: %w", id, storage.ErrNotFound)
	}

	action := models.NewUpdateMeasurementAction(c.id, id, patch)
	c.stage(action)
	return c.route(ctx, action, "Failed to update measurement")
}

func (c *Context) DeleteMeasurement(ctx context.Context, id string) error {
	if !c.hasMeasurement(id) {
		return fmt.Errorf("measurement %s: %w", id, storage.ErrNotFound)
	}
	if c.bury(kindMeasurement, id) {
		return nil
	}

	action := models.NewDeleteMeasurementAction(c.id, id)
	c.stage(action)
	return c.route(ctx, action, "Failed to delete measurement")
}

// AddEvent appends to the timeline. Online, the store's timeline replaces
// the local one since the store owns ordering once a write is confirmed.
func (c *Context) AddEvent(ctx context.Context, in models.EventInput) (models.TimelineEvent, error) {
	if err := in.Validate(); err != nil {
		return models.TimelineEvent{}, err
	}
	e := in.ToEvent(models.NewTempID(), c.now())
	action := models.NewAddEventAction(c.id, e)
	c.stage(action)

	if !c.IsOnline() {
		return e, c.enqueue(ctx, action)
	}

	c.track(e.ID)
	saved, timeline, err := c.remote.AppendEvent(ctx, c.id, e)
	if err != nil {
		c.rollback(ctx, kindEvent, e.ID)
		c.fail(ctx, "Failed to add timeline event", err)
		return models.TimelineEvent{}, fmt.Errorf("failed to append event: %w", err)
	}

	c.confirm(ctx, kindEvent, e.ID, saved.ID, func(s models.Session) models.Session {
		s.Timeline = append([]models.TimelineEvent(nil), timeline...)
		return c.rebaseLocked(s)
	})
	return saved, nil
}

// RemoveEvent deletes a timeline entry. Removal follows the same routing as
// every other mutation, so it is queued while offline.
func (c *Context) RemoveEvent(ctx context.Context, id string) error {
	c.mu.RLock()
	found := c.snapshot.FindEvent(id) >= 0
	c.mu.RUnlock()
	if !found {
		return fmt.Errorf("event %s: %w", id, storage.ErrNotFound)
	}
	if c.bury(kindEvent, id) {
		return nil
	}

	action := models.NewRemoveEventAction(c.id, id)
	c.stage(action)
	return c.route(ctx, action, "Failed to remove timeline event")
}

// ChangePhase moves the session to p and records the status-change event.
// Completing a session also writes the archival metrics snapshot.
func (c *Context) ChangePhase(ctx context.Context, p constants.Phase) error {
	now := c.now()

	c.mu.Lock()
	tr, err := phase.Change(c.snapshot, p, models.NewTempID(), now)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.snapshot = tr.Session
	var archive models.SessionPatch
	if phase.IsTerminal(p) {
		archive = metrics.Finalize(tr.Session, now)
		c.snapshot = archive.Apply(c.snapshot)
	}
	c.mu.Unlock()

	change := models.NewChangePhaseAction(c.id, tr.From, tr.To, tr.Event)
	var followUp *models.QueueAction
	if !archive.IsEmpty() {
		a := models.NewUpdateSessionAction(c.id, archive)
		followUp = &a
	}

	if !c.IsOnline() {
		if err := c.enqueue(ctx, change); err != nil {
			return err
		}
		if followUp != nil {
			return c.enqueue(ctx, *followUp)
		}
		return nil
	}

	c.track(tr.Event.ID)
	eventID, err := queue.Dispatch(ctx, c.remote, change)
	if err != nil {
		c.untrack(tr.Event.ID)
		c.fail(ctx, "Failed to change phase", err)
		c.refetch(ctx)
		return fmt.Errorf("failed to change phase: %w", err)
	}
	c.confirm(ctx, kindEvent, tr.Event.ID, eventID, func(s models.Session) models.Session {
		if i := s.FindEvent(tr.Event.ID); i >= 0 {
			s.Timeline[i].ID = eventID
		}
		return s
	})

	logger.Info("Phase changed", "session", c.id, "from", tr.From, "to", tr.To)
	if followUp != nil {
		return c.route(ctx, *followUp, "Failed to archive session metrics")
	}
	return nil
}

// UpdateSessionData writes allow-listed scalar fields. An empty patch is a
// no-op.
func (c *Context) UpdateSessionData(ctx context.Context, patch models.SessionPatch) error {
	if patch.IsEmpty() {
		return nil
	}
	action := models.NewUpdateSessionAction(c.id, patch)
	c.stage(action)
	return c.route(ctx, action, "Failed to update session")
}

// UpdateSessionFields is UpdateSessionData for loosely typed input. Keys
// outside the allow-list are dropped.
func (c *Context) UpdateSessionFields(ctx context.Context, fields map[string]interface{}) error {
	patch, err := models.SessionPatchFromMap(fields)
	if err != nil {
		return err
	}
	return c.UpdateSessionData(ctx, patch)
}

// stage applies an action to the snapshot
func (c *Context) stage(a models.QueueAction) {
	c.mu.Lock()
	c.snapshot = apply(c.snapshot, a)
	c.mu.Unlock()
}

func (c *Context) enqueue(ctx context.Context, a models.QueueAction) error {
	if err := c.queue.Push(ctx, a); err != nil {
		logger.Error("Failed to queue action", "session", c.id, "type", a.Type, "error", err)
		return err
	}
	c.saveCache(ctx)
	return nil
}

// route sends an update or delete. Offline, or aimed at a record that is
// not confirmed yet, it is queued behind the create; online failures
// refetch the session.
func (c *Context) route(ctx context.Context, a models.QueueAction, what string) error {
	if models.IsTempID(a.TargetID) {
		if !c.pendingCreate(a.TargetID) {
			// the create was rolled back; only the local copy existed
			return nil
		}
		if err := c.enqueue(ctx, a); err != nil {
			return err
		}
		c.kick()
		return nil
	}
	if !c.IsOnline() {
		return c.enqueue(ctx, a)
	}

	if _, err := queue.Dispatch(ctx, c.remote, a); err != nil {
		c.fail(ctx, what, err)
		c.refetch(ctx)
		return fmt.Errorf("%s: %w", a.Type, err)
	}
	c.saveCache(ctx)
	return nil
}

func (c *Context) hasMeasurement(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot.FindMeasurement(id) >= 0
}

func (c *Context) pendingCreate(id string) bool {
	c.mu.RLock()
	inflight := c.inflight[id]
	c.mu.RUnlock()
	return inflight || c.queue.HasCreate(id)
}

func (c *Context) track(tempID string) {
	c.mu.Lock()
	c.inflight[tempID] = true
	c.mu.Unlock()
}

func (c *Context) untrack(tempID string) {
	c.mu.Lock()
	delete(c.inflight, tempID)
	delete(c.tombstones, tempID)
	c.mu.Unlock()
}

// bury handles a delete of a record whose online create is still in flight:
// it disappears locally now and is deleted remotely once confirmed.
func (c *Context) bury(kind recordKind, id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inflight[id] {
		return false
	}
	c.tombstones[id] = kind
	if kind == kindMeasurement {
		c.snapshot.MeasurementHistory = dropMeasurement(c.snapshot.MeasurementHistory, id)
	} else {
		c.snapshot.Timeline = dropEvent(c.snapshot.Timeline, id)
	}
	return true
}

// confirm swaps a temp id for its server id everywhere it is referenced
func (c *Context) confirm(ctx context.Context, kind recordKind, tempID, serverID string, replace func(models.Session) models.Session) {
	c.mu.Lock()
	delete(c.inflight, tempID)
	_, buried := c.tombstones[tempID]
	delete(c.tombstones, tempID)
	if !buried {
		c.snapshot = replace(c.snapshot.Clone())
	}
	c.mu.Unlock()

	if err := c.queue.Resolve(ctx, tempID, serverID); err != nil {
		logger.Error("Failed to resolve queued references", "session", c.id, "id", tempID, "error", err)
	}

	if buried {
		c.deleteConfirmed(ctx, kind, serverID)
	} else {
		c.saveCache(ctx)
	}
	c.kick()
}

func (c *Context) deleteConfirmed(ctx context.Context, kind recordKind, serverID string) {
	a := models.NewDeleteMeasurementAction(c.id, serverID)
	what := "Failed to delete measurement"
	if kind == kindEvent {
		a = models.NewRemoveEventAction(c.id, serverID)
		what = "Failed to remove timeline event"
	}
	logger.Debug("Deleting record removed before its create confirmed", "session", c.id, "id", serverID)
	c.route(ctx, a, what)
}

// rollback undoes a failed online create
func (c *Context) rollback(ctx context.Context, kind recordKind, tempID string) {
	c.mu.Lock()
	delete(c.inflight, tempID)
	delete(c.tombstones, tempID)
	s := c.snapshot.Clone()
	if kind == kindMeasurement {
		s.MeasurementHistory = dropMeasurement(s.MeasurementHistory, tempID)
	} else {
		s.Timeline = dropEvent(s.Timeline, tempID)
	}
	c.snapshot = s
	c.mu.Unlock()

	if _, err := c.queue.Discard(ctx, tempID); err != nil {
		logger.Error("Failed to discard dependent actions", "session", c.id, "id", tempID, "error", err)
	}
}
