// Package queue is the per-session Offline Action Queue: a durable FIFO of
// pending mutations replayed against the store of record.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/julianstephens/brewlog/internal/constants"
	"github.com/julianstephens/brewlog/internal/logger"
	"github.com/julianstephens/brewlog/internal/models"
	"github.com/julianstephens/brewlog/internal/storage"
)

var (
	// ErrBlocked means an action targets a record whose create has not been
	// confirmed yet. The drain stops there and resumes on the next pass.
	ErrBlocked = errors.New("action depends on an unconfirmed create")
	// ErrDraining is returned when Process is called during a drain
	ErrDraining = errors.New("queue is already draining")
)

// Store persists one ordered action list per session
type Store interface {
	LoadQueue(ctx context.Context, sessionID string) ([]models.QueueAction, error)
	SaveQueue(ctx context.Context, sessionID string, actions []models.QueueAction) error
}

// Report summarises one drain pass
type Report struct {
	Applied   int
	Remaining int
	// Resolved maps temp ids confirmed during this pass to server ids
	Resolved map[string]string
	// Failed is the action the pass stopped on, nil on a full drain
	Failed *models.QueueAction
}

// Drained reports whether the pass emptied the queue
func (r Report) Drained() bool {
	return r.Failed == nil && r.Remaining == 0
}

// Queue owns the pending actions of one session
type Queue struct {
	mu        sync.Mutex
	sessionID string
	store     Store
	items     []models.QueueAction
	draining  bool
}

func New(sessionID string, store Store) *Queue {
	return &Queue{
		sessionID: sessionID,
		store:     store,
	}
}

// Load replaces the in-memory list with the persisted one
func (q *Queue) Load(ctx context.Context) error {
	actions, err := q.store.LoadQueue(ctx, q.sessionID)
	if err != nil {
		return fmt.Errorf("failed to load queue for session %s: %w", q.sessionID, err)
	}
	q.mu.Lock()
	q.items = actions
	q.mu.Unlock()
	logger.Debug("Loaded offline queue", "session", q.sessionID, "pending", len(actions))
	return nil
}

// Push appends an action and persists the queue
func (q *Queue) Push(ctx context.Context, action models.QueueAction) error {
	if err := action.Validate(); err != nil {
		return err
	}
	if action.SessionID != q.sessionID {
		return fmt.Errorf("action for session %s pushed to queue of %s", action.SessionID, q.sessionID)
	}

	q.mu.Lock()
	q.items = append(q.items, action)
	snapshot := q.snapshotLocked()
	q.mu.Unlock()

	logger.Debug("Queued action", "session", q.sessionID, "action", action.ID, "type", action.Type)
	return q.persist(ctx, snapshot)
}

// Items returns a copy of the pending actions in order
func (q *Queue) Items() []models.QueueAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) IsDraining() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.draining
}

// HasCreate reports whether the create for tempID is still pending
func (q *Queue) HasCreate(tempID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, a := range q.items {
		if a.TempID == tempID {
			return true
		}
	}
	return false
}

// Resolve records that tempID was confirmed as serverID and rewrites any
// pending action that targets it.
func (q *Queue) Resolve(ctx context.Context, tempID, serverID string) error {
	q.mu.Lock()
	changed := q.rewriteLocked(map[string]string{tempID: serverID})
	snapshot := q.snapshotLocked()
	q.mu.Unlock()

	if !changed {
		return nil
	}
	return q.persist(ctx, snapshot)
}

// Discard drops pending actions that target tempID. It is used when an
// optimistic create is rolled back, so its dependents can never apply.
func (q *Queue) Discard(ctx context.Context, tempID string) (int, error) {
	q.mu.Lock()
	kept := q.items[:0:0]
	for _, a := range q.items {
		if a.TargetID == tempID {
			continue
		}
		kept = append(kept, a)
	}
	dropped := len(q.items) - len(kept)
	q.items = kept
	snapshot := q.snapshotLocked()
	q.mu.Unlock()

	if dropped == 0 {
		return 0, nil
	}
	logger.Warn("Discarded queued actions for rolled back record", "session", q.sessionID, "id", tempID, "count", dropped)
	return dropped, q.persist(ctx, snapshot)
}

// DropOrphans removes actions aimed at a temp id that has no create left in
// the queue and is not reported live. That happens when the process exits
// after an online create succeeded but before it was confirmed; such an
// action would block every later drain.
func (q *Queue) DropOrphans(ctx context.Context, live func(tempID string) bool) (int, error) {
	q.mu.Lock()
	creates := map[string]bool{}
	for _, a := range q.items {
		if a.TempID != "" {
			creates[a.TempID] = true
		}
	}
	kept := q.items[:0:0]
	var orphaned []models.QueueAction
	for _, a := range q.items {
		if dep := a.DependsOn(); dep != "" && !creates[dep] && (live == nil || !live(dep)) {
			orphaned = append(orphaned, a)
			continue
		}
		kept = append(kept, a)
	}
	q.items = kept
	snapshot := q.snapshotLocked()
	q.mu.Unlock()

	if len(orphaned) == 0 {
		return 0, nil
	}
	for _, a := range orphaned {
		logger.Warn("Dropped queued action for a record that was never confirmed",
			"session", q.sessionID, "action", a.ID, "type", a.Type, "id", a.TargetID)
	}
	return len(orphaned), q.persist(ctx, snapshot)
}

// Process drains a snapshot of the queue front to back against remote.
// Each action is removed only after its write succeeds; the first failure
// stops the pass and leaves it and everything behind it in place.
func (q *Queue) Process(ctx context.Context, remote storage.Remote) (Report, error) {
	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		return Report{}, ErrDraining
	}
	q.draining = true
	pending := q.snapshotLocked()
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
	}()

	report := Report{Resolved: map[string]string{}}
	if len(pending) > 0 {
		logger.Info("Draining offline queue", "session", q.sessionID, "pending", len(pending))
	}

	for _, queued := range pending {
		// earlier successes in this pass may have confirmed the target
		action := queued.Rewrite(report.Resolved)

		serverID, err := Dispatch(ctx, remote, action)
		if err != nil {
			failed := queued
			report.Failed = &failed
			report.Remaining = q.Len()
			logger.Warn("Queue drain stopped", "session", q.sessionID, "action", action.ID, "type", action.Type, "error", err)
			return report, fmt.Errorf("replaying %s %s: %w", action.Type, action.ID, err)
		}

		q.mu.Lock()
		q.removeLocked(queued.ID)
		if action.TempID != "" && serverID != "" {
			report.Resolved[action.TempID] = serverID
			q.rewriteLocked(map[string]string{action.TempID: serverID})
		}
		snapshot := q.snapshotLocked()
		q.mu.Unlock()

		report.Applied++
		if err := q.persist(ctx, snapshot); err != nil {
			// the remote write already happened; keep going and let the
			// next successful persist catch up
			logger.Error("Failed to persist queue after replay", "session", q.sessionID, "error", err)
		}
	}

	report.Remaining = q.Len()
	logger.Info("Queue drain finished", "session", q.sessionID, "applied", report.Applied, "remaining", report.Remaining)
	return report, nil
}

// Dispatch performs one action against remote and returns the server id
// for creates. The session uses it for direct writes as well as replay.
func Dispatch(ctx context.Context, remote storage.Remote, a models.QueueAction) (string, error) {
	if dep := a.DependsOn(); dep != "" {
		switch a.Type {
		case constants.ActionDeleteMeasurement, constants.ActionRemoveEvent:
			// never created remotely, so there is nothing to delete
			logger.Debug("Skipping delete of unconfirmed record", "action", a.ID, "id", dep)
			return "", nil
		default:
			return "", fmt.Errorf("%w: %s", ErrBlocked, dep)
		}
	}

	switch a.Type {
	case constants.ActionAddMeasurement:
		m, err := remote.CreateMeasurement(ctx, a.SessionID, *a.Measurement)
		return m.ID, err
	case constants.ActionUpdateMeasurement:
		return "", remote.UpdateMeasurement(ctx, a.TargetID, *a.MeasurementPatch)
	case constants.ActionDeleteMeasurement:
		return "", ignoreNotFound(remote.DeleteMeasurement(ctx, a.TargetID))
	case constants.ActionAddEvent:
		e, _, err := remote.AppendEvent(ctx, a.SessionID, *a.Event)
		return e.ID, err
	case constants.ActionRemoveEvent:
		return "", ignoreNotFound(remote.DeleteEvent(ctx, a.TargetID))
	case constants.ActionChangePhase:
		e, err := remote.SetPhase(ctx, a.SessionID, a.PhaseChange.To, a.PhaseChange.Event)
		return e.ID, err
	case constants.ActionUpdateSession:
		return "", remote.UpdateSession(ctx, a.SessionID, *a.SessionPatch)
	default:
		return "", fmt.Errorf("unknown action type: %s", a.Type)
	}
}

func ignoreNotFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

func (q *Queue) persist(ctx context.Context, actions []models.QueueAction) error {
	if err := q.store.SaveQueue(ctx, q.sessionID, actions); err != nil {
		return fmt.Errorf("failed to persist queue for session %s: %w", q.sessionID, err)
	}
	return nil
}

func (q *Queue) snapshotLocked() []models.QueueAction {
	return append([]models.QueueAction(nil), q.items...)
}

// removeLocked drops the action with id, wherever it now sits
func (q *Queue) removeLocked(id string) {
	for i, a := range q.items {
		if a.ID == id {
			q.items = append(q.items[:i:i], q.items[i+1:]...)
			return
		}
	}
}

func (q *Queue) rewriteLocked(resolved map[string]string) bool {
	changed := false
	for i, a := range q.items {
		if _, ok := resolved[a.TargetID]; ok {
			q.items[i] = a.Rewrite(resolved)
			changed = true
		}
	}
	return changed
}
