package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/julianstephens/brewlog/internal/logger"
	"github.com/julianstephens/brewlog/internal/models"
	"github.com/julianstephens/brewlog/internal/notifier"
	"github.com/julianstephens/brewlog/internal/queue"
)

// ProcessQueue drains pending actions in order, then refetches the session
// to reconcile temp ids and server-side fields. The refetch runs whether or
// not the drain finished. A full drain sends a success notification.
func (c *Context) ProcessQueue(ctx context.Context) (queue.Report, error) {
	if !c.IsOnline() {
		return queue.Report{Remaining: c.queue.Len()}, ErrOffline
	}
	if c.queue.Len() == 0 {
		return queue.Report{}, nil
	}

	c.syncing.Add(1)
	defer c.syncing.Add(-1)

	report, err := c.queue.Process(ctx, c.remote)
	if errors.Is(err, queue.ErrDraining) {
		return report, err
	}

	c.refetch(ctx)

	if err == nil && report.Drained() && report.Applied > 0 {
		noun := "change"
		if report.Applied != 1 {
			noun = "changes"
		}
		c.send(ctx, notifier.Success(fmt.Sprintf("Synced %d offline %s", report.Applied, noun)))
	}
	return report, err
}

// Refresh reloads the session from the store of record
func (c *Context) Refresh(ctx context.Context) error {
	if !c.IsOnline() {
		return ErrOffline
	}
	return c.refetch(ctx)
}

// refetch replaces the snapshot with the authoritative view plus local work
// that is not confirmed yet. On failure the stale view is kept.
func (c *Context) refetch(ctx context.Context) error {
	fresh, err := c.remote.GetSession(ctx, c.id)
	if err != nil {
		logger.Warn("Failed to refetch session, keeping local state", "session", c.id, "error", err)
		return err
	}

	c.mu.Lock()
	c.snapshot = c.rebaseLocked(fresh)
	c.mu.Unlock()

	c.saveCache(ctx)
	return nil
}

// rebaseLocked lays in-flight creates and the pending queue over base.
// Callers hold c.mu.
func (c *Context) rebaseLocked(base models.Session) models.Session {
	s := base.Clone()
	for _, m := range c.snapshot.MeasurementHistory {
		if c.inflight[m.ID] && s.FindMeasurement(m.ID) < 0 {
			s.MeasurementHistory = append(s.MeasurementHistory, m.Clone())
		}
	}
	for _, e := range c.snapshot.Timeline {
		if c.inflight[e.ID] && s.FindEvent(e.ID) < 0 {
			s.Timeline = append(s.Timeline, e)
		}
	}
	for _, a := range c.queue.Items() {
		s = apply(s, a)
	}
	return s
}
