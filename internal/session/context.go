// Package session is the orchestrator for one brewing session. It owns the
// in-memory snapshot, applies every mutation optimistically, and routes the
// write either straight to the store of record or into the offline queue
// depending on connectivity at call time.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/julianstephens/brewlog/internal/connectivity"
	"github.com/julianstephens/brewlog/internal/logger"
	"github.com/julianstephens/brewlog/internal/metrics"
	"github.com/julianstephens/brewlog/internal/models"
	"github.com/julianstephens/brewlog/internal/notifier"
	"github.com/julianstephens/brewlog/internal/queue"
	"github.com/julianstephens/brewlog/internal/storage"
)

// ErrOffline is returned by ProcessQueue when the store of record is not
// reachable.
var ErrOffline = errors.New("store of record is unreachable")

// Options wires a Context to its collaborators. Remote and Queue are
// required.
type Options struct {
	SessionID string
	Remote    storage.Remote
	Queue     queue.Store
	// Cache, when set, lets the session open without the store of record
	Cache storage.SnapshotCache
	// Monitor drives routing and the drain trigger. Nil means always online.
	Monitor  *connectivity.Monitor
	Notifier notifier.Sender
	Now      func() time.Time
}

type recordKind int

const (
	kindMeasurement recordKind = iota
	kindEvent
)

// Context holds one session. All methods are safe for concurrent use; the
// snapshot lock is never held across a remote call.
type Context struct {
	id      string
	remote  storage.Remote
	queue   *queue.Queue
	cache   storage.SnapshotCache
	monitor *connectivity.Monitor
	notify  notifier.Sender
	now     func() time.Time

	mu       sync.RWMutex
	snapshot models.Session
	// inflight holds temp ids of online creates awaiting confirmation
	inflight map[string]bool
	// tombstones holds temp ids deleted while their create was in flight
	tombstones map[string]recordKind
	closed     bool

	syncing atomic.Int32
	bg      context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Open builds the context, reloads the persisted queue and fetches the
// session. When the store of record is unreachable the cached snapshot is
// used instead.
func Open(ctx context.Context, opts Options) (*Context, error) {
	if opts.SessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", models.ErrValidation)
	}
	if opts.Remote == nil || opts.Queue == nil {
		return nil, errors.New("session needs a remote store and a queue store")
	}
	if opts.Notifier == nil {
		opts.Notifier = notifier.LogSender{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Monitor == nil {
		opts.Monitor = connectivity.New(nil, connectivity.DefaultConfig())
		opts.Monitor.Set(true)
	}

	bg, cancel := context.WithCancel(context.Background())
	c := &Context{
		id:         opts.SessionID,
		remote:     opts.Remote,
		queue:      queue.New(opts.SessionID, opts.Queue),
		cache:      opts.Cache,
		monitor:    opts.Monitor,
		notify:     opts.Notifier,
		now:        opts.Now,
		inflight:   map[string]bool{},
		tombstones: map[string]recordKind{},
		bg:         bg,
		cancel:     cancel,
	}

	if err := c.Load(ctx); err != nil {
		cancel()
		return nil, err
	}
	c.monitor.Subscribe(c.onConnectivity)
	return c, nil
}

// Load rebuilds the snapshot from the store of record (or the cache) and
// replays the persisted queue over it.
func (c *Context) Load(ctx context.Context) error {
	if err := c.queue.Load(ctx); err != nil {
		return err
	}
	if _, err := c.queue.DropOrphans(ctx, c.isInflight); err != nil {
		return err
	}

	var base models.Session
	fetched := false
	if c.IsOnline() {
		s, err := c.remote.GetSession(ctx, c.id)
		switch {
		case err == nil:
			base, fetched = s, true
		case errors.Is(err, storage.ErrNotFound):
			return fmt.Errorf("session %s: %w", c.id, err)
		default:
			logger.Warn("Failed to fetch session, trying local cache", "session", c.id, "error", err)
		}
	}
	if !fetched {
		cached, ok, err := c.cachedSnapshot(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("session %s is not cached on this device and the store of record is unreachable", c.id)
		}
		base = cached
	}

	c.mu.Lock()
	c.snapshot = c.rebaseLocked(base)
	c.mu.Unlock()

	if fetched {
		c.saveCache(ctx)
	}
	logger.Debug("Session loaded", "session", c.id, "from_remote", fetched, "pending", c.queue.Len())
	return nil
}

// Close stops background drains
func (c *Context) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
	c.wg.Wait()
}

// Wait blocks until background drains started so far have finished
func (c *Context) Wait() {
	c.wg.Wait()
}

func (c *Context) ID() string {
	return c.id
}

func (c *Context) IsOnline() bool {
	return c.monitor.Online()
}

// IsSyncing reports whether a drain or its reconciliation is running
func (c *Context) IsSyncing() bool {
	return c.syncing.Load() > 0 || c.queue.IsDraining()
}

// SetOffline pins routing to the offline path, or releases the pin
func (c *Context) SetOffline(forced bool) {
	c.monitor.SetForceOffline(forced)
}

// Snapshot returns a deep copy of the current session view
func (c *Context) Snapshot() models.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot.Clone()
}

// Measurements returns the measurement history by measured_at
func (c *Context) Measurements() []models.Measurement {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot.Clone().SortedMeasurements()
}

// Timeline returns the timeline by logical date
func (c *Context) Timeline() []models.TimelineEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot.SortedTimeline()
}

func (c *Context) Metrics() metrics.Stats {
	return metrics.Compute(c.Snapshot())
}

func (c *Context) PendingActions() []models.QueueAction {
	return c.queue.Items()
}

// onConnectivity starts a drain on every transition to online
func (c *Context) onConnectivity(online bool) {
	if online {
		c.kick()
	}
}

func (c *Context) isInflight(tempID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inflight[tempID]
}

// kick drains in the background if there is anything to drain. Once Close
// has started no new drain is added to the wait group.
func (c *Context) kick() {
	if !c.IsOnline() || c.queue.Len() == 0 {
		return
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()
	go func() {
		defer c.wg.Done()
		if _, err := c.ProcessQueue(c.bg); err != nil && !errors.Is(err, queue.ErrDraining) {
			logger.Debug("Background drain stopped", "session", c.id, "error", err)
		}
	}()
}

func (c *Context) cachedSnapshot(ctx context.Context) (models.Session, bool, error) {
	if c.cache == nil {
		return models.Session{}, false, nil
	}
	s, ok, err := c.cache.LoadSnapshot(ctx, c.id)
	if err != nil {
		return models.Session{}, false, fmt.Errorf("failed to read cached session: %w", err)
	}
	return s, ok, nil
}

// saveCache stores the current view minus records still in flight. The
// queue is persisted separately, so queued work may be included.
func (c *Context) saveCache(ctx context.Context) {
	if c.cache == nil {
		return
	}
	c.mu.RLock()
	s := c.snapshot.Clone()
	for id := range c.inflight {
		s.MeasurementHistory = dropMeasurement(s.MeasurementHistory, id)
		s.Timeline = dropEvent(s.Timeline, id)
	}
	c.mu.RUnlock()

	if err := c.cache.SaveSnapshot(ctx, s); err != nil {
		logger.Warn("Failed to cache session", "session", c.id, "error", err)
	}
}

func (c *Context) send(ctx context.Context, msg notifier.Message) {
	if err := c.notify.Send(ctx, msg); err != nil {
		logger.Debug("Notification not delivered", "session", c.id, "error", err)
	}
}

func (c *Context) fail(ctx context.Context, what string, err error) {
	logger.Error(what, "session", c.id, "error", err)
	c.send(ctx, notifier.Failure(fmt.Sprintf("%s: %v", what, err)))
}
