package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/brewlog/internal/connectivity"
	"github.com/julianstephens/brewlog/internal/constants"
	"github.com/julianstephens/brewlog/internal/gravity"
	"github.com/julianstephens/brewlog/internal/logger"
	"github.com/julianstephens/brewlog/internal/notifier"
	"github.com/julianstephens/brewlog/internal/session"
	"github.com/julianstephens/brewlog/internal/storage"
	"github.com/julianstephens/brewlog/internal/storage/sqlite"
)

var (
	ErrNoRemote  = errors.New("no store of record configured")
	ErrNoSession = errors.New("no session selected")
)

// Context is handed to every command's Run method
type Context struct {
	// Local holds the offline queue and the snapshot cache
	Local *sqlite.Store
	// Remote is the store of record, nil when none is configured
	Remote    storage.Remote
	SessionID string
	// Offline forces every write into the queue
	Offline  bool
	Notifier notifier.Sender
}

func (c *Context) RequireRemote() (storage.Remote, error) {
	if c.Remote == nil {
		return nil, fmt.Errorf("%w: pass --remote or run 'brewlog keyring set'", ErrNoRemote)
	}
	return c.Remote, nil
}

func (c *Context) RequireSession() (string, error) {
	if strings.TrimSpace(c.SessionID) == "" {
		return "", fmt.Errorf("%w: pass --session or set BREWLOG_SESSION", ErrNoSession)
	}
	return c.SessionID, nil
}

// NewMonitor probes the store of record once and honours --offline
func (c *Context) NewMonitor(ctx context.Context) *connectivity.Monitor {
	cfg := connectivity.DefaultConfig()
	cfg.ForceOffline = c.Offline
	var prober connectivity.Prober
	if c.Remote != nil {
		prober = c.Remote
	}
	m := connectivity.New(prober, cfg)
	if prober != nil && !c.Offline {
		m.Check(ctx)
	}
	return m
}

// IsOnline probes the store of record without opening a session
func (c *Context) IsOnline(ctx context.Context) bool {
	if c.Remote == nil {
		return false
	}
	return c.NewMonitor(ctx).Online()
}

// OpenSession opens the selected session. Work left in the queue by an
// earlier offline run is drained first when the store is reachable.
func (c *Context) OpenSession(ctx context.Context, monitor *connectivity.Monitor) (*session.Context, error) {
	id, err := c.RequireSession()
	if err != nil {
		return nil, err
	}
	remote, err := c.RequireRemote()
	if err != nil {
		return nil, err
	}
	if monitor == nil {
		monitor = c.NewMonitor(ctx)
	}

	sc, err := session.Open(ctx, session.Options{
		SessionID: id,
		Remote:    remote,
		Queue:     c.Local,
		Cache:     c.Local,
		Monitor:   monitor,
		Notifier:  c.notifier(),
	})
	if err != nil {
		return nil, err
	}

	if sc.IsOnline() && len(sc.PendingActions()) > 0 {
		if _, err := sc.ProcessQueue(ctx); err != nil {
			logger.Warn("Draining queued changes failed", "session", id, "error", err)
		}
	}
	return sc, nil
}

// CloseSession lets background drains settle before closing
func CloseSession(sc *session.Context) {
	sc.Wait()
	sc.Close()
}

func (c *Context) notifier() notifier.Sender {
	if c.Notifier != nil {
		return c.Notifier
	}
	return notifier.LogSender{}
}

// ParseWhen accepts RFC3339, "YYYY-MM-DD HH:MM" or "YYYY-MM-DD" in local
// time. An empty string yields nil.
func ParseWhen(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	for _, layout := range []string{constants.DisplayTimeFormat, constants.DateFormat} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid time %q (use RFC3339, 'YYYY-MM-DD HH:MM' or 'YYYY-MM-DD')", s)
}

// FormatTime renders t in local time for tables
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(constants.DisplayTimeFormat)
}

// FormatFloat renders an optional value with the given precision
func FormatFloat(f *float64, prec int) string {
	if f == nil {
		return "-"
	}
	return fmt.Sprintf("%.*f", prec, *f)
}

// FormatGravity renders an optional SG value on the chosen scale
func FormatGravity(sg *float64, unit gravity.Unit) string {
	if sg == nil {
		return "-"
	}
	return gravity.Format(*sg, unit)
}

// StatusLine summarises connectivity and queue depth for command output
func StatusLine(sc *session.Context) string {
	state := "online"
	if !sc.IsOnline() {
		state = "offline"
	}
	pending := len(sc.PendingActions())
	if pending == 0 {
		return state
	}
	return fmt.Sprintf("%s, %d change(s) queued", state, pending)
}
