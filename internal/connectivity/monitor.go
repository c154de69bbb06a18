// Package connectivity turns store reachability into an online/offline
// signal and notifies subscribers only when it flips.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/julianstephens/brewlog/internal/constants"
	"github.com/julianstephens/brewlog/internal/logger"
)

// Prober checks whether the store of record is reachable
type Prober interface {
	Ping(ctx context.Context) error
}

// Config holds probe timing
type Config struct {
	Interval time.Duration
	Timeout  time.Duration
	// ForceOffline pins the signal to offline regardless of probes
	ForceOffline bool
}

func DefaultConfig() Config {
	return Config{
		Interval: constants.DefaultProbeInterval,
		Timeout:  constants.DefaultProbeTimeout,
	}
}

// Monitor tracks the online signal. It starts offline until the first
// probe or Set call says otherwise.
type Monitor struct {
	prober   Prober
	interval time.Duration
	timeout  time.Duration

	mu          sync.RWMutex
	online      bool
	forced      bool
	subscribers []func(online bool)
	running     bool
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

func New(prober Prober, cfg Config) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = constants.DefaultProbeInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.DefaultProbeTimeout
	}
	return &Monitor{
		prober:   prober,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		forced:   cfg.ForceOffline,
	}
}

// Online reports the current signal
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online && !m.forced
}

// Subscribe registers fn for transitions. fn runs on the goroutine that
// observed the change and must not block for long.
func (m *Monitor) Subscribe(fn func(online bool)) {
	m.mu.Lock()
	m.subscribers = append(m.subscribers, fn)
	m.mu.Unlock()
}

// SetForceOffline pins or releases the offline override
func (m *Monitor) SetForceOffline(forced bool) {
	m.update(func() { m.forced = forced })
}

// Set records an externally observed state
func (m *Monitor) Set(online bool) {
	m.update(func() { m.online = online })
}

// Check probes once and returns the resulting signal
func (m *Monitor) Check(ctx context.Context) bool {
	if m.prober == nil {
		return m.Online()
	}
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.prober.Ping(probeCtx)
	if err != nil {
		logger.Debug("Connectivity probe failed", "error", err)
	}
	m.Set(err == nil)
	return m.Online()
}

// Start probes immediately and then on every interval until Stop or ctx
// cancellation.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.mu.Unlock()

	m.Check(ctx)

	m.wg.Add(1)
	go m.loop(ctx)
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	m.mu.Unlock()

	m.wg.Wait()
}

func (m *Monitor) loop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// update applies change and fans out if the effective signal flipped
func (m *Monitor) update(change func()) {
	m.mu.Lock()
	was := m.online && !m.forced
	change()
	now := m.online && !m.forced
	subs := append([]func(bool){}, m.subscribers...)
	m.mu.Unlock()

	if was == now {
		return
	}
	logger.Info("Connectivity changed", "online", now)
	for _, fn := range subs {
		fn(now)
	}
}
